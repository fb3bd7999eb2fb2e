package user

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/school"
)

var (
	// errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDeactivated = errors.New("account deactivated")

	errNoPermsToSetRole = "not enough rights to set this role"
	errWrongPassword    = "wrong password"
)

type (
	Repository interface {
		// CreateUser stores a tenant member in the scoped school.
		CreateUser(ctx context.Context, scope auth.Scope, usr User) (User, error)
		// CreateSuperAdmin stores a user without a school.
		CreateSuperAdmin(ctx context.Context, usr User) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name, User.Username or User.Email.
		QueryUsers(ctx context.Context, scope auth.Scope, filter QueryFilter, orderings ...core.DBOrdering) ([]User, error)
		GetUser(ctx context.Context, scope auth.Scope, id string) (User, error)
		UpdateUser(ctx context.Context, scope auth.Scope, usr User) (User, error)
		DeleteUser(ctx context.Context, scope auth.Scope, id string) error

		// identity lookups, used before a principal exists
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByUsernameOrEmail(ctx context.Context, identifier string) (User, error)
		// SaveCredentials persists the password hash, the must-change flag and the last login.
		SaveCredentials(ctx context.Context, usr User) (User, error)
	}

	// SchoolGetter resolves the tenant of a scope.
	SchoolGetter interface {
		GetSchool(ctx context.Context, scope auth.Scope) (school.School, error)
	}

	Service struct {
		repo    Repository
		schools SchoolGetter
		authz   *auth.Authorizer
		mailSvc core.EmailService
		logger  core.Logger
		tokens  tokenGenerator
	}
)

func NewService(
	repo Repository,
	schools SchoolGetter,
	authz *auth.Authorizer,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
) *Service {
	return &Service{
		repo:    repo,
		schools: schools,
		authz:   authz,
		mailSvc: mailSvc,
		logger:  logger,
		tokens: tokenGenerator{
			secretKey: []byte(conf.App.SecretKey),
			timeout:   conf.Server.PasswordResetTimeoutDelta,
		},
	}
}

func checkRolePriority(p auth.Principal, role auth.Role) error {
	if !auth.CanManage(p.Role, role) {
		return core.NewValidationError(nil, core.FieldError{Field: "role", Error: errNoPermsToSetRole})
	}
	return nil
}

// CreateAccount issues a tenant-scoped account with a one-time password.
// The credentials are returned and handed to the mail service fire-and-forget:
// a delivery failure never rolls the account back.
func (svc *Service) CreateAccount(ctx context.Context, p auth.Principal, schoolID string, na NewAccount) (User, Credentials, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleUsers, auth.Write)
	if err != nil {
		return User{}, Credentials{}, err
	}
	if !na.Role.IsTenantScoped() {
		return User{}, Credentials{}, core.NewValidationError(nil, core.FieldError{Field: "role", Error: "role must belong to a school"})
	}
	if err = checkRolePriority(p, na.Role); err != nil {
		return User{}, Credentials{}, err
	}

	sch, err := svc.schools.GetSchool(ctx, scope)
	if err != nil {
		return User{}, Credentials{}, errors.Wrap(err, "getting school")
	}

	otp, err := GenerateOneTimePassword()
	if err != nil {
		return User{}, Credentials{}, err
	}
	usr := User{
		Name:               na.Name,
		Username:           na.Username,
		Email:              null.NewString(na.Email, na.Email != ""),
		Role:               na.Role,
		IsActive:           true,
		MustChangePassword: true,
	}
	if err = usr.SetPassword(otp); err != nil {
		return User{}, Credentials{}, err
	}
	if usr, err = svc.repo.CreateUser(ctx, scope, usr); err != nil {
		return User{}, Credentials{}, err
	}

	creds := Credentials{
		Identifier:      usr.Username,
		OneTimePassword: otp,
		Role:            usr.Role,
		TenantName:      sch.Name,
	}
	svc.sendCredentialsMail(usr, creds)
	return usr, creds, nil
}

// CreateSuperAdmin is reserved to the admin CLI.
func (svc *Service) CreateSuperAdmin(ctx context.Context, p auth.Principal, ns NewSuperAdmin) (User, error) {
	if err := svc.authz.RequireSuperAdmin(p); err != nil {
		return User{}, err
	}
	usr := User{
		Name:     ns.Name,
		Username: ns.Username,
		Email:    null.NewString(ns.Email, ns.Email != ""),
		Role:     auth.RoleSuperAdmin,
		IsActive: true,
	}
	if err := usr.SetPassword(ns.Password); err != nil {
		return User{}, err
	}
	return svc.repo.CreateSuperAdmin(ctx, usr)
}

func (svc *Service) Query(ctx context.Context, p auth.Principal, schoolID string, filter QueryFilter, orderings ...core.DBOrdering) ([]User, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleUsers, auth.Read)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryUsers(ctx, scope, filter, orderings...)
}

func (svc *Service) Get(ctx context.Context, p auth.Principal, schoolID, id string) (User, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleUsers, auth.Read)
	if err != nil {
		return User{}, err
	}
	return svc.repo.GetUser(ctx, scope, id)
}

// Me returns the account of the principal.
func (svc *Service) Me(ctx context.Context, p auth.Principal) (User, error) {
	if err := svc.authz.RequireAuthenticated(p); err != nil {
		return User{}, err
	}
	return svc.repo.GetUserByID(ctx, p.UserID)
}

func (svc *Service) Update(ctx context.Context, p auth.Principal, schoolID, id string, uu UpdateUser) (User, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleUsers, auth.Write)
	if err != nil {
		return User{}, err
	}
	usr, err := svc.repo.GetUser(ctx, scope, id)
	if err != nil {
		return User{}, err
	}
	// peers and higher ranks are off limits; one's own account is not
	self := usr.ID == p.UserID
	if !self && !auth.CanManage(p.Role, usr.Role) {
		return User{}, core.ErrForbidden
	}

	if uu.Name != "" {
		usr.Name = uu.Name
	}
	if uu.Email != "" {
		usr.Email = null.StringFrom(uu.Email)
	}
	if uu.Role != "" && uu.Role != usr.Role {
		if self {
			return User{}, core.NewValidationError(nil, core.FieldError{Field: "role", Error: "you cannot change your own role"})
		}
		if err = checkRolePriority(p, uu.Role); err != nil {
			return User{}, err
		}
		usr.Role = uu.Role
	}
	if uu.IsActive != nil {
		if self && !*uu.IsActive {
			return User{}, core.NewValidationError(nil, core.FieldError{Field: "is_active", Error: "you cannot deactivate yourself"})
		}
		usr.IsActive = *uu.IsActive
	}
	return svc.repo.UpdateUser(ctx, scope, usr)
}

func (svc *Service) Delete(ctx context.Context, p auth.Principal, schoolID, id string) error {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleUsers, auth.Write)
	if err != nil {
		return err
	}
	// Say No to Suicide! a principal cannot delete themselves
	if id == p.UserID {
		return core.ErrForbidden
	}
	usr, err := svc.repo.GetUser(ctx, scope, id)
	if err != nil {
		return err
	}
	if !auth.CanManage(p.Role, usr.Role) {
		return core.ErrForbidden
	}
	return svc.repo.DeleteUser(ctx, scope, id)
}

// Authenticate checks the credentials of a sign-in attempt and records the login.
// Unknown identifiers and wrong passwords are indistinguishable.
func (svc *Service) Authenticate(ctx context.Context, identifier, pwd string) (User, error) {
	usr, err := svc.repo.GetUserByUsernameOrEmail(ctx, core.CleanString(identifier, true /* lower */))
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by username or email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if err = svc.checkActive(ctx, usr); err != nil {
		return User{}, err
	}

	usr.LastLogin = null.TimeFrom(time.Now().UTC().Truncate(time.Second))
	usr, err = svc.repo.SaveCredentials(ctx, usr)
	return usr, errors.Wrap(err, "setting last login")
}

// GetActive returns the account behind a session, provided it may still be used.
func (svc *Service) GetActive(ctx context.Context, id string) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return User{}, core.ErrUnauthenticated
		}
		return User{}, err
	}
	if err = svc.checkActive(ctx, usr); err != nil {
		return User{}, err
	}
	return usr, nil
}

// checkActive rejects deactivated accounts and members of deactivated schools.
func (svc *Service) checkActive(ctx context.Context, usr User) error {
	if !usr.IsActive {
		return ErrAccountDeactivated
	}
	if usr.IsSuperAdmin() {
		return nil
	}
	scope, err := svc.authz.Authorize(ctx, auth.System, usr.SchoolID.String, auth.ModuleSchool, auth.Read)
	if err != nil {
		return errors.Wrap(err, "scoping user school")
	}
	sch, err := svc.schools.GetSchool(ctx, scope)
	if err != nil {
		return errors.Wrap(err, "getting user school")
	}
	if !sch.IsActive {
		return ErrAccountDeactivated
	}
	return nil
}

// ChangePassword sets a new password chosen by the principal, clearing the must-change flag.
func (svc *Service) ChangePassword(ctx context.Context, p auth.Principal, cp ChangePassword) (User, error) {
	usr, err := svc.Me(ctx, p)
	if err != nil {
		return User{}, err
	}
	if err = usr.CheckPassword(cp.OldPassword); err != nil {
		return User{}, core.NewValidationError(nil, core.FieldError{Field: "old_password", Error: errWrongPassword})
	}
	if err = usr.SetPassword(cp.Password); err != nil {
		return User{}, err
	}
	usr.MustChangePassword = false
	return svc.repo.SaveCredentials(ctx, usr)
}

// SetPassword is the admin CLI password reset.
func (svc *Service) SetPassword(ctx context.Context, p auth.Principal, identifier, pwd string) (User, error) {
	if err := svc.authz.RequireSuperAdmin(p); err != nil {
		return User{}, err
	}
	usr, err := svc.repo.GetUserByUsernameOrEmail(ctx, core.CleanString(identifier, true /* lower */))
	if err != nil {
		return User{}, err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return User{}, err
	}
	return svc.repo.SaveCredentials(ctx, usr)
}

func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.repo.GetUserByUsernameOrEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	if !usr.IsActive || !usr.Email.Valid {
		return core.ErrNotFound
	}
	return svc.sendPasswordResetMail(usr)
}

// PasswordResetToken is what the password reset mail carries.
func (svc *Service) PasswordResetToken(usr User) (uid, token string, err error) {
	token, err = svc.tokens.makeToken(usr)
	return EncodeUID(usr), token, err
}

func (svc *Service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	invalid := core.NewValidationError(errors.New("invalid or expired link"))

	id, err := decodeUID(rp.UID)
	if err != nil {
		return invalid
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return invalid
		}
		return err
	}
	if err = svc.tokens.verifyToken(usr, rp.Token); err != nil {
		if err == errInvalidToken || err == errTokenExpired {
			return invalid
		}
		return err
	}
	if err = usr.SetPassword(rp.Password); err != nil {
		return err
	}
	usr.MustChangePassword = false
	_, err = svc.repo.SaveCredentials(ctx, usr)
	return err
}
