package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/auth"
)

type User struct {
	ID                 string      `json:"id" gorm:"primaryKey;size:36"`
	SchoolID           null.String `json:"school_id" gorm:"size:36;index"` // NULL for SUPER_ADMIN
	Name               string      `json:"name" gorm:"size:150"`
	Username           string      `json:"username" gorm:"size:150;not null;uniqueIndex:idx_users_username"`
	Email              null.String `json:"email" gorm:"size:150;uniqueIndex:idx_users_email"`
	Role               auth.Role   `json:"role" gorm:"size:20;not null;index"`
	IsActive           bool        `json:"is_active" gorm:"not null"`
	MustChangePassword bool        `json:"must_change_password" gorm:"not null"`
	PasswordHash       []byte      `json:"-"`
	CreatedAt          time.Time   `json:"created_at"` // UTC
	UpdatedAt          time.Time   `json:"updated_at"` // UTC
	LastLogin          null.Time   `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// Principal is the identity the user acts with once authenticated.
func (u User) Principal() auth.Principal {
	return auth.Principal{UserID: u.ID, Role: u.Role, SchoolID: u.SchoolID.String}
}

func (u User) IsSuperAdmin() bool { return u.Role == auth.RoleSuperAdmin }

// Credentials are handed to the delivery collaborator when an account is issued.
type Credentials struct {
	Identifier      string    `json:"identifier"`
	OneTimePassword string    `json:"one_time_password"`
	Role            auth.Role `json:"role"`
	TenantName      string    `json:"tenant_name"`
}

// NewAccount contains information needed to issue a tenant-scoped account.
// The password is never chosen by the creator: a one-time password is generated.
type NewAccount struct {
	Name     string    `json:"name" validate:"required,max=150"`
	Username string    `json:"username" validate:"required,min=3,max=150,alphanum_"`
	Email    string    `json:"email" validate:"omitempty,email"`
	Role     auth.Role `json:"role" validate:"required,tenantrole"`
}

func (na *NewAccount) Validate(validate *validator.Validate) error {
	na.Name = core.CleanString(na.Name)
	na.Username = core.CleanString(na.Username, true /* lower */)
	na.Email = core.CleanString(na.Email, true /* lower */)
	if r, err := auth.ParseRole(string(na.Role)); err == nil {
		na.Role = r
	}
	return validate.Struct(na)
}

// NewSuperAdmin is used by the admin CLI only.
type NewSuperAdmin struct {
	Name            string `json:"name"`
	Username        string `json:"username" validate:"required,min=3,max=150,alphanum_"`
	Email           string `json:"email" validate:"omitempty,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (ns *NewSuperAdmin) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Username = core.CleanString(ns.Username, true /* lower */)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	return validate.Struct(ns)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name     string    `json:"name" validate:"omitempty,max=150"`
	Email    string    `json:"email" validate:"omitempty,email"`
	Role     auth.Role `json:"role" validate:"omitempty,tenantrole"`
	IsActive *bool     `json:"is_active"`
}

func (uu *UpdateUser) Validate(validate *validator.Validate) error {
	uu.Name = core.CleanString(uu.Name)
	uu.Email = core.CleanString(uu.Email, true /* lower */)
	if r, err := auth.ParseRole(string(uu.Role)); err == nil {
		uu.Role = r
	}
	return validate.Struct(uu)
}

type ChangePassword struct {
	OldPassword     string `json:"old_password" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`

	// checked for similarity by the password policy
	name, username, email string
}

func (cp *ChangePassword) Validate(validate *validator.Validate, usr User) error {
	cp.name, cp.username, cp.email = usr.Name, usr.Username, usr.Email.String
	return validate.Struct(cp)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp *ResetUserPassword) Validate(validate *validator.Validate) error {
	rp.Token = core.CleanString(rp.Token)
	rp.UID = core.CleanString(rp.UID)
	return validate.Struct(rp)
}

type QueryFilter struct {
	Search   string      `query:"search"`
	Roles    []auth.Role `query:"role"`
	IsActive *bool       `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	roles := qf.Roles[:0]
	for _, r := range qf.Roles {
		if r, err := auth.ParseRole(string(r)); err == nil {
			roles = append(roles, r)
		}
	}
	if len(qf.Roles) > 0 && len(roles) == 0 {
		roles = []auth.Role{"-"} // only unknown roles requested: match nothing
	}
	qf.Roles = roles
}
