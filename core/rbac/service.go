package rbac

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"gorm.io/datatypes"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/auth"
)

type (
	// Repository stores permission sets keyed by school key: a school id or SystemWide.
	// Keys are derived by the Service from an authorized scope, never from request input.
	Repository interface {
		CreateRolePermission(ctx context.Context, rp RolePermission) (RolePermission, error)
		QueryRolePermissions(ctx context.Context, schoolKey string) ([]RolePermission, error)
		GetRolePermission(ctx context.Context, schoolKey, id string) (RolePermission, error)
		// FindRolePermission returns core.ErrNotFound when the role has no set under the key.
		FindRolePermission(ctx context.Context, role auth.Role, schoolKey string) (RolePermission, error)
		UpdateRolePermission(ctx context.Context, rp RolePermission) (RolePermission, error)
		DeleteRolePermission(ctx context.Context, schoolKey, id string) error
	}

	Service struct {
		repo  Repository
		authz *auth.Authorizer
	}
)

func NewService(repo Repository, authz *auth.Authorizer) *Service {
	return &Service{repo: repo, authz: authz}
}

func validateGrants(grants auth.Grants) error {
	if err := grants.Validate(); err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "grants", Error: err.Error()})
	}
	return nil
}

// checkManageable forbids tenant members from configuring roles ranked as high as their own.
func checkManageable(p auth.Principal, role auth.Role) error {
	if !auth.CanManage(p.Role, role) {
		return core.ErrForbidden
	}
	return nil
}

// schoolKey resolves the key a principal manages: a super admin without target manages
// system-wide sets, anyone else the sets of the authorized school.
func (svc *Service) schoolKey(ctx context.Context, p auth.Principal, schoolID string, acc auth.Access) (string, error) {
	if p.IsSuperAdmin() && core.CleanString(schoolID) == "" {
		return SystemWide, nil
	}
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModulePermissions, acc)
	if err != nil {
		return "", err
	}
	return scope.SchoolID(), nil
}

// Create stores the permission set of a role. The store rejects a second set for the same (role, key).
func (svc *Service) Create(ctx context.Context, p auth.Principal, schoolID string, nrp NewRolePermission) (RolePermission, error) {
	key, err := svc.schoolKey(ctx, p, schoolID, auth.Write)
	if err != nil {
		return RolePermission{}, err
	}
	if err = checkManageable(p, nrp.Role); err != nil {
		return RolePermission{}, err
	}
	if err = validateGrants(nrp.Grants); err != nil {
		return RolePermission{}, err
	}
	rp := RolePermission{
		Role:      nrp.Role,
		SchoolKey: key,
		Grants:    datatypes.NewJSONType(nrp.Grants),
		UpdatedBy: p.UserID,
	}
	if key != SystemWide {
		rp.SchoolID = null.StringFrom(key)
	}
	return svc.repo.CreateRolePermission(ctx, rp)
}

func (svc *Service) Query(ctx context.Context, p auth.Principal, schoolID string) ([]RolePermission, error) {
	key, err := svc.schoolKey(ctx, p, schoolID, auth.Read)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryRolePermissions(ctx, key)
}

func (svc *Service) Get(ctx context.Context, p auth.Principal, schoolID, id string) (RolePermission, error) {
	key, err := svc.schoolKey(ctx, p, schoolID, auth.Read)
	if err != nil {
		return RolePermission{}, err
	}
	return svc.repo.GetRolePermission(ctx, key, id)
}

func (svc *Service) Update(ctx context.Context, p auth.Principal, schoolID, id string, urp UpdateRolePermission) (RolePermission, error) {
	key, err := svc.schoolKey(ctx, p, schoolID, auth.Write)
	if err != nil {
		return RolePermission{}, err
	}
	rp, err := svc.repo.GetRolePermission(ctx, key, id)
	if err != nil {
		return RolePermission{}, err
	}
	if err = checkManageable(p, rp.Role); err != nil {
		return RolePermission{}, err
	}
	if err = validateGrants(urp.Grants); err != nil {
		return RolePermission{}, err
	}
	rp.Grants = datatypes.NewJSONType(urp.Grants)
	rp.UpdatedBy = p.UserID
	return svc.repo.UpdateRolePermission(ctx, rp)
}

// Delete removes a set; the role falls back to the system-wide set, then to the built-in grants.
func (svc *Service) Delete(ctx context.Context, p auth.Principal, schoolID, id string) error {
	key, err := svc.schoolKey(ctx, p, schoolID, auth.Write)
	if err != nil {
		return err
	}
	rp, err := svc.repo.GetRolePermission(ctx, key, id)
	if err != nil {
		return err
	}
	if err = checkManageable(p, rp.Role); err != nil {
		return err
	}
	return svc.repo.DeleteRolePermission(ctx, key, id)
}

// Effective returns the grants a role currently holds in the caller's school.
func (svc *Service) Effective(ctx context.Context, p auth.Principal, schoolID string, role auth.Role) (auth.Grants, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModulePermissions, auth.Read)
	if err != nil {
		return nil, err
	}
	return svc.authz.Grants(ctx, role, scope.SchoolID())
}

// PermissionSource feeds stored permission sets to the auth.Authorizer.
type PermissionSource struct {
	repo Repository
}

func NewPermissionSource(repo Repository) *PermissionSource {
	return &PermissionSource{repo: repo}
}

// EffectiveGrants prefers the school's own set over the system-wide one.
func (ps *PermissionSource) EffectiveGrants(ctx context.Context, role auth.Role, schoolID string) (auth.Grants, bool, error) {
	keys := []string{SystemWide}
	if schoolID != "" {
		keys = []string{schoolID, SystemWide}
	}
	for _, key := range keys {
		rp, err := ps.repo.FindRolePermission(ctx, role, key)
		if err != nil {
			if errors.Cause(err) == core.ErrNotFound {
				continue
			}
			return nil, false, errors.Wrap(err, "finding role permission")
		}
		return rp.Grants.Data(), true, nil
	}
	return nil, false, nil
}
