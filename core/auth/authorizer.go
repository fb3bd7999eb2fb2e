package auth

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

// Principal is the authenticated identity making a request.
type Principal struct {
	UserID   string
	Role     Role
	SchoolID string // empty for SUPER_ADMIN
}

// System is the principal of the admin CLI and of fixtures. It holds SUPER_ADMIN rights.
var System = Principal{UserID: "system", Role: RoleSuperAdmin}

func (p Principal) IsAuthenticated() bool {
	return p.UserID != "" && p.Role.Valid() && (p.SchoolID != "" || !p.Role.IsTenantScoped())
}

func (p Principal) IsSuperAdmin() bool {
	return p.IsAuthenticated() && p.Role == RoleSuperAdmin
}

// Scope is proof that a principal was authorized on exactly one school.
// It can only be obtained from an Authorizer; store functions require one.
type Scope struct {
	schoolID string
}

func (s Scope) SchoolID() string { return s.schoolID }
func (s Scope) IsZero() bool     { return s.schoolID == "" }

// PermissionSource resolves configured permission sets.
// ok is false when neither a school-specific nor a system-wide set exists for the role.
type PermissionSource interface {
	EffectiveGrants(ctx context.Context, role Role, schoolID string) (grants Grants, ok bool, err error)
}

// SchoolRegistry tells whether a school is registered.
type SchoolRegistry interface {
	SchoolExists(ctx context.Context, id string) (bool, error)
}

// DecisionObserver is notified of every authorization decision.
type DecisionObserver func(module Module, access Access, allowed bool)

type Authorizer struct {
	perms    PermissionSource
	schools  SchoolRegistry
	observer DecisionObserver
}

// NewAuthorizer returns an Authorizer. perms may be nil, in which case DefaultGrants apply.
// schools resolves the targets named by SUPER_ADMIN.
func NewAuthorizer(perms PermissionSource, schools SchoolRegistry, observer DecisionObserver) *Authorizer {
	return &Authorizer{perms: perms, schools: schools, observer: observer}
}

var errTargetRequired = core.NewValidationError(
	nil, core.FieldError{Field: "school_id", Error: "a target school is required"},
)

// Authorize decides whether p may perform `acc` on module `m` of school `target`.
// For tenant members an empty target means their own school; SUPER_ADMIN must name a registered one.
func (a *Authorizer) Authorize(ctx context.Context, p Principal, target string, m Module, acc Access) (Scope, error) {
	scope, err := a.authorize(ctx, p, target, m, acc)
	if a.observer != nil {
		a.observer(m, acc, err == nil)
	}
	return scope, err
}

func (a *Authorizer) authorize(ctx context.Context, p Principal, target string, m Module, acc Access) (Scope, error) {
	if !p.IsAuthenticated() {
		return Scope{}, core.ErrUnauthenticated
	}
	target = core.CleanString(target)

	if p.Role == RoleSuperAdmin {
		if target == "" {
			return Scope{}, errTargetRequired
		}
		ok, err := a.schools.SchoolExists(ctx, target)
		if err != nil {
			return Scope{}, errors.Wrap(err, "resolving target school")
		}
		if !ok {
			return Scope{}, core.ErrNotFound
		}
		return Scope{schoolID: target}, nil
	}

	if target != "" && target != p.SchoolID {
		return Scope{}, core.ErrForbidden
	}
	grants, err := a.Grants(ctx, p.Role, p.SchoolID)
	if err != nil {
		return Scope{}, errors.Wrap(err, "resolving grants")
	}
	if !grants.Allows(m, acc) {
		return Scope{}, core.ErrForbidden
	}
	return Scope{schoolID: p.SchoolID}, nil
}

// Grants returns the effective permission set of a role within a school.
func (a *Authorizer) Grants(ctx context.Context, role Role, schoolID string) (Grants, error) {
	if role == RoleSuperAdmin || a.perms == nil {
		return DefaultGrants(role), nil
	}
	grants, ok, err := a.perms.EffectiveGrants(ctx, role, schoolID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return DefaultGrants(role), nil
	}
	return grants, nil
}

// RequireSuperAdmin guards operations on the tenant registry itself.
func (a *Authorizer) RequireSuperAdmin(p Principal) error {
	if !p.IsAuthenticated() {
		return core.ErrUnauthenticated
	}
	if p.Role != RoleSuperAdmin {
		return core.ErrForbidden
	}
	return nil
}

// RequireAuthenticated guards self-service operations.
func (a *Authorizer) RequireAuthenticated(p Principal) error {
	if !p.IsAuthenticated() {
		return core.ErrUnauthenticated
	}
	return nil
}
