package school

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/auth"
)

type (
	Repository interface {
		CreateSchool(ctx context.Context, sch School) (School, error)
		// QuerySchools lists the tenant registry. It is the only unscoped listing in the store.
		QuerySchools(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]School, error)
		GetSchool(ctx context.Context, scope auth.Scope) (School, error)
		UpdateSchool(ctx context.Context, scope auth.Scope, sch School) (School, error)
	}

	Service struct {
		repo  Repository
		authz *auth.Authorizer
	}
)

func NewService(repo Repository, authz *auth.Authorizer) *Service {
	return &Service{repo: repo, authz: authz}
}

func (svc *Service) Create(ctx context.Context, p auth.Principal, ns NewSchool) (School, error) {
	if err := svc.authz.RequireSuperAdmin(p); err != nil {
		return School{}, err
	}
	sch := School{
		Name:     ns.Name,
		Code:     ns.Code,
		Email:    ns.Email,
		Phone:    ns.Phone,
		Address:  ns.Address,
		IsActive: true,
	}
	return svc.repo.CreateSchool(ctx, sch)
}

func (svc *Service) Query(ctx context.Context, p auth.Principal, filter QueryFilter, orderings ...core.DBOrdering) ([]School, error) {
	if err := svc.authz.RequireSuperAdmin(p); err != nil {
		return nil, err
	}
	return svc.repo.QuerySchools(ctx, filter, orderings...)
}

// Get returns the school identified by `schoolID`; members may leave it empty to get their own.
func (svc *Service) Get(ctx context.Context, p auth.Principal, schoolID string) (School, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleSchool, auth.Read)
	if err != nil {
		return School{}, err
	}
	return svc.repo.GetSchool(ctx, scope)
}

func (svc *Service) Update(ctx context.Context, p auth.Principal, schoolID string, us UpdateSchool) (School, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleSchool, auth.Write)
	if err != nil {
		return School{}, err
	}
	sch, err := svc.repo.GetSchool(ctx, scope)
	if err != nil {
		return School{}, err
	}
	if us.Name != "" {
		sch.Name = us.Name
	}
	if us.Email != "" {
		sch.Email = us.Email
	}
	if us.Phone != "" {
		sch.Phone = us.Phone
	}
	if us.Address != "" {
		sch.Address = us.Address
	}
	return svc.repo.UpdateSchool(ctx, scope, sch)
}

// SetActive (de)activates a tenant. Members of an inactive school cannot sign in.
func (svc *Service) SetActive(ctx context.Context, p auth.Principal, schoolID string, active bool) (School, error) {
	if err := svc.authz.RequireSuperAdmin(p); err != nil {
		return School{}, err
	}
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleSchool, auth.Write)
	if err != nil {
		return School{}, err
	}
	sch, err := svc.repo.GetSchool(ctx, scope)
	if err != nil {
		return School{}, errors.Wrap(err, "getting school")
	}
	sch.IsActive = active
	return svc.repo.UpdateSchool(ctx, scope, sch)
}
