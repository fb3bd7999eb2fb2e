package gormdb

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/rbac"
)

type rbacRepository struct {
	base
}

var _ rbac.Repository = (*rbacRepository)(nil) // interface compliance check

func NewRBACRepository(db *gorm.DB, observer ConstraintObserver) *rbacRepository {
	return &rbacRepository{base{db: db, observer: observer}}
}

// keyed restricts a session to the permission sets of one school key.
func (repo rbacRepository) keyed(ctx context.Context, schoolKey string) (*gorm.DB, error) {
	if schoolKey == "" {
		return nil, errors.Wrap(errUnscoped, "empty school key")
	}
	return repo.db.WithContext(ctx).Where("school_key = ?", schoolKey), nil
}

func (repo rbacRepository) CreateRolePermission(ctx context.Context, rp rbac.RolePermission) (rbac.RolePermission, error) {
	tx, err := repo.keyed(ctx, rp.SchoolKey)
	if err != nil {
		return rbac.RolePermission{}, err
	}
	rp.ID = newID()
	if err = repo.insert(tx, &rp, "role permission", "role"); err != nil {
		return rbac.RolePermission{}, err
	}
	return rp, nil
}

func (repo rbacRepository) QueryRolePermissions(ctx context.Context, schoolKey string) ([]rbac.RolePermission, error) {
	tx, err := repo.keyed(ctx, schoolKey)
	if err != nil {
		return nil, err
	}
	var sets []rbac.RolePermission
	if err = tx.Order("role ASC").Find(&sets).Error; err != nil {
		return nil, repo.translate(err, "querying role permissions", "role permission")
	}
	return sets, nil
}

func (repo rbacRepository) GetRolePermission(ctx context.Context, schoolKey, id string) (rbac.RolePermission, error) {
	tx, err := repo.keyed(ctx, schoolKey)
	if err != nil {
		return rbac.RolePermission{}, err
	}
	var rp rbac.RolePermission
	if err = repo.first(tx, &rp, id, "role permission"); err != nil {
		return rbac.RolePermission{}, err
	}
	return rp, nil
}

func (repo rbacRepository) FindRolePermission(ctx context.Context, role auth.Role, schoolKey string) (rbac.RolePermission, error) {
	tx, err := repo.keyed(ctx, schoolKey)
	if err != nil {
		return rbac.RolePermission{}, err
	}
	var rp rbac.RolePermission
	if err = tx.Where("role = ?", role).First(&rp).Error; err != nil {
		return rbac.RolePermission{}, repo.translate(err, "finding role permission", "role permission")
	}
	return rp, nil
}

func (repo rbacRepository) UpdateRolePermission(ctx context.Context, rp rbac.RolePermission) (rbac.RolePermission, error) {
	tx, err := repo.keyed(ctx, rp.SchoolKey)
	if err != nil {
		return rbac.RolePermission{}, err
	}
	res := tx.Model(&rbac.RolePermission{}).Where("id = ?", rp.ID).Updates(map[string]interface{}{
		"grants":     rp.Grants,
		"updated_by": rp.UpdatedBy,
	})
	if err = repo.translate(res.Error, "updating role permission", "role permission"); err != nil {
		return rbac.RolePermission{}, err
	}
	if res.RowsAffected == 0 {
		return rbac.RolePermission{}, core.ErrNotFound
	}
	return repo.GetRolePermission(ctx, rp.SchoolKey, rp.ID)
}

func (repo rbacRepository) DeleteRolePermission(ctx context.Context, schoolKey, id string) error {
	tx, err := repo.keyed(ctx, schoolKey)
	if err != nil {
		return err
	}
	return repo.delete(tx, &rbac.RolePermission{}, id, "role permission")
}
