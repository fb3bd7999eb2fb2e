package gormdb

import (
	"context"

	"gorm.io/gorm"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/school"
)

type schoolRepository struct {
	base
}

var (
	_ school.Repository   = (*schoolRepository)(nil) // interface compliance check
	_ auth.SchoolRegistry = (*schoolRepository)(nil)
)

func NewSchoolRepository(db *gorm.DB, observer ConstraintObserver) *schoolRepository {
	return &schoolRepository{base{db: db, observer: observer}}
}

func (repo schoolRepository) CreateSchool(ctx context.Context, sch school.School) (school.School, error) {
	sch.ID = newID()
	if err := repo.insert(repo.db.WithContext(ctx), &sch, "school", "name", "code"); err != nil {
		return school.School{}, err
	}
	return sch, nil
}

func (repo schoolRepository) QuerySchools(ctx context.Context, filter school.QueryFilter, orderings ...core.DBOrdering) ([]school.School, error) {
	filter.Clean()
	tx := repo.db.WithContext(ctx)
	if filter.Search != "" {
		val := likePattern(filter.Search)
		tx = tx.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ?", val, val)
	}
	if filter.IsActive != nil {
		tx = tx.Where("is_active = ?", *filter.IsActive)
	}
	tx = order(tx, orderings, "name ASC", "name", "code", "created_at")

	var schools []school.School
	if err := tx.Find(&schools).Error; err != nil {
		return nil, repo.translate(err, "querying schools", "school")
	}
	return schools, nil
}

func (repo schoolRepository) SchoolExists(ctx context.Context, id string) (bool, error) {
	var n int64
	if err := repo.db.WithContext(ctx).Model(&school.School{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, repo.translate(err, "checking school", "school")
	}
	return n > 0, nil
}

// GetSchool returns the school of the scope.
func (repo schoolRepository) GetSchool(ctx context.Context, scope auth.Scope) (school.School, error) {
	if scope.IsZero() {
		return school.School{}, errUnscoped
	}
	var sch school.School
	if err := repo.first(repo.db.WithContext(ctx), &sch, scope.SchoolID(), "school"); err != nil {
		return school.School{}, err
	}
	return sch, nil
}

func (repo schoolRepository) UpdateSchool(ctx context.Context, scope auth.Scope, sch school.School) (school.School, error) {
	if scope.IsZero() {
		return school.School{}, errUnscoped
	}
	sch.ID = scope.SchoolID()
	res := repo.db.WithContext(ctx).Select("*").Omit("id", "created_at").Updates(&sch)
	if err := repo.translate(res.Error, "updating school", "school", "name", "code"); err != nil {
		return school.School{}, err
	}
	if res.RowsAffected == 0 {
		return school.School{}, core.ErrNotFound
	}
	return repo.GetSchool(ctx, scope)
}
