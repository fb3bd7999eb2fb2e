package gormdb

import (
	"context"

	"gorm.io/gorm"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/student"
)

type studentRepository struct {
	base
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *gorm.DB, observer ConstraintObserver) *studentRepository {
	return &studentRepository{base{db: db, observer: observer}}
}

func (repo studentRepository) CreateStudent(ctx context.Context, scope auth.Scope, s student.Student) (student.Student, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return student.Student{}, err
	}
	s.ID, s.SchoolID = newID(), scope.SchoolID()
	if err = repo.insert(tx, &s, "student", "admission_no"); err != nil {
		return student.Student{}, err
	}
	return s, nil
}

func (repo studentRepository) QueryStudents(ctx context.Context, scope auth.Scope, filter student.QueryFilter, orderings ...core.DBOrdering) ([]student.Student, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return nil, err
	}
	filter.Clean()

	if filter.Search != "" {
		val := likePattern(filter.Search)
		tx = tx.Where("(LOWER(name) LIKE ? OR LOWER(admission_no) LIKE ?)", val, val)
	}
	if filter.ClassID != "" {
		tx = tx.Where("class_id = ?", filter.ClassID)
	}
	if filter.SectionID != "" {
		tx = tx.Where("section_id = ?", filter.SectionID)
	}
	if filter.GuardianID != "" {
		tx = tx.Where("guardian_id = ?", filter.GuardianID)
	}
	if filter.IsActive != nil {
		tx = tx.Where("is_active = ?", *filter.IsActive)
	}
	tx = order(tx, orderings, "name ASC", "name", "admission_no", "created_at")

	var students []student.Student
	if err = tx.Find(&students).Error; err != nil {
		return nil, repo.translate(err, "querying students", "student")
	}
	return students, nil
}

func (repo studentRepository) GetStudent(ctx context.Context, scope auth.Scope, id string) (student.Student, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return student.Student{}, err
	}
	var s student.Student
	if err = repo.first(tx, &s, id, "student"); err != nil {
		return student.Student{}, err
	}
	return s, nil
}

func (repo studentRepository) UpdateStudent(ctx context.Context, scope auth.Scope, s student.Student) (student.Student, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return student.Student{}, err
	}
	s.SchoolID = scope.SchoolID()
	if err = repo.update(tx, &s, "student", "admission_no"); err != nil {
		return student.Student{}, err
	}
	return repo.GetStudent(ctx, scope, s.ID)
}

func (repo studentRepository) DeleteStudent(ctx context.Context, scope auth.Scope, id string) error {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return err
	}
	return repo.delete(tx, &student.Student{}, id, "student")
}

func (repo studentRepository) LinkedStudents(ctx context.Context, scope auth.Scope, userID string) ([]student.Student, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return nil, err
	}
	var students []student.Student
	err = tx.Where("(user_id = ? OR guardian_id = ?)", userID, userID).Order("name ASC").Find(&students).Error
	if err != nil {
		return nil, repo.translate(err, "querying linked students", "student")
	}
	return students, nil
}

// StudentExists returns core.ErrNotFound when the student is absent from the scope.
func (repo studentRepository) StudentExists(ctx context.Context, scope auth.Scope, id string) error {
	_, err := repo.GetStudent(ctx, scope, id)
	return err
}

// LinkedStudentIDs returns the ids of the students a portal account is linked to.
func (repo studentRepository) LinkedStudentIDs(ctx context.Context, scope auth.Scope, p auth.Principal) ([]string, error) {
	students, err := repo.LinkedStudents(ctx, scope, p.UserID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(students))
	for _, s := range students {
		ids = append(ids, s.ID)
	}
	return ids, nil
}
