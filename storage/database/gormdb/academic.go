package gormdb

import (
	"context"

	"gorm.io/gorm"

	"github.com/trezcool/shule/core/academic"
	"github.com/trezcool/shule/core/auth"
)

type academicRepository struct {
	base
}

var _ academic.Repository = (*academicRepository)(nil) // interface compliance check

func NewAcademicRepository(db *gorm.DB, observer ConstraintObserver) *academicRepository {
	return &academicRepository{base{db: db, observer: observer}}
}

// Classes

func (repo academicRepository) CreateClass(ctx context.Context, scope auth.Scope, c academic.Class) (academic.Class, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return academic.Class{}, err
	}
	c.ID, c.SchoolID = newID(), scope.SchoolID()
	if err = repo.insert(tx, &c, "class", "name"); err != nil {
		return academic.Class{}, err
	}
	return c, nil
}

func (repo academicRepository) QueryClasses(ctx context.Context, scope auth.Scope) ([]academic.Class, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return nil, err
	}
	var classes []academic.Class
	if err = tx.Order("level ASC, name ASC").Find(&classes).Error; err != nil {
		return nil, repo.translate(err, "querying classes", "class")
	}
	return classes, nil
}

func (repo academicRepository) GetClass(ctx context.Context, scope auth.Scope, id string) (academic.Class, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return academic.Class{}, err
	}
	var c academic.Class
	if err = repo.first(tx, &c, id, "class"); err != nil {
		return academic.Class{}, err
	}
	return c, nil
}

func (repo academicRepository) DeleteClass(ctx context.Context, scope auth.Scope, id string) error {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return err
	}
	return repo.delete(tx, &academic.Class{}, id, "class")
}

// Sections

func (repo academicRepository) CreateSection(ctx context.Context, scope auth.Scope, s academic.Section) (academic.Section, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return academic.Section{}, err
	}
	s.ID, s.SchoolID = newID(), scope.SchoolID()
	if err = repo.insert(tx, &s, "section", "name"); err != nil {
		return academic.Section{}, err
	}
	return s, nil
}

func (repo academicRepository) QuerySections(ctx context.Context, scope auth.Scope, classID string) ([]academic.Section, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return nil, err
	}
	if classID != "" {
		tx = tx.Where("class_id = ?", classID)
	}
	var sections []academic.Section
	if err = tx.Order("name ASC").Find(&sections).Error; err != nil {
		return nil, repo.translate(err, "querying sections", "section")
	}
	return sections, nil
}

func (repo academicRepository) GetSection(ctx context.Context, scope auth.Scope, id string) (academic.Section, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return academic.Section{}, err
	}
	var s academic.Section
	if err = repo.first(tx, &s, id, "section"); err != nil {
		return academic.Section{}, err
	}
	return s, nil
}

func (repo academicRepository) DeleteSection(ctx context.Context, scope auth.Scope, id string) error {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return err
	}
	return repo.delete(tx, &academic.Section{}, id, "section")
}

// Exams

func (repo academicRepository) CreateExam(ctx context.Context, scope auth.Scope, e academic.Exam) (academic.Exam, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return academic.Exam{}, err
	}
	e.ID, e.SchoolID = newID(), scope.SchoolID()
	if err = repo.insert(tx, &e, "exam"); err != nil {
		return academic.Exam{}, err
	}
	return e, nil
}

func (repo academicRepository) QueryExams(ctx context.Context, scope auth.Scope, classID string) ([]academic.Exam, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return nil, err
	}
	if classID != "" {
		tx = tx.Where("class_id = ?", classID)
	}
	var exams []academic.Exam
	if err = tx.Order("starts_on DESC, name ASC").Find(&exams).Error; err != nil {
		return nil, repo.translate(err, "querying exams", "exam")
	}
	return exams, nil
}

func (repo academicRepository) GetExam(ctx context.Context, scope auth.Scope, id string) (academic.Exam, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return academic.Exam{}, err
	}
	var e academic.Exam
	if err = repo.first(tx, &e, id, "exam"); err != nil {
		return academic.Exam{}, err
	}
	return e, nil
}

// Results

func (repo academicRepository) CreateResult(ctx context.Context, scope auth.Scope, r academic.Result) (academic.Result, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return academic.Result{}, err
	}
	r.ID, r.SchoolID = newID(), scope.SchoolID()
	if err = repo.insert(tx, &r, "result", "exam_id", "student_id"); err != nil {
		return academic.Result{}, err
	}
	return r, nil
}

func (repo academicRepository) QueryResults(ctx context.Context, scope auth.Scope, filter academic.ResultFilter) ([]academic.Result, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return nil, err
	}
	if filter.ExamID != "" {
		tx = tx.Where("exam_id = ?", filter.ExamID)
	}
	if filter.StudentID != "" {
		tx = tx.Where("student_id = ?", filter.StudentID)
	}
	if ids, restricted := filter.StudentIDs(); restricted {
		if len(ids) == 0 {
			return []academic.Result{}, nil
		}
		tx = tx.Where("student_id IN ?", ids)
	}
	var results []academic.Result
	if err = tx.Order("percentage DESC").Find(&results).Error; err != nil {
		return nil, repo.translate(err, "querying results", "result")
	}
	return results, nil
}

func (repo academicRepository) GetResult(ctx context.Context, scope auth.Scope, id string) (academic.Result, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return academic.Result{}, err
	}
	var r academic.Result
	if err = repo.first(tx, &r, id, "result"); err != nil {
		return academic.Result{}, err
	}
	return r, nil
}

func (repo academicRepository) UpdateResult(ctx context.Context, scope auth.Scope, r academic.Result) (academic.Result, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return academic.Result{}, err
	}
	r.SchoolID = scope.SchoolID()
	if err = repo.update(tx, &r, "result", "exam_id", "student_id"); err != nil {
		return academic.Result{}, err
	}
	return repo.GetResult(ctx, scope, r.ID)
}

// Timetable

func (repo academicRepository) CreateTimetableSlot(ctx context.Context, scope auth.Scope, ts academic.TimetableSlot) (academic.TimetableSlot, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return academic.TimetableSlot{}, err
	}
	ts.ID, ts.SchoolID = newID(), scope.SchoolID()
	if err = repo.insert(tx, &ts, "timetable slot", "weekday", "period"); err != nil {
		return academic.TimetableSlot{}, err
	}
	return ts, nil
}

func (repo academicRepository) QueryTimetableSlots(ctx context.Context, scope auth.Scope, filter academic.SlotFilter) ([]academic.TimetableSlot, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return nil, err
	}
	if filter.SectionID != "" {
		tx = tx.Where("section_id = ?", filter.SectionID)
	}
	if filter.TeacherID != "" {
		tx = tx.Where("teacher_id = ?", filter.TeacherID)
	}
	if filter.Weekday != 0 {
		tx = tx.Where("weekday = ?", filter.Weekday)
	}
	var slots []academic.TimetableSlot
	if err = tx.Order("weekday ASC, period ASC").Find(&slots).Error; err != nil {
		return nil, repo.translate(err, "querying timetable slots", "timetable slot")
	}
	return slots, nil
}

func (repo academicRepository) DeleteTimetableSlot(ctx context.Context, scope auth.Scope, id string) error {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return err
	}
	return repo.delete(tx, &academic.TimetableSlot{}, id, "timetable slot")
}
