package gormdb

import (
	"context"

	"gorm.io/gorm"

	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/auth"
)

type attendanceRepository struct {
	base
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *gorm.DB, observer ConstraintObserver) *attendanceRepository {
	return &attendanceRepository{base{db: db, observer: observer}}
}

func (repo attendanceRepository) CreateAttendance(ctx context.Context, scope auth.Scope, a attendance.Attendance) (attendance.Attendance, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return attendance.Attendance{}, err
	}
	a.ID, a.SchoolID = newID(), scope.SchoolID()
	if err = repo.insert(tx, &a, "attendance", "date", "person_id"); err != nil {
		return attendance.Attendance{}, err
	}
	return a, nil
}

func (repo attendanceRepository) QueryAttendance(ctx context.Context, scope auth.Scope, filter attendance.QueryFilter) ([]attendance.Attendance, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return nil, err
	}
	if dates := filter.Dates(); dates.HasFrom() {
		tx = tx.Where("date >= ?", dates.From)
	}
	if dates := filter.Dates(); dates.HasTo() {
		tx = tx.Where("date <= ?", dates.To)
	}
	if filter.SectionID != "" {
		tx = tx.Where("section_id = ?", filter.SectionID)
	}
	if filter.PersonID != "" {
		tx = tx.Where("person_id = ?", filter.PersonID)
	}
	if filter.Status != "" {
		tx = tx.Where("status = ?", filter.Status)
	}
	if ids, restricted := filter.PersonIDs(); restricted {
		if len(ids) == 0 {
			return []attendance.Attendance{}, nil
		}
		tx = tx.Where("person_id IN ?", ids)
	}

	var records []attendance.Attendance
	if err = tx.Order("date ASC, person_id ASC").Find(&records).Error; err != nil {
		return nil, repo.translate(err, "querying attendance", "attendance")
	}
	return records, nil
}

func (repo attendanceRepository) GetAttendance(ctx context.Context, scope auth.Scope, id string) (attendance.Attendance, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return attendance.Attendance{}, err
	}
	var a attendance.Attendance
	if err = repo.first(tx, &a, id, "attendance"); err != nil {
		return attendance.Attendance{}, err
	}
	return a, nil
}

func (repo attendanceRepository) UpdateAttendance(ctx context.Context, scope auth.Scope, a attendance.Attendance) (attendance.Attendance, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return attendance.Attendance{}, err
	}
	a.SchoolID = scope.SchoolID()
	if err = repo.update(tx, &a, "attendance", "date", "person_id"); err != nil {
		return attendance.Attendance{}, err
	}
	return repo.GetAttendance(ctx, scope, a.ID)
}
