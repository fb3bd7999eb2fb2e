package gormdb

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/finance"
)

type financeRepository struct {
	base
}

var _ finance.Repository = (*financeRepository)(nil) // interface compliance check

func NewFinanceRepository(db *gorm.DB, observer ConstraintObserver) *financeRepository {
	return &financeRepository{base{db: db, observer: observer}}
}

func (repo financeRepository) CreatePayment(ctx context.Context, scope auth.Scope, pmt finance.FeePayment) (finance.FeePayment, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return finance.FeePayment{}, err
	}
	pmt.ID, pmt.SchoolID = newID(), scope.SchoolID()
	if err = repo.insert(tx, &pmt, "fee payment", "receipt_no"); err != nil {
		return finance.FeePayment{}, err
	}
	return pmt, nil
}

func (repo financeRepository) QueryPayments(ctx context.Context, scope auth.Scope, filter finance.QueryFilter) ([]finance.FeePayment, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return nil, err
	}
	dates := filter.Dates()
	if dates.HasFrom() {
		tx = tx.Where("paid_at >= ?", time.Time(dates.From))
	}
	if dates.HasTo() {
		// inclusive: up to the end of the day
		tx = tx.Where("paid_at < ?", time.Time(dates.To).AddDate(0, 0, 1))
	}
	if filter.StudentID != "" {
		tx = tx.Where("student_id = ?", filter.StudentID)
	}
	if filter.Status != "" {
		tx = tx.Where("status = ?", filter.Status)
	}
	if filter.Method != "" {
		tx = tx.Where("method = ?", filter.Method)
	}

	var payments []finance.FeePayment
	if err = tx.Order("paid_at DESC, receipt_no DESC").Find(&payments).Error; err != nil {
		return nil, repo.translate(err, "querying fee payments", "fee payment")
	}
	return payments, nil
}

func (repo financeRepository) GetPayment(ctx context.Context, scope auth.Scope, id string) (finance.FeePayment, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return finance.FeePayment{}, err
	}
	var pmt finance.FeePayment
	if err = repo.first(tx, &pmt, id, "fee payment"); err != nil {
		return finance.FeePayment{}, err
	}
	return pmt, nil
}

func (repo financeRepository) UpdatePayment(ctx context.Context, scope auth.Scope, pmt finance.FeePayment) (finance.FeePayment, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return finance.FeePayment{}, err
	}
	pmt.SchoolID = scope.SchoolID()
	if err = repo.update(tx, &pmt, "fee payment", "receipt_no"); err != nil {
		return finance.FeePayment{}, err
	}
	return repo.GetPayment(ctx, scope, pmt.ID)
}
