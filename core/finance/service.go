package finance

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/student"
)

type (
	Repository interface {
		CreatePayment(ctx context.Context, scope auth.Scope, pmt FeePayment) (FeePayment, error)
		// QueryPayments applies AND operation on available QueryFilter fields, latest first.
		QueryPayments(ctx context.Context, scope auth.Scope, filter QueryFilter) ([]FeePayment, error)
		GetPayment(ctx context.Context, scope auth.Scope, id string) (FeePayment, error)
		UpdatePayment(ctx context.Context, scope auth.Scope, pmt FeePayment) (FeePayment, error)
	}

	StudentDirectory interface {
		GetStudent(ctx context.Context, scope auth.Scope, id string) (student.Student, error)
		QueryStudents(ctx context.Context, scope auth.Scope, filter student.QueryFilter, orderings ...core.DBOrdering) ([]student.Student, error)
	}

	Service struct {
		repo     Repository
		students StudentDirectory
		authz    *auth.Authorizer
	}
)

var nowFunc = time.Now

func NewService(repo Repository, students StudentDirectory, authz *auth.Authorizer) *Service {
	return &Service{repo: repo, students: students, authz: authz}
}

// Record stores a fee payment of a student of the school.
// A receipt number is generated when none is given; a duplicate one is rejected by the store.
func (svc *Service) Record(ctx context.Context, p auth.Principal, schoolID string, np NewPayment) (FeePayment, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleFinance, auth.Write)
	if err != nil {
		return FeePayment{}, err
	}
	if _, err = svc.students.GetStudent(ctx, scope, np.StudentID); err != nil {
		return FeePayment{}, errors.Wrap(err, "getting student")
	}

	now := nowFunc()
	pmt := FeePayment{
		ReceiptNo: np.ReceiptNo,
		StudentID: np.StudentID,
		FeeType:   np.FeeType,
		Amount:    np.Amount,
		Method:    np.Method,
		PaidBy:    np.PaidBy,
		Status:    np.Status,
		Remarks:   np.Remarks,
		PaidAt:    now.UTC(),
	}
	if pmt.Status == "" {
		pmt.Status = StatusPaid
	}
	if np.PaidAt != "" {
		day, err := core.ParseDateField("paid_at", np.PaidAt)
		if err != nil {
			return FeePayment{}, err
		}
		pmt.PaidAt = time.Time(day)
	}
	if pmt.ReceiptNo == "" {
		pmt.ReceiptNo = NewReceiptNo(now)
	}
	return svc.repo.CreatePayment(ctx, scope, pmt)
}

func (svc *Service) Query(ctx context.Context, p auth.Principal, schoolID string, filter QueryFilter) ([]FeePayment, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleFinance, auth.Read)
	if err != nil {
		return nil, err
	}
	if err = filter.Clean(); err != nil {
		return nil, err
	}
	return svc.repo.QueryPayments(ctx, scope, filter)
}

func (svc *Service) Get(ctx context.Context, p auth.Principal, schoolID, id string) (FeePayment, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleFinance, auth.Read)
	if err != nil {
		return FeePayment{}, err
	}
	return svc.repo.GetPayment(ctx, scope, id)
}

func (svc *Service) UpdateStatus(ctx context.Context, p auth.Principal, schoolID, id string, us UpdateStatus) (FeePayment, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleFinance, auth.Write)
	if err != nil {
		return FeePayment{}, err
	}
	pmt, err := svc.repo.GetPayment(ctx, scope, id)
	if err != nil {
		return FeePayment{}, err
	}
	pmt.Status = us.Status
	if us.Remarks != nil {
		pmt.Remarks = core.CleanString(*us.Remarks)
	}
	return svc.repo.UpdatePayment(ctx, scope, pmt)
}

// ExportTransactions renders the payments matching `filter` as CSV.
func (svc *Service) ExportTransactions(ctx context.Context, p auth.Principal, schoolID string, filter QueryFilter) ([]byte, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleFinance, auth.Read)
	if err != nil {
		return nil, err
	}
	if err = filter.Clean(); err != nil {
		return nil, err
	}
	payments, err := svc.repo.QueryPayments(ctx, scope, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}
	students, err := svc.students.QueryStudents(ctx, scope, student.QueryFilter{})
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	byID := make(map[string]student.Student, len(students))
	for _, std := range students {
		byID[std.ID] = std
	}
	return TransactionsCSV(payments, byID)
}
