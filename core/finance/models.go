package finance

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/trezcool/shule/core"
)

type Method string

const (
	MethodCash         Method = "cash"
	MethodBankTransfer Method = "bank_transfer"
	MethodCard         Method = "card"
	MethodMobileMoney  Method = "mobile_money"
	MethodCheque       Method = "cheque"
)

type Status string

const (
	StatusPaid     Status = "paid"
	StatusPending  Status = "pending"
	StatusFailed   Status = "failed"
	StatusRefunded Status = "refunded"
)

// FeePayment is a fee collected from a student. Its receipt number is unique within the school.
type FeePayment struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	SchoolID  string    `json:"school_id" gorm:"size:36;not null;uniqueIndex:idx_fee_payments_receipt_no"`
	ReceiptNo string    `json:"receipt_no" gorm:"size:50;not null;uniqueIndex:idx_fee_payments_receipt_no"`
	StudentID string    `json:"student_id" gorm:"size:36;not null;index"`
	FeeType   string    `json:"fee_type" gorm:"size:50;not null"`
	Amount    int64     `json:"amount"` // minor units
	Method    Method    `json:"method" gorm:"size:20;not null"`
	PaidBy    string    `json:"paid_by" gorm:"size:100"`
	Status    Status    `json:"status" gorm:"size:20;not null"`
	Remarks   string    `json:"remarks"`
	PaidAt    time.Time `json:"paid_at" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FormatAmount renders minor units with two decimals, eg. 123450 -> "1234.50".
func FormatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

// NewReceiptNo returns a receipt number of the form RCPT-YYYYMMDD-XXXXXXXX.
func NewReceiptNo(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "RCPT-" + at.UTC().Format("20060102") + "-" + suffix
}

type NewPayment struct {
	ReceiptNo string `json:"receipt_no" validate:"max=50"`
	StudentID string `json:"student_id" validate:"required"`
	FeeType   string `json:"fee_type" validate:"required,max=50"`
	Amount    int64  `json:"amount" validate:"gt=0"`
	Method    Method `json:"method" validate:"required,oneof=cash bank_transfer card mobile_money cheque"`
	PaidBy    string `json:"paid_by" validate:"max=100"`
	Status    Status `json:"status" validate:"omitempty,oneof=paid pending failed refunded"`
	Remarks   string `json:"remarks"`
	PaidAt    string `json:"paid_at" validate:"omitempty,datetime=2006-01-02"`
}

func (np *NewPayment) Validate(validate *validator.Validate) error {
	np.ReceiptNo = core.CleanString(np.ReceiptNo)
	np.StudentID = core.CleanString(np.StudentID)
	np.FeeType = core.CleanString(np.FeeType)
	np.PaidBy = core.CleanString(np.PaidBy)
	np.Remarks = core.CleanString(np.Remarks)
	return validate.Struct(np)
}

type UpdateStatus struct {
	Status  Status  `json:"status" validate:"required,oneof=paid pending failed refunded"`
	Remarks *string `json:"remarks"`
}

func (us *UpdateStatus) Validate(validate *validator.Validate) error {
	return validate.Struct(us)
}

type QueryFilter struct {
	From      string `query:"from"`
	To        string `query:"to"`
	StudentID string `query:"student_id"`
	Status    Status `query:"status"`
	Method    Method `query:"method"`

	dates core.DateRange
}

func (f *QueryFilter) Clean() (err error) {
	f.StudentID = core.CleanString(f.StudentID)
	f.Status = Status(core.CleanString(string(f.Status), true))
	f.Method = Method(core.CleanString(string(f.Method), true))
	f.dates, err = core.ParseDateRange(f.From, f.To)
	return err
}

func (f QueryFilter) Dates() core.DateRange { return f.dates }
