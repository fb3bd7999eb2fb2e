package library

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"

	"github.com/trezcool/shule/core"
)

// DefaultLoanDays is the loan period applied when an issue has no due date.
const DefaultLoanDays = 14

type Book struct {
	ID              string    `json:"id" gorm:"primaryKey;size:36"`
	SchoolID        string    `json:"school_id" gorm:"size:36;not null;index"`
	Title           string    `json:"title" gorm:"size:255;not null"`
	Author          string    `json:"author" gorm:"size:255"`
	ISBN            string    `json:"isbn" gorm:"size:20;index"`
	TotalCopies     int       `json:"total_copies" gorm:"not null"`
	AvailableCopies int       `json:"available_copies" gorm:"not null"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BookIssue is a copy of a Book lent to a student.
type BookIssue struct {
	ID         string          `json:"id" gorm:"primaryKey;size:36"`
	SchoolID   string          `json:"school_id" gorm:"size:36;not null;index"`
	BookID     string          `json:"book_id" gorm:"size:36;not null;index"`
	StudentID  string          `json:"student_id" gorm:"size:36;not null;index"`
	IssuedOn   datatypes.Date  `json:"issued_on" gorm:"not null"`
	DueOn      datatypes.Date  `json:"due_on" gorm:"not null"`
	ReturnedOn *datatypes.Date `json:"returned_on"`
	IssuedBy   string          `json:"issued_by" gorm:"size:36"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (bi BookIssue) IsReturned() bool { return bi.ReturnedOn != nil }

// IsOverdue reports whether the copy is still out after its due date.
func (bi BookIssue) IsOverdue(today datatypes.Date) bool {
	return !bi.IsReturned() && time.Time(today).After(time.Time(bi.DueOn))
}

type NewBook struct {
	Title  string `json:"title" validate:"required,max=255"`
	Author string `json:"author" validate:"max=255"`
	ISBN   string `json:"isbn" validate:"omitempty,max=20"`
	Copies int    `json:"copies" validate:"required,min=1"`
}

func (nb *NewBook) Validate(validate *validator.Validate) error {
	nb.Title = core.CleanString(nb.Title)
	nb.Author = core.CleanString(nb.Author)
	nb.ISBN = core.CleanString(nb.ISBN)
	return validate.Struct(nb)
}

type NewIssue struct {
	BookID    string `json:"book_id" validate:"required"`
	StudentID string `json:"student_id" validate:"required"`
	DueOn     string `json:"due_on" validate:"omitempty,datetime=2006-01-02"`
}

func (ni *NewIssue) Validate(validate *validator.Validate) error {
	ni.BookID = core.CleanString(ni.BookID)
	ni.StudentID = core.CleanString(ni.StudentID)
	return validate.Struct(ni)
}

type BookFilter struct {
	Search string `query:"search"` // title, author or isbn
}

type IssueFilter struct {
	BookID    string `query:"book_id"`
	StudentID string `query:"student_id"`
	Open      bool   `query:"open"` // not returned yet

	// set by the service to restrict portal accounts to their linked students
	studentIDs []string
	restricted bool
}

func (f IssueFilter) StudentIDs() ([]string, bool) { return f.studentIDs, f.restricted }
