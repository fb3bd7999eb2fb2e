package library

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/datatypes"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/auth"
)

var (
	errNoCopyLeft      = core.NewValidationError(nil, core.FieldError{Field: "book_id", Error: "no copy available"})
	errAlreadyReturned = core.NewValidationError(nil, core.FieldError{Field: "id", Error: "book already returned"})

	nowFunc = time.Now
)

type (
	Repository interface {
		CreateBook(ctx context.Context, scope auth.Scope, b Book) (Book, error)
		QueryBooks(ctx context.Context, scope auth.Scope, filter BookFilter) ([]Book, error)
		GetBook(ctx context.Context, scope auth.Scope, id string) (Book, error)
		// TakeCopy decrements Book.AvailableCopies in a single conditional update.
		// It returns false when no copy was available.
		TakeCopy(ctx context.Context, scope auth.Scope, bookID string) (bool, error)
		// PutBackCopy increments Book.AvailableCopies, never above Book.TotalCopies.
		PutBackCopy(ctx context.Context, scope auth.Scope, bookID string) error

		CreateIssue(ctx context.Context, scope auth.Scope, bi BookIssue) (BookIssue, error)
		QueryIssues(ctx context.Context, scope auth.Scope, filter IssueFilter) ([]BookIssue, error)
		GetIssue(ctx context.Context, scope auth.Scope, id string) (BookIssue, error)
		// MarkReturned sets BookIssue.ReturnedOn unless it is already set; it returns false in that case.
		MarkReturned(ctx context.Context, scope auth.Scope, id string, on datatypes.Date) (bool, error)
	}

	StudentDirectory interface {
		StudentExists(ctx context.Context, scope auth.Scope, id string) error
		LinkedStudentIDs(ctx context.Context, scope auth.Scope, p auth.Principal) ([]string, error)
	}

	Service struct {
		repo     Repository
		students StudentDirectory
		authz    *auth.Authorizer
	}
)

func NewService(repo Repository, students StudentDirectory, authz *auth.Authorizer) *Service {
	return &Service{repo: repo, students: students, authz: authz}
}

func (svc *Service) AddBook(ctx context.Context, p auth.Principal, schoolID string, nb NewBook) (Book, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleLibrary, auth.Write)
	if err != nil {
		return Book{}, err
	}
	return svc.repo.CreateBook(ctx, scope, Book{
		Title:           nb.Title,
		Author:          nb.Author,
		ISBN:            nb.ISBN,
		TotalCopies:     nb.Copies,
		AvailableCopies: nb.Copies,
	})
}

func (svc *Service) QueryBooks(ctx context.Context, p auth.Principal, schoolID string, filter BookFilter) ([]Book, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleLibrary, auth.Read)
	if err != nil {
		return nil, err
	}
	filter.Search = core.CleanString(filter.Search)
	return svc.repo.QueryBooks(ctx, scope, filter)
}

func (svc *Service) GetBook(ctx context.Context, p auth.Principal, schoolID, id string) (Book, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleLibrary, auth.Read)
	if err != nil {
		return Book{}, err
	}
	return svc.repo.GetBook(ctx, scope, id)
}

// Issue lends a copy of a book to a student: the available copies are decremented first,
// then the issue is recorded. The two writes are not atomic; when the second one fails
// the copy is put back.
func (svc *Service) Issue(ctx context.Context, p auth.Principal, schoolID string, ni NewIssue) (BookIssue, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleLibrary, auth.Write)
	if err != nil {
		return BookIssue{}, err
	}
	if _, err = svc.repo.GetBook(ctx, scope, ni.BookID); err != nil {
		return BookIssue{}, err
	}
	if err = svc.students.StudentExists(ctx, scope, ni.StudentID); err != nil {
		return BookIssue{}, errors.Wrap(err, "getting student")
	}

	today := core.Day(nowFunc())
	issue := BookIssue{
		BookID:    ni.BookID,
		StudentID: ni.StudentID,
		IssuedOn:  today,
		DueOn:     core.Day(time.Time(today).AddDate(0, 0, DefaultLoanDays)),
		IssuedBy:  p.UserID,
	}
	if ni.DueOn != "" {
		if issue.DueOn, err = core.ParseDateField("due_on", ni.DueOn); err != nil {
			return BookIssue{}, err
		}
		if time.Time(issue.DueOn).Before(time.Time(today)) {
			return BookIssue{}, core.NewValidationError(nil, core.FieldError{Field: "due_on", Error: "must not be in the past"})
		}
	}

	ok, err := svc.repo.TakeCopy(ctx, scope, ni.BookID)
	if err != nil {
		return BookIssue{}, errors.Wrap(err, "taking copy")
	}
	if !ok {
		return BookIssue{}, errNoCopyLeft
	}
	issue, err = svc.repo.CreateIssue(ctx, scope, issue)
	if err != nil {
		if pErr := svc.repo.PutBackCopy(ctx, scope, ni.BookID); pErr != nil {
			return BookIssue{}, errors.Wrapf(err, "putting back copy failed too (%v)", pErr)
		}
		return BookIssue{}, err
	}
	return issue, nil
}

// Return closes an issue and makes its copy available again.
func (svc *Service) Return(ctx context.Context, p auth.Principal, schoolID, issueID string) (BookIssue, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleLibrary, auth.Write)
	if err != nil {
		return BookIssue{}, err
	}
	issue, err := svc.repo.GetIssue(ctx, scope, issueID)
	if err != nil {
		return BookIssue{}, err
	}
	today := core.Day(nowFunc())
	ok, err := svc.repo.MarkReturned(ctx, scope, issue.ID, today)
	if err != nil {
		return BookIssue{}, errors.Wrap(err, "marking returned")
	}
	if !ok {
		return BookIssue{}, errAlreadyReturned
	}
	if err = svc.repo.PutBackCopy(ctx, scope, issue.BookID); err != nil {
		return BookIssue{}, errors.Wrap(err, "putting back copy")
	}
	issue.ReturnedOn = &today
	return issue, nil
}

// QueryIssues lists issues. Portal accounts only see the issues of their linked students.
func (svc *Service) QueryIssues(ctx context.Context, p auth.Principal, schoolID string, filter IssueFilter) ([]BookIssue, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleLibrary, auth.Read)
	if err != nil {
		return nil, err
	}
	filter.BookID = core.CleanString(filter.BookID)
	filter.StudentID = core.CleanString(filter.StudentID)
	if p.Role == auth.RoleStudent || p.Role == auth.RoleParent {
		ids, err := svc.students.LinkedStudentIDs(ctx, scope, p)
		if err != nil {
			return nil, errors.Wrap(err, "getting linked students")
		}
		filter.studentIDs = ids
		filter.restricted = true
	}
	return svc.repo.QueryIssues(ctx, scope, filter)
}
