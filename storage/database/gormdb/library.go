package gormdb

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/library"
)

type libraryRepository struct {
	base
}

var _ library.Repository = (*libraryRepository)(nil) // interface compliance check

func NewLibraryRepository(db *gorm.DB, observer ConstraintObserver) *libraryRepository {
	return &libraryRepository{base{db: db, observer: observer}}
}

func (repo libraryRepository) CreateBook(ctx context.Context, scope auth.Scope, b library.Book) (library.Book, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return library.Book{}, err
	}
	b.ID, b.SchoolID = newID(), scope.SchoolID()
	if err = repo.insert(tx, &b, "book"); err != nil {
		return library.Book{}, err
	}
	return b, nil
}

func (repo libraryRepository) QueryBooks(ctx context.Context, scope auth.Scope, filter library.BookFilter) ([]library.Book, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return nil, err
	}
	if filter.Search != "" {
		val := likePattern(filter.Search)
		tx = tx.Where("(LOWER(title) LIKE ? OR LOWER(author) LIKE ? OR LOWER(isbn) LIKE ?)", val, val, val)
	}
	var books []library.Book
	if err = tx.Order("title ASC").Find(&books).Error; err != nil {
		return nil, repo.translate(err, "querying books", "book")
	}
	return books, nil
}

func (repo libraryRepository) GetBook(ctx context.Context, scope auth.Scope, id string) (library.Book, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return library.Book{}, err
	}
	var b library.Book
	if err = repo.first(tx, &b, id, "book"); err != nil {
		return library.Book{}, err
	}
	return b, nil
}

func (repo libraryRepository) TakeCopy(ctx context.Context, scope auth.Scope, bookID string) (bool, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return false, err
	}
	res := tx.Model(&library.Book{}).
		Where("id = ? AND available_copies > 0", bookID).
		Update("available_copies", gorm.Expr("available_copies - 1"))
	if err = repo.translate(res.Error, "taking copy", "book"); err != nil {
		return false, err
	}
	return res.RowsAffected == 1, nil
}

func (repo libraryRepository) PutBackCopy(ctx context.Context, scope auth.Scope, bookID string) error {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return err
	}
	res := tx.Model(&library.Book{}).
		Where("id = ? AND available_copies < total_copies", bookID).
		Update("available_copies", gorm.Expr("available_copies + 1"))
	return repo.translate(res.Error, "putting back copy", "book")
}

func (repo libraryRepository) CreateIssue(ctx context.Context, scope auth.Scope, bi library.BookIssue) (library.BookIssue, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return library.BookIssue{}, err
	}
	bi.ID, bi.SchoolID = newID(), scope.SchoolID()
	if err = repo.insert(tx, &bi, "book issue"); err != nil {
		return library.BookIssue{}, err
	}
	return bi, nil
}

func (repo libraryRepository) QueryIssues(ctx context.Context, scope auth.Scope, filter library.IssueFilter) ([]library.BookIssue, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return nil, err
	}
	if filter.BookID != "" {
		tx = tx.Where("book_id = ?", filter.BookID)
	}
	if filter.StudentID != "" {
		tx = tx.Where("student_id = ?", filter.StudentID)
	}
	if filter.Open {
		tx = tx.Where("returned_on IS NULL")
	}
	if ids, restricted := filter.StudentIDs(); restricted {
		if len(ids) == 0 {
			return []library.BookIssue{}, nil
		}
		tx = tx.Where("student_id IN ?", ids)
	}
	var issues []library.BookIssue
	if err = tx.Order("issued_on DESC").Find(&issues).Error; err != nil {
		return nil, repo.translate(err, "querying book issues", "book issue")
	}
	return issues, nil
}

func (repo libraryRepository) GetIssue(ctx context.Context, scope auth.Scope, id string) (library.BookIssue, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return library.BookIssue{}, err
	}
	var bi library.BookIssue
	if err = repo.first(tx, &bi, id, "book issue"); err != nil {
		return library.BookIssue{}, err
	}
	return bi, nil
}

func (repo libraryRepository) MarkReturned(ctx context.Context, scope auth.Scope, id string, on datatypes.Date) (bool, error) {
	tx, err := repo.scoped(ctx, scope)
	if err != nil {
		return false, err
	}
	res := tx.Model(&library.BookIssue{}).
		Where("id = ? AND returned_on IS NULL", id).
		Update("returned_on", on)
	if err = repo.translate(res.Error, "marking book returned", "book issue"); err != nil {
		return false, err
	}
	return res.RowsAffected == 1, nil
}
