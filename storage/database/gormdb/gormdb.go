// Package gormdb implements the domain repositories on top of gorm.
// Every tenant-owned query goes through scoped, which refuses a zero auth.Scope.
package gormdb

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/auth"
)

var errUnscoped = errors.New("store access without a school scope")

// ConstraintObserver is notified of every uniqueness violation raised by the store.
type ConstraintObserver func(collection string)

type base struct {
	db       *gorm.DB
	observer ConstraintObserver
}

// scoped returns a session restricted to the scope's school.
func (b base) scoped(ctx context.Context, scope auth.Scope) (*gorm.DB, error) {
	if scope.IsZero() {
		return nil, errUnscoped
	}
	return b.db.WithContext(ctx).Where("school_id = ?", scope.SchoolID()), nil
}

func newID() string { return uuid.NewString() }

func nullString(s string) null.String { return null.NewString(s, s != "") }

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

// conflictingFields picks the candidates named in the driver message, or all of them.
// sqlite lists the columns ("UNIQUE constraint failed: users.email"), postgres the index name.
func conflictingFields(err error, candidates []string) []string {
	msg := strings.ToLower(err.Error())
	var found []string
	for _, c := range candidates {
		if strings.Contains(msg, "."+c) || strings.Contains(msg, "_"+c+"\"") {
			found = append(found, c)
		}
	}
	if len(found) == 0 {
		return candidates
	}
	return found
}

// translate maps driver errors to the core taxonomy.
func (b base) translate(err error, msg, collection string, unique ...string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return core.ErrNotFound
	case isUniqueViolation(err):
		if b.observer != nil {
			b.observer(collection)
		}
		return core.NewConstraintError(collection, err, conflictingFields(err, unique)...)
	}
	return errors.Wrap(err, msg)
}

func (b base) insert(tx *gorm.DB, value interface{}, collection string, unique ...string) error {
	return b.translate(tx.Create(value).Error, "inserting "+collection, collection, unique...)
}

func (b base) first(tx *gorm.DB, dest interface{}, id, collection string) error {
	return b.translate(tx.Where("id = ?", id).First(dest).Error, "finding "+collection, collection)
}

// update writes every column of value except its identity. value must carry its primary key.
func (b base) update(tx *gorm.DB, value interface{}, collection string, unique ...string) error {
	res := tx.Select("*").Omit("id", "school_id", "created_at").Updates(value)
	if err := b.translate(res.Error, "updating "+collection, collection, unique...); err != nil {
		return err
	}
	if res.RowsAffected == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (b base) delete(tx *gorm.DB, model interface{}, id, collection string) error {
	res := tx.Where("id = ?", id).Delete(model)
	if err := b.translate(res.Error, "deleting "+collection, collection); err != nil {
		return err
	}
	if res.RowsAffected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// order applies allowed orderings, falling back to `fallback`.
func order(tx *gorm.DB, orderings []core.DBOrdering, fallback string, allowed ...string) *gorm.DB {
	orderings = core.FilterOrderings(orderings, allowed...)
	if len(orderings) == 0 {
		return tx.Order(fallback)
	}
	for _, ord := range orderings {
		tx = tx.Order(ord.String())
	}
	return tx
}

func likePattern(search string) string {
	return "%" + strings.ToLower(search) + "%"
}
