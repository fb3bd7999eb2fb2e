package core

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrUnauthenticated is returned when no principal backs the request.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden is returned when the principal's tenant or role does not allow the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned for absent records AND for records owned by another tenant.
	ErrNotFound = errors.New("not found")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// ConstraintError reports a uniqueness conflict raised by the store.
type ConstraintError struct {
	Collection string
	Fields     []string
	Err        error
}

func NewConstraintError(collection string, err error, fields ...string) error {
	return &ConstraintError{Collection: collection, Fields: fields, Err: err}
}

func (err ConstraintError) Error() string {
	if len(err.Fields) == 0 {
		return fmt.Sprintf("a %s with these values already exists", err.Collection)
	}
	return fmt.Sprintf("a %s with this %s already exists", err.Collection, strings.Join(err.Fields, ", "))
}

func (err ConstraintError) Unwrap() error { return err.Err }

func IsConstraintError(err error) bool {
	var cErr *ConstraintError
	return errors.As(err, &cErr)
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
