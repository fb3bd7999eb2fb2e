package core

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) datatypes.Date {
	y, m, d := t.Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (datatypes.Date, error) {
	t, err := time.Parse(DateLayout, CleanString(s))
	if err != nil {
		return datatypes.Date{}, errors.Wrapf(err, "parsing date %q", s)
	}
	return Day(t), nil
}

// ParseDateField is ParseDate reporting failures as a ValidationError on `field`.
func ParseDateField(field, s string) (datatypes.Date, error) {
	d, err := ParseDate(s)
	if err != nil {
		return d, NewValidationError(nil, FieldError{Field: field, Error: "date must be formatted as YYYY-MM-DD"})
	}
	return d, nil
}

// DateRange is an inclusive range of calendar days; zero bounds are open.
type DateRange struct {
	From datatypes.Date
	To   datatypes.Date
}

// ParseDateRange parses optional `from` and `to` query values.
func ParseDateRange(from, to string) (DateRange, error) {
	var (
		dr  DateRange
		err error
	)
	if CleanString(from) != "" {
		if dr.From, err = ParseDateField("from", from); err != nil {
			return dr, err
		}
	}
	if CleanString(to) != "" {
		if dr.To, err = ParseDateField("to", to); err != nil {
			return dr, err
		}
	}
	if dr.HasFrom() && dr.HasTo() && time.Time(dr.To).Before(time.Time(dr.From)) {
		return dr, NewValidationError(nil, FieldError{Field: "to", Error: "must not be before from"})
	}
	return dr, nil
}

func (dr DateRange) HasFrom() bool { return !time.Time(dr.From).IsZero() }
func (dr DateRange) HasTo() bool   { return !time.Time(dr.To).IsZero() }
