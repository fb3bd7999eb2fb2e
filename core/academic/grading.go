package academic

import (
	"fmt"

	"github.com/trezcool/shule/core"
)

// PassPercentage is the lowest passing percentage.
const PassPercentage = 40.0

var gradeBands = []struct {
	min   float64
	grade string
}{
	{90, "A+"},
	{80, "A"},
	{70, "B"},
	{60, "C"},
	{50, "D"},
	{PassPercentage, "E"},
}

// GradeFor maps a percentage to its letter grade.
func GradeFor(pct float64) string {
	for _, b := range gradeBands {
		if pct >= b.min {
			return b.grade
		}
	}
	return "F"
}

// ComputeTotals sums the marks of a result. Every mark must satisfy 0 <= obtained <= max, max > 0.
func ComputeTotals(marks []SubjectMark) (obtained, max, pct float64, err error) {
	if len(marks) == 0 {
		return 0, 0, 0, core.NewValidationError(nil, core.FieldError{Field: "marks", Error: "at least one mark is required"})
	}
	seen := make(map[string]bool, len(marks))
	for i, m := range marks {
		fld := fmt.Sprintf("marks[%d]", i)
		switch {
		case m.Max <= 0:
			return 0, 0, 0, core.NewValidationError(nil, core.FieldError{Field: fld, Error: "max must be greater than 0"})
		case m.Obtained < 0 || m.Obtained > m.Max:
			return 0, 0, 0, core.NewValidationError(nil, core.FieldError{Field: fld, Error: "obtained must be between 0 and max"})
		case seen[m.Subject]:
			return 0, 0, 0, core.NewValidationError(nil, core.FieldError{Field: fld, Error: "duplicate subject"})
		}
		seen[m.Subject] = true
		obtained += m.Obtained
		max += m.Max
	}
	return obtained, max, obtained / max * 100, nil
}

// applyMarks recomputes the derived fields of r.
func (r *Result) applyMarks(marks []SubjectMark) error {
	obtained, max, pct, err := ComputeTotals(marks)
	if err != nil {
		return err
	}
	r.Marks = newMarks(marks)
	r.TotalObtained = obtained
	r.TotalMax = max
	r.Percentage = pct
	r.Grade = GradeFor(pct)
	return nil
}

// Summarize aggregates the results of one exam.
func Summarize(examID string, results []Result) ExamSummary {
	sum := ExamSummary{ExamID: examID, Count: len(results)}
	if len(results) == 0 {
		return sum
	}
	var total float64
	sum.LowestPercentage = results[0].Percentage
	for _, r := range results {
		total += r.Percentage
		if r.Percentage > sum.HighestPercentage {
			sum.HighestPercentage = r.Percentage
		}
		if r.Percentage < sum.LowestPercentage {
			sum.LowestPercentage = r.Percentage
		}
		if r.Percentage >= PassPercentage {
			sum.Passed++
		} else {
			sum.Failed++
		}
	}
	sum.AveragePercentage = total / float64(len(results))
	return sum
}
