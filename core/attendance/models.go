package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"gorm.io/datatypes"

	"github.com/trezcool/shule/core"
)

type PersonType string

const (
	PersonStudent PersonType = "student"
	PersonStaff   PersonType = "staff"
)

type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
	StatusExcused Status = "excused"
)

// Attendance is one person's presence on a day. There is at most one per (school, date, person).
type Attendance struct {
	ID         string         `json:"id" gorm:"primaryKey;size:36"`
	SchoolID   string         `json:"school_id" gorm:"size:36;not null;uniqueIndex:idx_attendances_day_person"`
	Date       datatypes.Date `json:"date" gorm:"not null;uniqueIndex:idx_attendances_day_person"`
	PersonID   string         `json:"person_id" gorm:"size:36;not null;uniqueIndex:idx_attendances_day_person"`
	PersonType PersonType     `json:"person_type" gorm:"size:10;not null"`
	Status     Status         `json:"status" gorm:"size:10;not null"`
	SectionID  null.String    `json:"section_id" gorm:"size:36;index"`
	MarkedBy   string         `json:"marked_by" gorm:"size:36"`
	Remarks    string         `json:"remarks"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Summary counts a person's attendance over a date range.
type Summary struct {
	PersonID string  `json:"person_id"`
	Days     int     `json:"days"`
	Present  int     `json:"present"`
	Absent   int     `json:"absent"`
	Late     int     `json:"late"`
	Excused  int     `json:"excused"`
	Rate     float64 `json:"rate"` // percentage of days present or late
}

type Entry struct {
	StudentID string `json:"student_id" validate:"required"`
	Status    Status `json:"status" validate:"required,oneof=present absent late excused"`
	Remarks   string `json:"remarks" validate:"max=255"`
}

// SectionRegister is the attendance of a whole section for one day.
type SectionRegister struct {
	Date      string  `json:"date" validate:"required,datetime=2006-01-02"`
	SectionID string  `json:"section_id" validate:"required"`
	Entries   []Entry `json:"entries" validate:"required,min=1,dive"`
}

func (sr *SectionRegister) Validate(validate *validator.Validate) error {
	sr.SectionID = core.CleanString(sr.SectionID)
	for i := range sr.Entries {
		sr.Entries[i].StudentID = core.CleanString(sr.Entries[i].StudentID)
		sr.Entries[i].Remarks = core.CleanString(sr.Entries[i].Remarks)
	}
	return validate.Struct(sr)
}

type NewAttendance struct {
	Date       string     `json:"date" validate:"required,datetime=2006-01-02"`
	PersonID   string     `json:"person_id" validate:"required"`
	PersonType PersonType `json:"person_type" validate:"required,oneof=student staff"`
	Status     Status     `json:"status" validate:"required,oneof=present absent late excused"`
	Remarks    string     `json:"remarks" validate:"max=255"`
}

func (na *NewAttendance) Validate(validate *validator.Validate) error {
	na.PersonID = core.CleanString(na.PersonID)
	na.Remarks = core.CleanString(na.Remarks)
	return validate.Struct(na)
}

type UpdateAttendance struct {
	Status  Status  `json:"status" validate:"required,oneof=present absent late excused"`
	Remarks *string `json:"remarks" validate:"omitempty,max=255"`
}

func (ua *UpdateAttendance) Validate(validate *validator.Validate) error {
	return validate.Struct(ua)
}

type QueryFilter struct {
	Date      string `query:"date"`
	From      string `query:"from"`
	To        string `query:"to"`
	SectionID string `query:"section_id"`
	PersonID  string `query:"person_id"`
	Status    Status `query:"status"`

	dates core.DateRange

	// set by the service to restrict portal accounts to their linked students
	personIDs  []string
	restricted bool
}

// Clean parses the date bounds; `date` wins over `from`/`to`.
func (f *QueryFilter) Clean() error {
	f.SectionID = core.CleanString(f.SectionID)
	f.PersonID = core.CleanString(f.PersonID)
	f.Status = Status(core.CleanString(string(f.Status), true))
	var err error
	if core.CleanString(f.Date) != "" {
		day, err := core.ParseDateField("date", f.Date)
		if err != nil {
			return err
		}
		f.dates = core.DateRange{From: day, To: day}
		return nil
	}
	f.dates, err = core.ParseDateRange(f.From, f.To)
	return err
}

func (f QueryFilter) Dates() core.DateRange { return f.dates }

func (f QueryFilter) PersonIDs() ([]string, bool) { return f.personIDs, f.restricted }
