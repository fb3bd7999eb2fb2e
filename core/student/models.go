package student

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"gorm.io/datatypes"

	"github.com/trezcool/shule/core"
)

// Student is enrolled in a section of a class of their school.
type Student struct {
	ID          string          `json:"id" gorm:"primaryKey;size:36"`
	SchoolID    string          `json:"school_id" gorm:"size:36;not null;uniqueIndex:idx_students_admission_no"`
	AdmissionNo string          `json:"admission_no" gorm:"size:50;not null;uniqueIndex:idx_students_admission_no"`
	Name        string          `json:"name" gorm:"size:150;not null"`
	ClassID     string          `json:"class_id" gorm:"size:36;not null;index"`
	SectionID   string          `json:"section_id" gorm:"size:36;not null;index"`
	GuardianID  null.String     `json:"guardian_id" gorm:"size:36;index"` // PARENT account
	UserID      null.String     `json:"user_id" gorm:"size:36;index"`     // STUDENT account
	DateOfBirth *datatypes.Date `json:"date_of_birth"`
	IsActive    bool            `json:"is_active" gorm:"not null"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type NewStudent struct {
	AdmissionNo string `json:"admission_no" validate:"required,max=50"`
	Name        string `json:"name" validate:"required,max=150"`
	ClassID     string `json:"class_id" validate:"required"`
	SectionID   string `json:"section_id" validate:"required"`
	GuardianID  string `json:"guardian_id"`
	UserID      string `json:"user_id"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.AdmissionNo = core.CleanString(ns.AdmissionNo)
	ns.Name = core.CleanString(ns.Name)
	ns.ClassID = core.CleanString(ns.ClassID)
	ns.SectionID = core.CleanString(ns.SectionID)
	ns.GuardianID = core.CleanString(ns.GuardianID)
	ns.UserID = core.CleanString(ns.UserID)
	return validate.Struct(ns)
}

// UpdateStudent moves a student or changes their links. Class and section move together.
type UpdateStudent struct {
	Name       string `json:"name" validate:"omitempty,max=150"`
	ClassID    string `json:"class_id" validate:"required_with=SectionID"`
	SectionID  string `json:"section_id" validate:"required_with=ClassID"`
	GuardianID string `json:"guardian_id"`
	IsActive   *bool  `json:"is_active"`
}

func (us *UpdateStudent) Validate(validate *validator.Validate) error {
	us.Name = core.CleanString(us.Name)
	us.ClassID = core.CleanString(us.ClassID)
	us.SectionID = core.CleanString(us.SectionID)
	us.GuardianID = core.CleanString(us.GuardianID)
	return validate.Struct(us)
}

type QueryFilter struct {
	Search     string `query:"search"` // name or admission number
	ClassID    string `query:"class_id"`
	SectionID  string `query:"section_id"`
	GuardianID string `query:"guardian_id"`
	IsActive   *bool  `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.ClassID = core.CleanString(qf.ClassID)
	qf.SectionID = core.CleanString(qf.SectionID)
	qf.GuardianID = core.CleanString(qf.GuardianID)
}
