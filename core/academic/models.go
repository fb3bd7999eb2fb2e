package academic

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"gorm.io/datatypes"

	"github.com/trezcool/shule/core"
)

type Class struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	SchoolID  string    `json:"school_id" gorm:"size:36;not null;uniqueIndex:idx_classes_school_name"`
	Name      string    `json:"name" gorm:"size:100;not null;uniqueIndex:idx_classes_school_name"`
	Level     int       `json:"level"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Section is a division of a Class. Its name is unique within (school, class).
type Section struct {
	ID        string      `json:"id" gorm:"primaryKey;size:36"`
	SchoolID  string      `json:"school_id" gorm:"size:36;not null;uniqueIndex:idx_sections_class_name"`
	ClassID   string      `json:"class_id" gorm:"size:36;not null;uniqueIndex:idx_sections_class_name"`
	Name      string      `json:"name" gorm:"size:50;not null;uniqueIndex:idx_sections_class_name"`
	TeacherID null.String `json:"teacher_id" gorm:"size:36"` // class teacher
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type Exam struct {
	ID        string         `json:"id" gorm:"primaryKey;size:36"`
	SchoolID  string         `json:"school_id" gorm:"size:36;not null;index"`
	ClassID   string         `json:"class_id" gorm:"size:36;not null;index"`
	Name      string         `json:"name" gorm:"size:100;not null"`
	Term      string         `json:"term" gorm:"size:50"`
	StartsOn  datatypes.Date `json:"starts_on"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type SubjectMark struct {
	Subject  string  `json:"subject" validate:"required,max=100"`
	Obtained float64 `json:"obtained" validate:"gte=0"`
	Max      float64 `json:"max" validate:"gt=0"`
}

// Result is a student's outcome in an exam. There is at most one per (exam, student).
type Result struct {
	ID            string                            `json:"id" gorm:"primaryKey;size:36"`
	SchoolID      string                            `json:"school_id" gorm:"size:36;not null;index"`
	ExamID        string                            `json:"exam_id" gorm:"size:36;not null;uniqueIndex:idx_results_exam_student"`
	StudentID     string                            `json:"student_id" gorm:"size:36;not null;uniqueIndex:idx_results_exam_student"`
	Marks         datatypes.JSONType[[]SubjectMark] `json:"marks"`
	TotalObtained float64                           `json:"total_obtained"`
	TotalMax      float64                           `json:"total_max"`
	Percentage    float64                           `json:"percentage"`
	Grade         string                            `json:"grade" gorm:"size:2"`
	Remarks       string                            `json:"remarks"`
	CreatedAt     time.Time                         `json:"created_at"`
	UpdatedAt     time.Time                         `json:"updated_at"`
}

// ExamSummary aggregates the results of an exam.
type ExamSummary struct {
	ExamID            string  `json:"exam_id"`
	Count             int     `json:"count"`
	AveragePercentage float64 `json:"average_percentage"`
	HighestPercentage float64 `json:"highest_percentage"`
	LowestPercentage  float64 `json:"lowest_percentage"`
	Passed            int     `json:"passed"`
	Failed            int     `json:"failed"`
}

// TimetableSlot is one period of a section's week. A (section, weekday, period) is taken once.
type TimetableSlot struct {
	ID        string      `json:"id" gorm:"primaryKey;size:36"`
	SchoolID  string      `json:"school_id" gorm:"size:36;not null;uniqueIndex:idx_timetable_slots_period"`
	SectionID string      `json:"section_id" gorm:"size:36;not null;uniqueIndex:idx_timetable_slots_period"`
	Weekday   int         `json:"weekday" gorm:"not null;uniqueIndex:idx_timetable_slots_period"` // 1 (Monday) - 7
	Period    int         `json:"period" gorm:"not null;uniqueIndex:idx_timetable_slots_period"`
	Subject   string      `json:"subject" gorm:"size:100;not null"`
	TeacherID null.String `json:"teacher_id" gorm:"size:36;index"`
	CreatedAt time.Time   `json:"created_at"`
}

type NewClass struct {
	Name  string `json:"name" validate:"required,max=100"`
	Level int    `json:"level" validate:"gte=0"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

type NewSection struct {
	ClassID   string `json:"class_id" validate:"required"`
	Name      string `json:"name" validate:"required,max=50"`
	TeacherID string `json:"teacher_id"`
}

func (ns *NewSection) Validate(validate *validator.Validate) error {
	ns.ClassID = core.CleanString(ns.ClassID)
	ns.Name = core.CleanString(ns.Name)
	ns.TeacherID = core.CleanString(ns.TeacherID)
	return validate.Struct(ns)
}

type NewExam struct {
	ClassID  string `json:"class_id" validate:"required"`
	Name     string `json:"name" validate:"required,max=100"`
	Term     string `json:"term" validate:"max=50"`
	StartsOn string `json:"starts_on" validate:"omitempty,datetime=2006-01-02"`
}

func (ne *NewExam) Validate(validate *validator.Validate) error {
	ne.ClassID = core.CleanString(ne.ClassID)
	ne.Name = core.CleanString(ne.Name)
	ne.Term = core.CleanString(ne.Term)
	return validate.Struct(ne)
}

type NewResult struct {
	ExamID    string        `json:"exam_id" validate:"required"`
	StudentID string        `json:"student_id" validate:"required"`
	Marks     []SubjectMark `json:"marks" validate:"required,min=1,dive"`
	Remarks   string        `json:"remarks"`
}

func (nr *NewResult) Validate(validate *validator.Validate) error {
	nr.ExamID = core.CleanString(nr.ExamID)
	nr.StudentID = core.CleanString(nr.StudentID)
	nr.Remarks = core.CleanString(nr.Remarks)
	for i := range nr.Marks {
		nr.Marks[i].Subject = core.CleanString(nr.Marks[i].Subject)
	}
	return validate.Struct(nr)
}

type UpdateResult struct {
	Marks   []SubjectMark `json:"marks" validate:"omitempty,min=1,dive"`
	Remarks *string       `json:"remarks"`
}

func (ur *UpdateResult) Validate(validate *validator.Validate) error {
	for i := range ur.Marks {
		ur.Marks[i].Subject = core.CleanString(ur.Marks[i].Subject)
	}
	return validate.Struct(ur)
}

type ResultFilter struct {
	ExamID    string `query:"exam_id"`
	StudentID string `query:"student_id"`

	// set by the service to restrict portal accounts to their linked students
	studentIDs []string
	restricted bool
}

func (rf ResultFilter) StudentIDs() ([]string, bool) { return rf.studentIDs, rf.restricted }

type NewTimetableSlot struct {
	SectionID string `json:"section_id" validate:"required"`
	Weekday   int    `json:"weekday" validate:"required,min=1,max=7"`
	Period    int    `json:"period" validate:"required,min=1"`
	Subject   string `json:"subject" validate:"required,max=100"`
	TeacherID string `json:"teacher_id"`
}

func (ns *NewTimetableSlot) Validate(validate *validator.Validate) error {
	ns.SectionID = core.CleanString(ns.SectionID)
	ns.Subject = core.CleanString(ns.Subject)
	ns.TeacherID = core.CleanString(ns.TeacherID)
	return validate.Struct(ns)
}

type SlotFilter struct {
	SectionID string `query:"section_id"`
	TeacherID string `query:"teacher_id"`
	Weekday   int    `query:"weekday"`
}
