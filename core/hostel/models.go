package hostel

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

type Hostel struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	SchoolID  string    `json:"school_id" gorm:"size:36;not null;uniqueIndex:idx_hostels_school_name"`
	Name      string    `json:"name" gorm:"size:100;not null;uniqueIndex:idx_hostels_school_name"`
	Warden    string    `json:"warden" gorm:"size:100"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Room is a room of a Hostel. Its number is unique within the hostel.
type Room struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	SchoolID  string    `json:"school_id" gorm:"size:36;not null;index"`
	HostelID  string    `json:"hostel_id" gorm:"size:36;not null;uniqueIndex:idx_rooms_hostel_number"`
	Number    string    `json:"number" gorm:"size:20;not null;uniqueIndex:idx_rooms_hostel_number"`
	Capacity  int       `json:"capacity" gorm:"not null"`
	Occupied  int       `json:"occupied" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r Room) Available() int { return r.Capacity - r.Occupied }

// Allocation assigns a bed of a Room to a student. A student holds at most one bed per school.
type Allocation struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	SchoolID    string    `json:"school_id" gorm:"size:36;not null;uniqueIndex:idx_allocations_student"`
	RoomID      string    `json:"room_id" gorm:"size:36;not null;index"`
	StudentID   string    `json:"student_id" gorm:"size:36;not null;uniqueIndex:idx_allocations_student"`
	AllocatedBy string    `json:"allocated_by" gorm:"size:36"`
	CreatedAt   time.Time `json:"created_at"`
}

type NewHostel struct {
	Name   string `json:"name" validate:"required,max=100"`
	Warden string `json:"warden" validate:"max=100"`
}

func (nh *NewHostel) Validate(validate *validator.Validate) error {
	nh.Name = core.CleanString(nh.Name)
	nh.Warden = core.CleanString(nh.Warden)
	return validate.Struct(nh)
}

type NewRoom struct {
	HostelID string `json:"hostel_id" validate:"required"`
	Number   string `json:"number" validate:"required,max=20"`
	Capacity int    `json:"capacity" validate:"required,min=1"`
}

func (nr *NewRoom) Validate(validate *validator.Validate) error {
	nr.HostelID = core.CleanString(nr.HostelID)
	nr.Number = core.CleanString(nr.Number)
	return validate.Struct(nr)
}

type NewAllocation struct {
	RoomID    string `json:"room_id" validate:"required"`
	StudentID string `json:"student_id" validate:"required"`
}

func (na *NewAllocation) Validate(validate *validator.Validate) error {
	na.RoomID = core.CleanString(na.RoomID)
	na.StudentID = core.CleanString(na.StudentID)
	return validate.Struct(na)
}
