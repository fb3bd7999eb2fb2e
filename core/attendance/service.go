package attendance

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/academic"
	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/user"
)

type (
	Repository interface {
		CreateAttendance(ctx context.Context, scope auth.Scope, a Attendance) (Attendance, error)
		// QueryAttendance applies AND operation on available QueryFilter fields, ordered by date.
		QueryAttendance(ctx context.Context, scope auth.Scope, filter QueryFilter) ([]Attendance, error)
		GetAttendance(ctx context.Context, scope auth.Scope, id string) (Attendance, error)
		UpdateAttendance(ctx context.Context, scope auth.Scope, a Attendance) (Attendance, error)
	}

	SectionGetter interface {
		GetSection(ctx context.Context, scope auth.Scope, id string) (academic.Section, error)
	}

	StudentDirectory interface {
		GetStudent(ctx context.Context, scope auth.Scope, id string) (student.Student, error)
		LinkedStudentIDs(ctx context.Context, scope auth.Scope, p auth.Principal) ([]string, error)
	}

	UserGetter interface {
		GetUser(ctx context.Context, scope auth.Scope, id string) (user.User, error)
	}

	Service struct {
		repo     Repository
		sections SectionGetter
		students StudentDirectory
		users    UserGetter
		authz    *auth.Authorizer
	}
)

func NewService(
	repo Repository,
	sections SectionGetter,
	students StudentDirectory,
	users UserGetter,
	authz *auth.Authorizer,
) *Service {
	return &Service{repo: repo, sections: sections, students: students, users: users, authz: authz}
}

func isPortalRole(r auth.Role) bool {
	return r == auth.RoleStudent || r == auth.RoleParent
}

// RecordSection takes the register of a section for a day.
// Every student must be enrolled in the section. Entries are stored one by one:
// the first entry already recorded for that day stops the run with a ConstraintError,
// and the entries stored before it are kept.
func (svc *Service) RecordSection(ctx context.Context, p auth.Principal, schoolID string, reg SectionRegister) ([]Attendance, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleAttendance, auth.Write)
	if err != nil {
		return nil, err
	}
	day, err := core.ParseDateField("date", reg.Date)
	if err != nil {
		return nil, err
	}
	if _, err = svc.sections.GetSection(ctx, scope, reg.SectionID); err != nil {
		return nil, err
	}

	for i, e := range reg.Entries {
		field := fmt.Sprintf("entries[%d].student_id", i)
		std, err := svc.students.GetStudent(ctx, scope, e.StudentID)
		if err != nil {
			if errors.Cause(err) == core.ErrNotFound {
				return nil, core.NewValidationError(nil, core.FieldError{Field: field, Error: "unknown student"})
			}
			return nil, err
		}
		if std.SectionID != reg.SectionID {
			return nil, core.NewValidationError(nil, core.FieldError{Field: field, Error: "student is not in this section"})
		}
	}

	records := make([]Attendance, 0, len(reg.Entries))
	for _, e := range reg.Entries {
		att, err := svc.repo.CreateAttendance(ctx, scope, Attendance{
			Date:       day,
			PersonID:   e.StudentID,
			PersonType: PersonStudent,
			Status:     e.Status,
			SectionID:  null.StringFrom(reg.SectionID),
			MarkedBy:   p.UserID,
			Remarks:    e.Remarks,
		})
		if err != nil {
			return records, err
		}
		records = append(records, att)
	}
	return records, nil
}

// Mark records the attendance of a single student or staff member.
func (svc *Service) Mark(ctx context.Context, p auth.Principal, schoolID string, na NewAttendance) (Attendance, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleAttendance, auth.Write)
	if err != nil {
		return Attendance{}, err
	}
	day, err := core.ParseDateField("date", na.Date)
	if err != nil {
		return Attendance{}, err
	}
	att := Attendance{
		Date:       day,
		PersonID:   na.PersonID,
		PersonType: na.PersonType,
		Status:     na.Status,
		MarkedBy:   p.UserID,
		Remarks:    na.Remarks,
	}

	switch na.PersonType {
	case PersonStudent:
		std, err := svc.students.GetStudent(ctx, scope, na.PersonID)
		if err != nil {
			return Attendance{}, errors.Wrap(err, "getting student")
		}
		att.SectionID = null.StringFrom(std.SectionID)
	case PersonStaff:
		usr, err := svc.users.GetUser(ctx, scope, na.PersonID)
		if err != nil {
			return Attendance{}, errors.Wrap(err, "getting staff member")
		}
		if isPortalRole(usr.Role) {
			return Attendance{}, core.NewValidationError(nil, core.FieldError{Field: "person_id", Error: "user is not a staff member"})
		}
	default:
		return Attendance{}, core.NewValidationError(nil, core.FieldError{Field: "person_type", Error: "unknown person type"})
	}
	return svc.repo.CreateAttendance(ctx, scope, att)
}

func (svc *Service) Update(ctx context.Context, p auth.Principal, schoolID, id string, ua UpdateAttendance) (Attendance, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleAttendance, auth.Write)
	if err != nil {
		return Attendance{}, err
	}
	att, err := svc.repo.GetAttendance(ctx, scope, id)
	if err != nil {
		return Attendance{}, err
	}
	att.Status = ua.Status
	att.MarkedBy = p.UserID
	if ua.Remarks != nil {
		att.Remarks = core.CleanString(*ua.Remarks)
	}
	return svc.repo.UpdateAttendance(ctx, scope, att)
}

// Query lists attendance records. Portal accounts only see their linked students.
func (svc *Service) Query(ctx context.Context, p auth.Principal, schoolID string, filter QueryFilter) ([]Attendance, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleAttendance, auth.Read)
	if err != nil {
		return nil, err
	}
	if err = filter.Clean(); err != nil {
		return nil, err
	}
	if isPortalRole(p.Role) {
		ids, err := svc.students.LinkedStudentIDs(ctx, scope, p)
		if err != nil {
			return nil, errors.Wrap(err, "getting linked students")
		}
		if filter.PersonID != "" && !contains(ids, filter.PersonID) {
			return []Attendance{}, nil
		}
		filter.personIDs = ids
		filter.restricted = true
	}
	return svc.repo.QueryAttendance(ctx, scope, filter)
}

// Summary counts the attendance of a person between two dates (inclusive, both optional).
func (svc *Service) Summary(ctx context.Context, p auth.Principal, schoolID, personID, from, to string) (Summary, error) {
	filter := QueryFilter{PersonID: personID, From: from, To: to}
	records, err := svc.Query(ctx, p, schoolID, filter)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(core.CleanString(personID), records), nil
}

// Summarize counts statuses; late arrivals count as attended.
func Summarize(personID string, records []Attendance) Summary {
	sum := Summary{PersonID: personID, Days: len(records)}
	for _, r := range records {
		switch r.Status {
		case StatusPresent:
			sum.Present++
		case StatusAbsent:
			sum.Absent++
		case StatusLate:
			sum.Late++
		case StatusExcused:
			sum.Excused++
		}
	}
	if sum.Days > 0 {
		sum.Rate = float64(sum.Present+sum.Late) / float64(sum.Days) * 100
	}
	return sum
}

func contains(ids []string, id string) bool {
	for _, i := range ids {
		if i == id {
			return true
		}
	}
	return false
}
