package academic

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"gorm.io/datatypes"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/user"
)

type (
	Repository interface {
		CreateClass(ctx context.Context, scope auth.Scope, c Class) (Class, error)
		QueryClasses(ctx context.Context, scope auth.Scope) ([]Class, error)
		GetClass(ctx context.Context, scope auth.Scope, id string) (Class, error)
		DeleteClass(ctx context.Context, scope auth.Scope, id string) error

		CreateSection(ctx context.Context, scope auth.Scope, s Section) (Section, error)
		QuerySections(ctx context.Context, scope auth.Scope, classID string) ([]Section, error)
		GetSection(ctx context.Context, scope auth.Scope, id string) (Section, error)
		DeleteSection(ctx context.Context, scope auth.Scope, id string) error

		CreateExam(ctx context.Context, scope auth.Scope, e Exam) (Exam, error)
		QueryExams(ctx context.Context, scope auth.Scope, classID string) ([]Exam, error)
		GetExam(ctx context.Context, scope auth.Scope, id string) (Exam, error)

		CreateResult(ctx context.Context, scope auth.Scope, r Result) (Result, error)
		QueryResults(ctx context.Context, scope auth.Scope, filter ResultFilter) ([]Result, error)
		GetResult(ctx context.Context, scope auth.Scope, id string) (Result, error)
		UpdateResult(ctx context.Context, scope auth.Scope, r Result) (Result, error)

		CreateTimetableSlot(ctx context.Context, scope auth.Scope, ts TimetableSlot) (TimetableSlot, error)
		QueryTimetableSlots(ctx context.Context, scope auth.Scope, filter SlotFilter) ([]TimetableSlot, error)
		DeleteTimetableSlot(ctx context.Context, scope auth.Scope, id string) error
	}

	// StudentDirectory resolves students within a scope.
	StudentDirectory interface {
		// StudentExists returns core.ErrNotFound when the student is absent from the scope.
		StudentExists(ctx context.Context, scope auth.Scope, id string) error
		// LinkedStudentIDs returns the students a STUDENT or PARENT account is linked to.
		LinkedStudentIDs(ctx context.Context, scope auth.Scope, p auth.Principal) ([]string, error)
	}

	// UserGetter resolves staff members within a scope.
	UserGetter interface {
		GetUser(ctx context.Context, scope auth.Scope, id string) (user.User, error)
	}

	Service struct {
		repo     Repository
		students StudentDirectory
		users    UserGetter
		authz    *auth.Authorizer
	}
)

func NewService(repo Repository, students StudentDirectory, users UserGetter, authz *auth.Authorizer) *Service {
	return &Service{repo: repo, students: students, users: users, authz: authz}
}

func newMarks(marks []SubjectMark) datatypes.JSONType[[]SubjectMark] {
	return datatypes.NewJSONType(marks)
}

func isPortalRole(r auth.Role) bool {
	return r == auth.RoleStudent || r == auth.RoleParent
}

// checkTeacher makes sure `id` is a teacher of the scoped school.
func (svc *Service) checkTeacher(ctx context.Context, scope auth.Scope, field, id string) (null.String, error) {
	if id == "" {
		return null.String{}, nil
	}
	usr, err := svc.users.GetUser(ctx, scope, id)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return null.String{}, core.NewValidationError(nil, core.FieldError{Field: field, Error: "unknown teacher"})
		}
		return null.String{}, err
	}
	if usr.Role != auth.RoleTeacher {
		return null.String{}, core.NewValidationError(nil, core.FieldError{Field: field, Error: "user is not a teacher"})
	}
	return null.StringFrom(usr.ID), nil
}

// Classes

func (svc *Service) CreateClass(ctx context.Context, p auth.Principal, schoolID string, nc NewClass) (Class, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleAcademic, auth.Write)
	if err != nil {
		return Class{}, err
	}
	return svc.repo.CreateClass(ctx, scope, Class{Name: nc.Name, Level: nc.Level})
}

func (svc *Service) QueryClasses(ctx context.Context, p auth.Principal, schoolID string) ([]Class, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleAcademic, auth.Read)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryClasses(ctx, scope)
}

func (svc *Service) GetClass(ctx context.Context, p auth.Principal, schoolID, id string) (Class, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleAcademic, auth.Read)
	if err != nil {
		return Class{}, err
	}
	return svc.repo.GetClass(ctx, scope, id)
}

func (svc *Service) DeleteClass(ctx context.Context, p auth.Principal, schoolID, id string) error {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleAcademic, auth.Write)
	if err != nil {
		return err
	}
	return svc.repo.DeleteClass(ctx, scope, id)
}

// Sections

// CreateSection adds a section to a class of the same school.
// The store rejects a second section with the same name in the class.
func (svc *Service) CreateSection(ctx context.Context, p auth.Principal, schoolID string, ns NewSection) (Section, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleAcademic, auth.Write)
	if err != nil {
		return Section{}, err
	}
	if _, err = svc.repo.GetClass(ctx, scope, ns.ClassID); err != nil {
		return Section{}, err
	}
	teacherID, err := svc.checkTeacher(ctx, scope, "teacher_id", ns.TeacherID)
	if err != nil {
		return Section{}, err
	}
	return svc.repo.CreateSection(ctx, scope, Section{ClassID: ns.ClassID, Name: ns.Name, TeacherID: teacherID})
}

func (svc *Service) QuerySections(ctx context.Context, p auth.Principal, schoolID, classID string) ([]Section, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleAcademic, auth.Read)
	if err != nil {
		return nil, err
	}
	return svc.repo.QuerySections(ctx, scope, core.CleanString(classID))
}

func (svc *Service) GetSection(ctx context.Context, p auth.Principal, schoolID, id string) (Section, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleAcademic, auth.Read)
	if err != nil {
		return Section{}, err
	}
	return svc.repo.GetSection(ctx, scope, id)
}

func (svc *Service) DeleteSection(ctx context.Context, p auth.Principal, schoolID, id string) error {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleAcademic, auth.Write)
	if err != nil {
		return err
	}
	return svc.repo.DeleteSection(ctx, scope, id)
}

// Exams

func (svc *Service) CreateExam(ctx context.Context, p auth.Principal, schoolID string, ne NewExam) (Exam, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleAcademic, auth.Write)
	if err != nil {
		return Exam{}, err
	}
	if _, err = svc.repo.GetClass(ctx, scope, ne.ClassID); err != nil {
		return Exam{}, err
	}
	exam := Exam{ClassID: ne.ClassID, Name: ne.Name, Term: ne.Term}
	if ne.StartsOn != "" {
		if exam.StartsOn, err = core.ParseDateField("starts_on", ne.StartsOn); err != nil {
			return Exam{}, err
		}
	}
	return svc.repo.CreateExam(ctx, scope, exam)
}

func (svc *Service) QueryExams(ctx context.Context, p auth.Principal, schoolID, classID string) ([]Exam, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleAcademic, auth.Read)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryExams(ctx, scope, core.CleanString(classID))
}

func (svc *Service) GetExam(ctx context.Context, p auth.Principal, schoolID, id string) (Exam, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleAcademic, auth.Read)
	if err != nil {
		return Exam{}, err
	}
	return svc.repo.GetExam(ctx, scope, id)
}

// Results

// RecordResult stores the result of a student in an exam. Both must belong to the caller's school:
// a reference to another school's exam or student is reported as not found.
func (svc *Service) RecordResult(ctx context.Context, p auth.Principal, schoolID string, nr NewResult) (Result, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleAcademic, auth.Write)
	if err != nil {
		return Result{}, err
	}
	if _, err = svc.repo.GetExam(ctx, scope, nr.ExamID); err != nil {
		return Result{}, errors.Wrap(err, "getting exam")
	}
	if err = svc.students.StudentExists(ctx, scope, nr.StudentID); err != nil {
		return Result{}, errors.Wrap(err, "getting student")
	}

	res := Result{ExamID: nr.ExamID, StudentID: nr.StudentID, Remarks: nr.Remarks}
	if err = res.applyMarks(nr.Marks); err != nil {
		return Result{}, err
	}
	return svc.repo.CreateResult(ctx, scope, res)
}

func (svc *Service) UpdateResult(ctx context.Context, p auth.Principal, schoolID, id string, ur UpdateResult) (Result, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleAcademic, auth.Write)
	if err != nil {
		return Result{}, err
	}
	res, err := svc.repo.GetResult(ctx, scope, id)
	if err != nil {
		return Result{}, err
	}
	if ur.Marks != nil {
		if err = res.applyMarks(ur.Marks); err != nil {
			return Result{}, err
		}
	}
	if ur.Remarks != nil {
		res.Remarks = core.CleanString(*ur.Remarks)
	}
	return svc.repo.UpdateResult(ctx, scope, res)
}

// restrictResults narrows a filter to the students linked to a portal account.
func (svc *Service) restrictResults(ctx context.Context, scope auth.Scope, p auth.Principal, filter ResultFilter) (ResultFilter, error) {
	if !isPortalRole(p.Role) {
		return filter, nil
	}
	ids, err := svc.students.LinkedStudentIDs(ctx, scope, p)
	if err != nil {
		return filter, errors.Wrap(err, "getting linked students")
	}
	filter.studentIDs = ids
	filter.restricted = true
	return filter, nil
}

func (svc *Service) QueryResults(ctx context.Context, p auth.Principal, schoolID string, filter ResultFilter) ([]Result, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleAcademic, auth.Read)
	if err != nil {
		return nil, err
	}
	if filter, err = svc.restrictResults(ctx, scope, p, filter); err != nil {
		return nil, err
	}
	return svc.repo.QueryResults(ctx, scope, filter)
}

// ResultsForPrincipal lists the results of the students a STUDENT or PARENT account is linked to.
func (svc *Service) ResultsForPrincipal(ctx context.Context, p auth.Principal) ([]Result, error) {
	if p.IsAuthenticated() && !isPortalRole(p.Role) {
		return nil, core.ErrForbidden
	}
	return svc.QueryResults(ctx, p, "", ResultFilter{})
}

func (svc *Service) GetResult(ctx context.Context, p auth.Principal, schoolID, id string) (Result, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleAcademic, auth.Read)
	if err != nil {
		return Result{}, err
	}
	res, err := svc.repo.GetResult(ctx, scope, id)
	if err != nil {
		return Result{}, err
	}
	if isPortalRole(p.Role) {
		ids, err := svc.students.LinkedStudentIDs(ctx, scope, p)
		if err != nil {
			return Result{}, errors.Wrap(err, "getting linked students")
		}
		for _, sid := range ids {
			if sid == res.StudentID {
				return res, nil
			}
		}
		return Result{}, core.ErrNotFound
	}
	return res, nil
}

// ExamSummary aggregates all results of an exam.
func (svc *Service) ExamSummary(ctx context.Context, p auth.Principal, schoolID, examID string) (ExamSummary, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleAcademic, auth.Read)
	if err != nil {
		return ExamSummary{}, err
	}
	if isPortalRole(p.Role) {
		return ExamSummary{}, core.ErrForbidden
	}
	if _, err = svc.repo.GetExam(ctx, scope, examID); err != nil {
		return ExamSummary{}, err
	}
	results, err := svc.repo.QueryResults(ctx, scope, ResultFilter{ExamID: examID})
	if err != nil {
		return ExamSummary{}, errors.Wrap(err, "querying results")
	}
	return Summarize(examID, results), nil
}

// Timetable

// CreateTimetableSlot books a period of a section's week.
// The store rejects a second slot on the same (section, weekday, period).
func (svc *Service) CreateTimetableSlot(ctx context.Context, p auth.Principal, schoolID string, ns NewTimetableSlot) (TimetableSlot, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleAcademic, auth.Write)
	if err != nil {
		return TimetableSlot{}, err
	}
	if _, err = svc.repo.GetSection(ctx, scope, ns.SectionID); err != nil {
		return TimetableSlot{}, err
	}
	teacherID, err := svc.checkTeacher(ctx, scope, "teacher_id", ns.TeacherID)
	if err != nil {
		return TimetableSlot{}, err
	}
	return svc.repo.CreateTimetableSlot(ctx, scope, TimetableSlot{
		SectionID: ns.SectionID,
		Weekday:   ns.Weekday,
		Period:    ns.Period,
		Subject:   ns.Subject,
		TeacherID: teacherID,
	})
}

func (svc *Service) QueryTimetableSlots(ctx context.Context, p auth.Principal, schoolID string, filter SlotFilter) ([]TimetableSlot, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleAcademic, auth.Read)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryTimetableSlots(ctx, scope, filter)
}

func (svc *Service) DeleteTimetableSlot(ctx context.Context, p auth.Principal, schoolID, id string) error {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleAcademic, auth.Write)
	if err != nil {
		return err
	}
	return svc.repo.DeleteTimetableSlot(ctx, scope, id)
}
