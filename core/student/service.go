package student

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/academic"
	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/user"
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, scope auth.Scope, s Student) (Student, error)
		QueryStudents(ctx context.Context, scope auth.Scope, filter QueryFilter, orderings ...core.DBOrdering) ([]Student, error)
		GetStudent(ctx context.Context, scope auth.Scope, id string) (Student, error)
		UpdateStudent(ctx context.Context, scope auth.Scope, s Student) (Student, error)
		DeleteStudent(ctx context.Context, scope auth.Scope, id string) error
		// LinkedStudents returns the students whose UserID or GuardianID is `userID`.
		LinkedStudents(ctx context.Context, scope auth.Scope, userID string) ([]Student, error)
	}

	// ClassDirectory resolves classes and sections within a scope.
	ClassDirectory interface {
		GetClass(ctx context.Context, scope auth.Scope, id string) (academic.Class, error)
		GetSection(ctx context.Context, scope auth.Scope, id string) (academic.Section, error)
	}

	UserGetter interface {
		GetUser(ctx context.Context, scope auth.Scope, id string) (user.User, error)
	}

	Service struct {
		repo    Repository
		classes ClassDirectory
		users   UserGetter
		authz   *auth.Authorizer
	}
)

func NewService(repo Repository, classes ClassDirectory, users UserGetter, authz *auth.Authorizer) *Service {
	return &Service{repo: repo, classes: classes, users: users, authz: authz}
}

// checkPlacement makes sure the section belongs to the class, both within the scope.
func (svc *Service) checkPlacement(ctx context.Context, scope auth.Scope, classID, sectionID string) error {
	if _, err := svc.classes.GetClass(ctx, scope, classID); err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return core.NewValidationError(nil, core.FieldError{Field: "class_id", Error: "unknown class"})
		}
		return err
	}
	sec, err := svc.classes.GetSection(ctx, scope, sectionID)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return core.NewValidationError(nil, core.FieldError{Field: "section_id", Error: "unknown section"})
		}
		return err
	}
	if sec.ClassID != classID {
		return core.NewValidationError(nil, core.FieldError{Field: "section_id", Error: "section does not belong to the class"})
	}
	return nil
}

// checkAccount makes sure `id` is an account of the scope holding `role`.
func (svc *Service) checkAccount(ctx context.Context, scope auth.Scope, field, id string, role auth.Role) (null.String, error) {
	if id == "" {
		return null.String{}, nil
	}
	usr, err := svc.users.GetUser(ctx, scope, id)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return null.String{}, core.NewValidationError(nil, core.FieldError{Field: field, Error: "unknown account"})
		}
		return null.String{}, err
	}
	if usr.Role != role {
		return null.String{}, core.NewValidationError(nil, core.FieldError{Field: field, Error: "account must have the " + role.Name() + " role"})
	}
	return null.StringFrom(usr.ID), nil
}

func (svc *Service) Create(ctx context.Context, p auth.Principal, schoolID string, ns NewStudent) (Student, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleStudents, auth.Write)
	if err != nil {
		return Student{}, err
	}
	if err = svc.checkPlacement(ctx, scope, ns.ClassID, ns.SectionID); err != nil {
		return Student{}, err
	}
	std := Student{
		AdmissionNo: ns.AdmissionNo,
		Name:        ns.Name,
		ClassID:     ns.ClassID,
		SectionID:   ns.SectionID,
		IsActive:    true,
	}
	if std.GuardianID, err = svc.checkAccount(ctx, scope, "guardian_id", ns.GuardianID, auth.RoleParent); err != nil {
		return Student{}, err
	}
	if std.UserID, err = svc.checkAccount(ctx, scope, "user_id", ns.UserID, auth.RoleStudent); err != nil {
		return Student{}, err
	}
	if ns.DateOfBirth != "" {
		dob, err := core.ParseDateField("date_of_birth", ns.DateOfBirth)
		if err != nil {
			return Student{}, err
		}
		std.DateOfBirth = &dob
	}
	return svc.repo.CreateStudent(ctx, scope, std)
}

func (svc *Service) Query(ctx context.Context, p auth.Principal, schoolID string, filter QueryFilter, orderings ...core.DBOrdering) ([]Student, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleStudents, auth.Read)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryStudents(ctx, scope, filter, orderings...)
}

func (svc *Service) Get(ctx context.Context, p auth.Principal, schoolID, id string) (Student, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleStudents, auth.Read)
	if err != nil {
		return Student{}, err
	}
	return svc.repo.GetStudent(ctx, scope, id)
}

func (svc *Service) Update(ctx context.Context, p auth.Principal, schoolID, id string, us UpdateStudent) (Student, error) {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleStudents, auth.Write)
	if err != nil {
		return Student{}, err
	}
	std, err := svc.repo.GetStudent(ctx, scope, id)
	if err != nil {
		return Student{}, err
	}
	if us.Name != "" {
		std.Name = us.Name
	}
	if us.ClassID != "" {
		if err = svc.checkPlacement(ctx, scope, us.ClassID, us.SectionID); err != nil {
			return Student{}, err
		}
		std.ClassID, std.SectionID = us.ClassID, us.SectionID
	}
	if us.GuardianID != "" {
		if std.GuardianID, err = svc.checkAccount(ctx, scope, "guardian_id", us.GuardianID, auth.RoleParent); err != nil {
			return Student{}, err
		}
	}
	if us.IsActive != nil {
		std.IsActive = *us.IsActive
	}
	return svc.repo.UpdateStudent(ctx, scope, std)
}

func (svc *Service) Delete(ctx context.Context, p auth.Principal, schoolID, id string) error {
	scope, err := svc.authz.Authorize(ctx, p, schoolID, auth.ModuleStudents, auth.Write)
	if err != nil {
		return err
	}
	return svc.repo.DeleteStudent(ctx, scope, id)
}

// Linked lists the students a portal account may see: a STUDENT sees themselves, a PARENT their wards.
func (svc *Service) Linked(ctx context.Context, p auth.Principal) ([]Student, error) {
	scope, err := svc.authz.Authorize(ctx, p, "", auth.ModuleAcademic, auth.Read)
	if err != nil {
		return nil, err
	}
	if p.Role != auth.RoleStudent && p.Role != auth.RoleParent {
		return nil, core.ErrForbidden
	}
	return svc.repo.LinkedStudents(ctx, scope, p.UserID)
}
