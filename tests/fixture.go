package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/trezcool/shule/core/academic"
	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/student"
)

// Tenant is a school with one class, one section and a few enrolled students.
type Tenant struct {
	School   school.School
	Admin    auth.Principal
	Class    academic.Class
	Section  academic.Section
	Students []student.Student
}

// NewTenant creates a school administered by a SCHOOL_ADMIN principal, and enrolls `n` students.
func (env *Env) NewTenant(t *testing.T, name, code string, n int) Tenant {
	t.Helper()
	ctx := context.Background()
	tnt := Tenant{School: CreateSchool(t, env.Schools, name, code)}
	tnt.Admin = Member(tnt.School.ID, auth.RoleSchoolAdmin)

	var err error
	if tnt.Class, err = env.AcademicSvc.CreateClass(ctx, tnt.Admin, "", academic.NewClass{Name: "6eme", Level: 6}); err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	tnt.Section, err = env.AcademicSvc.CreateSection(ctx, tnt.Admin, "", academic.NewSection{ClassID: tnt.Class.ID, Name: "A"})
	if err != nil {
		t.Fatalf("CreateSection() failed: %v", err)
	}
	for i := 1; i <= n; i++ {
		std, err := env.StudentSvc.Create(ctx, tnt.Admin, "", student.NewStudent{
			AdmissionNo: fmt.Sprintf("%s-%03d", code, i),
			Name:        fmt.Sprintf("Student %d", i),
			ClassID:     tnt.Class.ID,
			SectionID:   tnt.Section.ID,
		})
		if err != nil {
			t.Fatalf("student.Create() failed: %v", err)
		}
		tnt.Students = append(tnt.Students, std)
	}
	return tnt
}

// As returns a principal of the tenant holding `role`.
func (tnt Tenant) As(role auth.Role) auth.Principal {
	return Member(tnt.School.ID, role)
}
