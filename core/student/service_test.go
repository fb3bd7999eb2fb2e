package student_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/academic"
	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/student"
	testutil "github.com/trezcool/shule/tests"
)

func TestService_Create(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	wima := env.NewTenant(t, "Lycee Wima", "wima", 1)
	mok := env.NewTenant(t, "Institut Mokengeli", "mok", 0)

	otherClass, err := env.AcademicSvc.CreateClass(ctx, wima.Admin, "", academic.NewClass{Name: "5eme", Level: 5})
	require.NoError(t, err)
	parent := testutil.CreateUser(t, env.Users, wima.School.ID, "Parent", "parent", "", "", auth.RoleParent, true)
	teacher := testutil.CreateUser(t, env.Users, wima.School.ID, "Teacher", "teacher", "", "", auth.RoleTeacher, true)

	valid := func(mod func(*student.NewStudent)) student.NewStudent {
		ns := student.NewStudent{
			AdmissionNo: "wima-200",
			Name:        "Mbuyi",
			ClassID:     wima.Class.ID,
			SectionID:   wima.Section.ID,
		}
		if mod != nil {
			mod(&ns)
		}
		return ns
	}

	tests := []struct {
		name    string
		p       auth.Principal
		ns      student.NewStudent
		wantErr error
		wantFld string
	}{
		{name: "teacher cannot enroll", p: wima.As(auth.RoleTeacher), ns: valid(nil), wantErr: core.ErrForbidden},
		{name: "class of another school", p: wima.Admin, ns: valid(func(ns *student.NewStudent) { ns.ClassID = mok.Class.ID }), wantFld: "class_id"},
		{name: "section of another school", p: wima.Admin, ns: valid(func(ns *student.NewStudent) { ns.SectionID = mok.Section.ID }), wantFld: "section_id"},
		{name: "section of another class", p: wima.Admin, ns: valid(func(ns *student.NewStudent) { ns.ClassID = otherClass.ID }), wantFld: "section_id"},
		{name: "guardian is not a parent", p: wima.Admin, ns: valid(func(ns *student.NewStudent) { ns.GuardianID = teacher.ID }), wantFld: "guardian_id"},
		{name: "bad birth date", p: wima.Admin, ns: valid(func(ns *student.NewStudent) { ns.DateOfBirth = "2012-13-01" }), wantFld: "date_of_birth"},
		{name: "duplicate admission number", p: wima.Admin, ns: valid(func(ns *student.NewStudent) { ns.AdmissionNo = "wima-001" })},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.StudentSvc.Create(ctx, tt.p, "", tt.ns)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantFld != "":
				var vErr *core.ValidationError
				require.True(t, errors.As(err, &vErr), "got %v", err)
				assert.Equal(t, tt.wantFld, vErr.Fields[0].Field)
			default:
				assert.True(t, core.IsConstraintError(err), "got %v", err)
			}
		})
	}

	t.Run("same admission number in another school", func(t *testing.T) {
		_, err := env.StudentSvc.Create(ctx, mok.Admin, "", student.NewStudent{
			AdmissionNo: "wima-001",
			Name:        "Kabongo",
			ClassID:     mok.Class.ID,
			SectionID:   mok.Section.ID,
		})
		assert.NoError(t, err)
	})

	t.Run("enroll", func(t *testing.T) {
		std, err := env.StudentSvc.Create(ctx, wima.As(auth.RolePrincipal), "", valid(func(ns *student.NewStudent) {
			ns.GuardianID = parent.ID
			ns.DateOfBirth = "2012-03-01"
		}))
		require.NoError(t, err)
		assert.True(t, std.IsActive)
		assert.Equal(t, parent.ID, std.GuardianID.String)
		require.NotNil(t, std.DateOfBirth)

		wards, err := env.StudentSvc.Linked(ctx, parent.Principal())
		require.NoError(t, err)
		if assert.Len(t, wards, 1) {
			assert.Equal(t, std.ID, wards[0].ID)
		}
	})
}

func TestService_Update(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	wima := env.NewTenant(t, "Lycee Wima", "wima", 1)
	mok := env.NewTenant(t, "Institut Mokengeli", "mok", 0)
	std := wima.Students[0]

	_, err := env.StudentSvc.Update(ctx, mok.Admin, "", std.ID, student.UpdateStudent{Name: "Hijacked"})
	assert.ErrorIs(t, err, core.ErrNotFound)

	cls, err := env.AcademicSvc.CreateClass(ctx, wima.Admin, "", academic.NewClass{Name: "5eme", Level: 5})
	require.NoError(t, err)
	sec, err := env.AcademicSvc.CreateSection(ctx, wima.Admin, "", academic.NewSection{ClassID: cls.ID, Name: "A"})
	require.NoError(t, err)

	no := false
	updated, err := env.StudentSvc.Update(ctx, wima.Admin, "", std.ID, student.UpdateStudent{
		ClassID:   cls.ID,
		SectionID: sec.ID,
		IsActive:  &no,
	})
	require.NoError(t, err)
	assert.Equal(t, cls.ID, updated.ClassID)
	assert.Equal(t, sec.ID, updated.SectionID)
	assert.False(t, updated.IsActive)

	active := true
	students, err := env.StudentSvc.Query(ctx, wima.As(auth.RoleTeacher), "", student.QueryFilter{IsActive: &active})
	require.NoError(t, err)
	assert.Empty(t, students)

	require.NoError(t, env.StudentSvc.Delete(ctx, wima.Admin, "", std.ID))
	_, err = env.StudentSvc.Get(ctx, wima.Admin, "", std.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
