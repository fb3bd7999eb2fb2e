package academic_test

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

func marks(obtained ...float64) []academic.SubjectMark {
	subjects := []string{"Math", "French", "Physics", "History"}
	mks := make([]academic.SubjectMark, len(obtained))
	for i, o := range obtained {
		mks[i] = academic.SubjectMark{Subject: subjects[i], Obtained: o, Max: 100}
	}
	return mks
}

func TestService_RecordResult(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	wima := env.NewTenant(t, "Lycee Wima", "wima", 2)
	mok := env.NewTenant(t, "Institut Mokengeli", "mok", 1)

	exam, err := env.AcademicSvc.CreateExam(ctx, wima.Admin, "", academic.NewExam{
		ClassID:  wima.Class.ID,
		Name:     "First term",
		Term:     "T1",
		StartsOn: "2024-10-14",
	})
	require.NoError(t, err)
	mokExam, err := env.AcademicSvc.CreateExam(ctx, mok.Admin, "", academic.NewExam{ClassID: mok.Class.ID, Name: "First term"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		p       auth.Principal
		nr      academic.NewResult
		wantErr error
	}{
		{
			name:    "student cannot record",
			p:       wima.As(auth.RoleStudent),
			nr:      academic.NewResult{ExamID: exam.ID, StudentID: wima.Students[0].ID, Marks: marks(50)},
			wantErr: core.ErrForbidden,
		},
		{
			name:    "exam of another school",
			p:       wima.As(auth.RoleTeacher),
			nr:      academic.NewResult{ExamID: mokExam.ID, StudentID: wima.Students[0].ID, Marks: marks(50)},
			wantErr: core.ErrNotFound,
		},
		{
			name:    "student of another school",
			p:       wima.As(auth.RoleTeacher),
			nr:      academic.NewResult{ExamID: exam.ID, StudentID: mok.Students[0].ID, Marks: marks(50)},
			wantErr: core.ErrNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.AcademicSvc.RecordResult(ctx, tt.p, "", tt.nr)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("invalid marks", func(t *testing.T) {
		_, err := env.AcademicSvc.RecordResult(ctx, wima.Admin, "", academic.NewResult{
			ExamID:    exam.ID,
			StudentID: wima.Students[0].ID,
			Marks:     []academic.SubjectMark{{Subject: "Math", Obtained: 120, Max: 100}},
		})
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr), "got %v", err)
		assert.Equal(t, "marks[0]", vErr.Fields[0].Field)
	})

	t.Run("derives totals and grade", func(t *testing.T) {
		res, err := env.AcademicSvc.RecordResult(ctx, wima.As(auth.RoleTeacher), "", academic.NewResult{
			ExamID:    exam.ID,
			StudentID: wima.Students[0].ID,
			Marks:     marks(90, 80, 85),
		})
		require.NoError(t, err)
		assert.Equal(t, wima.School.ID, res.SchoolID)
		assert.Equal(t, 255.0, res.TotalObtained)
		assert.Equal(t, 300.0, res.TotalMax)
		assert.Equal(t, 85.0, res.Percentage)
		assert.Equal(t, "A", res.Grade)
		assert.Len(t, res.Marks.Data(), 3)

		got, err := env.AcademicSvc.GetResult(ctx, wima.Admin, "", res.ID)
		require.NoError(t, err)
		assert.Equal(t, res.Marks.Data(), got.Marks.Data())

		_, err = env.AcademicSvc.GetResult(ctx, mok.Admin, "", res.ID)
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("one result per exam and student", func(t *testing.T) {
		_, err := env.AcademicSvc.RecordResult(ctx, wima.Admin, "", academic.NewResult{
			ExamID:    exam.ID,
			StudentID: wima.Students[0].ID,
			Marks:     marks(10),
		})
		var cErr *core.ConstraintError
		require.True(t, errors.As(err, &cErr), "got %v", err)
		assert.Equal(t, "result", cErr.Collection)
	})

	t.Run("update recomputes", func(t *testing.T) {
		res, err := env.AcademicSvc.RecordResult(ctx, wima.Admin, "", academic.NewResult{
			ExamID:    exam.ID,
			StudentID: wima.Students[1].ID,
			Marks:     marks(30, 40),
		})
		require.NoError(t, err)
		assert.Equal(t, "F", res.Grade)

		remarks := "  second chance "
		res, err = env.AcademicSvc.UpdateResult(ctx, wima.Admin, "", res.ID, academic.UpdateResult{
			Marks:   marks(60, 70),
			Remarks: &remarks,
		})
		require.NoError(t, err)
		assert.Equal(t, 65.0, res.Percentage)
		assert.Equal(t, "C", res.Grade)
		assert.Equal(t, "second chance", res.Remarks)
	})
}

func TestService_ExamSummary(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	wima := env.NewTenant(t, "Lycee Wima", "wima", 3)

	exam, err := env.AcademicSvc.CreateExam(ctx, wima.Admin, "", academic.NewExam{ClassID: wima.Class.ID, Name: "Final"})
	require.NoError(t, err)

	empty, err := env.AcademicSvc.ExamSummary(ctx, wima.Admin, "", exam.ID)
	require.NoError(t, err)
	assert.Equal(t, academic.ExamSummary{ExamID: exam.ID}, empty)

	for i, o := range []float64{95, 40, 20} {
		_, err = env.AcademicSvc.RecordResult(ctx, wima.Admin, "", academic.NewResult{
			ExamID:    exam.ID,
			StudentID: wima.Students[i].ID,
			Marks:     marks(o),
		})
		require.NoError(t, err)
	}

	sum, err := env.AcademicSvc.ExamSummary(ctx, wima.As(auth.RolePrincipal), "", exam.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Count)
	assert.Equal(t, 2, sum.Passed)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 95.0, sum.HighestPercentage)
	assert.Equal(t, 20.0, sum.LowestPercentage)
	assert.InDelta(t, 51.67, sum.AveragePercentage, 0.01)

	_, err = env.AcademicSvc.ExamSummary(ctx, wima.As(auth.RoleParent), "", exam.ID)
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestService_PortalResults(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	wima := env.NewTenant(t, "Lycee Wima", "wima", 1)

	kid := testutil.CreateUser(t, env.Users, wima.School.ID, "Kid", "kid", "", "", auth.RoleStudent, true)
	parent := testutil.CreateUser(t, env.Users, wima.School.ID, "Parent", "parent", "", "", auth.RoleParent, true)
	linked, err := env.StudentSvc.Create(ctx, wima.Admin, "", student.NewStudent{
		AdmissionNo: "wima-100",
		Name:        "Kid",
		ClassID:     wima.Class.ID,
		SectionID:   wima.Section.ID,
		GuardianID:  parent.ID,
		UserID:      kid.ID,
	})
	require.NoError(t, err)

	exam, err := env.AcademicSvc.CreateExam(ctx, wima.Admin, "", academic.NewExam{ClassID: wima.Class.ID, Name: "Quiz"})
	require.NoError(t, err)
	mine, err := env.AcademicSvc.RecordResult(ctx, wima.Admin, "", academic.NewResult{ExamID: exam.ID, StudentID: linked.ID, Marks: marks(70)})
	require.NoError(t, err)
	other, err := env.AcademicSvc.RecordResult(ctx, wima.Admin, "", academic.NewResult{ExamID: exam.ID, StudentID: wima.Students[0].ID, Marks: marks(50)})
	require.NoError(t, err)

	for _, usr := range []auth.Principal{kid.Principal(), parent.Principal()} {
		results, err := env.AcademicSvc.ResultsForPrincipal(ctx, usr)
		require.NoError(t, err)
		if assert.Len(t, results, 1, usr.Role) {
			assert.Equal(t, mine.ID, results[0].ID)
		}

		_, err = env.AcademicSvc.GetResult(ctx, usr, "", other.ID)
		assert.ErrorIs(t, err, core.ErrNotFound, usr.Role)
	}

	_, err = env.AcademicSvc.ResultsForPrincipal(ctx, wima.As(auth.RoleTeacher))
	assert.ErrorIs(t, err, core.ErrForbidden)

	all, err := env.AcademicSvc.QueryResults(ctx, wima.As(auth.RoleTeacher), "", academic.ResultFilter{ExamID: exam.ID})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestService_Sections(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	wima := env.NewTenant(t, "Lycee Wima", "wima", 0)
	mok := env.NewTenant(t, "Institut Mokengeli", "mok", 0)
	teacher := testutil.CreateUser(t, env.Users, wima.School.ID, "Teacher", "teacher", "", "", auth.RoleTeacher, true)
	accountant := testutil.CreateUser(t, env.Users, wima.School.ID, "Accountant", "accountant", "", "", auth.RoleAccountant, true)

	tests := []struct {
		name     string
		ns       academic.NewSection
		wantErr  error
		wantFld  string
		wantConf bool
	}{
		{name: "class of another school", ns: academic.NewSection{ClassID: mok.Class.ID, Name: "B"}, wantErr: core.ErrNotFound},
		{name: "not a teacher", ns: academic.NewSection{ClassID: wima.Class.ID, Name: "B", TeacherID: accountant.ID}, wantFld: "teacher_id"},
		{name: "unknown teacher", ns: academic.NewSection{ClassID: wima.Class.ID, Name: "B", TeacherID: "nope"}, wantFld: "teacher_id"},
		{name: "duplicate name", ns: academic.NewSection{ClassID: wima.Class.ID, Name: "A"}, wantConf: true},
		{name: "with teacher", ns: academic.NewSection{ClassID: wima.Class.ID, Name: "B", TeacherID: teacher.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sec, err := env.AcademicSvc.CreateSection(ctx, wima.Admin, "", tt.ns)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantFld != "":
				var vErr *core.ValidationError
				require.True(t, errors.As(err, &vErr), "got %v", err)
				assert.Equal(t, tt.wantFld, vErr.Fields[0].Field)
			case tt.wantConf:
				assert.True(t, core.IsConstraintError(err), "got %v", err)
			default:
				require.NoError(t, err)
				assert.Equal(t, teacher.ID, sec.TeacherID.String)
			}
		})
	}

	sections, err := env.AcademicSvc.QuerySections(ctx, wima.As(auth.RoleTeacher), "", wima.Class.ID)
	require.NoError(t, err)
	assert.Len(t, sections, 2)

	_, err = env.AcademicSvc.CreateTimetableSlot(ctx, wima.Admin, "", academic.NewTimetableSlot{
		SectionID: wima.Section.ID,
		Weekday:   1,
		Period:    1,
		Subject:   "Math",
		TeacherID: teacher.ID,
	})
	require.NoError(t, err)
	slots, err := env.AcademicSvc.QueryTimetableSlots(ctx, wima.As(auth.RoleStudent), "", academic.SlotFilter{TeacherID: teacher.ID})
	require.NoError(t, err)
	assert.Len(t, slots, 1)
}

func TestService_SuperAdminTargetsSchool(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	wima := env.NewTenant(t, "Lycee Wima", "wima", 0)

	_, err := env.AcademicSvc.QueryClasses(ctx, auth.System, "")
	var vErr *core.ValidationError
	assert.True(t, errors.As(err, &vErr), "got %v", err)

	classes, err := env.AcademicSvc.QueryClasses(ctx, auth.System, wima.School.ID)
	require.NoError(t, err)
	assert.Len(t, classes, 1)

	_, err = env.AcademicSvc.QueryClasses(ctx, wima.Admin, "another-school")
	assert.ErrorIs(t, err, core.ErrForbidden)

	t.Run("unregistered school", func(t *testing.T) {
		_, err := env.AcademicSvc.CreateClass(ctx, auth.System, "no-such-school", academic.NewClass{Name: "5eme", Level: 5})
		assert.ErrorIs(t, err, core.ErrNotFound)
		_, err = env.AcademicSvc.QueryClasses(ctx, auth.System, "no-such-school")
		assert.ErrorIs(t, err, core.ErrNotFound)

		var n int64
		require.NoError(t, env.DB.Model(&academic.Class{}).Where("school_id = ?", "no-such-school").Count(&n).Error)
		assert.Zero(t, n, "no record outside a registered school")
	})
}
