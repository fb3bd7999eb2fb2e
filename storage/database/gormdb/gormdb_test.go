package gormdb_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/academic"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/finance"
	"github.com/trezcool/shule/core/hostel"
	"github.com/trezcool/shule/core/inventory"
	"github.com/trezcool/shule/core/library"
	"github.com/trezcool/shule/core/rbac"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/user"
	testutil "github.com/trezcool/shule/tests"
)

type tenant struct {
	scope   auth.Scope
	class   academic.Class
	section academic.Section
	student student.Student
}

func newTenant(t *testing.T, env *testutil.Env, code string) tenant {
	ctx := context.Background()
	sch := testutil.CreateSchool(t, env.Schools, "School "+code, code)
	tn := tenant{scope: testutil.Scope(t, sch.ID)}

	var err error
	tn.class, err = env.Academic.CreateClass(ctx, tn.scope, academic.Class{Name: "Grade 1", Level: 1})
	require.NoError(t, err)
	tn.section, err = env.Academic.CreateSection(ctx, tn.scope, academic.Section{ClassID: tn.class.ID, Name: "A"})
	require.NoError(t, err)
	tn.student, err = env.Students.CreateStudent(ctx, tn.scope, student.Student{
		AdmissionNo: "ADM-001",
		Name:        "Awe Mbote",
		ClassID:     tn.class.ID,
		SectionID:   tn.section.ID,
		IsActive:    true,
	})
	require.NoError(t, err)
	return tn
}

func assertConstraint(t *testing.T, err error, collection string, fields ...string) {
	t.Helper()
	var cErr *core.ConstraintError
	if assert.True(t, errors.As(err, &cErr), "want a ConstraintError, got %v", err) {
		assert.Equal(t, collection, cErr.Collection)
		assert.Equal(t, fields, cErr.Fields)
	}
}

func TestZeroScopeIsRejected(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	var zero auth.Scope

	_, err := env.Students.GetStudent(ctx, zero, "any")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrNotFound)

	_, err = env.Academic.QueryClasses(ctx, zero)
	assert.Error(t, err)

	_, err = env.Finance.CreatePayment(ctx, zero, finance.FeePayment{ReceiptNo: "R-1"})
	assert.Error(t, err)

	_, err = env.Users.QueryUsers(ctx, zero, user.QueryFilter{})
	assert.Error(t, err)
}

func TestTenantIsolation(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	a := newTenant(t, env, "wima")
	b := newTenant(t, env, "mok")

	t.Run("get", func(t *testing.T) {
		_, err := env.Academic.GetClass(ctx, b.scope, a.class.ID)
		assert.ErrorIs(t, err, core.ErrNotFound)
		_, err = env.Students.GetStudent(ctx, b.scope, a.student.ID)
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("query", func(t *testing.T) {
		classes, err := env.Academic.QueryClasses(ctx, b.scope)
		require.NoError(t, err)
		if assert.Len(t, classes, 1) {
			assert.Equal(t, b.class.ID, classes[0].ID)
		}
		students, err := env.Students.QueryStudents(ctx, a.scope, student.QueryFilter{})
		require.NoError(t, err)
		if assert.Len(t, students, 1) {
			assert.Equal(t, a.student.ID, students[0].ID)
		}
	})

	t.Run("update", func(t *testing.T) {
		std := a.student
		std.Name = "Hijacked"
		_, err := env.Students.UpdateStudent(ctx, b.scope, std)
		assert.ErrorIs(t, err, core.ErrNotFound)

		got, err := env.Students.GetStudent(ctx, a.scope, a.student.ID)
		require.NoError(t, err)
		assert.Equal(t, "Awe Mbote", got.Name)
	})

	t.Run("delete", func(t *testing.T) {
		assert.ErrorIs(t, env.Academic.DeleteSection(ctx, b.scope, a.section.ID), core.ErrNotFound)
		_, err := env.Academic.GetSection(ctx, a.scope, a.section.ID)
		assert.NoError(t, err)
	})

	t.Run("conditional updates", func(t *testing.T) {
		item, err := env.Inventory.CreateItem(ctx, a.scope, inventory.Item{Name: "Chalk", SKU: "CHK", Quantity: 5})
		require.NoError(t, err)
		ok, err := env.Inventory.AdjustStock(ctx, b.scope, item.ID, -1)
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := env.Inventory.GetItem(ctx, a.scope, item.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, got.Quantity)
	})
}

func TestUniqueness(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	a := newTenant(t, env, "wima")
	b := newTenant(t, env, "mok")
	today := core.Day(time.Now())

	t.Run("section name per class", func(t *testing.T) {
		_, err := env.Academic.CreateSection(ctx, a.scope, academic.Section{ClassID: a.class.ID, Name: "A"})
		assertConstraint(t, err, "section", "name")

		other, err := env.Academic.CreateClass(ctx, a.scope, academic.Class{Name: "Grade 2", Level: 2})
		require.NoError(t, err)
		_, err = env.Academic.CreateSection(ctx, a.scope, academic.Section{ClassID: other.ID, Name: "A"})
		assert.NoError(t, err)
	})

	t.Run("student admission number per school", func(t *testing.T) {
		dup := a.student
		dup.ID = ""
		_, err := env.Students.CreateStudent(ctx, a.scope, dup)
		assertConstraint(t, err, "student", "admission_no")
	})

	t.Run("room number per hostel", func(t *testing.T) {
		h, err := env.Hostels.CreateHostel(ctx, a.scope, hostel.Hostel{Name: "Boys"})
		require.NoError(t, err)
		_, err = env.Hostels.CreateRoom(ctx, a.scope, hostel.Room{HostelID: h.ID, Number: "101", Capacity: 2})
		require.NoError(t, err)
		_, err = env.Hostels.CreateRoom(ctx, a.scope, hostel.Room{HostelID: h.ID, Number: "101", Capacity: 4})
		assertConstraint(t, err, "room", "number")

		h2, err := env.Hostels.CreateHostel(ctx, a.scope, hostel.Hostel{Name: "Girls"})
		require.NoError(t, err)
		_, err = env.Hostels.CreateRoom(ctx, a.scope, hostel.Room{HostelID: h2.ID, Number: "101", Capacity: 2})
		assert.NoError(t, err)
	})

	t.Run("attendance per day and person", func(t *testing.T) {
		att := attendance.Attendance{
			Date:       today,
			PersonID:   a.student.ID,
			PersonType: attendance.PersonStudent,
			Status:     attendance.StatusPresent,
		}
		_, err := env.Attendance.CreateAttendance(ctx, a.scope, att)
		require.NoError(t, err)
		att.Status = attendance.StatusAbsent
		_, err = env.Attendance.CreateAttendance(ctx, a.scope, att)
		assertConstraint(t, err, "attendance", "date", "person_id")

		att.Date = core.Day(time.Now().AddDate(0, 0, -1))
		_, err = env.Attendance.CreateAttendance(ctx, a.scope, att)
		assert.NoError(t, err)
	})

	t.Run("result per exam and student", func(t *testing.T) {
		exam, err := env.Academic.CreateExam(ctx, a.scope, academic.Exam{ClassID: a.class.ID, Name: "Midterm"})
		require.NoError(t, err)
		res := academic.Result{ExamID: exam.ID, StudentID: a.student.ID, Percentage: 50, Grade: "D"}
		_, err = env.Academic.CreateResult(ctx, a.scope, res)
		require.NoError(t, err)
		_, err = env.Academic.CreateResult(ctx, a.scope, res)
		assertConstraint(t, err, "result", "exam_id", "student_id")
	})

	t.Run("receipt number per school", func(t *testing.T) {
		pmt := finance.FeePayment{
			ReceiptNo: "RCPT-0001",
			StudentID: a.student.ID,
			FeeType:   "tuition",
			Amount:    150000,
			Method:    finance.MethodCash,
			Status:    finance.StatusPaid,
			PaidAt:    time.Now().UTC(),
		}
		_, err := env.Finance.CreatePayment(ctx, a.scope, pmt)
		require.NoError(t, err)
		_, err = env.Finance.CreatePayment(ctx, a.scope, pmt)
		assertConstraint(t, err, "fee payment", "receipt_no")

		pmt.StudentID = b.student.ID
		_, err = env.Finance.CreatePayment(ctx, b.scope, pmt)
		assert.NoError(t, err)
	})

	t.Run("timetable period per section", func(t *testing.T) {
		slot := academic.TimetableSlot{SectionID: a.section.ID, Weekday: 1, Period: 1, Subject: "Maths"}
		_, err := env.Academic.CreateTimetableSlot(ctx, a.scope, slot)
		require.NoError(t, err)
		slot.Subject = "French"
		_, err = env.Academic.CreateTimetableSlot(ctx, a.scope, slot)
		assertConstraint(t, err, "timetable slot", "weekday", "period")
	})

	t.Run("role permission per key", func(t *testing.T) {
		rp := rbac.RolePermission{
			Role:      auth.RoleTeacher,
			SchoolKey: a.scope.SchoolID(),
			Grants:    datatypes.NewJSONType(auth.Grants{auth.ModuleAcademic: auth.LevelRead}),
		}
		_, err := env.RBAC.CreateRolePermission(ctx, rp)
		require.NoError(t, err)
		_, err = env.RBAC.CreateRolePermission(ctx, rp)
		assertConstraint(t, err, "role permission", "role")

		rp.SchoolKey = rbac.SystemWide
		_, err = env.RBAC.CreateRolePermission(ctx, rp)
		assert.NoError(t, err)
	})

	t.Run("usernames are global", func(t *testing.T) {
		testutil.CreateUser(t, env.Users, a.scope.SchoolID(), "Awe", "awe", "awe@wima.cd", "", auth.RoleTeacher, true)
		usr := testutil.CreateUser(t, env.Users, b.scope.SchoolID(), "Other", "other", "", "", auth.RoleTeacher, true)
		usr.Username = "awe"
		_, err := env.Users.UpdateUser(ctx, b.scope, usr)
		assertConstraint(t, err, "user", "username")
	})

	assert.Contains(t, env.Constraints(), "section")
	assert.Contains(t, env.Constraints(), "fee payment")
}

func TestConditionalUpdates(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	a := newTenant(t, env, "wima")

	t.Run("beds", func(t *testing.T) {
		h, err := env.Hostels.CreateHostel(ctx, a.scope, hostel.Hostel{Name: "Boys"})
		require.NoError(t, err)
		room, err := env.Hostels.CreateRoom(ctx, a.scope, hostel.Room{HostelID: h.ID, Number: "1", Capacity: 1})
		require.NoError(t, err)

		ok, err := env.Hostels.OccupyBed(ctx, a.scope, room.ID)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = env.Hostels.OccupyBed(ctx, a.scope, room.ID)
		require.NoError(t, err)
		assert.False(t, ok, "room is full")

		require.NoError(t, env.Hostels.ReleaseBed(ctx, a.scope, room.ID))
		require.NoError(t, env.Hostels.ReleaseBed(ctx, a.scope, room.ID))
		got, err := env.Hostels.GetRoom(ctx, a.scope, room.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Occupied, "never below zero")
	})

	t.Run("copies", func(t *testing.T) {
		book, err := env.Library.CreateBook(ctx, a.scope, library.Book{Title: "Go", TotalCopies: 1, AvailableCopies: 1})
		require.NoError(t, err)

		ok, err := env.Library.TakeCopy(ctx, a.scope, book.ID)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = env.Library.TakeCopy(ctx, a.scope, book.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, env.Library.PutBackCopy(ctx, a.scope, book.ID))
		require.NoError(t, env.Library.PutBackCopy(ctx, a.scope, book.ID))
		got, err := env.Library.GetBook(ctx, a.scope, book.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.AvailableCopies, "never above total")
	})

	t.Run("returns", func(t *testing.T) {
		book, err := env.Library.CreateBook(ctx, a.scope, library.Book{Title: "Go", TotalCopies: 1, AvailableCopies: 1})
		require.NoError(t, err)
		today := core.Day(time.Now())
		issue, err := env.Library.CreateIssue(ctx, a.scope, library.BookIssue{
			BookID:    book.ID,
			StudentID: a.student.ID,
			IssuedOn:  today,
			DueOn:     today,
		})
		require.NoError(t, err)

		ok, err := env.Library.MarkReturned(ctx, a.scope, issue.ID, today)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = env.Library.MarkReturned(ctx, a.scope, issue.ID, today)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("stock", func(t *testing.T) {
		item, err := env.Inventory.CreateItem(ctx, a.scope, inventory.Item{Name: "Paper", SKU: "PPR", Quantity: 3})
		require.NoError(t, err)

		ok, err := env.Inventory.AdjustStock(ctx, a.scope, item.ID, -3)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = env.Inventory.AdjustStock(ctx, a.scope, item.ID, -1)
		require.NoError(t, err)
		assert.False(t, ok)
		ok, err = env.Inventory.AdjustStock(ctx, a.scope, item.ID, 10)
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := env.Inventory.GetItem(ctx, a.scope, item.ID)
		require.NoError(t, err)
		assert.Equal(t, 10, got.Quantity)
	})
}

func TestQueryPayments_DateRange(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	a := newTenant(t, env, "wima")

	for i, day := range []string{"2024-01-10", "2024-01-15", "2024-01-20"} {
		paidAt, err := time.Parse(core.DateLayout, day)
		require.NoError(t, err)
		_, err = env.Finance.CreatePayment(ctx, a.scope, finance.FeePayment{
			ReceiptNo: "R-" + day,
			StudentID: a.student.ID,
			FeeType:   "tuition",
			Amount:    int64(1000 * (i + 1)),
			Method:    finance.MethodCash,
			Status:    finance.StatusPaid,
			PaidAt:    paidAt.Add(15 * time.Hour),
		})
		require.NoError(t, err)
	}

	filter := finance.QueryFilter{From: "2024-01-15", To: "2024-01-20"}
	require.NoError(t, filter.Clean())
	payments, err := env.Finance.QueryPayments(ctx, a.scope, filter)
	require.NoError(t, err)
	if assert.Len(t, payments, 2) {
		assert.Equal(t, "R-2024-01-20", payments[0].ReceiptNo, "latest first")
		assert.Equal(t, "R-2024-01-15", payments[1].ReceiptNo)
	}
}
