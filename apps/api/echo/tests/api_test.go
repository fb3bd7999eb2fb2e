package tests

import (
	"context"
	"encoding/csv"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/finance"
	"github.com/trezcool/shule/core/user"
	emailsvc "github.com/trezcool/shule/services/email"
	testutil "github.com/trezcool/shule/tests"
)

func TestServer_Probes(t *testing.T) {
	a := setup(t)

	tests := []httpTest{
		{name: "home", path: "/", wantCode: http.StatusOK},
		{name: "healthz", path: "/healthz", wantCode: http.StatusOK},
		{name: "healthz trailing slash", path: "/healthz/", wantCode: http.StatusOK},
		{name: "metrics", path: "/metrics", wantCode: http.StatusOK},
		{name: "unknown route", path: "/v1/nope", wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a.run(t, tt)
		})
	}
}

func TestAuthApi_login(t *testing.T) {
	a := setup(t)
	sch := testutil.CreateSchool(t, a.env.Schools, "Lycee Wima", "wima")
	closed := testutil.CreateSchool(t, a.env.Schools, "Closed", "closed")
	_, err := a.env.SchoolSvc.SetActive(context.Background(), auth.System, closed.ID, false)
	require.NoError(t, err)

	testutil.CreateUser(t, a.env.Users, "", "Root", "root", "", "pwd", auth.RoleSuperAdmin, true)
	testutil.CreateUser(t, a.env.Users, sch.ID, "Admin", "admin", "admin@wima.cd", "pwd", auth.RoleSchoolAdmin, true)
	testutil.CreateUser(t, a.env.Users, sch.ID, "Teacher", "teacher", "", "pwd", auth.RoleTeacher, true)
	testutil.CreateUser(t, a.env.Users, sch.ID, "Accountant", "accountant", "", "pwd", auth.RoleAccountant, true)
	testutil.CreateUser(t, a.env.Users, sch.ID, "Parent", "parent", "", "pwd", auth.RoleParent, true)
	testutil.CreateUser(t, a.env.Users, sch.ID, "Gone", "gone", "", "pwd", auth.RoleTeacher, false)
	testutil.CreateUser(t, a.env.Users, closed.ID, "Late", "late", "", "pwd", auth.RoleTeacher, true)

	tests := []struct {
		httpTest
		wantArea auth.Area
	}{
		{httpTest: httpTest{name: "no body", wantCode: http.StatusBadRequest}},
		{
			httpTest: httpTest{
				name:     "wrong password",
				body:     echoapi.LoginRequest{Username: "admin", Password: "nope"},
				wantCode: http.StatusBadRequest,
				wantErr:  &httpErr{Message: "invalid credentials"},
			},
		},
		{
			httpTest: httpTest{
				name:     "deactivated account",
				body:     echoapi.LoginRequest{Username: "gone", Password: "pwd"},
				wantCode: http.StatusForbidden,
				wantErr:  &httpErr{Message: "account deactivated"},
			},
		},
		{
			httpTest: httpTest{
				name:     "deactivated school",
				body:     echoapi.LoginRequest{Username: "late", Password: "pwd"},
				wantCode: http.StatusForbidden,
				wantErr:  &httpErr{Message: "account deactivated"},
			},
		},
		{httpTest: httpTest{name: "super admin", body: echoapi.LoginRequest{Username: "root", Password: "pwd"}, wantCode: http.StatusOK}, wantArea: auth.AreaAdmin},
		{httpTest: httpTest{name: "school admin by email", body: echoapi.LoginRequest{Username: "ADMIN@wima.cd", Password: "pwd"}, wantCode: http.StatusOK}, wantArea: auth.AreaAdmin},
		{httpTest: httpTest{name: "teacher", body: echoapi.LoginRequest{Username: "teacher", Password: "pwd"}, wantCode: http.StatusOK}, wantArea: auth.AreaStaff},
		{httpTest: httpTest{name: "accountant", body: echoapi.LoginRequest{Username: "accountant", Password: "pwd"}, wantCode: http.StatusOK}, wantArea: auth.AreaStaff},
		{httpTest: httpTest{name: "parent", body: echoapi.LoginRequest{Username: "parent", Password: "pwd"}, wantCode: http.StatusOK}, wantArea: auth.AreaPortal},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/auth/login"

		t.Run(tt.name, func(t *testing.T) {
			rec := a.run(t, tt.httpTest)
			if tt.wantArea == "" {
				return
			}
			var res echoapi.LoginResponse
			decode(t, rec, &res)
			assert.Equal(t, tt.wantArea, res.Area)
			assert.Equal(t, "/"+string(tt.wantArea), res.LandingPath)

			// the token opens the session
			me := a.run(t, httpTest{path: "/v1/me", token: res.Token, wantCode: http.StatusOK})
			var usr user.User
			decode(t, me, &usr)
			assert.NotEmpty(t, usr.ID)
			assert.True(t, usr.LastLogin.Valid)
		})
	}
}

func TestAuthApi_session(t *testing.T) {
	a := setup(t)
	sch := testutil.CreateSchool(t, a.env.Schools, "Lycee Wima", "wima")
	teacher := testutil.CreateUser(t, a.env.Users, sch.ID, "Teacher", "teacher", "", "pwd", auth.RoleTeacher, true)
	token := a.token(t, teacher)

	tests := []httpTest{
		{name: "no token", path: "/v1/me", wantCode: http.StatusUnauthorized, wantErr: &errMissingToken},
		{name: "garbage token", path: "/v1/me", token: "lol", wantCode: http.StatusUnauthorized, wantErr: &httpErr{Message: "invalid or expired jwt"}},
		{name: "valid token", path: "/v1/me", token: token, wantCode: http.StatusOK},
		{name: "refresh", method: http.MethodPost, path: "/v1/auth/token-refresh", token: token, wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a.run(t, tt)
		})
	}

	t.Run("deactivation applies to live sessions", func(t *testing.T) {
		admin := testutil.Member(sch.ID, auth.RoleSchoolAdmin)
		no := false
		_, err := a.env.UserSvc.Update(context.Background(), admin, "", teacher.ID, user.UpdateUser{IsActive: &no})
		require.NoError(t, err)

		a.run(t, httpTest{path: "/v1/me", token: token, wantCode: http.StatusForbidden, wantErr: &httpErr{Message: "account deactivated"}})
	})
}

func TestUserApi_create(t *testing.T) {
	a := setup(t)
	wima := a.env.NewTenant(t, "Lycee Wima", "wima", 0)
	mok := a.env.NewTenant(t, "Institut Mokengeli", "mok", 0)
	admin := testutil.CreateUser(t, a.env.Users, wima.School.ID, "Admin", "admin", "", "pwd", auth.RoleSchoolAdmin, true)
	teacher := testutil.CreateUser(t, a.env.Users, wima.School.ID, "Teacher", "teacher", "", "pwd", auth.RoleTeacher, true)
	root := testutil.CreateUser(t, a.env.Users, "", "Root", "root", "", "pwd", auth.RoleSuperAdmin, true)

	body := func(uname string, role auth.Role) user.NewAccount {
		return user.NewAccount{Name: "New " + uname, Username: uname, Email: uname + "@wima.cd", Role: role}
	}

	tests := []httpTest{
		{name: "teacher", body: body("kid", auth.RoleStudent), token: a.token(t, teacher), wantCode: http.StatusForbidden, wantErr: &httpErr{Message: "permission denied"}},
		{name: "other school", body: body("kid", auth.RoleStudent), token: a.token(t, admin), school: mok.School.ID, wantCode: http.StatusForbidden},
		{name: "super admin role", body: body("boss", auth.RoleSuperAdmin), token: a.token(t, admin), wantCode: http.StatusBadRequest},
		{name: "super admin without school", body: body("kid", auth.RoleStudent), token: a.token(t, root), wantCode: http.StatusBadRequest},
		{name: "duplicate username", body: body("admin", auth.RoleTeacher), token: a.token(t, admin), wantCode: http.StatusConflict},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users"

		t.Run(tt.name, func(t *testing.T) {
			a.run(t, tt)
		})
	}

	t.Run("issue", func(t *testing.T) {
		emailsvc.ClearOutbox()
		rec := a.run(t, httpTest{
			method:   http.MethodPost,
			path:     "/v1/users",
			body:     body("awe", auth.RoleTeacher),
			token:    a.token(t, root),
			school:   wima.School.ID,
			wantCode: http.StatusCreated,
		})
		var res echoapi.AccountResponse
		decode(t, rec, &res)
		assert.Equal(t, "awe", res.Credentials.Identifier)
		assert.Equal(t, "Lycee Wima", res.Credentials.TenantName)
		assert.NotEmpty(t, res.Credentials.OneTimePassword)
		assert.True(t, res.User.MustChangePassword)

		outbox := emailsvc.Outbox()
		if assert.Len(t, outbox, 1) {
			assert.Contains(t, outbox[0].TextContent, res.Credentials.OneTimePassword)
		}

		login := a.run(t, httpTest{
			method:   http.MethodPost,
			path:     "/v1/auth/login",
			body:     echoapi.LoginRequest{Username: "awe", Password: res.Credentials.OneTimePassword},
			wantCode: http.StatusOK,
		})
		var lr echoapi.LoginResponse
		decode(t, login, &lr)
		assert.True(t, lr.MustChangePassword)
		assert.Equal(t, auth.AreaStaff, lr.Area)
	})
}

func TestTenantIsolation(t *testing.T) {
	a := setup(t)
	wima := a.env.NewTenant(t, "Lycee Wima", "wima", 1)
	mok := a.env.NewTenant(t, "Institut Mokengeli", "mok", 1)
	admin := testutil.CreateUser(t, a.env.Users, wima.School.ID, "Admin", "admin", "", "pwd", auth.RoleSchoolAdmin, true)
	teacher := testutil.CreateUser(t, a.env.Users, wima.School.ID, "Teacher", "teacher", "", "pwd", auth.RoleTeacher, true)
	root := testutil.CreateUser(t, a.env.Users, "", "Root", "root", "", "pwd", auth.RoleSuperAdmin, true)
	adminToken, teacherToken, rootToken := a.token(t, admin), a.token(t, teacher), a.token(t, root)

	payment := finance.NewPayment{StudentID: wima.Students[0].ID, FeeType: "tuition", Amount: 1000, Method: finance.MethodCash}

	tests := []httpTest{
		{
			name:     "teacher cannot record payments",
			method:   http.MethodPost,
			path:     "/v1/finance/payments",
			body:     payment,
			token:    teacherToken,
			wantCode: http.StatusForbidden,
			wantErr:  &httpErr{Message: "permission denied"},
		},
		{
			name:     "student of another school",
			path:     "/v1/students/" + mok.Students[0].ID,
			token:    adminToken,
			wantCode: http.StatusNotFound,
			wantErr:  &httpErr{Message: "not found"},
		},
		{
			name:     "own student",
			path:     "/v1/students/" + wima.Students[0].ID,
			token:    teacherToken,
			wantCode: http.StatusOK,
		},
		{
			name:     "member naming another school",
			path:     "/v1/classes",
			token:    adminToken,
			school:   mok.School.ID,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "duplicate section",
			method:   http.MethodPost,
			path:     "/v1/sections",
			body:     map[string]string{"class_id": wima.Class.ID, "name": "A"},
			token:    adminToken,
			wantCode: http.StatusConflict,
			wantErr:  &httpErr{Message: "a section with this name already exists", Fields: map[string]string{"name": "already exists"}},
		},
		{
			name:     "super admin must name a school",
			path:     "/v1/classes",
			token:    rootToken,
			wantCode: http.StatusBadRequest,
			wantErr:  &httpErr{Message: "invalid input", Fields: map[string]string{"school_id": "a target school is required"}},
		},
		{
			name:     "super admin names a school",
			path:     "/v1/students/" + mok.Students[0].ID,
			token:    rootToken,
			school:   mok.School.ID,
			wantCode: http.StatusOK,
		},
		{
			name:     "super admin names an unregistered school",
			method:   http.MethodPost,
			path:     "/v1/classes",
			body:     map[string]interface{}{"name": "5eme", "level": 5},
			token:    rootToken,
			school:   "no-such-school",
			wantCode: http.StatusNotFound,
			wantErr:  &httpErr{Message: "not found"},
		},
		{
			name:     "super admin looks in the wrong school",
			path:     "/v1/students/" + mok.Students[0].ID,
			token:    rootToken,
			school:   wima.School.ID,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "school registry is reserved to super admins",
			path:     "/v1/schools",
			token:    adminToken,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "super admin lists schools",
			path:     "/v1/schools",
			token:    rootToken,
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a.run(t, tt)
		})
	}
}

func TestFinanceApi_export(t *testing.T) {
	a := setup(t)
	wima := a.env.NewTenant(t, "Lycee Wima", "wima", 1)
	accountant := testutil.CreateUser(t, a.env.Users, wima.School.ID, "Accountant", "accountant", "", "pwd", auth.RoleAccountant, true)
	parent := testutil.CreateUser(t, a.env.Users, wima.School.ID, "Parent", "parent", "", "pwd", auth.RoleParent, true)
	token := a.token(t, accountant)

	a.run(t, httpTest{
		method: http.MethodPost,
		path:   "/v1/finance/payments",
		body: finance.NewPayment{
			ReceiptNo: "R-1",
			StudentID: wima.Students[0].ID,
			FeeType:   "tuition",
			Amount:    123450,
			Method:    finance.MethodMobileMoney,
			PaidBy:    "Mama",
			PaidAt:    "2024-10-14",
		},
		token:    token,
		wantCode: http.StatusCreated,
	})

	a.run(t, httpTest{path: "/v1/finance/payments/export.csv", token: a.token(t, parent), wantCode: http.StatusForbidden})
	a.run(t, httpTest{path: "/v1/finance/payments/export.csv?from=2024-10-15&to=2024-10-01", token: token, wantCode: http.StatusBadRequest})

	rec := a.run(t, httpTest{path: "/v1/finance/payments/export.csv", token: token, wantCode: http.StatusOK})
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv"), rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")

	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		finance.TransactionsHeader,
		{"2024-10-14", "R-1", "Student 1", "wima-001", "1234.50", "mobile_money", "Mama", "paid", ""},
	}, rows)
}
