package main

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/school"
	emailsvc "github.com/trezcool/shule/services/email"
	testutil "github.com/trezcool/shule/tests"
)

func setup(t *testing.T) (*commandLine, *testutil.Env) {
	env := testutil.NewEnv(t)

	// start CLI
	return &commandLine{
		db:        env.DB,
		validate:  env.Validate,
		usrSvc:    env.UserSvc,
		schoolSvc: env.SchoolSvc,
	}, env
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.ErrorIs(t, err, tt.wantErr)
	case tt.wantErrStr != "":
		assert.EqualError(t, err, tt.wantErrStr)
	default:
		assert.NoError(t, err)
	}
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

func Test_commandLine_run(t *testing.T) {
	cli, _ := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "migrate", args: []string{"migrate"}},
		{name: "migrate twice", args: []string{"migrate"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}
}

func Test_commandLine_addSchool(t *testing.T) {
	cli, env := setup(t)

	tests := []cliTest{
		{name: "no args", args: []string{"addschool"}, wantErr: errHelp},
		{name: "no code", args: []string{"addschool", "-name", "Lycee Wima"}, wantErr: errHelp},
		{name: "create", args: []string{"addschool", "-name", "Lycee Wima", "-code", "WIMA"}},
		{name: "another", args: []string{"addschool", "-name", "Institut Mokengeli", "-code", "mok", "-email", "info@mok.cd"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	t.Run("duplicate code", func(t *testing.T) {
		err := cli.run([]string{"admin", "addschool", "-name", "Wima Bis", "-code", "wima"})
		var cErr *core.ConstraintError
		require.True(t, errors.As(err, &cErr), "got %v", err)
		assert.Equal(t, []string{"code"}, cErr.Fields)
	})

	schools, err := env.SchoolSvc.Query(context.Background(), auth.System, school.QueryFilter{})
	require.NoError(t, err)
	if assert.Len(t, schools, 2) {
		codes := []string{schools[0].Code, schools[1].Code}
		assert.ElementsMatch(t, []string{"wima", "mok"}, codes)
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, env := setup(t)
	sch := testutil.CreateSchool(t, env.Schools, "Lycee Wima", "wima")

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "super admin: no password", args: []string{"adduser", "-username", "root"}, wantErr: errHelp},
		{name: "super admin", args: []string{"adduser", "-username", "root", "-email", "root@shule.cd"}, extra: extra{pwd: "Kin-Mbote#2024"}},
		{name: "account: no role", args: []string{"adduser", "-username", "awe", "-school", sch.ID}, wantErr: errHelp},
		{name: "account: unknown role", args: []string{"adduser", "-username", "awe", "-school", sch.ID, "-role", "janitor"}, wantErr: auth.ErrUnknownRole},
		{name: "account: unknown school", args: []string{"adduser", "-username", "awe", "-school", "nope", "-role", "teacher"}, wantErr: core.ErrNotFound},
		{name: "account", args: []string{"adduser", "-username", "awe", "-email", "awe@wima.cd", "-school", sch.ID, "-role", "teacher"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		pwd := ""
		if extra, ok := tt.extra.(extra); ok {
			pwd = extra.pwd
		}
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	t.Run("super admin: weak password", func(t *testing.T) {
		mockPassword("password")
		err := cli.run([]string{"admin", "adduser", "-username", "weak"})
		var vErrs validator.ValidationErrors
		assert.True(t, errors.As(err, &vErrs), "got %v", err)
	})

	root, err := env.Users.GetUserByUsernameOrEmail(context.Background(), "root")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleSuperAdmin, root.Role)
	assert.False(t, root.SchoolID.Valid)
	assert.NoError(t, root.CheckPassword("Kin-Mbote#2024"))

	awe, err := env.Users.GetUserByUsernameOrEmail(context.Background(), "awe")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleTeacher, awe.Role)
	assert.Equal(t, sch.ID, awe.SchoolID.String)
	assert.True(t, awe.MustChangePassword)

	outbox := emailsvc.Outbox()
	if assert.Len(t, outbox, 1) {
		assert.Equal(t, "awe@wima.cd", outbox[0].To[0].Address)
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, env := setup(t)
	sch := testutil.CreateSchool(t, env.Schools, "Lycee Wima", "wima")
	usr := testutil.CreateUser(t, env.Users, sch.ID, "User", "awe", "awe@test.cd", "mdr", auth.RoleTeacher, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: core.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", "AWE@test.cd"}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		pwd := ""
		if extra, ok := tt.extra.(extra); ok {
			pwd = extra.pwd
		}
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			tt.check(t, err)
			if err == nil && pwd != "" {
				refreshed, err := env.Users.GetUserByID(context.Background(), usr.ID)
				require.NoError(t, err)
				assert.NoError(t, refreshed.CheckPassword(pwd))
			}
		})
	}
}
