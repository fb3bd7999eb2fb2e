package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLandingArea(t *testing.T) {
	want := map[Role]Area{
		RoleSuperAdmin:  AreaAdmin,
		RoleSchoolAdmin: AreaStaff,
		RolePrincipal:   AreaStaff,
		RoleTeacher:     AreaStaff,
		RoleStaff:       AreaStaff,
		RoleAccountant:  AreaStaff,
		RoleStudent:     AreaPortal,
		RoleParent:      AreaPortal,
	}
	assert.Len(t, want, len(AllRoles))
	for _, r := range AllRoles {
		assert.Equal(t, want[r], LandingArea(r), r)
		assert.NotEmpty(t, DefaultGrants(r), r)
		assert.NotZero(t, RolePriority(r), r)
	}
	assert.Equal(t, Area(""), LandingArea("JANITOR"))
	assert.Equal(t, "/portal", AreaPortal.Path())
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{in: "TEACHER", want: RoleTeacher},
		{in: " school_admin ", want: RoleSchoolAdmin},
		{in: "parent", want: RoleParent},
		{in: "janitor", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAssignableRoles(t *testing.T) {
	values := func(opts []RoleOption) []Role {
		out := make([]Role, 0, len(opts))
		for _, o := range opts {
			out = append(out, o.Value)
		}
		return out
	}
	assert.NotContains(t, values(AssignableRoles(RoleSuperAdmin)), RoleSuperAdmin)
	assert.Contains(t, values(AssignableRoles(RoleSuperAdmin)), RoleSchoolAdmin)
	assert.NotContains(t, values(AssignableRoles(RoleSchoolAdmin)), RoleSchoolAdmin)
	assert.Contains(t, values(AssignableRoles(RoleSchoolAdmin)), RolePrincipal)
	assert.NotContains(t, values(AssignableRoles(RolePrincipal)), RolePrincipal)
	assert.ElementsMatch(t, []Role{RoleStaff, RoleStudent, RoleParent}, values(AssignableRoles(RoleTeacher)))
	assert.Empty(t, AssignableRoles(RoleParent))
}

func TestCanManage(t *testing.T) {
	tests := []struct {
		by, r Role
		want  bool
	}{
		{RoleSuperAdmin, RoleSchoolAdmin, true},
		{RoleSuperAdmin, RoleSuperAdmin, false},
		{RoleSchoolAdmin, RoleSchoolAdmin, false},
		{RoleSchoolAdmin, RolePrincipal, true},
		{RolePrincipal, RolePrincipal, false},
		{RolePrincipal, RoleAccountant, true},
		{RoleAccountant, RoleTeacher, false},
		{RoleTeacher, RoleAccountant, false},
		{RoleTeacher, RoleStaff, true},
		{RoleParent, RoleStudent, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.by)+"/"+string(tt.r), func(t *testing.T) {
			assert.Equal(t, tt.want, CanManage(tt.by, tt.r))
		})
	}
}

func TestGrants(t *testing.T) {
	assert.True(t, LevelWrite.Allows(Read))
	assert.False(t, LevelRead.Allows(Write))
	assert.False(t, Level("").Allows(Read))

	g := DefaultGrants(RoleTeacher)
	assert.False(t, g.Allows(ModuleFinance, Write))
	assert.True(t, g.Allows(ModuleAttendance, Write))

	assert.NoError(t, Grants{ModuleFinance: LevelRead}.Validate())
	assert.Error(t, Grants{"canteen": LevelRead}.Validate())
	assert.Error(t, Grants{ModuleFinance: "admin"}.Validate())
}
