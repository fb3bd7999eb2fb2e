package auth

import (
	"strings"

	"github.com/pkg/errors"
)

// Role is the closed set of roles a principal can hold.
type Role string

const (
	RoleSuperAdmin  Role = "SUPER_ADMIN"
	RoleSchoolAdmin Role = "SCHOOL_ADMIN"
	RolePrincipal   Role = "PRINCIPAL"
	RoleTeacher     Role = "TEACHER"
	RoleStaff       Role = "STAFF"
	RoleAccountant  Role = "ACCOUNTANT"
	RoleStudent     Role = "STUDENT"
	RoleParent      Role = "PARENT"
)

var (
	AllRoles = []Role{
		RoleSuperAdmin,
		RoleSchoolAdmin,
		RolePrincipal,
		RoleTeacher,
		RoleStaff,
		RoleAccountant,
		RoleStudent,
		RoleParent,
	}

	ErrUnknownRole = errors.New("unknown role")
)

// ParseRole accepts any casing and surrounding whitespace.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", errors.Wrapf(ErrUnknownRole, "%q", s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleSchoolAdmin, RolePrincipal, RoleTeacher,
		RoleStaff, RoleAccountant, RoleStudent, RoleParent:
		return true
	}
	return false
}

// IsTenantScoped reports whether holders of the role must belong to a school.
func (r Role) IsTenantScoped() bool {
	return r.Valid() && r != RoleSuperAdmin
}

func (r Role) String() string { return string(r) }

// Name is the human readable role name.
func (r Role) Name() string {
	switch r {
	case RoleSuperAdmin:
		return "Super Admin"
	case RoleSchoolAdmin:
		return "School Admin"
	case RolePrincipal:
		return "Principal"
	case RoleTeacher:
		return "Teacher"
	case RoleStaff:
		return "Staff"
	case RoleAccountant:
		return "Accountant"
	case RoleStudent:
		return "Student"
	case RoleParent:
		return "Parent"
	}
	return string(r)
}

// RolePriority ranks roles. See CanManage.
func RolePriority(r Role) int {
	switch r {
	case RoleSuperAdmin:
		return 100
	case RoleSchoolAdmin:
		return 50
	case RolePrincipal:
		return 40
	// peers: neither manages the other
	case RoleAccountant, RoleTeacher:
		return 30
	case RoleStaff:
		return 20
	case RoleParent, RoleStudent:
		return 10
	}
	return 0
}

// CanManage reports whether `by` may hand out, edit or remove accounts and permission sets of role `r`.
// Tenant members only manage roles ranked strictly below their own; SUPER_ADMIN manages every tenant role.
func CanManage(by, r Role) bool {
	if by == RoleSuperAdmin {
		return r != RoleSuperAdmin
	}
	return RolePriority(r) < RolePriority(by)
}

// Area is a landing area of the frontend.
type Area string

const (
	AreaAdmin  Area = "admin"
	AreaStaff  Area = "staff"
	AreaPortal Area = "portal"
)

func (a Area) Path() string { return "/" + string(a) }

// LandingArea maps every role to the area a signed-in user is redirected to.
func LandingArea(r Role) Area {
	switch r {
	case RoleSuperAdmin:
		return AreaAdmin
	case RoleSchoolAdmin, RolePrincipal, RoleTeacher, RoleStaff, RoleAccountant:
		return AreaStaff
	case RoleStudent, RoleParent:
		return AreaPortal
	}
	return ""
}

// RoleOption is used to list assignable roles.
type RoleOption struct {
	Name  string `json:"name"`
	Value Role   `json:"value"`
}

// AssignableRoles returns the tenant roles `by` is allowed to hand out.
func AssignableRoles(by Role) []RoleOption {
	opts := make([]RoleOption, 0, len(AllRoles))
	for _, r := range AllRoles {
		if r.IsTenantScoped() && CanManage(by, r) {
			opts = append(opts, RoleOption{Name: r.Name(), Value: r})
		}
	}
	return opts
}
