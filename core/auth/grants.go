package auth

import "github.com/pkg/errors"

// Module is a permission domain.
type Module string

const (
	ModuleSchool      Module = "school"
	ModuleUsers       Module = "users"
	ModuleAcademic    Module = "academic"
	ModuleStudents    Module = "students"
	ModuleAttendance  Module = "attendance"
	ModuleFinance     Module = "finance"
	ModuleHostel      Module = "hostel"
	ModuleLibrary     Module = "library"
	ModuleInventory   Module = "inventory"
	ModulePermissions Module = "permissions"
)

var AllModules = []Module{
	ModuleSchool,
	ModuleUsers,
	ModuleAcademic,
	ModuleStudents,
	ModuleAttendance,
	ModuleFinance,
	ModuleHostel,
	ModuleLibrary,
	ModuleInventory,
	ModulePermissions,
}

func (m Module) Valid() bool {
	for _, mod := range AllModules {
		if m == mod {
			return true
		}
	}
	return false
}

// Access is the operation class being requested.
type Access string

const (
	Read  Access = "read"
	Write Access = "write"
)

// Level is what a role holds on a module. Write implies read.
type Level string

const (
	LevelNone  Level = "none"
	LevelRead  Level = "read"
	LevelWrite Level = "write"
)

func (l Level) Valid() bool {
	return l == LevelNone || l == LevelRead || l == LevelWrite
}

func (l Level) Allows(acc Access) bool {
	switch acc {
	case Read:
		return l == LevelRead || l == LevelWrite
	case Write:
		return l == LevelWrite
	}
	return false
}

// Grants is a role's permission set; modules absent from the map are LevelNone.
type Grants map[Module]Level

func (g Grants) Allows(m Module, acc Access) bool {
	return g[m].Allows(acc)
}

// Validate rejects unknown modules and levels.
func (g Grants) Validate() error {
	for m, l := range g {
		if !m.Valid() {
			return errors.Errorf("unknown module %q", m)
		}
		if !l.Valid() {
			return errors.Errorf("invalid level %q for module %q", l, m)
		}
	}
	return nil
}

func grantAll(l Level) Grants {
	g := make(Grants, len(AllModules))
	for _, m := range AllModules {
		g[m] = l
	}
	return g
}

// DefaultGrants is the built-in permission set of every role,
// used when no RolePermission set overrides it.
func DefaultGrants(r Role) Grants {
	switch r {
	case RoleSuperAdmin, RoleSchoolAdmin:
		return grantAll(LevelWrite)
	case RolePrincipal:
		g := grantAll(LevelWrite)
		g[ModuleFinance] = LevelRead
		g[ModulePermissions] = LevelRead
		return g
	case RoleTeacher:
		return Grants{
			ModuleAcademic:   LevelWrite,
			ModuleAttendance: LevelWrite,
			ModuleStudents:   LevelRead,
			ModuleLibrary:    LevelRead,
			ModuleSchool:     LevelRead,
			ModuleHostel:     LevelRead,
		}
	case RoleStaff:
		return Grants{
			ModuleHostel:     LevelWrite,
			ModuleLibrary:    LevelWrite,
			ModuleInventory:  LevelWrite,
			ModuleSchool:     LevelRead,
			ModuleStudents:   LevelRead,
			ModuleAttendance: LevelRead,
		}
	case RoleAccountant:
		return Grants{
			ModuleFinance:   LevelWrite,
			ModuleSchool:    LevelRead,
			ModuleStudents:  LevelRead,
			ModuleInventory: LevelRead,
		}
	case RoleStudent, RoleParent:
		return Grants{
			ModuleSchool:     LevelRead,
			ModuleAcademic:   LevelRead,
			ModuleAttendance: LevelRead,
			ModuleLibrary:    LevelRead,
		}
	}
	return Grants{}
}
