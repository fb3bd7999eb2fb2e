package rbac

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"gorm.io/datatypes"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/auth"
)

// SystemWide is the SchoolKey of permission sets applying to every school without its own set.
const SystemWide = "*"

// RolePermission overrides the built-in grants of a role, either for one school or system-wide.
// There is at most one set per (role, school key).
type RolePermission struct {
	ID        string                          `json:"id" gorm:"primaryKey;size:36"`
	Role      auth.Role                       `json:"role" gorm:"size:20;not null;uniqueIndex:idx_role_permissions_role_key"`
	SchoolID  null.String                     `json:"school_id" gorm:"size:36;index"` // NULL when system-wide
	SchoolKey string                          `json:"-" gorm:"size:36;not null;uniqueIndex:idx_role_permissions_role_key"`
	Grants    datatypes.JSONType[auth.Grants] `json:"grants"`
	UpdatedBy string                          `json:"updated_by" gorm:"size:36"`
	CreatedAt time.Time                       `json:"created_at"`
	UpdatedAt time.Time                       `json:"updated_at"`
}

func (rp RolePermission) IsSystemWide() bool { return rp.SchoolKey == SystemWide }

type NewRolePermission struct {
	Role   auth.Role   `json:"role" validate:"required,tenantrole"`
	Grants auth.Grants `json:"grants" validate:"required"`
}

func (nrp *NewRolePermission) Validate(validate *validator.Validate) error {
	nrp.Role = auth.Role(strings.ToUpper(core.CleanString(string(nrp.Role))))
	return validate.Struct(nrp)
}

type UpdateRolePermission struct {
	Grants auth.Grants `json:"grants" validate:"required"`
}

func (urp *UpdateRolePermission) Validate(validate *validator.Validate) error {
	return validate.Struct(urp)
}
