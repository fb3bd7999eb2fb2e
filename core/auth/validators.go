package auth

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

var (
	roleTag  = "role"
	roleText = "invalid role"

	tenantRoleTag  = "tenantrole"
	tenantRoleText = "role must belong to a school"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(roleTag, roleValidation)
	core.RegisterCustomTranslation(validate, translator, roleTag, roleText)

	_ = validate.RegisterValidation(tenantRoleTag, tenantRoleValidation)
	core.RegisterCustomTranslation(validate, translator, tenantRoleTag, tenantRoleText)
}

func fieldRole(fl validator.FieldLevel) (Role, bool) {
	switch v := fl.Field().Interface().(type) {
	case Role:
		return v, true
	case string:
		return Role(v), true
	}
	return "", false
}

func roleValidation(fl validator.FieldLevel) bool {
	r, ok := fieldRole(fl)
	return ok && r.Valid()
}

func tenantRoleValidation(fl validator.FieldLevel) bool {
	r, ok := fieldRole(fl)
	return ok && r.IsTenantScoped()
}
