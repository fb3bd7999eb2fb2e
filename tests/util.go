package testutil

import (
	"context"
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/storage/database"
)

// PrepareDB opens a private in-memory database with the full schema.
func PrepareDB(t *testing.T) *gorm.DB {
	t.Helper()
	conf := core.NewTestConfig()
	conf.Database.Name = "file:" + uuid.NewString() + "?mode=memory&cache=shared"

	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("database.Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })

	if err = database.Migrate(db); err != nil {
		t.Fatalf("database.Migrate() failed: %v", err)
	}
	return db
}

// NewValidator returns a validator with every custom rule registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	auth.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

type knownSchool string

func (k knownSchool) SchoolExists(_ context.Context, id string) (bool, error) {
	return id == string(k), nil
}

// Scope authorizes the system principal on schoolID, which is assumed registered.
func Scope(t *testing.T, schoolID string) auth.Scope {
	t.Helper()
	scope, err := auth.NewAuthorizer(nil, knownSchool(schoolID), nil).Authorize(context.Background(), auth.System, schoolID, auth.ModuleSchool, auth.Write)
	if err != nil {
		t.Fatalf("Authorize() failed: %v", err)
	}
	return scope
}

func CreateSchool(t *testing.T, repo school.Repository, name, code string) school.School {
	t.Helper()
	sch, err := repo.CreateSchool(context.Background(), school.School{
		Name:     name,
		Code:     code,
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("CreateSchool() failed: %v", err)
	}
	return sch
}

// CreateUser stores a user directly. A SUPER_ADMIN is created without a school.
func CreateUser(
	t *testing.T,
	repo user.Repository,
	schoolID string,
	name, uname, email, pwd string,
	role auth.Role,
	isActive bool,
) user.User {
	t.Helper()
	usr := user.User{
		Name:     name,
		Username: uname,
		Email:    null.NewString(email, email != ""),
		Role:     role,
		IsActive: isActive,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}

	var err error
	if role == auth.RoleSuperAdmin {
		usr, err = repo.CreateSuperAdmin(context.Background(), usr)
	} else {
		usr, err = repo.CreateUser(context.Background(), Scope(t, schoolID), usr)
	}
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// Member is a tenant principal for the given role, backed by no stored user.
func Member(schoolID string, role auth.Role) auth.Principal {
	return auth.Principal{UserID: uuid.NewString(), Role: role, SchoolID: schoolID}
}
