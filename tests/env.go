package testutil

import (
	"sync"
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/academic"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/finance"
	"github.com/trezcool/shule/core/hostel"
	"github.com/trezcool/shule/core/inventory"
	"github.com/trezcool/shule/core/library"
	"github.com/trezcool/shule/core/rbac"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/user"
	emailsvc "github.com/trezcool/shule/services/email"
	logsvc "github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/storage/database/gormdb"
)

// Env is a fully wired application on top of a private database.
// Emails are rendered synchronously into emailsvc.Outbox.
type Env struct {
	DB         *gorm.DB
	Conf       *core.Config
	Logger     *logsvc.RollbarLogger
	Validate   *validator.Validate
	Translator ut.Translator
	Authz      *auth.Authorizer

	Schools    school.Repository
	Users      user.Repository
	Academic   academic.Repository
	Students   student.Repository
	Attendance attendance.Repository
	Finance    finance.Repository
	Hostels    hostel.Repository
	Library    library.Repository
	Inventory  inventory.Repository
	RBAC       rbac.Repository

	UserSvc       *user.Service
	SchoolSvc     *school.Service
	AcademicSvc   *academic.Service
	StudentSvc    *student.Service
	AttendanceSvc *attendance.Service
	FinanceSvc    *finance.Service
	HostelSvc     *hostel.Service
	LibrarySvc    *library.Service
	InventorySvc  *inventory.Service
	RBACSvc       *rbac.Service

	mu          sync.Mutex
	constraints []string
}

func NewEnv(t *testing.T) *Env {
	t.Helper()
	env := &Env{
		DB:   PrepareDB(t),
		Conf: core.NewTestConfig(),
	}
	env.Logger = logsvc.NewRollbarLogger(zap.NewNop(), env.Conf)
	env.Validate, env.Translator = NewValidator()
	emailsvc.ClearOutbox()
	mailSvc := emailsvc.NewConsoleServiceMock(env.Conf, env.Logger)

	observer := gormdb.ConstraintObserver(env.observeConstraint)
	schools := gormdb.NewSchoolRepository(env.DB, observer)
	users := gormdb.NewUserRepository(env.DB, observer)
	academics := gormdb.NewAcademicRepository(env.DB, observer)
	students := gormdb.NewStudentRepository(env.DB, observer)
	rbacRepo := gormdb.NewRBACRepository(env.DB, observer)
	env.Schools, env.Users, env.Academic, env.Students, env.RBAC = schools, users, academics, students, rbacRepo
	env.Attendance = gormdb.NewAttendanceRepository(env.DB, observer)
	env.Finance = gormdb.NewFinanceRepository(env.DB, observer)
	env.Hostels = gormdb.NewHostelRepository(env.DB, observer)
	env.Library = gormdb.NewLibraryRepository(env.DB, observer)
	env.Inventory = gormdb.NewInventoryRepository(env.DB, observer)

	env.Authz = auth.NewAuthorizer(rbac.NewPermissionSource(rbacRepo), schools, nil)

	env.UserSvc = user.NewService(users, schools, env.Authz, mailSvc, env.Logger, env.Conf)
	env.SchoolSvc = school.NewService(schools, env.Authz)
	env.AcademicSvc = academic.NewService(academics, students, users, env.Authz)
	env.StudentSvc = student.NewService(students, academics, users, env.Authz)
	env.AttendanceSvc = attendance.NewService(env.Attendance, academics, students, users, env.Authz)
	env.FinanceSvc = finance.NewService(env.Finance, students, env.Authz)
	env.HostelSvc = hostel.NewService(env.Hostels, students, env.Authz, env.Logger)
	env.LibrarySvc = library.NewService(env.Library, students, env.Authz)
	env.InventorySvc = inventory.NewService(env.Inventory, env.Authz, env.Logger)
	env.RBACSvc = rbac.NewService(rbacRepo, env.Authz)
	return env
}

func (env *Env) observeConstraint(collection string) {
	env.mu.Lock()
	env.constraints = append(env.constraints, collection)
	env.mu.Unlock()
}

// Constraints lists the collections of every uniqueness violation so far.
func (env *Env) Constraints() []string {
	env.mu.Lock()
	defer env.mu.Unlock()
	return append([]string(nil), env.constraints...)
}
