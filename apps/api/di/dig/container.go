package dig_container

import (
	"context"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"
	"go.uber.org/zap"
	"gorm.io/gorm"

	echoapi "github.com/trezcool/shule/apps/api/echo"
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
	metricsvc "github.com/trezcool/shule/services/metrics"
	"github.com/trezcool/shule/storage/database"
	"github.com/trezcool/shule/storage/database/gormdb"
)

// ServerParams gathers everything the API server is built from.
type ServerParams struct {
	dig.In

	Conf       *core.Config
	Logger     core.Logger
	Zap        *zap.Logger
	Metrics    *metricsvc.Metrics
	Validate   *validator.Validate
	Translator ut.Translator
	Authz      *auth.Authorizer
	Tokens     *echoapi.TokenIssuer

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
}

func newLogger(zl *zap.Logger, conf *core.Config) *logsvc.RollbarLogger {
	logger := logsvc.NewRollbarLogger(zl, conf)
	logger.Enable(!(conf.App.Debug || conf.App.TestMode) && conf.App.RollbarToken != "")
	return logger
}

func newDB(conf *core.Config, logger core.Logger) (*gorm.DB, error) {
	if err := database.CreateIfNotExist(context.Background(), conf); err != nil {
		return nil, errors.Wrap(err, "creating database")
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = database.Migrate(db); err != nil {
		return nil, errors.Wrap(err, "migrating database")
	}
	logger.Info("database ready", map[string]interface{}{"engine": conf.Database.Engine, "name": conf.Database.Name})
	return db, nil
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.App.Debug || conf.App.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	auth.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate
}

func newMetrics() *metricsvc.Metrics {
	return metricsvc.NewWithRegisterer(prometheus.DefaultRegisterer)
}

func constraintObserver(m *metricsvc.Metrics) gormdb.ConstraintObserver { return m.ObserveConstraint }
func decisionObserver(m *metricsvc.Metrics) auth.DecisionObserver       { return m.ObserveDecision }

func newServerOptions(p ServerParams) *echoapi.Options {
	return &echoapi.Options{
		Conf:          p.Conf,
		Logger:        p.Logger,
		Zap:           p.Zap,
		Metrics:       p.Metrics,
		Validate:      p.Validate,
		Translator:    p.Translator,
		Authz:         p.Authz,
		Tokens:        p.Tokens,
		UserSvc:       p.UserSvc,
		SchoolSvc:     p.SchoolSvc,
		AcademicSvc:   p.AcademicSvc,
		StudentSvc:    p.StudentSvc,
		AttendanceSvc: p.AttendanceSvc,
		FinanceSvc:    p.FinanceSvc,
		HostelSvc:     p.HostelSvc,
		LibrarySvc:    p.LibrarySvc,
		InventorySvc:  p.InventorySvc,
		RBACSvc:       p.RBACSvc,
	}
}

type NewConfigFunc func() *core.Config

// New returns a new dependency injection dig.Container
func New(newConfig NewConfigFunc) *dig.Container {
	c := dig.New()

	// ambient
	must(c.Provide(newConfig))
	must(c.Provide(logsvc.NewZap))
	must(c.Provide(newLogger))
	must(c.Provide(func(l *logsvc.RollbarLogger) core.Logger { return l }))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(newMetrics))
	must(c.Provide(constraintObserver))
	must(c.Provide(decisionObserver))
	must(c.Provide(newEmailService))

	// storage
	must(c.Provide(newDB))
	must(c.Provide(gormdb.NewSchoolRepository, dig.As(
		new(school.Repository),
		new(user.SchoolGetter),
		new(auth.SchoolRegistry),
	)))
	must(c.Provide(gormdb.NewUserRepository, dig.As(
		new(user.Repository),
		new(academic.UserGetter),
		new(student.UserGetter),
		new(attendance.UserGetter),
	)))
	must(c.Provide(gormdb.NewAcademicRepository, dig.As(
		new(academic.Repository),
		new(student.ClassDirectory),
		new(attendance.SectionGetter),
	)))
	must(c.Provide(gormdb.NewStudentRepository, dig.As(
		new(student.Repository),
		new(academic.StudentDirectory),
		new(attendance.StudentDirectory),
		new(finance.StudentDirectory),
		new(hostel.StudentChecker),
		new(library.StudentDirectory),
	)))
	must(c.Provide(gormdb.NewAttendanceRepository, dig.As(new(attendance.Repository))))
	must(c.Provide(gormdb.NewFinanceRepository, dig.As(new(finance.Repository))))
	must(c.Provide(gormdb.NewHostelRepository, dig.As(new(hostel.Repository))))
	must(c.Provide(gormdb.NewLibraryRepository, dig.As(new(library.Repository))))
	must(c.Provide(gormdb.NewInventoryRepository, dig.As(new(inventory.Repository))))
	must(c.Provide(gormdb.NewRBACRepository, dig.As(new(rbac.Repository))))

	// authorization
	must(c.Provide(rbac.NewPermissionSource, dig.As(new(auth.PermissionSource))))
	must(c.Provide(auth.NewAuthorizer))

	// services
	must(c.Provide(user.NewService))
	must(c.Provide(school.NewService))
	must(c.Provide(academic.NewService))
	must(c.Provide(student.NewService))
	must(c.Provide(attendance.NewService))
	must(c.Provide(finance.NewService))
	must(c.Provide(hostel.NewService))
	must(c.Provide(library.NewService))
	must(c.Provide(inventory.NewService))
	must(c.Provide(rbac.NewService))

	// api
	must(c.Provide(echoapi.NewTokenIssuer))
	must(c.Provide(newServerOptions))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
