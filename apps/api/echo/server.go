package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"go.uber.org/zap"

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
	metricsvc "github.com/trezcool/shule/services/metrics"
)

type (
	Options struct {
		Conf           *core.Config
		Logger         core.Logger
		Zap            *zap.Logger
		Metrics        *metricsvc.Metrics
		Validate       *validator.Validate
		Translator     ut.Translator
		Authz          *auth.Authorizer
		Tokens         *TokenIssuer
		DisableReqLogs bool
		SignalShutdown func()

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

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	if s.opts.Metrics != nil {
		s.app.Use(s.opts.Metrics.Middleware())
	}
	if !s.opts.DisableReqLogs && s.opts.Zap != nil {
		s.app.Use(accessLogMiddleware(s.opts.Zap))
	}
	// do not recover in DEV|TEST mode
	if !(conf.App.Debug || conf.App.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	if conf.Server.RequestTimeout > 0 {
		s.app.Use(middleware.ContextTimeout(conf.Server.RequestTimeout))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.opts.SignalShutdown)
	s.app.Debug = conf.App.Debug

	s.app.GET("/", s.home)
	s.app.GET("/healthz", healthz)
	if s.opts.Metrics != nil {
		s.app.GET("/metrics", echo.WrapHandler(s.opts.Metrics.Handler()))
	}

	v1 := s.app.Group("/v1")
	authed := authMiddleware(s.opts.Tokens, s.opts.UserSvc)
	registerAuthAPI(v1, authed, s.opts)

	ag := v1.Group("", authed)
	registerUserAPI(ag.Group("/users"), s.opts)
	registerSchoolAPI(ag.Group("/schools"), s.opts)
	registerAcademicAPI(ag, s.opts)
	registerStudentAPI(ag.Group("/students"), s.opts)
	registerAttendanceAPI(ag.Group("/attendance"), s.opts)
	registerFinanceAPI(ag.Group("/finance"), s.opts)
	registerHostelAPI(ag, s.opts)
	registerLibraryAPI(ag.Group("/library"), s.opts)
	registerInventoryAPI(ag.Group("/inventory"), s.opts)
	registerRBACAPI(ag.Group("/permissions"), s.opts)
}

func (s *server) Start() error {
	return s.app.Start(s.opts.Conf.Server.Address)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.opts.Conf.App.Name+" API!")
}

func healthz(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
