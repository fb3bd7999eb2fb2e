package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/academic"
	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/user"
	metricsvc "github.com/trezcool/shule/services/metrics"
)

type userApi struct {
	svc       *user.Service
	students  *student.Service
	academics *academic.Service
	tokens    *TokenIssuer
	validate  *validator.Validate
	logger    core.Logger
	metrics   *metricsvc.Metrics
}

func newUserApi(opts *Options) *userApi {
	return &userApi{
		svc:       opts.UserSvc,
		students:  opts.StudentSvc,
		academics: opts.AcademicSvc,
		tokens:    opts.Tokens,
		validate:  opts.Validate,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
}

func registerAuthAPI(g *echo.Group, authed echo.MiddlewareFunc, opts *Options) {
	api := newUserApi(opts)

	ag := g.Group("/auth")

	// un-authed endpoints
	// TODO: rate limit `/login` & `/password-reset`
	ag.POST("/login", api.login)
	ag.POST("/password-reset", api.resetPassword)
	ag.POST("/password-reset-confirm", api.confirmPasswordReset)

	// authed endpoints
	ag.POST("/token-refresh", api.refreshToken, authed)

	mg := g.Group("/me", authed)
	mg.GET("", api.me)
	mg.PUT("/password", api.changePassword)
	mg.GET("/students", api.linkedStudents)
	mg.GET("/results", api.myResults)
}

func registerUserAPI(g *echo.Group, opts *Options) {
	api := newUserApi(opts)

	g.POST("", api.create)
	g.GET("", api.query)
	g.GET("/roles", api.queryRoles)
	g.GET("/:id", api.retrieve)
	g.PUT("/:id", api.update)
	g.DELETE("/:id", api.destroy)
}

// Handlers

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := bindValid(ctx, api.validate, &data, "LoginRequest"); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Username, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := api.tokens.GenerateToken(api.tokens.Claims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	area := auth.LandingArea(usr.Role)
	return ctx.JSON(http.StatusOK, LoginResponse{
		Token:              token,
		Area:               area,
		LandingPath:        area.Path(),
		MustChangePassword: usr.MustChangePassword,
	})
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	claims, ok := contextClaims(ctx)
	usr, uok := contextUser(ctx)
	if !ok || !uok {
		return errMissingToken
	}
	if !api.tokens.refreshable(claims) {
		return errRefreshExpire
	}

	token, err := api.tokens.GenerateToken(api.tokens.Claims(usr, claims.OrigIssuedAt))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	area := auth.LandingArea(usr.Role)
	return ctx.JSON(http.StatusOK, LoginResponse{
		Token:              token,
		Area:               area,
		LandingPath:        area.Path(),
		MustChangePassword: usr.MustChangePassword,
	})
}

func (api *userApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := bindValid(ctx, api.validate, &data, "PasswordResetRequest"); err != nil {
		return err
	}

	err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email)
	if err != nil && errors.Cause(err) != core.ErrNotFound {
		// do not return errors to attackers
		api.logger.Error("requesting password reset", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Message: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *userApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := bindValid(ctx, api.validate, &data, "ResetUserPassword"); err != nil {
		return err
	}
	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: true, Message: "Password has been reset with the new password."})
}

func (api *userApi) me(ctx echo.Context) error {
	usr, err := api.svc.Me(ctx.Request().Context(), principal(ctx))
	if err != nil {
		return errors.Wrap(err, "getting current user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) changePassword(ctx echo.Context) error {
	usr, ok := contextUser(ctx)
	if !ok {
		return core.ErrUnauthenticated
	}
	var data user.ChangePassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangePassword")
	}
	if err := data.Validate(api.validate, usr); err != nil {
		return err
	}

	usr, err := api.svc.ChangePassword(ctx.Request().Context(), principal(ctx), data)
	if err != nil {
		return errors.Wrap(err, "changing password")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) linkedStudents(ctx echo.Context) error {
	students, err := api.students.Linked(ctx.Request().Context(), principal(ctx))
	if err != nil {
		return errors.Wrap(err, "getting linked students")
	}
	return ctx.JSON(http.StatusOK, emptyIfNil(students))
}

func (api *userApi) myResults(ctx echo.Context) error {
	results, err := api.academics.ResultsForPrincipal(ctx.Request().Context(), principal(ctx))
	if err != nil {
		return errors.Wrap(err, "getting results")
	}
	return ctx.JSON(http.StatusOK, emptyIfNil(results))
}

func (api *userApi) create(ctx echo.Context) error {
	var data user.NewAccount
	if err := bindValid(ctx, api.validate, &data, "NewAccount"); err != nil {
		return err
	}

	usr, creds, err := api.svc.CreateAccount(ctx.Request().Context(), principal(ctx), targetSchool(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating account")
	}
	if api.metrics != nil {
		api.metrics.CredentialsIssued(usr.Role)
	}
	return ctx.JSON(http.StatusCreated, AccountResponse{User: usr, Credentials: creds})
}

func (api *userApi) query(ctx echo.Context) error {
	var filter user.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	users, err := api.svc.Query(ctx.Request().Context(), principal(ctx), targetSchool(ctx), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	return ctx.JSON(http.StatusOK, emptyIfNil(users))
}

func (api *userApi) queryRoles(ctx echo.Context) error {
	p := principal(ctx)
	if !p.IsAuthenticated() {
		return core.ErrUnauthenticated
	}
	return ctx.JSON(http.StatusOK, auth.AssignableRoles(p.Role))
}

func (api *userApi) retrieve(ctx echo.Context) error {
	usr, err := api.svc.Get(ctx.Request().Context(), principal(ctx), targetSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) update(ctx echo.Context) error {
	var data user.UpdateUser
	if err := bindValid(ctx, api.validate, &data, "UpdateUser"); err != nil {
		return err
	}
	usr, err := api.svc.Update(ctx.Request().Context(), principal(ctx), targetSchool(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), principal(ctx), targetSchool(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token              string    `json:"token"`
		Area               auth.Area `json:"area"`
		LandingPath        string    `json:"landing_path"`
		MustChangePassword bool      `json:"must_change_password"`
	}

	AccountResponse struct {
		User        user.User        `json:"user"`
		Credentials user.Credentials `json:"credentials"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
