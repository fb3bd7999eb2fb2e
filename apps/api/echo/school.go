package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/school"
)

type schoolApi struct {
	svc      *school.Service
	validate *validator.Validate
}

func registerSchoolAPI(g *echo.Group, opts *Options) {
	api := schoolApi{svc: opts.SchoolSvc, validate: opts.Validate}

	superAdmin := superAdminMiddleware(opts.Authz)
	g.POST("", api.create, superAdmin)
	g.GET("", api.query, superAdmin)
	g.GET("/:id", api.retrieve)
	g.PUT("/:id", api.update)
	g.POST("/:id/activate", api.activate)
	g.POST("/:id/deactivate", api.deactivate)
}

func (api *schoolApi) create(ctx echo.Context) error {
	var data school.NewSchool
	if err := bindValid(ctx, api.validate, &data, "NewSchool"); err != nil {
		return err
	}
	sch, err := api.svc.Create(ctx.Request().Context(), principal(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating school")
	}
	return ctx.JSON(http.StatusCreated, sch)
}

func (api *schoolApi) query(ctx echo.Context) error {
	var filter school.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	schools, err := api.svc.Query(ctx.Request().Context(), principal(ctx), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying schools")
	}
	return ctx.JSON(http.StatusOK, emptyIfNil(schools))
}

func (api *schoolApi) retrieve(ctx echo.Context) error {
	sch, err := api.svc.Get(ctx.Request().Context(), principal(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting school")
	}
	return ctx.JSON(http.StatusOK, sch)
}

func (api *schoolApi) update(ctx echo.Context) error {
	var data school.UpdateSchool
	if err := bindValid(ctx, api.validate, &data, "UpdateSchool"); err != nil {
		return err
	}
	sch, err := api.svc.Update(ctx.Request().Context(), principal(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating school")
	}
	return ctx.JSON(http.StatusOK, sch)
}

func (api *schoolApi) activate(ctx echo.Context) error {
	return api.setActive(ctx, true)
}

func (api *schoolApi) deactivate(ctx echo.Context) error {
	return api.setActive(ctx, false)
}

func (api *schoolApi) setActive(ctx echo.Context, active bool) error {
	sch, err := api.svc.SetActive(ctx.Request().Context(), principal(ctx), ctx.Param("id"), active)
	if err != nil {
		return errors.Wrap(err, "setting school active")
	}
	return ctx.JSON(http.StatusOK, sch)
}
