package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/rbac"
)

type rbacApi struct {
	svc      *rbac.Service
	validate *validator.Validate
}

func registerRBACAPI(g *echo.Group, opts *Options) {
	api := rbacApi{svc: opts.RBACSvc, validate: opts.Validate}

	g.POST("", api.create)
	g.GET("", api.query)
	g.GET("/effective", api.effective)
	g.GET("/:id", api.retrieve)
	g.PUT("/:id", api.update)
	g.DELETE("/:id", api.destroy)
}

func (api *rbacApi) create(ctx echo.Context) error {
	var data rbac.NewRolePermission
	if err := bindValid(ctx, api.validate, &data, "NewRolePermission"); err != nil {
		return err
	}
	rp, err := api.svc.Create(ctx.Request().Context(), principal(ctx), targetSchool(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating role permission")
	}
	return ctx.JSON(http.StatusCreated, rp)
}

func (api *rbacApi) query(ctx echo.Context) error {
	sets, err := api.svc.Query(ctx.Request().Context(), principal(ctx), targetSchool(ctx))
	if err != nil {
		return errors.Wrap(err, "querying role permissions")
	}
	return ctx.JSON(http.StatusOK, emptyIfNil(sets))
}

func (api *rbacApi) retrieve(ctx echo.Context) error {
	rp, err := api.svc.Get(ctx.Request().Context(), principal(ctx), targetSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting role permission")
	}
	return ctx.JSON(http.StatusOK, rp)
}

func (api *rbacApi) update(ctx echo.Context) error {
	var data rbac.UpdateRolePermission
	if err := bindValid(ctx, api.validate, &data, "UpdateRolePermission"); err != nil {
		return err
	}
	rp, err := api.svc.Update(ctx.Request().Context(), principal(ctx), targetSchool(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating role permission")
	}
	return ctx.JSON(http.StatusOK, rp)
}

func (api *rbacApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), principal(ctx), targetSchool(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting role permission")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *rbacApi) effective(ctx echo.Context) error {
	role, err := auth.ParseRole(ctx.QueryParam("role"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown role")
	}
	grants, err := api.svc.Effective(ctx.Request().Context(), principal(ctx), targetSchool(ctx), role)
	if err != nil {
		return errors.Wrap(err, "resolving grants")
	}
	return ctx.JSON(http.StatusOK, grants)
}
