package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/hostel"
)

type hostelApi struct {
	svc      *hostel.Service
	validate *validator.Validate
}

func registerHostelAPI(g *echo.Group, opts *Options) {
	api := hostelApi{svc: opts.HostelSvc, validate: opts.Validate}

	hg := g.Group("/hostels")
	hg.POST("", api.createHostel)
	hg.GET("", api.queryHostels)
	hg.GET("/:id", api.retrieveHostel)

	rg := g.Group("/rooms")
	rg.POST("", api.createRoom)
	rg.GET("", api.queryRooms)
	rg.GET("/:id", api.retrieveRoom)

	ag := g.Group("/allocations")
	ag.POST("", api.allocate)
	ag.GET("", api.queryAllocations)
	ag.DELETE("/:id", api.vacate)
}

func (api *hostelApi) createHostel(ctx echo.Context) error {
	var data hostel.NewHostel
	if err := bindValid(ctx, api.validate, &data, "NewHostel"); err != nil {
		return err
	}
	h, err := api.svc.CreateHostel(ctx.Request().Context(), principal(ctx), targetSchool(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating hostel")
	}
	return ctx.JSON(http.StatusCreated, h)
}

func (api *hostelApi) queryHostels(ctx echo.Context) error {
	hostels, err := api.svc.QueryHostels(ctx.Request().Context(), principal(ctx), targetSchool(ctx))
	if err != nil {
		return errors.Wrap(err, "querying hostels")
	}
	return ctx.JSON(http.StatusOK, emptyIfNil(hostels))
}

func (api *hostelApi) retrieveHostel(ctx echo.Context) error {
	h, err := api.svc.GetHostel(ctx.Request().Context(), principal(ctx), targetSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting hostel")
	}
	return ctx.JSON(http.StatusOK, h)
}

func (api *hostelApi) createRoom(ctx echo.Context) error {
	var data hostel.NewRoom
	if err := bindValid(ctx, api.validate, &data, "NewRoom"); err != nil {
		return err
	}
	r, err := api.svc.CreateRoom(ctx.Request().Context(), principal(ctx), targetSchool(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating room")
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (api *hostelApi) queryRooms(ctx echo.Context) error {
	rooms, err := api.svc.QueryRooms(ctx.Request().Context(), principal(ctx), targetSchool(ctx), ctx.QueryParam("hostel_id"))
	if err != nil {
		return errors.Wrap(err, "querying rooms")
	}
	return ctx.JSON(http.StatusOK, emptyIfNil(rooms))
}

func (api *hostelApi) retrieveRoom(ctx echo.Context) error {
	r, err := api.svc.GetRoom(ctx.Request().Context(), principal(ctx), targetSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting room")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *hostelApi) allocate(ctx echo.Context) error {
	var data hostel.NewAllocation
	if err := bindValid(ctx, api.validate, &data, "NewAllocation"); err != nil {
		return err
	}
	a, err := api.svc.Allocate(ctx.Request().Context(), principal(ctx), targetSchool(ctx), data)
	if err != nil {
		return errors.Wrap(err, "allocating bed")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *hostelApi) queryAllocations(ctx echo.Context) error {
	allocations, err := api.svc.QueryAllocations(ctx.Request().Context(), principal(ctx), targetSchool(ctx), ctx.QueryParam("room_id"))
	if err != nil {
		return errors.Wrap(err, "querying allocations")
	}
	return ctx.JSON(http.StatusOK, emptyIfNil(allocations))
}

func (api *hostelApi) vacate(ctx echo.Context) error {
	if err := api.svc.Vacate(ctx.Request().Context(), principal(ctx), targetSchool(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "vacating bed")
	}
	return ctx.NoContent(http.StatusNoContent)
}
