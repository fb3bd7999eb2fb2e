package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/attendance"
)

type attendanceApi struct {
	svc      *attendance.Service
	validate *validator.Validate
}

func registerAttendanceAPI(g *echo.Group, opts *Options) {
	api := attendanceApi{svc: opts.AttendanceSvc, validate: opts.Validate}

	g.POST("", api.mark)
	g.GET("", api.query)
	g.POST("/register", api.recordSection)
	g.GET("/summary", api.summary)
	g.PUT("/:id", api.update)
}

func (api *attendanceApi) mark(ctx echo.Context) error {
	var data attendance.NewAttendance
	if err := bindValid(ctx, api.validate, &data, "NewAttendance"); err != nil {
		return err
	}
	a, err := api.svc.Mark(ctx.Request().Context(), principal(ctx), targetSchool(ctx), data)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	return ctx.JSON(http.StatusCreated, a)
}

// recordSection stores a whole section register.
// Records stored before a failure are kept: they are returned alongside the error.
func (api *attendanceApi) recordSection(ctx echo.Context) error {
	var data attendance.SectionRegister
	if err := bindValid(ctx, api.validate, &data, "SectionRegister"); err != nil {
		return err
	}
	records, err := api.svc.RecordSection(ctx.Request().Context(), principal(ctx), targetSchool(ctx), data)
	if err != nil {
		return errors.Wrapf(err, "recording section register (%d stored)", len(records))
	}
	return ctx.JSON(http.StatusCreated, emptyIfNil(records))
}

func (api *attendanceApi) update(ctx echo.Context) error {
	var data attendance.UpdateAttendance
	if err := bindValid(ctx, api.validate, &data, "UpdateAttendance"); err != nil {
		return err
	}
	a, err := api.svc.Update(ctx.Request().Context(), principal(ctx), targetSchool(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating attendance")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *attendanceApi) query(ctx echo.Context) error {
	var filter attendance.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	records, err := api.svc.Query(ctx.Request().Context(), principal(ctx), targetSchool(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	return ctx.JSON(http.StatusOK, emptyIfNil(records))
}

func (api *attendanceApi) summary(ctx echo.Context) error {
	sum, err := api.svc.Summary(
		ctx.Request().Context(), principal(ctx), targetSchool(ctx),
		ctx.QueryParam("person_id"), ctx.QueryParam("from"), ctx.QueryParam("to"),
	)
	if err != nil {
		return errors.Wrap(err, "summarizing attendance")
	}
	return ctx.JSON(http.StatusOK, sum)
}
