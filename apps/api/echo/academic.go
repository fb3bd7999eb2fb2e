package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/academic"
)

type academicApi struct {
	svc      *academic.Service
	validate *validator.Validate
}

func registerAcademicAPI(g *echo.Group, opts *Options) {
	api := academicApi{svc: opts.AcademicSvc, validate: opts.Validate}

	cg := g.Group("/classes")
	cg.POST("", api.createClass)
	cg.GET("", api.queryClasses)
	cg.GET("/:id", api.retrieveClass)
	cg.DELETE("/:id", api.destroyClass)

	sg := g.Group("/sections")
	sg.POST("", api.createSection)
	sg.GET("", api.querySections)
	sg.GET("/:id", api.retrieveSection)
	sg.DELETE("/:id", api.destroySection)

	eg := g.Group("/exams")
	eg.POST("", api.createExam)
	eg.GET("", api.queryExams)
	eg.GET("/:id", api.retrieveExam)
	eg.GET("/:id/summary", api.examSummary)

	rg := g.Group("/results")
	rg.POST("", api.recordResult)
	rg.GET("", api.queryResults)
	rg.GET("/:id", api.retrieveResult)
	rg.PUT("/:id", api.updateResult)

	tg := g.Group("/timetable")
	tg.POST("", api.createSlot)
	tg.GET("", api.querySlots)
	tg.DELETE("/:id", api.destroySlot)
}

// Classes

func (api *academicApi) createClass(ctx echo.Context) error {
	var data academic.NewClass
	if err := bindValid(ctx, api.validate, &data, "NewClass"); err != nil {
		return err
	}
	c, err := api.svc.CreateClass(ctx.Request().Context(), principal(ctx), targetSchool(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *academicApi) queryClasses(ctx echo.Context) error {
	classes, err := api.svc.QueryClasses(ctx.Request().Context(), principal(ctx), targetSchool(ctx))
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	return ctx.JSON(http.StatusOK, emptyIfNil(classes))
}

func (api *academicApi) retrieveClass(ctx echo.Context) error {
	c, err := api.svc.GetClass(ctx.Request().Context(), principal(ctx), targetSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting class")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *academicApi) destroyClass(ctx echo.Context) error {
	if err := api.svc.DeleteClass(ctx.Request().Context(), principal(ctx), targetSchool(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Sections

func (api *academicApi) createSection(ctx echo.Context) error {
	var data academic.NewSection
	if err := bindValid(ctx, api.validate, &data, "NewSection"); err != nil {
		return err
	}
	s, err := api.svc.CreateSection(ctx.Request().Context(), principal(ctx), targetSchool(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating section")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *academicApi) querySections(ctx echo.Context) error {
	sections, err := api.svc.QuerySections(ctx.Request().Context(), principal(ctx), targetSchool(ctx), ctx.QueryParam("class_id"))
	if err != nil {
		return errors.Wrap(err, "querying sections")
	}
	return ctx.JSON(http.StatusOK, emptyIfNil(sections))
}

func (api *academicApi) retrieveSection(ctx echo.Context) error {
	s, err := api.svc.GetSection(ctx.Request().Context(), principal(ctx), targetSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting section")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *academicApi) destroySection(ctx echo.Context) error {
	if err := api.svc.DeleteSection(ctx.Request().Context(), principal(ctx), targetSchool(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting section")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Exams

func (api *academicApi) createExam(ctx echo.Context) error {
	var data academic.NewExam
	if err := bindValid(ctx, api.validate, &data, "NewExam"); err != nil {
		return err
	}
	e, err := api.svc.CreateExam(ctx.Request().Context(), principal(ctx), targetSchool(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating exam")
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *academicApi) queryExams(ctx echo.Context) error {
	exams, err := api.svc.QueryExams(ctx.Request().Context(), principal(ctx), targetSchool(ctx), ctx.QueryParam("class_id"))
	if err != nil {
		return errors.Wrap(err, "querying exams")
	}
	return ctx.JSON(http.StatusOK, emptyIfNil(exams))
}

func (api *academicApi) retrieveExam(ctx echo.Context) error {
	e, err := api.svc.GetExam(ctx.Request().Context(), principal(ctx), targetSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting exam")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *academicApi) examSummary(ctx echo.Context) error {
	sum, err := api.svc.ExamSummary(ctx.Request().Context(), principal(ctx), targetSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "summarizing exam")
	}
	return ctx.JSON(http.StatusOK, sum)
}

// Results

func (api *academicApi) recordResult(ctx echo.Context) error {
	var data academic.NewResult
	if err := bindValid(ctx, api.validate, &data, "NewResult"); err != nil {
		return err
	}
	r, err := api.svc.RecordResult(ctx.Request().Context(), principal(ctx), targetSchool(ctx), data)
	if err != nil {
		return errors.Wrap(err, "recording result")
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (api *academicApi) queryResults(ctx echo.Context) error {
	var filter academic.ResultFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to ResultFilter")
	}
	results, err := api.svc.QueryResults(ctx.Request().Context(), principal(ctx), targetSchool(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying results")
	}
	return ctx.JSON(http.StatusOK, emptyIfNil(results))
}

func (api *academicApi) retrieveResult(ctx echo.Context) error {
	r, err := api.svc.GetResult(ctx.Request().Context(), principal(ctx), targetSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting result")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *academicApi) updateResult(ctx echo.Context) error {
	var data academic.UpdateResult
	if err := bindValid(ctx, api.validate, &data, "UpdateResult"); err != nil {
		return err
	}
	r, err := api.svc.UpdateResult(ctx.Request().Context(), principal(ctx), targetSchool(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating result")
	}
	return ctx.JSON(http.StatusOK, r)
}

// Timetable

func (api *academicApi) createSlot(ctx echo.Context) error {
	var data academic.NewTimetableSlot
	if err := bindValid(ctx, api.validate, &data, "NewTimetableSlot"); err != nil {
		return err
	}
	ts, err := api.svc.CreateTimetableSlot(ctx.Request().Context(), principal(ctx), targetSchool(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating timetable slot")
	}
	return ctx.JSON(http.StatusCreated, ts)
}

func (api *academicApi) querySlots(ctx echo.Context) error {
	var filter academic.SlotFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to SlotFilter")
	}
	slots, err := api.svc.QueryTimetableSlots(ctx.Request().Context(), principal(ctx), targetSchool(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying timetable slots")
	}
	return ctx.JSON(http.StatusOK, emptyIfNil(slots))
}

func (api *academicApi) destroySlot(ctx echo.Context) error {
	if err := api.svc.DeleteTimetableSlot(ctx.Request().Context(), principal(ctx), targetSchool(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting timetable slot")
	}
	return ctx.NoContent(http.StatusNoContent)
}
