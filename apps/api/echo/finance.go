package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/finance"
)

type financeApi struct {
	svc      *finance.Service
	validate *validator.Validate
}

func registerFinanceAPI(g *echo.Group, opts *Options) {
	api := financeApi{svc: opts.FinanceSvc, validate: opts.Validate}

	pg := g.Group("/payments")
	pg.POST("", api.record)
	pg.GET("", api.query)
	pg.GET("/export.csv", api.export)
	pg.GET("/:id", api.retrieve)
	pg.PUT("/:id/status", api.updateStatus)
}

func (api *financeApi) record(ctx echo.Context) error {
	var data finance.NewPayment
	if err := bindValid(ctx, api.validate, &data, "NewPayment"); err != nil {
		return err
	}
	pmt, err := api.svc.Record(ctx.Request().Context(), principal(ctx), targetSchool(ctx), data)
	if err != nil {
		return errors.Wrap(err, "recording payment")
	}
	return ctx.JSON(http.StatusCreated, pmt)
}

func (api *financeApi) query(ctx echo.Context) error {
	var filter finance.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	payments, err := api.svc.Query(ctx.Request().Context(), principal(ctx), targetSchool(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	return ctx.JSON(http.StatusOK, emptyIfNil(payments))
}

func (api *financeApi) retrieve(ctx echo.Context) error {
	pmt, err := api.svc.Get(ctx.Request().Context(), principal(ctx), targetSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting payment")
	}
	return ctx.JSON(http.StatusOK, pmt)
}

func (api *financeApi) updateStatus(ctx echo.Context) error {
	var data finance.UpdateStatus
	if err := bindValid(ctx, api.validate, &data, "UpdateStatus"); err != nil {
		return err
	}
	pmt, err := api.svc.UpdateStatus(ctx.Request().Context(), principal(ctx), targetSchool(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating payment status")
	}
	return ctx.JSON(http.StatusOK, pmt)
}

func (api *financeApi) export(ctx echo.Context) error {
	var filter finance.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	data, err := api.svc.ExportTransactions(ctx.Request().Context(), principal(ctx), targetSchool(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "exporting transactions")
	}

	filename := "transactions-" + time.Now().UTC().Format("20060102") + ".csv"
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return ctx.Blob(http.StatusOK, "text/csv; charset=utf-8", data)
}
