package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/inventory"
)

type inventoryApi struct {
	svc      *inventory.Service
	validate *validator.Validate
}

func registerInventoryAPI(g *echo.Group, opts *Options) {
	api := inventoryApi{svc: opts.InventorySvc, validate: opts.Validate}

	ig := g.Group("/items")
	ig.POST("", api.createItem)
	ig.GET("", api.queryItems)
	ig.GET("/:id", api.retrieveItem)

	tg := g.Group("/transactions")
	tg.POST("", api.recordTransaction)
	tg.GET("", api.queryTransactions)
}

func (api *inventoryApi) createItem(ctx echo.Context) error {
	var data inventory.NewItem
	if err := bindValid(ctx, api.validate, &data, "NewItem"); err != nil {
		return err
	}
	it, err := api.svc.CreateItem(ctx.Request().Context(), principal(ctx), targetSchool(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating item")
	}
	return ctx.JSON(http.StatusCreated, it)
}

func (api *inventoryApi) queryItems(ctx echo.Context) error {
	var filter inventory.ItemFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to ItemFilter")
	}
	items, err := api.svc.QueryItems(ctx.Request().Context(), principal(ctx), targetSchool(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying items")
	}
	return ctx.JSON(http.StatusOK, emptyIfNil(items))
}

func (api *inventoryApi) retrieveItem(ctx echo.Context) error {
	it, err := api.svc.GetItem(ctx.Request().Context(), principal(ctx), targetSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting item")
	}
	return ctx.JSON(http.StatusOK, it)
}

func (api *inventoryApi) recordTransaction(ctx echo.Context) error {
	var data inventory.NewTransaction
	if err := bindValid(ctx, api.validate, &data, "NewTransaction"); err != nil {
		return err
	}
	st, err := api.svc.RecordTransaction(ctx.Request().Context(), principal(ctx), targetSchool(ctx), data)
	if err != nil {
		return errors.Wrap(err, "recording stock transaction")
	}
	return ctx.JSON(http.StatusCreated, st)
}

func (api *inventoryApi) queryTransactions(ctx echo.Context) error {
	txs, err := api.svc.QueryTransactions(ctx.Request().Context(), principal(ctx), targetSchool(ctx), ctx.QueryParam("item_id"))
	if err != nil {
		return errors.Wrap(err, "querying stock transactions")
	}
	return ctx.JSON(http.StatusOK, emptyIfNil(txs))
}
