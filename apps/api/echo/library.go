package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/library"
)

type libraryApi struct {
	svc      *library.Service
	validate *validator.Validate
}

func registerLibraryAPI(g *echo.Group, opts *Options) {
	api := libraryApi{svc: opts.LibrarySvc, validate: opts.Validate}

	bg := g.Group("/books")
	bg.POST("", api.addBook)
	bg.GET("", api.queryBooks)
	bg.GET("/:id", api.retrieveBook)

	ig := g.Group("/issues")
	ig.POST("", api.issue)
	ig.GET("", api.queryIssues)
	ig.POST("/:id/return", api.returnBook)
}

func (api *libraryApi) addBook(ctx echo.Context) error {
	var data library.NewBook
	if err := bindValid(ctx, api.validate, &data, "NewBook"); err != nil {
		return err
	}
	b, err := api.svc.AddBook(ctx.Request().Context(), principal(ctx), targetSchool(ctx), data)
	if err != nil {
		return errors.Wrap(err, "adding book")
	}
	return ctx.JSON(http.StatusCreated, b)
}

func (api *libraryApi) queryBooks(ctx echo.Context) error {
	var filter library.BookFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to BookFilter")
	}
	books, err := api.svc.QueryBooks(ctx.Request().Context(), principal(ctx), targetSchool(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying books")
	}
	return ctx.JSON(http.StatusOK, emptyIfNil(books))
}

func (api *libraryApi) retrieveBook(ctx echo.Context) error {
	b, err := api.svc.GetBook(ctx.Request().Context(), principal(ctx), targetSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting book")
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *libraryApi) issue(ctx echo.Context) error {
	var data library.NewIssue
	if err := bindValid(ctx, api.validate, &data, "NewIssue"); err != nil {
		return err
	}
	bi, err := api.svc.Issue(ctx.Request().Context(), principal(ctx), targetSchool(ctx), data)
	if err != nil {
		return errors.Wrap(err, "issuing book")
	}
	return ctx.JSON(http.StatusCreated, bi)
}

func (api *libraryApi) queryIssues(ctx echo.Context) error {
	var filter library.IssueFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to IssueFilter")
	}
	issues, err := api.svc.QueryIssues(ctx.Request().Context(), principal(ctx), targetSchool(ctx), filter)
	if err != nil {
		return errors.Wrap(err, "querying book issues")
	}
	return ctx.JSON(http.StatusOK, emptyIfNil(issues))
}

func (api *libraryApi) returnBook(ctx echo.Context) error {
	bi, err := api.svc.Return(ctx.Request().Context(), principal(ctx), targetSchool(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "returning book")
	}
	return ctx.JSON(http.StatusOK, bi)
}
