package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/progress"
)

type progressApi struct {
	svc  progress.Service
	deps ServerDeps
}

func registerProgressAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := progressApi{svc: deps.ProgressSvc, deps: deps}

	pg := g.Group("/progress", jwt)
	pg.GET("", api.list)
	pg.POST("/create", api.create)
	pg.GET("/show/:id", api.retrieve)
	pg.PATCH("/update/:id", api.update)
	pg.DELETE("/destroy/:id", api.destroy)
}

func (api *progressApi) list(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}
	page := bindPagination(ctx)

	records, total, err := api.svc.List(ctx.Request().Context(), p, page)
	if err != nil {
		return errors.Wrap(err, "listing progress")
	}
	if records == nil {
		records = []progress.Progress{}
	}
	return ctx.JSON(http.StatusOK, core.NewPaginated(records, total, page))
}

func (api *progressApi) create(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}

	var data progress.NewProgress
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProgress")
	}
	if data.StudentID == 0 {
		data.StudentID = p.ID
	}
	if err := api.deps.Validate.Struct(&data); err != nil {
		return err
	}

	prg, err := api.svc.Create(ctx.Request().Context(), p, data)
	if err != nil {
		return errors.Wrap(err, "creating progress")
	}
	return ctx.JSON(http.StatusCreated, prg)
}

func (api *progressApi) retrieve(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := bindID(ctx)
	if err != nil {
		return err
	}

	prg, err := api.svc.Get(ctx.Request().Context(), p, id)
	if err != nil {
		return errors.Wrap(err, "finding progress by ID")
	}
	return ctx.JSON(http.StatusOK, prg)
}

func (api *progressApi) update(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := bindID(ctx)
	if err != nil {
		return err
	}

	var data progress.UpdateProgress
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProgress")
	}
	if err := api.deps.Validate.Struct(&data); err != nil {
		return err
	}

	prg, err := api.svc.Update(ctx.Request().Context(), p, id, data)
	if err != nil {
		return errors.Wrap(err, "updating progress")
	}
	return ctx.JSON(http.StatusOK, prg)
}

func (api *progressApi) destroy(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := bindID(ctx)
	if err != nil {
		return err
	}

	if err = api.svc.Delete(ctx.Request().Context(), p, id); err != nil {
		return errors.Wrap(err, "deleting progress")
	}
	return ctx.NoContent(http.StatusNoContent)
}
