package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/course"
)

type moduleApi struct {
	svc  course.Service
	deps ServerDeps
}

func registerModuleAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := moduleApi{svc: deps.CourseSvc, deps: deps}

	mg := g.Group("/modules", jwt)
	mg.GET("", api.list)
	mg.POST("/create", api.create)
	mg.GET("/show/:id", api.retrieve)
	mg.PATCH("/update/:id", api.update)
	mg.DELETE("/destroy/:id", api.destroy)
}

func (api *moduleApi) list(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}
	page := bindPagination(ctx)

	modules, total, err := api.svc.ListModules(ctx.Request().Context(), p, page)
	if err != nil {
		return errors.Wrap(err, "listing modules")
	}
	if modules == nil {
		modules = []course.Module{}
	}
	return ctx.JSON(http.StatusOK, core.NewPaginated(modules, total, page))
}

func (api *moduleApi) create(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}

	var data course.NewModule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewModule")
	}
	if err := api.deps.Validate.Struct(&data); err != nil {
		return err
	}

	mod, err := api.svc.CreateModule(ctx.Request().Context(), p, data)
	if err != nil {
		return errors.Wrap(err, "creating module")
	}
	return ctx.JSON(http.StatusCreated, mod)
}

func (api *moduleApi) retrieve(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := bindID(ctx)
	if err != nil {
		return err
	}

	mod, err := api.svc.GetModule(ctx.Request().Context(), p, id)
	if err != nil {
		return errors.Wrap(err, "finding module by ID")
	}
	return ctx.JSON(http.StatusOK, mod)
}

func (api *moduleApi) update(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := bindID(ctx)
	if err != nil {
		return err
	}

	var data course.UpdateModule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateModule")
	}
	if err := api.deps.Validate.Struct(&data); err != nil {
		return err
	}

	mod, err := api.svc.UpdateModule(ctx.Request().Context(), p, id, data)
	if err != nil {
		return errors.Wrap(err, "updating module")
	}
	return ctx.JSON(http.StatusOK, mod)
}

func (api *moduleApi) destroy(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := bindID(ctx)
	if err != nil {
		return err
	}

	if err = api.svc.DeleteModule(ctx.Request().Context(), p, id); err != nil {
		return errors.Wrap(err, "deleting module")
	}
	return ctx.NoContent(http.StatusNoContent)
}
