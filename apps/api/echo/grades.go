package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/grade"
)

type gradeApi struct {
	svc  grade.Service
	deps ServerDeps
}

func registerGradeAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := gradeApi{svc: deps.GradeSvc, deps: deps}

	gg := g.Group("/grades", jwt)
	gg.GET("", api.list)
	gg.POST("/create", api.create)
	gg.GET("/show/:id", api.retrieve)
	gg.PATCH("/update/:id", api.update)
	gg.DELETE("/destroy/:id", api.destroy)
}

func (api *gradeApi) list(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}
	page := bindPagination(ctx)

	grades, total, err := api.svc.List(ctx.Request().Context(), p, page)
	if err != nil {
		return errors.Wrap(err, "listing grades")
	}
	if grades == nil {
		grades = []grade.Grade{}
	}
	return ctx.JSON(http.StatusOK, core.NewPaginated(grades, total, page))
}

func (api *gradeApi) create(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}

	var data grade.NewGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGrade")
	}
	if err := api.deps.Validate.Struct(&data); err != nil {
		return err
	}

	grd, err := api.svc.Create(ctx.Request().Context(), p, data)
	if err != nil {
		return errors.Wrap(err, "creating grade")
	}
	return ctx.JSON(http.StatusCreated, grd)
}

func (api *gradeApi) retrieve(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := bindID(ctx)
	if err != nil {
		return err
	}

	grd, err := api.svc.Get(ctx.Request().Context(), p, id)
	if err != nil {
		return errors.Wrap(err, "finding grade by ID")
	}
	return ctx.JSON(http.StatusOK, grd)
}

func (api *gradeApi) update(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := bindID(ctx)
	if err != nil {
		return err
	}

	var data grade.UpdateGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGrade")
	}
	if err := api.deps.Validate.Struct(&data); err != nil {
		return err
	}

	grd, err := api.svc.Update(ctx.Request().Context(), p, id, data)
	if err != nil {
		return errors.Wrap(err, "updating grade")
	}
	return ctx.JSON(http.StatusOK, grd)
}

func (api *gradeApi) destroy(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := bindID(ctx)
	if err != nil {
		return err
	}

	if err = api.svc.Delete(ctx.Request().Context(), p, id); err != nil {
		return errors.Wrap(err, "deleting grade")
	}
	return ctx.NoContent(http.StatusNoContent)
}
