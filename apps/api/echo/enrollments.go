package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/enrollment"
)

type enrollmentApi struct {
	svc  enrollment.Service
	deps ServerDeps
}

func registerEnrollmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := enrollmentApi{svc: deps.EnrollSvc, deps: deps}

	eg := g.Group("/enrollments", jwt)
	eg.GET("", api.list)
	eg.POST("/create", api.create)
	eg.GET("/show/:id", api.retrieve)
	eg.PATCH("/update/:id", api.update)
	eg.DELETE("/destroy/:id", api.destroy)
}

func (api *enrollmentApi) list(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}
	page := bindPagination(ctx)

	enrollments, total, err := api.svc.List(ctx.Request().Context(), p, page)
	if err != nil {
		return errors.Wrap(err, "listing enrollments")
	}
	if enrollments == nil {
		enrollments = []enrollment.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, core.NewPaginated(enrollments, total, page))
}

func (api *enrollmentApi) create(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}

	var data enrollment.NewEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	if data.StudentID == 0 {
		data.StudentID = p.ID
	}
	if err := api.deps.Validate.Struct(&data); err != nil {
		return err
	}

	enr, err := api.svc.Create(ctx.Request().Context(), p, data)
	if err != nil {
		return errors.Wrap(err, "creating enrollment")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *enrollmentApi) retrieve(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := bindID(ctx)
	if err != nil {
		return err
	}

	enr, err := api.svc.Get(ctx.Request().Context(), p, id)
	if err != nil {
		return errors.Wrap(err, "finding enrollment by ID")
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *enrollmentApi) update(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := bindID(ctx)
	if err != nil {
		return err
	}

	var data enrollment.UpdateEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEnrollment")
	}
	if err := api.deps.Validate.Struct(&data); err != nil {
		return err
	}

	enr, err := api.svc.Update(ctx.Request().Context(), p, id, data)
	if err != nil {
		return errors.Wrap(err, "updating enrollment")
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *enrollmentApi) destroy(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := bindID(ctx)
	if err != nil {
		return err
	}

	if err = api.svc.Delete(ctx.Request().Context(), p, id); err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	return ctx.NoContent(http.StatusNoContent)
}
