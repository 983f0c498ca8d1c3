package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/course"
)

type assignmentApi struct {
	svc  course.Service
	deps ServerDeps
}

func registerAssignmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := assignmentApi{svc: deps.CourseSvc, deps: deps}

	ag := g.Group("/assignments", jwt)
	ag.GET("", api.list)
	ag.POST("/create", api.create)
	ag.GET("/show/:id", api.retrieve)
	ag.PATCH("/update/:id", api.update)
	ag.DELETE("/destroy/:id", api.destroy)
}

func (api *assignmentApi) list(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}
	page := bindPagination(ctx)

	assignments, total, err := api.svc.ListAssignments(ctx.Request().Context(), p, page)
	if err != nil {
		return errors.Wrap(err, "listing assignments")
	}
	if assignments == nil {
		assignments = []course.Assignment{}
	}
	return ctx.JSON(http.StatusOK, core.NewPaginated(assignments, total, page))
}

func (api *assignmentApi) create(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}

	var data course.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := api.deps.Validate.Struct(&data); err != nil {
		return err
	}

	asg, err := api.svc.CreateAssignment(ctx.Request().Context(), p, data)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, asg)
}

func (api *assignmentApi) retrieve(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := bindID(ctx)
	if err != nil {
		return err
	}

	asg, err := api.svc.GetAssignment(ctx.Request().Context(), p, id)
	if err != nil {
		return errors.Wrap(err, "finding assignment by ID")
	}
	return ctx.JSON(http.StatusOK, asg)
}

func (api *assignmentApi) update(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := bindID(ctx)
	if err != nil {
		return err
	}

	var data course.UpdateAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAssignment")
	}
	if err := api.deps.Validate.Struct(&data); err != nil {
		return err
	}

	asg, err := api.svc.UpdateAssignment(ctx.Request().Context(), p, id, data)
	if err != nil {
		return errors.Wrap(err, "updating assignment")
	}
	return ctx.JSON(http.StatusOK, asg)
}

func (api *assignmentApi) destroy(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := bindID(ctx)
	if err != nil {
		return err
	}

	if err = api.svc.DeleteAssignment(ctx.Request().Context(), p, id); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return ctx.NoContent(http.StatusNoContent)
}
