package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/course"
)

type courseApi struct {
	svc  course.Service
	deps ServerDeps
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := courseApi{svc: deps.CourseSvc, deps: deps}

	cg := g.Group("/courses", jwt)
	cg.GET("", api.list)
	cg.POST("/create", api.create)
	cg.GET("/show/:id", api.retrieve)
	cg.PATCH("/update/:id", api.update)
	cg.DELETE("/destroy/:id", api.destroy)
}

func (api *courseApi) list(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}
	page := bindPagination(ctx)

	courses, total, err := api.svc.ListCourses(ctx.Request().Context(), p, bindAll(ctx), page)
	if err != nil {
		return errors.Wrap(err, "listing courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, core.NewPaginated(courses, total, page))
}

func (api *courseApi) create(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}

	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if data.TeacherID == 0 {
		data.TeacherID = p.ID
	}
	if err := api.deps.Validate.Struct(&data); err != nil {
		return err
	}

	crs, err := api.svc.CreateCourse(ctx.Request().Context(), p, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := bindID(ctx)
	if err != nil {
		return err
	}

	crs, err := api.svc.GetCourse(ctx.Request().Context(), p, id)
	if err != nil {
		return errors.Wrap(err, "finding course by ID")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := bindID(ctx)
	if err != nil {
		return err
	}

	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := api.deps.Validate.Struct(&data); err != nil {
		return err
	}

	crs, err := api.svc.UpdateCourse(ctx.Request().Context(), p, id, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := bindID(ctx)
	if err != nil {
		return err
	}

	if err = api.svc.DeleteCourse(ctx.Request().Context(), p, id); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}
