package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/user"
)

type userApi struct {
	svc  user.Service
	deps ServerDeps
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := userApi{svc: deps.UserSvc, deps: deps}

	ug := g.Group("/users", jwt, adminMiddleware())
	ug.GET("", api.list)
	ug.POST("/create", api.create)
	ug.GET("/show/:id", api.retrieve)
	ug.PATCH("/update/:id", api.update)
	ug.DELETE("/destroy/:id", api.destroy)
}

func (api *userApi) list(ctx echo.Context) error {
	filter := user.QueryFilter{
		Search: ctx.QueryParam("search"),
		Role:   ctx.QueryParam("role"),
	}
	filter.Clean()
	page := bindPagination(ctx)

	users, total, err := api.svc.Filter(ctx.Request().Context(), filter, page)
	if err != nil {
		return errors.Wrap(err, "filtering users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, core.NewPaginated(users, total, page))
}

func (api *userApi) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	data.Email = core.CleanString(data.Email, true /* lower */)
	if err := api.deps.Validate.Struct(&data); err != nil {
		return err
	}

	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) retrieve(ctx echo.Context) error {
	id, err := bindID(ctx)
	if err != nil {
		return err
	}
	usr, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding user by ID")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) update(ctx echo.Context) error {
	id, err := bindID(ctx)
	if err != nil {
		return err
	}

	var data user.UpdateUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	data.Email = core.CleanString(data.Email, true /* lower */)
	if err := api.deps.Validate.Struct(&data); err != nil {
		return err
	}

	usr, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) destroy(ctx echo.Context) error {
	id, err := bindID(ctx)
	if err != nil {
		return err
	}

	// no self-delete
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}
	if p.ID == id {
		return errHttpForbidden
	}

	if err = api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}
