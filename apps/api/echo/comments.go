package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/comment"
)

type commentApi struct {
	svc  comment.Service
	deps ServerDeps
}

func registerCommentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := commentApi{svc: deps.CommentSvc, deps: deps}

	cg := g.Group("/comments", jwt)
	cg.GET("", api.list)
	cg.POST("/create", api.create)
	cg.GET("/show/:id", api.retrieve)
	cg.PATCH("/update/:id", api.update)
	cg.DELETE("/destroy/:id", api.destroy)
}

func (api *commentApi) list(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}
	page := bindPagination(ctx)

	comments, total, err := api.svc.List(ctx.Request().Context(), p, page)
	if err != nil {
		return errors.Wrap(err, "listing comments")
	}
	if comments == nil {
		comments = []comment.Comment{}
	}
	return ctx.JSON(http.StatusOK, core.NewPaginated(comments, total, page))
}

func (api *commentApi) create(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}

	var data comment.NewComment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewComment")
	}
	if err := api.deps.Validate.Struct(&data); err != nil {
		return err
	}

	cmt, err := api.svc.Create(ctx.Request().Context(), p, data)
	if err != nil {
		return errors.Wrap(err, "creating comment")
	}
	return ctx.JSON(http.StatusCreated, cmt)
}

func (api *commentApi) retrieve(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := bindID(ctx)
	if err != nil {
		return err
	}

	cmt, err := api.svc.Get(ctx.Request().Context(), p, id)
	if err != nil {
		return errors.Wrap(err, "finding comment by ID")
	}
	return ctx.JSON(http.StatusOK, cmt)
}

func (api *commentApi) update(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := bindID(ctx)
	if err != nil {
		return err
	}

	var data comment.UpdateComment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateComment")
	}
	if err := api.deps.Validate.Struct(&data); err != nil {
		return err
	}

	cmt, err := api.svc.Update(ctx.Request().Context(), p, id, data)
	if err != nil {
		return errors.Wrap(err, "updating comment")
	}
	return ctx.JSON(http.StatusOK, cmt)
}

func (api *commentApi) destroy(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := bindID(ctx)
	if err != nil {
		return err
	}

	if err = api.svc.Delete(ctx.Request().Context(), p, id); err != nil {
		return errors.Wrap(err, "deleting comment")
	}
	return ctx.NoContent(http.StatusNoContent)
}
