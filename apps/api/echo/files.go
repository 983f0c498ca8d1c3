package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/file"
)

type fileApi struct {
	svc  file.Service
	deps ServerDeps
}

func registerFileAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := fileApi{svc: deps.FileSvc, deps: deps}

	fg := g.Group("/files", jwt)
	fg.GET("", api.list)
	fg.POST("/create", api.create)
	fg.GET("/show/:id", api.retrieve)
	fg.PATCH("/update/:id", api.update)
	fg.DELETE("/destroy/:id", api.destroy)
}

func (api *fileApi) list(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}
	page := bindPagination(ctx)

	files, total, err := api.svc.List(ctx.Request().Context(), p, page)
	if err != nil {
		return errors.Wrap(err, "listing files")
	}
	if files == nil {
		files = []file.File{}
	}
	return ctx.JSON(http.StatusOK, core.NewPaginated(files, total, page))
}

// create accepts a multipart form: `file` plus `target_kind` and `target_id`
// fields. An optional `name` field overrides the uploaded file name; the
// extension must stay the client's.
func (api *fileApi) create(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "this field is required"})
	}
	targetID, _ := strconv.Atoi(ctx.FormValue("target_id"))

	data := file.NewFile{
		TargetKind:  file.TargetKind(core.CleanString(ctx.FormValue("target_kind"), true /* lower */)),
		TargetID:    targetID,
		Name:        fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
	}
	if name := core.CleanString(ctx.FormValue("name")); name != "" {
		data.Name = name
	}
	if err := api.deps.Validate.Struct(&data); err != nil {
		return err
	}

	src, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer src.Close()
	data.Content = src

	f, err := api.svc.Upload(ctx.Request().Context(), p, data)
	if err != nil {
		return errors.Wrap(err, "uploading file")
	}
	return ctx.JSON(http.StatusCreated, f)
}

func (api *fileApi) retrieve(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := bindID(ctx)
	if err != nil {
		return err
	}

	f, err := api.svc.Get(ctx.Request().Context(), p, id)
	if err != nil {
		return errors.Wrap(err, "finding file by ID")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *fileApi) update(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := bindID(ctx)
	if err != nil {
		return err
	}

	var data file.UpdateFile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateFile")
	}
	if err := api.deps.Validate.Struct(&data); err != nil {
		return err
	}

	f, err := api.svc.Update(ctx.Request().Context(), p, id, data)
	if err != nil {
		return errors.Wrap(err, "updating file")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *fileApi) destroy(ctx echo.Context) error {
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}
	id, err := bindID(ctx)
	if err != nil {
		return err
	}

	if err = api.svc.Delete(ctx.Request().Context(), p, id); err != nil {
		return errors.Wrap(err, "deleting file")
	}
	return ctx.NoContent(http.StatusNoContent)
}
