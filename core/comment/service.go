package comment

import (
	"context"

	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/access"
	"github.com/chuoapp/chuo/core/course"
)

var (
	ErrNotFound = core.NewNotFoundError("comment")
)

type ModuleGetter interface {
	GetModuleByID(ctx context.Context, id int) (course.Module, error)
}

type Service interface {
	Create(ctx context.Context, p access.Principal, nc NewComment) (Comment, error)
	Get(ctx context.Context, p access.Principal, id int) (Comment, error)
	List(ctx context.Context, p access.Principal, page core.Pagination) ([]Comment, int, error)
	Update(ctx context.Context, p access.Principal, id int, uc UpdateComment) (Comment, error)
	Delete(ctx context.Context, p access.Principal, id int) error
}

type service struct {
	repo    Repository
	modules ModuleGetter
	engine  *access.Engine
}

var _ Service = (*service)(nil)

func NewService(repo Repository, modules ModuleGetter, engine *access.Engine) Service {
	return &service{repo: repo, modules: modules, engine: engine}
}

func (svc *service) Create(ctx context.Context, p access.Principal, nc NewComment) (Comment, error) {
	mod, err := svc.modules.GetModuleByID(ctx, nc.ModuleID)
	if err != nil {
		if core.IsNotFound(err) {
			return Comment{}, core.NewValidationError(nil, core.FieldError{Field: "module_id", Error: "module not found"})
		}
		return Comment{}, err
	}
	if err := svc.engine.Can(ctx, p, access.ResourceComment, access.ActionCreate, moduleContext(mod)); err != nil {
		return Comment{}, err
	}

	cmt := Comment{
		ModuleID: nc.ModuleID,
		AuthorID: p.ID,
		Content:  core.CleanString(nc.Content),
	}
	cmt, err = svc.repo.CreateComment(ctx, cmt)
	if err != nil {
		return Comment{}, errors.Wrap(err, "creating comment")
	}
	cmt.Module = &mod
	return cmt, nil
}

func (svc *service) Get(ctx context.Context, p access.Principal, id int) (Comment, error) {
	cmt, err := svc.repo.GetCommentByID(ctx, id)
	if err != nil {
		return Comment{}, err
	}
	if err := svc.engine.Can(ctx, p, access.ResourceComment, access.ActionRead, commentContext(cmt)); err != nil {
		return Comment{}, err
	}
	return cmt, nil
}

func (svc *service) List(ctx context.Context, p access.Principal, page core.Pagination) ([]Comment, int, error) {
	scope, err := svc.engine.ScopeList(p, access.ResourceComment, false)
	if err != nil {
		return nil, 0, err
	}
	page.Clean()
	comments, total, err := svc.repo.FilterComments(ctx, scope, page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "filtering comments")
	}
	return comments, total, nil
}

func (svc *service) Update(ctx context.Context, p access.Principal, id int, uc UpdateComment) (Comment, error) {
	cmt, err := svc.repo.GetCommentByID(ctx, id)
	if err != nil {
		return Comment{}, err
	}
	if err := svc.engine.Can(ctx, p, access.ResourceComment, access.ActionUpdate, commentContext(cmt)); err != nil {
		return Comment{}, err
	}

	cmt.Content = core.CleanString(uc.Content)
	cmt, err = svc.repo.UpdateComment(ctx, cmt)
	if err != nil {
		return Comment{}, errors.Wrap(err, "updating comment")
	}
	return cmt, nil
}

func (svc *service) Delete(ctx context.Context, p access.Principal, id int) error {
	cmt, err := svc.repo.GetCommentByID(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	if err := svc.engine.Can(ctx, p, access.ResourceComment, access.ActionDelete, commentContext(cmt)); err != nil {
		return err
	}
	return svc.repo.DeleteComment(ctx, cmt.ID)
}

func commentContext(cmt Comment) access.Context {
	rc := access.Context{OwnerID: cmt.AuthorID}
	if cmt.Module != nil {
		modCtx := moduleContext(*cmt.Module)
		rc.TeacherID = modCtx.TeacherID
		rc.CourseID = modCtx.CourseID
	}
	return rc
}

func moduleContext(mod course.Module) access.Context {
	var rc access.Context
	if crs := mod.Course; crs != nil {
		rc.TeacherID = crs.TeacherID
		rc.CourseID = crs.ID
	}
	return rc
}
