package file

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/access"
)

var (
	ErrNotFound = core.NewNotFoundError("file")
)

type Service interface {
	Upload(ctx context.Context, p access.Principal, nf NewFile) (File, error)
	Get(ctx context.Context, p access.Principal, id int) (File, error)
	List(ctx context.Context, p access.Principal, page core.Pagination) ([]File, int, error)
	Update(ctx context.Context, p access.Principal, id int, uf UpdateFile) (File, error)
	Delete(ctx context.Context, p access.Principal, id int) error
}

type service struct {
	conf     core.UploadConfig
	repo     Repository
	store    Storage
	resolver access.ChainResolver
	engine   *access.Engine
}

var _ Service = (*service)(nil)

func NewService(conf core.UploadConfig, repo Repository, store Storage, resolver access.ChainResolver, engine *access.Engine) Service {
	return &service{conf: conf, repo: repo, store: store, resolver: resolver, engine: engine}
}

func (svc *service) Upload(ctx context.Context, p access.Principal, nf NewFile) (File, error) {
	if !nf.TargetKind.Known() {
		return File{}, core.NewValidationError(nil, core.FieldError{Field: "target_kind", Error: "target kind must be one of: course, module, assignment"})
	}
	if err := svc.checkName(nf.Name); err != nil {
		return File{}, err
	}
	if nf.Size > svc.conf.MaxSize {
		return File{}, core.NewValidationError(nil, core.FieldError{
			Field: "file",
			Error: fmt.Sprintf("file exceeds the maximum size of %d bytes", svc.conf.MaxSize),
		})
	}

	chain, err := svc.resolver.Resolve(ctx, nf.TargetKind.Resource(), nf.TargetID)
	if err != nil {
		if core.IsNotFound(err) {
			return File{}, core.NewValidationError(nil, core.FieldError{Field: "target_id", Error: "attachment target not found"})
		}
		return File{}, err
	}
	if err := svc.engine.Can(ctx, p, access.ResourceFile, access.ActionCreate, chain.Context()); err != nil {
		return File{}, err
	}

	f := File{
		OwnerID:     p.ID,
		TargetKind:  nf.TargetKind,
		TargetID:    nf.TargetID,
		Name:        nf.Name,
		ContentType: nf.ContentType,
	}
	f.Path = fmt.Sprintf("%s/%s.%s", nf.TargetKind, uuid.New(), f.Ext())

	// contents land on disk before the row exists; a failed insert cleans up
	f.Size, err = svc.store.Save(ctx, f.Path, nf.Content)
	if err != nil {
		return File{}, errors.Wrap(err, "storing file contents")
	}
	f, err = svc.repo.CreateFile(ctx, f)
	if err != nil {
		_ = svc.store.Delete(ctx, f.Path)
		return File{}, errors.Wrap(err, "creating file record")
	}
	return svc.withURL(f), nil
}

func (svc *service) Get(ctx context.Context, p access.Principal, id int) (File, error) {
	f, err := svc.repo.GetFileByID(ctx, id)
	if err != nil {
		return File{}, err
	}
	rc, err := svc.context(ctx, f)
	if err != nil {
		return File{}, err
	}
	if err := svc.engine.Can(ctx, p, access.ResourceFile, access.ActionRead, rc); err != nil {
		return File{}, err
	}
	return svc.withURL(f), nil
}

func (svc *service) List(ctx context.Context, p access.Principal, page core.Pagination) ([]File, int, error) {
	scope, err := svc.engine.ScopeList(p, access.ResourceFile, false)
	if err != nil {
		return nil, 0, err
	}
	page.Clean()
	files, total, err := svc.repo.FilterFiles(ctx, scope, page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "filtering files")
	}
	for i := range files {
		files[i] = svc.withURL(files[i])
	}
	return files, total, nil
}

func (svc *service) Update(ctx context.Context, p access.Principal, id int, uf UpdateFile) (File, error) {
	f, err := svc.repo.GetFileByID(ctx, id)
	if err != nil {
		return File{}, err
	}
	rc, err := svc.context(ctx, f)
	if err != nil {
		return File{}, err
	}
	if err := svc.engine.Can(ctx, p, access.ResourceFile, access.ActionUpdate, rc); err != nil {
		return File{}, err
	}
	if err := svc.checkName(uf.Name); err != nil {
		return File{}, err
	}
	if Ext(uf.Name) != f.Ext() {
		return File{}, core.NewValidationError(nil, core.FieldError{Field: "name", Error: "renaming cannot change the file extension"})
	}

	f.Name = uf.Name
	f, err = svc.repo.UpdateFile(ctx, f)
	if err != nil {
		return File{}, errors.Wrap(err, "updating file record")
	}
	return svc.withURL(f), nil
}

func (svc *service) Delete(ctx context.Context, p access.Principal, id int) error {
	f, err := svc.repo.GetFileByID(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	rc, err := svc.context(ctx, f)
	if err != nil {
		return err
	}
	if err := svc.engine.Can(ctx, p, access.ResourceFile, access.ActionDelete, rc); err != nil {
		return err
	}

	// contents first, then the row
	if err := svc.store.Delete(ctx, f.Path); err != nil {
		return errors.Wrap(err, "deleting file contents")
	}
	return svc.repo.DeleteFile(ctx, f.ID)
}

func (svc *service) context(ctx context.Context, f File) (access.Context, error) {
	chain, err := svc.resolver.Resolve(ctx, f.TargetKind.Resource(), f.TargetID)
	if err != nil {
		if core.IsNotFound(err) {
			// target cascade-deleted from under the file row
			return access.Context{OwnerID: f.OwnerID}, nil
		}
		return access.Context{}, err
	}
	rc := chain.Context()
	rc.OwnerID = f.OwnerID
	return rc, nil
}

func (svc *service) checkName(name string) error {
	ext := Ext(name)
	for _, allowed := range svc.conf.AllowedExtensions {
		if ext == allowed {
			return nil
		}
	}
	return core.NewValidationError(nil, core.FieldError{
		Field: "name",
		Error: "file extension must be one of: " + strings.Join(svc.conf.AllowedExtensions, ", "),
	})
}

func (svc *service) withURL(f File) File {
	f.URL = svc.conf.BaseURL + "/" + f.Path
	return f
}
