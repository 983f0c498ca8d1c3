package file

import (
	"context"
	"io"
	"path"
	"strings"
	"time"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/access"
	"github.com/chuoapp/chuo/core/user"
)

// TargetKind names the kind of record a file is attached to.
type TargetKind string

const (
	TargetCourse     TargetKind = "course"
	TargetModule     TargetKind = "module"
	TargetAssignment TargetKind = "assignment"
)

// targetResources maps an attachment target to the resource whose ownership
// chain decides access to the file.
var targetResources = map[TargetKind]access.Resource{
	TargetCourse:     access.ResourceCourse,
	TargetModule:     access.ResourceModule,
	TargetAssignment: access.ResourceAssignment,
}

func (k TargetKind) Known() bool {
	_, ok := targetResources[k]
	return ok
}

func (k TargetKind) Resource() access.Resource { return targetResources[k] }

type File struct {
	ID          int        `json:"file_id"`
	OwnerID     int        `json:"-"`
	TargetKind  TargetKind `json:"target_kind"`
	TargetID    int        `json:"target_id"`
	Name        string     `json:"name"`
	Path        string     `json:"-"`
	Size        int64      `json:"size"`
	ContentType string     `json:"content_type"`
	URL         string     `json:"url"`
	Owner       *user.User `json:"owner,omitempty"`
	CreatedAt   time.Time  `json:"created_at"` // UTC
	UpdatedAt   time.Time  `json:"updated_at"` // UTC
}

// Ext returns the file name's extension without the leading dot, lowercased.
func (f File) Ext() string { return Ext(f.Name) }

func Ext(name string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
}

type NewFile struct {
	TargetKind  TargetKind `json:"target_kind" validate:"required"`
	TargetID    int        `json:"target_id" validate:"required"`
	Name        string     `json:"name" validate:"required"`
	Size        int64      `json:"-"`
	ContentType string     `json:"-"`
	Content     io.Reader  `json:"-"`
}

type UpdateFile struct {
	Name string `json:"name" validate:"required"`
}

type Repository interface {
	CreateFile(ctx context.Context, f File) (File, error)
	GetFileByID(ctx context.Context, id int) (File, error)
	FilterFiles(ctx context.Context, scope access.ListScope, page core.Pagination) ([]File, int, error)
	UpdateFile(ctx context.Context, f File) (File, error)
	DeleteFile(ctx context.Context, id int) error
}

// Storage persists file contents. Paths are relative to the store's root.
type Storage interface {
	Save(ctx context.Context, path string, content io.Reader) (int64, error)
	Delete(ctx context.Context, path string) error
}
