package comment

import (
	"context"
	"time"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/access"
	"github.com/chuoapp/chuo/core/course"
	"github.com/chuoapp/chuo/core/user"
)

type Comment struct {
	ID        int            `json:"comment_id"`
	ModuleID  int            `json:"-"`
	AuthorID  int            `json:"-"`
	Content   string         `json:"content"`
	Author    *user.User     `json:"author,omitempty"`
	Module    *course.Module `json:"module,omitempty"`
	CreatedAt time.Time      `json:"created_at"` // UTC
	UpdatedAt time.Time      `json:"updated_at"` // UTC
}

type NewComment struct {
	ModuleID int    `json:"module_id" validate:"required"`
	Content  string `json:"content" validate:"required"`
}

type UpdateComment struct {
	Content string `json:"content" validate:"required"`
}

type Repository interface {
	CreateComment(ctx context.Context, cmt Comment) (Comment, error)
	GetCommentByID(ctx context.Context, id int) (Comment, error)
	FilterComments(ctx context.Context, scope access.ListScope, page core.Pagination) ([]Comment, int, error)
	UpdateComment(ctx context.Context, cmt Comment) (Comment, error)
	DeleteComment(ctx context.Context, id int) error
}
