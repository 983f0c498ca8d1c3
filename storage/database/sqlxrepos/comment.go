package sqlxrepos

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/access"
	"github.com/chuoapp/chuo/core/comment"
)

type commentRepository struct {
	db *sqlx.DB
}

var _ comment.Repository = (*commentRepository)(nil) // interface compliance check

func NewCommentRepository(db *sqlx.DB) *commentRepository {
	return &commentRepository{db: db}
}

type commentRow struct {
	ID        int       `db:"id"`
	ModuleID  int       `db:"module_id"`
	AuthorID  int       `db:"author_id"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
	Author    userRow   `db:"author"`
	Module    moduleRow `db:"module"`
}

func (r commentRow) comment() comment.Comment {
	cmt := comment.Comment{
		ID:        r.ID,
		ModuleID:  r.ModuleID,
		AuthorID:  r.AuthorID,
		Content:   r.Content,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Author.ID != 0 {
		author := r.Author.user()
		cmt.Author = &author
	}
	if r.Module.ID != 0 {
		mod := r.Module.module()
		cmt.Module = &mod
	}
	return cmt
}

const (
	commentColumns = `cm.id, cm.module_id, cm.author_id, cm.content, cm.created_at, cm.updated_at`

	commentJoinColumns = `
	u.id AS "author.id", u.first_name AS "author.first_name", u.last_name AS "author.last_name",
	u.middle_name AS "author.middle_name", u.email AS "author.email", u.role AS "author.role",
	u.is_verified AS "author.is_verified", u.created_at AS "author.created_at", u.updated_at AS "author.updated_at",
	m.id AS "module.id", m.course_id AS "module.course_id", m.title AS "module.title",
	m.content AS "module.content", m.order_num AS "module.order_num",
	m.created_at AS "module.created_at", m.updated_at AS "module.updated_at",
	c.id AS "module.course.id", c.teacher_id AS "module.course.teacher_id", c.title AS "module.course.title",
	c.description AS "module.course.description", c.created_at AS "module.course.created_at",
	c.updated_at AS "module.course.updated_at"`

	commentJoins = `
FROM comments cm
JOIN users u ON cm.author_id = u.id
JOIN modules m ON cm.module_id = m.id
JOIN courses c ON m.course_id = c.id`
)

func (repo commentRepository) CreateComment(ctx context.Context, cmt comment.Comment) (comment.Comment, error) {
	query := `
INSERT INTO comments (module_id, author_id, content, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, module_id, author_id, content, created_at, updated_at`
	now := time.Now().UTC()
	var row commentRow
	err := repo.db.GetContext(ctx, &row, query, cmt.ModuleID, cmt.AuthorID, cmt.Content, now, now)
	if err != nil {
		return comment.Comment{}, errors.Wrap(err, "inserting comment")
	}
	return row.comment(), nil
}

func (repo commentRepository) GetCommentByID(ctx context.Context, id int) (comment.Comment, error) {
	query := `SELECT ` + commentColumns + `, ` + commentJoinColumns + commentJoins + ` WHERE cm.id = $1`
	var row commentRow
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		return comment.Comment{}, trapNoRowsErr(err, comment.ErrNotFound, "getting comment")
	}
	return row.comment(), nil
}

func (repo commentRepository) FilterComments(ctx context.Context, scope access.ListScope, page core.Pagination) ([]comment.Comment, int, error) {
	var legs []string
	var args []interface{}
	if !scope.All {
		if scope.TeacherID != 0 {
			args = append(args, scope.TeacherID)
			legs = append(legs, fmt.Sprintf("c.teacher_id = $%d", len(args)))
		}
		if scope.AuthorID != 0 {
			args = append(args, scope.AuthorID)
			legs = append(legs, fmt.Sprintf("cm.author_id = $%d", len(args)))
		}
	}
	where := orWhere(legs)
	if !scope.All && where == "" {
		return nil, 0, nil
	}

	var total int
	if err := repo.db.GetContext(ctx, &total, `SELECT COUNT(*) `+commentJoins+` `+where, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting comments")
	}

	query := fmt.Sprintf(`
SELECT `+commentColumns+`, `+commentJoinColumns+commentJoins+`
%s
ORDER BY cm.created_at DESC, cm.id DESC LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, page.Limit, page.Offset())

	var rows []commentRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "filtering comments")
	}
	comments := make([]comment.Comment, 0, len(rows))
	for _, row := range rows {
		comments = append(comments, row.comment())
	}
	return comments, total, nil
}

func (repo commentRepository) UpdateComment(ctx context.Context, cmt comment.Comment) (comment.Comment, error) {
	query := `
UPDATE comments
SET content = $2, updated_at = $3
WHERE id = $1
RETURNING id, module_id, author_id, content, created_at, updated_at`
	var row commentRow
	err := repo.db.GetContext(ctx, &row, query, cmt.ID, cmt.Content, time.Now().UTC())
	if err != nil {
		return comment.Comment{}, trapNoRowsErr(err, comment.ErrNotFound, "updating comment")
	}
	return row.comment(), nil
}

func (repo commentRepository) DeleteComment(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting comment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return comment.ErrNotFound
	}
	return nil
}
