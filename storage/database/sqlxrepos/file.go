package sqlxrepos

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/access"
	"github.com/chuoapp/chuo/core/file"
)

type fileRepository struct {
	db *sqlx.DB
}

var _ file.Repository = (*fileRepository)(nil) // interface compliance check

func NewFileRepository(db *sqlx.DB) *fileRepository {
	return &fileRepository{db: db}
}

type fileRow struct {
	ID          int       `db:"id"`
	OwnerID     int       `db:"owner_id"`
	TargetKind  string    `db:"target_kind"`
	TargetID    int       `db:"target_id"`
	Name        string    `db:"name"`
	Path        string    `db:"path"`
	Size        int64     `db:"size"`
	ContentType string    `db:"content_type"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
	Owner       userRow   `db:"owner"`
}

func (r fileRow) file() file.File {
	f := file.File{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		TargetKind:  file.TargetKind(r.TargetKind),
		TargetID:    r.TargetID,
		Name:        r.Name,
		Path:        r.Path,
		Size:        r.Size,
		ContentType: r.ContentType,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.Owner.ID != 0 {
		owner := r.Owner.user()
		f.Owner = &owner
	}
	return f
}

const (
	fileColumns = `f.id, f.owner_id, f.target_kind, f.target_id, f.name, f.path, f.size, f.content_type, f.created_at, f.updated_at`

	fileOwnerJoinColumns = `
	u.id AS "owner.id", u.first_name AS "owner.first_name", u.last_name AS "owner.last_name",
	u.middle_name AS "owner.middle_name", u.email AS "owner.email", u.role AS "owner.role",
	u.is_verified AS "owner.is_verified", u.created_at AS "owner.created_at", u.updated_at AS "owner.updated_at"`

	// fileTargetJoins resolves the polymorphic target up to its owning course.
	fileTargetJoins = `
FROM files f
JOIN users u ON f.owner_id = u.id
LEFT JOIN courses tc ON f.target_kind = 'course' AND f.target_id = tc.id
LEFT JOIN modules tm ON f.target_kind = 'module' AND f.target_id = tm.id
LEFT JOIN assignments ta ON f.target_kind = 'assignment' AND f.target_id = ta.id
LEFT JOIN modules am ON ta.module_id = am.id
LEFT JOIN courses cc ON COALESCE(tc.id, tm.course_id, am.course_id) = cc.id`
)

func (repo fileRepository) CreateFile(ctx context.Context, f file.File) (file.File, error) {
	query := `
INSERT INTO files (owner_id, target_kind, target_id, name, path, size, content_type, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + "id, owner_id, target_kind, target_id, name, path, size, content_type, created_at, updated_at"
	now := time.Now().UTC()
	var row fileRow
	err := repo.db.GetContext(ctx, &row, query,
		f.OwnerID, f.TargetKind, f.TargetID, f.Name, f.Path, f.Size, f.ContentType, now, now)
	if err != nil {
		return file.File{}, errors.Wrap(err, "inserting file record")
	}
	return row.file(), nil
}

func (repo fileRepository) GetFileByID(ctx context.Context, id int) (file.File, error) {
	query := `
SELECT ` + fileColumns + `, ` + fileOwnerJoinColumns + `
FROM files f
JOIN users u ON f.owner_id = u.id
WHERE f.id = $1`
	var row fileRow
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		return file.File{}, trapNoRowsErr(err, file.ErrNotFound, "getting file record")
	}
	return row.file(), nil
}

func (repo fileRepository) FilterFiles(ctx context.Context, scope access.ListScope, page core.Pagination) ([]file.File, int, error) {
	var legs []string
	var args []interface{}
	if !scope.All {
		if scope.AuthorID != 0 {
			args = append(args, scope.AuthorID)
			legs = append(legs, fmt.Sprintf("f.owner_id = $%d", len(args)))
		}
		if scope.TeacherID != 0 {
			args = append(args, scope.TeacherID)
			legs = append(legs, fmt.Sprintf("cc.teacher_id = $%d", len(args)))
		}
		if scope.EnrolledStudentID != 0 {
			args = append(args, scope.EnrolledStudentID)
			leg := fmt.Sprintf("EXISTS (SELECT 1 FROM enrollments e WHERE e.course_id = cc.id AND e.student_id = $%d)", len(args))
			if scope.TeacherAuthoredOnly {
				leg = "(" + leg + " AND f.owner_id = cc.teacher_id)"
			}
			legs = append(legs, leg)
		}
	}
	where := orWhere(legs)
	if !scope.All && where == "" {
		return nil, 0, nil
	}

	var total int
	if err := repo.db.GetContext(ctx, &total, `SELECT COUNT(*) `+fileTargetJoins+` `+where, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting file records")
	}

	query := fmt.Sprintf(`
SELECT `+fileColumns+`, `+fileOwnerJoinColumns+fileTargetJoins+`
%s
ORDER BY f.created_at DESC, f.id DESC LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, page.Limit, page.Offset())

	var rows []fileRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "filtering file records")
	}
	files := make([]file.File, 0, len(rows))
	for _, row := range rows {
		files = append(files, row.file())
	}
	return files, total, nil
}

func (repo fileRepository) UpdateFile(ctx context.Context, f file.File) (file.File, error) {
	query := `
UPDATE files
SET name = $2, updated_at = $3
WHERE id = $1
RETURNING id, owner_id, target_kind, target_id, name, path, size, content_type, created_at, updated_at`
	var row fileRow
	err := repo.db.GetContext(ctx, &row, query, f.ID, f.Name, time.Now().UTC())
	if err != nil {
		return file.File{}, trapNoRowsErr(err, file.ErrNotFound, "updating file record")
	}
	return row.file(), nil
}

func (repo fileRepository) DeleteFile(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting file record")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return file.ErrNotFound
	}
	return nil
}
