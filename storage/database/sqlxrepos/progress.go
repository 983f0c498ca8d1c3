package sqlxrepos

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/access"
	"github.com/chuoapp/chuo/core/progress"
)

type progressRepository struct {
	db *sqlx.DB
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *sqlx.DB) *progressRepository {
	return &progressRepository{db: db}
}

type progressRow struct {
	ID        int       `db:"id"`
	StudentID int       `db:"student_id"`
	ModuleID  int       `db:"module_id"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
	Student   userRow   `db:"student"`
	Module    moduleRow `db:"module"`
}

func (r progressRow) progress() progress.Progress {
	prg := progress.Progress{
		ID:        r.ID,
		StudentID: r.StudentID,
		ModuleID:  r.ModuleID,
		Status:    progress.Status(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Student.ID != 0 {
		std := r.Student.user()
		prg.Student = &std
	}
	if r.Module.ID != 0 {
		mod := r.Module.module()
		prg.Module = &mod
	}
	return prg
}

const (
	progressColumns = `p.id, p.student_id, p.module_id, p.status, p.created_at, p.updated_at`

	progressJoinColumns = `
	s.id AS "student.id", s.first_name AS "student.first_name", s.last_name AS "student.last_name",
	s.middle_name AS "student.middle_name", s.email AS "student.email", s.role AS "student.role",
	s.is_verified AS "student.is_verified", s.created_at AS "student.created_at", s.updated_at AS "student.updated_at",
	m.id AS "module.id", m.course_id AS "module.course_id", m.title AS "module.title",
	m.content AS "module.content", m.order_num AS "module.order_num",
	m.created_at AS "module.created_at", m.updated_at AS "module.updated_at",
	c.id AS "module.course.id", c.teacher_id AS "module.course.teacher_id", c.title AS "module.course.title",
	c.description AS "module.course.description", c.created_at AS "module.course.created_at",
	c.updated_at AS "module.course.updated_at"`

	progressJoins = `
FROM progress p
JOIN users s ON p.student_id = s.id
JOIN modules m ON p.module_id = m.id
JOIN courses c ON m.course_id = c.id`
)

func (repo progressRepository) CheckUniqueness(ctx context.Context, studentID, moduleID int, excludedIDs ...int) error {
	query := `SELECT EXISTS (SELECT 1 FROM progress WHERE student_id = $1 AND module_id = $2 AND id != ALL($3))`
	var exists bool
	if err := repo.db.GetContext(ctx, &exists, query, studentID, moduleID, intArray(excludedIDs)); err != nil {
		return errors.Wrap(err, "checking progress uniqueness")
	}
	if exists {
		return core.NewConflictError(progress.InvariantStudentModule, "student already has a progress record for this module")
	}
	return nil
}

func (repo progressRepository) CreateProgress(ctx context.Context, prg progress.Progress) (progress.Progress, error) {
	query := `
INSERT INTO progress (student_id, module_id, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, student_id, module_id, status, created_at, updated_at`
	now := time.Now().UTC()
	var row progressRow
	err := repo.db.GetContext(ctx, &row, query, prg.StudentID, prg.ModuleID, prg.Status, now, now)
	if err != nil {
		return progress.Progress{}, trapUniqueErr(err, progress.InvariantStudentModule, "inserting progress record")
	}
	return row.progress(), nil
}

func (repo progressRepository) GetProgressByID(ctx context.Context, id int) (progress.Progress, error) {
	query := `SELECT ` + progressColumns + `, ` + progressJoinColumns + progressJoins + ` WHERE p.id = $1`
	var row progressRow
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		return progress.Progress{}, trapNoRowsErr(err, progress.ErrNotFound, "getting progress record")
	}
	return row.progress(), nil
}

func (repo progressRepository) FilterProgress(ctx context.Context, scope access.ListScope, page core.Pagination) ([]progress.Progress, int, error) {
	var legs []string
	var args []interface{}
	if !scope.All {
		if scope.TeacherID != 0 {
			args = append(args, scope.TeacherID)
			legs = append(legs, fmt.Sprintf("c.teacher_id = $%d", len(args)))
		}
		if scope.StudentID != 0 {
			args = append(args, scope.StudentID)
			legs = append(legs, fmt.Sprintf("p.student_id = $%d", len(args)))
		}
	}
	where := orWhere(legs)
	if !scope.All && where == "" {
		return nil, 0, nil
	}

	var total int
	if err := repo.db.GetContext(ctx, &total, `SELECT COUNT(*) `+progressJoins+` `+where, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting progress records")
	}

	query := fmt.Sprintf(`
SELECT `+progressColumns+`, `+progressJoinColumns+progressJoins+`
%s
ORDER BY p.created_at DESC, p.id DESC LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, page.Limit, page.Offset())

	var rows []progressRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "filtering progress records")
	}
	records := make([]progress.Progress, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.progress())
	}
	return records, total, nil
}

func (repo progressRepository) UpdateProgress(ctx context.Context, prg progress.Progress) (progress.Progress, error) {
	query := `
UPDATE progress
SET status = $2, updated_at = $3
WHERE id = $1
RETURNING id, student_id, module_id, status, created_at, updated_at`
	var row progressRow
	err := repo.db.GetContext(ctx, &row, query, prg.ID, prg.Status, time.Now().UTC())
	if err != nil {
		return progress.Progress{}, trapNoRowsErr(err, progress.ErrNotFound, "updating progress record")
	}
	return row.progress(), nil
}

func (repo progressRepository) DeleteProgress(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM progress WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting progress record")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return progress.ErrNotFound
	}
	return nil
}
