package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/access"
)

// chainResolver walks a record's foreign keys up to its owning course and
// teacher in a single query per resource kind.
type chainResolver struct {
	db *sqlx.DB
}

var _ access.ChainResolver = (*chainResolver)(nil) // interface compliance check

func NewChainResolver(db *sqlx.DB) *chainResolver {
	return &chainResolver{db: db}
}

type chainRow struct {
	TeacherID    int `db:"teacher_id"`
	CourseID     int `db:"course_id"`
	ModuleID     int `db:"module_id"`
	AssignmentID int `db:"assignment_id"`
	OwnerID      int `db:"owner_id"`
	StudentID    int `db:"student_id"`
}

func (r chainRow) chain() access.Chain {
	return access.Chain{
		TeacherID:    r.TeacherID,
		CourseID:     r.CourseID,
		ModuleID:     r.ModuleID,
		AssignmentID: r.AssignmentID,
		OwnerID:      r.OwnerID,
		StudentID:    r.StudentID,
	}
}

var chainQueries = map[access.Resource]string{
	access.ResourceCourse: `
SELECT c.teacher_id, c.id AS course_id, 0 AS module_id, 0 AS assignment_id, 0 AS owner_id, 0 AS student_id
FROM courses c WHERE c.id = $1`,

	access.ResourceModule: `
SELECT c.teacher_id, c.id AS course_id, m.id AS module_id, 0 AS assignment_id, 0 AS owner_id, 0 AS student_id
FROM modules m
JOIN courses c ON m.course_id = c.id
WHERE m.id = $1`,

	access.ResourceAssignment: `
SELECT c.teacher_id, c.id AS course_id, m.id AS module_id, a.id AS assignment_id, 0 AS owner_id, 0 AS student_id
FROM assignments a
JOIN modules m ON a.module_id = m.id
JOIN courses c ON m.course_id = c.id
WHERE a.id = $1`,

	access.ResourceEnrollment: `
SELECT c.teacher_id, c.id AS course_id, 0 AS module_id, 0 AS assignment_id, 0 AS owner_id, e.student_id
FROM enrollments e
JOIN courses c ON e.course_id = c.id
WHERE e.id = $1`,

	access.ResourceGrade: `
SELECT c.teacher_id, c.id AS course_id, m.id AS module_id, a.id AS assignment_id, 0 AS owner_id, g.student_id
FROM grades g
JOIN assignments a ON g.assignment_id = a.id
JOIN modules m ON a.module_id = m.id
JOIN courses c ON m.course_id = c.id
WHERE g.id = $1`,

	access.ResourceComment: `
SELECT c.teacher_id, c.id AS course_id, m.id AS module_id, 0 AS assignment_id, cm.author_id AS owner_id, 0 AS student_id
FROM comments cm
JOIN modules m ON cm.module_id = m.id
JOIN courses c ON m.course_id = c.id
WHERE cm.id = $1`,

	access.ResourceProgress: `
SELECT c.teacher_id, c.id AS course_id, m.id AS module_id, 0 AS assignment_id, 0 AS owner_id, p.student_id
FROM progress p
JOIN modules m ON p.module_id = m.id
JOIN courses c ON m.course_id = c.id
WHERE p.id = $1`,

	access.ResourceFile: `
SELECT COALESCE(cc.teacher_id, 0) AS teacher_id, COALESCE(cc.id, 0) AS course_id,
	COALESCE(tm.id, am.id, 0) AS module_id, COALESCE(ta.id, 0) AS assignment_id,
	f.owner_id, 0 AS student_id
FROM files f
LEFT JOIN courses tc ON f.target_kind = 'course' AND f.target_id = tc.id
LEFT JOIN modules tm ON f.target_kind = 'module' AND f.target_id = tm.id
LEFT JOIN assignments ta ON f.target_kind = 'assignment' AND f.target_id = ta.id
LEFT JOIN modules am ON ta.module_id = am.id
LEFT JOIN courses cc ON COALESCE(tc.id, tm.course_id, am.course_id) = cc.id
WHERE f.id = $1`,
}

func (r chainResolver) Resolve(ctx context.Context, res access.Resource, id int) (access.Chain, error) {
	query, ok := chainQueries[res]
	if !ok {
		return access.Chain{}, errors.Errorf("no ownership chain for resource %q", res)
	}
	var row chainRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return access.Chain{}, core.NewNotFoundError(string(res))
		}
		return access.Chain{}, errors.Wrapf(err, "resolving %s chain", res)
	}
	return row.chain(), nil
}
