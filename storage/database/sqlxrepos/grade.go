package sqlxrepos

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/access"
	"github.com/chuoapp/chuo/core/grade"
)

type gradeRepository struct {
	db *sqlx.DB
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db *sqlx.DB) *gradeRepository {
	return &gradeRepository{db: db}
}

type gradeRow struct {
	ID           int           `db:"id"`
	StudentID    int           `db:"student_id"`
	AssignmentID int           `db:"assignment_id"`
	Score        float64       `db:"score"`
	Feedback     string        `db:"feedback"`
	CreatedAt    time.Time     `db:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at"`
	Student      userRow       `db:"student"`
	Assignment   assignmentRow `db:"assignment"`
}

func (r gradeRow) grade() grade.Grade {
	grd := grade.Grade{
		ID:           r.ID,
		StudentID:    r.StudentID,
		AssignmentID: r.AssignmentID,
		Score:        r.Score,
		Feedback:     r.Feedback,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.Student.ID != 0 {
		std := r.Student.user()
		grd.Student = &std
	}
	if r.Assignment.ID != 0 {
		asg := r.Assignment.assignment()
		grd.Assignment = &asg
	}
	return grd
}

const (
	gradeColumns = `g.id, g.student_id, g.assignment_id, g.score, g.feedback, g.created_at, g.updated_at`

	gradeJoinColumns = `
	s.id AS "student.id", s.first_name AS "student.first_name", s.last_name AS "student.last_name",
	s.middle_name AS "student.middle_name", s.email AS "student.email", s.role AS "student.role",
	s.is_verified AS "student.is_verified", s.created_at AS "student.created_at", s.updated_at AS "student.updated_at",
	a.id AS "assignment.id", a.module_id AS "assignment.module_id", a.title AS "assignment.title",
	a.description AS "assignment.description", a.due_date AS "assignment.due_date",
	a.created_at AS "assignment.created_at", a.updated_at AS "assignment.updated_at",
	m.id AS "assignment.module.id", m.course_id AS "assignment.module.course_id",
	m.title AS "assignment.module.title", m.content AS "assignment.module.content",
	m.order_num AS "assignment.module.order_num",
	m.created_at AS "assignment.module.created_at", m.updated_at AS "assignment.module.updated_at",
	c.id AS "assignment.module.course.id", c.teacher_id AS "assignment.module.course.teacher_id",
	c.title AS "assignment.module.course.title", c.description AS "assignment.module.course.description",
	c.created_at AS "assignment.module.course.created_at", c.updated_at AS "assignment.module.course.updated_at"`

	gradeJoins = `
FROM grades g
JOIN users s ON g.student_id = s.id
JOIN assignments a ON g.assignment_id = a.id
JOIN modules m ON a.module_id = m.id
JOIN courses c ON m.course_id = c.id`
)

func (repo gradeRepository) CheckUniqueness(ctx context.Context, studentID, assignmentID int, excludedIDs ...int) error {
	query := `SELECT EXISTS (SELECT 1 FROM grades WHERE student_id = $1 AND assignment_id = $2 AND id != ALL($3))`
	var exists bool
	if err := repo.db.GetContext(ctx, &exists, query, studentID, assignmentID, intArray(excludedIDs)); err != nil {
		return errors.Wrap(err, "checking grade uniqueness")
	}
	if exists {
		return core.NewConflictError(grade.InvariantStudentAssignment, "student already has a grade for this assignment")
	}
	return nil
}

func (repo gradeRepository) CreateGrade(ctx context.Context, grd grade.Grade) (grade.Grade, error) {
	query := `
INSERT INTO grades (student_id, assignment_id, score, feedback, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, student_id, assignment_id, score, feedback, created_at, updated_at`
	now := time.Now().UTC()
	var row gradeRow
	err := repo.db.GetContext(ctx, &row, query, grd.StudentID, grd.AssignmentID, grd.Score, grd.Feedback, now, now)
	if err != nil {
		return grade.Grade{}, trapUniqueErr(err, grade.InvariantStudentAssignment, "inserting grade")
	}
	return row.grade(), nil
}

func (repo gradeRepository) GetGradeByID(ctx context.Context, id int) (grade.Grade, error) {
	query := `SELECT ` + gradeColumns + `, ` + gradeJoinColumns + gradeJoins + ` WHERE g.id = $1`
	var row gradeRow
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		return grade.Grade{}, trapNoRowsErr(err, grade.ErrNotFound, "getting grade")
	}
	return row.grade(), nil
}

func (repo gradeRepository) FilterGrades(ctx context.Context, scope access.ListScope, page core.Pagination) ([]grade.Grade, int, error) {
	var legs []string
	var args []interface{}
	if !scope.All {
		if scope.TeacherID != 0 {
			args = append(args, scope.TeacherID)
			legs = append(legs, fmt.Sprintf("c.teacher_id = $%d", len(args)))
		}
		if scope.StudentID != 0 {
			args = append(args, scope.StudentID)
			legs = append(legs, fmt.Sprintf("g.student_id = $%d", len(args)))
		}
	}
	where := orWhere(legs)
	if !scope.All && where == "" {
		return nil, 0, nil
	}

	var total int
	if err := repo.db.GetContext(ctx, &total, `SELECT COUNT(*) `+gradeJoins+` `+where, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting grades")
	}

	query := fmt.Sprintf(`
SELECT `+gradeColumns+`, `+gradeJoinColumns+gradeJoins+`
%s
ORDER BY g.created_at DESC, g.id DESC LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, page.Limit, page.Offset())

	var rows []gradeRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "filtering grades")
	}
	grades := make([]grade.Grade, 0, len(rows))
	for _, row := range rows {
		grades = append(grades, row.grade())
	}
	return grades, total, nil
}

func (repo gradeRepository) UpdateGrade(ctx context.Context, grd grade.Grade) (grade.Grade, error) {
	query := `
UPDATE grades
SET score = $2, feedback = $3, updated_at = $4
WHERE id = $1
RETURNING id, student_id, assignment_id, score, feedback, created_at, updated_at`
	var row gradeRow
	err := repo.db.GetContext(ctx, &row, query, grd.ID, grd.Score, grd.Feedback, time.Now().UTC())
	if err != nil {
		return grade.Grade{}, trapNoRowsErr(err, grade.ErrNotFound, "updating grade")
	}
	return row.grade(), nil
}

func (repo gradeRepository) DeleteGrade(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM grades WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting grade")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return grade.ErrNotFound
	}
	return nil
}
