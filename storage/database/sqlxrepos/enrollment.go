package sqlxrepos

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/access"
	"github.com/chuoapp/chuo/core/enrollment"
)

type enrollmentRepository struct {
	db *sqlx.DB
}

var (
	_ enrollment.Repository  = (*enrollmentRepository)(nil) // interface compliance check
	_ access.EnrollmentIndex = (*enrollmentRepository)(nil)
)

func NewEnrollmentRepository(db *sqlx.DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

type enrollmentRow struct {
	ID        int       `db:"id"`
	StudentID int       `db:"student_id"`
	CourseID  int       `db:"course_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
	Student   userRow   `db:"student"`
	Course    courseRow `db:"course"`
}

func (r enrollmentRow) enrollment() enrollment.Enrollment {
	enr := enrollment.Enrollment{
		ID:        r.ID,
		StudentID: r.StudentID,
		CourseID:  r.CourseID,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Student.ID != 0 {
		std := r.Student.user()
		enr.Student = &std
	}
	if r.Course.ID != 0 {
		crs := r.Course.course()
		enr.Course = &crs
	}
	return enr
}

const (
	enrollmentColumns = `e.id, e.student_id, e.course_id, e.created_at, e.updated_at`

	enrollmentJoinColumns = `
	s.id AS "student.id", s.first_name AS "student.first_name", s.last_name AS "student.last_name",
	s.middle_name AS "student.middle_name", s.email AS "student.email", s.role AS "student.role",
	s.is_verified AS "student.is_verified", s.created_at AS "student.created_at", s.updated_at AS "student.updated_at",
	c.id AS "course.id", c.teacher_id AS "course.teacher_id", c.title AS "course.title",
	c.description AS "course.description", c.created_at AS "course.created_at", c.updated_at AS "course.updated_at"`

	enrollmentJoins = `
FROM enrollments e
JOIN users s ON e.student_id = s.id
JOIN courses c ON e.course_id = c.id`
)

func (repo enrollmentRepository) IsEnrolled(ctx context.Context, studentID, courseID int) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2)`
	if err := repo.db.GetContext(ctx, &exists, query, studentID, courseID); err != nil {
		return false, errors.Wrap(err, "checking enrollment")
	}
	return exists, nil
}

func (repo enrollmentRepository) CheckUniqueness(ctx context.Context, studentID, courseID int, excludedIDs ...int) error {
	query := `SELECT EXISTS (SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2 AND id != ALL($3))`
	var exists bool
	if err := repo.db.GetContext(ctx, &exists, query, studentID, courseID, intArray(excludedIDs)); err != nil {
		return errors.Wrap(err, "checking enrollment uniqueness")
	}
	if exists {
		return core.NewConflictError(enrollment.InvariantStudentCourse, "student is already enrolled in this course")
	}
	return nil
}

func (repo enrollmentRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	query := `
INSERT INTO enrollments (student_id, course_id, created_at, updated_at)
VALUES ($1, $2, $3, $4)
RETURNING id, student_id, course_id, created_at, updated_at`
	var row enrollmentRow
	err := repo.db.GetContext(ctx, &row, query, enr.StudentID, enr.CourseID, enr.CreatedAt, enr.UpdatedAt)
	if err != nil {
		return enrollment.Enrollment{}, trapUniqueErr(err, enrollment.InvariantStudentCourse, "inserting enrollment")
	}
	return row.enrollment(), nil
}

func (repo enrollmentRepository) GetEnrollmentByID(ctx context.Context, id int) (enrollment.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + `, ` + enrollmentJoinColumns + enrollmentJoins + ` WHERE e.id = $1`
	var row enrollmentRow
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		return enrollment.Enrollment{}, trapNoRowsErr(err, enrollment.ErrNotFound, "getting enrollment")
	}
	return row.enrollment(), nil
}

func (repo enrollmentRepository) FilterEnrollments(ctx context.Context, scope access.ListScope, page core.Pagination) ([]enrollment.Enrollment, int, error) {
	var legs []string
	var args []interface{}
	if !scope.All {
		if scope.TeacherID != 0 {
			args = append(args, scope.TeacherID)
			legs = append(legs, fmt.Sprintf("c.teacher_id = $%d", len(args)))
		}
		if scope.StudentID != 0 {
			args = append(args, scope.StudentID)
			legs = append(legs, fmt.Sprintf("e.student_id = $%d", len(args)))
		}
	}
	where := orWhere(legs)
	if !scope.All && where == "" {
		return nil, 0, nil
	}

	var total int
	if err := repo.db.GetContext(ctx, &total, `SELECT COUNT(*) `+enrollmentJoins+` `+where, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting enrollments")
	}

	query := fmt.Sprintf(`
SELECT `+enrollmentColumns+`, `+enrollmentJoinColumns+enrollmentJoins+`
%s
ORDER BY e.created_at DESC, e.id DESC LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, page.Limit, page.Offset())

	var rows []enrollmentRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "filtering enrollments")
	}
	enrollments := make([]enrollment.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrollments = append(enrollments, row.enrollment())
	}
	return enrollments, total, nil
}

func (repo enrollmentRepository) UpdateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	query := `
UPDATE enrollments
SET student_id = $2, course_id = $3, updated_at = $4
WHERE id = $1
RETURNING id, student_id, course_id, created_at, updated_at`
	var row enrollmentRow
	err := repo.db.GetContext(ctx, &row, query, enr.ID, enr.StudentID, enr.CourseID, time.Now().UTC())
	if err != nil {
		if err := trapNoRowsErr(err, enrollment.ErrNotFound, ""); err == enrollment.ErrNotFound {
			return enrollment.Enrollment{}, err
		}
		return enrollment.Enrollment{}, trapUniqueErr(err, enrollment.InvariantStudentCourse, "updating enrollment")
	}
	return row.enrollment(), nil
}

func (repo enrollmentRepository) DeleteEnrollment(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return enrollment.ErrNotFound
	}
	return nil
}
