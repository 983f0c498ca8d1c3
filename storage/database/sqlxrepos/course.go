package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/access"
	"github.com/chuoapp/chuo/core/course"
)

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

type courseRow struct {
	ID          int       `db:"id"`
	TeacherID   int       `db:"teacher_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
	Teacher     userRow   `db:"teacher"`
}

func (r courseRow) course() course.Course {
	crs := course.Course{
		ID:          r.ID,
		TeacherID:   r.TeacherID,
		Title:       r.Title,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.Teacher.ID != 0 {
		teacher := r.Teacher.user()
		crs.Teacher = &teacher
	}
	return crs
}

type moduleRow struct {
	ID        int       `db:"id"`
	CourseID  int       `db:"course_id"`
	Title     string    `db:"title"`
	Content   string    `db:"content"`
	OrderNum  int       `db:"order_num"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
	Course    courseRow `db:"course"`
}

func (r moduleRow) module() course.Module {
	mod := course.Module{
		ID:        r.ID,
		CourseID:  r.CourseID,
		Title:     r.Title,
		Content:   r.Content,
		OrderNum:  r.OrderNum,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Course.ID != 0 {
		crs := r.Course.course()
		mod.Course = &crs
	}
	return mod
}

type assignmentRow struct {
	ID          int       `db:"id"`
	ModuleID    int       `db:"module_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	DueDate     time.Time `db:"due_date"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
	Module      moduleRow `db:"module"`
}

func (r assignmentRow) assignment() course.Assignment {
	asg := course.Assignment{
		ID:          r.ID,
		ModuleID:    r.ModuleID,
		Title:       r.Title,
		Description: r.Description,
		DueDate:     r.DueDate,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.Module.ID != 0 {
		mod := r.Module.module()
		asg.Module = &mod
	}
	return asg
}

const (
	courseColumns = `c.id, c.teacher_id, c.title, c.description, c.created_at, c.updated_at`

	teacherJoinColumns = `
	u.id AS "teacher.id", u.first_name AS "teacher.first_name", u.last_name AS "teacher.last_name",
	u.middle_name AS "teacher.middle_name", u.email AS "teacher.email", u.role AS "teacher.role",
	u.is_verified AS "teacher.is_verified", u.created_at AS "teacher.created_at", u.updated_at AS "teacher.updated_at"`

	moduleColumns = `m.id, m.course_id, m.title, m.content, m.order_num, m.created_at, m.updated_at`

	moduleCourseJoinColumns = `
	c.id AS "course.id", c.teacher_id AS "course.teacher_id", c.title AS "course.title",
	c.description AS "course.description", c.created_at AS "course.created_at", c.updated_at AS "course.updated_at"`

	assignmentColumns = `a.id, a.module_id, a.title, a.description, a.due_date, a.created_at, a.updated_at`

	assignmentModuleJoinColumns = `
	m.id AS "module.id", m.course_id AS "module.course_id", m.title AS "module.title",
	m.content AS "module.content", m.order_num AS "module.order_num",
	m.created_at AS "module.created_at", m.updated_at AS "module.updated_at",
	c.id AS "module.course.id", c.teacher_id AS "module.course.teacher_id", c.title AS "module.course.title",
	c.description AS "module.course.description", c.created_at AS "module.course.created_at",
	c.updated_at AS "module.course.updated_at"`
)

// Courses

func (repo courseRepository) CheckCourseTitleUniqueness(ctx context.Context, title string, teacherID int, excludedIDs ...int) error {
	query := `SELECT EXISTS (SELECT 1 FROM courses WHERE teacher_id = $1 AND lower(title) = lower($2) AND id != ALL($3))`
	var exists bool
	if err := repo.db.GetContext(ctx, &exists, query, teacherID, title, intArray(excludedIDs)); err != nil {
		return errors.Wrap(err, "checking course title uniqueness")
	}
	if exists {
		return core.NewConflictError(course.InvariantCourseTitle, "this teacher already has a course with this title")
	}
	return nil
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	query := `
INSERT INTO courses (teacher_id, title, description, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, teacher_id, title, description, created_at, updated_at`
	var row courseRow
	err := repo.db.GetContext(ctx, &row, query, crs.TeacherID, crs.Title, crs.Description, crs.CreatedAt, crs.UpdatedAt)
	if err != nil {
		return course.Course{}, trapUniqueErr(err, course.InvariantCourseTitle, "inserting course")
	}
	return row.course(), nil
}

func (repo courseRepository) GetCourseByID(ctx context.Context, id int) (course.Course, error) {
	query := `
SELECT ` + courseColumns + `, ` + teacherJoinColumns + `
FROM courses c
JOIN users u ON c.teacher_id = u.id
WHERE c.id = $1`
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrCourseNotFound, "getting course")
	}
	return row.course(), nil
}

func (repo courseRepository) FilterCourses(ctx context.Context, scope access.ListScope, page core.Pagination) ([]course.Course, int, error) {
	var legs []string
	var args []interface{}
	if !scope.All {
		if scope.TeacherID != 0 {
			args = append(args, scope.TeacherID)
			legs = append(legs, fmt.Sprintf("c.teacher_id = $%d", len(args)))
		}
		if scope.EnrolledStudentID != 0 {
			args = append(args, scope.EnrolledStudentID)
			legs = append(legs, fmt.Sprintf("EXISTS (SELECT 1 FROM enrollments e WHERE e.course_id = c.id AND e.student_id = $%d)", len(args)))
		}
	}
	where := orWhere(legs)
	if !scope.All && where == "" {
		return nil, 0, nil
	}

	var total int
	if err := repo.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM courses c `+where, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting courses")
	}

	query := fmt.Sprintf(`
SELECT `+courseColumns+`, `+teacherJoinColumns+`
FROM courses c
JOIN users u ON c.teacher_id = u.id
%s
ORDER BY c.created_at DESC, c.id DESC LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, page.Limit, page.Offset())

	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "filtering courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.course())
	}
	return courses, total, nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	query := `
UPDATE courses
SET teacher_id = $2, title = $3, description = $4, updated_at = $5
WHERE id = $1
RETURNING id, teacher_id, title, description, created_at, updated_at`
	var row courseRow
	err := repo.db.GetContext(ctx, &row, query, crs.ID, crs.TeacherID, crs.Title, crs.Description, time.Now().UTC())
	if err != nil {
		if err := trapNoRowsErr(err, course.ErrCourseNotFound, ""); err == course.ErrCourseNotFound {
			return course.Course{}, err
		}
		return course.Course{}, trapUniqueErr(err, course.InvariantCourseTitle, "updating course")
	}
	return row.course(), nil
}

func (repo courseRepository) DeleteCourse(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.ErrCourseNotFound
	}
	return nil
}

// Modules

func (repo courseRepository) CheckModuleTitleUniqueness(ctx context.Context, title string, courseID int, excludedIDs ...int) error {
	query := `SELECT EXISTS (SELECT 1 FROM modules WHERE course_id = $1 AND lower(title) = lower($2) AND id != ALL($3))`
	var exists bool
	if err := repo.db.GetContext(ctx, &exists, query, courseID, title, intArray(excludedIDs)); err != nil {
		return errors.Wrap(err, "checking module title uniqueness")
	}
	if exists {
		return core.NewConflictError(course.InvariantModuleTitle, "this course already has a module with this title")
	}
	return nil
}

func (repo courseRepository) CreateModule(ctx context.Context, mod course.Module) (course.Module, error) {
	query := `
INSERT INTO modules (course_id, title, content, order_num, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, course_id, title, content, order_num, created_at, updated_at`
	var row moduleRow
	err := repo.db.GetContext(ctx, &row, query, mod.CourseID, mod.Title, mod.Content, mod.OrderNum, mod.CreatedAt, mod.UpdatedAt)
	if err != nil {
		return course.Module{}, trapUniqueErr(err, course.InvariantModuleTitle, "inserting module")
	}
	return row.module(), nil
}

func (repo courseRepository) GetModuleByID(ctx context.Context, id int) (course.Module, error) {
	query := `
SELECT ` + moduleColumns + `, ` + moduleCourseJoinColumns + `
FROM modules m
JOIN courses c ON m.course_id = c.id
WHERE m.id = $1`
	var row moduleRow
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		return course.Module{}, trapNoRowsErr(err, course.ErrModuleNotFound, "getting module")
	}
	return row.module(), nil
}

func (repo courseRepository) FilterModules(ctx context.Context, scope access.ListScope, page core.Pagination) ([]course.Module, int, error) {
	var legs []string
	var args []interface{}
	if !scope.All {
		if scope.TeacherID != 0 {
			args = append(args, scope.TeacherID)
			legs = append(legs, fmt.Sprintf("c.teacher_id = $%d", len(args)))
		}
		if scope.EnrolledStudentID != 0 {
			args = append(args, scope.EnrolledStudentID)
			legs = append(legs, fmt.Sprintf("EXISTS (SELECT 1 FROM enrollments e WHERE e.course_id = m.course_id AND e.student_id = $%d)", len(args)))
		}
	}
	where := orWhere(legs)
	if !scope.All && where == "" {
		return nil, 0, nil
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM modules m JOIN courses c ON m.course_id = c.id ` + where
	if err := repo.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting modules")
	}

	query := fmt.Sprintf(`
SELECT `+moduleColumns+`, `+moduleCourseJoinColumns+`
FROM modules m
JOIN courses c ON m.course_id = c.id
%s
ORDER BY m.course_id, m.order_num, m.id LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, page.Limit, page.Offset())

	var rows []moduleRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "filtering modules")
	}
	modules := make([]course.Module, 0, len(rows))
	for _, row := range rows {
		modules = append(modules, row.module())
	}
	return modules, total, nil
}

func (repo courseRepository) UpdateModule(ctx context.Context, mod course.Module) (course.Module, error) {
	query := `
UPDATE modules
SET title = $2, content = $3, order_num = $4, updated_at = $5
WHERE id = $1
RETURNING id, course_id, title, content, order_num, created_at, updated_at`
	var row moduleRow
	err := repo.db.GetContext(ctx, &row, query, mod.ID, mod.Title, mod.Content, mod.OrderNum, time.Now().UTC())
	if err != nil {
		if err := trapNoRowsErr(err, course.ErrModuleNotFound, ""); err == course.ErrModuleNotFound {
			return course.Module{}, err
		}
		return course.Module{}, trapUniqueErr(err, course.InvariantModuleTitle, "updating module")
	}
	return row.module(), nil
}

func (repo courseRepository) DeleteModule(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM modules WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting module")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.ErrModuleNotFound
	}
	return nil
}

// Assignments

func (repo courseRepository) CheckAssignmentTitleUniqueness(ctx context.Context, title string, moduleID int, excludedIDs ...int) error {
	query := `SELECT EXISTS (SELECT 1 FROM assignments WHERE module_id = $1 AND lower(title) = lower($2) AND id != ALL($3))`
	var exists bool
	if err := repo.db.GetContext(ctx, &exists, query, moduleID, title, intArray(excludedIDs)); err != nil {
		return errors.Wrap(err, "checking assignment title uniqueness")
	}
	if exists {
		return core.NewConflictError(course.InvariantAssignmentTitle, "this module already has an assignment with this title")
	}
	return nil
}

func (repo courseRepository) CreateAssignment(ctx context.Context, asg course.Assignment) (course.Assignment, error) {
	query := `
INSERT INTO assignments (module_id, title, description, due_date, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, module_id, title, description, due_date, created_at, updated_at`
	var row assignmentRow
	err := repo.db.GetContext(ctx, &row, query, asg.ModuleID, asg.Title, asg.Description, asg.DueDate, asg.CreatedAt, asg.UpdatedAt)
	if err != nil {
		return course.Assignment{}, trapUniqueErr(err, course.InvariantAssignmentTitle, "inserting assignment")
	}
	return row.assignment(), nil
}

func (repo courseRepository) GetAssignmentByID(ctx context.Context, id int) (course.Assignment, error) {
	query := `
SELECT ` + assignmentColumns + `, ` + assignmentModuleJoinColumns + `
FROM assignments a
JOIN modules m ON a.module_id = m.id
JOIN courses c ON m.course_id = c.id
WHERE a.id = $1`
	var row assignmentRow
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		return course.Assignment{}, trapNoRowsErr(err, course.ErrAssignmentNotFound, "getting assignment")
	}
	return row.assignment(), nil
}

func (repo courseRepository) FilterAssignments(ctx context.Context, scope access.ListScope, page core.Pagination) ([]course.Assignment, int, error) {
	var legs []string
	var args []interface{}
	if !scope.All {
		if scope.TeacherID != 0 {
			args = append(args, scope.TeacherID)
			legs = append(legs, fmt.Sprintf("c.teacher_id = $%d", len(args)))
		}
		if scope.EnrolledStudentID != 0 {
			args = append(args, scope.EnrolledStudentID)
			legs = append(legs, fmt.Sprintf("EXISTS (SELECT 1 FROM enrollments e WHERE e.course_id = m.course_id AND e.student_id = $%d)", len(args)))
		}
	}
	where := orWhere(legs)
	if !scope.All && where == "" {
		return nil, 0, nil
	}

	joins := `
FROM assignments a
JOIN modules m ON a.module_id = m.id
JOIN courses c ON m.course_id = c.id`

	var total int
	if err := repo.db.GetContext(ctx, &total, `SELECT COUNT(*) `+joins+` `+where, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting assignments")
	}

	query := fmt.Sprintf(`
SELECT `+assignmentColumns+`, `+assignmentModuleJoinColumns+joins+`
%s
ORDER BY a.due_date, a.id LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, page.Limit, page.Offset())

	var rows []assignmentRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "filtering assignments")
	}
	assignments := make([]course.Assignment, 0, len(rows))
	for _, row := range rows {
		assignments = append(assignments, row.assignment())
	}
	return assignments, total, nil
}

func (repo courseRepository) UpdateAssignment(ctx context.Context, asg course.Assignment) (course.Assignment, error) {
	query := `
UPDATE assignments
SET title = $2, description = $3, due_date = $4, updated_at = $5
WHERE id = $1
RETURNING id, module_id, title, description, due_date, created_at, updated_at`
	var row assignmentRow
	err := repo.db.GetContext(ctx, &row, query, asg.ID, asg.Title, asg.Description, asg.DueDate, time.Now().UTC())
	if err != nil {
		if err := trapNoRowsErr(err, course.ErrAssignmentNotFound, ""); err == course.ErrAssignmentNotFound {
			return course.Assignment{}, err
		}
		return course.Assignment{}, trapUniqueErr(err, course.InvariantAssignmentTitle, "updating assignment")
	}
	return row.assignment(), nil
}

func (repo courseRepository) DeleteAssignment(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM assignments WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.ErrAssignmentNotFound
	}
	return nil
}

func orWhere(legs []string) string {
	if len(legs) == 0 {
		return ""
	}
	return "WHERE (" + strings.Join(legs, " OR ") + ")"
}
