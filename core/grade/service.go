package grade

import (
	"context"

	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/access"
	"github.com/chuoapp/chuo/core/course"
	"github.com/chuoapp/chuo/core/user"
)

var (
	ErrNotFound = core.NewNotFoundError("grade")
)

// InvariantStudentAssignment guards the single-grade-per-student-per-assignment rule.
const InvariantStudentAssignment = "grade_per_student_assignment"

// InvariantEnrollment guards grading of students that are not enrolled in the
// assignment's course. It holds for every requester, admins included.
const InvariantEnrollment = "grade_requires_enrollment"

type UserGetter interface {
	GetUserByID(ctx context.Context, id int) (user.User, error)
}

type AssignmentGetter interface {
	GetAssignmentByID(ctx context.Context, id int) (course.Assignment, error)
}

type Service interface {
	Create(ctx context.Context, p access.Principal, ng NewGrade) (Grade, error)
	Get(ctx context.Context, p access.Principal, id int) (Grade, error)
	List(ctx context.Context, p access.Principal, page core.Pagination) ([]Grade, int, error)
	Update(ctx context.Context, p access.Principal, id int, ug UpdateGrade) (Grade, error)
	Delete(ctx context.Context, p access.Principal, id int) error
}

type service struct {
	repo        Repository
	users       UserGetter
	assignments AssignmentGetter
	engine      *access.Engine
	enroll      access.EnrollmentIndex
}

var _ Service = (*service)(nil)

func NewService(repo Repository, users UserGetter, assignments AssignmentGetter, engine *access.Engine, enroll access.EnrollmentIndex) Service {
	return &service{repo: repo, users: users, assignments: assignments, engine: engine, enroll: enroll}
}

func (svc *service) Create(ctx context.Context, p access.Principal, ng NewGrade) (Grade, error) {
	asg, err := svc.assignments.GetAssignmentByID(ctx, ng.AssignmentID)
	if err != nil {
		if core.IsNotFound(err) {
			return Grade{}, core.NewValidationError(nil, core.FieldError{Field: "assignment_id", Error: "assignment not found"})
		}
		return Grade{}, err
	}
	rc := assignmentContext(asg)
	rc.StudentID = ng.StudentID
	if err := svc.engine.Can(ctx, p, access.ResourceGrade, access.ActionCreate, rc); err != nil {
		return Grade{}, err
	}

	std, err := svc.users.GetUserByID(ctx, ng.StudentID)
	if err != nil {
		if core.IsNotFound(err) {
			return Grade{}, core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "student not found"})
		}
		return Grade{}, err
	}
	if !std.IsStudent() {
		return Grade{}, core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "user is not a student"})
	}

	// Data invariant, not a role check: nobody grades an unenrolled student.
	ok, err := svc.enroll.IsEnrolled(ctx, ng.StudentID, rc.CourseID)
	if err != nil {
		return Grade{}, err
	}
	if !ok {
		return Grade{}, core.NewConflictError(InvariantEnrollment, "student is not enrolled in the assignment's course")
	}

	if err := svc.repo.CheckUniqueness(ctx, ng.StudentID, ng.AssignmentID); err != nil {
		if core.IsConflict(err) {
			return Grade{}, core.NewConflictError(InvariantStudentAssignment, "student already has a grade for this assignment")
		}
		return Grade{}, err
	}

	grd := Grade{
		StudentID:    ng.StudentID,
		AssignmentID: ng.AssignmentID,
		Score:        ng.Score,
		Feedback:     ng.Feedback,
	}
	grd, err = svc.repo.CreateGrade(ctx, grd)
	if err != nil {
		return Grade{}, errors.Wrap(err, "creating grade")
	}
	grd.Student = &std
	grd.Assignment = &asg
	return grd, nil
}

func (svc *service) Get(ctx context.Context, p access.Principal, id int) (Grade, error) {
	grd, err := svc.repo.GetGradeByID(ctx, id)
	if err != nil {
		return Grade{}, err
	}
	if err := svc.engine.Can(ctx, p, access.ResourceGrade, access.ActionRead, gradeContext(grd)); err != nil {
		return Grade{}, err
	}
	return grd, nil
}

func (svc *service) List(ctx context.Context, p access.Principal, page core.Pagination) ([]Grade, int, error) {
	scope, err := svc.engine.ScopeList(p, access.ResourceGrade, false)
	if err != nil {
		return nil, 0, err
	}
	page.Clean()
	grades, total, err := svc.repo.FilterGrades(ctx, scope, page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "filtering grades")
	}
	return grades, total, nil
}

func (svc *service) Update(ctx context.Context, p access.Principal, id int, ug UpdateGrade) (Grade, error) {
	grd, err := svc.repo.GetGradeByID(ctx, id)
	if err != nil {
		return Grade{}, err
	}
	if err := svc.engine.Can(ctx, p, access.ResourceGrade, access.ActionUpdate, gradeContext(grd)); err != nil {
		return Grade{}, err
	}

	if ug.Score != nil {
		grd.Score = *ug.Score
	}
	if ug.Feedback != "" {
		grd.Feedback = ug.Feedback
	}
	grd, err = svc.repo.UpdateGrade(ctx, grd)
	if err != nil {
		return Grade{}, errors.Wrap(err, "updating grade")
	}
	return grd, nil
}

func (svc *service) Delete(ctx context.Context, p access.Principal, id int) error {
	grd, err := svc.repo.GetGradeByID(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	if err := svc.engine.Can(ctx, p, access.ResourceGrade, access.ActionDelete, gradeContext(grd)); err != nil {
		return err
	}
	return svc.repo.DeleteGrade(ctx, grd.ID)
}

func gradeContext(grd Grade) access.Context {
	rc := access.Context{StudentID: grd.StudentID}
	if grd.Assignment != nil {
		asgCtx := assignmentContext(*grd.Assignment)
		rc.TeacherID = asgCtx.TeacherID
		rc.CourseID = asgCtx.CourseID
	}
	return rc
}

func assignmentContext(asg course.Assignment) access.Context {
	var rc access.Context
	if asg.Module != nil {
		if crs := asg.Module.Course; crs != nil {
			rc.TeacherID = crs.TeacherID
			rc.CourseID = crs.ID
		}
	}
	return rc
}
