package enrollment

import (
	"context"
	"time"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/access"
	"github.com/chuoapp/chuo/core/course"
)

var ErrNotFound = core.NewNotFoundError("enrollment")

// InvariantStudentCourse is the (student, course) uniqueness rule: at most
// one enrollment per pair.
const InvariantStudentCourse = "enrollment_per_student_course"

// CourseGetter is the slice of the course repository this service needs.
type CourseGetter interface {
	GetCourseByID(ctx context.Context, id int) (course.Course, error)
}

type (
	Service interface {
		Create(ctx context.Context, p access.Principal, ne NewEnrollment) (Enrollment, error)
		Get(ctx context.Context, p access.Principal, id int) (Enrollment, error)
		List(ctx context.Context, p access.Principal, page core.Pagination) ([]Enrollment, int, error)
		Update(ctx context.Context, p access.Principal, id int, ue UpdateEnrollment) (Enrollment, error)
		Delete(ctx context.Context, p access.Principal, id int) error
	}

	service struct {
		repo    Repository
		users   course.UserGetter
		courses CourseGetter
		engine  *access.Engine
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, users course.UserGetter, courses CourseGetter, engine *access.Engine) Service {
	return &service{repo: repo, users: users, courses: courses, engine: engine}
}

func (svc *service) Create(ctx context.Context, p access.Principal, ne NewEnrollment) (Enrollment, error) {
	crs, err := svc.courses.GetCourseByID(ctx, ne.CourseID)
	if err != nil {
		if core.IsNotFound(err) {
			return Enrollment{}, core.NewValidationError(nil, core.FieldError{Field: "course_id", Error: "course not found"})
		}
		return Enrollment{}, err
	}

	// students may only enroll themselves, teachers only into their own course
	rc := access.Context{StudentID: ne.StudentID, CourseID: crs.ID, TeacherID: crs.TeacherID}
	if err := svc.engine.Can(ctx, p, access.ResourceEnrollment, access.ActionCreate, rc); err != nil {
		return Enrollment{}, err
	}

	student, err := svc.users.GetUserByID(ctx, ne.StudentID)
	if err != nil {
		if core.IsNotFound(err) {
			return Enrollment{}, core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "student not found"})
		}
		return Enrollment{}, err
	}
	if !student.IsStudent() {
		return Enrollment{}, core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "user is not a student"})
	}

	if err = svc.repo.CheckUniqueness(ctx, ne.StudentID, ne.CourseID); err != nil {
		return Enrollment{}, err
	}

	now := time.Now().UTC()
	enr, err := svc.repo.CreateEnrollment(ctx, Enrollment{
		StudentID: ne.StudentID,
		CourseID:  ne.CourseID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Enrollment{}, err
	}
	enr.Student = &student
	enr.Course = &crs
	return enr, nil
}

func (svc *service) Get(ctx context.Context, p access.Principal, id int) (Enrollment, error) {
	enr, err := svc.repo.GetEnrollmentByID(ctx, id)
	if err != nil {
		return Enrollment{}, err
	}
	if err = svc.engine.Can(ctx, p, access.ResourceEnrollment, access.ActionRead, svc.context(enr)); err != nil {
		return Enrollment{}, err
	}
	return enr, nil
}

func (svc *service) List(ctx context.Context, p access.Principal, page core.Pagination) ([]Enrollment, int, error) {
	scope, err := svc.engine.ScopeList(p, access.ResourceEnrollment, false)
	if err != nil {
		return nil, 0, err
	}
	page.Clean()
	return svc.repo.FilterEnrollments(ctx, scope, page)
}

func (svc *service) Update(ctx context.Context, p access.Principal, id int, ue UpdateEnrollment) (Enrollment, error) {
	enr, err := svc.repo.GetEnrollmentByID(ctx, id)
	if err != nil {
		return Enrollment{}, err
	}
	if err = svc.engine.Can(ctx, p, access.ResourceEnrollment, access.ActionUpdate, svc.context(enr)); err != nil {
		return Enrollment{}, err
	}

	// only admin may move an enrollment to another student
	if ue.StudentID != 0 && ue.StudentID != enr.StudentID {
		if !p.IsAdmin() {
			return Enrollment{}, access.Deny(access.ReasonNotSelf, "cannot reassign the enrollment to another student")
		}
		student, err := svc.users.GetUserByID(ctx, ue.StudentID)
		if err != nil {
			return Enrollment{}, err
		}
		if !student.IsStudent() {
			return Enrollment{}, core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "user is not a student"})
		}
		enr.StudentID = ue.StudentID
		enr.Student = &student
	}
	if ue.CourseID != 0 && ue.CourseID != enr.CourseID {
		crs, err := svc.courses.GetCourseByID(ctx, ue.CourseID)
		if err != nil {
			if core.IsNotFound(err) {
				return Enrollment{}, core.NewValidationError(nil, core.FieldError{Field: "course_id", Error: "course not found"})
			}
			return Enrollment{}, err
		}
		// moving the enrollment needs the same rights on the destination course
		rc := access.Context{StudentID: enr.StudentID, CourseID: crs.ID, TeacherID: crs.TeacherID}
		if err = svc.engine.Can(ctx, p, access.ResourceEnrollment, access.ActionUpdate, rc); err != nil {
			return Enrollment{}, err
		}
		enr.CourseID = ue.CourseID
		enr.Course = &crs
	}

	if err = svc.repo.CheckUniqueness(ctx, enr.StudentID, enr.CourseID, enr.ID); err != nil {
		return Enrollment{}, err
	}

	enr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateEnrollment(ctx, enr)
}

func (svc *service) Delete(ctx context.Context, p access.Principal, id int) error {
	enr, err := svc.repo.GetEnrollmentByID(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.engine.Can(ctx, p, access.ResourceEnrollment, access.ActionDelete, svc.context(enr)); err != nil {
		return err
	}
	return svc.repo.DeleteEnrollment(ctx, id)
}

func (svc *service) context(enr Enrollment) access.Context {
	rc := access.Context{StudentID: enr.StudentID, CourseID: enr.CourseID}
	if enr.Course != nil {
		rc.TeacherID = enr.Course.TeacherID
	}
	return rc
}

// Index adapts the repository to the access engine's enrollment lookup.
type Index struct {
	repo Repository
}

var _ access.EnrollmentIndex = (*Index)(nil)

func NewIndex(repo Repository) *Index {
	return &Index{repo: repo}
}

func (idx *Index) IsEnrolled(ctx context.Context, studentID, courseID int) (bool, error) {
	return idx.repo.IsEnrolled(ctx, studentID, courseID)
}
