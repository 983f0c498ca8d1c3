package enrollment

import (
	"context"
	"time"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/access"
	"github.com/chuoapp/chuo/core/course"
	"github.com/chuoapp/chuo/core/user"
)

// Enrollment is the join fact that a student belongs to a course.
type Enrollment struct {
	ID        int            `json:"enrollment_id"`
	StudentID int            `json:"-"`
	CourseID  int            `json:"-"`
	Student   *user.User     `json:"student,omitempty"`
	Course    *course.Course `json:"course,omitempty"`
	CreatedAt time.Time      `json:"created_at"` // UTC
	UpdatedAt time.Time      `json:"updated_at"` // UTC
}

type NewEnrollment struct {
	StudentID int `json:"student_id" validate:"required"`
	CourseID  int `json:"course_id" validate:"required"`
}

type UpdateEnrollment struct {
	StudentID int `json:"student_id"`
	CourseID  int `json:"course_id"`
}

type Repository interface {
	// IsEnrolled is a point lookup on the (student, course) unique pair.
	IsEnrolled(ctx context.Context, studentID, courseID int) (bool, error)
	CheckUniqueness(ctx context.Context, studentID, courseID int, excludedIDs ...int) error
	CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
	GetEnrollmentByID(ctx context.Context, id int) (Enrollment, error)
	FilterEnrollments(ctx context.Context, scope access.ListScope, page core.Pagination) ([]Enrollment, int, error)
	UpdateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
	DeleteEnrollment(ctx context.Context, id int) error
}
