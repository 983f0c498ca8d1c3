package grade

import (
	"context"
	"time"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/access"
	"github.com/chuoapp/chuo/core/course"
	"github.com/chuoapp/chuo/core/user"
)

type Grade struct {
	ID           int                `json:"grade_id"`
	StudentID    int                `json:"-"`
	AssignmentID int                `json:"-"`
	Score        float64            `json:"grade"`
	Feedback     string             `json:"feedback"`
	Student      *user.User         `json:"student,omitempty"`
	Assignment   *course.Assignment `json:"assignment,omitempty"`
	CreatedAt    time.Time          `json:"created_at"` // UTC
	UpdatedAt    time.Time          `json:"updated_at"` // UTC
}

type NewGrade struct {
	StudentID    int     `json:"student_id" validate:"required"`
	AssignmentID int     `json:"assignment_id" validate:"required"`
	Score        float64 `json:"grade" validate:"required,gte=0,lte=100"`
	Feedback     string  `json:"feedback"`
}

type UpdateGrade struct {
	Score    *float64 `json:"grade" validate:"omitempty,gte=0,lte=100"`
	Feedback string   `json:"feedback"`
}

type Repository interface {
	CheckUniqueness(ctx context.Context, studentID, assignmentID int, excludedIDs ...int) error
	CreateGrade(ctx context.Context, grd Grade) (Grade, error)
	GetGradeByID(ctx context.Context, id int) (Grade, error)
	FilterGrades(ctx context.Context, scope access.ListScope, page core.Pagination) ([]Grade, int, error)
	UpdateGrade(ctx context.Context, grd Grade) (Grade, error)
	DeleteGrade(ctx context.Context, id int) error
}
