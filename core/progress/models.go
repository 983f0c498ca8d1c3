package progress

import (
	"context"
	"time"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/access"
	"github.com/chuoapp/chuo/core/course"
	"github.com/chuoapp/chuo/core/user"
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

func (s Status) Known() bool {
	switch s {
	case StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

type Progress struct {
	ID        int            `json:"progress_id"`
	StudentID int            `json:"-"`
	ModuleID  int            `json:"-"`
	Status    Status         `json:"status"`
	Student   *user.User     `json:"student,omitempty"`
	Module    *course.Module `json:"module,omitempty"`
	CreatedAt time.Time      `json:"created_at"` // UTC
	UpdatedAt time.Time      `json:"updated_at"` // UTC
}

type NewProgress struct {
	StudentID int    `json:"student_id" validate:"required"`
	ModuleID  int    `json:"module_id" validate:"required"`
	Status    Status `json:"status" validate:"required,knownstatus"`
}

type UpdateProgress struct {
	Status Status `json:"status" validate:"omitempty,knownstatus"`
}

type Repository interface {
	CheckUniqueness(ctx context.Context, studentID, moduleID int, excludedIDs ...int) error
	CreateProgress(ctx context.Context, prg Progress) (Progress, error)
	GetProgressByID(ctx context.Context, id int) (Progress, error)
	FilterProgress(ctx context.Context, scope access.ListScope, page core.Pagination) ([]Progress, int, error)
	UpdateProgress(ctx context.Context, prg Progress) (Progress, error)
	DeleteProgress(ctx context.Context, id int) error
}
