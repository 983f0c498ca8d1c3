package course

import (
	"context"
	"time"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/access"
	"github.com/chuoapp/chuo/core/user"
)

type Course struct {
	ID          int        `json:"course_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	TeacherID   int        `json:"-"`
	Teacher     *user.User `json:"teacher,omitempty"`
	CreatedAt   time.Time  `json:"created_at"` // UTC
	UpdatedAt   time.Time  `json:"updated_at"` // UTC
}

type Module struct {
	ID        int       `json:"module_id"`
	CourseID  int       `json:"-"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	OrderNum  int       `json:"order"`
	Course    *Course   `json:"course,omitempty"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type Assignment struct {
	ID          int       `json:"assignment_id"`
	ModuleID    int       `json:"-"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date"`
	Module      *Module   `json:"module,omitempty"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

type NewCourse struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	TeacherID   int    `json:"teacher_id" validate:"required"`
}

type UpdateCourse struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	TeacherID   int    `json:"teacher_id"`
}

type NewModule struct {
	CourseID int    `json:"course_id" validate:"required"`
	Title    string `json:"title" validate:"required"`
	Content  string `json:"content"`
	OrderNum int    `json:"order"`
}

type UpdateModule struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	OrderNum *int   `json:"order"`
}

type NewAssignment struct {
	ModuleID    int       `json:"module_id" validate:"required"`
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date" validate:"required"`
}

type UpdateAssignment struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`
}

type Repository interface {
	CheckCourseTitleUniqueness(ctx context.Context, title string, teacherID int, excludedIDs ...int) error
	CreateCourse(ctx context.Context, crs Course) (Course, error)
	GetCourseByID(ctx context.Context, id int) (Course, error)
	// FilterCourses returns the page of courses visible under scope plus the
	// total count of matching rows.
	FilterCourses(ctx context.Context, scope access.ListScope, page core.Pagination) ([]Course, int, error)
	UpdateCourse(ctx context.Context, crs Course) (Course, error)
	DeleteCourse(ctx context.Context, id int) error

	CheckModuleTitleUniqueness(ctx context.Context, title string, courseID int, excludedIDs ...int) error
	CreateModule(ctx context.Context, mod Module) (Module, error)
	GetModuleByID(ctx context.Context, id int) (Module, error)
	FilterModules(ctx context.Context, scope access.ListScope, page core.Pagination) ([]Module, int, error)
	UpdateModule(ctx context.Context, mod Module) (Module, error)
	DeleteModule(ctx context.Context, id int) error

	CheckAssignmentTitleUniqueness(ctx context.Context, title string, moduleID int, excludedIDs ...int) error
	CreateAssignment(ctx context.Context, asg Assignment) (Assignment, error)
	GetAssignmentByID(ctx context.Context, id int) (Assignment, error)
	FilterAssignments(ctx context.Context, scope access.ListScope, page core.Pagination) ([]Assignment, int, error)
	UpdateAssignment(ctx context.Context, asg Assignment) (Assignment, error)
	DeleteAssignment(ctx context.Context, id int) error
}
