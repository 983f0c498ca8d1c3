package course

import (
	"context"
	"time"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/access"
	"github.com/chuoapp/chuo/core/user"
)

var (
	ErrCourseNotFound     = core.NewNotFoundError("course")
	ErrModuleNotFound     = core.NewNotFoundError("module")
	ErrAssignmentNotFound = core.NewNotFoundError("assignment")
)

// Uniqueness invariants guarded ahead of writes; the DB constraints give the
// final guarantee under concurrent writes.
const (
	InvariantCourseTitle     = "course_title_per_teacher"
	InvariantModuleTitle     = "module_title_per_course"
	InvariantAssignmentTitle = "assignment_title_per_module"
)

// UserGetter is the slice of the user repository the catalog needs.
type UserGetter interface {
	GetUserByID(ctx context.Context, id int) (user.User, error)
}

type (
	Service interface {
		CreateCourse(ctx context.Context, p access.Principal, nc NewCourse) (Course, error)
		GetCourse(ctx context.Context, p access.Principal, id int) (Course, error)
		ListCourses(ctx context.Context, p access.Principal, all bool, page core.Pagination) ([]Course, int, error)
		UpdateCourse(ctx context.Context, p access.Principal, id int, uc UpdateCourse) (Course, error)
		DeleteCourse(ctx context.Context, p access.Principal, id int) error

		CreateModule(ctx context.Context, p access.Principal, nm NewModule) (Module, error)
		GetModule(ctx context.Context, p access.Principal, id int) (Module, error)
		ListModules(ctx context.Context, p access.Principal, page core.Pagination) ([]Module, int, error)
		UpdateModule(ctx context.Context, p access.Principal, id int, um UpdateModule) (Module, error)
		DeleteModule(ctx context.Context, p access.Principal, id int) error

		CreateAssignment(ctx context.Context, p access.Principal, na NewAssignment) (Assignment, error)
		GetAssignment(ctx context.Context, p access.Principal, id int) (Assignment, error)
		ListAssignments(ctx context.Context, p access.Principal, page core.Pagination) ([]Assignment, int, error)
		UpdateAssignment(ctx context.Context, p access.Principal, id int, ua UpdateAssignment) (Assignment, error)
		DeleteAssignment(ctx context.Context, p access.Principal, id int) error
	}

	service struct {
		repo   Repository
		users  UserGetter
		engine *access.Engine
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, users UserGetter, engine *access.Engine) Service {
	return &service{repo: repo, users: users, engine: engine}
}

// Courses

func (svc *service) CreateCourse(ctx context.Context, p access.Principal, nc NewCourse) (Course, error) {
	// teachers may only create courses under their own account
	if err := svc.engine.Can(ctx, p, access.ResourceCourse, access.ActionCreate, access.Context{StudentID: nc.TeacherID}); err != nil {
		return Course{}, err
	}

	teacher, err := svc.users.GetUserByID(ctx, nc.TeacherID)
	if err != nil {
		return Course{}, err
	}
	if !teacher.IsTeacher() {
		return Course{}, core.NewValidationError(nil, core.FieldError{Field: "teacher_id", Error: "user is not a teacher"})
	}

	title := core.CleanString(nc.Title)
	if err = svc.repo.CheckCourseTitleUniqueness(ctx, title, nc.TeacherID); err != nil {
		return Course{}, err
	}

	now := time.Now().UTC()
	crs, err := svc.repo.CreateCourse(ctx, Course{
		Title:       title,
		Description: nc.Description,
		TeacherID:   nc.TeacherID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Course{}, err
	}
	crs.Teacher = &teacher
	return crs, nil
}

func (svc *service) GetCourse(ctx context.Context, p access.Principal, id int) (Course, error) {
	crs, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Course{}, err
	}
	rc := access.Context{TeacherID: crs.TeacherID, CourseID: crs.ID}
	if err = svc.engine.Can(ctx, p, access.ResourceCourse, access.ActionRead, rc); err != nil {
		return Course{}, err
	}
	return crs, nil
}

func (svc *service) ListCourses(ctx context.Context, p access.Principal, all bool, page core.Pagination) ([]Course, int, error) {
	scope, err := svc.engine.ScopeList(p, access.ResourceCourse, all)
	if err != nil {
		return nil, 0, err
	}
	page.Clean()
	return svc.repo.FilterCourses(ctx, scope, page)
}

func (svc *service) UpdateCourse(ctx context.Context, p access.Principal, id int, uc UpdateCourse) (Course, error) {
	crs, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Course{}, err
	}
	rc := access.Context{TeacherID: crs.TeacherID, CourseID: crs.ID}
	if err = svc.engine.Can(ctx, p, access.ResourceCourse, access.ActionUpdate, rc); err != nil {
		return Course{}, err
	}
	// only admin may reassign a course to another teacher
	if uc.TeacherID != 0 && uc.TeacherID != crs.TeacherID && !p.IsAdmin() {
		return Course{}, access.Deny(access.ReasonNotOwner, "cannot change the course teacher")
	}

	if uc.Title != "" {
		crs.Title = core.CleanString(uc.Title)
	}
	if uc.Description != "" {
		crs.Description = uc.Description
	}
	if uc.TeacherID != 0 && p.IsAdmin() {
		teacher, err := svc.users.GetUserByID(ctx, uc.TeacherID)
		if err != nil {
			return Course{}, err
		}
		if !teacher.IsTeacher() {
			return Course{}, core.NewValidationError(nil, core.FieldError{Field: "teacher_id", Error: "user is not a teacher"})
		}
		crs.TeacherID = uc.TeacherID
		crs.Teacher = &teacher
	}

	if err = svc.repo.CheckCourseTitleUniqueness(ctx, crs.Title, crs.TeacherID, crs.ID); err != nil {
		return Course{}, err
	}

	crs.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCourse(ctx, crs)
}

func (svc *service) DeleteCourse(ctx context.Context, p access.Principal, id int) error {
	crs, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return err
	}
	rc := access.Context{TeacherID: crs.TeacherID, CourseID: crs.ID}
	if err = svc.engine.Can(ctx, p, access.ResourceCourse, access.ActionDelete, rc); err != nil {
		return err
	}
	return svc.repo.DeleteCourse(ctx, id)
}

// Modules

func (svc *service) CreateModule(ctx context.Context, p access.Principal, nm NewModule) (Module, error) {
	crs, err := svc.repo.GetCourseByID(ctx, nm.CourseID)
	if err != nil {
		return Module{}, err
	}
	rc := access.Context{TeacherID: crs.TeacherID, CourseID: crs.ID}
	if err = svc.engine.Can(ctx, p, access.ResourceModule, access.ActionCreate, rc); err != nil {
		return Module{}, err
	}

	title := core.CleanString(nm.Title)
	if err = svc.repo.CheckModuleTitleUniqueness(ctx, title, crs.ID); err != nil {
		return Module{}, err
	}

	now := time.Now().UTC()
	mod, err := svc.repo.CreateModule(ctx, Module{
		CourseID:  crs.ID,
		Title:     title,
		Content:   nm.Content,
		OrderNum:  nm.OrderNum,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Module{}, err
	}
	mod.Course = &crs
	return mod, nil
}

func (svc *service) GetModule(ctx context.Context, p access.Principal, id int) (Module, error) {
	mod, err := svc.repo.GetModuleByID(ctx, id)
	if err != nil {
		return Module{}, err
	}
	if err = svc.engine.Can(ctx, p, access.ResourceModule, access.ActionRead, svc.moduleContext(mod)); err != nil {
		return Module{}, err
	}
	return mod, nil
}

func (svc *service) ListModules(ctx context.Context, p access.Principal, page core.Pagination) ([]Module, int, error) {
	scope, err := svc.engine.ScopeList(p, access.ResourceModule, false)
	if err != nil {
		return nil, 0, err
	}
	page.Clean()
	return svc.repo.FilterModules(ctx, scope, page)
}

func (svc *service) UpdateModule(ctx context.Context, p access.Principal, id int, um UpdateModule) (Module, error) {
	mod, err := svc.repo.GetModuleByID(ctx, id)
	if err != nil {
		return Module{}, err
	}
	if err = svc.engine.Can(ctx, p, access.ResourceModule, access.ActionUpdate, svc.moduleContext(mod)); err != nil {
		return Module{}, err
	}

	if um.Title != "" {
		mod.Title = core.CleanString(um.Title)
	}
	if um.Content != "" {
		mod.Content = um.Content
	}
	if um.OrderNum != nil {
		mod.OrderNum = *um.OrderNum
	}

	if err = svc.repo.CheckModuleTitleUniqueness(ctx, mod.Title, mod.CourseID, mod.ID); err != nil {
		return Module{}, err
	}

	mod.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateModule(ctx, mod)
}

func (svc *service) DeleteModule(ctx context.Context, p access.Principal, id int) error {
	mod, err := svc.repo.GetModuleByID(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.engine.Can(ctx, p, access.ResourceModule, access.ActionDelete, svc.moduleContext(mod)); err != nil {
		return err
	}
	return svc.repo.DeleteModule(ctx, id)
}

// Assignments

func (svc *service) CreateAssignment(ctx context.Context, p access.Principal, na NewAssignment) (Assignment, error) {
	mod, err := svc.repo.GetModuleByID(ctx, na.ModuleID)
	if err != nil {
		return Assignment{}, err
	}
	if err = svc.engine.Can(ctx, p, access.ResourceAssignment, access.ActionCreate, svc.moduleContext(mod)); err != nil {
		return Assignment{}, err
	}

	title := core.CleanString(na.Title)
	if err = svc.repo.CheckAssignmentTitleUniqueness(ctx, title, mod.ID); err != nil {
		return Assignment{}, err
	}

	now := time.Now().UTC()
	asg, err := svc.repo.CreateAssignment(ctx, Assignment{
		ModuleID:    mod.ID,
		Title:       title,
		Description: na.Description,
		DueDate:     na.DueDate.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Assignment{}, err
	}
	asg.Module = &mod
	return asg, nil
}

func (svc *service) GetAssignment(ctx context.Context, p access.Principal, id int) (Assignment, error) {
	asg, err := svc.repo.GetAssignmentByID(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	if err = svc.engine.Can(ctx, p, access.ResourceAssignment, access.ActionRead, svc.assignmentContext(asg)); err != nil {
		return Assignment{}, err
	}
	return asg, nil
}

func (svc *service) ListAssignments(ctx context.Context, p access.Principal, page core.Pagination) ([]Assignment, int, error) {
	scope, err := svc.engine.ScopeList(p, access.ResourceAssignment, false)
	if err != nil {
		return nil, 0, err
	}
	page.Clean()
	return svc.repo.FilterAssignments(ctx, scope, page)
}

func (svc *service) UpdateAssignment(ctx context.Context, p access.Principal, id int, ua UpdateAssignment) (Assignment, error) {
	asg, err := svc.repo.GetAssignmentByID(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	if err = svc.engine.Can(ctx, p, access.ResourceAssignment, access.ActionUpdate, svc.assignmentContext(asg)); err != nil {
		return Assignment{}, err
	}

	if ua.Title != "" {
		asg.Title = core.CleanString(ua.Title)
	}
	if ua.Description != "" {
		asg.Description = ua.Description
	}
	if ua.DueDate != nil {
		asg.DueDate = ua.DueDate.UTC()
	}

	if err = svc.repo.CheckAssignmentTitleUniqueness(ctx, asg.Title, asg.ModuleID, asg.ID); err != nil {
		return Assignment{}, err
	}

	asg.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateAssignment(ctx, asg)
}

func (svc *service) DeleteAssignment(ctx context.Context, p access.Principal, id int) error {
	asg, err := svc.repo.GetAssignmentByID(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.engine.Can(ctx, p, access.ResourceAssignment, access.ActionDelete, svc.assignmentContext(asg)); err != nil {
		return err
	}
	return svc.repo.DeleteAssignment(ctx, id)
}

func (svc *service) moduleContext(mod Module) access.Context {
	rc := access.Context{CourseID: mod.CourseID}
	if mod.Course != nil {
		rc.TeacherID = mod.Course.TeacherID
	}
	return rc
}

func (svc *service) assignmentContext(asg Assignment) access.Context {
	var rc access.Context
	if asg.Module != nil {
		rc = svc.moduleContext(*asg.Module)
	}
	return rc
}
