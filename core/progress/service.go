package progress

import (
	"context"

	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/access"
	"github.com/chuoapp/chuo/core/course"
	"github.com/chuoapp/chuo/core/user"
)

var (
	ErrNotFound = core.NewNotFoundError("progress record")
)

// InvariantStudentModule guards the single-record-per-student-per-module rule.
const InvariantStudentModule = "progress_per_student_module"

// InvariantEnrollment guards tracking progress for students that are not
// enrolled in the module's course. It holds for every requester, admins
// included.
const InvariantEnrollment = "progress_requires_enrollment"

type UserGetter interface {
	GetUserByID(ctx context.Context, id int) (user.User, error)
}

type ModuleGetter interface {
	GetModuleByID(ctx context.Context, id int) (course.Module, error)
}

type Service interface {
	Create(ctx context.Context, p access.Principal, np NewProgress) (Progress, error)
	Get(ctx context.Context, p access.Principal, id int) (Progress, error)
	List(ctx context.Context, p access.Principal, page core.Pagination) ([]Progress, int, error)
	Update(ctx context.Context, p access.Principal, id int, up UpdateProgress) (Progress, error)
	Delete(ctx context.Context, p access.Principal, id int) error
}

type service struct {
	repo    Repository
	users   UserGetter
	modules ModuleGetter
	engine  *access.Engine
	enroll  access.EnrollmentIndex
}

var _ Service = (*service)(nil)

func NewService(repo Repository, users UserGetter, modules ModuleGetter, engine *access.Engine, enroll access.EnrollmentIndex) Service {
	return &service{repo: repo, users: users, modules: modules, engine: engine, enroll: enroll}
}

func (svc *service) Create(ctx context.Context, p access.Principal, np NewProgress) (Progress, error) {
	mod, err := svc.modules.GetModuleByID(ctx, np.ModuleID)
	if err != nil {
		if core.IsNotFound(err) {
			return Progress{}, core.NewValidationError(nil, core.FieldError{Field: "module_id", Error: "module not found"})
		}
		return Progress{}, err
	}
	rc := moduleContext(mod)
	rc.StudentID = np.StudentID
	if err := svc.engine.Can(ctx, p, access.ResourceProgress, access.ActionCreate, rc); err != nil {
		return Progress{}, err
	}

	std, err := svc.users.GetUserByID(ctx, np.StudentID)
	if err != nil {
		if core.IsNotFound(err) {
			return Progress{}, core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "student not found"})
		}
		return Progress{}, err
	}
	if !std.IsStudent() {
		return Progress{}, core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "user is not a student"})
	}

	// Data invariant, not a role check: progress is only tracked for enrolled students.
	ok, err := svc.enroll.IsEnrolled(ctx, np.StudentID, rc.CourseID)
	if err != nil {
		return Progress{}, err
	}
	if !ok {
		return Progress{}, core.NewConflictError(InvariantEnrollment, "student is not enrolled in the module's course")
	}

	if err := svc.repo.CheckUniqueness(ctx, np.StudentID, np.ModuleID); err != nil {
		if core.IsConflict(err) {
			return Progress{}, core.NewConflictError(InvariantStudentModule, "student already has a progress record for this module")
		}
		return Progress{}, err
	}

	prg := Progress{
		StudentID: np.StudentID,
		ModuleID:  np.ModuleID,
		Status:    np.Status,
	}
	prg, err = svc.repo.CreateProgress(ctx, prg)
	if err != nil {
		return Progress{}, errors.Wrap(err, "creating progress record")
	}
	prg.Student = &std
	prg.Module = &mod
	return prg, nil
}

func (svc *service) Get(ctx context.Context, p access.Principal, id int) (Progress, error) {
	prg, err := svc.repo.GetProgressByID(ctx, id)
	if err != nil {
		return Progress{}, err
	}
	if err := svc.engine.Can(ctx, p, access.ResourceProgress, access.ActionRead, progressContext(prg)); err != nil {
		return Progress{}, err
	}
	return prg, nil
}

func (svc *service) List(ctx context.Context, p access.Principal, page core.Pagination) ([]Progress, int, error) {
	scope, err := svc.engine.ScopeList(p, access.ResourceProgress, false)
	if err != nil {
		return nil, 0, err
	}
	page.Clean()
	records, total, err := svc.repo.FilterProgress(ctx, scope, page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "filtering progress records")
	}
	return records, total, nil
}

func (svc *service) Update(ctx context.Context, p access.Principal, id int, up UpdateProgress) (Progress, error) {
	prg, err := svc.repo.GetProgressByID(ctx, id)
	if err != nil {
		return Progress{}, err
	}
	if err := svc.engine.Can(ctx, p, access.ResourceProgress, access.ActionUpdate, progressContext(prg)); err != nil {
		return Progress{}, err
	}

	if up.Status != "" {
		prg.Status = up.Status
	}
	prg, err = svc.repo.UpdateProgress(ctx, prg)
	if err != nil {
		return Progress{}, errors.Wrap(err, "updating progress record")
	}
	return prg, nil
}

func (svc *service) Delete(ctx context.Context, p access.Principal, id int) error {
	prg, err := svc.repo.GetProgressByID(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	if err := svc.engine.Can(ctx, p, access.ResourceProgress, access.ActionDelete, progressContext(prg)); err != nil {
		return err
	}
	return svc.repo.DeleteProgress(ctx, prg.ID)
}

func progressContext(prg Progress) access.Context {
	rc := access.Context{StudentID: prg.StudentID}
	if prg.Module != nil {
		modCtx := moduleContext(*prg.Module)
		rc.TeacherID = modCtx.TeacherID
		rc.CourseID = modCtx.CourseID
	}
	return rc
}

func moduleContext(mod course.Module) access.Context {
	var rc access.Context
	if crs := mod.Course; crs != nil {
		rc.TeacherID = crs.TeacherID
		rc.CourseID = crs.ID
	}
	return rc
}
