package course_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/access"
	"github.com/chuoapp/chuo/core/course"
	"github.com/chuoapp/chuo/core/enrollment"
	"github.com/chuoapp/chuo/core/user"
	dummydb "github.com/chuoapp/chuo/storage/database/dummy"
)

type fixture struct {
	svc     course.Service
	teacher user.User
	rival   user.User // another teacher, owns nothing here
	student user.User
	course  course.Course
	module  course.Module
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)

	usrRepo := dummydb.NewUserRepository(db)
	courseRepo := dummydb.NewCourseRepository(db)
	enrollRepo := dummydb.NewEnrollmentRepository(db)
	engine := access.NewEngine(enrollRepo)
	svc := course.NewService(courseRepo, usrRepo, engine)
	ctx := context.Background()

	mkUser := func(first, email string, role user.Role) user.User {
		usr := user.User{FirstName: first, LastName: "Test", Email: email, Role: role, IsVerified: true}
		usr, err := usrRepo.CreateUser(ctx, usr)
		require.NoError(t, err)
		return usr
	}
	teacher := mkUser("Teacher", "teacher@test.cd", user.RoleTeacher)
	rival := mkUser("Rival", "rival@test.cd", user.RoleTeacher)
	student := mkUser("Student", "student@test.cd", user.RoleStudent)

	crs, err := svc.CreateCourse(ctx, principal(teacher), course.NewCourse{
		Title: "Algebra", Description: "numbers and letters", TeacherID: teacher.ID,
	})
	require.NoError(t, err)
	mod, err := svc.CreateModule(ctx, principal(teacher), course.NewModule{
		CourseID: crs.ID, Title: "Linear equations", OrderNum: 1,
	})
	require.NoError(t, err)
	_, err = enrollRepo.CreateEnrollment(ctx, enrollment.Enrollment{StudentID: student.ID, CourseID: crs.ID})
	require.NoError(t, err)

	return &fixture{
		svc:     svc,
		teacher: teacher,
		rival:   rival,
		student: student,
		course:  crs,
		module:  mod,
	}
}

func principal(usr user.User) access.Principal {
	return access.Principal{ID: usr.ID, Role: usr.Role}
}

func TestService_CreateCourse(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	crs, err := fx.svc.CreateCourse(ctx, principal(fx.teacher), course.NewCourse{
		Title: "  Geometry ", TeacherID: fx.teacher.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Geometry", crs.Title)
	require.NotNil(t, crs.Teacher)
	assert.Equal(t, fx.teacher.ID, crs.Teacher.ID)

	t.Run("title unique per teacher", func(t *testing.T) {
		_, err := fx.svc.CreateCourse(ctx, principal(fx.teacher), course.NewCourse{
			Title: "geometry", TeacherID: fx.teacher.ID,
		})
		var cErr *core.ConflictError
		require.ErrorAs(t, err, &cErr)
		assert.Equal(t, course.InvariantCourseTitle, cErr.Invariant)

		// the same title is fine under another teacher
		_, err = fx.svc.CreateCourse(ctx, principal(fx.rival), course.NewCourse{
			Title: "Geometry", TeacherID: fx.rival.ID,
		})
		assert.NoError(t, err)
	})

	t.Run("teacher cannot create for a peer", func(t *testing.T) {
		_, err := fx.svc.CreateCourse(ctx, principal(fx.rival), course.NewCourse{
			Title: "Calculus", TeacherID: fx.teacher.ID,
		})
		var denied *access.DeniedError
		require.ErrorAs(t, err, &denied)
	})

	t.Run("owner must be a teacher", func(t *testing.T) {
		admin := access.Principal{ID: 999, Role: user.RoleAdmin}
		_, err := fx.svc.CreateCourse(ctx, admin, course.NewCourse{
			Title: "Calculus", TeacherID: fx.student.ID,
		})
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "teacher_id", vErr.Fields[0].Field)
	})
}

func TestService_UpdateCourse(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	crs, err := fx.svc.UpdateCourse(ctx, principal(fx.teacher), fx.course.ID, course.UpdateCourse{
		Description: "updated",
	})
	require.NoError(t, err)
	assert.Equal(t, "updated", crs.Description)
	assert.Equal(t, fx.course.Title, crs.Title)

	t.Run("only admin reassigns the teacher", func(t *testing.T) {
		_, err := fx.svc.UpdateCourse(ctx, principal(fx.teacher), fx.course.ID, course.UpdateCourse{
			TeacherID: fx.rival.ID,
		})
		var denied *access.DeniedError
		require.ErrorAs(t, err, &denied)
		assert.Equal(t, access.ReasonNotOwner, denied.Reason)

		admin := access.Principal{ID: 999, Role: user.RoleAdmin}
		crs, err := fx.svc.UpdateCourse(ctx, admin, fx.course.ID, course.UpdateCourse{
			TeacherID: fx.rival.ID,
		})
		require.NoError(t, err)
		assert.Equal(t, fx.rival.ID, crs.TeacherID)
	})
}

func TestService_modules(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	t.Run("title unique per course", func(t *testing.T) {
		_, err := fx.svc.CreateModule(ctx, principal(fx.teacher), course.NewModule{
			CourseID: fx.course.ID, Title: "linear equations",
		})
		var cErr *core.ConflictError
		require.ErrorAs(t, err, &cErr)
		assert.Equal(t, course.InvariantModuleTitle, cErr.Invariant)
	})

	t.Run("foreign teacher cannot add a module", func(t *testing.T) {
		_, err := fx.svc.CreateModule(ctx, principal(fx.rival), course.NewModule{
			CourseID: fx.course.ID, Title: "Quadratics",
		})
		var denied *access.DeniedError
		require.ErrorAs(t, err, &denied)
		assert.Equal(t, access.ReasonNotOwner, denied.Reason)
	})

	t.Run("enrolled student reads, foreign teacher listing stays empty", func(t *testing.T) {
		mod, err := fx.svc.GetModule(ctx, principal(fx.student), fx.module.ID)
		require.NoError(t, err)
		assert.Equal(t, fx.module.Title, mod.Title)

		_, total, err := fx.svc.ListModules(ctx, principal(fx.student), core.Pagination{})
		require.NoError(t, err)
		assert.Equal(t, 1, total)

		_, total, err = fx.svc.ListModules(ctx, principal(fx.rival), core.Pagination{})
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("order update keeps zero distinct from unset", func(t *testing.T) {
		zero := 0
		mod, err := fx.svc.UpdateModule(ctx, principal(fx.teacher), fx.module.ID, course.UpdateModule{OrderNum: &zero})
		require.NoError(t, err)
		assert.Zero(t, mod.OrderNum)

		mod, err = fx.svc.UpdateModule(ctx, principal(fx.teacher), fx.module.ID, course.UpdateModule{Content: "intro"})
		require.NoError(t, err)
		assert.Zero(t, mod.OrderNum)
		assert.Equal(t, "intro", mod.Content)
	})
}

func TestService_assignments(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	due := time.Now().Add(7 * 24 * time.Hour)

	asg, err := fx.svc.CreateAssignment(ctx, principal(fx.teacher), course.NewAssignment{
		ModuleID: fx.module.ID, Title: "Homework 1", DueDate: due,
	})
	require.NoError(t, err)
	require.NotNil(t, asg.Module)
	assert.Equal(t, fx.module.ID, asg.Module.ID)

	t.Run("title unique per module", func(t *testing.T) {
		_, err := fx.svc.CreateAssignment(ctx, principal(fx.teacher), course.NewAssignment{
			ModuleID: fx.module.ID, Title: "homework 1", DueDate: due,
		})
		var cErr *core.ConflictError
		require.ErrorAs(t, err, &cErr)
		assert.Equal(t, course.InvariantAssignmentTitle, cErr.Invariant)
	})

	t.Run("due date moves", func(t *testing.T) {
		later := due.Add(48 * time.Hour)
		got, err := fx.svc.UpdateAssignment(ctx, principal(fx.teacher), asg.ID, course.UpdateAssignment{DueDate: &later})
		require.NoError(t, err)
		assert.True(t, got.DueDate.Equal(later.UTC()))
	})

	t.Run("foreign teacher cannot delete", func(t *testing.T) {
		err := fx.svc.DeleteAssignment(ctx, principal(fx.rival), asg.ID)
		var denied *access.DeniedError
		require.ErrorAs(t, err, &denied)
	})

	t.Run("delete then gone", func(t *testing.T) {
		require.NoError(t, fx.svc.DeleteAssignment(ctx, principal(fx.teacher), asg.ID))
		_, err := fx.svc.GetAssignment(ctx, principal(fx.teacher), asg.ID)
		assert.True(t, core.IsNotFound(err))
	})
}
