package comment_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/access"
	"github.com/chuoapp/chuo/core/comment"
	"github.com/chuoapp/chuo/core/course"
	"github.com/chuoapp/chuo/core/enrollment"
	"github.com/chuoapp/chuo/core/user"
	dummydb "github.com/chuoapp/chuo/storage/database/dummy"
)

type fixture struct {
	svc     comment.Service
	teacher user.User
	student user.User
	peer    user.User // enrolled, not the author
	outcast user.User // not enrolled
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
	ctx := context.Background()

	mkUser := func(first, email string, role user.Role) user.User {
		usr, err := usrRepo.CreateUser(ctx, user.User{
			FirstName: first, LastName: "Test", Email: email, Role: role, IsVerified: true,
		})
		require.NoError(t, err)
		return usr
	}
	teacher := mkUser("Teacher", "teacher@test.cd", user.RoleTeacher)
	student := mkUser("Student", "student@test.cd", user.RoleStudent)
	peer := mkUser("Peer", "peer@test.cd", user.RoleStudent)
	outcast := mkUser("Outcast", "outcast@test.cd", user.RoleStudent)

	crs, err := courseRepo.CreateCourse(ctx, course.Course{Title: "History", TeacherID: teacher.ID})
	require.NoError(t, err)
	mod, err := courseRepo.CreateModule(ctx, course.Module{CourseID: crs.ID, Title: "Antiquity"})
	require.NoError(t, err)

	for _, std := range []user.User{student, peer} {
		_, err = enrollRepo.CreateEnrollment(ctx, enrollment.Enrollment{StudentID: std.ID, CourseID: crs.ID})
		require.NoError(t, err)
	}

	return &fixture{
		svc:     comment.NewService(dummydb.NewCommentRepository(db), courseRepo, engine),
		teacher: teacher,
		student: student,
		peer:    peer,
		outcast: outcast,
		module:  mod,
	}
}

func principal(usr user.User) access.Principal {
	return access.Principal{ID: usr.ID, Role: usr.Role}
}

func TestService_Create(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	cmt, err := fx.svc.Create(ctx, principal(fx.student), comment.NewComment{
		ModuleID: fx.module.ID, Content: "  is chapter 3 in scope?  ",
	})
	require.NoError(t, err)
	assert.Equal(t, fx.student.ID, cmt.AuthorID)
	assert.Equal(t, "is chapter 3 in scope?", cmt.Content)

	t.Run("requires enrollment", func(t *testing.T) {
		_, err := fx.svc.Create(ctx, principal(fx.outcast), comment.NewComment{
			ModuleID: fx.module.ID, Content: "hello",
		})
		var denied *access.DeniedError
		require.ErrorAs(t, err, &denied)
		assert.Equal(t, access.ReasonNotEnrolled, denied.Reason)
	})

	t.Run("unknown module", func(t *testing.T) {
		_, err := fx.svc.Create(ctx, principal(fx.student), comment.NewComment{
			ModuleID: 999, Content: "hello",
		})
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "module_id", vErr.Fields[0].Field)
	})
}

func TestService_authorOnlyMutation(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	cmt, err := fx.svc.Create(ctx, principal(fx.student), comment.NewComment{
		ModuleID: fx.module.ID, Content: "first",
	})
	require.NoError(t, err)

	// even an enrolled peer never sees another student's comment
	var denied *access.DeniedError
	_, err = fx.svc.Get(ctx, principal(fx.peer), cmt.ID)
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, access.ReasonNotOwner, denied.Reason)

	_, err = fx.svc.Update(ctx, principal(fx.peer), cmt.ID, comment.UpdateComment{Content: "hijack"})
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, access.ReasonNotOwner, denied.Reason)

	err = fx.svc.Delete(ctx, principal(fx.peer), cmt.ID)
	require.ErrorAs(t, err, &denied)

	// the author and the course's teacher still read it
	_, err = fx.svc.Get(ctx, principal(fx.student), cmt.ID)
	assert.NoError(t, err)
	_, err = fx.svc.Get(ctx, principal(fx.teacher), cmt.ID)
	assert.NoError(t, err)

	// the course's teacher cannot edit the student's words either
	_, err = fx.svc.Update(ctx, principal(fx.teacher), cmt.ID, comment.UpdateComment{Content: "edit"})
	require.ErrorAs(t, err, &denied)

	// the author can
	updated, err := fx.svc.Update(ctx, principal(fx.student), cmt.ID, comment.UpdateComment{Content: "edited"})
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Content)

	require.NoError(t, fx.svc.Delete(ctx, principal(fx.student), cmt.ID))
	err = fx.svc.Delete(ctx, principal(fx.student), cmt.ID)
	assert.True(t, core.IsNotFound(err))
}

func TestService_listScoping(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	_, err := fx.svc.Create(ctx, principal(fx.student), comment.NewComment{
		ModuleID: fx.module.ID, Content: "first",
	})
	require.NoError(t, err)
	_, err = fx.svc.Create(ctx, principal(fx.peer), comment.NewComment{
		ModuleID: fx.module.ID, Content: "second",
	})
	require.NoError(t, err)

	// the owning teacher sees the whole thread
	comments, total, err := fx.svc.List(ctx, principal(fx.teacher), core.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, comments, 2)

	// each student sees their own comments only
	for _, usr := range []user.User{fx.student, fx.peer} {
		comments, total, err := fx.svc.List(ctx, principal(usr), core.Pagination{})
		require.NoError(t, err)
		assert.Equal(t, 1, total, "user %s", usr.Email)
		require.Len(t, comments, 1)
		assert.Equal(t, usr.ID, comments[0].AuthorID)
	}

	// an unenrolled student sees nothing
	comments, total, err = fx.svc.List(ctx, principal(fx.outcast), core.Pagination{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, comments)
}
