package grade_test

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
	"github.com/chuoapp/chuo/core/grade"
	"github.com/chuoapp/chuo/core/user"
	dummydb "github.com/chuoapp/chuo/storage/database/dummy"
)

type fixture struct {
	svc     grade.Service
	db      *dummydb.DB
	teacher user.User
	student user.User
	outcast user.User // student with no enrollments
	course  course.Course
	asg     course.Assignment
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
		usr := user.User{FirstName: first, LastName: "Test", Email: email, Role: role, IsVerified: true}
		usr, err := usrRepo.CreateUser(ctx, usr)
		require.NoError(t, err)
		return usr
	}
	teacher := mkUser("Teacher", "teacher@test.cd", user.RoleTeacher)
	student := mkUser("Student", "student@test.cd", user.RoleStudent)
	outcast := mkUser("Outcast", "outcast@test.cd", user.RoleStudent)

	crs, err := courseRepo.CreateCourse(ctx, course.Course{Title: "Algebra", TeacherID: teacher.ID})
	require.NoError(t, err)
	mod, err := courseRepo.CreateModule(ctx, course.Module{CourseID: crs.ID, Title: "Linear equations"})
	require.NoError(t, err)
	asg, err := courseRepo.CreateAssignment(ctx, course.Assignment{
		ModuleID: mod.ID, Title: "Homework 1", DueDate: time.Now().Add(7 * 24 * time.Hour),
	})
	require.NoError(t, err)

	_, err = enrollRepo.CreateEnrollment(ctx, enrollment.Enrollment{StudentID: student.ID, CourseID: crs.ID})
	require.NoError(t, err)

	return &fixture{
		svc:     grade.NewService(dummydb.NewGradeRepository(db), usrRepo, courseRepo, engine, enrollRepo),
		db:      db,
		teacher: teacher,
		student: student,
		outcast: outcast,
		course:  crs,
		asg:     asg,
	}
}

func principal(usr user.User) access.Principal {
	return access.Principal{ID: usr.ID, Role: usr.Role}
}

func TestService_Create(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	grd, err := fx.svc.Create(ctx, principal(fx.teacher), grade.NewGrade{
		StudentID: fx.student.ID, AssignmentID: fx.asg.ID, Score: 87.5, Feedback: "good work",
	})
	require.NoError(t, err)
	assert.NotZero(t, grd.ID)
	require.NotNil(t, grd.Assignment)
	assert.Equal(t, fx.asg.ID, grd.Assignment.ID)

	t.Run("duplicate per student and assignment", func(t *testing.T) {
		_, err := fx.svc.Create(ctx, principal(fx.teacher), grade.NewGrade{
			StudentID: fx.student.ID, AssignmentID: fx.asg.ID, Score: 90,
		})
		var cErr *core.ConflictError
		require.ErrorAs(t, err, &cErr)
		assert.Equal(t, grade.InvariantStudentAssignment, cErr.Invariant)
	})

	t.Run("unknown assignment", func(t *testing.T) {
		_, err := fx.svc.Create(ctx, principal(fx.teacher), grade.NewGrade{
			StudentID: fx.student.ID, AssignmentID: 999, Score: 90,
		})
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "assignment_id", vErr.Fields[0].Field)
	})

	t.Run("student cannot grade", func(t *testing.T) {
		_, err := fx.svc.Create(ctx, principal(fx.student), grade.NewGrade{
			StudentID: fx.student.ID, AssignmentID: fx.asg.ID, Score: 100,
		})
		var denied *access.DeniedError
		require.ErrorAs(t, err, &denied)
	})
}

func TestService_Create_requiresEnrollment(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	ng := grade.NewGrade{StudentID: fx.outcast.ID, AssignmentID: fx.asg.ID, Score: 50}

	for _, p := range []access.Principal{
		principal(fx.teacher),
		{ID: 999, Role: user.RoleAdmin}, // the invariant is not a role check
	} {
		_, err := fx.svc.Create(ctx, p, ng)
		var cErr *core.ConflictError
		require.ErrorAs(t, err, &cErr, "role %s", p.Role)
		assert.Equal(t, grade.InvariantEnrollment, cErr.Invariant)
	}
}

func TestService_readScoping(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	grd, err := fx.svc.Create(ctx, principal(fx.teacher), grade.NewGrade{
		StudentID: fx.student.ID, AssignmentID: fx.asg.ID, Score: 75,
	})
	require.NoError(t, err)

	// the graded student sees it; another student does not
	_, err = fx.svc.Get(ctx, principal(fx.student), grd.ID)
	assert.NoError(t, err)

	_, err = fx.svc.Get(ctx, principal(fx.outcast), grd.ID)
	var denied *access.DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, access.ReasonNotSelf, denied.Reason)

	// per-student list scoping
	grades, total, err := fx.svc.List(ctx, principal(fx.student), core.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, grades, 1)

	grades, total, err = fx.svc.List(ctx, principal(fx.outcast), core.Pagination{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, grades)
}

func TestService_Delete_idempotence(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	grd, err := fx.svc.Create(ctx, principal(fx.teacher), grade.NewGrade{
		StudentID: fx.student.ID, AssignmentID: fx.asg.ID, Score: 60,
	})
	require.NoError(t, err)

	require.NoError(t, fx.svc.Delete(ctx, principal(fx.teacher), grd.ID))
	// a second delete reports the record gone
	err = fx.svc.Delete(ctx, principal(fx.teacher), grd.ID)
	assert.True(t, core.IsNotFound(err))
}
