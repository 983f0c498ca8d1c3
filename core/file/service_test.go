package file_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/access"
	"github.com/chuoapp/chuo/core/course"
	"github.com/chuoapp/chuo/core/enrollment"
	"github.com/chuoapp/chuo/core/file"
	"github.com/chuoapp/chuo/core/user"
	dummydb "github.com/chuoapp/chuo/storage/database/dummy"
)

var uploadConf = core.UploadConfig{
	Dir:               "public/uploads",
	BaseURL:           "/uploads",
	MaxSize:           1 << 20,
	AllowedExtensions: []string{"jpg", "jpeg", "png", "pdf", "docx", "xlsx", "pptx"},
}

type fixture struct {
	svc     file.Service
	teacher user.User
	student user.User
	outcast user.User
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
	outcast := mkUser("Outcast", "outcast@test.cd", user.RoleStudent)

	crs, err := courseRepo.CreateCourse(ctx, course.Course{Title: "Physics", TeacherID: teacher.ID})
	require.NoError(t, err)
	mod, err := courseRepo.CreateModule(ctx, course.Module{CourseID: crs.ID, Title: "Dynamics"})
	require.NoError(t, err)

	_, err = enrollRepo.CreateEnrollment(ctx, enrollment.Enrollment{StudentID: student.ID, CourseID: crs.ID})
	require.NoError(t, err)

	return &fixture{
		svc: file.NewService(
			uploadConf,
			dummydb.NewFileRepository(db),
			dummydb.NewMemStorage(),
			dummydb.NewChainResolver(db),
			engine,
		),
		teacher: teacher,
		student: student,
		outcast: outcast,
		course:  crs,
		module:  mod,
	}
}

func principal(usr user.User) access.Principal {
	return access.Principal{ID: usr.ID, Role: usr.Role}
}

func newUpload(kind file.TargetKind, targetID int, name, content string) file.NewFile {
	return file.NewFile{
		TargetKind:  kind,
		TargetID:    targetID,
		Name:        name,
		Size:        int64(len(content)),
		ContentType: "application/pdf",
		Content:     strings.NewReader(content),
	}
}

func TestService_Upload(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	f, err := fx.svc.Upload(ctx, principal(fx.teacher), newUpload(file.TargetModule, fx.module.ID, "syllabus.pdf", "%PDF-1.4"))
	require.NoError(t, err)
	assert.NotZero(t, f.ID)
	assert.Equal(t, fx.teacher.ID, f.OwnerID)
	assert.Equal(t, int64(len("%PDF-1.4")), f.Size)
	assert.True(t, strings.HasPrefix(f.URL, "/uploads/module/"), "URL %q", f.URL)

	t.Run("extension whitelist", func(t *testing.T) {
		_, err := fx.svc.Upload(ctx, principal(fx.teacher), newUpload(file.TargetModule, fx.module.ID, "virus.exe", "MZ"))
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "name", vErr.Fields[0].Field)
	})

	t.Run("size cap", func(t *testing.T) {
		nf := newUpload(file.TargetModule, fx.module.ID, "big.pdf", "x")
		nf.Size = uploadConf.MaxSize + 1
		_, err := fx.svc.Upload(ctx, principal(fx.teacher), nf)
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "file", vErr.Fields[0].Field)
	})

	t.Run("unknown target", func(t *testing.T) {
		_, err := fx.svc.Upload(ctx, principal(fx.teacher), newUpload(file.TargetAssignment, 999, "notes.pdf", "x"))
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "target_id", vErr.Fields[0].Field)
	})

	t.Run("unenrolled student cannot attach", func(t *testing.T) {
		_, err := fx.svc.Upload(ctx, principal(fx.outcast), newUpload(file.TargetModule, fx.module.ID, "notes.pdf", "x"))
		var denied *access.DeniedError
		require.ErrorAs(t, err, &denied)
	})
}

func TestService_readThroughChain(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	teacherFile, err := fx.svc.Upload(ctx, principal(fx.teacher), newUpload(file.TargetModule, fx.module.ID, "syllabus.pdf", "a"))
	require.NoError(t, err)
	studentFile, err := fx.svc.Upload(ctx, principal(fx.student), newUpload(file.TargetModule, fx.module.ID, "homework.pdf", "b"))
	require.NoError(t, err)

	// enrolled student reads the teacher's upload and their own
	_, err = fx.svc.Get(ctx, principal(fx.student), teacherFile.ID)
	assert.NoError(t, err)
	_, err = fx.svc.Get(ctx, principal(fx.student), studentFile.ID)
	assert.NoError(t, err)

	// deny propagates through File -> Module -> Course -> enrollment
	var denied *access.DeniedError
	_, err = fx.svc.Get(ctx, principal(fx.outcast), teacherFile.ID)
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, access.ReasonNotEnrolled, denied.Reason)

	// the teacher reads the student's upload as course owner
	_, err = fx.svc.Get(ctx, principal(fx.teacher), studentFile.ID)
	assert.NoError(t, err)

	t.Run("student listing excludes peer uploads", func(t *testing.T) {
		files, total, err := fx.svc.List(ctx, principal(fx.student), core.Pagination{})
		require.NoError(t, err)
		assert.Equal(t, 2, total) // own upload + teacher's
		assert.Len(t, files, 2)

		files, total, err = fx.svc.List(ctx, principal(fx.outcast), core.Pagination{})
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, files)
	})
}

func TestService_Update(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	f, err := fx.svc.Upload(ctx, principal(fx.teacher), newUpload(file.TargetCourse, fx.course.ID, "outline.pdf", "x"))
	require.NoError(t, err)

	// renaming keeps the extension
	_, err = fx.svc.Update(ctx, principal(fx.teacher), f.ID, file.UpdateFile{Name: "outline-v2.png"})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)

	updated, err := fx.svc.Update(ctx, principal(fx.teacher), f.ID, file.UpdateFile{Name: "outline-v2.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "outline-v2.pdf", updated.Name)
}

func TestService_Delete(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	f, err := fx.svc.Upload(ctx, principal(fx.teacher), newUpload(file.TargetCourse, fx.course.ID, "outline.pdf", "x"))
	require.NoError(t, err)

	// only the uploader removes it, the course owner grant does not apply
	err = fx.svc.Delete(ctx, principal(fx.student), f.ID)
	var denied *access.DeniedError
	require.ErrorAs(t, err, &denied)

	require.NoError(t, fx.svc.Delete(ctx, principal(fx.teacher), f.ID))
	err = fx.svc.Delete(ctx, principal(fx.teacher), f.ID)
	assert.True(t, core.IsNotFound(err))
}
