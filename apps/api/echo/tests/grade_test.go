package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/chuoapp/chuo/core/access"
	"github.com/chuoapp/chuo/core/course"
	"github.com/chuoapp/chuo/core/grade"
	"github.com/chuoapp/chuo/core/progress"
	"github.com/chuoapp/chuo/core/user"
)

func createAssignment(t *testing.T, moduleID int, title string) course.Assignment {
	t.Helper()
	asg, err := courseRepo.CreateAssignment(context.Background(), course.Assignment{
		ModuleID: moduleID, Title: title, DueDate: time.Now().Add(7 * 24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("createAssignment(): %v", err)
	}
	return asg
}

func Test_gradeApi(t *testing.T) {
	db.Reset()
	teacher := createUser(t, "Teacher", "teacher@test.cd", "", user.RoleTeacher, true)
	student := createUser(t, "Student", "student@test.cd", "", user.RoleStudent, true)
	outcast := createUser(t, "Outcast", "outcast@test.cd", "", user.RoleStudent, true)
	crs := createCourse(t, "Algebra", teacher.ID)
	mod := createModule(t, crs.ID, "Linear equations")
	asg := createAssignment(t, mod.ID, "Homework 1")
	enroll(t, student.ID, crs.ID)

	gradeBody := func(studentID int, score float64) []byte {
		return marshalObj(t, map[string]interface{}{
			"student_id": studentID, "assignment_id": asg.ID, "grade": score, "feedback": "ok",
		})
	}

	t.Run("student cannot grade", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/grades/create", getToken(t, student), gradeBody(student.ID, 80))
		app.ServeHTTP(rec, req)
		checkDenied(t, rec, access.ReasonRoleNotPermitted)
	})

	t.Run("grading an unenrolled student", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/grades/create", getToken(t, teacher), gradeBody(outcast.ID, 80))
		app.ServeHTTP(rec, req)
		checkConflict(t, rec, grade.InvariantEnrollment)
	})

	t.Run("course owner grades", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/grades/create", getToken(t, teacher), gradeBody(student.ID, 80))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create = %v %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("a second grade trips uniqueness", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/grades/create", getToken(t, teacher), gradeBody(student.ID, 90))
		app.ServeHTTP(rec, req)
		checkConflict(t, rec, grade.InvariantStudentAssignment)
	})

	t.Run("score out of range", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/grades/create", getToken(t, teacher), gradeBody(student.ID, 180))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnprocessableEntity}, rec)
	})

	t.Run("students only see their own", func(t *testing.T) {
		if total := listTotal(t, "/api/grades", getToken(t, student)); total != 1 {
			t.Errorf("student total = %v; want 1", total)
		}
		if total := listTotal(t, "/api/grades", getToken(t, outcast)); total != 0 {
			t.Errorf("outcast total = %v; want 0", total)
		}
		if total := listTotal(t, "/api/grades", getToken(t, teacher)); total != 1 {
			t.Errorf("teacher total = %v; want 1", total)
		}
	})
}

func Test_progressApi(t *testing.T) {
	db.Reset()
	teacher := createUser(t, "Teacher", "teacher@test.cd", "", user.RoleTeacher, true)
	student := createUser(t, "Student", "student@test.cd", "", user.RoleStudent, true)
	outcast := createUser(t, "Outcast", "outcast@test.cd", "", user.RoleStudent, true)
	crs := createCourse(t, "Algebra", teacher.ID)
	mod := createModule(t, crs.ID, "Linear equations")
	enroll(t, student.ID, crs.ID)

	t.Run("student tracks their own progress", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/progress/create", getToken(t, student),
			marshalObj(t, map[string]interface{}{"module_id": mod.ID, "status": "in_progress"}))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create = %v %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("unknown status", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/progress/create", getToken(t, student),
			marshalObj(t, map[string]interface{}{"module_id": mod.ID, "status": "slacking"}))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnprocessableEntity}, rec)
	})

	t.Run("unenrolled student is refused", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/progress/create", getToken(t, outcast),
			marshalObj(t, map[string]interface{}{"module_id": mod.ID, "status": "in_progress"}))
		app.ServeHTTP(rec, req)
		checkConflict(t, rec, progress.InvariantEnrollment)
	})

	t.Run("course owner reads the course progress", func(t *testing.T) {
		if total := listTotal(t, "/api/progress", getToken(t, teacher)); total != 1 {
			t.Errorf("teacher total = %v; want 1", total)
		}
	})

	t.Run("module list is enrollment scoped", func(t *testing.T) {
		if total := listTotal(t, "/api/modules", getToken(t, student)); total != 1 {
			t.Errorf("student total = %v; want 1", total)
		}
		if total := listTotal(t, "/api/modules", getToken(t, outcast)); total != 0 {
			t.Errorf("outcast total = %v; want 0", total)
		}
	})
}
