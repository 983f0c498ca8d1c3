package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chuoapp/chuo/core/access"
	"github.com/chuoapp/chuo/core/file"
	"github.com/chuoapp/chuo/core/user"
)

// newUploadRequest builds a multipart form request the way the front end
// submits attachments.
func newUploadRequest(t *testing.T, token, filename string, fields map[string]string) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("newUploadRequest(): %v", err)
		}
		if _, err = io.WriteString(part, "%PDF-1.4 test contents"); err != nil {
			t.Fatalf("newUploadRequest(): %v", err)
		}
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("newUploadRequest(): %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("newUploadRequest(): %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/files/create", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req, httptest.NewRecorder()
}

func Test_fileApi(t *testing.T) {
	db.Reset()
	teacher := createUser(t, "Teacher", "teacher@test.cd", "", user.RoleTeacher, true)
	student := createUser(t, "Student", "student@test.cd", "", user.RoleStudent, true)
	outcast := createUser(t, "Outcast", "outcast@test.cd", "", user.RoleStudent, true)
	crs := createCourse(t, "Algebra", teacher.ID)
	mod := createModule(t, crs.ID, "Linear equations")
	enroll(t, student.ID, crs.ID)

	modTarget := map[string]string{"target_kind": "Module", "target_id": fmt.Sprint(mod.ID)}

	var syllabus file.File
	t.Run("course owner uploads", func(t *testing.T) {
		req, rec := newUploadRequest(t, getToken(t, teacher), "syllabus.pdf", modTarget)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create = %v %s", rec.Code, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &syllabus); err != nil {
			t.Fatalf("unmarshalling file: %v", err)
		}
		if syllabus.TargetKind != file.TargetModule || syllabus.URL == "" {
			t.Errorf("file = %+v; want a module attachment with a URL", syllabus)
		}
	})

	t.Run("missing file part", func(t *testing.T) {
		req, rec := newUploadRequest(t, getToken(t, teacher), "", modTarget)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnprocessableEntity}, rec)
	})

	t.Run("rejected extension", func(t *testing.T) {
		req, rec := newUploadRequest(t, getToken(t, teacher), "virus.exe", modTarget)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnprocessableEntity}, rec)
	})

	t.Run("unknown target kind", func(t *testing.T) {
		req, rec := newUploadRequest(t, getToken(t, teacher), "notes.pdf",
			map[string]string{"target_kind": "user", "target_id": "1"})
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnprocessableEntity}, rec)
	})

	t.Run("enrolled student uploads", func(t *testing.T) {
		req, rec := newUploadRequest(t, getToken(t, student), "homework.pdf", modTarget)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create = %v %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("outsider cannot upload", func(t *testing.T) {
		req, rec := newUploadRequest(t, getToken(t, outcast), "spam.pdf", modTarget)
		app.ServeHTTP(rec, req)
		checkDenied(t, rec, access.ReasonNotEnrolled)
	})

	t.Run("enrolled student reads the teacher file", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/api/files/show/%d", syllabus.ID), getToken(t, student))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK}, rec)
	})

	t.Run("outsider cannot read it", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/api/files/show/%d", syllabus.ID), getToken(t, outcast))
		app.ServeHTTP(rec, req)
		checkDenied(t, rec, access.ReasonNotEnrolled)
	})

	t.Run("uploader deletes", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, fmt.Sprintf("/api/files/destroy/%d", syllabus.ID), getToken(t, teacher))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("destroy = %v %s", rec.Code, rec.Body.String())
		}
	})
}
