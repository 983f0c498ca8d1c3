package tests

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/chuoapp/chuo/core/access"
	"github.com/chuoapp/chuo/core/comment"
	"github.com/chuoapp/chuo/core/user"
)

func Test_commentApi(t *testing.T) {
	db.Reset()
	teacher := createUser(t, "Teacher", "teacher@test.cd", "", user.RoleTeacher, true)
	student := createUser(t, "Student", "student@test.cd", "", user.RoleStudent, true)
	peer := createUser(t, "Peer", "peer@test.cd", "", user.RoleStudent, true)
	outcast := createUser(t, "Outcast", "outcast@test.cd", "", user.RoleStudent, true)
	crs := createCourse(t, "Algebra", teacher.ID)
	mod := createModule(t, crs.ID, "Linear equations")
	enroll(t, student.ID, crs.ID)
	enroll(t, peer.ID, crs.ID)

	var posted comment.Comment
	t.Run("enrolled student posts", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/comments/create", getToken(t, student),
			marshalObj(t, map[string]interface{}{"module_id": mod.ID, "content": "  when is this due?  "}))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create = %v %s", rec.Code, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &posted); err != nil {
			t.Fatalf("unmarshalling comment: %v", err)
		}
		if posted.Content != "when is this due?" {
			t.Errorf("content = %q; want it trimmed", posted.Content)
		}
	})

	t.Run("outsider cannot post", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/comments/create", getToken(t, outcast),
			marshalObj(t, map[string]interface{}{"module_id": mod.ID, "content": "hi"}))
		app.ServeHTTP(rec, req)
		checkDenied(t, rec, access.ReasonNotEnrolled)
	})

	t.Run("peers see neither the comment nor the thread", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/api/comments/show/%d", posted.ID), getToken(t, peer))
		app.ServeHTTP(rec, req)
		checkDenied(t, rec, access.ReasonNotOwner)

		if total := listTotal(t, "/api/comments", getToken(t, peer)); total != 0 {
			t.Errorf("peer list total = %v; want 0", total)
		}

		req, rec = newAuthRequest(http.MethodPatch, fmt.Sprintf("/api/comments/update/%d", posted.ID),
			getToken(t, peer), []byte(`{"content":"hijacked"}`))
		app.ServeHTTP(rec, req)
		checkDenied(t, rec, access.ReasonNotOwner)
	})

	t.Run("the author and the course owner read it", func(t *testing.T) {
		for _, usr := range []user.User{student, teacher} {
			req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/api/comments/show/%d", posted.ID), getToken(t, usr))
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, httpTest{wantCode: http.StatusOK}, rec)
		}
		if total := listTotal(t, "/api/comments", getToken(t, student)); total != 1 {
			t.Errorf("author list total = %v; want 1", total)
		}
	})

	t.Run("the course owner cannot edit either", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPatch, fmt.Sprintf("/api/comments/update/%d", posted.ID),
			getToken(t, teacher), []byte(`{"content":"as the teacher I say"}`))
		app.ServeHTTP(rec, req)
		checkDenied(t, rec, access.ReasonNotOwner)
	})

	t.Run("author deletes", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, fmt.Sprintf("/api/comments/destroy/%d", posted.ID), getToken(t, student))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("destroy = %v %s", rec.Code, rec.Body.String())
		}

		req, rec = newAuthRequest(http.MethodDelete, fmt.Sprintf("/api/comments/destroy/%d", posted.ID), getToken(t, student))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound}, rec)
	})
}
