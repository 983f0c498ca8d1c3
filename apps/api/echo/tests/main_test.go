package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	echoapi "github.com/chuoapp/chuo/apps/api/echo"
	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/access"
	"github.com/chuoapp/chuo/core/comment"
	"github.com/chuoapp/chuo/core/course"
	"github.com/chuoapp/chuo/core/enrollment"
	"github.com/chuoapp/chuo/core/file"
	"github.com/chuoapp/chuo/core/grade"
	"github.com/chuoapp/chuo/core/progress"
	"github.com/chuoapp/chuo/core/user"
	emailsvc "github.com/chuoapp/chuo/services/email"
	logsvc "github.com/chuoapp/chuo/services/logger"
	dummydb "github.com/chuoapp/chuo/storage/database/dummy"
)

var (
	conf *core.Config
	db   *dummydb.DB
	app  *echoapi.Server

	usrRepo    user.Repository
	tokenRepo  user.TokenRepository
	courseRepo course.Repository
	enrollRepo enrollment.Repository

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

func TestMain(m *testing.M) {
	conf = &core.Config{
		Env:             "TEST",
		TestMode:        true,
		AppName:         "Chuo",
		SecretKey:       "test-secret-key",
		FrontendBaseURL: "http://localhost:3000",
		DefaultFromName: "Chuo",
		DefaultFromAddr: "noreply@localhost",
		Server: core.ServerConfig{
			AccessTokenTTL:     30 * time.Minute,
			RefreshTokenTTL:    7 * 24 * time.Hour,
			MaxRefreshTokens:   5,
			DisableRequestLogs: true,
		},
		Upload: core.UploadConfig{
			Dir:               "testdata/uploads",
			BaseURL:           "/uploads",
			MaxSize:           1 << 20,
			AllowedExtensions: []string{"jpg", "png", "pdf"},
		},
	}

	db, _ = dummydb.Open()
	usrRepo = dummydb.NewUserRepository(db)
	tokenRepo = dummydb.NewTokenRepository(db)
	courseRepo = dummydb.NewCourseRepository(db)
	enrollRepo = dummydb.NewEnrollmentRepository(db)
	engine := access.NewEngine(dummydb.NewEnrollmentRepository(db))

	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags), conf)
	logger.Enable(false)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)

	validate, translator := core.NewValidators()
	user.RegisterValidators(validate, translator)
	progress.RegisterValidators(validate, translator)

	app = echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,

		UserSvc:     user.NewService(conf, usrRepo, tokenRepo, mailSvc),
		CourseSvc:   course.NewService(courseRepo, usrRepo, engine),
		EnrollSvc:   enrollment.NewService(enrollRepo, usrRepo, courseRepo, engine),
		GradeSvc:    grade.NewService(dummydb.NewGradeRepository(db), usrRepo, courseRepo, engine, enrollRepo),
		ProgressSvc: progress.NewService(dummydb.NewProgressRepository(db), usrRepo, courseRepo, engine, enrollRepo),
		CommentSvc:  comment.NewService(dummydb.NewCommentRepository(db), courseRepo, engine),
		FileSvc: file.NewService(
			conf.Upload, dummydb.NewFileRepository(db),
			dummydb.NewMemStorage(), dummydb.NewChainResolver(db), engine,
		),
	})

	os.Exit(m.Run())
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// getToken mints a signed access token and stores its pair, the way login
// does; tokens without a stored pair do not authenticate.
func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	now := time.Now().UTC()
	pairID := uuid.New().String()
	token, err := echoapi.GenerateToken(conf, echoapi.NewUserClaims(conf, usr, pairID, now))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	refresh, err := user.GenerateSecret()
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	err = tokenRepo.SaveTokenPair(
		context.Background(),
		user.Token{
			UserID: usr.ID, Type: user.TokenAccess, Hash: user.HashSecret(token),
			PairID: pairID, CreatedAt: now, ExpiresAt: now.Add(conf.Server.AccessTokenTTL),
		},
		user.Token{
			UserID: usr.ID, Type: user.TokenRefresh, Hash: user.HashSecret(refresh),
			PairID: pairID, CreatedAt: now, ExpiresAt: now.Add(conf.Server.RefreshTokenTTL),
		},
		conf.Server.MaxRefreshTokens,
	)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func createUser(t *testing.T, first, email, pwd string, role user.Role, verified bool) user.User {
	t.Helper()
	usr := user.User{
		FirstName:  first,
		LastName:   "Test",
		Email:      email,
		Role:       role,
		IsVerified: verified,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser(): %v", err)
		}
	}
	usr, err := usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser(): %v", err)
	}
	return usr
}

func createCourse(t *testing.T, title string, teacherID int) course.Course {
	t.Helper()
	crs, err := courseRepo.CreateCourse(context.Background(), course.Course{Title: title, TeacherID: teacherID})
	if err != nil {
		t.Fatalf("createCourse(): %v", err)
	}
	return crs
}

func createModule(t *testing.T, courseID int, title string) course.Module {
	t.Helper()
	mod, err := courseRepo.CreateModule(context.Background(), course.Module{CourseID: courseID, Title: title})
	if err != nil {
		t.Fatalf("createModule(): %v", err)
	}
	return mod
}

func enroll(t *testing.T, studentID, courseID int) enrollment.Enrollment {
	t.Helper()
	enr, err := enrollRepo.CreateEnrollment(context.Background(), enrollment.Enrollment{StudentID: studentID, CourseID: courseID})
	if err != nil {
		t.Fatalf("enroll(): %v", err)
	}
	return enr
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
