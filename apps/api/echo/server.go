package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/comment"
	"github.com/chuoapp/chuo/core/course"
	"github.com/chuoapp/chuo/core/enrollment"
	"github.com/chuoapp/chuo/core/file"
	"github.com/chuoapp/chuo/core/grade"
	"github.com/chuoapp/chuo/core/progress"
	"github.com/chuoapp/chuo/core/user"
)

type (
	// ServerDeps carries everything the API server needs.
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator

		UserSvc     user.Service
		CourseSvc   course.Service
		EnrollSvc   enrollment.Service
		GradeSvc    grade.Service
		ProgressSvc progress.Service
		CommentSvc  comment.Service
		FileSvc     file.Service
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableRequestLogs {
		s.app.Use(middleware.Logger())
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: conf.Server.AllowedCORSOrigins}))
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps, s.SignalShutdown)
	s.app.HideBanner = true
	s.app.Debug = conf.Debug

	s.app.GET("/", home)
	s.app.Static(conf.Upload.BaseURL, conf.Upload.Dir)

	api := s.app.Group("/api")
	jwt := authMiddleware(conf, s.deps.UserSvc)

	registerAuthAPI(api, jwt, s.deps)
	registerUserAPI(api, jwt, s.deps)
	registerCourseAPI(api, jwt, s.deps)
	registerModuleAPI(api, jwt, s.deps)
	registerAssignmentAPI(api, jwt, s.deps)
	registerEnrollmentAPI(api, jwt, s.deps)
	registerGradeAPI(api, jwt, s.deps)
	registerProgressAPI(api, jwt, s.deps)
	registerCommentAPI(api, jwt, s.deps)
	registerFileAPI(api, jwt, s.deps)
}

func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.deps.Conf.Server.Addr()); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

// SignalShutdown triggers a graceful shutdown, as if a signal was received.
func (s *Server) SignalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *Server) Errors() <-chan error          { return s.errors }
func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Chuo API!")
}
