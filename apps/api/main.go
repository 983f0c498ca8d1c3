package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"

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
	"github.com/chuoapp/chuo/storage/database"
	"github.com/chuoapp/chuo/storage/database/sqlxrepos"
	"github.com/chuoapp/chuo/storage/filestore"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf, err := core.NewConfig("config")
	if err != nil {
		log.Fatalf("loading config: %+v", err)
	}

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()
	sdb := sqlx.NewDb(db, conf.Database.Engine)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	store, err := filestore.NewDiskStorage(conf.Upload.Dir)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up file storage: %v", err), err)
	}

	usrRepo := sqlxrepos.NewUserRepository(sdb)
	enrollRepo := sqlxrepos.NewEnrollmentRepository(sdb)
	courseRepo := sqlxrepos.NewCourseRepository(sdb)
	engine := access.NewEngine(enrollRepo)

	usrSvc := user.NewService(conf, usrRepo, sqlxrepos.NewTokenRepository(sdb), mailSvc)
	courseSvc := course.NewService(courseRepo, usrRepo, engine)
	enrollSvc := enrollment.NewService(enrollRepo, usrRepo, courseRepo, engine)
	gradeSvc := grade.NewService(sqlxrepos.NewGradeRepository(sdb), usrRepo, courseRepo, engine, enrollRepo)
	progressSvc := progress.NewService(sqlxrepos.NewProgressRepository(sdb), usrRepo, courseRepo, engine, enrollRepo)
	commentSvc := comment.NewService(sqlxrepos.NewCommentRepository(sdb), courseRepo, engine)
	fileSvc := file.NewService(conf.Upload, sqlxrepos.NewFileRepository(sdb), store, sqlxrepos.NewChainResolver(sdb), engine)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := core.NewValidators()
	user.RegisterValidators(validate, translator)
	progress.RegisterValidators(validate, translator)

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:        conf,
		Logger:      logger,
		Validate:    validate,
		Translator:  translator,
		UserSvc:     usrSvc,
		CourseSvc:   courseSvc,
		EnrollSvc:   enrollSvc,
		GradeSvc:    gradeSvc,
		ProgressSvc: progressSvc,
		CommentSvc:  commentSvc,
		FileSvc:     fileSvc,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sql.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
