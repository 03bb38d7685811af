package main

import (
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/scanmark/backend/apps/api/echo"
	"github.com/scanmark/backend/core"
	"github.com/scanmark/backend/core/marking"
	"github.com/scanmark/backend/core/user"
	auditsvc "github.com/scanmark/backend/services/audit"
	capabilitysvc "github.com/scanmark/backend/services/capability"
	emailsvc "github.com/scanmark/backend/services/email"
	gradesvc "github.com/scanmark/backend/services/grades"
	imagesvc "github.com/scanmark/backend/services/image"
	logsvc "github.com/scanmark/backend/services/logger"
	rediscache "github.com/scanmark/backend/storage/cache"
	"github.com/scanmark/backend/storage/database"
	sqlxrepos "github.com/scanmark/backend/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

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
	defer func() { _ = db.Close() }()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	usrRepo := sqlxrepos.NewUserRepository(db)
	usrSvc := user.NewService(usrRepo, mailSvc, conf)

	markingRepo := sqlxrepos.NewMarkingRepository(db)
	var cache marking.ProgressCache
	if conf.Redis.Enabled {
		cache = rediscache.NewProgressCache(conf, logger)
	}
	markingSvc := marking.NewService(
		conf,
		markingRepo,
		usrSvc,
		capabilitysvc.NewResolver(markingRepo),
		auditsvc.NewDBSink(db, logger),
		imagesvc.NewClient(conf),
		gradesvc.NewFinalizer(markingRepo),
		cache,
		logger,
	)

	validate, translator := core.NewValidator()
	user.RegisterValidators(validate, translator)

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// start API server
	server := echoapi.NewServer(
		&echoapi.Options{
			Conf:       conf,
			Logger:     logger,
			UserSvc:    usrSvc,
			MarkingSvc: markingSvc,
			Validate:   validate,
			Translator: translator,
		},
	)
	server.Start()
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		return nil, err
	}
	return db, nil
}
