package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	echoapi "github.com/trezcool/elimu/apps/api/echo"
	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/analytics"
	"github.com/trezcool/elimu/core/assistant"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/progress"
	"github.com/trezcool/elimu/core/user"
	emailsvc "github.com/trezcool/elimu/services/email"
	"github.com/trezcool/elimu/services/llm"
	logsvc "github.com/trezcool/elimu/services/logger"
	"github.com/trezcool/elimu/storage/database"
	"github.com/trezcool/elimu/storage/database/sqlxrepos"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("api: %+v", err)
	}
}

func run() error {
	// =========================================================================
	// Set up Dependencies

	conf, err := core.NewConfig()
	if err != nil {
		return errors.Wrap(err, "loading config")
	}

	zl, err := logsvc.NewZap(conf.Debug)
	if err != nil {
		return errors.Wrap(err, "building zap logger")
	}
	logger := logsvc.NewRollbarLogger(zl, conf)
	defer logger.Close()

	ctx := context.Background()

	// set up DB
	db, err := database.Open(ctx, conf.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()
	if err = database.Migrate(ctx, db); err != nil {
		return errors.Wrap(err, "migrating database")
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	provider, err := llm.NewProvider(conf.AI)
	if err != nil {
		if errors.Cause(err) != llm.ErrMissingKey {
			return errors.Wrap(err, "setting up AI provider")
		}
		logger.Warn("AI endpoints disabled: no API key configured", "provider", conf.AI.Provider)
		provider = nil
	}

	usrSvc := user.NewService(db, sqlxrepos.NewUserRepository(db), mailSvc)
	crsSvc := course.NewService(db, sqlxrepos.NewCourseRepository(db))
	prgSvc := progress.NewService(db, sqlxrepos.NewProgressRepository(db), crsSvc)
	statsSvc := analytics.NewService(sqlxrepos.NewAnalyticsRepository(db), crsSvc)
	aiSvc := assistant.NewService(provider, conf.AI.MaxOutputTokens, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	course.InitValidators(validate, translator)

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(conf, shutdown, &echoapi.Deps{
		Logger:       logger,
		Validate:     validate,
		Translator:   translator,
		UserSvc:      usrSvc,
		CourseSvc:    crsSvc,
		ProgressSvc:  prgSvc,
		AnalyticsSvc: statsSvc,
		AssistantSvc: aiSvc,
	})

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("API listening", "address", conf.Server.Address)
		serverErrors <- server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server error")
		}
		return nil

	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Stop(ctx); err != nil {
			return errors.Wrap(err, "could not stop server gracefully")
		}
	}
	return nil
}
