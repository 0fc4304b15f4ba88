package main

import (
	"bufio"
	"context"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
	logsvc "github.com/trezcool/elimu/services/logger"
	"github.com/trezcool/elimu/storage/database"
	"github.com/trezcool/elimu/storage/database/sqlxrepos"
)

// gooseLogger prints migration output through zap.
type gooseLogger struct {
	*zap.SugaredLogger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.Infof(format, v...)
}

func main() {
	conf, err := core.NewConfig()
	if err != nil {
		log.Fatalf("admin: loading config: %+v", err)
	}
	zl, err := logsvc.NewZap(conf.Debug)
	if err != nil {
		log.Fatalf("admin: building logger: %+v", err)
	}
	logger := zl.Sugar()
	defer func() { _ = logger.Sync() }()

	// set up DB
	db, err := database.Open(context.Background(), conf.DatabaseURL)
	if err != nil {
		logger.Fatalw("opening database", "error", err)
	}
	database.MigrationLogger = gooseLogger{logger}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// start CLI; accounts created here get no welcome mail
	cli := commandLine{
		db:       db,
		usrSvc:   user.NewService(db, sqlxrepos.NewUserRepository(db), nil /* mailSvc */),
		validate: validate,
		in:       bufio.NewReader(os.Stdin),
		out:      os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Errorw("command failed", "error", err)
		}
		os.Exit(1)
	}
}
