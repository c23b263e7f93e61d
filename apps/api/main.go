package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/class"
	"github.com/trezcool/darasa/core/user"
	broadcastsvc "github.com/trezcool/darasa/services/broadcast"
	logsvc "github.com/trezcool/darasa/services/logger"
	"github.com/trezcool/darasa/storage/database"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
	sqlxrepos "github.com/trezcool/darasa/storage/database/sqlx"
)

const shutdownTimeout = 10 * time.Second

func main() {
	std := log.New(os.Stdout, core.Conf.AppName+" ", log.LstdFlags|log.Lshortfile)

	var logger core.Logger
	if core.Conf.Debug {
		logger = logsvc.NewStdLogger(std)
	} else {
		logger = logsvc.NewRollbarLogger(std, core.Conf)
	}

	// set up DB
	var (
		usrRepo  user.Repository
		clsRepo  class.Repository
		sessRepo attendance.Repository
	)
	switch core.Conf.Database.Engine {
	case "postgres":
		db, err := database.Open(core.Conf.Database)
		errAndDie(std, err)
		defer db.Close()
		usrRepo = sqlxrepos.NewUserRepository(db)
		clsRepo = sqlxrepos.NewClassRepository(db)
		sessRepo = sqlxrepos.NewSessionRepository(db)
	default:
		db, err := dummydb.Open()
		errAndDie(std, err)
		usrRepo = dummydb.NewUserRepository(db)
		clsRepo = dummydb.NewClassRepository(db)
		sessRepo = dummydb.NewSessionRepository(db)
	}

	// set up services
	hub := broadcastsvc.NewHub(logger)
	defer hub.Close()
	usrSvc := user.NewService(usrRepo)
	clsSvc := class.NewService(clsRepo, usrRepo)
	attSvc := attendance.NewService(sessRepo, clsRepo, usrRepo, hub, logger)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// start API server
	app := echoapi.NewServer(
		&echoapi.Options{
			Addr:           core.Conf.Addr(),
			Logger:         logger,
			UserSvc:        usrSvc,
			ClassSvc:       clsSvc,
			AttendanceSvc:  attSvc,
			Hub:            hub,
			SignalShutdown: func() { shutdown <- syscall.SIGTERM },
		},
	)
	go app.Start()

	<-shutdown
	std.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.Stop(ctx); err != nil {
		std.Printf("graceful shutdown failed: %v", err)
	}
}

func errAndDie(std *log.Logger, err error) {
	if err != nil {
		std.Fatal(err)
	}
}
