package main

import (
	"log"
	"os"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/class"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/storage/database"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
	sqlxrepos "github.com/trezcool/darasa/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	// set up DB
	var (
		usrRepo  user.Repository
		clsRepo  class.Repository
		sessRepo attendance.Repository
	)
	switch core.Conf.Database.Engine {
	case "postgres":
		db, err := database.Open(core.Conf.Database)
		errAndDie(err)
		defer db.Close()
		errAndDie(db.Ping())
		usrRepo = sqlxrepos.NewUserRepository(db)
		clsRepo = sqlxrepos.NewClassRepository(db)
		sessRepo = sqlxrepos.NewSessionRepository(db)
	default:
		db, err := dummydb.Open()
		errAndDie(err)
		usrRepo = dummydb.NewUserRepository(db)
		clsRepo = dummydb.NewClassRepository(db)
		sessRepo = dummydb.NewSessionRepository(db)
	}

	// start CLI
	cli := commandLine{
		usrRepo:  usrRepo,
		clsRepo:  clsRepo,
		sessRepo: sessRepo,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
