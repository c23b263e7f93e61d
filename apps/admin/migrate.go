package main

import (
	"fmt"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/storage/database"
)

var newMigrateFunc = migrate.New // mockable

// migrate applies schema migrations; postgres only.
func (cli *commandLine) migrate(args []string) error {
	if core.Conf.Database.Engine != "postgres" {
		return fmt.Errorf("migrations require the postgres engine, got %q", core.Conf.Database.Engine)
	}

	src := "file://" + filepath.Join(core.Getwd(), "storage", "database", "sqlx", "migrations")
	m, err := newMigrateFunc(src, database.URL(core.Conf.Database))
	if err != nil {
		return err
	}
	defer m.Close()

	switch args[0] {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	case "version":
		var version uint
		var dirty bool
		if version, dirty, err = m.Version(); err == nil {
			logger.Printf("version=%d dirty=%t", version, dirty)
		}
	default:
		cli.printUsage()
		return errHelp
	}
	if err == migrate.ErrNoChange || err == migrate.ErrNilVersion {
		logger.Println(err)
		return nil
	}
	return err
}
