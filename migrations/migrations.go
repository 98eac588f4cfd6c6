// Package migrations embeds the SQL schema migrations and applies them with
// goose. Running them is idempotent: applied versions are skipped, so every
// process start can call Run safely.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed postgres/*.sql sqlite/*.sql
var migrationFS embed.FS

// Run applies all pending migrations for the given driver ("postgres" or
// "sqlite").
func Run(db *sql.DB, driver string) error {
	return Exec(db, driver, "up")
}

// Exec runs a goose command ("up", "up-one", "down", "status", "version",
// "reset") against the embedded migrations for the given driver.
func Exec(db *sql.DB, driver, command string) error {
	var dir, dialect string
	switch driver {
	case "postgres":
		dir, dialect = "postgres", "postgres"
	case "sqlite":
		dir, dialect = "sqlite", "sqlite3"
	default:
		return fmt.Errorf("unsupported driver %q", driver)
	}

	sub, err := fs.Sub(migrationFS, dir)
	if err != nil {
		return fmt.Errorf("migrations subtree: %w", err)
	}

	goose.SetBaseFS(sub)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	switch command {
	case "up":
		err = goose.Up(db, ".")
	case "up-one":
		err = goose.UpByOne(db, ".")
	case "down":
		err = goose.Down(db, ".")
	case "status":
		err = goose.Status(db, ".")
	case "version":
		err = goose.Version(db, ".")
	case "reset":
		err = goose.Reset(db, ".")
	default:
		return fmt.Errorf("unknown command %q", command)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", command, err)
	}
	return nil
}
