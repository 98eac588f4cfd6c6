// Command migrate applies or rolls back schema migrations without starting
// the service.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/jonesrussell/opportunity-ingestor/migrations"
)

func main() {
	driver := flag.String("driver", envOrDefault("DB_DRIVER", "sqlite"), "database driver (postgres or sqlite)")
	dsn := flag.String("dsn", envOrDefault("DB_DSN", "./data/opportunities.db"), "database DSN")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: migrate [-driver postgres|sqlite] [-dsn DSN] <command>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr, "  up          Migrate to the latest version")
		fmt.Fprintln(os.Stderr, "  up-one      Migrate one version up")
		fmt.Fprintln(os.Stderr, "  down        Roll back one version")
		fmt.Fprintln(os.Stderr, "  status      Show migration status")
		fmt.Fprintln(os.Stderr, "  version     Show current version")
		fmt.Fprintln(os.Stderr, "  reset       Roll back all migrations")
		os.Exit(1)
	}

	driverName := *driver
	if driverName == "sqlite3" {
		driverName = "sqlite"
	}

	db, err := sql.Open(driverName, *dsn)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if err := migrations.Exec(db, driverName, args[0]); err != nil {
		log.Fatalf("migrate: %v", err)
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
