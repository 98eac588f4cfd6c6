// Package database owns the storage connection: driver selection, pool
// settings, the startup ping, and schema migration.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver (in-memory test mode)

	"github.com/jonesrussell/opportunity-ingestor/internal/config"
	"github.com/jonesrussell/opportunity-ingestor/internal/logger"
	"github.com/jonesrussell/opportunity-ingestor/migrations"
)

const pingTimeout = 5 * time.Second

// DB wraps the sql.DB handle together with the driver it was opened with.
type DB struct {
	db     *sql.DB
	driver string
	logger logger.Logger
}

// New opens the configured database, verifies connectivity, and applies
// pending migrations. Safe to call on every process start.
func New(cfg *config.Config, log logger.Logger) (*DB, error) {
	var db *sql.DB
	var err error

	switch cfg.Database.Driver {
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Database.Host,
			cfg.Database.Port,
			cfg.Database.User,
			cfg.Database.Password,
			cfg.Database.DBName,
			cfg.Database.SSLMode,
		)
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	case "sqlite":
		db, err = sql.Open("sqlite", cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		// A pooled :memory: DSN would give each connection its own empty
		// database, so sqlite runs on a single connection.
		db.SetMaxOpenConns(1)

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if pingErr := db.PingContext(ctx); pingErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}

	if migErr := migrations.Run(db, cfg.Database.Driver); migErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", migErr)
	}

	log.Info("Database ready",
		logger.String("driver", cfg.Database.Driver),
	)

	return &DB{
		db:     db,
		driver: cfg.Database.Driver,
		logger: log,
	}, nil
}

// NewSQLite opens a standalone SQLite database at dsn and migrates it.
// Used by tests and the in-memory storage mode.
func NewSQLite(dsn string, log logger.Logger) (*DB, error) {
	cfg := &config.Config{}
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = dsn
	return New(cfg, log)
}

func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

func (d *DB) DB() *sql.DB {
	return d.db
}

// Driver returns the driver name the database was opened with.
func (d *DB) Driver() string {
	return d.driver
}
