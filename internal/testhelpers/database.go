// Package testhelpers provides shared setup for the test suites.
package testhelpers

import (
	"testing"

	"github.com/jonesrussell/opportunity-ingestor/internal/database"
	"github.com/jonesrussell/opportunity-ingestor/internal/logger"
)

// NewTestDB opens a fresh in-memory SQLite database with the full schema
// applied. Each call gets its own database; Close runs on test cleanup.
func NewTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.NewSQLite(":memory:", NewTestLogger())
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// NewTestLogger creates a logger suitable for testing (discards all output).
func NewTestLogger() logger.Logger {
	return logger.NewNop()
}
