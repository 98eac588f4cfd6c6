package bootstrap

import (
	"context"
	"fmt"

	"github.com/jonesrussell/opportunity-ingestor/internal/config"
	"github.com/jonesrussell/opportunity-ingestor/internal/database"
	"github.com/jonesrussell/opportunity-ingestor/internal/importer"
	"github.com/jonesrussell/opportunity-ingestor/internal/logger"
	"github.com/jonesrussell/opportunity-ingestor/internal/repository"
)

// SetupDatabase creates a database connection and applies migrations.
func SetupDatabase(cfg *config.Config, log logger.Logger) (*database.DB, error) {
	db, err := database.New(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("database connection: %w", err)
	}
	return db, nil
}

// SeedSources loads the YAML seed file and upserts its sources by name.
// Missing file means nothing to seed. A failing upsert aborts startup so a
// broken seed file is noticed immediately.
func SeedSources(ctx context.Context, cfg *config.Config, sources *repository.SourceRepository, log logger.Logger) error {
	seed, err := importer.LoadSourcesFile(cfg.Scrape.SourcesFile)
	if err != nil {
		return err
	}
	if len(seed) == 0 {
		return nil
	}

	created, updated, err := sources.UpsertSourcesTx(ctx, seed)
	if err != nil {
		return fmt.Errorf("seed sources: %w", err)
	}

	log.Info("Sources seeded",
		logger.String("file", cfg.Scrape.SourcesFile),
		logger.Int("created", created),
		logger.Int("updated", updated),
	)
	return nil
}
