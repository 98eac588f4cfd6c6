// Package bootstrap handles application initialization and lifecycle
// management for the ingestor service.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/opportunity-ingestor/internal/api"
	"github.com/jonesrussell/opportunity-ingestor/internal/config"
	"github.com/jonesrussell/opportunity-ingestor/internal/events"
	"github.com/jonesrussell/opportunity-ingestor/internal/ingest"
	"github.com/jonesrussell/opportunity-ingestor/internal/logger"
	"github.com/jonesrussell/opportunity-ingestor/internal/repository"
	"github.com/jonesrussell/opportunity-ingestor/internal/scheduler"
)

const version = "dev"

// Start initializes and runs the ingestor application.
func Start() error {
	// Phase 1: Load config and create logger
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := CreateLogger(cfg, version)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// Phase 2: Setup database and seed sources
	db, err := SetupDatabase(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("Failed to close database", logger.Error(closeErr))
		}
	}()

	opportunityRepo := repository.NewOpportunityRepository(db.DB(), log)
	sourceRepo := repository.NewSourceRepository(db.DB(), log)

	if seedErr := SeedSources(context.Background(), cfg, sourceRepo, log); seedErr != nil {
		return fmt.Errorf("failed to seed sources: %w", seedErr)
	}

	// Phase 3: Setup event publisher (optional)
	publisher := SetupEventPublisher(cfg, log)

	// Phase 4: Setup ingest pipeline and scheduler
	sched := setupScheduler(cfg, opportunityRepo, sourceRepo, publisher, log)
	if startErr := sched.Start(context.Background()); startErr != nil {
		return fmt.Errorf("failed to start scheduler: %w", startErr)
	}
	defer sched.Stop()

	// Phase 5: Setup and run HTTP server
	router := api.NewRouter(api.Deps{
		Opportunities: opportunityRepo,
		Sources:       sourceRepo,
		Trigger:       sched,
		CORSOrigins:   cfg.Server.CORSOrigins,
		Logger:        log,
	})
	server := SetupHTTPServer(cfg, router)

	log.Info("Starting HTTP server",
		logger.String("host", cfg.Server.Host),
		logger.Int("port", cfg.Server.Port),
	)

	if runErr := RunServer(server, log); runErr != nil {
		log.Error("Server error", logger.Error(runErr))
		return fmt.Errorf("server error: %w", runErr)
	}

	log.Info("Server exited")
	return nil
}

func setupScheduler(
	cfg *config.Config,
	opportunityRepo *repository.OpportunityRepository,
	sourceRepo *repository.SourceRepository,
	publisher *events.Publisher,
	log logger.Logger,
) *scheduler.Scheduler {
	fetcher := ingest.NewFetcher(ingest.FetcherConfig{
		Timeout:    cfg.Scrape.RequestTimeout,
		MaxRetries: cfg.Scrape.MaxRetries,
		UserAgents: cfg.Scrape.UserAgents,
	}, log)
	worker := ingest.NewWorker(fetcher, opportunityRepo, publisher, log)
	runner := ingest.NewRunner(worker, sourceRepo, log)
	return scheduler.New(runner, cfg.Scrape.Interval, log)
}
