// Package scheduler runs the periodic scrape cycle.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/opportunity-ingestor/internal/ingest"
	"github.com/jonesrussell/opportunity-ingestor/internal/logger"
)

// Scheduler wraps robfig/cron and triggers full scrape cycles on a fixed
// interval. Overlapping cycles are skipped rather than queued.
type Scheduler struct {
	cron     *cron.Cron
	runner   *ingest.Runner
	interval time.Duration
	logger   logger.Logger

	mu      sync.Mutex
	running bool
}

// New creates a Scheduler that fires every interval.
func New(runner *ingest.Runner, interval time.Duration, log logger.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		runner:   runner,
		interval: interval,
		logger:   log,
	}
}

// Start registers the job and starts the scheduler. One cycle runs
// immediately so data is available without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, func() {
		s.runCycle(ctx)
	}); err != nil {
		return fmt.Errorf("register scrape job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Scheduler started",
		logger.String("interval", s.interval.String()),
	)

	go s.runCycle(ctx)
	return nil
}

// Stop stops the cron loop. Already-running jobs finish on their own; Stop
// does not wait for them.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("Scheduler stopped")
}

// TriggerNow runs one scrape cycle in the background, for the manual API
// trigger. Returns false if a cycle is already in flight.
func (s *Scheduler) TriggerNow(ctx context.Context) bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()

	go s.runCycle(ctx)
	return true
}

func (s *Scheduler) runCycle(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("Skipping scrape cycle, previous cycle still running")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	start := time.Now()
	stats, err := s.runner.RunAll(ctx)
	if err != nil {
		s.logger.Error("Scrape cycle failed",
			logger.Error(err),
		)
		return
	}

	var created, updated, unchanged, failed int
	for _, st := range stats {
		created += st.Created
		updated += st.Updated
		unchanged += st.Unchanged
		failed += st.Failed
	}
	s.logger.Info("Scrape cycle complete",
		logger.Int("sources", len(stats)),
		logger.Int("created", created),
		logger.Int("updated", updated),
		logger.Int("unchanged", unchanged),
		logger.Int("failed", failed),
		logger.Duration("elapsed", time.Since(start)),
	)
}
