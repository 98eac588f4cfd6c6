package ingest

import (
	"context"
	"fmt"

	"github.com/jonesrussell/opportunity-ingestor/internal/logger"
	"github.com/jonesrussell/opportunity-ingestor/internal/repository"
)

// Runner drives a full scrape cycle over every enabled source.
type Runner struct {
	worker  *Worker
	sources *repository.SourceRepository
	logger  logger.Logger
}

func NewRunner(worker *Worker, sources *repository.SourceRepository, log logger.Logger) *Runner {
	return &Runner{
		worker:  worker,
		sources: sources,
		logger:  log,
	}
}

// RunAll scrapes every enabled source in sequence. A failing source does not
// stop the cycle; its error is logged and the next source runs. The returned
// stats cover every source that was attempted.
func (r *Runner) RunAll(ctx context.Context) ([]RunStats, error) {
	sources, err := r.sources.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("list enabled sources: %w", err)
	}
	if len(sources) == 0 {
		r.logger.Info("No enabled sources, nothing to scrape")
		return nil, nil
	}

	r.logger.Info("Starting scrape cycle",
		logger.Int("sources", len(sources)),
	)

	allStats := make([]RunStats, 0, len(sources))
	for i := range sources {
		if err := ctx.Err(); err != nil {
			return allStats, err
		}

		src := &sources[i]
		stats, runErr := r.worker.Run(ctx, src)
		allStats = append(allStats, stats)
		if runErr != nil {
			r.logger.Error("Source scrape failed",
				logger.String("source", src.Name),
				logger.Error(runErr),
			)
		}
	}

	return allStats, nil
}
