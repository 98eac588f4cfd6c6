package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonesrussell/opportunity-ingestor/internal/events"
	"github.com/jonesrussell/opportunity-ingestor/internal/logger"
	"github.com/jonesrussell/opportunity-ingestor/internal/models"
	"github.com/jonesrussell/opportunity-ingestor/internal/normalize"
	"github.com/jonesrussell/opportunity-ingestor/internal/repository"
)

// RunStats summarizes one scrape of one source.
type RunStats struct {
	Source    string `json:"source"`
	Pages     int    `json:"pages"`
	Created   int    `json:"created"`
	Updated   int    `json:"updated"`
	Unchanged int    `json:"unchanged"`
	Failed    int    `json:"failed"`
}

// Worker scrapes a single source: page by page it extracts items, builds
// normalized records, and upserts each one. Bad records are dropped and
// counted; storage-level failures abort the run.
type Worker struct {
	fetcher   *Fetcher
	repo      *repository.OpportunityRepository
	publisher *events.Publisher
	logger    logger.Logger
}

func NewWorker(fetcher *Fetcher, repo *repository.OpportunityRepository, publisher *events.Publisher, log logger.Logger) *Worker {
	return &Worker{
		fetcher:   fetcher,
		repo:      repo,
		publisher: publisher,
		logger:    log,
	}
}

// Run scrapes the source until pagination ends, MaxPages is reached, or the
// context is cancelled. A fetch failure on the first page is an error; on
// later pages the run stops with what it has.
func (w *Worker) Run(ctx context.Context, src *models.Source) (RunStats, error) {
	stats := RunStats{Source: src.Name}
	extractor := NewExtractor(src.Selectors)
	delay := src.RateLimitDuration()

	pageURL := src.URL
	for pageURL != "" {
		if src.MaxPages > 0 && stats.Pages >= src.MaxPages {
			break
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		doc, err := w.fetcher.Get(ctx, pageURL)
		if err != nil {
			if stats.Pages == 0 {
				return stats, fmt.Errorf("fetch first page of %s: %w", src.Name, err)
			}
			w.logger.Warn("Stopping pagination after fetch failure",
				logger.String("source", src.Name),
				logger.String("page_url", pageURL),
				logger.Error(err),
			)
			break
		}
		stats.Pages++

		items := extractor.Extract(doc, pageURL)
		w.logger.Debug("Extracted items",
			logger.String("source", src.Name),
			logger.String("page_url", pageURL),
			logger.Int("count", len(items)),
		)

		for _, item := range items {
			if err := w.ingestItem(ctx, src, item, &stats); err != nil {
				return stats, err
			}
		}

		pageURL = extractor.NextPageURL(doc, pageURL)
		if pageURL != "" && delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return stats, ctx.Err()
			}
		}
	}

	w.logger.Info("Source scrape finished",
		logger.String("source", src.Name),
		logger.Int("pages", stats.Pages),
		logger.Int("created", stats.Created),
		logger.Int("updated", stats.Updated),
		logger.Int("unchanged", stats.Unchanged),
		logger.Int("failed", stats.Failed),
	)
	return stats, nil
}

// ingestItem upserts one extracted item. Validation failures and integrity
// violations drop the record and keep the run going; anything else (dead
// connection, failed transaction) is fatal for the run.
func (w *Worker) ingestItem(ctx context.Context, src *models.Source, item RawItem, stats *RunStats) error {
	rec := w.buildRecord(src, item)

	id, outcome, err := w.repo.Upsert(ctx, rec)
	if err != nil {
		var integrityErr *repository.IntegrityError
		if errors.As(err, &integrityErr) {
			stats.Failed++
			w.logger.Warn("Dropping record after integrity violation",
				logger.String("source", src.Name),
				logger.String("source_url", rec.SourceURL),
				logger.Error(err),
			)
			return nil
		}
		var validationErr *models.ValidationError
		if errors.As(err, &validationErr) {
			stats.Failed++
			w.logger.Warn("Dropping invalid record",
				logger.String("source", src.Name),
				logger.String("source_url", rec.SourceURL),
				logger.Error(validationErr),
			)
			return nil
		}
		return fmt.Errorf("upsert %s: %w", rec.SourceURL, err)
	}

	switch outcome {
	case repository.OutcomeCreated:
		stats.Created++
		w.publishEvent(events.OpportunityCreated, id, rec)
	case repository.OutcomeUpdated:
		stats.Updated++
		w.publishEvent(events.OpportunityUpdated, id, rec)
	case repository.OutcomeUnchanged:
		stats.Unchanged++
	}
	return nil
}

// buildRecord normalizes a raw item into the canonical record shape. The
// source's name is the record's source_id and its configured type applies to
// every item it lists.
func (w *Worker) buildRecord(src *models.Source, item RawItem) *models.Record {
	title := normalize.CleanText(item.Title)
	description := normalize.CleanText(item.Description)

	return &models.Record{
		SourceID:    src.Name,
		Title:       title,
		Description: description,
		Deadline:    normalize.ParseDate(item.Deadline),
		Type:        src.Type,
		Sector:      normalize.DeriveSector(title, description),
		Amount:      normalize.ParseAmount(item.Amount),
		SourceURL:   item.Link,
	}
}

func (w *Worker) publishEvent(eventType events.EventType, id string, rec *models.Record) {
	w.publisher.PublishAsync(events.OpportunityEvent{
		EventType:     eventType,
		OpportunityID: id,
		SourceID:      rec.SourceID,
		SourceURL:     rec.SourceURL,
	})
}
