// Package events publishes opportunity lifecycle events to Redis Streams.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/opportunity-ingestor/internal/logger"
)

// StreamName is the Redis stream opportunity events are appended to.
const StreamName = "opportunities:events"

// asyncPublishTimeout is the context timeout for async publish operations.
const asyncPublishTimeout = 5 * time.Second

// EventType identifies what happened to an opportunity row.
type EventType string

const (
	OpportunityCreated EventType = "opportunity.created"
	OpportunityUpdated EventType = "opportunity.updated"
)

// OpportunityEvent is the payload appended to the stream.
type OpportunityEvent struct {
	EventID       uuid.UUID `json:"event_id"`
	EventType     EventType `json:"event_type"`
	OpportunityID string    `json:"opportunity_id"`
	SourceID      string    `json:"source_id"`
	SourceURL     string    `json:"source_url"`
	Timestamp     time.Time `json:"timestamp"`
}

// Publisher publishes opportunity events to Redis Streams.
type Publisher struct {
	client *redis.Client
	log    logger.Logger
}

// NewPublisher creates a new event publisher. Returns nil if client is nil,
// and a nil *Publisher is safe to call: every method is a no-op.
func NewPublisher(client *redis.Client, log logger.Logger) *Publisher {
	if client == nil {
		return nil
	}
	return &Publisher{
		client: client,
		log:    log,
	}
}

// Publish appends an event to the stream.
func (p *Publisher) Publish(ctx context.Context, event OpportunityEvent) error {
	if p == nil || p.client == nil {
		return nil
	}

	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	result := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamName,
		Values: map[string]any{
			"event": string(payload),
		},
	})

	if publishErr := result.Err(); publishErr != nil {
		if p.log != nil {
			p.log.Error("Failed to publish event",
				logger.String("event_type", string(event.EventType)),
				logger.String("opportunity_id", event.OpportunityID),
				logger.Error(publishErr),
			)
		}
		return fmt.Errorf("publish to stream: %w", publishErr)
	}

	if p.log != nil {
		p.log.Debug("Published opportunity event",
			logger.String("event_type", string(event.EventType)),
			logger.String("opportunity_id", event.OpportunityID),
			logger.String("stream_id", result.Val()),
		)
	}
	return nil
}

// PublishAsync publishes an event asynchronously. Errors are logged but not
// returned.
func (p *Publisher) PublishAsync(event OpportunityEvent) {
	if p == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), asyncPublishTimeout)
		defer cancel()

		if err := p.Publish(ctx, event); err != nil && p.log != nil {
			p.log.Error("Async publish failed",
				logger.String("event_type", string(event.EventType)),
				logger.String("opportunity_id", event.OpportunityID),
				logger.Error(err),
			)
		}
	}()
}
