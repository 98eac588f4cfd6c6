package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/opportunity-ingestor/internal/testhelpers"
)

// Event publishing is optional; everything must be callable when Redis is
// not configured.
func TestNilPublisherIsSafe(t *testing.T) {
	assert.Nil(t, NewPublisher(nil, testhelpers.NewTestLogger()))

	var p *Publisher
	assert.NoError(t, p.Publish(context.Background(), OpportunityEvent{
		EventType:     OpportunityCreated,
		OpportunityID: "abc",
	}))
	p.PublishAsync(OpportunityEvent{EventType: OpportunityUpdated})
}
