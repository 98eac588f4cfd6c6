// Package models defines the persisted entities and the record type that
// ingestion adapters hand to the upsert engine.
package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OpportunityType classifies an opportunity as money or assistance.
type OpportunityType string

const (
	TypeFinancing OpportunityType = "financing"
	TypeSupport   OpportunityType = "support"
)

// Valid reports whether t is one of the two known opportunity types.
func (t OpportunityType) Valid() bool {
	return t == TypeFinancing || t == TypeSupport
}

// Opportunity is a funding or support offering extracted from a source page.
// Exactly one row exists per distinct SourceURL; the id is the hex SHA-256
// digest of SourceURL and never changes once assigned.
type Opportunity struct {
	ID          string           `json:"id" db:"id"`
	SourceID    string           `json:"source_id" db:"source_id"`
	Title       string           `json:"title" db:"title"`
	Description string           `json:"description" db:"description"`
	Deadline    *time.Time       `json:"deadline,omitempty" db:"deadline"`
	Type        OpportunityType  `json:"opportunity_type" db:"opportunity_type"`
	Sector      *string          `json:"sector,omitempty" db:"sector"`
	Stage       *string          `json:"stage,omitempty" db:"stage"`
	Amount      *decimal.Decimal `json:"amount,omitempty" db:"amount"`
	SourceURL   string           `json:"source_url" db:"source_url"`
	ScrapedAt   time.Time        `json:"scraped_at" db:"scraped_at"`
	UpdatedAt   time.Time        `json:"updated_at" db:"updated_at"`
}

// Record is the canonical input to the upsert engine. Adapters do all field
// renaming and normalization before constructing one; the engine never sees
// site-specific shapes.
type Record struct {
	SourceID    string
	Title       string
	Description string
	Deadline    *time.Time
	Type        OpportunityType
	Sector      *string
	Stage       *string
	Amount      *decimal.Decimal
	SourceURL   string
}

// ValidationError reports a record that fails the boundary contract.
// Callers treat it as a per-record failure: drop the record, log its
// SourceURL, keep going.
type ValidationError struct {
	SourceURL string
	Reason    string
}

func (e *ValidationError) Error() string {
	if e.SourceURL == "" {
		return "record: " + e.Reason
	}
	return fmt.Sprintf("record %q: %s", e.SourceURL, e.Reason)
}

// Validate checks the required fields and value constraints of a record.
func (r *Record) Validate() error {
	reason := ""
	switch {
	case r.SourceURL == "":
		reason = "source_url is required"
	case r.SourceID == "":
		reason = "source_id is required"
	case r.Title == "":
		reason = "title is required"
	case r.Description == "":
		reason = "description is required"
	case !r.Type.Valid():
		reason = fmt.Sprintf("unknown opportunity type %q", r.Type)
	case r.Amount != nil && r.Amount.IsNegative():
		reason = fmt.Sprintf("amount must be non-negative, got %s", r.Amount)
	default:
		return nil
	}
	return &ValidationError{SourceURL: r.SourceURL, Reason: reason}
}

// Matches reports whether every tracked field of the record equals the
// stored row, using value equality (nil equals nil, decimals compared by
// value so 1000 equals 1000.00).
func (o *Opportunity) Matches(r *Record) bool {
	return o.Title == r.Title &&
		o.Description == r.Description &&
		equalDate(o.Deadline, r.Deadline) &&
		o.Type == r.Type &&
		equalString(o.Sector, r.Sector) &&
		equalString(o.Stage, r.Stage) &&
		equalDecimal(o.Amount, r.Amount)
}

func equalDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func equalString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func equalDecimal(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
