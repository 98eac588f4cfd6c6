package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func validRecord() *Record {
	return &Record{
		SourceID:    "wekomkom",
		Title:       "Fonds innovation",
		Description: "Appel à projets pour startups",
		Type:        TypeFinancing,
		SourceURL:   "https://example.com/op/1",
	}
}

func TestRecordValidate(t *testing.T) {
	negative := decimal.NewFromInt(-1)
	zero := decimal.NewFromInt(0)

	tests := []struct {
		name    string
		mutate  func(*Record)
		wantErr string
	}{
		{"valid", func(r *Record) {}, ""},
		{"missing source_url", func(r *Record) { r.SourceURL = "" }, "source_url is required"},
		{"missing source_id", func(r *Record) { r.SourceID = "" }, "source_id is required"},
		{"missing title", func(r *Record) { r.Title = "" }, "title is required"},
		{"missing description", func(r *Record) { r.Description = "" }, "description is required"},
		{"bad type", func(r *Record) { r.Type = "grant" }, "unknown opportunity type"},
		{"negative amount", func(r *Record) { r.Amount = &negative }, "non-negative"},
		{"zero amount ok", func(r *Record) { r.Amount = &zero }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(rec)
			err := rec.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
				var validationErr *ValidationError
				assert.ErrorAs(t, err, &validationErr)
				assert.Equal(t, rec.SourceURL, validationErr.SourceURL)
			}
		})
	}
}

func TestOpportunityMatches(t *testing.T) {
	deadline := time.Date(2024, 4, 18, 0, 0, 0, 0, time.UTC)
	amount := decimal.NewFromInt(50000)
	sector := "tech"

	base := func() (*Opportunity, *Record) {
		o := &Opportunity{
			Title:       "Fonds innovation",
			Description: "Appel à projets",
			Deadline:    &deadline,
			Type:        TypeFinancing,
			Sector:      &sector,
			Amount:      &amount,
		}
		d := deadline
		a := amount
		s := sector
		r := &Record{
			Title:       "Fonds innovation",
			Description: "Appel à projets",
			Deadline:    &d,
			Type:        TypeFinancing,
			Sector:      &s,
			Amount:      &a,
		}
		return o, r
	}

	t.Run("identical", func(t *testing.T) {
		o, r := base()
		assert.True(t, o.Matches(r))
	})

	t.Run("title differs", func(t *testing.T) {
		o, r := base()
		r.Title = "Fonds innovation 2024"
		assert.False(t, o.Matches(r))
	})

	t.Run("deadline same day different clock time", func(t *testing.T) {
		o, r := base()
		shifted := deadline.Add(5 * time.Hour)
		r.Deadline = &shifted
		assert.True(t, o.Matches(r))
	})

	t.Run("deadline nil vs set", func(t *testing.T) {
		o, r := base()
		r.Deadline = nil
		assert.False(t, o.Matches(r))
	})

	t.Run("amount equal by value", func(t *testing.T) {
		o, r := base()
		rescaled, err := decimal.NewFromString("50000.00")
		assert.NoError(t, err)
		r.Amount = &rescaled
		assert.True(t, o.Matches(r))
	})

	t.Run("amount differs", func(t *testing.T) {
		o, r := base()
		other := decimal.NewFromInt(60000)
		r.Amount = &other
		assert.False(t, o.Matches(r))
	})

	t.Run("both sectors nil", func(t *testing.T) {
		o, r := base()
		o.Sector = nil
		r.Sector = nil
		assert.True(t, o.Matches(r))
	})

	t.Run("stage differs", func(t *testing.T) {
		o, r := base()
		stage := "seed"
		r.Stage = &stage
		assert.False(t, o.Matches(r))
	})
}
