package models

import (
	"strconv"
	"strings"
	"time"
)

// Source is a configured listing site the ingest worker scrapes. Selectors
// drive extraction; Name is the natural key and doubles as the origin
// identifier stamped on every record the source produces.
type Source struct {
	ID        string          `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	URL       string          `json:"url" db:"url"`
	Type      OpportunityType `json:"opportunity_type" db:"opportunity_type"`
	RateLimit string          `json:"rate_limit" db:"rate_limit"`
	MaxPages  int             `json:"max_pages" db:"max_pages"`
	Selectors SelectorConfig  `json:"selectors" db:"selectors"`
	Enabled   bool            `json:"enabled" db:"enabled"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// SelectorConfig holds the CSS selector chains for one source. Each field is
// an ordered list of fallbacks; extraction tries them in sequence and the
// first non-empty result wins.
type SelectorConfig struct {
	Card        []string `json:"card,omitempty" yaml:"card"`
	Title       []string `json:"title,omitempty" yaml:"title"`
	Description []string `json:"description,omitempty" yaml:"description"`
	Link        []string `json:"link,omitempty" yaml:"link"`
	Deadline    []string `json:"deadline,omitempty" yaml:"deadline"`
	Amount      []string `json:"amount,omitempty" yaml:"amount"`
	Next        []string `json:"next,omitempty" yaml:"next"`
}

// DefaultSelectors matches the common opportunity-card markup seen across
// listing sites and is used for any chain a source leaves empty.
func DefaultSelectors() SelectorConfig {
	return SelectorConfig{
		Card:        []string{"article.opportunity-card", "article"},
		Title:       []string{"h2 a", "h2", "h3"},
		Description: []string{"p.summary", "p"},
		Link:        []string{"h2 a", "a"},
		Deadline:    []string{"span.deadline", "time"},
		Next:        []string{"a.next"},
	}
}

// MergeWithDefaults fills empty selector chains from DefaultSelectors.
func (c SelectorConfig) MergeWithDefaults() SelectorConfig {
	defaults := DefaultSelectors()
	if len(c.Card) == 0 {
		c.Card = defaults.Card
	}
	if len(c.Title) == 0 {
		c.Title = defaults.Title
	}
	if len(c.Description) == 0 {
		c.Description = defaults.Description
	}
	if len(c.Link) == 0 {
		c.Link = defaults.Link
	}
	if len(c.Deadline) == 0 {
		c.Deadline = defaults.Deadline
	}
	if len(c.Next) == 0 {
		c.Next = defaults.Next
	}
	return c
}

// DefaultRateLimit is the delay between page fetches when a source does not
// set one.
const DefaultRateLimit = "1s"

// NormalizeRateLimit converts rate_limit to a duration string with unit
// (e.g. "10" -> "10s"). Accepts already-valid durations ("10s", "1m") or
// bare numbers as seconds. Returns DefaultRateLimit for empty or invalid
// input so stored values are always parseable by clients.
func NormalizeRateLimit(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultRateLimit
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return s
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n > 0 {
			return strconv.Itoa(n) + "s"
		}
		return DefaultRateLimit
	}
	return DefaultRateLimit
}

// RateLimitDuration parses a normalized rate limit into a duration.
func RateLimitDuration(s string) time.Duration {
	d, err := time.ParseDuration(NormalizeRateLimit(s))
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultRateLimit)
	}
	return d
}

// RateLimitDuration returns the delay between page fetches for this source.
func (s *Source) RateLimitDuration() time.Duration {
	return RateLimitDuration(s.RateLimit)
}
