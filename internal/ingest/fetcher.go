// Package ingest is the adapter layer: it fetches listing pages, extracts
// raw fields with per-source selector chains, normalizes them, and hands
// records to the upsert engine one at a time.
package ingest

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sethvargo/go-retry"

	"github.com/jonesrussell/opportunity-ingestor/internal/logger"
)

// defaultUserAgents is the rotation pool used when none is configured.
var defaultUserAgents = []string{
	// Chrome
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	// Firefox
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:119.0) Gecko/20100101 Firefox/119.0",
	// Edge
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36 Edg/119.0.0.0",
	// Safari
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_4) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.4 Safari/605.1.15",
}

const initialBackoff = 500 * time.Millisecond

// FetcherConfig tunes the HTTP behavior of a Fetcher.
type FetcherConfig struct {
	Timeout    time.Duration
	MaxRetries int
	UserAgents []string
}

// Fetcher downloads listing pages with a rotating User-Agent pool and
// retries transient failures with exponential backoff. 403/429 responses
// are counted per domain as ban signals.
type Fetcher struct {
	client     *http.Client
	userAgents []string
	maxRetries int
	logger     logger.Logger

	mu        sync.Mutex
	banCounts map[string]int
}

// NewFetcher constructs a Fetcher.
func NewFetcher(cfg FetcherConfig, log logger.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if len(cfg.UserAgents) == 0 {
		cfg.UserAgents = defaultUserAgents
	}
	return &Fetcher{
		client:     &http.Client{Timeout: cfg.Timeout},
		userAgents: cfg.UserAgents,
		maxRetries: cfg.MaxRetries,
		logger:     log,
		banCounts:  make(map[string]int),
	}
}

// Get fetches the URL and parses the response body as HTML. Transient
// failures (transport errors, 5xx, 403/429) are retried with exponential
// backoff up to the configured attempt count.
func (f *Fetcher) Get(ctx context.Context, pageURL string) (*goquery.Document, error) {
	var doc *goquery.Document

	backoff := retry.WithMaxRetries(uint64(f.maxRetries), retry.NewExponential(initialBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var fetchErr error
		doc, fetchErr = f.fetchOnce(ctx, pageURL)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgents[rand.Intn(len(f.userAgents))])

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, retry.RetryableError(fmt.Errorf("fetch %s: %w", pageURL, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		doc, parseErr := goquery.NewDocumentFromReader(resp.Body)
		if parseErr != nil {
			return nil, fmt.Errorf("parse HTML from %s: %w", pageURL, parseErr)
		}
		return doc, nil

	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		f.recordBan(pageURL, resp.StatusCode)
		return nil, retry.RetryableError(fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode))

	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, retry.RetryableError(fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode))

	default:
		return nil, fmt.Errorf("fetch %s: unexpected status %d", pageURL, resp.StatusCode)
	}
}

func (f *Fetcher) recordBan(pageURL string, status int) {
	domain := pageURL
	if parsed, err := url.Parse(pageURL); err == nil && parsed.Host != "" {
		domain = parsed.Host
	}

	f.mu.Lock()
	f.banCounts[domain]++
	count := f.banCounts[domain]
	f.mu.Unlock()

	f.logger.Warn("Ban detected",
		logger.Int("status", status),
		logger.String("domain", domain),
		logger.Int("count", count),
	)
}

// BanCount returns how many 403/429 responses the domain has produced.
func (f *Fetcher) BanCount(domain string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.banCounts[domain]
}
