package ingest

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/opportunity-ingestor/internal/models"
)

// RawItem is one listing card before normalization. All fields are the raw
// text the selectors matched; empty means the selector chain found nothing.
type RawItem struct {
	Title       string
	Description string
	Link        string
	Deadline    string
	Amount      string
}

// Extractor pulls listing cards out of a page using a source's selector
// chains. Each chain is tried in order and the first selector that yields a
// non-empty value wins.
type Extractor struct {
	selectors models.SelectorConfig
}

// NewExtractor builds an Extractor, filling missing chains from defaults.
func NewExtractor(selectors models.SelectorConfig) *Extractor {
	return &Extractor{selectors: selectors.MergeWithDefaults()}
}

// Extract returns the raw items found on the page. Links are resolved
// against pageURL. The first item with no link of its own falls back to
// pageURL so it still carries a usable source_url; further link-less items
// are dropped, since they would all share that source_url and overwrite
// each other.
func (e *Extractor) Extract(doc *goquery.Document, pageURL string) []RawItem {
	base, _ := url.Parse(pageURL)

	var items []RawItem
	usedPageURL := false
	e.eachCard(doc, func(card *goquery.Selection) {
		item := RawItem{
			Title:       firstText(card, e.selectors.Title),
			Description: firstText(card, e.selectors.Description),
			Deadline:    firstText(card, e.selectors.Deadline),
			Amount:      firstText(card, e.selectors.Amount),
			Link:        resolveLink(base, firstAttr(card, e.selectors.Link, "href")),
		}
		if item.Link == "" {
			if usedPageURL {
				return
			}
			item.Link = pageURL
			usedPageURL = true
		}
		items = append(items, item)
	})
	return items
}

// NextPageURL returns the absolute URL of the next listing page, or empty
// when pagination is exhausted.
func (e *Extractor) NextPageURL(doc *goquery.Document, pageURL string) string {
	base, _ := url.Parse(pageURL)
	href := firstAttr(doc.Selection, e.selectors.Next, "href")
	next := resolveLink(base, href)
	if next == pageURL {
		return ""
	}
	return next
}

func (e *Extractor) eachCard(doc *goquery.Document, fn func(*goquery.Selection)) {
	for _, selector := range e.selectors.Card {
		cards := doc.Find(selector)
		if cards.Length() == 0 {
			continue
		}
		cards.Each(func(_ int, card *goquery.Selection) {
			fn(card)
		})
		return
	}
}

// firstText walks the selector chain and returns the first non-empty text.
func firstText(sel *goquery.Selection, chain []string) string {
	for _, selector := range chain {
		if text := strings.TrimSpace(sel.Find(selector).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// firstAttr walks the selector chain and returns the first non-empty
// attribute value.
func firstAttr(sel *goquery.Selection, chain []string, attr string) string {
	for _, selector := range chain {
		if value, ok := sel.Find(selector).First().Attr(attr); ok {
			if value = strings.TrimSpace(value); value != "" {
				return value
			}
		}
	}
	return ""
}

func resolveLink(base *url.URL, href string) string {
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}
