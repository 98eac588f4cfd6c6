package ingest

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/opportunity-ingestor/internal/models"
)

const listingHTML = `
<html><body>
  <article class="opportunity-card">
    <h2><a href="/op/1">Fonds innovation</a></h2>
    <p class="summary">Appel à projets pour startups</p>
    <span class="deadline">18 avril 2024</span>
    <span class="amount">15 000 000 XOF</span>
  </article>
  <article class="opportunity-card">
    <h2><a href="https://other.example.org/op/2">Subvention agricole</a></h2>
    <p class="summary">Soutien aux exploitations</p>
  </article>
  <article class="opportunity-card">
    <h2>Sans lien</h2>
    <p class="summary">Pas de page dédiée</p>
  </article>
  <a class="next" href="/page/2">Suivant</a>
</body></html>`

func parseHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestExtract(t *testing.T) {
	extractor := NewExtractor(models.SelectorConfig{})
	doc := parseHTML(t, listingHTML)

	items := extractor.Extract(doc, "https://example.com/financements")
	require.Len(t, items, 3)

	assert.Equal(t, "Fonds innovation", items[0].Title)
	assert.Equal(t, "Appel à projets pour startups", items[0].Description)
	assert.Equal(t, "18 avril 2024", items[0].Deadline)
	assert.Equal(t, "https://example.com/op/1", items[0].Link, "relative links resolve against the page URL")

	assert.Equal(t, "https://other.example.org/op/2", items[1].Link, "absolute links pass through")
	assert.Empty(t, items[1].Deadline)

	assert.Equal(t, "https://example.com/financements", items[2].Link, "items without a link fall back to the page URL")
}

func TestExtractDropsExtraLinklessItems(t *testing.T) {
	html := `
	<html><body>
	  <article class="opportunity-card">
	    <h2><a href="/op/1">Avec lien</a></h2>
	    <p class="summary">Page dédiée</p>
	  </article>
	  <article class="opportunity-card">
	    <h2>Sans lien un</h2>
	    <p class="summary">Premier repli</p>
	  </article>
	  <article class="opportunity-card">
	    <h2>Sans lien deux</h2>
	    <p class="summary">Entrerait en collision avec le premier</p>
	  </article>
	</body></html>`

	extractor := NewExtractor(models.SelectorConfig{})
	items := extractor.Extract(parseHTML(t, html), "https://example.com/list")

	// Only one item may claim the page URL; a second link-less card would
	// upsert onto the same source_url and overwrite the first.
	require.Len(t, items, 2)
	assert.Equal(t, "https://example.com/op/1", items[0].Link)
	assert.Equal(t, "Sans lien un", items[1].Title)
	assert.Equal(t, "https://example.com/list", items[1].Link)
}

func TestExtractAmountChain(t *testing.T) {
	extractor := NewExtractor(models.SelectorConfig{
		Amount: []string{"span.amount"},
	})
	doc := parseHTML(t, listingHTML)

	items := extractor.Extract(doc, "https://example.com/financements")
	require.Len(t, items, 3)
	assert.Equal(t, "15 000 000 XOF", items[0].Amount)
	assert.Empty(t, items[1].Amount)
}

func TestExtractFallbackChain(t *testing.T) {
	html := `
	<html><body>
	  <article>
	    <h3>Titre de repli</h3>
	    <p>Description simple</p>
	  </article>
	</body></html>`

	// Default chains: no h2 matches, so the h3 fallback wins; no
	// article.opportunity-card, so bare article wins.
	extractor := NewExtractor(models.SelectorConfig{})
	items := extractor.Extract(parseHTML(t, html), "https://example.com/list")
	require.Len(t, items, 1)
	assert.Equal(t, "Titre de repli", items[0].Title)
	assert.Equal(t, "Description simple", items[0].Description)
}

func TestNextPageURL(t *testing.T) {
	extractor := NewExtractor(models.SelectorConfig{})

	doc := parseHTML(t, listingHTML)
	assert.Equal(t, "https://example.com/page/2",
		extractor.NextPageURL(doc, "https://example.com/financements"))

	lastPage := parseHTML(t, `<html><body><article><h2>fin</h2></article></body></html>`)
	assert.Empty(t, extractor.NextPageURL(lastPage, "https://example.com/page/9"))
}

func TestNextPageURLSelfLinkStops(t *testing.T) {
	extractor := NewExtractor(models.SelectorConfig{})
	doc := parseHTML(t, `<html><body><a class="next" href="https://example.com/list">next</a></body></html>`)
	assert.Empty(t, extractor.NextPageURL(doc, "https://example.com/list"),
		"a next link pointing at the current page must not loop")
}
