package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/opportunity-ingestor/internal/models"
	"github.com/jonesrussell/opportunity-ingestor/internal/repository"
	"github.com/jonesrussell/opportunity-ingestor/internal/testhelpers"
)

func newWorkerWithRepo(t *testing.T) (*Worker, *repository.OpportunityRepository) {
	t.Helper()
	db := testhelpers.NewTestDB(t)
	repo := repository.NewOpportunityRepository(db.DB(), testhelpers.NewTestLogger())
	worker := NewWorker(newTestFetcher(0), repo, nil, testhelpers.NewTestLogger())
	return worker, repo
}

func workerSource(url string) *models.Source {
	return &models.Source{
		Name:      "wekomkom",
		URL:       url,
		Type:      models.TypeFinancing,
		RateLimit: "1ms",
		MaxPages:  10,
		Selectors: models.SelectorConfig{
			Amount: []string{"span.amount"},
		},
		Enabled: true,
	}
}

const page1HTML = `
<html><body>
  <article class="opportunity-card">
    <h2><a href="/op/1">Fonds agriculture durable</a></h2>
    <p class="summary">Financement pour exploitations agricoles</p>
    <span class="deadline">18 avril 2024</span>
    <span class="amount">Montant: 15 000 000 XOF</span>
  </article>
  <a class="next" href="/page/2">Suivant</a>
</body></html>`

const page2HTML = `
<html><body>
  <article class="opportunity-card">
    <h2><a href="/op/2">Programme numérique</a></h2>
    <p class="summary">Accélération de startups tech</p>
  </article>
  <article class="opportunity-card">
    <h2><a href="/op/broken"></a></h2>
    <p class="summary"></p>
  </article>
</body></html>`

func newListingServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/list", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, page1HTML)
	})
	mux.HandleFunc("/page/2", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, page2HTML)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestWorkerRun(t *testing.T) {
	server := newListingServer(t)
	worker, repo := newWorkerWithRepo(t)
	ctx := context.Background()

	stats, err := worker.Run(ctx, workerSource(server.URL+"/list"))
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Pages)
	assert.Equal(t, 2, stats.Created)
	assert.Equal(t, 0, stats.Updated)
	assert.Equal(t, 1, stats.Failed, "the item with no title is dropped")

	first, err := repo.GetBySourceURL(ctx, server.URL+"/op/1")
	require.NoError(t, err)
	assert.Equal(t, "Fonds agriculture durable", first.Title)
	assert.Equal(t, "wekomkom", first.SourceID)
	assert.Equal(t, models.TypeFinancing, first.Type)
	require.NotNil(t, first.Deadline)
	assert.Equal(t, "2024-04-18", first.Deadline.Format("2006-01-02"))
	require.NotNil(t, first.Amount)
	assert.True(t, first.Amount.Equal(decimal.NewFromInt(15000000)))
	require.NotNil(t, first.Sector)
	assert.Equal(t, "agri", *first.Sector)

	second, err := repo.GetBySourceURL(ctx, server.URL+"/op/2")
	require.NoError(t, err)
	require.NotNil(t, second.Sector)
	assert.Equal(t, "tech", *second.Sector)
	assert.Nil(t, second.Deadline)
	assert.Nil(t, second.Amount)
}

func TestWorkerRunIsIdempotent(t *testing.T) {
	server := newListingServer(t)
	worker, _ := newWorkerWithRepo(t)
	ctx := context.Background()

	_, err := worker.Run(ctx, workerSource(server.URL+"/list"))
	require.NoError(t, err)

	stats, err := worker.Run(ctx, workerSource(server.URL+"/list"))
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Created)
	assert.Equal(t, 0, stats.Updated)
	assert.Equal(t, 2, stats.Unchanged, "re-scraping identical pages changes nothing")
}

func TestWorkerRespectsMaxPages(t *testing.T) {
	server := newListingServer(t)
	worker, _ := newWorkerWithRepo(t)

	src := workerSource(server.URL + "/list")
	src.MaxPages = 1

	stats, err := worker.Run(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pages)
	assert.Equal(t, 1, stats.Created)
}

func TestWorkerFirstPageFetchFails(t *testing.T) {
	worker, _ := newWorkerWithRepo(t)

	src := workerSource("http://127.0.0.1:0/list")
	_, err := worker.Run(context.Background(), src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch first page")
}

func TestWorkerStopsOnContextCancel(t *testing.T) {
	server := newListingServer(t)
	worker, _ := newWorkerWithRepo(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := worker.Run(ctx, workerSource(server.URL+"/list"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunnerRunAll(t *testing.T) {
	server := newListingServer(t)
	db := testhelpers.NewTestDB(t)
	log := testhelpers.NewTestLogger()
	opportunityRepo := repository.NewOpportunityRepository(db.DB(), log)
	sourceRepo := repository.NewSourceRepository(db.DB(), log)
	ctx := context.Background()

	good := workerSource(server.URL + "/list")
	require.NoError(t, sourceRepo.Create(ctx, good))

	bad := workerSource(server.URL + "/list")
	bad.Name = "unreachable"
	bad.URL = "http://127.0.0.1:0/list"
	require.NoError(t, sourceRepo.Create(ctx, bad))

	disabled := workerSource(server.URL + "/list")
	disabled.Name = "disabled"
	disabled.Enabled = false
	require.NoError(t, sourceRepo.Create(ctx, disabled))

	worker := NewWorker(newTestFetcher(0), opportunityRepo, nil, log)
	runner := NewRunner(worker, sourceRepo, log)

	stats, err := runner.RunAll(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2, "disabled sources are skipped")

	var totalCreated int
	for _, st := range stats {
		totalCreated += st.Created
	}
	assert.Equal(t, 2, totalCreated, "one failing source does not stop the cycle")
}

func TestWorkerRateLimitWaits(t *testing.T) {
	server := newListingServer(t)
	worker, _ := newWorkerWithRepo(t)

	src := workerSource(server.URL + "/list")
	src.RateLimit = "50ms"

	start := time.Now()
	_, err := worker.Run(context.Background(), src)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}
