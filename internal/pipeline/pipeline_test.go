package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nsyc/nsyc-fetch/internal/catalog"
	"github.com/nsyc/nsyc-fetch/internal/config"
	"github.com/nsyc/nsyc-fetch/internal/state"
	"github.com/nsyc/nsyc-fetch/pkg/models"
)

type stubFetcher struct {
	pages        map[string]*models.PageContent
	discovered   map[string][]string
	discoverErr  error
	fetchErrs    map[string]error
	fetchedURLs  []string
	discoverHits int
}

func (f *stubFetcher) Discover(_ context.Context, listingURL string, _ []string) ([]string, error) {
	f.discoverHits++
	if f.discoverErr != nil {
		return nil, f.discoverErr
	}
	return f.discovered[listingURL], nil
}

func (f *stubFetcher) FetchDetail(_ context.Context, url string) (*models.PageContent, error) {
	f.fetchedURLs = append(f.fetchedURLs, url)
	if err, ok := f.fetchErrs[url]; ok {
		return nil, err
	}
	page, ok := f.pages[url]
	if !ok {
		return nil, errors.New("no such page")
	}
	return page, nil
}

type stubExtractor struct {
	events       map[string][]models.Event
	errs         map[string]error
	extractedURL []string
}

func (e *stubExtractor) Extract(_ context.Context, _, _, sourceURL, _ string, _ int) ([]models.Event, error) {
	e.extractedURL = append(e.extractedURL, sourceURL)
	if err, ok := e.errs[sourceURL]; ok {
		return nil, err
	}
	return e.events[sourceURL], nil
}

func testRunner(t *testing.T, fetcher PageFetcher, extractor *stubExtractor, artists []config.Artist, opts ...Option) (*Runner, *state.Tracker, *catalog.Store) {
	t.Helper()
	dir := t.TempDir()
	tracker := state.Load(filepath.Join(dir, "state.json"))
	store := catalog.Load(filepath.Join(dir, "events.json"))
	return New(fetcher, extractor, tracker, store, artists, opts...), tracker, store
}

func singleSource() []config.Artist {
	return []config.Artist{{
		Name: "X",
		Sources: []config.Source{{
			ID:  "x-official",
			URL: "https://x.example.com/news",
		}},
	}}
}

func futureDate(t *testing.T, now time.Time) time.Time {
	t.Helper()
	return now.AddDate(0, 1, 0)
}

func TestRunExtractsAndStoresEvents(t *testing.T) {
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	page := &models.PageContent{
		URL:         "https://x.example.com/news/live",
		Content:     "# X LIVE 2026",
		ContentHash: models.HashContent("# X LIVE 2026"),
	}
	fetcher := &stubFetcher{
		discovered: map[string][]string{"https://x.example.com/news": {page.URL}},
		pages:      map[string]*models.PageContent{page.URL: page},
	}
	extractor := &stubExtractor{
		events: map[string][]models.Event{page.URL: {{
			Artist:    "X",
			EventType: models.EventLive,
			Title:     "X LIVE 2026",
			Date:      futureDate(t, now),
		}}},
	}
	runner, tracker, store := testRunner(t, fetcher, extractor, singleSource(), WithClock(func() time.Time { return now }))

	result, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.EventsFound != 1 || result.Added != 1 {
		t.Errorf("found=%d added=%d, want 1/1", result.EventsFound, result.Added)
	}
	if result.PagesExtracted != 1 {
		t.Errorf("PagesExtracted = %d, want 1", result.PagesExtracted)
	}
	if store.Len() != 1 {
		t.Errorf("store has %d events, want 1", store.Len())
	}
	ps, ok := tracker.Lookup(page.URL)
	if !ok {
		t.Fatal("page not recorded in tracker")
	}
	if ps.ContentHash != page.ContentHash {
		t.Errorf("recorded hash = %q, want %q", ps.ContentHash, page.ContentHash)
	}
	if tracker.LastRun() == nil {
		t.Error("last run not stamped")
	}
}

func TestRunSkipsUnchangedPages(t *testing.T) {
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	content := "# X LIVE 2026"
	page := &models.PageContent{
		URL:         "https://x.example.com/news/live",
		Content:     content,
		ContentHash: models.HashContent(content),
	}
	fetcher := &stubFetcher{
		discovered: map[string][]string{"https://x.example.com/news": {page.URL}},
		pages:      map[string]*models.PageContent{page.URL: page},
	}
	ev := models.Event{Artist: "X", EventType: models.EventLive, Title: "X LIVE 2026", Date: futureDate(t, now)}
	extractor := &stubExtractor{events: map[string][]models.Event{page.URL: {ev}}}
	runner, tracker, store := testRunner(t, fetcher, extractor, singleSource(), WithClock(func() time.Time { return now }))

	if _, err := runner.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first, _ := tracker.Lookup(page.URL)

	later := now.Add(24 * time.Hour)
	runner.now = func() time.Time { return later }
	result, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if result.PagesSkipped != 1 || result.PagesExtracted != 0 {
		t.Errorf("skipped=%d extracted=%d, want 1/0", result.PagesSkipped, result.PagesExtracted)
	}
	if len(extractor.extractedURL) != 1 {
		t.Errorf("extractor called %d times, want 1", len(extractor.extractedURL))
	}
	if store.Len() != 1 {
		t.Errorf("store has %d events, want 1", store.Len())
	}
	second, _ := tracker.Lookup(page.URL)
	if !second.LastChecked.After(first.LastChecked) {
		t.Error("LastChecked not advanced on unchanged skip")
	}
}

func TestRunForceReextractsUnchangedPages(t *testing.T) {
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	content := "# X LIVE 2026"
	page := &models.PageContent{
		URL:         "https://x.example.com/news/live",
		Content:     content,
		ContentHash: models.HashContent(content),
	}
	fetcher := &stubFetcher{
		discovered: map[string][]string{"https://x.example.com/news": {page.URL}},
		pages:      map[string]*models.PageContent{page.URL: page},
	}
	ev := models.Event{Artist: "X", EventType: models.EventLive, Title: "X LIVE 2026", Date: futureDate(t, now)}
	extractor := &stubExtractor{events: map[string][]models.Event{page.URL: {ev}}}
	runner, _, _ := testRunner(t, fetcher, extractor, singleSource(),
		WithClock(func() time.Time { return now }), WithForce(true))

	for i := 0; i < 2; i++ {
		if _, err := runner.Run(context.Background()); err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
	}
	if len(extractor.extractedURL) != 2 {
		t.Errorf("extractor called %d times, want 2 with force", len(extractor.extractedURL))
	}
}

func TestRunRetriesFailedExtraction(t *testing.T) {
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	page := &models.PageContent{
		URL:         "https://x.example.com/news/live",
		Content:     "# X LIVE 2026",
		ContentHash: models.HashContent("# X LIVE 2026"),
	}
	fetcher := &stubFetcher{
		discovered: map[string][]string{"https://x.example.com/news": {page.URL}},
		pages:      map[string]*models.PageContent{page.URL: page},
	}
	extractor := &stubExtractor{errs: map[string]error{page.URL: errors.New("llm unavailable")}}
	runner, tracker, _ := testRunner(t, fetcher, extractor, singleSource(), WithClock(func() time.Time { return now }))

	result, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.PagesFailed != 1 {
		t.Errorf("PagesFailed = %d, want 1", result.PagesFailed)
	}
	if _, ok := tracker.Lookup(page.URL); ok {
		t.Error("failed page recorded in tracker; it should stay unrecorded for retry")
	}

	// Next run retries the same page even though the content is
	// unchanged.
	extractor.errs = nil
	extractor.events = map[string][]models.Event{page.URL: {{
		Artist: "X", EventType: models.EventLive, Title: "X LIVE 2026", Date: futureDate(t, now),
	}}}
	result, err = runner.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if result.PagesExtracted != 1 || result.Added != 1 {
		t.Errorf("extracted=%d added=%d, want 1/1", result.PagesExtracted, result.Added)
	}
}

func TestRunIsolatesSourceFailures(t *testing.T) {
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	page := &models.PageContent{
		URL:         "https://x.example.com/news/live",
		Content:     "# X LIVE 2026",
		ContentHash: models.HashContent("# X LIVE 2026"),
	}
	artists := []config.Artist{{
		Name: "X",
		Sources: []config.Source{
			{ID: "broken", URL: "https://broken.example.com"},
			{ID: "x-official", URL: "https://x.example.com/news"},
		},
	}}
	fetcher := &sourceAwareFetcher{
		good: &stubFetcher{
			discovered: map[string][]string{"https://x.example.com/news": {page.URL}},
			pages:      map[string]*models.PageContent{page.URL: page},
		},
	}
	extractor := &stubExtractor{events: map[string][]models.Event{page.URL: {{
		Artist: "X", EventType: models.EventLive, Title: "X LIVE 2026", Date: futureDate(t, now),
	}}}}
	runner, _, store := testRunner(t, fetcher, extractor, artists, WithClock(func() time.Time { return now }))

	result, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("Errors = %v, want one entry for the broken source", result.Errors)
	}
	if store.Len() != 1 {
		t.Errorf("store has %d events, want 1 from the healthy source", store.Len())
	}
}

// sourceAwareFetcher fails discovery for one listing URL and delegates
// the rest.
type sourceAwareFetcher struct {
	good *stubFetcher
}

func (f *sourceAwareFetcher) Discover(ctx context.Context, listingURL string, keywords []string) ([]string, error) {
	if listingURL == "https://broken.example.com" {
		return nil, errors.New("connection refused")
	}
	return f.good.Discover(ctx, listingURL, keywords)
}

func (f *sourceAwareFetcher) FetchDetail(ctx context.Context, url string) (*models.PageContent, error) {
	return f.good.FetchDetail(ctx, url)
}

func TestRunAgesCatalogWithoutNewEvents(t *testing.T) {
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	dir := t.TempDir()
	store := catalog.Load(filepath.Join(dir, "events.json"))
	past := models.Event{
		EventID:   "x-live-2026-06-01",
		Artist:    "X",
		EventType: models.EventLive,
		Title:     "X LIVE",
		Date:      time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	store.UpsertAll([]models.Event{past}, now.AddDate(0, -2, 0))

	tracker := state.Load(filepath.Join(dir, "state.json"))
	fetcher := &stubFetcher{discovered: map[string][]string{}}
	runner := New(fetcher, &stubExtractor{}, tracker, store, singleSource(),
		WithClock(func() time.Time { return now }))

	result, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Ended != 1 {
		t.Errorf("Ended = %d, want 1", result.Ended)
	}
	got, _ := store.Get(past.EventID)
	if !got.Ended {
		t.Error("past event not marked ended")
	}
}

func TestRunRespectsMaxDetailPages(t *testing.T) {
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	var urls []string
	pages := make(map[string]*models.PageContent)
	for _, suffix := range []string{"a", "b", "c"} {
		u := "https://x.example.com/news/" + suffix
		urls = append(urls, u)
		pages[u] = &models.PageContent{URL: u, Content: suffix, ContentHash: models.HashContent(suffix)}
	}
	artists := []config.Artist{{
		Name: "X",
		Sources: []config.Source{{
			ID:             "x-official",
			URL:            "https://x.example.com/news",
			MaxDetailPages: 2,
		}},
	}}
	fetcher := &stubFetcher{
		discovered: map[string][]string{"https://x.example.com/news": urls},
		pages:      pages,
	}
	runner, _, _ := testRunner(t, fetcher, &stubExtractor{}, artists, WithClock(func() time.Time { return now }))

	result, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.PagesChecked != 2 {
		t.Errorf("PagesChecked = %d, want 2", result.PagesChecked)
	}
}

func TestRunResolvesParentsAcrossPages(t *testing.T) {
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	concertURL := "https://x.example.com/news/live"
	phaseURL := "https://x.example.com/news/tickets"
	pages := map[string]*models.PageContent{
		concertURL: {URL: concertURL, Content: "live", ContentHash: models.HashContent("live")},
		phaseURL:   {URL: phaseURL, Content: "tickets", ContentHash: models.HashContent("tickets")},
	}
	date := futureDate(t, now)
	fetcher := &stubFetcher{
		discovered: map[string][]string{"https://x.example.com/news": {concertURL, phaseURL}},
		pages:      pages,
	}
	extractor := &stubExtractor{events: map[string][]models.Event{
		concertURL: {{Artist: "X", EventType: models.EventLive, Title: "X LIVE 2026", Date: date}},
		phaseURL: {{
			Artist:            "X",
			EventType:         models.EventLottery,
			Title:             "X LIVE 2026 チケット先行",
			ParentTitle:       "X LIVE 2026",
			Date:              now.AddDate(0, 0, 7),
			TicketRequirement: models.RequirementCD,
			TicketPriority:    models.PriorityFastest,
		}},
	}}
	runner, _, store := testRunner(t, fetcher, extractor, singleSource(), WithClock(func() time.Time { return now }))

	if _, err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	concertID := models.GenerateEventID("X LIVE 2026", date)
	phases := store.TicketPhases(concertID)
	if len(phases) != 1 {
		t.Fatalf("got %d ticket phases for %s, want 1", len(phases), concertID)
	}
	if phases[0].ParentEventID != concertID {
		t.Errorf("ParentEventID = %q, want %q", phases[0].ParentEventID, concertID)
	}
}
