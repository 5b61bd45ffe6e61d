// Package pipeline drives one synchronization run: discover detail
// pages per source, fetch and hash each page, extract events only when
// content changed, resolve parent links, and merge everything into the
// persisted catalog with lifecycle aging.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nsyc/nsyc-fetch/internal/catalog"
	"github.com/nsyc/nsyc-fetch/internal/config"
	"github.com/nsyc/nsyc-fetch/internal/elasticsearch"
	"github.com/nsyc/nsyc-fetch/internal/resolver"
	"github.com/nsyc/nsyc-fetch/internal/runlog"
	"github.com/nsyc/nsyc-fetch/internal/state"
	"github.com/nsyc/nsyc-fetch/pkg/models"
)

// defaultMaxDetailPages bounds discovery when a source does not set
// its own limit.
const defaultMaxDetailPages = 10

// PageFetcher is the network collaborator: listing-page discovery and
// detail-page fetching.
type PageFetcher interface {
	Discover(ctx context.Context, listingURL string, filterKeywords []string) ([]string, error)
	FetchDetail(ctx context.Context, url string) (*models.PageContent, error)
}

// EventExtractor turns page content into event candidates. An error
// return marks the page as retryable; an empty slice is a valid
// "nothing here" result.
type EventExtractor interface {
	Extract(ctx context.Context, content, artistName, sourceURL, sourceID string, pageIndex int) ([]models.Event, error)
}

// Result holds one run's outcome counters.
type Result struct {
	EventsFound    int
	Added          int
	Updated        int
	Ended          int
	PagesChecked   int
	PagesExtracted int
	PagesSkipped   int
	PagesFailed    int
	Duration       time.Duration
	Errors         []string
}

// Runner executes runs. All persisted structures (tracker, store) are
// single-writer: fetch results are merged sequentially, never from
// concurrent goroutines.
type Runner struct {
	fetcher   PageFetcher
	extractor EventExtractor
	tracker   *state.Tracker
	store     *catalog.Store
	esClient  *elasticsearch.Client // nil if indexing disabled
	log       *runlog.RunLog        // nil if run logging disabled
	artists   []config.Artist
	force     bool
	now       func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithForce makes the run re-extract every page regardless of hash.
func WithForce(force bool) Option {
	return func(r *Runner) { r.force = force }
}

// WithIndexer enables Elasticsearch indexing of the merged catalog.
func WithIndexer(client *elasticsearch.Client) Option {
	return func(r *Runner) { r.esClient = client }
}

// WithRunLog enables per-run artifact logging.
func WithRunLog(log *runlog.RunLog) Option {
	return func(r *Runner) { r.log = log }
}

// WithClock overrides the run clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// New creates a Runner over the given collaborators and state.
func New(fetcher PageFetcher, extractor EventExtractor, tracker *state.Tracker, store *catalog.Store, artists []config.Artist, opts ...Option) *Runner {
	r := &Runner{
		fetcher:   fetcher,
		extractor: extractor,
		tracker:   tracker,
		store:     store,
		artists:   artists,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one full run over all artists and sources. Per-page and
// per-source failures are recorded and skipped; the catalog and state
// are persisted at the end regardless, and aging always happens, even
// when zero new events were found.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	now := r.now()
	result := &Result{}

	var collected []models.Event
	for _, artist := range r.artists {
		slog.Info("processing artist", "artist", artist.Name, "sources", len(artist.Sources))
		for _, source := range artist.Sources {
			events, err := r.syncSource(ctx, artist.Name, source, now, result)
			if err != nil {
				slog.Error("source failed", "source", source.ID, "error", err)
				r.log.Error(source.ID, err, "source")
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", source.ID, err))
				continue
			}
			collected = append(collected, events...)
		}
	}

	result.EventsFound = len(collected)
	result.Added, result.Updated = r.store.UpsertAll(collected, now)
	result.Ended = r.store.Age(now)
	r.tracker.SetLastRun(now)

	if err := r.store.Save(); err != nil {
		return result, fmt.Errorf("failed to save catalog: %w", err)
	}
	if err := r.tracker.Save(); err != nil {
		return result, fmt.Errorf("failed to save state: %w", err)
	}

	if r.esClient != nil {
		if err := r.indexCatalog(ctx); err != nil {
			slog.Warn("failed to index catalog", "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("index: %v", err))
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

// syncSource runs the per-source state machine: merge known and
// discovered URLs, then fetch → compare → extract → record per URL,
// and resolve parents once over the whole source batch.
func (r *Runner) syncSource(ctx context.Context, artistName string, source config.Source, now time.Time, result *Result) ([]models.Event, error) {
	known := r.tracker.ActiveURLs(source.ID, now)

	discovered, err := r.fetcher.Discover(ctx, source.URL, source.FilterKeywords)
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}
	maxPages := source.MaxDetailPages
	if maxPages <= 0 {
		maxPages = defaultMaxDetailPages
	}
	if len(discovered) > maxPages {
		discovered = discovered[:maxPages]
	}

	urls := mergeURLs(known, discovered)
	slog.Debug("pages to check", "source", source.ID, "known", len(known), "discovered", len(discovered), "total", len(urls))
	if len(urls) == 0 {
		r.log.Skip(source.ID, "no pages to process")
		return nil, nil
	}

	var sourceEvents []models.Event
	for i, url := range urls {
		if err := ctx.Err(); err != nil {
			return sourceEvents, err
		}
		result.PagesChecked++

		page, err := r.fetcher.FetchDetail(ctx, url)
		if err != nil {
			slog.Warn("fetch failed", "url", url, "error", err)
			r.log.Error(source.ID, err, url)
			result.PagesFailed++
			continue
		}

		prior, seen := r.tracker.Lookup(url)
		changed := !seen || prior.ContentHash != page.ContentHash
		if !r.force && !changed {
			slog.Debug("page unchanged", "url", url)
			r.tracker.Touch(url, now)
			result.PagesSkipped++
			continue
		}

		events, err := r.extractor.Extract(ctx, page.Content, artistName, url, source.ID, i)
		if err != nil {
			// State deliberately untouched so the page is retried
			// next run.
			slog.Warn("extraction failed", "url", url, "error", err)
			r.log.Error(source.ID, err, url)
			result.PagesFailed++
			continue
		}

		result.PagesExtracted++
		if len(events) > 0 {
			r.log.Events(source.ID, events, i)
			sourceEvents = append(sourceEvents, events...)
		}
		r.tracker.Record(url, page.ContentHash, latestEventDate(events), source.ID, now)
	}

	// Resolve once over everything this source produced: a concert and
	// its ticket phases may live on different pages.
	sourceEvents = resolver.Resolve(sourceEvents)
	r.log.SourceDone()

	slog.Info("source done", "source", source.ID, "events", len(sourceEvents))
	return sourceEvents, nil
}

// indexCatalog pushes the merged catalog into Elasticsearch.
func (r *Runner) indexCatalog(ctx context.Context) error {
	if err := r.esClient.CreateIndex(ctx); err != nil {
		return err
	}
	if err := r.esClient.IndexEvents(ctx, r.store.Events()); err != nil {
		return err
	}
	return r.esClient.Refresh(ctx)
}

// mergeURLs unions known and discovered URLs, deduplicated, known
// first so retries come before new pages.
func mergeURLs(known, discovered []string) []string {
	seen := make(map[string]bool, len(known)+len(discovered))
	out := make([]string, 0, len(known)+len(discovered))
	for _, u := range append(append([]string{}, known...), discovered...) {
		if !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	return out
}

// latestEventDate returns the latest event date in a page's batch,
// used as that page's monitoring-expiry signal.
func latestEventDate(events []models.Event) *time.Time {
	var latest *time.Time
	for i := range events {
		d := events[i].Date
		if d.IsZero() {
			continue
		}
		if latest == nil || d.After(*latest) {
			latest = &d
		}
	}
	return latest
}
