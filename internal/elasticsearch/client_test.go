package elasticsearch

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/nsyc/nsyc-fetch/pkg/models"
)

func skipIfNoES(t *testing.T) {
	if os.Getenv("SKIP_ES_TESTS") == "1" {
		t.Skip("Skipping ES tests (SKIP_ES_TESTS=1)")
	}

	client, err := New(Config{
		Addresses: []string{"http://localhost:9200"},
		Index:     "test-skip-check",
	})
	if err != nil {
		t.Skipf("Skipping ES tests: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if !client.Ping(ctx) {
		t.Skip("Skipping ES tests: Elasticsearch not available")
	}
}

func TestClient_IndexAndSearch(t *testing.T) {
	skipIfNoES(t)

	client, err := New(Config{
		Addresses: []string{"http://localhost:9200"},
		Index:     "nsyc-fetch-test-events",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	client.DeleteIndex(ctx)

	if err := client.CreateIndex(ctx); err != nil {
		t.Fatalf("CreateIndex() error = %v", err)
	}

	events := []models.Event{
		{
			EventID:     "x-live-2026-07-18",
			Artist:      "X",
			EventType:   models.EventLive,
			Title:       "X LIVE",
			Date:        time.Date(2026, 7, 18, 0, 0, 0, 0, time.UTC),
			Venue:       "ぴあアリーナMM",
			SourceURL:   "https://example.com/events/x",
			ExtractedAt: time.Now().UTC(),
		},
		{
			EventID:           "x-live-2026-07-18-lottery-cd-fastest",
			ParentEventID:     "x-live-2026-07-18",
			Artist:            "X",
			EventType:         models.EventLottery,
			Title:             "X LIVE 最速先行",
			Date:              time.Date(2025, 12, 6, 0, 0, 0, 0, time.UTC),
			TicketRequirement: models.RequirementCD,
			TicketPriority:    models.PriorityFastest,
			SourceURL:         "https://example.com/news/lottery",
			ExtractedAt:       time.Now().UTC(),
		},
	}
	if err := client.IndexEvents(ctx, events); err != nil {
		t.Fatalf("IndexEvents() error = %v", err)
	}
	client.Refresh(ctx)

	results, err := client.Search(ctx, "LIVE", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) == 0 {
		t.Fatal("Search('LIVE') should return results")
	}

	// Re-indexing the same events upserts by ID, no duplicates.
	if err := client.IndexEvents(ctx, events); err != nil {
		t.Fatalf("re-IndexEvents() error = %v", err)
	}
	client.Refresh(ctx)

	results, err = client.Search(ctx, "LIVE", 10)
	if err != nil {
		t.Fatalf("Search() after reindex error = %v", err)
	}
	if len(results) > 2 {
		t.Errorf("re-indexing should not duplicate: got %d results", len(results))
	}

	client.DeleteIndex(ctx)
}
