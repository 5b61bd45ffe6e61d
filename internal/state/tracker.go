// Package state tracks per-page fetch state between runs: a content
// hash for change detection and the latest event date found on the
// page, which doubles as a monitoring-expiry signal.
package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// PageState is the persisted record for one monitored detail page.
type PageState struct {
	URL         string     `json:"url"`
	ContentHash string     `json:"content_hash"`
	LastChecked time.Time  `json:"last_checked"`
	EventDate   *time.Time `json:"event_date,omitempty"`
	SourceID    string     `json:"source_id"`
}

// FetchState is the process-wide persisted state.
type FetchState struct {
	LastRun     *time.Time           `json:"last_run,omitempty"`
	DetailPages map[string]PageState `json:"detail_pages"`
}

// Tracker owns the fetch state for one run. Single-writer: the
// orchestrator loads it at run start, mutates it sequentially, and
// saves it once at run end.
type Tracker struct {
	path  string
	state FetchState
}

// Load reads the state file at path. Missing or corrupt state yields
// an empty tracker, never an error.
func Load(path string) *Tracker {
	t := &Tracker{
		path:  path,
		state: FetchState{DetailPages: make(map[string]PageState)},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("state unreadable, starting empty", "path", path, "error", err)
		}
		return t
	}

	if err := json.Unmarshal(data, &t.state); err != nil {
		slog.Warn("state corrupt, starting empty", "path", path, "error", err)
		t.state = FetchState{DetailPages: make(map[string]PageState)}
		return t
	}
	if t.state.DetailPages == nil {
		t.state.DetailPages = make(map[string]PageState)
	}
	return t
}

// ActiveURLs returns the known URLs for a source that are still worth
// re-checking: pages whose recorded event date is unset or ahead of
// now. Pages whose event date has passed drop out of monitoring; the
// record itself is retained.
func (t *Tracker) ActiveURLs(sourceID string, now time.Time) []string {
	var urls []string
	for _, ps := range t.state.DetailPages {
		if ps.SourceID != sourceID {
			continue
		}
		if ps.EventDate == nil || ps.EventDate.After(now) {
			urls = append(urls, ps.URL)
		}
	}
	return urls
}

// Lookup returns the stored state for a URL.
func (t *Tracker) Lookup(url string) (PageState, bool) {
	ps, ok := t.state.DetailPages[url]
	return ps, ok
}

// Record stores fresh state for a page. Callers must only invoke it
// after a successful fetch and extraction; a failed page keeps its
// prior state so the next run retries it.
func (t *Tracker) Record(url, contentHash string, eventDate *time.Time, sourceID string, now time.Time) {
	t.state.DetailPages[url] = PageState{
		URL:         url,
		ContentHash: contentHash,
		LastChecked: now,
		EventDate:   eventDate,
		SourceID:    sourceID,
	}
}

// Touch advances a page's last-checked time without disturbing its
// hash or event date. Used when an unchanged page is skipped.
func (t *Tracker) Touch(url string, now time.Time) {
	if ps, ok := t.state.DetailPages[url]; ok {
		ps.LastChecked = now
		t.state.DetailPages[url] = ps
	}
}

// Clear drops all detail-page state, forcing full re-fetch and
// re-extraction on the next pass.
func (t *Tracker) Clear() {
	t.state.DetailPages = make(map[string]PageState)
}

// SetLastRun records the run completion time.
func (t *Tracker) SetLastRun(now time.Time) {
	t.state.LastRun = &now
}

// LastRun returns the previous run's completion time.
func (t *Tracker) LastRun() *time.Time {
	return t.state.LastRun
}

// PageCount returns the number of tracked pages.
func (t *Tracker) PageCount() int {
	return len(t.state.DetailPages)
}

// Save writes the state file atomically (temp file + rename).
func (t *Tracker) Save() error {
	data, err := json.MarshalIndent(t.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(t.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp state: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close state: %w", err)
	}
	if err := os.Rename(tmp.Name(), t.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace state: %w", err)
	}
	return nil
}
