// Package catalog persists the merged event catalog: a JSON array of
// events keyed by stable event ID, rewritten wholesale after each run.
package catalog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/nsyc/nsyc-fetch/pkg/models"
)

// Store holds the catalog in memory between Load and Save. It is a
// single-writer structure: one run mutates it sequentially during the
// merge phase, never concurrently.
type Store struct {
	path   string
	events map[string]models.Event
}

// Load reads the catalog file at path. A missing or unreadable file
// yields an empty store, never an error: corrupt state is treated as
// no prior state.
func Load(path string) *Store {
	s := &Store{
		path:   path,
		events: make(map[string]models.Event),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("catalog unreadable, starting empty", "path", path, "error", err)
		}
		return s
	}

	var events []models.Event
	if err := json.Unmarshal(data, &events); err != nil {
		slog.Warn("catalog corrupt, starting empty", "path", path, "error", err)
		return s
	}

	for _, ev := range events {
		if ev.EventID == "" {
			ev.EventID = s.syntheticID()
		}
		s.events[ev.EventID] = ev
	}
	return s
}

// UpsertAll merges candidate events into the store. Existing events
// are overwritten except for ExtractedAt, which is carried over from
// the stored record. New events get ExtractedAt = now. Candidates
// without an event ID are kept under a synthetic key rather than
// dropped.
func (s *Store) UpsertAll(candidates []models.Event, now time.Time) (added, updated int) {
	for _, c := range candidates {
		if c.EventID == "" {
			c.EventID = s.syntheticID()
			slog.Warn("event without ID, using synthetic key", "key", c.EventID, "title", c.Title)
		}

		if existing, ok := s.events[c.EventID]; ok {
			c.ExtractedAt = existing.ExtractedAt
			s.events[c.EventID] = c
			updated++
		} else {
			if c.ExtractedAt.IsZero() {
				c.ExtractedAt = now
			}
			s.events[c.EventID] = c
			added++
		}
	}
	return added, updated
}

// Age marks events whose date has passed as ended. The flag is
// monotonic: an ended event is never resurrected. Returns the number
// of events newly marked.
func (s *Store) Age(now time.Time) int {
	marked := 0
	for id, ev := range s.events {
		if ev.Ended {
			continue
		}
		if ev.Date.Before(now) {
			ev.Ended = true
			s.events[id] = ev
			marked++
		}
	}
	return marked
}

// Get returns the event with the given ID.
func (s *Store) Get(id string) (models.Event, bool) {
	ev, ok := s.events[id]
	return ev, ok
}

// Len returns the number of stored events.
func (s *Store) Len() int {
	return len(s.events)
}

// Events returns all events in the persisted order: active events
// first sorted by date, ended events trailing.
func (s *Store) Events() []models.Event {
	out := make([]models.Event, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev)
	}
	sortEvents(out)
	return out
}

// Upcoming returns active (not ended) events sorted by date.
func (s *Store) Upcoming() []models.Event {
	var out []models.Event
	for _, ev := range s.events {
		if !ev.Ended {
			out = append(out, ev)
		}
	}
	sortEvents(out)
	return out
}

// TicketPhases returns all lottery/sale children of a concert, sorted
// by date.
func (s *Store) TicketPhases(concertID string) []models.Event {
	var phases []models.Event
	for _, ev := range s.events {
		if ev.ParentEventID == concertID {
			phases = append(phases, ev)
		}
	}
	sort.Slice(phases, func(i, j int) bool {
		return phases[i].Date.Before(phases[j].Date)
	})
	return phases
}

// NextAction returns the concert's ticket phase with the earliest
// upcoming action deadline that has not ended, or false if none.
func (s *Store) NextAction(concertID string, now time.Time) (models.Event, bool) {
	var next models.Event
	found := false
	for _, ev := range s.events {
		if ev.ParentEventID != concertID || ev.Ended {
			continue
		}
		if ev.ActionDeadline == nil || !ev.ActionDeadline.After(now) {
			continue
		}
		if !found || ev.ActionDeadline.Before(*next.ActionDeadline) {
			next = ev
			found = true
		}
	}
	return next, found
}

// Save writes the catalog to its file atomically (temp file + rename),
// sorted per the ordering contract, indented for human diffing.
func (s *Store) Save() error {
	events := s.Events()

	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create catalog dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".catalog-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp catalog: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close catalog: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace catalog: %w", err)
	}
	return nil
}

func (s *Store) syntheticID() string {
	return fmt.Sprintf("_no_id_%d", len(s.events))
}

func sortEvents(events []models.Event) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].Ended != events[j].Ended {
			return !events[i].Ended
		}
		if !events[i].Date.Equal(events[j].Date) {
			return events[i].Date.Before(events[j].Date)
		}
		return events[i].EventID < events[j].EventID
	})
}
