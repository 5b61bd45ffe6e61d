// Package resolver assigns stable identities to extracted events and
// links ticket phases to their parent concerts.
//
// Parent matching is a best-effort join on exact title equality. A
// phase whose concert is absent from the batch keeps its own title and
// date as identity base and stands alone; that is degraded behavior,
// not a failure.
package resolver

import (
	"log/slog"

	"github.com/nsyc/nsyc-fetch/pkg/models"
)

// Resolve populates EventID and ParentEventID for a batch of events
// extracted from one source. The batch may span several pages, so a
// concert and its lottery phases resolve against each other even when
// extracted separately.
//
// Resolve is idempotent: re-running it over an already-resolved batch
// changes nothing.
func Resolve(events []models.Event) []models.Event {
	// Concerts indexed by exact title. First wins on duplicate titles.
	concertsByTitle := make(map[string]models.Event)

	for i := range events {
		if events[i].EventType != models.EventLive {
			continue
		}
		events[i].EventID = models.GenerateEventID(events[i].Title, events[i].Date)
		if _, ok := concertsByTitle[events[i].Title]; !ok {
			concertsByTitle[events[i].Title] = events[i]
		}
	}

	for i := range events {
		ev := &events[i]
		if !ev.EventType.IsTicketPhase() {
			continue
		}

		// Identity keys off the parent concert when one is found, so
		// phases of one concert cluster together even when the LLM
		// renders the phase title with a suffix.
		baseTitle, baseDate := ev.Title, ev.Date
		if parent, ok := concertsByTitle[ev.ParentTitle]; ok && ev.ParentTitle != "" {
			baseTitle, baseDate = parent.Title, parent.Date
			ev.ParentEventID = parent.EventID
		} else if ev.ParentEventID != "" && ev.EventID != "" {
			// Resolved in an earlier pass; the parent just is not in
			// this batch. Keep the existing pair.
			continue
		}

		if ev.TicketRequirement == models.RequirementOther {
			slog.Warn("unknown ticket requirement", "title", ev.Title)
		}
		if ev.TicketPriority == models.PriorityOther {
			slog.Warn("unknown ticket priority", "title", ev.Title)
		}

		ev.EventID = models.GenerateTicketPhaseID(baseTitle, baseDate, ev.EventType, ev.TicketRequirement, ev.TicketPriority)
	}

	// Remaining events (release, broadcast, ...) key off their own
	// title and date.
	for i := range events {
		if events[i].EventID == "" {
			events[i].EventID = models.GenerateEventID(events[i].Title, events[i].Date)
		}
	}

	return events
}
