// Package extractor turns detail-page text into event candidates via
// an LLM call. The model output is untrusted: enum fields are coerced
// with an "other" fallback and broken records are skipped rather than
// failing the page.
package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nsyc/nsyc-fetch/internal/processor"
	"github.com/nsyc/nsyc-fetch/internal/resolver"
	"github.com/nsyc/nsyc-fetch/internal/runlog"
	"github.com/nsyc/nsyc-fetch/pkg/models"
)

// maxContentLength bounds how much page text goes into one prompt.
const maxContentLength = 12000

// maxResponseTokens bounds the model's reply.
const maxResponseTokens = 2000

// Extractor extracts events from page content.
type Extractor struct {
	client *Client
	log    *runlog.RunLog
}

// New creates an Extractor. log may be nil.
func New(client *Client, log *runlog.RunLog) *Extractor {
	return &Extractor{client: client, log: log}
}

// eventCandidate is the raw shape of one event in the model's JSON
// reply. Every field is a loosely-typed string so a sloppy reply still
// parses; validation happens in toEvent.
type eventCandidate struct {
	EventType               string `json:"event_type"`
	Title                   string `json:"title"`
	Date                    string `json:"date"`
	EndDate                 string `json:"end_date"`
	Venue                   string `json:"venue"`
	Location                string `json:"location"`
	ActionRequired          bool   `json:"action_required"`
	ActionDeadline          string `json:"action_deadline"`
	ActionDescription       string `json:"action_description"`
	EventURL                string `json:"event_url"`
	TicketURL               string `json:"ticket_url"`
	ParentTitle             string `json:"parent_title"`
	TicketRequirement       string `json:"ticket_requirement"`
	TicketPriority          string `json:"ticket_priority"`
	TicketRequirementDetail string `json:"ticket_requirement_detail"`
}

type eventList struct {
	Events []eventCandidate `json:"events"`
}

// Extract runs one extraction call over a page's content and returns
// resolved events. An error means the page should be retried next run;
// an empty slice means the page genuinely had no events.
func (e *Extractor) Extract(ctx context.Context, content, artistName, sourceURL, sourceID string, pageIndex int) ([]models.Event, error) {
	content = processor.Truncate(content, maxContentLength)
	prompt := fmt.Sprintf(extractionPrompt, sourceURL, artistName, content)

	e.log.LLMRequest(sourceID, artistName, e.client.Model(), prompt, pageIndex)

	response, err := e.client.Complete(ctx, systemPrompt, prompt, maxResponseTokens)
	if err != nil {
		e.log.LLMResponse(sourceID, "", pageIndex, err)
		return nil, fmt.Errorf("extraction call failed: %w", err)
	}

	events, err := parseResponse(response, artistName, sourceURL)
	e.log.LLMResponse(sourceID, response, pageIndex, err)
	if err != nil {
		return nil, err
	}

	return resolver.Resolve(events), nil
}

// parseResponse decodes the model's JSON reply into events.
func parseResponse(response, artistName, sourceURL string) ([]models.Event, error) {
	response = stripCodeFences(response)

	var list eventList
	if err := json.Unmarshal([]byte(response), &list); err != nil {
		return nil, fmt.Errorf("failed to parse extraction response: %w", err)
	}

	events := make([]models.Event, 0, len(list.Events))
	for _, c := range list.Events {
		ev, err := c.toEvent(artistName, sourceURL)
		if err != nil {
			slog.Warn("skipping unusable event candidate", "title", c.Title, "error", err)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// toEvent validates a candidate and coerces its enum fields. Title and
// date are the only hard requirements.
func (c eventCandidate) toEvent(artistName, sourceURL string) (models.Event, error) {
	if c.Title == "" {
		return models.Event{}, fmt.Errorf("missing title")
	}
	date, ok := parseDate(c.Date)
	if !ok {
		return models.Event{}, fmt.Errorf("unparseable date %q", c.Date)
	}

	ev := models.Event{
		Artist:                  artistName,
		EventType:               models.ParseEventType(c.EventType),
		Title:                   c.Title,
		Date:                    date,
		Venue:                   c.Venue,
		Location:                c.Location,
		ActionRequired:          c.ActionRequired,
		ActionDescription:       c.ActionDescription,
		EventURL:                c.EventURL,
		TicketURL:               c.TicketURL,
		ParentTitle:             c.ParentTitle,
		TicketRequirement:       models.ParseTicketRequirement(c.TicketRequirement),
		TicketPriority:          models.ParseTicketPriority(c.TicketPriority),
		TicketRequirementDetail: c.TicketRequirementDetail,
		SourceURL:               sourceURL,
	}
	if end, ok := parseDate(c.EndDate); ok {
		ev.EndDate = &end
	}
	if deadline, ok := parseDate(c.ActionDeadline); ok {
		ev.ActionDeadline = &deadline
	}
	return ev, nil
}

// dateFormats are the date renderings the model is known to produce.
var dateFormats = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006/01/02",
}

func parseDate(s string) (time.Time, bool) {
	if s == "" || s == "null" {
		return time.Time{}, false
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// stripCodeFences removes markdown code fences the model may wrap its
// JSON in despite instructions.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(line, "```") {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
