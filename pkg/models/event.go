package models

import "time"

// EventType classifies what kind of event a record describes.
type EventType string

const (
	EventLive      EventType = "live"      // Concert, live performance
	EventRelease   EventType = "release"   // CD, album, single release
	EventLottery   EventType = "lottery"   // Ticket lottery period
	EventSale      EventType = "sale"      // Ticket general sale
	EventBroadcast EventType = "broadcast" // TV, radio
	EventStreaming EventType = "streaming" // Online streaming of a live
	EventScreening EventType = "screening" // Movie theater screening
	EventOther     EventType = "other"
)

// ParseEventType maps a raw string to an EventType. Unknown values map
// to EventOther rather than failing; the LLM output is untrusted.
func ParseEventType(s string) EventType {
	switch EventType(s) {
	case EventLive, EventRelease, EventLottery, EventSale,
		EventBroadcast, EventStreaming, EventScreening, EventOther:
		return EventType(s)
	}
	return EventOther
}

// IsTicketPhase reports whether the type represents a child ticket
// phase (lottery or sale) of a parent concert.
func (t EventType) IsTicketPhase() bool {
	return t == EventLottery || t == EventSale
}

// TicketRequirement classifies what a ticket phase requires to enter.
type TicketRequirement string

const (
	RequirementCD        TicketRequirement = "cd"        // Serial code from a CD/Blu-ray purchase
	RequirementFanclub   TicketRequirement = "fc"        // Fan club membership
	RequirementPlayguide TicketRequirement = "playguide" // Ticket vendor presale
	RequirementNone      TicketRequirement = "none"      // General sale, no prerequisite
	RequirementOther     TicketRequirement = "other"
)

// ParseTicketRequirement maps a raw string to a TicketRequirement.
// Empty stays empty (non-ticket events); unknown maps to RequirementOther.
func ParseTicketRequirement(s string) TicketRequirement {
	if s == "" {
		return ""
	}
	switch TicketRequirement(s) {
	case RequirementCD, RequirementFanclub, RequirementPlayguide, RequirementNone, RequirementOther:
		return TicketRequirement(s)
	}
	return RequirementOther
}

// TicketPriority classifies which round of the sale sequence a ticket
// phase represents.
type TicketPriority string

const (
	PriorityFastest   TicketPriority = "fastest"   // First/fastest presale round
	PrioritySecondary TicketPriority = "secondary" // Second round
	PriorityTertiary  TicketPriority = "tertiary"  // Third round
	PriorityGeneral   TicketPriority = "general"   // General sale, final round
	PriorityOther     TicketPriority = "other"
)

// ParseTicketPriority maps a raw string to a TicketPriority. Empty
// stays empty; unknown maps to PriorityOther.
func ParseTicketPriority(s string) TicketPriority {
	if s == "" {
		return ""
	}
	switch TicketPriority(s) {
	case PriorityFastest, PrioritySecondary, PriorityTertiary, PriorityGeneral, PriorityOther:
		return TicketPriority(s)
	}
	return PriorityOther
}

// Event is a time-bound event the user should know about: a concert, a
// release, or a ticket phase (lottery/sale) belonging to a concert.
// Ticket phases reference their concert through ParentEventID, forming
// a two-level tree.
type Event struct {
	EventID       string    `json:"event_id"`
	ParentEventID string    `json:"parent_event_id,omitempty"`
	Artist        string    `json:"artist"`
	EventType     EventType `json:"event_type"`
	Title         string    `json:"title"`

	// Date is the event date, or for ticket phases the start of the
	// application window. EndDate covers multi-day events and windows.
	Date    time.Time  `json:"date"`
	EndDate *time.Time `json:"end_date,omitempty"`

	Venue    string `json:"venue,omitempty"`
	Location string `json:"location,omitempty"`

	ActionRequired    bool       `json:"action_required"`
	ActionDeadline    *time.Time `json:"action_deadline,omitempty"`
	ActionDescription string     `json:"action_description,omitempty"`

	EventURL  string `json:"event_url,omitempty"`
	TicketURL string `json:"ticket_url,omitempty"`

	// ParentTitle is the LLM's rendering of the parent concert title
	// for ticket phases; consumed by the resolver.
	ParentTitle string `json:"parent_title,omitempty"`

	TicketRequirement       TicketRequirement `json:"ticket_requirement,omitempty"`
	TicketPriority          TicketPriority    `json:"ticket_priority,omitempty"`
	TicketRequirementDetail string            `json:"ticket_requirement_detail,omitempty"`

	SourceURL string `json:"source_url"`

	// ExtractedAt is set on first capture and preserved across
	// re-extraction.
	ExtractedAt time.Time `json:"extracted_at"`

	// Ended is a lifecycle flag, never part of identity.
	Ended bool `json:"ended,omitempty"`

	RawText string `json:"raw_text,omitempty"`
}
