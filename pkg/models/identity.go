package models

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldMarks decomposes to NFKD and drops combining marks, so accented
// characters fold to their base letters before slugging.
var foldMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// GenerateEventID derives the stable catalog identity for a standalone
// event from its title and date. The same title and date always
// produce the same ID, which is what makes re-extraction idempotent.
//
// Known limitation: two different events sharing a normalized title
// and calendar date collide.
func GenerateEventID(title string, date time.Time) string {
	return normalizeTitle(title) + "-" + date.Format("2006-01-02")
}

// GenerateTicketPhaseID derives the identity for a lottery/sale event.
// Title and date should be the parent concert's when the parent is
// known, so all phases of one concert cluster under its identity.
// Missing requirement/priority fall back to the "other" category so
// the ID never fails to generate.
func GenerateTicketPhaseID(title string, date time.Time, eventType EventType, requirement TicketRequirement, priority TicketPriority) string {
	if requirement == "" {
		requirement = RequirementOther
	}
	if priority == "" {
		priority = PriorityOther
	}
	return GenerateEventID(title, date) +
		"-" + string(eventType) +
		"-" + string(requirement) +
		"-" + string(priority)
}

// normalizeTitle lowercases the title, folds diacritics, drops
// punctuation and bracket characters, and collapses whitespace runs
// into single hyphens.
func normalizeTitle(title string) string {
	folded, _, err := transform.String(foldMarks, title)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	pendingSep := false
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingSep = false
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '/',
			unicode.In(r, unicode.Ps, unicode.Pe, unicode.Pi, unicode.Pf):
			// Whitespace and brackets separate tokens.
			pendingSep = true
		default:
			// Remaining punctuation is dropped without separating, so
			// "MyGO!!!!!" stays a single token.
		}
	}
	return b.String()
}
