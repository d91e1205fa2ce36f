package grading

import "strings"

// FeedbackMode selects which feedback variant an assignment's submissions receive.
type FeedbackMode string

const (
	// ModeNone returns only the score, tags and code-quality notes.
	ModeNone FeedbackMode = "NONE"
	// ModeHint adds a short non-spoiling hint.
	ModeHint FeedbackMode = "HINT"
	// ModeConcept adds a brief theory explanation.
	ModeConcept FeedbackMode = "CONCEPT"
	// ModeAnswer adds the logic error, corrected code and a detailed explanation.
	ModeAnswer FeedbackMode = "ANSWER"
)

// Valid reports whether m is one of the supported modes.
func (m FeedbackMode) Valid() bool {
	switch m {
	case ModeNone, ModeHint, ModeConcept, ModeAnswer:
		return true
	default:
		return false
	}
}

// ParseMode normalises raw into a FeedbackMode. Unknown values resolve to
// ModeHint with ok=false so callers can decide whether to reject them.
func ParseMode(raw string) (FeedbackMode, bool) {
	mode := FeedbackMode(strings.ToUpper(strings.TrimSpace(raw)))
	if mode.Valid() {
		return mode, true
	}
	return ModeHint, false
}
