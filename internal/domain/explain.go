package domain

import "strings"

// ExplainRequest carries everything an answer synthesizer needs.
type ExplainRequest struct {
	Question string
	Context  string
	Level    Level
	Style    Style
}

// Texts used in place of a Wikipedia summary. They are shown to the user and
// handed to synthesis like any other context.
const (
	FallbackNoSummary   = "No summary available."
	FallbackUnavailable = "Unable to fetch Wikipedia summary."
)

// IsFallbackContext reports whether context carries no real background text.
func IsFallbackContext(context string) bool {
	switch strings.TrimSpace(context) {
	case "", FallbackNoSummary, FallbackUnavailable:
		return true
	}
	return false
}
