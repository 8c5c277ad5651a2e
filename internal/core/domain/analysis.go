package domain

import (
	"fmt"
	"strings"
)

// Fixed texts shown in the transcript.
const (
	// GreetingText is shown once when the session opens on the default query.
	GreetingText = "Hello! Ready to analyze online social movements. Enter a query to begin historical synthesis."

	// FailureText replaces an assistant message that failed before receiving any text.
	FailureText = "Error connecting to Analysis Engine."

	// interruptedMarker is appended to partial content when a stream breaks.
	interruptedMarker = "\n\n[Analysis interrupted: %s]"

	// summaryPrompt asks the analysis service for an initial synthesis.
	summaryPrompt = `Summarize the key themes and findings from the searched movements related to "%s".`
)

// DefaultContextDescriptionRunes bounds the description excerpt of a context line.
const DefaultContextDescriptionRunes = 100

// AnalysisRequest is the payload sent to the streaming analysis endpoint.
type AnalysisRequest struct {
	// Query is the question or synthesis instruction.
	Query string `json:"query"`

	// ContextMovements holds one bounded summary line per visible record.
	ContextMovements []string `json:"context_movements"`
}

// NewSummaryRequest builds the automatic synthesis request for a search.
func NewSummaryRequest(query string, results ResultSet, descriptionRunes int) AnalysisRequest {
	return AnalysisRequest{
		Query:            fmt.Sprintf(summaryPrompt, query),
		ContextMovements: ContextLines(results, descriptionRunes),
	}
}

// NewFollowUpRequest builds a request for a user question about the results.
func NewFollowUpRequest(question string, results ResultSet, descriptionRunes int) AnalysisRequest {
	return AnalysisRequest{
		Query:            question,
		ContextMovements: ContextLines(results, descriptionRunes),
	}
}

// ContextLines summarises each record as "ID <id>: <name> (<year>) - <excerpt>...".
func ContextLines(results ResultSet, descriptionRunes int) []string {
	if descriptionRunes <= 0 {
		descriptionRunes = DefaultContextDescriptionRunes
	}
	lines := make([]string, len(results))
	for i := range results {
		m := &results[i]
		lines[i] = fmt.Sprintf("ID %s: %s (%s) - %s...",
			m.ID, m.Name, m.Year, truncateRunes(m.Description, descriptionRunes))
	}
	return lines
}

// InterruptedMarker renders the inline marker appended to partial content.
func InterruptedMarker(reason string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "stream failed"
	}
	return fmt.Sprintf(interruptedMarker, reason)
}

// truncateRunes returns at most n runes of s.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
