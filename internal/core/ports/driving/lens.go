package driving

import (
	"context"

	"github.com/custodia-labs/movement-lens/internal/core/domain"
)

// LensService is one interactive search-to-analysis session.
// Searches replace the result set; accepted results drive an automatic
// synthesis that streams into the transcript.
type LensService interface {
	// Submit runs a search. Results of superseded searches are dropped and
	// reported with Stale set. Failures degrade to an empty result set.
	Submit(ctx context.Context, query string) domain.SearchOutcome

	// Ask appends a follow-up question and streams its answer.
	// Returns the handle of the assistant message receiving the answer.
	Ask(question string) (domain.MessageHandle, error)

	// Await blocks until the message addressed by h reaches a terminal state.
	// Returns domain.ErrNotFound if the transcript was reset first.
	Await(ctx context.Context, h domain.MessageHandle) (domain.Message, error)

	// AwaitSynthesis blocks until the first assistant message of the current
	// transcript reaches a terminal state.
	AwaitSynthesis(ctx context.Context) (domain.Message, error)

	// Transcript returns a copy of the current transcript.
	Transcript() []domain.Message

	// Results returns the current result set.
	Results() domain.ResultSet

	// Query returns the query of the current result set.
	Query() string

	// Searching reports whether the most recent search is still in flight.
	Searching() bool

	// Subscribe returns a channel that receives a value after transcript
	// changes. Notifications coalesce. Call the returned func to unsubscribe.
	Subscribe() (<-chan struct{}, func())

	// Close cancels pending work and waits for streams to finish.
	Close() error
}
