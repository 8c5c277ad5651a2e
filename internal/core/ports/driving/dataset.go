package driving

import (
	"context"
	"io"

	"github.com/custodia-labs/movement-lens/internal/core/domain"
)

// DatasetService serves the movement dataset behind the analysis service.
type DatasetService interface {
	// Search returns up to the configured limit of movements for query.
	// The empty query returns the most tweeted movements.
	Search(ctx context.Context, query string) ([]domain.Movement, error)

	// Get retrieves one movement. Spreadsheet-style IDs ("12.0") are accepted.
	Get(ctx context.Context, id string) (*domain.Movement, error)

	// Import reads a JSON array of movements and stores them.
	// Returns the number of movements imported.
	Import(ctx context.Context, r io.Reader) (int, error)

	// Count returns the number of stored movements.
	Count(ctx context.Context) (int, error)

	// FullContext renders the whole dataset as a pipe-delimited table for LLM use.
	FullContext(ctx context.Context) (string, error)
}

// SynthesisService produces the AI analysis of a set of movements.
type SynthesisService interface {
	// Stream answers req, calling emit with each text delta in order.
	// Returns domain.ErrLLMUnavailable when no LLM is configured.
	Stream(ctx context.Context, req domain.AnalysisRequest, emit func(delta string) error) error

	// Answer returns the complete answer to req.
	Answer(ctx context.Context, req domain.AnalysisRequest) (string, error)

	// Available reports whether an LLM is configured.
	Available() bool
}
