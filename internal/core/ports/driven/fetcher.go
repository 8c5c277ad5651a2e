package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/movement-lens/internal/core/domain"
)

// ResultFetcher runs a search against the analysis service.
type ResultFetcher interface {
	// Search returns the ordered records matching query. The empty query is
	// valid and yields the unfiltered top results.
	// Errors wrap domain.ErrNetworkFailure or domain.ErrMalformedResponse.
	Search(ctx context.Context, query string) ([]domain.Movement, error)
}

// AnalysisTransport opens the streaming synthesis endpoint.
type AnalysisTransport interface {
	// OpenStream sends req and returns the raw response body.
	// A nil body with a nil error means the response carried nothing to read.
	// Non-OK responses return an error wrapping domain.ErrNetworkFailure.
	// Canceling ctx aborts the request and unblocks pending reads.
	OpenStream(ctx context.Context, req domain.AnalysisRequest) (io.ReadCloser, error)
}
