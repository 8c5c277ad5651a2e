package domain

import "errors"

// Domain errors represent business logic failures.
// Adapters wrap infrastructure errors with these so callers can use errors.Is.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// The analysis endpoint is disabled without it.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the configured embedding service cannot be used.
	// Search falls back to keyword matching without it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// Transport Errors.

	// ErrNetworkFailure indicates the request was rejected or returned a non-OK status.
	ErrNetworkFailure = errors.New("network failure")

	// ErrMalformedResponse indicates the search payload was not valid JSON.
	ErrMalformedResponse = errors.New("malformed response")

	// Stream Errors.

	// ErrNoStreamBody indicates the analysis response carried no readable body.
	ErrNoStreamBody = errors.New("no body")

	// ErrDecodeInterrupted indicates the stream broke while being read.
	ErrDecodeInterrupted = errors.New("stream interrupted")

	// ErrStreamStalled indicates the stream produced nothing within the idle timeout.
	ErrStreamStalled = errors.New("stream stalled")

	// ErrStreamCancelled indicates the stream was aborted because its transcript was reset.
	ErrStreamCancelled = errors.New("stream cancelled")

	// ErrRateLimited indicates the analysis service refused the request.
	ErrRateLimited = errors.New("rate limited")
)
