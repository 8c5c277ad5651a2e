package search

import "errors"

// Error definitions for the search view.
var (
	// ErrNoLensService indicates that no lens service was provided.
	ErrNoLensService = errors.New("lens service is required")

	// ErrNoActionService indicates that desktop actions are unavailable.
	ErrNoActionService = errors.New("actions not available")
)
