package tui

import "errors"

// ErrMissingLensService is returned when the lens service is not provided.
var ErrMissingLensService = errors.New("tui: lens service is required")

// ErrInvalidPorts is returned when ports validation fails.
var ErrInvalidPorts = errors.New("tui: invalid ports configuration")
