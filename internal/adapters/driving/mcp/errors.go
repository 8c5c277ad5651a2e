// Package mcp provides an MCP (Model Context Protocol) server adapter for Movement Lens.
// It lets AI assistants search the movement dataset and request analyses of it.
package mcp

import "errors"

// ErrMissingDatasetService is returned when the dataset service is not provided.
var ErrMissingDatasetService = errors.New("mcp: dataset service is required")
