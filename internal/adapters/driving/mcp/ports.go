package mcp

import (
	"github.com/custodia-labs/movement-lens/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Dataset searches and reads the movement dataset.
	Dataset driving.DatasetService

	// Synthesis writes analyses. Optional: without it the analysis tool
	// reports that no LLM is configured.
	Synthesis driving.SynthesisService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Dataset == nil {
		return ErrMissingDatasetService
	}
	return nil
}
