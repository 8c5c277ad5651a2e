// Package tui provides an interactive terminal user interface for Movement Lens.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/movement-lens/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Lens runs searches and holds the analysis transcript.
	Lens driving.LensService

	// Actions copies analyses and opens movement references.
	Actions driving.ResultActionService

	// Settings manages application settings.
	Settings driving.SettingsService
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(lens driving.LensService, actions driving.ResultActionService) *Ports {
	return &Ports{
		Lens:    lens,
		Actions: actions,
	}
}

// Validate ensures all required ports are set.
// Actions and Settings are optional; the views degrade without them.
func (p *Ports) Validate() error {
	if p.Lens == nil {
		return ErrMissingLensService
	}
	return nil
}
