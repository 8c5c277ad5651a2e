// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/movement-lens/internal/core/domain"
)

// SearchCompleted carries the outcome of a submitted search back to the model.
type SearchCompleted struct {
	Outcome domain.SearchOutcome
}

// TranscriptChanged is sent when the session transcript changed.
// The view re-reads the transcript rather than carrying it in the message.
type TranscriptChanged struct{}

// QuestionAsked reports whether a follow-up question was accepted.
type QuestionAsked struct {
	Handle domain.MessageHandle
	Err    error
}

// ActionCompleted reports the outcome of a desktop action (copy, open).
type ActionCompleted struct {
	Message string
	Err     error
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewSearch is the search, results and analysis view.
	ViewSearch
	// ViewHelp is the help/keybindings view.
	ViewHelp
	// ViewSettings is the settings configuration view.
	ViewSettings
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewSearch:
		return "search"
	case ViewHelp:
		return "help"
	case ViewSettings:
		return "settings"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// SettingsLoaded carries the application settings.
type SettingsLoaded struct {
	Settings *domain.AppSettings
	Err      error
}

// SettingsSaved signals settings were saved.
type SettingsSaved struct {
	Err error
}
