package driving

import "github.com/custodia-labs/movement-lens/internal/core/domain"

// ResultActionService provides desktop actions on results and analyses.
// This is used by the TUI.
type ResultActionService interface {
	// CopyToClipboard copies text (typically an analysis) to the system clipboard.
	CopyToClipboard(text string) error

	// OpenReference opens the movement's reference page in the default browser.
	OpenReference(movement *domain.Movement) error
}
