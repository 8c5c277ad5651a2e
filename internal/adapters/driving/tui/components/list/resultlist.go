// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/movement-lens/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/movement-lens/internal/core/domain"
)

// ResultList displays the current result set in a navigable list.
type ResultList struct {
	results  domain.ResultSet
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewResultList creates a new result list component.
func NewResultList(s *styles.Styles) *ResultList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &ResultList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the result list.
func (r *ResultList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (r *ResultList) Update(msg tea.Msg) (*ResultList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			r.MoveUp()
		case "down", "j":
			r.MoveDown()
		}
	}
	return r, nil
}

// View renders the result list.
func (r *ResultList) View() string {
	if len(r.results) == 0 {
		return r.styles.Muted.Render("No movements")
	}

	lines := make([]string, 0, len(r.results)*2+2)

	header := r.styles.Subtitle.Render(fmt.Sprintf("Movements (%d)", len(r.results)))
	lines = append(lines, header, "")

	// Each movement takes two lines.
	visibleCount := (r.height - 2) / 2
	if visibleCount < 1 {
		visibleCount = 1
	}

	start := 0
	if r.selected >= visibleCount {
		start = r.selected - visibleCount + 1
	}
	end := start + visibleCount
	if end > len(r.results) {
		end = len(r.results)
	}

	for i := start; i < end; i++ {
		lines = append(lines, r.renderMovement(i, &r.results[i]))
	}

	return strings.Join(lines, "\n")
}

// renderMovement formats one movement as a title line and a details line.
func (r *ResultList) renderMovement(index int, m *domain.Movement) string {
	indicator := "  "
	if index == r.selected {
		indicator = "> "
	}

	title := truncate(m.Title(), r.width-4)
	var titleLine string
	if index == r.selected {
		titleLine = r.styles.Selected.Render(indicator + title)
	} else {
		titleLine = r.styles.Normal.Render(indicator + title)
	}

	details := truncate(m.Details(), r.width-6)
	return titleLine + "\n" + r.styles.Muted.Render("    "+details)
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if n < 10 {
		n = 10
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

// SetResults replaces the list contents and resets the selection.
func (r *ResultList) SetResults(results domain.ResultSet) {
	r.results = results
	r.selected = 0
}

// Results returns the current results.
func (r *ResultList) Results() domain.ResultSet {
	return r.results
}

// Selected returns the index of the selected movement.
func (r *ResultList) Selected() int {
	return r.selected
}

// SetSelected sets the selected index.
func (r *ResultList) SetSelected(index int) {
	if index >= 0 && index < len(r.results) {
		r.selected = index
	}
}

// SelectedMovement returns the selected movement, or nil if none.
func (r *ResultList) SelectedMovement() *domain.Movement {
	if len(r.results) == 0 || r.selected < 0 || r.selected >= len(r.results) {
		return nil
	}
	return &r.results[r.selected]
}

// MoveUp moves selection up.
func (r *ResultList) MoveUp() {
	if r.selected > 0 {
		r.selected--
	}
}

// MoveDown moves selection down.
func (r *ResultList) MoveDown() {
	if r.selected < len(r.results)-1 {
		r.selected++
	}
}

// SetDimensions sets the component dimensions.
func (r *ResultList) SetDimensions(width, height int) {
	r.width = width
	r.height = height
}

// Count returns the number of results.
func (r *ResultList) Count() int {
	return len(r.results)
}

// IsEmpty returns whether the list is empty.
func (r *ResultList) IsEmpty() bool {
	return len(r.results) == 0
}
