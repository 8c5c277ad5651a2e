// Package search provides the main search and analysis view for the TUI.
package search

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/movement-lens/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/movement-lens/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/movement-lens/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/movement-lens/internal/adapters/driving/tui/components/transcript"
	"github.com/custodia-labs/movement-lens/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/movement-lens/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/movement-lens/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/movement-lens/internal/core/domain"
	"github.com/custodia-labs/movement-lens/internal/core/ports/driving"
)

// Action menu entries.
const (
	actionAsk    = "Ask about this movement"
	actionOpen   = "Open reference"
	actionCopy   = "Copy analysis"
	actionCancel = "Cancel"
)

// Focus identifies which part of the view receives keys.
type Focus int

const (
	// FocusQuery routes keys to the search input.
	FocusQuery Focus = iota
	// FocusResults routes keys to the result list and transcript.
	FocusResults
	// FocusQuestion routes keys to the follow-up input.
	FocusQuestion
)

// ActionMenu represents a simple action selection overlay.
type ActionMenu struct {
	actions  []string
	selected int
	visible  bool
	movement *domain.Movement
}

// View shows the query input, the result list, and the analysis transcript
// of one lens session.
type View struct {
	styles     *styles.Styles
	keymap     *keymap.KeyMap
	query      *input.Field
	question   *input.Field
	list       *list.ResultList
	transcript *transcript.Pane
	statusbar  *status.Bar

	lens          driving.LensService
	actionService driving.ResultActionService
	ctx           context.Context

	changes     <-chan struct{}
	unsubscribe func()
	started     bool

	width      int
	height     int
	ready      bool
	err        error
	focus      Focus
	suggestion int
	actionMenu *ActionMenu
}

// NewView creates a new search view.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	lens driving.LensService,
	actionService driving.ResultActionService,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:        s,
		keymap:        km,
		query:         input.NewSearchInput(s),
		question:      input.NewQuestionInput(s),
		list:          list.NewResultList(s),
		transcript:    transcript.NewPane(s),
		statusbar:     status.NewBar(s, km),
		lens:          lens,
		actionService: actionService,
		ctx:           context.Background(),
		width:         80,
		height:        24,
		focus:         FocusQuery,
		suggestion:    -1,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init subscribes to transcript changes and, the first time, runs the
// default search that opens the session.
func (v *View) Init() tea.Cmd {
	cmds := []tea.Cmd{v.query.Init(), v.statusbar.Init()}
	if v.lens == nil {
		return tea.Batch(append(cmds, func() tea.Msg {
			return messages.ErrorOccurred{Err: ErrNoLensService}
		})...)
	}

	if v.changes == nil {
		v.changes, v.unsubscribe = v.lens.Subscribe()
		cmds = append(cmds, v.waitForChange())
	}
	if !v.started {
		v.started = true
		v.statusbar.SetState(status.StateSearching)
		cmds = append(cmds, v.performSearch(""))
	}
	return tea.Batch(cmds...)
}

// Close releases the transcript subscription.
func (v *View) Close() {
	if v.unsubscribe != nil {
		v.unsubscribe()
		v.unsubscribe = nil
	}
}

// Update handles messages for the search view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.SearchCompleted:
		v.handleSearchCompleted(msg.Outcome)
		return v, nil

	case messages.TranscriptChanged:
		v.syncTranscript()
		return v, v.waitForChange()

	case messages.QuestionAsked:
		if msg.Err != nil {
			v.setError(msg.Err)
			return v, nil
		}
		v.question.Reset()
		return v, nil

	case messages.ActionCompleted:
		if msg.Err != nil {
			v.statusbar.SetMessage(msg.Message + ": " + msg.Err.Error())
		} else {
			v.statusbar.SetMessage(msg.Message)
		}
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	// Forward ticks and mouse events to the components.
	var cmd tea.Cmd
	if v.query, cmd = v.query.Update(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}
	if v.question, cmd = v.question.Update(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}
	if v.statusbar, cmd = v.statusbar.Update(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}
	if v.transcript, cmd = v.transcript.Update(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}

	return v, tea.Batch(cmds...)
}

// handleKeyMsg processes keyboard input.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	// If action menu is visible, handle its keys
	if v.actionMenu != nil && v.actionMenu.visible {
		return v.handleActionMenuKey(msg)
	}

	switch v.focus {
	case FocusQuery:
		return v.handleQueryKey(msg)
	case FocusQuestion:
		return v.handleQuestionKey(msg)
	case FocusResults:
	}
	return v.handleResultsKey(msg)
}

func (v *View) handleQueryKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	//nolint:exhaustive // handling only relevant key types
	switch msg.Type {
	case tea.KeyEsc:
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	case tea.KeyEnter:
		return v, v.submit(v.query.Value())
	case tea.KeyTab:
		v.nextSuggestion()
		return v, nil
	}

	var cmd tea.Cmd
	v.query, cmd = v.query.Update(msg)
	return v, cmd
}

func (v *View) handleQuestionKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	//nolint:exhaustive // handling only relevant key types
	switch msg.Type {
	case tea.KeyEsc:
		v.setFocus(FocusResults)
		return v, nil
	case tea.KeyEnter:
		question := strings.TrimSpace(v.question.Value())
		if question == "" {
			return v, nil
		}
		v.setFocus(FocusResults)
		return v, v.ask(question)
	}

	var cmd tea.Cmd
	v.question, cmd = v.question.Update(msg)
	return v, cmd
}

func (v *View) handleResultsKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	if msg.Type == tea.KeyEnter {
		if m := v.list.SelectedMovement(); m != nil {
			v.actionMenu = &ActionMenu{
				actions:  []string{actionAsk, actionOpen, actionCopy, actionCancel},
				visible:  true,
				movement: m,
			}
		}
		return v, nil
	}

	k := msg.String()
	switch {
	case keymap.Matches(k, v.keymap.Up):
		v.list.MoveUp()
	case keymap.Matches(k, v.keymap.Down):
		v.list.MoveDown()
	case keymap.Matches(k, v.keymap.ScrollUp):
		v.transcript.ScrollUp()
	case keymap.Matches(k, v.keymap.ScrollDown):
		v.transcript.ScrollDown()
	case keymap.Matches(k, v.keymap.NewSearch):
		v.setFocus(FocusQuery)
		v.query.SetValue("")
	case keymap.Matches(k, v.keymap.Ask):
		v.setFocus(FocusQuestion)
	case keymap.Matches(k, v.keymap.Copy):
		return v, v.copyAnalysis()
	case keymap.Matches(k, v.keymap.Open):
		return v, v.openReference(v.list.SelectedMovement())
	}
	return v, nil
}

// handleActionMenuKey processes keyboard input when action menu is visible.
func (v *View) handleActionMenuKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.actionMenu.selected > 0 {
			v.actionMenu.selected--
		}
	case "down", "j":
		if v.actionMenu.selected < len(v.actionMenu.actions)-1 {
			v.actionMenu.selected++
		}
	case "enter":
		action := v.actionMenu.actions[v.actionMenu.selected]
		movement := v.actionMenu.movement
		v.actionMenu = nil
		return v.executeAction(action, movement)
	case "esc":
		v.actionMenu = nil
	}
	return v, nil
}

// executeAction performs the selected action on a movement.
func (v *View) executeAction(action string, m *domain.Movement) (*View, tea.Cmd) {
	switch action {
	case actionAsk:
		v.setFocus(FocusQuestion)
		v.question.SetValue("Tell me more about " + m.Title() + ". ")
	case actionOpen:
		return v, v.openReference(m)
	case actionCopy:
		return v, v.copyAnalysis()
	case actionCancel:
		// Do nothing, menu is already closed
	}
	return v, nil
}

// submit starts a search for query. The previous search, if still running,
// is superseded and its result dropped.
func (v *View) submit(query string) tea.Cmd {
	query = strings.TrimSpace(query)
	v.err = nil
	v.statusbar.SetMessage("")
	v.statusbar.SetState(status.StateSearching)
	v.setFocus(FocusResults)
	return v.performSearch(query)
}

// performSearch executes a search and returns its outcome.
func (v *View) performSearch(query string) tea.Cmd {
	return func() tea.Msg {
		if v.lens == nil {
			return messages.ErrorOccurred{Err: ErrNoLensService}
		}
		return messages.SearchCompleted{Outcome: v.lens.Submit(v.ctx, query)}
	}
}

func (v *View) ask(question string) tea.Cmd {
	return func() tea.Msg {
		if v.lens == nil {
			return messages.ErrorOccurred{Err: ErrNoLensService}
		}
		h, err := v.lens.Ask(question)
		return messages.QuestionAsked{Handle: h, Err: err}
	}
}

func (v *View) copyAnalysis() tea.Cmd {
	text := v.transcript.LatestAnalysis()
	return func() tea.Msg {
		if v.actionService == nil {
			return messages.ActionCompleted{Message: "Copy", Err: ErrNoActionService}
		}
		if err := v.actionService.CopyToClipboard(text); err != nil {
			return messages.ActionCompleted{Message: "Copy", Err: err}
		}
		return messages.ActionCompleted{Message: "Copied analysis to clipboard"}
	}
}

func (v *View) openReference(m *domain.Movement) tea.Cmd {
	if m == nil {
		return nil
	}
	return func() tea.Msg {
		if v.actionService == nil {
			return messages.ActionCompleted{Message: "Open", Err: ErrNoActionService}
		}
		if err := v.actionService.OpenReference(m); err != nil {
			return messages.ActionCompleted{Message: "Open", Err: err}
		}
		return messages.ActionCompleted{Message: "Opening " + m.Title() + "..."}
	}
}

// waitForChange blocks until the lens reports a transcript change.
func (v *View) waitForChange() tea.Cmd {
	ch := v.changes
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return messages.TranscriptChanged{}
	}
}

// handleSearchCompleted presents an accepted outcome. Superseded outcomes
// are dropped; the newer search will report its own.
func (v *View) handleSearchCompleted(outcome domain.SearchOutcome) {
	if outcome.Stale {
		return
	}

	v.list.SetResults(outcome.Results)
	v.statusbar.SetResultCount(len(outcome.Results))
	if outcome.Err != nil {
		v.setError(outcome.Err)
		return
	}

	v.err = nil
	if v.focus != FocusQuery {
		v.query.SetValue(outcome.Query)
	}
	v.syncTranscript()
}

// syncTranscript re-reads the transcript and updates the busy indicator.
func (v *View) syncTranscript() {
	if v.lens == nil {
		return
	}
	v.transcript.SetMessages(v.lens.Transcript())

	switch {
	case v.lens.Searching():
		v.statusbar.SetState(status.StateSearching)
	case v.transcript.Streaming():
		v.statusbar.SetState(status.StateAnalysing)
	case v.err != nil:
		v.statusbar.SetState(status.StateError)
	default:
		v.statusbar.SetState(status.StateResults)
	}
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

// nextSuggestion fills the query input with the next suggested query.
func (v *View) nextSuggestion() {
	if len(domain.SuggestedQueries) == 0 {
		return
	}
	v.suggestion = (v.suggestion + 1) % len(domain.SuggestedQueries)
	v.query.SetValue(domain.SuggestedQueries[v.suggestion])
}

func (v *View) setFocus(f Focus) {
	v.focus = f
	v.query.Blur()
	v.question.Blur()
	switch f {
	case FocusQuery:
		v.query.Focus()
	case FocusQuestion:
		v.question.Focus()
	case FocusResults:
	}
}

// View renders the search view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 8)

	header := v.styles.Title.Render("Movement Lens") + "  " +
		v.styles.Muted.Render("Online social movements, analysed")
	sections = append(sections, header, v.query.View())

	if v.focus == FocusQuery && v.list.IsEmpty() {
		sections = append(sections, v.renderSuggestions())
	}

	listView := lipgloss.NewStyle().Width(v.listWidth()).Render(v.list.View())
	right := lipgloss.JoinVertical(lipgloss.Left, v.transcript.View(), v.question.View())
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, listView, "  ", right))

	// Action menu overlay (if visible)
	if v.actionMenu != nil && v.actionMenu.visible {
		sections = append(sections, v.renderActionMenu())
	}

	sections = append(sections, v.statusbar.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (v *View) renderSuggestions() string {
	chips := make([]string, len(domain.SuggestedQueries))
	for i, q := range domain.SuggestedQueries {
		chips[i] = v.styles.Chip.Render(q)
	}
	return v.styles.Muted.Render("Try: ") + strings.Join(chips, "")
}

// renderActionMenu renders the action menu overlay.
func (v *View) renderActionMenu() string {
	lines := make([]string, 0, len(v.actionMenu.actions))
	for i, action := range v.actionMenu.actions {
		if i == v.actionMenu.selected {
			lines = append(lines, v.styles.Selected.Render("> "+action))
		} else {
			lines = append(lines, v.styles.Normal.Render("  "+action))
		}
	}
	return v.styles.Border.Padding(0, 1).Render(strings.Join(lines, "\n"))
}

func (v *View) listWidth() int {
	return v.width * 2 / 5
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	// Header, query box, question box and status bar take nine rows.
	body := height - 9
	if body < 4 {
		body = 4
	}
	paneWidth := width - v.listWidth() - 2

	v.query.SetWidth(width)
	v.question.SetWidth(paneWidth)
	v.list.SetDimensions(v.listWidth(), body)
	v.transcript.SetDimensions(paneWidth, body)
	v.statusbar.SetWidth(width)
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Focus returns which part of the view has focus.
func (v *View) Focus() Focus {
	return v.focus
}

// Query returns the text in the search input.
func (v *View) Query() string {
	return v.query.Value()
}

// Results returns the displayed result set.
func (v *View) Results() domain.ResultSet {
	return v.list.Results()
}

// SelectedIndex returns the index of the selected movement.
func (v *View) SelectedIndex() int {
	return v.list.Selected()
}

// Transcript returns the displayed transcript.
func (v *View) Transcript() []domain.Message {
	return v.transcript.Messages()
}

// StatusMessage returns the status bar message.
func (v *View) StatusMessage() string {
	return v.statusbar.Message()
}

// State returns the status bar state.
func (v *View) State() status.State {
	return v.statusbar.State()
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// Reset returns the view to query input without discarding the session.
func (v *View) Reset() {
	v.actionMenu = nil
	v.setFocus(FocusQuery)
}
