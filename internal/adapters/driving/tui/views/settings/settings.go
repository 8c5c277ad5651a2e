// Package settings provides the settings configuration view for the TUI.
package settings

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/movement-lens/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/movement-lens/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/movement-lens/internal/core/domain"
	"github.com/custodia-labs/movement-lens/internal/core/ports/driving"
)

// Section tracks which settings section is active.
type Section int

const (
	SectionOverview Section = iota
	SectionServiceURL
	SectionEmbedding
	SectionLLM
)

// Key constants for key handling.
const (
	keyDown  = "down"
	keyEnter = "enter"
	keyTab   = "tab"
)

// overviewItems is the number of rows on the overview.
const overviewItems = 3

var errNoSettingsService = errors.New("settings service not available")

// providerRole is one of the two models the analysis service runs: the
// embedder behind semantic movement search and the analyst that writes
// syntheses and answers follow-ups.
type providerRole struct {
	title     string
	purpose   string
	unset     string
	providers []domain.AIProvider
	defaults  map[domain.AIProvider]string
	keyInput  textinput.Model

	current    func(s *domain.AppSettings) (domain.AIProvider, string)
	configured func(s *domain.AppSettings) bool
	apply      func(svc driving.SettingsService, p domain.AIProvider, model, apiKey string) error
}

func newKeyInput() textinput.Model {
	in := textinput.New()
	in.Placeholder = "Enter API key"
	in.EchoMode = textinput.EchoPassword
	in.CharLimit = 256
	return in
}

func newEmbeddingRole() *providerRole {
	return &providerRole{
		title:     "Semantic Search Model",
		purpose:   "Ranks movements by meaning. Without one, searches match names and keywords only.",
		unset:     "keyword only",
		providers: domain.AllEmbeddingProviders(),
		defaults:  domain.DefaultEmbeddingModels(),
		keyInput:  newKeyInput(),
		current: func(s *domain.AppSettings) (domain.AIProvider, string) {
			return s.Embedding.Provider, s.Embedding.Model
		},
		configured: func(s *domain.AppSettings) bool { return s.Embedding.IsConfigured() },
		apply: func(svc driving.SettingsService, p domain.AIProvider, model, apiKey string) error {
			return svc.SetEmbeddingProvider(p, model, apiKey)
		},
	}
}

func newLLMRole() *providerRole {
	return &providerRole{
		title:     "Analyst Model",
		purpose:   "Summarises each search and answers follow-up questions about the movements shown.",
		unset:     "Not Set",
		providers: domain.AllLLMProviders(),
		defaults:  domain.DefaultLLMModels(),
		keyInput:  newKeyInput(),
		current: func(s *domain.AppSettings) (domain.AIProvider, string) {
			return s.LLM.Provider, s.LLM.Model
		},
		configured: func(s *domain.AppSettings) bool { return s.LLM.IsConfigured() },
		apply: func(svc driving.SettingsService, p domain.AIProvider, model, apiKey string) error {
			return svc.SetLLMProvider(p, model, apiKey)
		},
	}
}

// index returns the position of the configured provider, or 0.
func (r *providerRole) index(s *domain.AppSettings) int {
	if s == nil {
		return 0
	}
	cur, _ := r.current(s)
	for i, p := range r.providers {
		if p == cur {
			return i
		}
	}
	return 0
}

// needsKey reports whether the provider at i takes an API key.
func (r *providerRole) needsKey(i int) bool {
	return i >= 0 && i < len(r.providers) && r.providers[i].RequiresAPIKey()
}

// View is the settings configuration view.
type View struct {
	styles          *styles.Styles
	settingsService driving.SettingsService

	settings *domain.AppSettings
	err      error

	section      Section
	selected     int // row within the current section
	focusedField int // 1 while the API key input has focus

	apiURLInput textinput.Model
	embedding   *providerRole
	llm         *providerRole

	width  int
	height int
	ready  bool
}

// NewView creates a new settings view.
func NewView(s *styles.Styles, settingsService driving.SettingsService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}

	apiURLInput := textinput.New()
	apiURLInput.Placeholder = domain.DefaultAppSettings().Client.APIURL
	apiURLInput.CharLimit = 512

	return &View{
		styles:          s,
		settingsService: settingsService,
		section:         SectionOverview,
		apiURLInput:     apiURLInput,
		embedding:       newEmbeddingRole(),
		llm:             newLLMRole(),
	}
}

// Init initialises the view and loads settings.
func (v *View) Init() tea.Cmd {
	return v.loadSettings()
}

func (v *View) loadSettings() tea.Cmd {
	return func() tea.Msg {
		if v.settingsService == nil {
			return messages.SettingsLoaded{Err: errNoSettingsService}
		}
		settings, err := v.settingsService.Get()
		return messages.SettingsLoaded{Settings: settings, Err: err}
	}
}

// Update handles messages for the settings view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.SettingsLoaded:
		v.err = msg.Err
		if msg.Err == nil {
			v.settings = msg.Settings
		}
		return v, nil

	case messages.SettingsSaved:
		v.err = msg.Err
		if msg.Err == nil {
			return v, v.loadSettings()
		}
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)
	}

	return v, nil
}

// role returns the provider role edited by the current section, if any.
func (v *View) role() *providerRole {
	switch v.section {
	case SectionEmbedding:
		return v.embedding
	case SectionLLM:
		return v.llm
	default:
		return nil
	}
}

func (v *View) backToOverview() {
	v.section = SectionOverview
	v.selected = 0
	v.focusedField = 0
	v.apiURLInput.Blur()
	v.embedding.keyInput.Blur()
	v.llm.keyInput.Blur()
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if msg.String() == "esc" {
		if v.section == SectionOverview {
			return v, func() tea.Msg {
				return messages.ViewChanged{View: messages.ViewMenu}
			}
		}
		v.backToOverview()
		return v, nil
	}

	switch v.section {
	case SectionOverview:
		return v.handleOverviewKeys(msg)
	case SectionServiceURL:
		return v.handleServiceURLKeys(msg)
	case SectionEmbedding, SectionLLM:
		return v.handleRoleKeys(v.role(), msg)
	}
	return v, nil
}

func (v *View) handleOverviewKeys(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
		}
	case keyDown, "j":
		if v.selected < overviewItems-1 {
			v.selected++
		}
	case keyEnter:
		switch v.selected {
		case 0:
			v.section = SectionServiceURL
			v.apiURLInput.SetValue(v.settings.Client.APIURL)
			return v, v.apiURLInput.Focus()
		case 1:
			v.section = SectionEmbedding
			v.selected = v.embedding.index(v.settings)
		case 2:
			v.section = SectionLLM
			v.selected = v.llm.index(v.settings)
		}
	}
	return v, nil
}

func (v *View) handleServiceURLKeys(msg tea.KeyMsg) (*View, tea.Cmd) {
	if msg.String() == keyEnter {
		return v, v.setAPIURL(strings.TrimSpace(v.apiURLInput.Value()))
	}
	var cmd tea.Cmd
	v.apiURLInput, cmd = v.apiURLInput.Update(msg)
	return v, cmd
}

func (v *View) handleRoleKeys(r *providerRole, msg tea.KeyMsg) (*View, tea.Cmd) {
	if v.focusedField == 1 {
		switch msg.String() {
		case keyTab, "shift+tab":
			v.focusedField = 0
			r.keyInput.Blur()
			return v, nil
		case keyEnter:
			return v, v.applyProvider(r, v.selected, r.keyInput.Value())
		default:
			var cmd tea.Cmd
			r.keyInput, cmd = r.keyInput.Update(msg)
			return v, cmd
		}
	}

	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
		}
	case keyDown, "j":
		if v.selected < len(r.providers)-1 {
			v.selected++
		}
	case keyTab:
		if r.needsKey(v.selected) {
			v.focusedField = 1
			return v, r.keyInput.Focus()
		}
	case keyEnter:
		if r.needsKey(v.selected) {
			v.focusedField = 1
			return v, r.keyInput.Focus()
		}
		return v, v.applyProvider(r, v.selected, "")
	}
	return v, nil
}

func (v *View) setAPIURL(apiURL string) tea.Cmd {
	return func() tea.Msg {
		if v.settingsService == nil {
			return messages.SettingsSaved{Err: errNoSettingsService}
		}
		if apiURL == "" {
			return messages.SettingsSaved{Err: fmt.Errorf("%w: analysis service URL is required", domain.ErrInvalidInput)}
		}
		settings, err := v.settingsService.Get()
		if err != nil {
			return messages.SettingsSaved{Err: err}
		}
		settings.Client.APIURL = apiURL
		if err := v.settingsService.Save(settings); err != nil {
			return messages.SettingsSaved{Err: err}
		}
		v.backToOverview()
		return messages.SettingsSaved{}
	}
}

// applyProvider saves the provider at i with its default model.
func (v *View) applyProvider(r *providerRole, i int, apiKey string) tea.Cmd {
	if i < 0 || i >= len(r.providers) {
		return nil
	}
	provider := r.providers[i]
	return func() tea.Msg {
		if v.settingsService == nil {
			return messages.SettingsSaved{Err: errNoSettingsService}
		}
		if err := r.apply(v.settingsService, provider, r.defaults[provider], apiKey); err != nil {
			return messages.SettingsSaved{Err: err}
		}
		r.keyInput.SetValue("")
		v.backToOverview()
		return messages.SettingsSaved{}
	}
}

// View renders the settings view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Settings"))
	b.WriteString("\n\n")

	if v.err != nil {
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
		b.WriteString("\n\n")
	}

	if v.settings == nil {
		b.WriteString(v.styles.Muted.Render("Loading settings..."))
		return b.String()
	}

	switch v.section {
	case SectionOverview:
		b.WriteString(v.renderOverview())
	case SectionServiceURL:
		b.WriteString(v.renderServiceURL())
	case SectionEmbedding, SectionLLM:
		b.WriteString(v.renderRole(v.role()))
	}

	b.WriteString("\n")
	b.WriteString(v.renderHelp())

	return b.String()
}

func (v *View) renderOverview() string {
	var b strings.Builder

	rows := []struct{ label, value, status string }{
		{label: "Analysis Service", value: v.settings.Client.APIURL},
		{label: "Semantic Search", value: v.roleValue(v.embedding), status: v.roleStatus(v.embedding)},
		{label: "Analyst", value: v.roleValue(v.llm), status: v.roleStatus(v.llm)},
	}

	for i, row := range rows {
		line := fmt.Sprintf("%s%s: %s", v.indicator(i == v.selected), row.label, row.value)
		if row.status != "" {
			line += " " + row.status
		}
		b.WriteString(v.line(i == v.selected, line))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if v.settingsService != nil {
		if err := v.settingsService.Validate(); err != nil {
			b.WriteString(v.styles.Warning.Render(fmt.Sprintf("Warning: %s", err.Error())))
		} else {
			b.WriteString(v.styles.Success.Render("Configuration is valid"))
		}
	}

	return b.String()
}

// roleValue renders the configured provider and model of r.
func (v *View) roleValue(r *providerRole) string {
	provider, model := r.current(v.settings)
	if provider == "" {
		return r.unset
	}
	return fmt.Sprintf("%s (%s)", provider.Description(), model)
}

// roleStatus renders a tag telling whether r can run as configured.
func (v *View) roleStatus(r *providerRole) string {
	if provider, _ := r.current(v.settings); provider == "" {
		if r == v.embedding {
			return v.styles.Muted.Render("[optional]")
		}
		return v.styles.Warning.Render("[analysis unavailable]")
	}
	if r.configured(v.settings) {
		return v.styles.Success.Render("[ready]")
	}
	return v.styles.Warning.Render("[needs API key]")
}

func (v *View) renderServiceURL() string {
	var b strings.Builder

	b.WriteString(v.styles.Subtitle.Render("Analysis Service URL"))
	b.WriteString("\n\n")
	b.WriteString(v.styles.Muted.Render("Searches and analyses are requested from this address."))
	b.WriteString("\n\n")
	b.WriteString(v.apiURLInput.View())
	b.WriteString("\n")

	return b.String()
}

func (v *View) renderRole(r *providerRole) string {
	var b strings.Builder

	b.WriteString(v.styles.Subtitle.Render(r.title))
	b.WriteString("\n")
	b.WriteString(v.styles.Muted.Render(r.purpose))
	b.WriteString("\n\n")

	cur, _ := r.current(v.settings)
	for i, provider := range r.providers {
		selected := i == v.selected && v.focusedField == 0

		line := v.indicator(selected) + provider.Description()
		if provider == cur {
			line += v.styles.Success.Render(" (current)")
		}
		b.WriteString(v.line(selected, line))
		b.WriteString("\n")

		if model, ok := r.defaults[provider]; ok {
			b.WriteString(v.styles.Muted.Render("    Model: " + model))
			b.WriteString("\n")
		}
	}

	if r.needsKey(v.selected) {
		b.WriteString("\n")
		b.WriteString(v.styles.Normal.Render("API Key:"))
		b.WriteString("\n")
		b.WriteString(r.keyInput.View())
		b.WriteString("\n")
	}

	return b.String()
}

func (v *View) indicator(selected bool) string {
	if selected {
		return "> "
	}
	return "  "
}

func (v *View) line(selected bool, text string) string {
	if selected {
		return v.styles.Selected.Render(text)
	}
	return v.styles.Normal.Render(text)
}

func (v *View) renderHelp() string {
	switch v.section {
	case SectionOverview:
		return v.styles.Help.Render("[j/k] navigate  [enter] edit  [esc] back")
	case SectionServiceURL:
		return v.styles.Help.Render("[enter] save  [esc] back")
	case SectionEmbedding, SectionLLM:
		if v.focusedField == 1 {
			return v.styles.Help.Render("[tab] back to list  [enter] save  [esc] back")
		}
		return v.styles.Help.Render("[j/k] navigate  [tab] API key  [enter] select  [esc] back")
	default:
		return ""
	}
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Reset resets the view to initial state.
func (v *View) Reset() {
	v.backToOverview()
	v.err = nil
	v.apiURLInput.SetValue("")
	v.embedding.keyInput.SetValue("")
	v.llm.keyInput.SetValue("")
}
