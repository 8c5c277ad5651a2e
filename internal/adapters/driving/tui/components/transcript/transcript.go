// Package transcript renders the analysis conversation in a scrollable pane.
package transcript

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/custodia-labs/movement-lens/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/movement-lens/internal/core/domain"
)

// Speaker labels.
const (
	userLabel      = "You"
	assistantLabel = "Analyst"
	typingText     = "Analysing the movements..."
	streamCursor   = "▍"
)

// Pane shows transcript messages, following the bottom while new text arrives.
type Pane struct {
	styles   *styles.Styles
	viewport viewport.Model
	renderer *glamour.TermRenderer
	messages []domain.Message

	// rendered caches markdown output of terminal messages by ID.
	rendered map[string]string
}

// NewPane creates an empty transcript pane.
func NewPane(s *styles.Styles) *Pane {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &Pane{
		styles:   s,
		viewport: viewport.New(80, 10),
		rendered: make(map[string]string),
	}
}

// Update forwards scrolling input to the viewport.
func (p *Pane) Update(msg tea.Msg) (*Pane, tea.Cmd) {
	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return p, cmd
}

// View renders the visible part of the transcript.
func (p *Pane) View() string {
	return p.viewport.View()
}

// SetMessages replaces the transcript. The pane keeps following the bottom
// unless the user scrolled up.
func (p *Pane) SetMessages(messages []domain.Message) {
	follow := p.viewport.AtBottom() || len(messages) != len(p.messages)
	if len(messages) < len(p.messages) || !sameFirst(messages, p.messages) {
		// Transcript was reset.
		p.rendered = make(map[string]string)
	}
	p.messages = messages
	p.refresh(follow)
}

// Messages returns the displayed transcript.
func (p *Pane) Messages() []domain.Message {
	return p.messages
}

// LatestAnalysis returns the content of the most recent assistant message
// that has any text.
func (p *Pane) LatestAnalysis() string {
	for i := len(p.messages) - 1; i >= 0; i-- {
		m := p.messages[i]
		if m.Role == domain.RoleAssistant && m.Content != "" {
			return m.Content
		}
	}
	return ""
}

// Streaming reports whether any message is still receiving text.
func (p *Pane) Streaming() bool {
	for _, m := range p.messages {
		if m.Role == domain.RoleAssistant && !m.Status.IsTerminal() {
			return true
		}
	}
	return false
}

// ScrollUp scrolls half a page up.
func (p *Pane) ScrollUp() {
	p.viewport.HalfViewUp()
}

// ScrollDown scrolls half a page down.
func (p *Pane) ScrollDown() {
	p.viewport.HalfViewDown()
}

// SetDimensions resizes the pane and rebuilds the markdown renderer for the
// new wrap width.
func (p *Pane) SetDimensions(width, height int) {
	if height < 3 {
		height = 3
	}
	p.viewport.Width = width
	p.viewport.Height = height

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(max(width-4, 20)),
	)
	if err == nil {
		p.renderer = renderer
		p.rendered = make(map[string]string)
	}
	p.refresh(p.viewport.AtBottom())
}

func (p *Pane) refresh(follow bool) {
	p.viewport.SetContent(p.render())
	if follow {
		p.viewport.GotoBottom()
	}
}

// render lays out every message under its speaker label.
func (p *Pane) render() string {
	var sb strings.Builder
	for _, m := range p.messages {
		switch m.Role {
		case domain.RoleUser:
			sb.WriteString(p.styles.Speaker.Render(userLabel) + "\n")
			sb.WriteString(p.styles.UserMessage.Render(m.Content))
			sb.WriteString("\n\n")
		default:
			sb.WriteString(p.styles.Speaker.Render(assistantLabel) + "\n")
			sb.WriteString(p.renderAssistant(m))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func (p *Pane) renderAssistant(m domain.Message) string {
	switch {
	case m.IsTyping():
		return p.styles.Muted.Render("  "+typingText) + "\n"
	case m.Status == domain.StatusError:
		return p.styles.Error.Render("  "+m.Content) + "\n"
	case !m.Status.IsTerminal():
		// Markdown is rendered once the text is final.
		return p.styles.AssistantMessage.Render(m.Content+streamCursor) + "\n"
	}

	if out, ok := p.rendered[m.ID]; ok {
		return out
	}
	out := p.safeRenderMarkdown(m.Content)
	p.rendered[m.ID] = out
	return out
}

func (p *Pane) safeRenderMarkdown(content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			// If glamour panics, return plain text
			result = p.styles.AssistantMessage.Render(content) + "\n"
		}
	}()

	if p.renderer != nil && content != "" {
		rendered, err := p.renderer.Render(content)
		if err == nil {
			return rendered
		}
	}
	return p.styles.AssistantMessage.Render(content) + "\n"
}

func sameFirst(a, b []domain.Message) bool {
	if len(a) == 0 || len(b) == 0 {
		return true
	}
	return a[0].ID == b[0].ID
}
