package status

import (
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/movement-lens/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/movement-lens/internal/adapters/driving/tui/styles"
)

func TestNewBar(t *testing.T) {
	bar := NewBar(styles.DefaultStyles(), keymap.DefaultKeyMap())

	require.NotNil(t, bar)
	assert.Equal(t, StateReady, bar.State())
	assert.Equal(t, "", bar.Message())
	assert.Equal(t, 0, bar.ResultCount())
	assert.False(t, bar.Busy())
}

func TestNewBar_NilStyles(t *testing.T) {
	bar := NewBar(nil, nil)

	require.NotNil(t, bar)
	assert.NotNil(t, bar.styles)
	assert.NotNil(t, bar.keymap)
	assert.NotNil(t, bar.Init())
}

func TestBar_UpdateIgnoresKeys(t *testing.T) {
	bar := NewBar(nil, nil)

	updated, cmd := bar.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, bar, updated)
	assert.Nil(t, cmd)
}

func TestBar_UpdateAdvancesSpinner(t *testing.T) {
	bar := NewBar(nil, nil)

	_, cmd := bar.Update(spinner.TickMsg{ID: bar.spinner.ID()})

	assert.NotNil(t, cmd)
}

func TestBar_View(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(b *Bar)
		contains []string
	}{
		{
			name:     "ready",
			setup:    func(*Bar) {},
			contains: []string{"Ready", "enter: search"},
		},
		{
			name:     "searching",
			setup:    func(b *Bar) { b.SetState(StateSearching) },
			contains: []string{"Searching..."},
		},
		{
			name:     "analysing",
			setup:    func(b *Bar) { b.SetState(StateAnalysing) },
			contains: []string{"Analysing..."},
		},
		{
			name: "results",
			setup: func(b *Bar) {
				b.SetState(StateResults)
				b.SetResultCount(12)
			},
			contains: []string{"12 movements", "a: ask", "c: copy analysis"},
		},
		{
			name: "message overrides count",
			setup: func(b *Bar) {
				b.SetState(StateResults)
				b.SetResultCount(12)
				b.SetMessage("Copied to clipboard")
			},
			contains: []string{"Copied to clipboard"},
		},
		{
			name: "error",
			setup: func(b *Bar) {
				b.SetState(StateError)
				b.SetMessage("connection refused")
			},
			contains: []string{"Error: connection refused"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := NewBar(nil, nil)
			bar.SetWidth(160)
			tt.setup(bar)

			view := bar.View()
			for _, s := range tt.contains {
				assert.Contains(t, view, s)
			}
		})
	}
}

func TestBar_Busy(t *testing.T) {
	bar := NewBar(nil, nil)

	bar.SetState(StateSearching)
	assert.True(t, bar.Busy())

	bar.SetState(StateAnalysing)
	assert.True(t, bar.Busy())

	bar.SetState(StateResults)
	assert.False(t, bar.Busy())
}

func TestBar_Clear(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetState(StateError)
	bar.SetMessage("boom")
	bar.SetResultCount(3)

	bar.Clear()

	assert.Equal(t, StateReady, bar.State())
	assert.Empty(t, bar.Message())
	assert.Zero(t, bar.ResultCount())
}
