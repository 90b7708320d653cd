// ABOUTME: Implements a single-line status bar for the bottom of the TUI showing run progress.
// ABOUTME: Displays the run id, loop phase, elapsed time, agent counts, and the last fetch error.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/2389-research/tusk/board"
	"github.com/2389-research/tusk/roster"
	"github.com/charmbracelet/lipgloss"
)

// StatusBarModel displays the board summary in a single line.
type StatusBarModel struct {
	view  board.View
	now   func() time.Time
	width int
}

// NewStatusBarModel creates an empty status bar.
func NewStatusBarModel() StatusBarModel {
	return StatusBarModel{now: time.Now}
}

// SetView updates the board snapshot summarized by the bar.
func (m *StatusBarModel) SetView(v board.View) {
	m.view = v
}

// SetWidth sets the bar width for rendering.
func (m *StatusBarModel) SetWidth(w int) {
	m.width = w
}

// Elapsed returns the run duration. A settled run reports its final
// duration; a run that has not started reports zero.
func (m StatusBarModel) Elapsed() time.Duration {
	if m.view.RunStartedAt == nil {
		return 0
	}
	end := m.now()
	if m.view.SettledAt != nil {
		end = *m.view.SettledAt
	}
	return end.Sub(*m.view.RunStartedAt)
}

// formatElapsed formats a duration as a human-readable string.
// Durations under a minute show as seconds (e.g. "12s").
// Durations of a minute or more show as minutes and seconds (e.g. "2m30s").
func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Truncate(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) - minutes*60
	return fmt.Sprintf("%dm%ds", minutes, seconds)
}

// View renders the status bar as a single styled line.
func (m StatusBarModel) View() string {
	run := m.view.RunID
	if run == "" {
		run = "none"
	}
	counts := m.view.Counts()

	parts := []string{
		"Run: " + run,
		"Phase: " + m.view.Phase.String(),
		"Elapsed: " + formatElapsed(m.Elapsed()),
		fmt.Sprintf("%d/%d complete", counts[roster.StatusComplete], roster.Size()),
		fmt.Sprintf("%d working", counts[roster.StatusWorking]),
	}
	if n := counts[roster.StatusError]; n > 0 {
		parts = append(parts, fmt.Sprintf("%d errored", n))
	}
	if m.view.LastError != "" {
		parts = append(parts, fmt.Sprintf("Last error: %s (%d failures)", m.view.LastError, m.view.Failures))
	}

	style := StatusBarStyle.Width(m.width)
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Left, style.Render(strings.Join(parts, " | ")))
}
