// ABOUTME: Bubble Tea sub-model rendering the fixed roster as a grid of agent cards.
// ABOUTME: Tracks the selected card and animates a spinner on working agents.
package tui

import (
	"fmt"
	"strings"

	"github.com/2389-research/tusk/roster"
	"github.com/charmbracelet/lipgloss"
)

// GridColumns is the number of cards per row.
const GridColumns = 3

// GridPanelModel displays one card per roster slot.
type GridPanelModel struct {
	agents       []roster.AgentSlot
	selected     int
	spinnerIndex int
	width        int
}

// NewGridPanelModel creates a grid for the given slots.
func NewGridPanelModel(agents []roster.AgentSlot) GridPanelModel {
	return GridPanelModel{agents: agents}
}

// SetAgents replaces the slots shown. The selection is kept in range.
func (m *GridPanelModel) SetAgents(agents []roster.AgentSlot) {
	m.agents = agents
	if m.selected >= len(agents) {
		m.selected = 0
	}
}

// Move shifts the selection by dx columns and dy rows, wrapping at the edges.
func (m *GridPanelModel) Move(dx, dy int) {
	n := len(m.agents)
	if n == 0 {
		return
	}
	next := m.selected + dx + dy*GridColumns
	m.selected = ((next % n) + n) % n
}

// Selected returns the currently selected slot.
func (m GridPanelModel) Selected() (roster.AgentSlot, bool) {
	if m.selected < 0 || m.selected >= len(m.agents) {
		return roster.AgentSlot{}, false
	}
	return m.agents[m.selected], true
}

// SelectedIndex returns the index of the selected card.
func (m GridPanelModel) SelectedIndex() int {
	return m.selected
}

// AdvanceSpinner increments the spinner frame index.
func (m *GridPanelModel) AdvanceSpinner() {
	m.spinnerIndex++
}

// SetWidth sets the available width for rendering.
func (m *GridPanelModel) SetWidth(w int) {
	m.width = w
}

// cardWidth is the inner width of one card for the current panel width.
func (m GridPanelModel) cardWidth() int {
	if m.width <= 0 {
		return 24
	}
	// Each card adds a 2-column border and 2 columns of padding.
	w := m.width/GridColumns - 4
	if w < 12 {
		w = 12
	}
	return w
}

// View renders the grid as a string.
func (m GridPanelModel) View() string {
	if len(m.agents) == 0 {
		return BorderStyle.Render(TitleStyle.Render("AGENTS") + "\n\nNo agents")
	}

	var rows []string
	for start := 0; start < len(m.agents); start += GridColumns {
		end := start + GridColumns
		if end > len(m.agents) {
			end = len(m.agents)
		}
		var cards []string
		for i := start; i < end; i++ {
			cards = append(cards, m.renderCard(i))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m GridPanelModel) renderCard(i int) string {
	slot := m.agents[i]
	width := m.cardWidth()
	style := StyleForStatus(slot.Status)

	title := truncate(fmt.Sprintf("%s %s", slot.Icon, slot.DisplayName), width)
	status := fmt.Sprintf("%s %s", slot.Status.Icon(), slot.Status)
	if slot.Status == roster.StatusWorking {
		status += " " + SpinnerFrames[m.spinnerIndex%len(SpinnerFrames)]
	}
	lines := []string{
		TitleStyle.Render(title),
		style.Render(status),
		ProgressBar(slot.Progress, width),
		IdleStyle.Render(truncate(firstLine(slot.Message), width)),
	}

	card := CardStyle
	if i == m.selected {
		card = SelectedCardStyle
	}
	return card.Width(width + 2).Render(strings.Join(lines, "\n"))
}

// ProgressBar renders progress 0..100 as a fixed-width bar with a percentage.
func ProgressBar(progress, width int) string {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	label := fmt.Sprintf(" %3d%%", progress)
	barWidth := width - len(label)
	if barWidth < 1 {
		return label
	}
	filled := progress * barWidth / 100
	return BarStyle.Render(strings.Repeat("█", filled)) +
		AxisStyle.Render(strings.Repeat("░", barWidth-filled)) + label
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	runes := []rune(s)
	if n <= 0 || len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
