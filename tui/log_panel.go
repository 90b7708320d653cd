// ABOUTME: Implements a scrollable activity log panel using the bubbles viewport component.
// ABOUTME: Records run lifecycle, fetch failures, and agent transitions with color-coded levels.
package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
)

// LogLevel classifies a log entry for coloring.
type LogLevel int

const (
	LevelInfo LogLevel = iota
	LevelSuccess
	LevelWarn
	LevelError
)

// String returns the short tag printed before an entry.
func (l LogLevel) String() string {
	switch l {
	case LevelSuccess:
		return "ok"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// LogEntry is one line of the activity log.
type LogEntry struct {
	Time  time.Time
	Level LogLevel
	Text  string
}

// LogPanelModel is a scrollable activity log.
type LogPanelModel struct {
	entries  []LogEntry
	max      int
	viewport viewport.Model
	focused  bool
	width    int
	height   int
}

// NewLogPanelModel creates a new log panel with a maximum number of entries.
// If maxEntries is <= 0, it defaults to 200.
func NewLogPanelModel(maxEntries int) LogPanelModel {
	if maxEntries <= 0 {
		maxEntries = 200
	}
	return LogPanelModel{
		entries:  make([]LogEntry, 0, maxEntries),
		max:      maxEntries,
		viewport: viewport.New(80, 10),
	}
}

// Append adds an entry, evicting the oldest one if at capacity.
func (m *LogPanelModel) Append(e LogEntry) {
	if len(m.entries) >= m.max {
		m.entries = m.entries[1:]
	}
	m.entries = append(m.entries, e)
	m.syncViewport()
}

// Add is shorthand for Append with the given time, level and text.
func (m *LogPanelModel) Add(at time.Time, level LogLevel, text string) {
	m.Append(LogEntry{Time: at, Level: level, Text: text})
}

// Entries returns a copy of the current entries, oldest first.
func (m LogPanelModel) Entries() []LogEntry {
	out := make([]LogEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Len returns the number of entries in the log.
func (m LogPanelModel) Len() int {
	return len(m.entries)
}

// SetFocused sets whether this panel accepts keyboard input.
func (m *LogPanelModel) SetFocused(focused bool) {
	m.focused = focused
}

// IsFocused returns whether the panel is focused.
func (m LogPanelModel) IsFocused() bool {
	return m.focused
}

// ScrollUp moves the viewport up by n lines.
func (m *LogPanelModel) ScrollUp(n int) {
	m.viewport.ScrollUp(n)
}

// ScrollDown moves the viewport down by n lines.
func (m *LogPanelModel) ScrollDown(n int) {
	m.viewport.ScrollDown(n)
}

// SetSize sets the available dimensions and updates the viewport.
func (m *LogPanelModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	// border takes two lines, title one
	vpWidth := w - 2
	vpHeight := h - 3
	if vpWidth < 1 {
		vpWidth = 1
	}
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = vpWidth
	m.viewport.Height = vpHeight
	m.syncViewport()
}

// View renders the log panel.
func (m LogPanelModel) View() string {
	title := "ACTIVITY"
	if m.focused {
		title = "ACTIVITY (focused)"
	}

	content := "No activity yet"
	if len(m.entries) > 0 {
		content = m.viewport.View()
	}

	style := BorderStyle
	if m.width > 0 {
		style = style.Width(m.width - 2)
	}
	if m.height > 0 {
		style = style.Height(m.height - 2)
	}
	return style.Render(TitleStyle.Render(title) + "\n" + content)
}

// syncViewport rebuilds the viewport content and scrolls to the bottom.
func (m *LogPanelModel) syncViewport() {
	lines := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		lines = append(lines, formatEntry(e))
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
	m.viewport.GotoBottom()
}

func formatEntry(e LogEntry) string {
	ts := LogTimestampStyle.Render(e.Time.Format("15:04:05"))
	return ts + " " + levelStyle(e.Level).Render(e.Level.String()) + " " + e.Text
}

func levelStyle(l LogLevel) lipgloss.Style {
	switch l {
	case LevelSuccess:
		return LogSuccessStyle
	case LevelWarn:
		return LogWarnStyle
	case LevelError:
		return LogErrorStyle
	default:
		return LogInfoStyle
	}
}
