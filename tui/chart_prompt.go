// ABOUTME: ChartPromptModel renders a text input dialog for loading a chart payload from disk.
// ABOUTME: Input is an optional chart family followed by a file path, parsed by ParseChartRequest.
package tui

import (
	"errors"
	"strings"

	"github.com/2389-research/tusk/chart"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrEmptyChartRequest is returned when the prompt is submitted with no path.
var ErrEmptyChartRequest = errors.New("chart request needs a file path")

// ChartPromptModel is a modal text input for chart requests.
type ChartPromptModel struct {
	textInput textinput.Model
	active    bool
	err       error
}

// NewChartPromptModel creates an inactive prompt.
func NewChartPromptModel() ChartPromptModel {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "[bar|line|area|pie|scatter|table] path/to/chart.json"
	return ChartPromptModel{textInput: ti}
}

// Open shows the prompt and focuses the input.
func (m *ChartPromptModel) Open() {
	m.active = true
	m.err = nil
	m.textInput.Focus()
}

// Close hides the prompt and clears the input.
func (m *ChartPromptModel) Close() {
	m.active = false
	m.textInput.Reset()
	m.textInput.Blur()
}

// IsActive returns whether the prompt is visible.
func (m ChartPromptModel) IsActive() bool {
	return m.active
}

// Value returns the current input text.
func (m ChartPromptModel) Value() string {
	return m.textInput.Value()
}

// SetValue replaces the input text.
func (m *ChartPromptModel) SetValue(s string) {
	m.textInput.SetValue(s)
}

// Submit parses the input. On success the prompt closes; on failure it stays
// open and shows the error.
func (m *ChartPromptModel) Submit() (string, chart.Family, error) {
	path, family, err := ParseChartRequest(m.textInput.Value())
	if err != nil {
		m.err = err
		return "", "", err
	}
	m.Close()
	return path, family, nil
}

// Update forwards key events to the embedded text input.
func (m ChartPromptModel) Update(msg tea.Msg) ChartPromptModel {
	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	_ = cmd // cursor blink is not driven in the modal
	return m
}

// View renders the dialog, or an empty string when inactive.
func (m ChartPromptModel) View() string {
	if !m.active {
		return ""
	}
	var b strings.Builder
	b.WriteString("[chart] Load a chart payload\n")
	b.WriteString("  enter to load, esc to cancel\n\n")
	b.WriteString(m.textInput.View())
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(ErrorStyle.Render(m.err.Error()))
	}
	return PromptStyle.Render(b.String())
}

// ParseChartRequest splits prompt input into a path and an optional family.
// When the first word names a family and more text follows, the rest is the
// path. Otherwise the whole input is the path and the family is left empty
// for detection.
func ParseChartRequest(input string) (string, chart.Family, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", "", ErrEmptyChartRequest
	}
	head, rest, found := strings.Cut(input, " ")
	if found {
		if f, ok := chart.ParseFamily(head); ok {
			rest = strings.TrimSpace(rest)
			if rest == "" {
				return "", "", ErrEmptyChartRequest
			}
			return rest, f, nil
		}
	}
	if _, ok := chart.ParseFamily(input); ok {
		return "", "", ErrEmptyChartRequest
	}
	return input, "", nil
}
