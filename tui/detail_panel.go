// ABOUTME: Bubble Tea sub-model for displaying the selected agent's full state.
// ABOUTME: Renders status, progress, run count, timestamps, duration, message, and a compact result preview.
package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/2389-research/tusk/roster"
)

// maxOutputLen is the maximum number of characters shown for message and result.
const maxOutputLen = 80

// DetailPanelModel displays detailed information about one agent.
type DetailPanelModel struct {
	agent  *roster.AgentSlot
	width  int
	height int
}

// NewDetailPanelModel creates a DetailPanelModel with no agent.
func NewDetailPanelModel() DetailPanelModel {
	return DetailPanelModel{}
}

// SetAgent updates the panel with the given slot.
func (m *DetailPanelModel) SetAgent(slot roster.AgentSlot) {
	m.agent = &slot
}

// Clear removes the agent.
func (m *DetailPanelModel) Clear() {
	m.agent = nil
}

// SetSize sets the available dimensions.
func (m *DetailPanelModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// truncateOutput truncates s to maxOutputLen characters, appending "..." if truncated.
func truncateOutput(s string) string {
	return truncate(strings.Join(strings.Fields(s), " "), maxOutputLen)
}

// View renders the detail panel as a string.
func (m DetailPanelModel) View() string {
	title := TitleStyle.Render("AGENT DETAIL")

	var content string
	if m.agent == nil {
		content = title + "\n\n" + ValueStyle.Render("No agent selected")
	} else {
		a := m.agent

		statusStr := StyleForStatus(a.Status).Render(a.Status.String())
		if d, ok := a.Duration(); ok {
			statusStr += " " + d.Truncate(time.Millisecond).String()
		}

		lines := []string{
			title,
			row("Agent:", fmt.Sprintf("%s %s", a.Icon, a.DisplayName)),
			row("ID:", a.ID),
			LabelStyle.Render("Status:") + statusStr,
			LabelStyle.Render("Progress:") + ProgressBar(a.Progress, 24),
			row("Runs:", fmt.Sprintf("%d", a.Runs)),
			row("Started:", formatStamp(a.StartedAt)),
			row("Ended:", formatStamp(a.EndedAt)),
			row("Message:", truncateOutput(a.Message)),
		}
		if len(a.Result) > 0 {
			lines = append(lines, row("Result:", truncateOutput(compactJSON(a.Result))))
		}
		content = strings.Join(lines, "\n")
	}

	style := BorderStyle
	if m.width > 0 {
		style = style.Width(m.width - 2)
	}
	if m.height > 0 {
		style = style.Height(m.height - 2)
	}

	return style.Render(content)
}

// row renders a label-value pair using the standard label and value styles.
func row(label, value string) string {
	return LabelStyle.Render(label) + ValueStyle.Render(value)
}

func formatStamp(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("15:04:05")
}

// compactJSON renders raw JSON on one line; JSON strings are shown unquoted.
func compactJSON(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var b bytes.Buffer
	if err := json.Compact(&b, raw); err != nil {
		return string(raw)
	}
	return b.String()
}
