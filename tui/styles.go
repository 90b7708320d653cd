// ABOUTME: Defines lipgloss style constants for the dashboard panels, agent status colors, and log formatting.
// ABOUTME: Provides StyleForStatus to map roster statuses to their corresponding display styles.
package tui

import (
	"github.com/2389-research/tusk/roster"
	"github.com/charmbracelet/lipgloss"
)

var (
	// Panel borders
	BorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62"))

	// Title styling
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	// Status colors
	IdleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	WorkingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	CompleteStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	ErrorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	// Agent cards
	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
	SelectedCardStyle = CardStyle.
				BorderForeground(lipgloss.Color("170"))

	// Log entry colors
	LogTimestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	LogInfoStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	LogErrorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	LogSuccessStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	LogWarnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	// Status bar
	StatusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	// Detail panel labels
	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(10)
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	// Chart rendering
	BarStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	PointStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	AxisStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	UnsupportedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Italic(true)
	InsightStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))

	// Chart prompt
	PromptStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("214")).
			Padding(1, 2)
)

// StyleForStatus returns the appropriate lipgloss style for an agent status.
func StyleForStatus(status roster.Status) lipgloss.Style {
	switch status {
	case roster.StatusIdle:
		return IdleStyle
	case roster.StatusWorking:
		return WorkingStyle
	case roster.StatusComplete:
		return CompleteStyle
	case roster.StatusError:
		return ErrorStyle
	default:
		return IdleStyle
	}
}

// SpinnerFrames contains the Braille-dot animation frames shown on working agents.
var SpinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
