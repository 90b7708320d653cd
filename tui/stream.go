// ABOUTME: StreamModel is an inline Bubble Tea model that streams agent progress to the terminal without alt-screen.
// ABOUTME: Starts a run on launch, prints one line per agent with a spinner, elapsed time and progress, and quits once the run settles.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/2389-research/tusk/board"
	"github.com/2389-research/tusk/ingest"
	"github.com/2389-research/tusk/roster"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// StreamOption configures optional StreamModel behavior.
type StreamOption func(*StreamModel)

// WithAutoStop makes the stream stop polling once every agent has reached a
// terminal status (complete or error) after at least one was seen working.
func WithAutoStop() StreamOption {
	return func(m *StreamModel) {
		m.autoStop = true
	}
}

// WithStreamClock overrides the clock used for elapsed times.
func WithStreamClock(now func() time.Time) StreamOption {
	return func(m *StreamModel) {
		m.now = now
	}
}

// StreamModel is an inline (non-alt-screen) Bubble Tea model that displays
// each roster slot on its own line.
type StreamModel struct {
	board   *board.Board
	driver  *ingest.Driver
	cfg     AppConfig
	ctx     context.Context
	spinner spinner.Model
	now     func() time.Time

	autoStop    bool
	sawWorking  bool
	interrupted bool
	done        bool
	width       int
}

// NewStreamModel creates a StreamModel over b.
func NewStreamModel(ctx context.Context, b *board.Board, cfg AppConfig, opts ...StreamOption) StreamModel {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = ingest.DefaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = ingest.DefaultTimeout
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = WorkingStyle

	m := StreamModel{
		board:   b,
		cfg:     cfg,
		ctx:     ctx,
		spinner: sp,
		now:     time.Now,
	}
	onSettle := cfg.OnSettle
	m.driver = ingest.NewDriver(sinkFor(cfg, b), func() {
		v := b.EndRun()
		if onSettle != nil {
			onSettle(v)
		}
	})
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Driver returns the driver shared by every copy of the model.
func (m StreamModel) Driver() *ingest.Driver {
	return m.driver
}

// Init implements tea.Model. It starts the run and issues the first fetch.
func (m StreamModel) Init() tea.Cmd {
	m.driver.Start()
	gen := m.driver.Scheduler().Generation()
	return tea.Batch(m.issue(), PollTickCmd(gen, m.cfg.Interval), m.spinner.Tick)
}

// Update implements tea.Model. Routes incoming messages to appropriate handlers.
func (m StreamModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case PollTickMsg:
		sched := m.driver.Scheduler()
		if msg.Generation != sched.Generation() || !sched.Running() {
			return m, nil
		}
		return m, tea.Batch(m.issue(), PollTickCmd(msg.Generation, m.cfg.Interval))

	case FetchResultMsg:
		return m.handleFetchResult(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.done {
			return m, nil
		}
		return m, cmd

	case tea.KeyMsg:
		if msg.String() != "ctrl+c" {
			return m, nil
		}
		if m.interrupted || !m.driver.Stop() {
			m.driver.Teardown()
			m.done = true
			return m, tea.Quit
		}
		m.interrupted = true
		return m, m.issue()
	}

	return m, nil
}

func (m StreamModel) handleFetchResult(msg FetchResultMsg) (tea.Model, tea.Cmd) {
	m.driver.Complete(ingest.FetchResult{
		Ticket:  msg.Ticket,
		Events:  msg.Events,
		Err:     msg.Err,
		Elapsed: msg.Elapsed,
	})
	if m.driver.Settled() {
		m.done = true
		return m, tea.Quit
	}

	if m.autoStop && m.driver.Scheduler().Running() {
		agents := m.board.Agents()
		if anyStatus(agents, roster.StatusWorking) {
			m.sawWorking = true
		}
		if m.sawWorking && allTerminal(agents) && m.driver.Stop() {
			return m, m.issue()
		}
	}
	return m, nil
}

func (m StreamModel) issue() tea.Cmd {
	t, ok := m.driver.Next()
	if !ok {
		return nil
	}
	return FetchCmd(m.ctx, m.cfg.Source, t, m.cfg.Timeout)
}

// View implements tea.Model. Renders the inline streaming progress display.
func (m StreamModel) View() string {
	v := m.board.View()
	var b strings.Builder

	run := v.RunID
	if run == "" {
		run = "pending"
	}
	b.WriteString(TitleStyle.Render("tusk") + fmt.Sprintf(" run %s\n\n", run))

	for _, slot := range v.Agents {
		b.WriteString(m.renderAgentLine(slot))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.renderFooter(v))
	b.WriteString("\n")
	return b.String()
}

func (m StreamModel) renderAgentLine(slot roster.AgentSlot) string {
	label := fmt.Sprintf("%s %-18s", slot.Icon, slot.DisplayName)
	style := StyleForStatus(slot.Status)
	switch slot.Status {
	case roster.StatusWorking:
		line := fmt.Sprintf("  %s %s %s", m.spinner.View(), label, ProgressBar(slot.Progress, 20))
		if slot.StartedAt != nil {
			line += " " + formatDuration(m.now().Sub(*slot.StartedAt))
		}
		if msg := firstLine(slot.Message); msg != "" {
			line += " " + IdleStyle.Render(truncate(msg, 40))
		}
		return line
	case roster.StatusComplete, roster.StatusError:
		line := style.Render(fmt.Sprintf("  %s %s", slot.Status.Icon(), label))
		if d, ok := slot.Duration(); ok {
			line += style.Render("  " + formatDuration(d))
		}
		if slot.Status == roster.StatusError && slot.Message != "" {
			line += " " + ErrorStyle.Render(truncate(firstLine(slot.Message), 40))
		}
		return line
	default:
		return IdleStyle.Render(fmt.Sprintf("    %s", label))
	}
}

func (m StreamModel) renderFooter(v board.View) string {
	counts := v.Counts()
	elapsed := "0.0s"
	if v.RunStartedAt != nil {
		end := m.now()
		if v.SettledAt != nil {
			end = *v.SettledAt
		}
		elapsed = formatDuration(end.Sub(*v.RunStartedAt))
	}
	summary := fmt.Sprintf("  %d/%d complete · %s · %s", counts[roster.StatusComplete], roster.Size(), elapsed, v.Phase)
	if n := counts[roster.StatusError]; n > 0 {
		summary += fmt.Sprintf(" · %d errored", n)
	}
	if v.LastError != "" {
		summary += " · last error: " + v.LastError
	}
	if v.Phase == ingest.PhaseSettled {
		return settledStyle(counts).Render(summary)
	}
	return IdleStyle.Render(summary)
}

func settledStyle(counts map[roster.Status]int) lipgloss.Style {
	if counts[roster.StatusError] > 0 {
		return ErrorStyle
	}
	return CompleteStyle
}

func anyStatus(agents []roster.AgentSlot, s roster.Status) bool {
	for _, a := range agents {
		if a.Status == s {
			return true
		}
	}
	return false
}

func allTerminal(agents []roster.AgentSlot) bool {
	for _, a := range agents {
		if !a.Status.Terminal() {
			return false
		}
	}
	return len(agents) > 0
}

// formatDuration formats a duration as a human-readable string like "0.1s" or "2.3s".
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := d.Seconds()
	if secs < 10 {
		return fmt.Sprintf("%.1fs", secs)
	}
	if secs < 60 {
		return fmt.Sprintf("%.0fs", secs)
	}
	mins := int(secs) / 60
	remainSecs := int(secs) % 60
	return fmt.Sprintf("%dm%02ds", mins, remainSecs)
}
