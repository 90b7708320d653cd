// ABOUTME: Top-level Bubble Tea AppModel that orchestrates the dashboard sub-panels into a unified layout.
// ABOUTME: Drives status polling through an ingest.Driver and routes results to the grid, detail, chart, log, and status bar panels.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/2389-research/tusk/board"
	"github.com/2389-research/tusk/ingest"
	"github.com/2389-research/tusk/roster"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// tickInterval drives spinner animation and elapsed-time refreshes.
const tickInterval = 100 * time.Millisecond

// FocusTarget indicates which panel currently has keyboard focus.
type FocusTarget int

const (
	FocusGrid FocusTarget = iota
	FocusLog
)

// AppConfig carries the collaborators an AppModel needs besides the board.
type AppConfig struct {
	Source   ingest.Source
	Interval time.Duration
	Timeout  time.Duration

	// Sink receives admitted results. It defaults to the board; wrappers
	// that journal batches must forward to the same board.
	Sink ingest.Sink

	// AutoStart begins the first run as soon as the program starts.
	AutoStart bool

	// OnSettle receives the final view of each settled run.
	OnSettle func(board.View)
	// OnChart receives each chart loaded through the prompt with its raw payload.
	OnChart func(board.ChartView, []byte)
}

// AppModel is the top-level Bubble Tea model that composes all TUI sub-panels
// and routes messages between them.
type AppModel struct {
	grid      GridPanelModel
	detail    DetailPanelModel
	chart     ChartPanelModel
	log       LogPanelModel
	statusBar StatusBarModel
	prompt    ChartPromptModel

	board  *board.Board
	driver *ingest.Driver
	cfg    AppConfig
	ctx    context.Context

	focus  FocusTarget
	phase  ingest.Phase
	width  int
	height int
}

// NewAppModel creates an AppModel over b. Fetches issued by the model are
// bounded by ctx.
func NewAppModel(ctx context.Context, b *board.Board, cfg AppConfig) AppModel {
	if cfg.Interval <= 0 {
		cfg.Interval = ingest.DefaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = ingest.DefaultTimeout
	}

	m := AppModel{
		grid:      NewGridPanelModel(b.Agents()),
		detail:    NewDetailPanelModel(),
		chart:     NewChartPanelModel(),
		log:       NewLogPanelModel(200),
		statusBar: NewStatusBarModel(),
		prompt:    NewChartPromptModel(),
		board:     b,
		cfg:       cfg,
		ctx:       ctx,
		focus:     FocusGrid,
	}
	onSettle := cfg.OnSettle
	m.driver = ingest.NewDriver(sinkFor(cfg, b), func() {
		v := b.EndRun()
		if onSettle != nil {
			onSettle(v)
		}
	})
	if cv, ok := b.Chart(); ok {
		m.chart.SetChart(cv)
	}
	m.refresh()
	return m
}

func sinkFor(cfg AppConfig, b *board.Board) ingest.Sink {
	if cfg.Sink != nil {
		return cfg.Sink
	}
	return b
}

// Driver returns the driver shared by every copy of the model.
func (m AppModel) Driver() *ingest.Driver {
	return m.driver
}

// Init implements tea.Model. It starts the tick loop; polling begins on
// the start key.
func (m AppModel) Init() tea.Cmd {
	if m.cfg.AutoStart {
		return tea.Batch(TickCmd(tickInterval), func() tea.Msg { return autoStartMsg{} })
	}
	return TickCmd(tickInterval)
}

// autoStartMsg asks the model to begin a run without a key press.
type autoStartMsg struct{}

// Update implements tea.Model. Routes incoming messages to the appropriate
// sub-panel and returns the updated model with any follow-up commands.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case autoStartMsg:
		if m.driver.Scheduler().Running() {
			return m, nil
		}
		return m.startRun()

	case PollTickMsg:
		return m.handlePollTick(msg)

	case FetchResultMsg:
		return m.handleFetchResult(msg)

	case ChartLoadedMsg:
		return m.handleChartLoaded(msg)

	case TickMsg:
		m.grid.AdvanceSpinner()
		return m, TickCmd(tickInterval)

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	return m, nil
}

// View implements tea.Model. Renders the full TUI layout with all panels.
func (m AppModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	// Minimum terminal size guard to prevent layout overflow
	if m.width < 60 || m.height < 20 {
		return fmt.Sprintf("Terminal too small (%dx%d). Minimum: 60x20.", m.width, m.height)
	}

	statusBarHeight := 1
	sideWidth := m.width * 40 / 100
	gridWidth := m.width - sideWidth
	bottomHeight := (m.height - statusBarHeight) * 35 / 100
	if bottomHeight < 6 {
		bottomHeight = 6
	}
	topHeight := m.height - statusBarHeight - bottomHeight

	m.grid.SetWidth(gridWidth)
	m.chart.SetSize(sideWidth, topHeight)
	m.detail.SetSize(gridWidth, bottomHeight)
	m.log.SetSize(sideWidth, bottomHeight)
	m.statusBar.SetWidth(m.width)

	right := m.chart.View()
	if m.prompt.IsActive() {
		right = m.prompt.View()
	}
	top := lipgloss.JoinHorizontal(lipgloss.Top, m.grid.View(), right)
	bottom := lipgloss.JoinHorizontal(lipgloss.Top, m.detail.View(), m.log.View())

	var b strings.Builder
	b.WriteString(top)
	b.WriteString("\n")
	b.WriteString(bottom)
	b.WriteString("\n")
	b.WriteString(m.statusBar.View())
	return b.String()
}

// handlePollTick issues the next fetch of a polling run. Ticks scheduled
// under an earlier generation, or after the run left polling, are dropped.
func (m AppModel) handlePollTick(msg PollTickMsg) (tea.Model, tea.Cmd) {
	sched := m.driver.Scheduler()
	if msg.Generation != sched.Generation() || !sched.Running() {
		return m, nil
	}
	return m, tea.Batch(m.issue(), PollTickCmd(msg.Generation, m.cfg.Interval))
}

// handleFetchResult folds a fetch into the board and refreshes the panels.
func (m AppModel) handleFetchResult(msg FetchResultMsg) (tea.Model, tea.Cmd) {
	verdict := m.driver.Complete(ingest.FetchResult{
		Ticket:  msg.Ticket,
		Events:  msg.Events,
		Err:     msg.Err,
		Elapsed: msg.Elapsed,
	})
	if msg.Err != nil && verdict == ingest.VerdictApply {
		m.log.Add(time.Now(), LevelError, fmt.Sprintf("fetch #%d failed: %v", msg.Ticket.Seq, msg.Err))
	}
	m.refresh()
	return m, nil
}

// handleChartLoaded normalizes a chart payload read from disk.
func (m AppModel) handleChartLoaded(msg ChartLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.log.Add(time.Now(), LevelError, fmt.Sprintf("load chart %s: %v", msg.Path, msg.Err))
		return m, nil
	}
	cv := m.board.SetChart(msg.Payload, msg.Family)
	m.chart.SetChart(cv)
	if cv.Unsupported {
		m.log.Add(time.Now(), LevelWarn, fmt.Sprintf("chart %s: %s", msg.Path, cv.Message))
	} else {
		m.log.Add(time.Now(), LevelInfo, fmt.Sprintf("chart %s loaded as %s with %d records", msg.Path, cv.Family, len(cv.Records)))
	}
	if m.cfg.OnChart != nil {
		m.cfg.OnChart(cv, msg.Payload)
	}
	return m, nil
}

// handleKeyMsg processes keyboard input, routing to the prompt or app-level shortcuts.
func (m AppModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.prompt.IsActive() {
		switch msg.Type {
		case tea.KeyEnter:
			path, family, err := m.prompt.Submit()
			if err != nil {
				return m, nil
			}
			return m, LoadChartCmd(path, family)
		case tea.KeyEsc:
			m.prompt.Close()
			return m, nil
		}
		m.prompt = m.prompt.Update(msg)
		return m, nil
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.driver.Teardown()
		return m, tea.Quit
	case "s":
		return m.startRun()
	case "x":
		return m.stopRun()
	case "r":
		m.driver.Reset()
		m.log.Add(time.Now(), LevelWarn, "reset; in-flight fetches discarded")
		m.refresh()
		return m, nil
	case "c":
		m.prompt.Open()
		return m, nil
	case "tab":
		m.focus = m.nextFocus()
		m.log.SetFocused(m.focus == FocusLog)
		return m, nil
	}

	if m.focus == FocusLog {
		switch msg.String() {
		case "up", "k":
			m.log.ScrollUp(1)
		case "down", "j":
			m.log.ScrollDown(1)
		}
		return m, nil
	}

	switch msg.String() {
	case "left", "h":
		m.grid.Move(-1, 0)
	case "right", "l":
		m.grid.Move(1, 0)
	case "up", "k":
		m.grid.Move(0, -1)
	case "down", "j":
		m.grid.Move(0, 1)
	default:
		return m, nil
	}
	m.syncDetail()
	return m, nil
}

// startRun resets the board, begins a run and issues the first fetch at once.
func (m AppModel) startRun() (tea.Model, tea.Cmd) {
	m.driver.Start()
	gen := m.driver.Scheduler().Generation()
	m.log.Add(time.Now(), LevelInfo, "run started")
	m.refresh()
	return m, tea.Batch(m.issue(), PollTickCmd(gen, m.cfg.Interval))
}

// stopRun ends polling and issues the final fetch.
func (m AppModel) stopRun() (tea.Model, tea.Cmd) {
	if !m.driver.Stop() {
		m.log.Add(time.Now(), LevelWarn, "stop ignored; no run is polling")
		return m, nil
	}
	m.log.Add(time.Now(), LevelInfo, "stopping; issuing final fetch")
	m.refresh()
	return m, m.issue()
}

// issue returns a fetch command for the next ticket, or nil.
func (m AppModel) issue() tea.Cmd {
	t, ok := m.driver.Next()
	if !ok {
		return nil
	}
	return FetchCmd(m.ctx, m.cfg.Source, t, m.cfg.Timeout)
}

// refresh copies the latest board view into the panels and logs transitions.
func (m *AppModel) refresh() {
	v := m.board.View()
	m.logTransitions(v)
	m.grid.SetAgents(v.Agents)
	m.statusBar.SetView(v)
	m.syncDetail()
}

// logTransitions compares v against the previously shown view.
func (m *AppModel) logTransitions(v board.View) {
	if v.Phase != m.phase && v.Phase == ingest.PhaseSettled {
		counts := v.Counts()
		m.log.Add(time.Now(), LevelSuccess, fmt.Sprintf("run settled: %d complete, %d errored",
			counts[roster.StatusComplete], counts[roster.StatusError]))
	}
	m.phase = v.Phase

	prev := m.grid.agents
	if len(prev) != len(v.Agents) {
		return
	}
	for i, slot := range v.Agents {
		if slot.Status == prev[i].Status {
			continue
		}
		level := LevelInfo
		switch slot.Status {
		case roster.StatusComplete:
			level = LevelSuccess
		case roster.StatusError:
			level = LevelError
		case roster.StatusIdle:
			continue
		}
		m.log.Add(time.Now(), level, fmt.Sprintf("%s %s", slot.DisplayName, slot.Status))
	}
}

func (m *AppModel) syncDetail() {
	if slot, ok := m.grid.Selected(); ok {
		m.detail.SetAgent(slot)
		return
	}
	m.detail.Clear()
}

// nextFocus cycles the focus target between grid and log.
func (m AppModel) nextFocus() FocusTarget {
	if m.focus == FocusGrid {
		return FocusLog
	}
	return FocusGrid
}
