// ABOUTME: tea.Cmd factories connecting the status source and chart files to the Bubble Tea message loop.
// ABOUTME: Fetches run off the loop goroutine and report back as FetchResultMsg; reconciliation stays in Update.
package tui

import (
	"context"
	"os"
	"time"

	"github.com/2389-research/tusk/chart"
	"github.com/2389-research/tusk/ingest"
	tea "github.com/charmbracelet/bubbletea"
)

// FetchCmd returns a tea.Cmd that performs one ticketed fetch.
func FetchCmd(ctx context.Context, src ingest.Source, t ingest.Ticket, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		res := ingest.Fetch(ctx, src, t, timeout)
		return FetchResultMsg{Ticket: res.Ticket, Events: res.Events, Err: res.Err, Elapsed: res.Elapsed}
	}
}

// PollTickCmd returns a tea.Cmd that requests the next fetch after interval.
func PollTickCmd(generation uint64, interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return PollTickMsg{Generation: generation}
	})
}

// TickCmd returns a tea.Cmd that sends a TickMsg after the given interval.
// Used for spinner animation and elapsed-time refreshes.
func TickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// LoadChartCmd returns a tea.Cmd that reads a chart payload file.
func LoadChartCmd(path string, family chart.Family) tea.Cmd {
	return func() tea.Msg {
		data, err := os.ReadFile(path)
		return ChartLoadedMsg{Path: path, Family: family, Payload: data, Err: err}
	}
}
