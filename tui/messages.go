// ABOUTME: Bubble Tea message types used in the dashboard message loop.
// ABOUTME: Poll ticks carry the generation they were scheduled under so ticks from a cancelled run are ignored.
package tui

import (
	"time"

	"github.com/2389-research/tusk/chart"
	"github.com/2389-research/tusk/ingest"
	"github.com/2389-research/tusk/roster"
)

// PollTickMsg asks for the next status fetch of the given generation.
type PollTickMsg struct {
	Generation uint64
}

// FetchResultMsg carries one ticketed fetch back into the message loop.
type FetchResultMsg struct {
	Ticket  ingest.Ticket
	Events  []roster.Event
	Err     error
	Elapsed time.Duration
}

// TickMsg is sent periodically to update timers and spinners.
type TickMsg struct {
	Time time.Time
}

// ChartLoadedMsg carries a chart payload read from disk.
type ChartLoadedMsg struct {
	Path    string
	Family  chart.Family
	Payload []byte
	Err     error
}
