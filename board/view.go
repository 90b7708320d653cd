// ABOUTME: Read-only snapshot types the board publishes to presentation layers.
// ABOUTME: A View is immutable once published; readers share it without copying.
package board

import (
	"time"

	"github.com/2389-research/tusk/chart"
	"github.com/2389-research/tusk/ingest"
	"github.com/2389-research/tusk/insight"
	"github.com/2389-research/tusk/roster"
)

// View is one published state of the board.
type View struct {
	Version      uint64             `json:"version"`
	SessionID    string             `json:"session_id"`
	RunID        string             `json:"run_id,omitempty"`
	Phase        ingest.Phase       `json:"phase"`
	Agents       []roster.AgentSlot `json:"agents"`
	Chart        *ChartView         `json:"chart,omitempty"`
	LastSeq      uint64             `json:"last_seq"`
	LastError    string             `json:"last_error,omitempty"`
	Failures     int                `json:"failures"`
	RunStartedAt *time.Time         `json:"run_started_at,omitempty"`
	SettledAt    *time.Time         `json:"settled_at,omitempty"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// Agent returns the slot with the given canonical id.
func (v View) Agent(id string) (roster.AgentSlot, bool) {
	for _, s := range v.Agents {
		if s.ID == id {
			return s, true
		}
	}
	return roster.AgentSlot{}, false
}

// Counts returns how many slots are in each status.
func (v View) Counts() map[roster.Status]int {
	out := make(map[roster.Status]int, 4)
	for _, s := range v.Agents {
		out[s.Status]++
	}
	return out
}

// ChartView is a normalized chart ready for rendering. Unsupported is set
// when the payload produced no records; Message then explains why.
type ChartView struct {
	ID          string          `json:"id"`
	Family      chart.Family    `json:"family"`
	Records     []chart.Record  `json:"records"`
	Summary     insight.Summary `json:"summary,omitempty"`
	Insight     []string        `json:"insight,omitempty"`
	Unsupported bool            `json:"unsupported"`
	Message     string          `json:"message,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
