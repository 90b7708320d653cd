// ABOUTME: AgentSlot holds the reconciled state of one canonical agent: status, progress, output, timing.
// ABOUTME: Slots are copied out of the roster by value so presentation never aliases roster memory.
package roster

import (
	"encoding/json"
	"time"
)

// AgentSlot is the read-only view of one roster member.
type AgentSlot struct {
	ID          string          `json:"id"`
	DisplayName string          `json:"display_name"`
	Icon        string          `json:"icon"`
	Status      Status          `json:"status"`
	Progress    int             `json:"progress"`
	Message     string          `json:"message,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	EndedAt     *time.Time      `json:"ended_at,omitempty"`
	Runs        int             `json:"runs"`
}

// Duration returns endedAt minus startedAt once both are known.
func (s AgentSlot) Duration() (time.Duration, bool) {
	if s.StartedAt == nil || s.EndedAt == nil {
		return 0, false
	}
	d := s.EndedAt.Sub(*s.StartedAt)
	if d < 0 {
		return 0, false
	}
	return d, true
}

// clone returns a deep copy of the slot.
func (s AgentSlot) clone() AgentSlot {
	if s.Result != nil {
		s.Result = append(json.RawMessage(nil), s.Result...)
	}
	if s.StartedAt != nil {
		t := *s.StartedAt
		s.StartedAt = &t
	}
	if s.EndedAt != nil {
		t := *s.EndedAt
		s.EndedAt = &t
	}
	return s
}

// idleSlot returns a fresh idle slot for a definition.
func idleSlot(d Definition) AgentSlot {
	return AgentSlot{
		ID:          d.ID,
		DisplayName: d.DisplayName,
		Icon:        d.Icon,
		Status:      StatusIdle,
	}
}
