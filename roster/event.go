// ABOUTME: Event is the decoded form of one weakly-typed external status update for an agent.
// ABOUTME: Events are ephemeral: they are folded into an AgentSlot by Roster.Apply and then discarded.
package roster

import (
	"encoding/json"
	"time"
)

// Event is one incoming status update. Any of ID, Type and Name may carry the
// agent identifier depending on which naming convention the source used.
// Zero timestamps and a nil Progress mean "not provided".
type Event struct {
	ID        string          `json:"id,omitempty"`
	Type      string          `json:"type,omitempty"`
	Name      string          `json:"name,omitempty"`
	Status    string          `json:"status"`
	Message   string          `json:"message,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Progress  *float64        `json:"progress,omitempty"`
	StartedAt time.Time       `json:"started_at,omitzero"`
	EndedAt   time.Time       `json:"ended_at,omitzero"`
	Timestamp time.Time       `json:"timestamp,omitzero"`
}

// Identifier returns the first non-empty identifier field, for logging.
func (e Event) Identifier() string {
	switch {
	case e.ID != "":
		return e.ID
	case e.Type != "":
		return e.Type
	default:
		return e.Name
	}
}
