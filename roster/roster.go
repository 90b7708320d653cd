// ABOUTME: Roster owns the fixed slot table and applies the per-slot lifecycle state machine.
// ABOUTME: Accepted events update exactly one slot; invalid transitions are logged and dropped.
package roster

import (
	"encoding/json"
	"log"
	"math"
	"time"
)

// WorkingPlaceholder is the progress shown for a slot that entered working
// without reporting an explicit value.
const WorkingPlaceholder = 50

// Outcome describes what Apply did with an event.
type Outcome int

const (
	OutcomeAccepted   Outcome = iota // Slot updated
	OutcomeDuplicate                 // Event restates the current terminal or idle state; no-op
	OutcomeRejected                  // Invalid transition or unknown status; no-op
	OutcomeUnresolved                // Identifier matches no slot; dropped
)

// String returns the lowercase name of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeRejected:
		return "rejected"
	case OutcomeUnresolved:
		return "unresolved"
	default:
		return "unknown"
	}
}

// Tally counts the outcomes of a batch.
type Tally struct {
	Accepted   int
	Duplicate  int
	Rejected   int
	Unresolved int
}

// Changed reports whether any slot was updated.
func (t Tally) Changed() bool {
	return t.Accepted > 0
}

func (t *Tally) add(o Outcome) {
	switch o {
	case OutcomeAccepted:
		t.Accepted++
	case OutcomeDuplicate:
		t.Duplicate++
	case OutcomeRejected:
		t.Rejected++
	case OutcomeUnresolved:
		t.Unresolved++
	}
}

// Option configures a Roster.
type Option func(*Roster)

// WithClock overrides the time source used when events carry no timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Roster) {
		if now != nil {
			r.now = now
		}
	}
}

// WithVerbose enables logging of unresolved identifiers, which are otherwise
// dropped silently.
func WithVerbose(verbose bool) Option {
	return func(r *Roster) {
		r.verbose = verbose
	}
}

// Roster is the single owned table of agent slots. It is not safe for
// concurrent use; one goroutine owns mutation and hands out snapshots.
type Roster struct {
	slots   []AgentSlot
	now     func() time.Time
	verbose bool
}

// New creates a roster with every slot idle.
func New(opts ...Option) *Roster {
	r := &Roster{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	r.Reset()
	return r
}

// Reset returns every slot to idle with no progress, output or timestamps.
func (r *Roster) Reset() {
	r.slots = make([]AgentSlot, len(definitions))
	for i, d := range definitions {
		r.slots[i] = idleSlot(d)
	}
}

// Snapshot returns a deep copy of all slots in roster order.
func (r *Roster) Snapshot() []AgentSlot {
	out := make([]AgentSlot, len(r.slots))
	for i, s := range r.slots {
		out[i] = s.clone()
	}
	return out
}

// Slot returns a copy of the slot with the given canonical id.
func (r *Roster) Slot(id string) (AgentSlot, bool) {
	i, ok := canonical[id]
	if !ok {
		return AgentSlot{}, false
	}
	return r.slots[i].clone(), true
}

// ApplyAll folds a batch of events in order.
func (r *Roster) ApplyAll(events []Event) Tally {
	var t Tally
	for _, evt := range events {
		o, _ := r.Apply(evt)
		t.add(o)
	}
	return t
}

// Apply folds one event into its slot and returns the outcome together with
// the resolved slot id (empty when unresolved).
func (r *Roster) Apply(evt Event) (Outcome, string) {
	id, ok := ResolveEvent(evt)
	if !ok {
		if r.verbose {
			log.Printf("component=roster action=drop_unresolved identifier=%q", evt.Identifier())
		}
		return OutcomeUnresolved, ""
	}

	next, ok := ParseStatus(evt.Status)
	if !ok {
		log.Printf("component=roster action=reject_status agent=%s status=%q", id, evt.Status)
		return OutcomeRejected, id
	}

	slot := &r.slots[canonical[id]]
	cur := slot.Status

	switch {
	case next == StatusIdle:
		if cur == StatusIdle {
			return OutcomeDuplicate, id
		}
		log.Printf("component=roster action=reject_transition agent=%s from=%s to=%s reason=reset_only", id, cur, next)
		return OutcomeRejected, id

	case next == StatusWorking:
		if cur == StatusWorking {
			r.update(slot, evt)
		} else {
			r.start(slot, evt)
		}
		return OutcomeAccepted, id

	case cur == StatusWorking:
		r.finish(slot, next, evt)
		return OutcomeAccepted, id

	case cur == next:
		return OutcomeDuplicate, id

	default:
		log.Printf("component=roster action=reject_transition agent=%s from=%s to=%s", id, cur, next)
		return OutcomeRejected, id
	}
}

// start enters working from idle, complete or error. Leaving a terminal
// state this way is a new invocation of the same agent.
func (r *Roster) start(slot *AgentSlot, evt Event) {
	started := firstTime(evt.StartedAt, evt.Timestamp, r.now())
	slot.Status = StatusWorking
	slot.Progress = WorkingPlaceholder
	if evt.Progress != nil {
		slot.Progress = clampProgress(*evt.Progress)
	}
	slot.Message = evt.Message
	slot.Result = copyRaw(evt.Result)
	slot.StartedAt = &started
	slot.EndedAt = nil
	slot.Runs++
}

// update refreshes a working slot.
func (r *Roster) update(slot *AgentSlot, evt Event) {
	if evt.Progress != nil {
		slot.Progress = clampProgress(*evt.Progress)
	}
	slot.Message = evt.Message
	slot.Result = copyRaw(evt.Result)
	if slot.StartedAt == nil {
		started := firstTime(evt.StartedAt, evt.Timestamp, r.now())
		slot.StartedAt = &started
	}
}

// finish moves a working slot into complete or error.
func (r *Roster) finish(slot *AgentSlot, next Status, evt Event) {
	ended := firstTime(evt.EndedAt, evt.Timestamp, r.now())
	slot.Status = next
	switch {
	case next == StatusComplete:
		slot.Progress = 100
	case evt.Progress != nil:
		slot.Progress = clampProgress(*evt.Progress)
	}
	slot.Message = evt.Message
	slot.Result = copyRaw(evt.Result)
	slot.EndedAt = &ended
}

// clampProgress rounds p and clamps it into [0,100]. NaN maps to 0.
func clampProgress(p float64) int {
	if math.IsNaN(p) || p <= 0 {
		return 0
	}
	if p >= 100 {
		return 100
	}
	return int(math.Round(p))
}

// firstTime returns the first non-zero time.
func firstTime(ts ...time.Time) time.Time {
	for _, t := range ts {
		if !t.IsZero() {
			return t
		}
	}
	return time.Time{}
}

func copyRaw(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}
