// ABOUTME: Board owns the session roster and current chart and publishes immutable views.
// ABOUTME: Writers are serialized; readers load the latest view through an atomic pointer.
package board

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/2389-research/tusk/chart"
	"github.com/2389-research/tusk/ingest"
	"github.com/2389-research/tusk/insight"
	"github.com/2389-research/tusk/metrics"
	"github.com/2389-research/tusk/roster"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Option configures a Board.
type Option func(*Board)

// WithClock sets the time source for run and chart timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Board) {
		if now != nil {
			b.now = now
		}
	}
}

// WithRosterOptions passes options through to the owned roster.
func WithRosterOptions(opts ...roster.Option) Option {
	return func(b *Board) {
		b.rosterOpts = append(b.rosterOpts, opts...)
	}
}

// Board is the single owner of a session's mutable state. It satisfies
// ingest.Sink.
type Board struct {
	mu         sync.Mutex
	roster     *roster.Roster
	rosterOpts []roster.Option
	now        func() time.Time
	draft      View

	current atomic.Pointer[View]

	subsMu  sync.Mutex
	subs    map[int]chan View
	nextSub int
}

var _ ingest.Sink = (*Board)(nil)

// New creates a board for a fresh session with every slot idle.
func New(opts ...Option) *Board {
	b := &Board{
		now:  time.Now,
		subs: make(map[int]chan View),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.roster = roster.New(append([]roster.Option{roster.WithClock(b.now)}, b.rosterOpts...)...)
	b.draft = View{SessionID: uuid.NewString(), Phase: ingest.PhaseIdle}

	b.mu.Lock()
	b.publishLocked()
	b.mu.Unlock()
	return b
}

// View returns the latest published view.
func (b *Board) View() View {
	return *b.current.Load()
}

// Agents returns the latest published slots. The slice is shared and must
// not be modified.
func (b *Board) Agents() []roster.AgentSlot {
	return b.current.Load().Agents
}

// Chart returns the current chart, if any.
func (b *Board) Chart() (ChartView, bool) {
	c := b.current.Load().Chart
	if c == nil {
		return ChartView{}, false
	}
	return *c, true
}

// SessionID returns the id assigned when the board was created.
func (b *Board) SessionID() string {
	return b.current.Load().SessionID
}

// BeginRun assigns a new run id and records the start time.
func (b *Board) BeginRun() {
	b.mu.Lock()
	defer b.mu.Unlock()
	started := b.now()
	b.draft.RunID = ulid.Make().String()
	b.draft.RunStartedAt = &started
	b.draft.SettledAt = nil
	b.draft.Failures = 0
	b.draft.LastError = ""
	log.Printf("component=board action=begin_run session=%s run=%s", b.draft.SessionID, b.draft.RunID)
	b.publishLocked()
}

// EndRun stamps the settle time and returns the resulting view.
func (b *Board) EndRun() View {
	b.mu.Lock()
	defer b.mu.Unlock()
	settled := b.now()
	b.draft.SettledAt = &settled
	b.publishLocked()
	return b.draft
}

// Reset returns every slot to idle. The chart is kept.
func (b *Board) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roster.Reset()
	b.draft.LastSeq = 0
	b.draft.LastError = ""
	b.publishLocked()
}

// ApplyEvents folds one admitted batch into the roster.
func (b *Board) ApplyEvents(seq uint64, events []roster.Event) roster.Tally {
	b.mu.Lock()
	defer b.mu.Unlock()
	tally := b.roster.ApplyAll(events)
	countOutcomes(tally)
	b.draft.LastSeq = seq
	b.draft.LastError = ""
	b.publishLocked()
	return tally
}

// ApplyEvent folds a single event, for callers that receive pushed updates.
func (b *Board) ApplyEvent(evt roster.Event) roster.Outcome {
	b.mu.Lock()
	defer b.mu.Unlock()
	outcome, _ := b.roster.Apply(evt)
	metrics.StatusEvents.WithLabelValues(outcome.String()).Inc()
	if outcome == roster.OutcomeAccepted {
		b.publishLocked()
	}
	return outcome
}

// FetchFailed records the error without touching any slot.
func (b *Board) FetchFailed(seq uint64, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.draft.Failures++
	if err != nil {
		b.draft.LastError = err.Error()
	}
	b.publishLocked()
}

// SetPhase publishes the polling phase.
func (b *Board) SetPhase(p ingest.Phase) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.draft.Phase == p {
		return
	}
	b.draft.Phase = p
	b.publishLocked()
}

// SetChart normalizes payload and makes it the current chart. An empty
// family is detected from the payload itself; when neither is known the
// chart is unsupported.
func (b *Board) SetChart(payload any, family chart.Family) ChartView {
	if family == "" {
		if f, ok := chart.DetectFamily(payload); ok {
			family = f
		}
	}
	cv := BuildChart(payload, family)

	b.mu.Lock()
	defer b.mu.Unlock()
	cv.ID = ulid.Make().String()
	cv.CreatedAt = b.now()
	b.draft.Chart = &cv
	b.publishLocked()
	return cv
}

// ClearChart removes the current chart.
func (b *Board) ClearChart() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.draft.Chart = nil
	b.publishLocked()
}

// BuildChart normalizes and summarizes a payload without touching any board.
func BuildChart(payload any, family chart.Family) ChartView {
	cv := ChartView{Family: family, Records: chart.Normalize(payload, family)}
	label := string(family)
	if label == "" {
		label = "unknown"
	}
	if len(cv.Records) == 0 {
		cv.Unsupported = true
		cv.Message = chart.UnsupportedMessage
		metrics.ChartNormalizations.WithLabelValues(label, "unsupported").Inc()
		return cv
	}
	if s, ok := insight.Summarize(cv.Records); ok {
		cv.Summary = s
		cv.Insight = s.Describe()
	}
	metrics.ChartNormalizations.WithLabelValues(label, "ok").Inc()
	return cv
}

// publishLocked snapshots the roster into a new view and notifies
// subscribers. Callers hold b.mu.
func (b *Board) publishLocked() {
	b.draft.Version++
	b.draft.Agents = b.roster.Snapshot()
	b.draft.UpdatedAt = b.now()
	v := b.draft
	b.current.Store(&v)
	b.broadcast(v)
}

func countOutcomes(t roster.Tally) {
	for outcome, n := range map[roster.Outcome]int{
		roster.OutcomeAccepted:   t.Accepted,
		roster.OutcomeDuplicate:  t.Duplicate,
		roster.OutcomeRejected:   t.Rejected,
		roster.OutcomeUnresolved: t.Unresolved,
	} {
		if n > 0 {
			metrics.StatusEvents.WithLabelValues(outcome.String()).Add(float64(n))
		}
	}
}
