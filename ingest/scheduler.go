// ABOUTME: Scheduler is the pure polling policy: which fetches to issue and which responses to keep.
// ABOUTME: Fetches carry monotonic sequence numbers and a generation so stale or cancelled results are discarded.
package ingest

// Phase is the polling lifecycle as seen by presentation.
type Phase int

const (
	PhaseIdle       Phase = iota // No run started
	PhasePolling                 // Run in progress; fetching on every tick
	PhaseFinalizing              // Run flag cleared; final fetch issued or pending
	PhaseSettled                 // Final fetch completed; no further fetches
	PhaseCancelled               // Torn down; results are discarded
)

// String returns the lowercase name of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePolling:
		return "polling"
	case PhaseFinalizing:
		return "finalizing"
	case PhaseSettled:
		return "settled"
	case PhaseCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// MarshalText encodes the phase as its lowercase name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Ticket identifies one issued fetch.
type Ticket struct {
	Seq        uint64
	Generation uint64
	Final      bool
}

// Verdict is the scheduler's decision about a fetch response.
type Verdict int

const (
	VerdictApply     Verdict = iota // Newest response so far; fold it in
	VerdictStale                    // A newer response was already applied
	VerdictCancelled                // Issued before the last cancel or restart
)

// String returns the lowercase name of the verdict.
func (v Verdict) String() string {
	switch v {
	case VerdictApply:
		return "apply"
	case VerdictStale:
		return "stale"
	case VerdictCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Scheduler tracks the run flag, sequence numbers and generation. It holds
// no timers or goroutines; a driver calls Issue on each tick and reports
// back through Admit or Fail. Not safe for concurrent use.
type Scheduler struct {
	phase        Phase
	generation   uint64
	lastSeq      uint64
	highest      uint64
	finalSeq     uint64
	finalPending bool
	inflight     map[uint64]struct{}
}

// NewScheduler returns an idle scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{inflight: make(map[uint64]struct{})}
}

// Phase returns the current phase.
func (s *Scheduler) Phase() Phase {
	return s.phase
}

// Generation returns the current generation.
func (s *Scheduler) Generation() uint64 {
	return s.generation
}

// LastSeq returns the most recently issued sequence number.
func (s *Scheduler) LastSeq() uint64 {
	return s.lastSeq
}

// HighestApplied returns the highest sequence number admitted so far.
func (s *Scheduler) HighestApplied() uint64 {
	return s.highest
}

// Running reports whether the run flag is set.
func (s *Scheduler) Running() bool {
	return s.phase == PhasePolling
}

// Settled reports whether the final fetch of the run has completed.
func (s *Scheduler) Settled() bool {
	return s.phase == PhaseSettled
}

// InFlight returns the number of outstanding fetches in the current generation.
func (s *Scheduler) InFlight() int {
	return len(s.inflight)
}

// Start sets the run flag. Starting opens a new generation so responses to
// fetches issued before the restart are discarded.
func (s *Scheduler) Start() {
	s.generation++
	s.phase = PhasePolling
	s.finalSeq = 0
	s.finalPending = false
	s.inflight = make(map[uint64]struct{})
}

// Stop clears the run flag and arms exactly one final fetch. Returns false
// when no run was in progress.
func (s *Scheduler) Stop() bool {
	if s.phase != PhasePolling {
		return false
	}
	s.phase = PhaseFinalizing
	s.finalPending = true
	return true
}

// Cancel tears the scheduler down. Outstanding fetches may still complete
// but their responses are reported as cancelled.
func (s *Scheduler) Cancel() {
	s.generation++
	s.phase = PhaseCancelled
	s.finalPending = false
	s.inflight = make(map[uint64]struct{})
}

// Issue returns the next fetch to perform. While polling every call issues a
// ticket; after Stop exactly one final ticket is issued; otherwise none.
func (s *Scheduler) Issue() (Ticket, bool) {
	switch {
	case s.phase == PhasePolling:
		return s.issue(false), true
	case s.phase == PhaseFinalizing && s.finalPending:
		s.finalPending = false
		t := s.issue(true)
		s.finalSeq = t.Seq
		return t, true
	default:
		return Ticket{}, false
	}
}

func (s *Scheduler) issue(final bool) Ticket {
	s.lastSeq++
	s.inflight[s.lastSeq] = struct{}{}
	return Ticket{Seq: s.lastSeq, Generation: s.generation, Final: final}
}

// Admit decides whether a successful response should be applied. Only a
// response whose sequence number exceeds every previously admitted one is
// applied, so a slow old fetch never overwrites a newer one. Once the run has
// settled every remaining response is treated as cancelled.
func (s *Scheduler) Admit(t Ticket) Verdict {
	if t.Generation != s.generation || s.phase == PhaseSettled {
		return VerdictCancelled
	}
	s.complete(t)
	if t.Seq <= s.highest {
		return VerdictStale
	}
	s.highest = t.Seq
	return VerdictApply
}

// Fail records a failed fetch. Returns false when the ticket belongs to an
// old generation and the failure should be ignored entirely.
func (s *Scheduler) Fail(t Ticket) bool {
	if t.Generation != s.generation || s.phase == PhaseSettled {
		return false
	}
	s.complete(t)
	return true
}

func (s *Scheduler) complete(t Ticket) {
	delete(s.inflight, t.Seq)
	if s.phase == PhaseFinalizing && !s.finalPending && t.Seq == s.finalSeq {
		s.phase = PhaseSettled
	}
}
