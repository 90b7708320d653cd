// ABOUTME: Tests for the polling Loop against scripted sources and a recording sink.
// ABOUTME: Covers the start/stop lifecycle, out-of-order responses, fetch failures, and teardown.
package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/2389-research/tusk/roster"
)

// recordingSink folds batches into a real roster and records every call.
type recordingSink struct {
	mu      sync.Mutex
	roster  *roster.Roster
	applied []uint64
	failed  []uint64
	phases  []Phase
	runs    int
	resets  int
}

func newRecordingSink() *recordingSink {
	return &recordingSink{roster: roster.New()}
}

func (s *recordingSink) BeginRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs++
}

func (s *recordingSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets++
	s.roster.Reset()
}

func (s *recordingSink) ApplyEvents(seq uint64, events []roster.Event) roster.Tally {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applied = append(s.applied, seq)
	return s.roster.ApplyAll(events)
}

func (s *recordingSink) FetchFailed(seq uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = append(s.failed, seq)
}

func (s *recordingSink) SetPhase(p Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phases = append(s.phases, p)
}

func (s *recordingSink) lastPhase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.phases) == 0 {
		return PhaseIdle
	}
	return s.phases[len(s.phases)-1]
}

func (s *recordingSink) appliedSeqs() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint64(nil), s.applied...)
}

func (s *recordingSink) slot(id string) roster.AgentSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, _ := s.roster.Slot(id)
	return slot
}

// gatedSource answers the nth call with replies[n]. Calls listed in gates
// block until the gate channel is closed.
type gatedSource struct {
	mu      sync.Mutex
	calls   int
	replies []reply
	gates   map[int]chan struct{}
}

type reply struct {
	events []roster.Event
	err    error
}

func (g *gatedSource) Fetch(ctx context.Context) ([]roster.Event, error) {
	g.mu.Lock()
	n := g.calls
	g.calls++
	gate := g.gates[n]
	g.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if n >= len(g.replies) {
		return nil, nil
	}
	return g.replies[n].events, g.replies[n].err
}

func (g *gatedSource) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func runLoop(t *testing.T, l *Loop) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	finished := make(chan struct{})
	go func() {
		errc <- l.Run(ctx)
		close(finished)
	}()
	t.Cleanup(func() {
		cancel()
		<-finished
	})
	return cancel, errc
}

func TestLoopStartStopSettles(t *testing.T) {
	src := &gatedSource{replies: []reply{
		{events: []roster.Event{{ID: "cleaner", Status: "working"}}},
		{events: []roster.Event{{ID: "cleaner", Status: "complete"}}},
	}}
	sink := newRecordingSink()
	var settles int
	var mu sync.Mutex
	l := NewLoop(src, sink, WithInterval(time.Hour), WithOnSettle(func() {
		mu.Lock()
		settles++
		mu.Unlock()
	}))
	runLoop(t, l)

	if err := l.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, "first batch", func() bool { return len(sink.appliedSeqs()) == 1 })
	if got := sink.slot("cleaner").Status; got != roster.StatusWorking {
		t.Errorf("cleaner status = %v, want working", got)
	}

	if err := l.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	waitFor(t, "settle", func() bool { return sink.lastPhase() == PhaseSettled })
	if got := sink.slot("cleaner"); got.Status != roster.StatusComplete || got.Progress != 100 {
		t.Errorf("cleaner = %v/%d, want complete/100", got.Status, got.Progress)
	}

	mu.Lock()
	defer mu.Unlock()
	if settles != 1 {
		t.Errorf("OnSettle calls = %d, want 1", settles)
	}
}

func TestLoopDiscardsOlderResponse(t *testing.T) {
	release := make(chan struct{})
	src := &gatedSource{
		replies: []reply{
			{events: []roster.Event{{ID: "sql", Status: "working"}}},
			{events: []roster.Event{{ID: "sql", Status: "complete"}}},
		},
		gates: map[int]chan struct{}{0: release},
	}
	sink := newRecordingSink()
	l := NewLoop(src, sink, WithInterval(time.Hour))
	runLoop(t, l)

	_ = l.Start()
	waitFor(t, "first fetch", func() bool { return src.callCount() == 1 })
	_ = l.Stop()
	waitFor(t, "final batch", func() bool { return len(sink.appliedSeqs()) == 1 })
	close(release)
	time.Sleep(50 * time.Millisecond)

	if got := sink.appliedSeqs(); len(got) != 1 || got[0] != 2 {
		t.Errorf("applied seqs = %v, want [2]", got)
	}
	if got := sink.slot("sql").Status; got != roster.StatusComplete {
		t.Errorf("sql status = %v, want complete", got)
	}
}

func TestLoopFetchFailureKeepsState(t *testing.T) {
	src := &gatedSource{replies: []reply{
		{events: []roster.Event{{ID: "report", Status: "working"}}},
		{err: errors.New("connection refused")},
	}}
	sink := newRecordingSink()
	l := NewLoop(src, sink, WithInterval(time.Hour))
	runLoop(t, l)

	_ = l.Start()
	waitFor(t, "first batch", func() bool { return len(sink.appliedSeqs()) == 1 })
	_ = l.Stop()
	waitFor(t, "settle", func() bool { return sink.lastPhase() == PhaseSettled })

	sink.mu.Lock()
	failed := append([]uint64(nil), sink.failed...)
	sink.mu.Unlock()
	if len(failed) != 1 || failed[0] != 2 {
		t.Errorf("failed seqs = %v, want [2]", failed)
	}
	if got := sink.slot("report").Status; got != roster.StatusWorking {
		t.Errorf("report status = %v, want working after failed fetch", got)
	}
}

func TestLoopTicksWhileRunning(t *testing.T) {
	src := &gatedSource{}
	sink := newRecordingSink()
	l := NewLoop(src, sink, WithInterval(10*time.Millisecond))
	runLoop(t, l)

	_ = l.Start()
	waitFor(t, "several ticks", func() bool { return len(sink.appliedSeqs()) >= 3 })
}

func TestLoopStartResetsRoster(t *testing.T) {
	src := &gatedSource{replies: []reply{
		{events: []roster.Event{{ID: "debate", Status: "working"}}},
	}}
	sink := newRecordingSink()
	l := NewLoop(src, sink, WithInterval(time.Hour))
	runLoop(t, l)

	_ = l.Start()
	waitFor(t, "first batch", func() bool { return len(sink.appliedSeqs()) == 1 })
	_ = l.Start()
	waitFor(t, "second run", func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return sink.runs == 2
	})
	if got := sink.slot("debate").Status; got != roster.StatusIdle {
		t.Errorf("debate status after restart = %v, want idle", got)
	}
}

func TestLoopResetCancelsRun(t *testing.T) {
	release := make(chan struct{})
	src := &gatedSource{
		replies: []reply{{events: []roster.Event{{ID: "planner", Status: "working"}}}},
		gates:   map[int]chan struct{}{0: release},
	}
	sink := newRecordingSink()
	l := NewLoop(src, sink, WithInterval(time.Hour))
	runLoop(t, l)

	_ = l.Start()
	_ = l.Reset()
	waitFor(t, "reset", func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return sink.resets == 2
	})
	if sink.lastPhase() != PhaseIdle {
		t.Errorf("phase after reset = %s, want idle", sink.lastPhase())
	}
	close(release)
	time.Sleep(50 * time.Millisecond)

	if got := sink.appliedSeqs(); len(got) != 0 {
		t.Errorf("applied seqs after reset = %v, want none", got)
	}
}

func TestLoopTeardownDiscardsLateResults(t *testing.T) {
	release := make(chan struct{})
	src := &gatedSource{
		replies: []reply{{events: []roster.Event{{ID: "narrative", Status: "working"}}}},
		gates:   map[int]chan struct{}{0: release},
	}
	sink := newRecordingSink()
	l := NewLoop(src, sink, WithInterval(time.Hour))
	cancel, errc := runLoop(t, l)

	_ = l.Start()
	waitFor(t, "first fetch", func() bool { return src.callCount() == 1 })
	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Run = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	close(release)
	time.Sleep(20 * time.Millisecond)

	if sink.lastPhase() != PhaseCancelled {
		t.Errorf("last phase = %s, want cancelled", sink.lastPhase())
	}
	if got := sink.appliedSeqs(); len(got) != 0 {
		t.Errorf("applied after teardown = %v, want none", got)
	}
	if err := l.Start(); !errors.Is(err, ErrLoopClosed) {
		t.Errorf("Start after teardown = %v, want ErrLoopClosed", err)
	}
}
