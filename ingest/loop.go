// ABOUTME: Loop drives a Scheduler against a Source on a ticker and folds results into a Sink.
// ABOUTME: All reconciliation happens on the Run goroutine; fetches run concurrently and report back over a channel.
package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/2389-research/tusk/roster"
)

const (
	// DefaultInterval is the polling period while a run is in progress.
	DefaultInterval = time.Second
	// DefaultTimeout bounds a single fetch.
	DefaultTimeout = 10 * time.Second
)

// ErrLoopClosed is returned by control calls after Run has exited.
var ErrLoopClosed = errors.New("ingest loop closed")

// Sink receives reconciled state. The Loop calls every method from its Run
// goroutine, so implementations need no locking of their own for writes.
type Sink interface {
	// BeginRun marks the start of a new run after the roster was reset.
	BeginRun()
	// Reset returns every slot to idle.
	Reset()
	// ApplyEvents folds one admitted batch into the roster.
	ApplyEvents(seq uint64, events []roster.Event) roster.Tally
	// FetchFailed records a failed fetch. State is kept.
	FetchFailed(seq uint64, err error)
	// SetPhase publishes the polling phase.
	SetPhase(p Phase)
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithInterval sets the polling period.
func WithInterval(d time.Duration) LoopOption {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithTimeout sets the per-fetch timeout.
func WithTimeout(d time.Duration) LoopOption {
	return func(l *Loop) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithOnSettle registers a callback invoked on the Run goroutine once per run,
// after the final fetch completes.
func WithOnSettle(fn func()) LoopOption {
	return func(l *Loop) {
		l.onSettle = fn
	}
}

type command int

const (
	cmdStart command = iota
	cmdStop
	cmdReset
)

// Loop polls a Source while a run is in progress.
type Loop struct {
	source   Source
	interval time.Duration
	timeout  time.Duration
	onSettle func()

	driver  *Driver
	control chan command
	results chan FetchResult
	done    chan struct{}
}

// NewLoop creates a Loop. Call Run to start processing.
func NewLoop(source Source, sink Sink, opts ...LoopOption) *Loop {
	l := &Loop{
		source:   source,
		interval: DefaultInterval,
		timeout:  DefaultTimeout,
		control:  make(chan command, 8),
		results:  make(chan FetchResult, 8),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.driver = NewDriver(sink, l.onSettle)
	return l
}

// Start resets the roster and begins polling.
func (l *Loop) Start() error { return l.send(cmdStart) }

// Stop ends polling after one final fetch.
func (l *Loop) Stop() error { return l.send(cmdStop) }

// Reset cancels any run and returns every slot to idle.
func (l *Loop) Reset() error { return l.send(cmdReset) }

func (l *Loop) send(c command) error {
	select {
	case <-l.done:
		return ErrLoopClosed
	default:
	}
	select {
	case l.control <- c:
		return nil
	case <-l.done:
		return ErrLoopClosed
	}
}

// Run processes control messages, ticks and fetch results until ctx is
// cancelled. On cancellation the scheduler is torn down and late results are
// discarded. Run must be called at most once.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)

	ticker := time.NewTicker(l.interval)
	ticker.Stop()
	defer ticker.Stop()
	var tick <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			l.driver.Teardown()
			return nil

		case c := <-l.control:
			switch c {
			case cmdStart:
				l.driver.Start()
				ticker.Reset(l.interval)
				tick = ticker.C
				l.issue(ctx)
			case cmdStop:
				if !l.driver.Stop() {
					continue
				}
				ticker.Stop()
				tick = nil
				l.issue(ctx)
			case cmdReset:
				ticker.Stop()
				tick = nil
				l.driver.Reset()
			}

		case <-tick:
			l.issue(ctx)

		case res := <-l.results:
			l.driver.Complete(res)
		}
	}
}

// issue launches the next fetch on its own goroutine. The fetch outlives ctx
// cancellation up to its own timeout; its result is dropped once Run has
// returned.
func (l *Loop) issue(ctx context.Context) {
	t, ok := l.driver.Next()
	if !ok {
		return
	}
	fetchCtx := context.WithoutCancel(ctx)
	go func() {
		res := Fetch(fetchCtx, l.source, t, l.timeout)
		select {
		case l.results <- res:
		case <-l.done:
		}
	}()
}
