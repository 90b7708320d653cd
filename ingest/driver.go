// ABOUTME: Driver applies Scheduler policy to fetch results and forwards what survives to a Sink.
// ABOUTME: Event loops that issue their own fetches (the Loop, the TUI) share it; it is not safe for concurrent use.
package ingest

import (
	"context"
	"log"
	"time"

	"github.com/2389-research/tusk/metrics"
	"github.com/2389-research/tusk/roster"
)

// FetchResult is the outcome of one ticketed fetch.
type FetchResult struct {
	Ticket  Ticket
	Events  []roster.Event
	Err     error
	Elapsed time.Duration
}

// Fetch runs one fetch against src, bounded by timeout when positive.
func Fetch(ctx context.Context, src Source, t Ticket, timeout time.Duration) FetchResult {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	began := time.Now()
	events, err := src.Fetch(ctx)
	return FetchResult{Ticket: t, Events: events, Err: err, Elapsed: time.Since(began)}
}

// Driver owns a Scheduler and the Sink it feeds.
type Driver struct {
	sched    *Scheduler
	sink     Sink
	onSettle func()
	reported bool
}

// NewDriver creates a Driver over a fresh Scheduler. onSettle may be nil.
func NewDriver(sink Sink, onSettle func()) *Driver {
	return &Driver{sched: NewScheduler(), sink: sink, onSettle: onSettle}
}

// Scheduler exposes the underlying policy for inspection.
func (d *Driver) Scheduler() *Scheduler {
	return d.sched
}

// Start resets the sink and begins a new run.
func (d *Driver) Start() {
	d.sink.Reset()
	d.sched.Start()
	d.reported = false
	d.sink.BeginRun()
	d.sink.SetPhase(PhasePolling)
	metrics.Runs.WithLabelValues("started").Inc()
	log.Printf("component=ingest action=start generation=%d", d.sched.Generation())
}

// Stop arms the final fetch. Returns false when no run is in progress.
func (d *Driver) Stop() bool {
	if !d.sched.Stop() {
		log.Printf("component=ingest action=stop_ignored phase=%s", d.sched.Phase())
		return false
	}
	d.sink.SetPhase(PhaseFinalizing)
	log.Printf("component=ingest action=stop generation=%d", d.sched.Generation())
	return true
}

// Reset cancels any run and returns every slot to idle.
func (d *Driver) Reset() {
	d.sched.Cancel()
	d.sink.Reset()
	d.sink.SetPhase(PhaseIdle)
	log.Printf("component=ingest action=reset generation=%d", d.sched.Generation())
}

// Teardown cancels the scheduler for good. Outstanding results are discarded.
func (d *Driver) Teardown() {
	inflight := d.sched.InFlight()
	d.sched.Cancel()
	d.sink.SetPhase(PhaseCancelled)
	log.Printf("component=ingest action=teardown inflight_discarded=%d", inflight)
}

// Next returns the next ticket to fetch, if the scheduler wants one.
func (d *Driver) Next() (Ticket, bool) {
	return d.sched.Issue()
}

// Complete folds one fetch result. It returns the verdict for successful
// fetches; failed fetches report VerdictApply when counted and
// VerdictCancelled when ignored.
func (d *Driver) Complete(res FetchResult) Verdict {
	metrics.FetchDuration.Observe(res.Elapsed.Seconds())
	t := res.Ticket

	if res.Err != nil {
		if !d.sched.Fail(t) {
			metrics.Fetches.WithLabelValues("cancelled").Inc()
			return VerdictCancelled
		}
		metrics.Fetches.WithLabelValues("failed").Inc()
		log.Printf("component=ingest action=fetch_failed seq=%d err=%v", t.Seq, res.Err)
		d.sink.FetchFailed(t.Seq, res.Err)
		d.settleIfDone()
		return VerdictApply
	}

	verdict := d.sched.Admit(t)
	switch verdict {
	case VerdictCancelled:
		metrics.Fetches.WithLabelValues("cancelled").Inc()
		return verdict
	case VerdictStale:
		metrics.Fetches.WithLabelValues("stale").Inc()
		log.Printf("component=ingest action=discard_stale seq=%d highest=%d", t.Seq, d.sched.HighestApplied())
	case VerdictApply:
		metrics.Fetches.WithLabelValues("ok").Inc()
		tally := d.sink.ApplyEvents(t.Seq, res.Events)
		if tally.Changed() || tally.Rejected > 0 {
			log.Printf("component=ingest action=apply seq=%d accepted=%d duplicate=%d rejected=%d unresolved=%d",
				t.Seq, tally.Accepted, tally.Duplicate, tally.Rejected, tally.Unresolved)
		}
	}
	d.settleIfDone()
	return verdict
}

// Settled reports whether the current run has settled.
func (d *Driver) Settled() bool {
	return d.sched.Settled()
}

func (d *Driver) settleIfDone() {
	if !d.sched.Settled() || d.reported {
		return
	}
	d.reported = true
	d.sink.SetPhase(PhaseSettled)
	metrics.Runs.WithLabelValues("settled").Inc()
	log.Printf("component=ingest action=settled generation=%d", d.sched.Generation())
	if d.onSettle != nil {
		d.onSettle()
	}
}
