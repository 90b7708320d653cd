// ABOUTME: Ingest sink that forwards to the board and appends every admitted batch to the JSONL journal.
// ABOUTME: Journal write failures are logged and never interrupt polling.
package main

import (
	"log"
	"time"

	"github.com/2389-research/tusk/board"
	"github.com/2389-research/tusk/roster"
	"github.com/2389-research/tusk/store"
)

type journalSink struct {
	*board.Board
	journal *store.Journal
	now     func() time.Time
}

func newJournalSink(b *board.Board, j *store.Journal) *journalSink {
	return &journalSink{Board: b, journal: j, now: time.Now}
}

// ApplyEvents applies the batch to the board first so the journal only
// records batches the board has seen.
func (s *journalSink) ApplyEvents(seq uint64, events []roster.Event) roster.Tally {
	tally := s.Board.ApplyEvents(seq, events)
	batch := store.Batch{
		RunID:  s.Board.View().RunID,
		Seq:    seq,
		At:     s.now().UTC(),
		Events: events,
	}
	if err := s.journal.Append(batch); err != nil {
		log.Printf("component=journal action=append_failed seq=%d err=%v", seq, err)
	}
	return tally
}
