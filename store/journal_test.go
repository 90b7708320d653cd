// ABOUTME: Tests for the JSONL batch journal: append, replay, repair, and roster rebuild.
// ABOUTME: Uses temp dirs so every test writes its own journal file.
package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/2389-research/tusk/roster"
	"github.com/2389-research/tusk/store"
)

func TestJournalAppendReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.jsonl")
	j, err := store.OpenJournal(path)
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}
	batches := []store.Batch{
		{RunID: "r1", Seq: 1, At: base, Events: []roster.Event{{ID: "cleaner", Status: "working"}}},
		{RunID: "r1", Seq: 2, At: base, Events: []roster.Event{{ID: "cleaner", Status: "done"}}},
	}
	for _, b := range batches {
		if err := j.Append(b); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, err := store.ReplayJournal(path)
	if err != nil {
		t.Fatalf("ReplayJournal: %v", err)
	}
	if len(got) != 2 || got[1].Seq != 2 || got[1].Events[0].Status != "done" {
		t.Errorf("replayed = %+v", got)
	}
}

func TestJournalRepairDropsPartialLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	content := `{"run_id":"r1","seq":1,"at":"2026-03-01T12:00:00Z","events":[]}` + "\n" +
		"\n" +
		`{"run_id":"r1","seq":2,"at":"2026-03-01T12:00:01Z","ev`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := store.ReplayJournal(path); err == nil {
		t.Fatal("ReplayJournal of truncated file succeeded")
	}

	kept, err := store.RepairJournal(path)
	if err != nil {
		t.Fatalf("RepairJournal: %v", err)
	}
	if kept != 1 {
		t.Errorf("kept = %d, want 1", kept)
	}
	got, err := store.ReplayJournal(path)
	if err != nil {
		t.Fatalf("ReplayJournal after repair: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("len = %d, want 1", len(got))
	}
}

func TestRebuildFiltersByRun(t *testing.T) {
	batches := []store.Batch{
		{RunID: "old", Events: []roster.Event{{ID: "sql", Status: "working"}}},
		{RunID: "new", Events: []roster.Event{{ID: "chart", Status: "working"}}},
		{RunID: "new", Events: []roster.Event{{ID: "chart", Status: "complete"}, {ID: "ghost", Status: "working"}}},
	}
	r, tally := store.Rebuild(batches, "new")
	if tally.Accepted != 2 || tally.Unresolved != 1 {
		t.Errorf("tally = %+v, want 2 accepted 1 unresolved", tally)
	}
	if s, _ := r.Slot("chart"); s.Status != roster.StatusComplete {
		t.Errorf("chart = %v, want complete", s.Status)
	}
	if s, _ := r.Slot("sql"); s.Status != roster.StatusIdle {
		t.Errorf("sql = %v, want idle from other run", s.Status)
	}
}
