// ABOUTME: Tests for the SQLite run and chart history.
// ABOUTME: Covers upsert, ordering, not-found handling, and JSON round trips of slots and records.
package store_test

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/2389-research/tusk/roster"
	"github.com/2389-research/tusk/store"
	"github.com/google/go-cmp/cmp"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func openHistory(t *testing.T) *store.History {
	t.Helper()
	h, err := store.OpenSqlite(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenSqlite: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func finishedRoster(t *testing.T) []roster.AgentSlot {
	t.Helper()
	r := roster.New(roster.WithClock(func() time.Time { return base }))
	r.ApplyAll([]roster.Event{
		{ID: "cleaner", Status: "working"},
		{ID: "cleaner", Status: "complete", Message: "cleaned 40 rows"},
		{ID: "sql", Status: "working"},
		{ID: "sql", Status: "error", Message: "syntax error"},
	})
	return r.Snapshot()
}

func TestSaveAndGetRun(t *testing.T) {
	h := openHistory(t)
	run := store.RunRecord{
		RunID:     "01JRUN0000000000000000000A",
		SessionID: "session-1",
		StartedAt: base,
		SettledAt: base.Add(30 * time.Second),
		Failures:  2,
		Agents:    finishedRoster(t),
	}
	if err := h.SaveRun(run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := h.GetRun(run.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if diff := cmp.Diff(run, got); diff != "" {
		t.Errorf("GetRun mismatch (-want +got):\n%s", diff)
	}
}

func TestGetRunNotFound(t *testing.T) {
	h := openHistory(t)
	_, err := h.GetRun("missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetRun err = %v, want ErrNotFound", err)
	}
}

func TestSaveRunRequiresID(t *testing.T) {
	if err := openHistory(t).SaveRun(store.RunRecord{}); err == nil {
		t.Error("SaveRun with empty id succeeded")
	}
}

func TestSaveRunUpserts(t *testing.T) {
	h := openHistory(t)
	run := store.RunRecord{RunID: "r1", SessionID: "s", StartedAt: base, SettledAt: base}
	if err := h.SaveRun(run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	run.Failures = 5
	run.Agents = finishedRoster(t)
	if err := h.SaveRun(run); err != nil {
		t.Fatalf("SaveRun again: %v", err)
	}
	runs, err := h.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("len(runs) = %d, want 1", len(runs))
	}
	if runs[0].Failures != 5 || runs[0].Complete != 1 || runs[0].Errored != 1 {
		t.Errorf("summary = %+v, want failures 5, complete 1, errored 1", runs[0])
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	h := openHistory(t)
	for i, id := range []string{"a", "b", "c"} {
		run := store.RunRecord{
			RunID:     id,
			SessionID: "s",
			StartedAt: base,
			SettledAt: base.Add(time.Duration(i) * time.Millisecond * 500),
		}
		if err := h.SaveRun(run); err != nil {
			t.Fatalf("SaveRun(%s): %v", id, err)
		}
	}
	runs, err := h.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	var ids []string
	for _, r := range runs {
		ids = append(ids, r.RunID)
	}
	if diff := cmp.Diff([]string{"c", "b"}, ids); diff != "" {
		t.Errorf("ListRuns order (-want +got):\n%s", diff)
	}
}

func TestSaveAndListCharts(t *testing.T) {
	h := openHistory(t)
	charts := []store.ChartRecord{
		{
			ChartID:   "c2",
			RunID:     "r1",
			Family:    "bar",
			Payload:   json.RawMessage(`[{"k":"a","v":1}]`),
			Records:   json.RawMessage(`[{"label":"a","value":1}]`),
			CreatedAt: base.Add(time.Second),
		},
		{
			ChartID:     "c1",
			RunID:       "r1",
			Family:      "table",
			Payload:     json.RawMessage(`{}`),
			Records:     json.RawMessage(`[]`),
			Unsupported: true,
			CreatedAt:   base,
		},
		{ChartID: "c3", Family: "pie", CreatedAt: base},
	}
	for _, c := range charts {
		if err := h.SaveChart(c); err != nil {
			t.Fatalf("SaveChart(%s): %v", c.ChartID, err)
		}
	}

	got, err := h.ListCharts("r1")
	if err != nil {
		t.Fatalf("ListCharts: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ChartID != "c1" || !got[0].Unsupported {
		t.Errorf("got[0] = %+v, want unsupported c1 first", got[0])
	}
	if string(got[1].Records) != `[{"label":"a","value":1}]` {
		t.Errorf("records = %s", got[1].Records)
	}

	loose, err := h.ListCharts("")
	if err != nil {
		t.Fatalf("ListCharts(\"\"): %v", err)
	}
	if len(loose) != 1 || string(loose[0].Payload) != "null" {
		t.Errorf("loose charts = %+v, want c3 with null payload", loose)
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	h, err := store.OpenSqlite(path)
	if err != nil {
		t.Fatalf("OpenSqlite: %v", err)
	}
	if err := h.SaveRun(store.RunRecord{RunID: "keep", SessionID: "s", StartedAt: base, SettledAt: base}); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	_ = h.Close()

	h2, err := store.OpenSqlite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = h2.Close() }()
	if _, err := h2.GetRun("keep"); err != nil {
		t.Errorf("GetRun after reopen: %v", err)
	}
}
