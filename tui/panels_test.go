// ABOUTME: Tests for the grid, detail, log, and status bar sub-models.
// ABOUTME: Checks selection wrapping, rendered content, log eviction, and elapsed-time reporting.
package tui

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/2389-research/tusk/board"
	"github.com/2389-research/tusk/ingest"
	"github.com/2389-research/tusk/roster"
)

func testSlots() []roster.AgentSlot {
	r := roster.New()
	return r.Snapshot()
}

func TestGridMoveWraps(t *testing.T) {
	g := NewGridPanelModel(testSlots())
	tests := []struct {
		dx, dy int
		want   int
	}{
		{1, 0, 1},
		{0, 1, 4},
		{-1, 0, 3},
		{0, -1, 0},
		{-1, 0, 8},
		{1, 0, 0},
		{0, -1, 6},
	}
	for i, tt := range tests {
		g.Move(tt.dx, tt.dy)
		if got := g.SelectedIndex(); got != tt.want {
			t.Errorf("step %d: SelectedIndex() = %d, want %d", i, got, tt.want)
		}
	}
}

func TestGridSelectionClampedOnShrink(t *testing.T) {
	g := NewGridPanelModel(testSlots())
	g.Move(-1, 0)
	g.SetAgents(testSlots()[:2])
	if got := g.SelectedIndex(); got != 0 {
		t.Errorf("SelectedIndex() = %d, want 0", got)
	}
	if _, ok := NewGridPanelModel(nil).Selected(); ok {
		t.Error("Selected() on empty grid should report false")
	}
}

func TestGridViewShowsEveryAgent(t *testing.T) {
	g := NewGridPanelModel(testSlots())
	g.SetWidth(120)
	out := g.View()
	for _, d := range roster.Definitions() {
		if !strings.Contains(out, d.DisplayName) {
			t.Errorf("grid view missing %q", d.DisplayName)
		}
	}
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		progress int
		want     string
	}{
		{0, "  0%"},
		{50, " 50%"},
		{100, "100%"},
		{-5, "  0%"},
		{250, "100%"},
	}
	for _, tt := range tests {
		got := ProgressBar(tt.progress, 20)
		if !strings.HasSuffix(got, tt.want) {
			t.Errorf("ProgressBar(%d) = %q, want suffix %q", tt.progress, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"much longer text", 8, "much ..."},
		{"abc", 2, "ab"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestDetailPanelView(t *testing.T) {
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ended := started.Add(1500 * time.Millisecond)
	d := NewDetailPanelModel()
	if !strings.Contains(d.View(), "No agent selected") {
		t.Error("empty detail panel should say no agent is selected")
	}

	d.SetAgent(roster.AgentSlot{
		ID:          "sql",
		DisplayName: "SQL Agent",
		Icon:        "🗄",
		Status:      roster.StatusComplete,
		Progress:    100,
		Message:     "ran 3 queries",
		Result:      json.RawMessage(`{ "rows": 12 }`),
		StartedAt:   &started,
		EndedAt:     &ended,
		Runs:        1,
	})
	out := d.View()
	for _, want := range []string{"SQL Agent", "complete", "1.5s", "ran 3 queries", `{"rows":12}`} {
		if !strings.Contains(out, want) {
			t.Errorf("detail view missing %q:\n%s", want, out)
		}
	}

	d.Clear()
	if !strings.Contains(d.View(), "No agent selected") {
		t.Error("Clear should remove the agent")
	}
}

func TestCompactJSON(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`"plain text"`, "plain text"},
		{`{ "a" : [1, 2] }`, `{"a":[1,2]}`},
		{`not json`, "not json"},
	}
	for _, tt := range tests {
		if got := compactJSON(json.RawMessage(tt.raw)); got != tt.want {
			t.Errorf("compactJSON(%s) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestLogPanelEvictsOldest(t *testing.T) {
	l := NewLogPanelModel(3)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, text := range []string{"one", "two", "three", "four"} {
		l.Add(at.Add(time.Duration(i)*time.Second), LevelInfo, text)
	}
	if l.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", l.Len())
	}
	entries := l.Entries()
	if entries[0].Text != "two" || entries[2].Text != "four" {
		t.Errorf("entries = %+v, want two..four", entries)
	}
}

func TestLogPanelDefaultCapacity(t *testing.T) {
	l := NewLogPanelModel(0)
	if l.max != 200 {
		t.Errorf("max = %d, want 200", l.max)
	}
}

func TestLogPanelView(t *testing.T) {
	l := NewLogPanelModel(10)
	l.SetSize(80, 10)
	if !strings.Contains(l.View(), "No activity yet") {
		t.Error("empty log should say there is no activity")
	}
	l.Add(time.Date(2026, 3, 1, 9, 30, 5, 0, time.UTC), LevelError, "fetch #3 failed")
	out := l.View()
	for _, want := range []string{"09:30:05", "error", "fetch #3 failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("log view missing %q:\n%s", want, out)
		}
	}
	l.SetFocused(true)
	if !l.IsFocused() || !strings.Contains(l.View(), "(focused)") {
		t.Error("focused log should say so in its title")
	}
}

func TestLogLevelString(t *testing.T) {
	tests := map[LogLevel]string{
		LevelInfo:    "info",
		LevelSuccess: "ok",
		LevelWarn:    "warn",
		LevelError:   "error",
	}
	for level, want := range tests {
		if got := level.String(); got != want {
			t.Errorf("LogLevel(%d).String() = %q, want %q", level, got, want)
		}
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{12 * time.Second, "12s"},
		{150 * time.Second, "2m30s"},
		{-time.Second, "0s"},
	}
	for _, tt := range tests {
		if got := formatElapsed(tt.d); got != tt.want {
			t.Errorf("formatElapsed(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestStatusBarElapsed(t *testing.T) {
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := NewStatusBarModel()
	s.now = func() time.Time { return started.Add(42 * time.Second) }
	if s.Elapsed() != 0 {
		t.Errorf("Elapsed() before a run = %v, want 0", s.Elapsed())
	}

	s.SetView(board.View{RunStartedAt: &started})
	if got := s.Elapsed(); got != 42*time.Second {
		t.Errorf("Elapsed() = %v, want 42s", got)
	}

	settled := started.Add(10 * time.Second)
	s.SetView(board.View{RunStartedAt: &started, SettledAt: &settled})
	if got := s.Elapsed(); got != 10*time.Second {
		t.Errorf("Elapsed() after settle = %v, want 10s", got)
	}
}

func TestStatusBarView(t *testing.T) {
	s := NewStatusBarModel()
	s.SetWidth(160)
	out := s.View()
	for _, want := range []string{"Run: none", "Phase: idle", "0/9 complete"} {
		if !strings.Contains(out, want) {
			t.Errorf("status bar missing %q: %s", want, out)
		}
	}

	slots := testSlots()
	slots[0].Status = roster.StatusComplete
	slots[1].Status = roster.StatusError
	s.SetView(board.View{
		RunID:     "01RUN",
		Phase:     ingest.PhasePolling,
		Agents:    slots,
		LastError: "connection refused",
		Failures:  2,
	})
	out = s.View()
	for _, want := range []string{"Run: 01RUN", "Phase: polling", "1/9 complete", "1 errored", "connection refused (2 failures)"} {
		if !strings.Contains(out, want) {
			t.Errorf("status bar missing %q: %s", want, out)
		}
	}
}
