// ABOUTME: SQLite-backed history of settled runs and the charts rendered during them.
// ABOUTME: Schema is created on open; agent snapshots and chart records are stored as JSON columns.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/2389-research/tusk/roster"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a requested run does not exist.
var ErrNotFound = errors.New("not found")

// timeLayout has fixed-width fractions so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RunRecord is one settled run with the final state of every slot.
type RunRecord struct {
	RunID     string             `json:"run_id"`
	SessionID string             `json:"session_id"`
	StartedAt time.Time          `json:"started_at"`
	SettledAt time.Time          `json:"settled_at"`
	Failures  int                `json:"failures"`
	Agents    []roster.AgentSlot `json:"agents"`
}

// Counts returns how many slots ended the run in each status.
func (r RunRecord) Counts() map[roster.Status]int {
	out := make(map[roster.Status]int, 4)
	for _, s := range r.Agents {
		out[s.Status]++
	}
	return out
}

// RunSummary is a run row for list queries, without the slot payload.
type RunSummary struct {
	RunID     string    `json:"run_id"`
	SessionID string    `json:"session_id"`
	StartedAt time.Time `json:"started_at"`
	SettledAt time.Time `json:"settled_at"`
	Failures  int       `json:"failures"`
	Complete  int       `json:"complete"`
	Errored   int       `json:"errored"`
}

// ChartRecord is one chart payload and its normalized records.
type ChartRecord struct {
	ChartID     string          `json:"chart_id"`
	RunID       string          `json:"run_id,omitempty"`
	Family      string          `json:"family"`
	Payload     json.RawMessage `json:"payload"`
	Records     json.RawMessage `json:"records"`
	Unsupported bool            `json:"unsupported"`
	CreatedAt   time.Time       `json:"created_at"`
}

// History is the SQLite run and chart history.
type History struct {
	db *sql.DB
}

// OpenSqlite opens or creates a history database at the given path.
func OpenSqlite(path string) (*History, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			started_at TEXT NOT NULL,
			settled_at TEXT NOT NULL,
			failures INTEGER NOT NULL DEFAULT 0,
			complete INTEGER NOT NULL DEFAULT 0,
			errored INTEGER NOT NULL DEFAULT 0,
			agents TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS charts (
			chart_id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL DEFAULT '',
			family TEXT NOT NULL,
			payload TEXT NOT NULL,
			records TEXT NOT NULL,
			unsupported INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS charts_run_id ON charts(run_id);`

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &History{db: db}, nil
}

// Close closes the database connection.
func (h *History) Close() error {
	return h.db.Close()
}

// SaveRun upserts a run.
func (h *History) SaveRun(run RunRecord) error {
	if run.RunID == "" {
		return errors.New("save run: empty run id")
	}
	agents, err := json.Marshal(run.Agents)
	if err != nil {
		return fmt.Errorf("marshal agents: %w", err)
	}
	counts := run.Counts()
	_, err = h.db.Exec(
		`INSERT INTO runs (run_id, session_id, started_at, settled_at, failures, complete, errored, agents)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET
			settled_at = excluded.settled_at,
			failures = excluded.failures,
			complete = excluded.complete,
			errored = excluded.errored,
			agents = excluded.agents`,
		run.RunID,
		run.SessionID,
		run.StartedAt.UTC().Format(timeLayout),
		run.SettledAt.UTC().Format(timeLayout),
		run.Failures,
		counts[roster.StatusComplete],
		counts[roster.StatusError],
		string(agents),
	)
	if err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}
	return nil
}

// ListRuns returns the most recently settled runs first. A non-positive
// limit returns every run.
func (h *History) ListRuns(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := h.db.Query(
		`SELECT run_id, session_id, started_at, settled_at, failures, complete, errored
		 FROM runs ORDER BY settled_at DESC, run_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		var started, settled string
		if err := rows.Scan(&s.RunID, &s.SessionID, &started, &settled, &s.Failures, &s.Complete, &s.Errored); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		s.StartedAt = parseTime(started)
		s.SettledAt = parseTime(settled)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// GetRun loads one run with its slots.
func (h *History) GetRun(runID string) (RunRecord, error) {
	var run RunRecord
	var started, settled, agents string
	err := h.db.QueryRow(
		`SELECT run_id, session_id, started_at, settled_at, failures, agents FROM runs WHERE run_id = ?`,
		runID,
	).Scan(&run.RunID, &run.SessionID, &started, &settled, &run.Failures, &agents)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("query run: %w", err)
	}
	if err := json.Unmarshal([]byte(agents), &run.Agents); err != nil {
		return RunRecord{}, fmt.Errorf("unmarshal agents: %w", err)
	}
	run.StartedAt = parseTime(started)
	run.SettledAt = parseTime(settled)
	return run, nil
}

// SaveChart inserts or replaces a chart.
func (h *History) SaveChart(c ChartRecord) error {
	if c.ChartID == "" {
		return errors.New("save chart: empty chart id")
	}
	payload, records := orNull(c.Payload), orNull(c.Records)
	_, err := h.db.Exec(
		`INSERT INTO charts (chart_id, run_id, family, payload, records, unsupported, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(chart_id) DO UPDATE SET
			family = excluded.family,
			payload = excluded.payload,
			records = excluded.records,
			unsupported = excluded.unsupported`,
		c.ChartID,
		c.RunID,
		c.Family,
		string(payload),
		string(records),
		c.Unsupported,
		c.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("upsert chart: %w", err)
	}
	return nil
}

// ListCharts returns the charts recorded for a run, oldest first. An empty
// runID lists charts rendered outside any run.
func (h *History) ListCharts(runID string) ([]ChartRecord, error) {
	rows, err := h.db.Query(
		`SELECT chart_id, run_id, family, payload, records, unsupported, created_at
		 FROM charts WHERE run_id = ? ORDER BY created_at, chart_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query charts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ChartRecord
	for rows.Next() {
		var c ChartRecord
		var payload, records, created string
		if err := rows.Scan(&c.ChartID, &c.RunID, &c.Family, &payload, &records, &c.Unsupported, &created); err != nil {
			return nil, fmt.Errorf("scan chart: %w", err)
		}
		c.Payload = json.RawMessage(payload)
		c.Records = json.RawMessage(records)
		c.CreatedAt = parseTime(created)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate charts: %w", err)
	}
	return out, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func orNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}
