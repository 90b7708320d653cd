// ABOUTME: Append-only JSONL journal of admitted status batches for offline replay.
// ABOUTME: Provides crash-tolerant append, sequential replay, and repair of truncated trailing lines.
package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/2389-research/tusk/roster"
)

// Batch is one admitted fetch response.
type Batch struct {
	RunID  string         `json:"run_id"`
	Seq    uint64         `json:"seq"`
	At     time.Time      `json:"at"`
	Events []roster.Event `json:"events"`
}

// Journal is an append-only JSONL file of batches. It is safe for
// concurrent use.
type Journal struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// OpenJournal opens (or creates) a journal at path in append mode, creating
// parent directories as needed.
func OpenJournal(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create parent dirs: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &Journal{path: path, file: file}, nil
}

// Path returns the journal file path.
func (j *Journal) Path() string {
	return j.path
}

// Append writes one batch as a line and fsyncs.
func (j *Journal) Append(b Batch) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write batch line: %w", err)
	}
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("fsync: %w", err)
	}
	return nil
}

// Close closes the journal file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}

// ReplayJournal reads every batch from a journal in order. Empty lines are
// skipped; a malformed line is an error.
func ReplayJournal(path string) ([]Batch, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open journal for replay: %w", err)
	}
	defer func() { _ = file.Close() }()

	var out []Batch
	scanner := newLineScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var b Batch
		if err := json.Unmarshal([]byte(text), &b); err != nil {
			return nil, fmt.Errorf("parse journal line %d: %w", line, err)
		}
		out = append(out, b)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan journal: %w", err)
	}
	return out, nil
}

// RepairJournal keeps only complete, parseable lines, rewriting the file
// through a temp file and rename. Returns the count of batches retained.
func RepairJournal(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open journal for repair: %w", err)
	}
	var valid []string
	scanner := newLineScanner(file)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var b Batch
		if json.Unmarshal([]byte(text), &b) == nil {
			valid = append(valid, text)
		}
	}
	scanErr := scanner.Err()
	_ = file.Close()
	if scanErr != nil {
		return 0, fmt.Errorf("scan journal for repair: %w", scanErr)
	}

	tmp := path + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("create temp journal: %w", err)
	}
	w := bufio.NewWriter(out)
	for _, l := range valid {
		_, _ = w.WriteString(l)
		_ = w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		_ = out.Close()
		return 0, fmt.Errorf("write temp journal: %w", err)
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return 0, fmt.Errorf("fsync temp journal: %w", err)
	}
	if err := out.Close(); err != nil {
		return 0, fmt.Errorf("close temp journal: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return 0, fmt.Errorf("replace journal: %w", err)
	}
	return len(valid), nil
}

// Rebuild folds batches into a fresh roster in journal order. Batches from
// runs other than runID are skipped unless runID is empty.
func Rebuild(batches []Batch, runID string, opts ...roster.Option) (*roster.Roster, roster.Tally) {
	r := roster.New(opts...)
	var total roster.Tally
	for _, b := range batches {
		if runID != "" && b.RunID != runID {
			continue
		}
		t := r.ApplyAll(b.Events)
		total.Accepted += t.Accepted
		total.Duplicate += t.Duplicate
		total.Rejected += t.Rejected
		total.Unresolved += t.Unresolved
	}
	return r, total
}

func newLineScanner(f *os.File) *bufio.Scanner {
	s := bufio.NewScanner(f)
	s.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	return s
}
