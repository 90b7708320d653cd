// ABOUTME: Tests for the HTTP and file status sources.
// ABOUTME: Uses httptest servers and temp files; checks decoding, non-2xx handling, and context errors.
package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestHTTPSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"agents":[{"id":"sql","status":"working"}]}`))
	}))
	defer srv.Close()

	events, err := NewHTTPSource(srv.URL, time.Second).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 1 || events[0].ID != "sql" {
		t.Errorf("events = %+v, want one sql event", events)
	}
}

func TestHTTPSourceNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHTTPSource(srv.URL, time.Second).Fetch(context.Background())
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Errorf("Fetch err = %v, want HTTP 502 error", err)
	}
}

func TestHTTPSourceInvalidBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	_, err := NewHTTPSource(srv.URL, time.Second).Fetch(context.Background())
	if !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("Fetch err = %v, want ErrInvalidPayload", err)
	}
}

func TestHTTPSourceCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHTTPSource(srv.URL, time.Second).Fetch(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Fetch err = %v, want context.Canceled", err)
	}
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	if err := os.WriteFile(path, []byte(`{"cleaner":"done","sql":{"status":"working"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	events, err := FileSource{Path: path}.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	if events[0].ID != "cleaner" || events[0].Status != "done" {
		t.Errorf("events[0] = %+v, want cleaner/done", events[0])
	}
}

func TestFileSourceMissing(t *testing.T) {
	_, err := FileSource{Path: filepath.Join(t.TempDir(), "nope.json")}.Fetch(context.Background())
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Fetch err = %v, want os.ErrNotExist", err)
	}
}
