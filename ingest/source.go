// ABOUTME: Status sources the ingestion loop polls: HTTP endpoint, JSON file, or a plain function.
// ABOUTME: Every source returns decoded roster events; transport errors and bad payloads surface as errors.
package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/2389-research/tusk/roster"
)

// maxPayloadBytes bounds how much of a status response is read.
const maxPayloadBytes = 8 << 20

// Source produces the current batch of status events.
type Source interface {
	Fetch(ctx context.Context) ([]roster.Event, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) ([]roster.Event, error)

// Fetch calls f.
func (f SourceFunc) Fetch(ctx context.Context) ([]roster.Event, error) {
	return f(ctx)
}

// HTTPSource polls a status endpoint with GET.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

// NewHTTPSource creates an HTTPSource whose client enforces the given timeout.
// A non-positive timeout defaults to 10 seconds.
func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSource{
		URL:    url,
		Client: &http.Client{Timeout: timeout},
	}
}

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context) ([]roster.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build status request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch status: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch status: unexpected HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, fmt.Errorf("read status body: %w", err)
	}
	events, err := Decode(body)
	if err != nil {
		return nil, fmt.Errorf("decode status body: %w", err)
	}
	return events, nil
}

// FileSource reads a JSON status document from disk on every fetch.
type FileSource struct {
	Path string
}

// Fetch implements Source.
func (s FileSource) Fetch(ctx context.Context) ([]roster.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read status file: %w", err)
	}
	events, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode status file %s: %w", s.Path, err)
	}
	return events, nil
}
