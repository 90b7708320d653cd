// ABOUTME: Server-sent event stream of board views for the live dashboard.
// ABOUTME: Each published view is sent as a "board" event; idle streams get periodic keepalive comments.
package web

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/2389-research/tusk/board"
)

// SSEEvent is one server-sent event.
type SSEEvent struct {
	Event string // event type
	Data  string // JSON-encoded event data
}

// Format renders the SSEEvent as a properly formatted SSE message string.
// The format follows the SSE spec: "event: <type>\ndata: <data>\n\n".
func (e SSEEvent) Format() string {
	return fmt.Sprintf("event: %s\ndata: %s\n\n", e.Event, e.Data)
}

// viewToSSE converts a board view into a "board" event.
func viewToSSE(v board.View) (SSEEvent, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return SSEEvent{}, fmt.Errorf("marshal board view: %w", err)
	}
	return SSEEvent{Event: "board", Data: string(data)}, nil
}

// handleEvents streams board views until the client disconnects. The
// current view is sent first; a slow client skips intermediate views.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, canFlush := w.(http.Flusher)
	views, cancel := s.board.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if canFlush {
		flusher.Flush()
	}

	keepalive := time.NewTicker(s.heartbeat)
	defer keepalive.Stop()

	for {
		select {
		case v, ok := <-views:
			if !ok {
				return
			}
			evt, err := viewToSSE(v)
			if err != nil {
				log.Printf("component=web action=sse_encode_failed err=%v", err)
				continue
			}
			if _, err := fmt.Fprint(w, evt.Format()); err != nil {
				return
			}
		case <-keepalive.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
		if canFlush {
			flusher.Flush()
		}
	}
}
