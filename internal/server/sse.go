// internal/server/sse.go
package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/user/gitscout/internal/stream"
)

// sseWriter writes server-sent events and flushes after every event so the
// client sees each one as it happens, not when the response buffer fills.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// newSSEWriter prepares the response for event streaming. Fails when the
// underlying writer cannot flush, which would silently buffer the stream.
func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	// Tells nginx-style proxies not to buffer the stream.
	w.Header().Set("X-Accel-Buffering", "no")

	return &sseWriter{w: w, flusher: flusher}, nil
}

// Send serializes one event as a `data:` frame and flushes it.
func (s *sseWriter) Send(ev stream.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	s.flusher.Flush()
	return nil
}
