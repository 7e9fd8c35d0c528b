package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ledgerloft/treasuryd/internal/realtime"
)

// sseKeepaliveInterval is how often keepalive comments are sent to
// prevent proxy connection timeouts.
const sseKeepaliveInterval = 15 * time.Second

// sseSink adapts a Server-Sent Events response to realtime.Sink. Like
// the websocket sink it decouples delivery from the network through a
// buffered channel drained by the handler goroutine.
type sseSink struct {
	ch   chan []byte
	done chan struct{}

	closeOnce sync.Once
}

func newSSESink() *sseSink {
	return &sseSink{
		ch:   make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
	}
}

func (s *sseSink) Send(payload []byte) error {
	select {
	case <-s.done:
		return realtime.ErrClosed
	default:
	}
	select {
	case s.ch <- payload:
		return nil
	default:
		return errSendQueueFull
	}
}

// Close is invoked by the registry; the handler goroutine observes done
// and unwinds the response.
func (s *sseSink) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// handleEventStream handles GET /v1/events/stream, the SSE fallback for
// clients that cannot hold a WebSocket. SSE carries no inbound frames,
// so each successful keepalive write stands in as proof of life and
// refreshes the connection's activity.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	identity, err := s.identityFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	sink := newSSESink()
	connID, err := s.registry.Register(identity, sink)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "shutting down")
		return
	}
	defer s.registry.Unregister(connID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	slog.Info("sse connected", "identity", identity, "conn_id", connID)
	defer slog.Info("sse disconnected", "identity", identity, "conn_id", connID)

	ctx := r.Context()
	keepalive := time.NewTicker(sseKeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sink.done:
			return
		case payload := <-sink.ch:
			if _, err := fmt.Fprintf(w, "data:%s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
			s.registry.Touch(connID)
		case <-keepalive.C:
			if _, err := fmt.Fprintf(w, ":keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
			s.registry.Touch(connID)
		}
	}
}
