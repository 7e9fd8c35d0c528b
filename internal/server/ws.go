package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ledgerloft/treasuryd/internal/realtime"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings with this period (must be less than pongWait).
	pingPeriod = (pongWait * 9) / 10

	// Max inbound message size.
	maxMessageSize = 4 * 1024

	// Outbound queue depth before a connection is considered stuck.
	sendQueueSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict to the web app origin once it is configurable
		return true
	},
}

// wsSink adapts a gorilla websocket connection to realtime.Sink. Send
// enqueues onto a buffered channel drained by the write pump, so the
// emitter never blocks on a slow peer; a full queue is a stuck client
// and counted as a send failure.
type wsSink struct {
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func newWSSink(conn *websocket.Conn) *wsSink {
	return &wsSink{
		conn: conn,
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
	}
}

func (s *wsSink) Send(payload []byte) error {
	select {
	case <-s.done:
		return realtime.ErrClosed
	default:
	}
	select {
	case s.send <- payload:
		return nil
	default:
		return errSendQueueFull
	}
}

func (s *wsSink) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

var errSendQueueFull = &queueFullError{}

type queueFullError struct{}

func (*queueFullError) Error() string { return "send queue full" }

// handleWebSocket handles GET /v1/stream: upgrade, register the
// connection and run the read/write pumps until either side goes away.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	identity, err := s.identityFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "identity", identity, "error", err)
		return
	}

	sink := newWSSink(conn)
	connID, err := s.registry.Register(identity, sink)
	if err != nil {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}

	slog.Info("websocket connected", "identity", identity, "conn_id", connID)

	go s.writePump(conn, sink, identity)
	s.readPump(conn, sink, identity, connID)
}

// readPump reads inbound frames until the peer disconnects. Every frame
// and every pong counts as activity for presence purposes. Frame
// contents are ignored; the stream is server-to-client.
func (s *Server) readPump(conn *websocket.Conn, sink *wsSink, identity, connID string) {
	defer func() {
		s.registry.Unregister(connID)
		sink.Close()
		conn.Close()
		slog.Info("websocket disconnected", "identity", identity, "conn_id", connID)
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		s.registry.Touch(connID)
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket unexpected close", "identity", identity, "error", err)
			}
			return
		}
		s.registry.Touch(connID)
	}
}

// writePump drains the sink's outbound queue onto the socket and keeps
// the connection alive with periodic pings.
func (s *Server) writePump(conn *websocket.Conn, sink *wsSink, identity string) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-sink.done:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case payload := <-sink.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				slog.Warn("websocket write failed", "identity", identity, "error", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
