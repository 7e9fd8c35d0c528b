// Package server exposes the realtime core over HTTP: a WebSocket
// endpoint and an SSE fallback for browser clients, plus the narrow
// glue surface the treasury web app calls after its mutations commit
// (event emission and presence queries).
package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/ledgerloft/treasuryd/internal/events"
	"github.com/ledgerloft/treasuryd/internal/realtime"
	"github.com/ledgerloft/treasuryd/internal/store"
)

// Server wires the connection registry, emitter, activity store and bus
// publisher together behind the HTTP handlers.
type Server struct {
	registry  *realtime.Registry
	emitter   *realtime.Emitter
	store     store.Store
	publisher events.Publisher
	jwtSecret []byte
}

// New returns a Server over the given collaborators. jwtSecret may be
// empty; client sockets then identify via the identity query parameter
// (development mode, same stance as disabled bearer auth).
func New(reg *realtime.Registry, st store.Store, pub events.Publisher, jwtSecret string) *Server {
	return &Server{
		registry:  reg,
		emitter:   realtime.NewEmitter(reg),
		store:     st,
		publisher: pub,
		jwtSecret: []byte(jwtSecret),
	}
}

// Registry exposes the connection registry for lifecycle wiring (the
// sweeper and shutdown path own it).
func (s *Server) Registry() *realtime.Registry {
	return s.registry
}

// AcceptEvent runs the full post-mutation path for one event: record it
// on the activity feed, relay it to the bus, and fan it out to live
// connections. identity empty means broadcast. Feed and bus failures
// are logged and swallowed so a slow collaborator never delays the
// caller's response path.
func (s *Server) AcceptEvent(ctx context.Context, identity string, ev *events.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	act, err := store.NewActivity(ev)
	if err != nil {
		slog.Warn("failed to build activity entry", "topic", ev.Topic, "error", err)
	} else if err := s.store.RecordActivity(ctx, act); err != nil {
		slog.Warn("failed to record activity", "topic", ev.Topic, "entity_id", ev.EntityID, "error", err)
	}

	if err := s.publisher.Publish(ctx, ev); err != nil {
		slog.Warn("failed to publish event", "topic", ev.Topic, "entity_id", ev.EntityID, "error", err)
	}

	if identity != "" {
		return s.emitter.EmitToIdentity(identity, ev)
	}
	return s.emitter.EmitToAll(ev)
}

// PresenceChanged is wired as the sweeper's OnChange callback: it
// broadcasts a presence flip so presence dots update live. Flips are
// not recorded on the activity feed.
func (s *Server) PresenceChanged(identity string, status realtime.Status) {
	ev := &events.Event{
		Topic:    events.TopicPresenceChanged,
		Action:   events.ActionUpdated,
		EntityID: identity,
		Message:  string(status),
		At:       time.Now().UTC(),
	}
	if err := s.emitter.EmitToAll(ev); err != nil {
		slog.Warn("failed to broadcast presence change", "identity", identity, "error", err)
	}
}
