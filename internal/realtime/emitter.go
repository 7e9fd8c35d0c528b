package realtime

import (
	"log/slog"

	"github.com/goccy/go-json"

	"github.com/ledgerloft/treasuryd/internal/events"
)

// Emitter fans one event payload out to live connections, best-effort.
// Delivery failures are swallowed: a connection that died between
// resolution and send must not block the identity's other connections
// or the rest of a broadcast. Offline targets simply drop the event;
// clients refetch current state on reconnect.
type Emitter struct {
	reg *Registry
}

// NewEmitter returns an emitter over the given registry.
func NewEmitter(reg *Registry) *Emitter {
	return &Emitter{reg: reg}
}

// EmitToIdentity delivers the event to every live connection owned by
// identity at call time. Returns an error only for malformed payloads.
func (e *Emitter) EmitToIdentity(identity string, event *events.Event) error {
	payload, err := encode(event)
	if err != nil {
		return err
	}
	e.deliver(e.reg.ConnectionsFor(identity), payload, event)
	return nil
}

// EmitToAll delivers the event to every registered connection across
// all identities. Returns an error only for malformed payloads.
func (e *Emitter) EmitToAll(event *events.Event) error {
	payload, err := encode(event)
	if err != nil {
		return err
	}
	e.deliver(e.reg.AllConnections(), payload, event)
	return nil
}

func encode(event *events.Event) ([]byte, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(event)
}

func (e *Emitter) deliver(sinks []Sink, payload []byte, event *events.Event) {
	for _, sink := range sinks {
		if err := sink.Send(payload); err != nil {
			slog.Debug("realtime: dropped event for dead connection",
				"topic", event.Topic, "action", event.Action, "error", err)
		}
	}
}
