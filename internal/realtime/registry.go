// Package realtime tracks live client connections and fans out
// domain-change events to them.
//
// The Registry maps authenticated identities to their open connections
// (one identity may hold several: multiple tabs, multiple devices) and
// records a last-activity timestamp per connection. Presence is derived
// from that state on demand, never stored independently. A background
// Sweeper reclaims connections that went silent without a clean
// disconnect and reports presence flips.
//
// All state is process-local and rebuilt from zero on restart; there is
// no cross-process coordination.
package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/ledgerloft/treasuryd/internal/idgen"
)

// DefaultAwayAfter is how long an identity's freshest connection may be
// silent before the identity is classified away rather than online.
const DefaultAwayAfter = 5 * time.Minute

// ErrClosed is returned by Register after the registry has been shut down.
var ErrClosed = errors.New("realtime: registry closed")

// Sink is one live transport-level channel to a client. The registry is
// agnostic to how bytes reach the client; WebSocket and SSE handlers
// each provide their own implementation.
type Sink interface {
	// Send delivers one payload, best-effort. A failed send means the
	// transport is gone; the caller drops the payload and moves on.
	Send(payload []byte) error
	// Close releases the transport. Must be safe to call more than once.
	Close()
}

type conn struct {
	id           string
	identity     string
	sink         Sink
	createdAt    time.Time
	lastActivity time.Time
}

// Registry owns every live connection. All mutations are serialized
// through one mutex; the maps are never reachable outside it.
type Registry struct {
	mu         sync.RWMutex
	conns      map[string]*conn            // connID -> conn
	byIdentity map[string]map[string]*conn // identity -> connID -> conn
	closed     bool

	awayAfter time.Duration
	now       func() time.Time // overridden in tests
}

// NewRegistry creates an empty registry. awayAfter <= 0 selects
// DefaultAwayAfter.
func NewRegistry(awayAfter time.Duration) *Registry {
	return NewRegistryWithClock(awayAfter, time.Now)
}

// NewRegistryWithClock is NewRegistry with an injectable time source,
// for tests that steer presence transitions deterministically.
func NewRegistryWithClock(awayAfter time.Duration, now func() time.Time) *Registry {
	if awayAfter <= 0 {
		awayAfter = DefaultAwayAfter
	}
	if now == nil {
		now = time.Now
	}
	return &Registry{
		conns:      make(map[string]*conn),
		byIdentity: make(map[string]map[string]*conn),
		awayAfter:  awayAfter,
		now:        now,
	}
}

// Register adds a new connection under identity and returns its ID.
// The identity becomes online immediately.
func (r *Registry) Register(identity string, sink Sink) (string, error) {
	id, err := idgen.Connection()
	if err != nil {
		return "", err
	}

	now := r.now()
	c := &conn{
		id:           id,
		identity:     identity,
		sink:         sink,
		createdAt:    now,
		lastActivity: now,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return "", ErrClosed
	}
	r.conns[id] = c
	if r.byIdentity[identity] == nil {
		r.byIdentity[identity] = make(map[string]*conn)
	}
	r.byIdentity[identity][id] = c
	return id, nil
}

// Touch refreshes a connection's last-activity time. Unknown IDs are a
// no-op: the sweep may have reclaimed the connection already and that
// race is expected.
func (r *Registry) Touch(connID string) {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[connID]
	if !ok {
		return
	}
	// A later touch never moves freshness backwards.
	if now.After(c.lastActivity) {
		c.lastActivity = now
	}
}

// Unregister removes a connection and closes its sink. Idempotent.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	c, ok := r.conns[connID]
	if ok {
		delete(r.conns, connID)
		if set := r.byIdentity[c.identity]; set != nil {
			delete(set, connID)
			if len(set) == 0 {
				delete(r.byIdentity, c.identity)
			}
		}
	}
	r.mu.Unlock()

	if ok {
		c.sink.Close()
	}
}

// ConnectionsFor returns the sinks for every live connection owned by
// identity. Empty for unknown or offline identities.
func (r *Registry) ConnectionsFor(identity string) []Sink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.byIdentity[identity]
	if len(set) == 0 {
		return nil
	}
	sinks := make([]Sink, 0, len(set))
	for _, c := range set {
		sinks = append(sinks, c.sink)
	}
	return sinks
}

// AllConnections returns the sinks for every live connection across all
// identities.
func (r *Registry) AllConnections() []Sink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sinks := make([]Sink, 0, len(r.conns))
	for _, c := range r.conns {
		sinks = append(sinks, c.sink)
	}
	return sinks
}

// Len reports how many connections are currently registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Close shuts the registry down: every sink is closed and further
// Register calls fail with ErrClosed.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	conns := make([]*conn, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	r.conns = make(map[string]*conn)
	r.byIdentity = make(map[string]map[string]*conn)
	r.mu.Unlock()

	for _, c := range conns {
		c.sink.Close()
	}
}

// expired returns the IDs of connections silent for longer than deadAfter.
func (r *Registry) expired(deadAfter time.Duration) []string {
	cutoff := r.now().Add(-deadAfter)
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for id, c := range r.conns {
		if c.lastActivity.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids
}
