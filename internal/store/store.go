// Package store persists the activity feed: one row per accepted
// domain-change event. The realtime fan-out never reads it; the feed
// exists for the web app's activity timeline and for snapshot export.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerloft/treasuryd/internal/events"
	"github.com/ledgerloft/treasuryd/internal/idgen"
)

// Activity is one recorded feed entry.
type Activity struct {
	ID        string           `json:"id"`
	Topic     string           `json:"topic"`
	Action    string           `json:"action"`
	EntityID  string           `json:"entity_id,omitempty"`
	Actor     string           `json:"actor,omitempty"`
	Message   string           `json:"message,omitempty"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// ActivityFilter narrows ListActivity results.
type ActivityFilter struct {
	Topic  string // exact topic match; empty = all
	Actor  string // exact actor match; empty = all
	Limit  int    // 0 = default (50)
	Offset int
}

// Store defines the persistence interface for the activity feed.
type Store interface {
	RecordActivity(ctx context.Context, act *Activity) error
	// ListActivity returns entries newest-first plus the total count
	// matching the filter (ignoring limit/offset).
	ListActivity(ctx context.Context, filter ActivityFilter) ([]*Activity, int, error)
	Close() error
}

// NewActivity builds a feed entry from an accepted event, minting an ID
// and stamping the event time (or now when the emitter left it zero).
func NewActivity(ev *events.Event) (*Activity, error) {
	id, err := idgen.Activity()
	if err != nil {
		return nil, err
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return &Activity{
		ID:        id,
		Topic:     string(ev.Topic),
		Action:    string(ev.Action),
		EntityID:  ev.EntityID,
		Actor:     ev.Actor,
		Message:   ev.Message,
		Amount:    ev.Amount,
		CreatedAt: at,
	}, nil
}
