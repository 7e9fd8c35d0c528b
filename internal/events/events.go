// Package events defines the domain-change payloads pushed to connected
// clients after a mutation commits, plus the optional NATS relay used to
// share them with operator tooling.
//
// Every event is a fire-and-forget "go refetch" hint: no delivery
// guarantee, no ordering across emits, no replay. Clients that miss one
// reload current state on reconnect.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Topic identifies which part of the treasury changed.
type Topic string

const (
	TopicLedgerEntryChanged  Topic = "ledger-entry-changed"
	TopicAccountEntryChanged Topic = "account-entry-changed"
	TopicReceiptChanged      Topic = "receipt-changed"
	TopicActivityLogged      Topic = "activity-logged"
	TopicStatsChanged        Topic = "stats-changed"
	TopicBudgetChanged       Topic = "budget-changed"
	TopicChatMessage         Topic = "chat-message"

	// TopicPresenceChanged is emitted by the heartbeat sweep when an
	// identity's online/away/offline classification flips.
	TopicPresenceChanged Topic = "presence-changed"
)

// Action is the mutation kind behind an event.
type Action string

const (
	ActionCreated   Action = "created"
	ActionUpdated   Action = "updated"
	ActionArchived  Action = "archived"
	ActionBound     Action = "bound"
	ActionUnbound   Action = "unbound"
	ActionDeleted   Action = "deleted"
	ActionLinked    Action = "linked"
	ActionCompleted Action = "completed"
)

var validTopics = map[Topic]bool{
	TopicLedgerEntryChanged:  true,
	TopicAccountEntryChanged: true,
	TopicReceiptChanged:      true,
	TopicActivityLogged:      true,
	TopicStatsChanged:        true,
	TopicBudgetChanged:       true,
	TopicChatMessage:         true,
	TopicPresenceChanged:     true,
}

var validActions = map[Action]bool{
	ActionCreated:   true,
	ActionUpdated:   true,
	ActionArchived:  true,
	ActionBound:     true,
	ActionUnbound:   true,
	ActionDeleted:   true,
	ActionLinked:    true,
	ActionCompleted: true,
}

// SubjectPrefix is prepended to topics to form NATS subjects.
const SubjectPrefix = "treasury."

// SubjectWildcard matches every event subject on the bus.
const SubjectWildcard = SubjectPrefix + ">"

// Event describes one committed domain change. It is immutable once
// emitted and never persisted by the realtime layer (the activity feed
// store keeps its own copy).
type Event struct {
	Topic    Topic            `json:"topic"`
	Action   Action           `json:"action"`
	EntityID string           `json:"entity_id,omitempty"`
	Actor    string           `json:"actor,omitempty"`
	Message  string           `json:"message,omitempty"`
	Amount   *decimal.Decimal `json:"amount,omitempty"`
	At       time.Time        `json:"at"`
}

// Validate rejects payloads with an unknown topic or action. Malformed
// payloads are a programmer error at the emit call site, not a runtime
// condition to recover from.
func (e *Event) Validate() error {
	if !validTopics[e.Topic] {
		return fmt.Errorf("events: unknown topic %q", e.Topic)
	}
	if !validActions[e.Action] {
		return fmt.Errorf("events: unknown action %q", e.Action)
	}
	return nil
}

// Subject returns the NATS subject for the event's topic.
func (e *Event) Subject() string {
	return SubjectPrefix + string(e.Topic)
}

// Publisher is the interface for relaying events to the bus.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}
