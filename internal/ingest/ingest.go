// Package ingest bridges the web app's Redis pub/sub channel into the
// realtime pipeline. The app publishes committed events onto a single
// channel after each transaction; the bridge decodes them and hands
// them to the same accept path the HTTP emit endpoint uses.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"

	"github.com/ledgerloft/treasuryd/internal/events"
)

// DefaultChannel is the Redis channel the web app publishes to.
const DefaultChannel = "treasury:events"

// AcceptFunc is the downstream event path. identity empty means
// broadcast.
type AcceptFunc func(ctx context.Context, identity string, ev *events.Event) error

// envelope is the wire format on the Redis channel.
type envelope struct {
	Identity string        `json:"identity,omitempty"`
	Event    *events.Event `json:"event"`
}

// Bridge subscribes to one Redis channel and feeds decoded events to an
// AcceptFunc.
type Bridge struct {
	rdb     *redis.Client
	channel string
	accept  AcceptFunc
}

// New connects to Redis and verifies the connection with a ping.
func New(ctx context.Context, redisURL, channel string, accept AcceptFunc) (*Bridge, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if channel == "" {
		channel = DefaultChannel
	}
	return &Bridge{rdb: rdb, channel: channel, accept: accept}, nil
}

// Run consumes the channel until ctx is cancelled. The go-redis pubsub
// reconnects on its own; a malformed or invalid message is logged and
// skipped, never fatal.
func (b *Bridge) Run(ctx context.Context) error {
	pubsub := b.rdb.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	slog.Info("redis ingest subscribed", "channel", b.channel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.handleMessage(ctx, []byte(msg.Payload))
		}
	}
}

// Close releases the Redis connection.
func (b *Bridge) Close() error {
	return b.rdb.Close()
}

func (b *Bridge) handleMessage(ctx context.Context, payload []byte) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		slog.Warn("redis ingest: malformed message", "error", err)
		return
	}
	if env.Event == nil {
		slog.Warn("redis ingest: message without event")
		return
	}
	if err := b.accept(ctx, env.Identity, env.Event); err != nil {
		slog.Warn("redis ingest: event rejected", "topic", env.Event.Topic, "error", err)
	}
}
