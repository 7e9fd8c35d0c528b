package store

import "context"

// NoopStore is a Store that keeps nothing (used when no database is
// configured; the server then runs realtime-only).
type NoopStore struct{}

func (NoopStore) RecordActivity(ctx context.Context, act *Activity) error {
	return nil
}

func (NoopStore) ListActivity(ctx context.Context, filter ActivityFilter) ([]*Activity, int, error) {
	return nil, 0, nil
}

func (NoopStore) Close() error {
	return nil
}
