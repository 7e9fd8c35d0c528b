package sync

import (
	"context"
	"sync"

	"github.com/ledgerloft/treasuryd/internal/store"
)

// mockStore is an in-memory store.Store for sync tests.
type mockStore struct {
	mu         sync.Mutex
	activities []*store.Activity
	listErr    error
}

func newMockStore() *mockStore {
	return &mockStore{}
}

func (m *mockStore) RecordActivity(_ context.Context, act *store.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activities = append(m.activities, act)
	return nil
}

func (m *mockStore) ListActivity(_ context.Context, filter store.ActivityFilter) ([]*store.Activity, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	total := len(m.activities)
	if filter.Offset >= total {
		return nil, total, nil
	}
	page := m.activities[filter.Offset:]
	if filter.Limit > 0 && len(page) > filter.Limit {
		page = page[:filter.Limit]
	}
	out := append([]*store.Activity(nil), page...)
	return out, total, nil
}

func (m *mockStore) Close() error { return nil }
