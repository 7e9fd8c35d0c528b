package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerloft/treasuryd/internal/events"
	"github.com/ledgerloft/treasuryd/internal/realtime"
	"github.com/ledgerloft/treasuryd/internal/store"
)

type mockStore struct {
	mu         sync.Mutex
	activities []*store.Activity

	// recordErr, when non-nil, is returned by RecordActivity.
	recordErr error
	listErr   error
}

func newMockStore() *mockStore {
	return &mockStore{}
}

func (m *mockStore) RecordActivity(_ context.Context, act *store.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recordErr != nil {
		return m.recordErr
	}
	m.activities = append(m.activities, act)
	return nil
}

func (m *mockStore) ListActivity(_ context.Context, filter store.ActivityFilter) ([]*store.Activity, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	var result []*store.Activity
	for _, a := range m.activities {
		if filter.Topic != "" && a.Topic != filter.Topic {
			continue
		}
		if filter.Actor != "" && a.Actor != filter.Actor {
			continue
		}
		result = append(result, a)
	}
	total := len(result)
	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			result = nil
		} else {
			result = result[filter.Offset:]
		}
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, total, nil
}

func (m *mockStore) Close() error { return nil }

func (m *mockStore) recorded() []*store.Activity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*store.Activity(nil), m.activities...)
}

// memSink collects emitted payloads for assertions.
type memSink struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (s *memSink) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, payload)
	return nil
}

func (s *memSink) Close() {}

func (s *memSink) received() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.payloads...)
}

func newTestServer(t *testing.T) (*Server, *mockStore) {
	t.Helper()
	reg := realtime.NewRegistry(realtime.DefaultAwayAfter)
	t.Cleanup(reg.Close)
	st := newMockStore()
	return New(reg, st, &events.NoopPublisher{}, ""), st
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.NewHTTPHandler("")

	if _, err := srv.registry.Register("alice", &memSink{}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status=ok, got %v", body["status"])
	}
	if body["connections"] != float64(1) {
		t.Errorf("expected connections=1, got %v", body["connections"])
	}
}

func TestHandleEmit_Broadcast(t *testing.T) {
	srv, st := newTestServer(t)
	handler := srv.NewHTTPHandler("")

	alice := &memSink{}
	bob := &memSink{}
	if _, err := srv.registry.Register("alice", alice); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := srv.registry.Register("bob", bob); err != nil {
		t.Fatalf("Register: %v", err)
	}

	body := bytes.NewBufferString(`{"topic":"ledger-entry-changed","action":"created","entity_id":"le-7","actor":"alice","amount":"420.50"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/events/emit", body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	for _, sink := range []*memSink{alice, bob} {
		got := sink.received()
		if len(got) != 1 {
			t.Fatalf("expected 1 payload, got %d", len(got))
		}
		var ev events.Event
		if err := json.Unmarshal(got[0], &ev); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if ev.Topic != events.TopicLedgerEntryChanged {
			t.Errorf("expected topic=%q, got %q", events.TopicLedgerEntryChanged, ev.Topic)
		}
		if ev.Amount == nil || !ev.Amount.Equal(decimal.RequireFromString("420.50")) {
			t.Errorf("expected amount=420.50, got %v", ev.Amount)
		}
		if ev.At.IsZero() {
			t.Error("expected At to be stamped")
		}
	}

	acts := st.recorded()
	if len(acts) != 1 {
		t.Fatalf("expected 1 recorded activity, got %d", len(acts))
	}
	if acts[0].Topic != string(events.TopicLedgerEntryChanged) {
		t.Errorf("expected activity topic=%q, got %q", events.TopicLedgerEntryChanged, acts[0].Topic)
	}
}

func TestHandleEmit_Targeted(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.NewHTTPHandler("")

	alice := &memSink{}
	bob := &memSink{}
	if _, err := srv.registry.Register("alice", alice); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := srv.registry.Register("bob", bob); err != nil {
		t.Fatalf("Register: %v", err)
	}

	body := bytes.NewBufferString(`{"identity":"bob","topic":"chat-message","action":"created","actor":"alice","message":"hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/events/emit", body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := len(bob.received()); got != 1 {
		t.Errorf("expected bob to receive 1 payload, got %d", got)
	}
	if got := len(alice.received()); got != 0 {
		t.Errorf("expected alice to receive nothing, got %d payloads", got)
	}
}

func TestHandleEmit_UnknownTopic(t *testing.T) {
	srv, st := newTestServer(t)
	handler := srv.NewHTTPHandler("")

	body := bytes.NewBufferString(`{"topic":"nonsense","action":"created"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/events/emit", body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(st.recorded()) != 0 {
		t.Error("expected no activity recorded for invalid event")
	}
}

func TestHandleEmit_BadAmount(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.NewHTTPHandler("")

	body := bytes.NewBufferString(`{"topic":"ledger-entry-changed","action":"created","amount":"not-a-number"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/events/emit", body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleEmit_StoreFailureStillDelivers(t *testing.T) {
	srv, st := newTestServer(t)
	st.recordErr = context.DeadlineExceeded
	handler := srv.NewHTTPHandler("")

	alice := &memSink{}
	if _, err := srv.registry.Register("alice", alice); err != nil {
		t.Fatalf("Register: %v", err)
	}

	body := bytes.NewBufferString(`{"topic":"stats-changed","action":"updated"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/events/emit", body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202 despite store failure, got %d", rec.Code)
	}
	if got := len(alice.received()); got != 1 {
		t.Errorf("expected delivery despite store failure, got %d payloads", got)
	}
}

func TestHandlePresence(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.NewHTTPHandler("")

	if _, err := srv.registry.Register("alice", &memSink{}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/presence?ids=alice,%20ghost", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Presence map[string]realtime.Status `json:"presence"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.Presence["alice"] != realtime.StatusOnline {
		t.Errorf("expected alice online, got %q", body.Presence["alice"])
	}
	if body.Presence["ghost"] != realtime.StatusOffline {
		t.Errorf("expected ghost offline, got %q", body.Presence["ghost"])
	}
}

func TestHandlePresence_NoIDs(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.NewHTTPHandler("")

	req := httptest.NewRequest(http.MethodGet, "/v1/presence", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleListActivity(t *testing.T) {
	srv, st := newTestServer(t)
	handler := srv.NewHTTPHandler("")

	now := time.Now().UTC()
	st.activities = []*store.Activity{
		{ID: "act-1", Topic: "ledger-entry-changed", Action: "created", Actor: "alice", CreatedAt: now},
		{ID: "act-2", Topic: "receipt-changed", Action: "updated", Actor: "bob", CreatedAt: now},
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/activity?actor=bob", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Activities []*store.Activity `json:"activities"`
		Total      int               `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.Total != 1 {
		t.Errorf("expected total=1, got %d", body.Total)
	}
	if len(body.Activities) != 1 || body.Activities[0].ID != "act-2" {
		t.Errorf("expected act-2, got %+v", body.Activities)
	}
}

func TestHandleListActivity_BadLimit(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.NewHTTPHandler("")

	req := httptest.NewRequest(http.MethodGet, "/v1/activity?limit=9999", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestPresenceChanged_Broadcasts(t *testing.T) {
	srv, st := newTestServer(t)

	alice := &memSink{}
	if _, err := srv.registry.Register("alice", alice); err != nil {
		t.Fatalf("Register: %v", err)
	}

	srv.PresenceChanged("bob", realtime.StatusAway)

	got := alice.received()
	if len(got) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(got))
	}
	var ev events.Event
	if err := json.Unmarshal(got[0], &ev); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if ev.Topic != events.TopicPresenceChanged {
		t.Errorf("expected topic=%q, got %q", events.TopicPresenceChanged, ev.Topic)
	}
	if ev.EntityID != "bob" || ev.Message != string(realtime.StatusAway) {
		t.Errorf("unexpected payload: %+v", ev)
	}

	// Presence flips never land on the activity feed.
	if len(st.recorded()) != 0 {
		t.Error("expected no activity recorded for presence flip")
	}
}
