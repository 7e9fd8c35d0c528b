package realtime

import (
	"testing"

	"github.com/goccy/go-json"

	"github.com/ledgerloft/treasuryd/internal/events"
)

func TestEmitToIdentity_DeliversToEveryOwnedConnection(t *testing.T) {
	reg, _ := newTestRegistry()
	em := NewEmitter(reg)

	bob1, bob2, carol := &testSink{}, &testSink{}, &testSink{}
	for _, c := range []struct {
		identity string
		sink     *testSink
	}{{"bob", bob1}, {"bob", bob2}, {"carol", carol}} {
		if _, err := reg.Register(c.identity, c.sink); err != nil {
			t.Fatalf("Register(%s) error: %v", c.identity, err)
		}
	}

	ev := &events.Event{Topic: events.TopicReceiptChanged, Action: events.ActionBound, EntityID: "r1"}
	if err := em.EmitToIdentity("bob", ev); err != nil {
		t.Fatalf("EmitToIdentity error: %v", err)
	}

	if got := bob1.count(); got != 1 {
		t.Errorf("bob's first connection received %d payloads, want 1", got)
	}
	if got := bob2.count(); got != 1 {
		t.Errorf("bob's second connection received %d payloads, want 1", got)
	}
	if got := carol.count(); got != 0 {
		t.Errorf("carol received %d payloads, want 0", got)
	}

	var decoded events.Event
	if err := json.Unmarshal(bob1.payloads[0], &decoded); err != nil {
		t.Fatalf("unmarshal delivered payload: %v", err)
	}
	if decoded.EntityID != "r1" || decoded.Action != events.ActionBound {
		t.Errorf("delivered payload = %+v, want entity r1 bound", decoded)
	}
}

func TestEmitToIdentity_OfflineTargetDropsSilently(t *testing.T) {
	reg, _ := newTestRegistry()
	em := NewEmitter(reg)

	ev := &events.Event{Topic: events.TopicStatsChanged, Action: events.ActionUpdated}
	if err := em.EmitToIdentity("nobody", ev); err != nil {
		t.Fatalf("EmitToIdentity to offline target returned error: %v", err)
	}
}

func TestEmitToAll_DeliversToEveryConnection(t *testing.T) {
	reg, _ := newTestRegistry()
	em := NewEmitter(reg)

	sinks := []*testSink{{}, {}, {}}
	for i, identity := range []string{"alice", "bob", "carol"} {
		if _, err := reg.Register(identity, sinks[i]); err != nil {
			t.Fatalf("Register(%s) error: %v", identity, err)
		}
	}

	ev := &events.Event{Topic: events.TopicStatsChanged, Action: events.ActionUpdated}
	if err := em.EmitToAll(ev); err != nil {
		t.Fatalf("EmitToAll error: %v", err)
	}

	for i, s := range sinks {
		if got := s.count(); got != 1 {
			t.Errorf("sink %d received %d payloads, want exactly 1", i, got)
		}
	}
}

func TestEmit_FailedSendDoesNotBlockOthers(t *testing.T) {
	reg, _ := newTestRegistry()
	em := NewEmitter(reg)

	dead := &testSink{fail: true}
	live := &testSink{}
	if _, err := reg.Register("bob", dead); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if _, err := reg.Register("bob", live); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	ev := &events.Event{Topic: events.TopicLedgerEntryChanged, Action: events.ActionCreated, EntityID: "le-9"}
	if err := em.EmitToIdentity("bob", ev); err != nil {
		t.Fatalf("EmitToIdentity error: %v", err)
	}

	if got := live.count(); got != 1 {
		t.Errorf("live sink received %d payloads, want 1 despite sibling failure", got)
	}
}

func TestEmit_RejectsMalformedPayload(t *testing.T) {
	reg, _ := newTestRegistry()
	em := NewEmitter(reg)

	sink := &testSink{}
	if _, err := reg.Register("alice", sink); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	if err := em.EmitToAll(&events.Event{Topic: "nope", Action: events.ActionCreated}); err == nil {
		t.Fatal("expected error for malformed payload")
	}
	if got := sink.count(); got != 0 {
		t.Errorf("malformed payload was delivered %d times, want 0", got)
	}
}
