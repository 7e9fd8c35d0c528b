package realtime

import (
	"testing"
	"time"
)

func TestSweep_ReclaimsDeadConnections(t *testing.T) {
	reg, clock := newTestRegistry()
	sw := NewSweeper(reg, SweepConfig{DeadAfter: 10 * time.Minute})

	sink := &testSink{}
	if _, err := reg.Register("alice", sink); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	clock.advance(11 * time.Minute)
	sw.Sweep()

	if got := reg.Len(); got != 0 {
		t.Errorf("Len after sweep = %d, want 0", got)
	}
	if got := reg.StatusOf("alice"); got != StatusOffline {
		t.Errorf("status after sweep = %q, want offline", got)
	}
	if got := sink.closeCount(); got != 1 {
		t.Errorf("sink closed %d times, want 1", got)
	}
}

func TestSweep_KeepsLiveConnections(t *testing.T) {
	reg, clock := newTestRegistry()
	sw := NewSweeper(reg, SweepConfig{DeadAfter: 10 * time.Minute})

	id, err := reg.Register("alice", &testSink{})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}

	clock.advance(9 * time.Minute)
	reg.Touch(id)
	clock.advance(9 * time.Minute)
	sw.Sweep()

	if got := reg.Len(); got != 1 {
		t.Errorf("Len after sweep = %d, want 1 (touched connection must survive)", got)
	}
}

func TestSweep_NotifiesPresenceFlips(t *testing.T) {
	reg, clock := newTestRegistry()

	type flip struct {
		identity string
		status   Status
	}
	var flips []flip
	sw := NewSweeper(reg, SweepConfig{
		DeadAfter: 10 * time.Minute,
		OnChange: func(identity string, status Status) {
			flips = append(flips, flip{identity, status})
		},
	})

	id, err := reg.Register("alice", &testSink{})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}

	sw.Sweep()
	if len(flips) != 1 || flips[0] != (flip{"alice", StatusOnline}) {
		t.Fatalf("after first sweep flips = %v, want [{alice online}]", flips)
	}

	// Same status again: no notification.
	sw.Sweep()
	if len(flips) != 1 {
		t.Fatalf("unchanged status produced a notification: %v", flips)
	}

	clock.advance(6 * time.Minute)
	sw.Sweep()
	if len(flips) != 2 || flips[1] != (flip{"alice", StatusAway}) {
		t.Fatalf("after idle sweep flips = %v, want away appended", flips)
	}

	reg.Unregister(id)
	sw.Sweep()
	if len(flips) != 3 || flips[2] != (flip{"alice", StatusOffline}) {
		t.Fatalf("after unregister sweep flips = %v, want offline appended", flips)
	}

	// Offline identity drops out of tracking; no repeat notification.
	sw.Sweep()
	if len(flips) != 3 {
		t.Fatalf("offline identity re-notified: %v", flips)
	}
}

func TestSweep_DeadConnectionFlipsIdentityOffline(t *testing.T) {
	reg, clock := newTestRegistry()

	var last Status
	sw := NewSweeper(reg, SweepConfig{
		DeadAfter: 10 * time.Minute,
		OnChange:  func(_ string, status Status) { last = status },
	})

	if _, err := reg.Register("bob", &testSink{}); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	sw.Sweep()

	clock.advance(11 * time.Minute)
	sw.Sweep()

	if last != StatusOffline {
		t.Errorf("last notified status = %q, want offline (connection was reclaimed)", last)
	}
}

func TestSweeper_StartStop(t *testing.T) {
	reg, _ := newTestRegistry()
	sw := NewSweeper(reg, SweepConfig{Interval: 10 * time.Millisecond})

	sw.Start()
	time.Sleep(35 * time.Millisecond)
	sw.Stop()

	// Registry must remain usable after the sweeper stops.
	if _, err := reg.Register("alice", &testSink{}); err != nil {
		t.Fatalf("Register after Stop error: %v", err)
	}
}

func TestSweeper_StopWithoutStart(t *testing.T) {
	reg, _ := newTestRegistry()
	sw := NewSweeper(reg, SweepConfig{})
	sw.Stop() // must not panic
}

func TestNewSweeper_Defaults(t *testing.T) {
	reg, _ := newTestRegistry()
	sw := NewSweeper(reg, SweepConfig{})
	if sw.cfg.DeadAfter != 10*time.Minute {
		t.Errorf("default DeadAfter = %v, want 10m", sw.cfg.DeadAfter)
	}
	if sw.cfg.Interval != 45*time.Second {
		t.Errorf("default Interval = %v, want 45s", sw.cfg.Interval)
	}
}
