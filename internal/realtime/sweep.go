package realtime

import (
	"log/slog"
	"sort"
	"time"
)

// SweepConfig configures the background heartbeat sweeper.
type SweepConfig struct {
	// DeadAfter is how long a connection may be silent before it is
	// forcibly unregistered (the client vanished without a clean
	// disconnect). Default: 10 minutes.
	DeadAfter time.Duration

	// Interval is how often the sweeper scans. Default: 45 seconds.
	Interval time.Duration

	// OnChange is called for each identity whose presence status
	// changed since the previous scan. Called outside the registry
	// lock, so blocking calls are safe. May be nil.
	OnChange func(identity string, status Status)
}

// Sweeper is the only time-driven component: everything else in the
// registry reacts to register/touch/unregister calls. A missed tick
// delays the next reclassification but loses nothing, because all the
// state it reads lives in the registry.
type Sweeper struct {
	reg *Registry
	cfg SweepConfig

	prev map[string]Status

	stop chan struct{}
	done chan struct{}
}

// NewSweeper creates a sweeper over the given registry, filling config
// defaults.
func NewSweeper(reg *Registry, cfg SweepConfig) *Sweeper {
	if cfg.DeadAfter == 0 {
		cfg.DeadAfter = 10 * time.Minute
	}
	if cfg.Interval == 0 {
		cfg.Interval = 45 * time.Second
	}
	return &Sweeper{
		reg:  reg,
		cfg:  cfg,
		prev: make(map[string]Status),
	}
}

// Start launches the background loop. Call Stop to shut it down.
func (s *Sweeper) Start() {
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.loop()
	slog.Info("realtime: sweeper started",
		"dead_after", s.cfg.DeadAfter,
		"interval", s.cfg.Interval)
}

// Stop shuts down the loop and waits for an in-flight sweep to finish.
// Safe to call when the sweeper never started.
func (s *Sweeper) Stop() {
	if s.stop != nil {
		close(s.stop)
		<-s.done
		s.stop = nil
		s.done = nil
	}
}

func (s *Sweeper) loop() {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep runs one pass: reclaim dead connections, then report presence
// flips. Exported so tests and shutdown paths can run a deterministic
// tick without the timer.
func (s *Sweeper) Sweep() {
	for _, id := range s.reg.expired(s.cfg.DeadAfter) {
		slog.Info("realtime: reclaiming dead connection", "conn_id", id)
		s.reg.Unregister(id)
	}

	current := s.reg.statusSnapshot()

	type flip struct {
		identity string
		status   Status
	}
	var flips []flip
	for identity, status := range current {
		if s.prev[identity] != status {
			flips = append(flips, flip{identity, status})
		}
	}
	for identity := range s.prev {
		if _, ok := current[identity]; !ok {
			flips = append(flips, flip{identity, StatusOffline})
		}
	}
	s.prev = current

	// Deterministic notification order keeps logs and tests stable.
	sort.Slice(flips, func(i, j int) bool { return flips[i].identity < flips[j].identity })

	for _, f := range flips {
		slog.Debug("realtime: presence changed", "identity", f.identity, "status", f.status)
		if s.cfg.OnChange != nil {
			s.cfg.OnChange(f.identity, f.status)
		}
	}
}
