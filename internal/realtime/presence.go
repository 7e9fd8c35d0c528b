package realtime

// Status is the derived presence classification for one identity.
type Status string

const (
	StatusOnline  Status = "online"
	StatusAway    Status = "away"
	StatusOffline Status = "offline"
)

// StatusOf classifies one identity: online when at least one connection
// was active within the freshness window, away when connections exist
// but none is fresh, offline when no connections exist. An identity
// that never connected is offline, not an error.
func (r *Registry) StatusOf(identity string) Status {
	cutoff := r.now().Add(-r.awayAfter)

	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.byIdentity[identity]
	if len(set) == 0 {
		return StatusOffline
	}
	for _, c := range set {
		if !c.lastActivity.Before(cutoff) {
			return StatusOnline
		}
	}
	return StatusAway
}

// StatusesFor answers a batch presence query. Unknown identities map to
// offline.
func (r *Registry) StatusesFor(identities []string) map[string]Status {
	cutoff := r.now().Add(-r.awayAfter)

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Status, len(identities))
	for _, identity := range identities {
		status := StatusOffline
		for _, c := range r.byIdentity[identity] {
			if !c.lastActivity.Before(cutoff) {
				status = StatusOnline
				break
			}
			status = StatusAway
		}
		out[identity] = status
	}
	return out
}

// statusSnapshot classifies every identity that currently has at least
// one connection. Offline identities are absent by construction. Used
// by the sweeper to detect presence flips.
func (r *Registry) statusSnapshot() map[string]Status {
	cutoff := r.now().Add(-r.awayAfter)

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Status, len(r.byIdentity))
	for identity, set := range r.byIdentity {
		status := StatusAway
		for _, c := range set {
			if !c.lastActivity.Before(cutoff) {
				status = StatusOnline
				break
			}
		}
		out[identity] = status
	}
	return out
}
