package sync

import (
	"testing"
	"time"
)

func TestHistoryKey(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, tc := range []struct {
		key  string
		want string
	}{
		{"treasury/activity.jsonl", "treasury/activity-20260301T120000Z.jsonl"},
		{"activity.jsonl", "activity-20260301T120000Z.jsonl"},
		{"exports/feed", "exports/feed-20260301T120000Z"},
		{"a/b/c.ndjson", "a/b/c-20260301T120000Z.ndjson"},
	} {
		if got := historyKey(tc.key, at); got != tc.want {
			t.Errorf("historyKey(%q) = %q, want %q", tc.key, got, tc.want)
		}
	}
}

func TestHistoryKey_NonUTC(t *testing.T) {
	// History keys are always stamped in UTC regardless of the clock's zone.
	zone := time.FixedZone("UTC+2", 2*60*60)
	at := time.Date(2026, 3, 1, 14, 0, 0, 0, zone)

	want := "activity-20260301T120000Z.jsonl"
	if got := historyKey("activity.jsonl", at); got != want {
		t.Errorf("historyKey = %q, want %q", got, want)
	}
}
