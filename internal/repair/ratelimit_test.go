package repair

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLimiterExactWindowCount(t *testing.T) {
	l := NewLimiter("")
	l.Configure("repairs", 5, time.Hour)

	// Exactly N events succeed within the window
	for i := 0; i < 5; i++ {
		if !l.Allow("repairs") {
			t.Fatalf("event %d should be allowed", i+1)
		}
	}

	// The (N+1)th within the same window is rejected
	if l.Allow("repairs") {
		t.Error("6th event within the window should be rejected")
	}

	if got := l.Count("repairs"); got != 5 {
		t.Errorf("Count = %d, want 5 (rejected attempt must not be counted)", got)
	}
}

func TestLimiterWindowElapses(t *testing.T) {
	l := NewLimiter("")
	l.Configure("restarts", 2, 24*time.Hour)

	base := time.Now()
	l.now = func() time.Time { return base }

	if !l.Allow("restarts") || !l.Allow("restarts") {
		t.Fatal("first 2 events should be allowed")
	}
	if l.Allow("restarts") {
		t.Fatal("3rd event within the window should be rejected")
	}

	// After the window elapses, a new event succeeds
	l.now = func() time.Time { return base.Add(25 * time.Hour) }
	if !l.Allow("restarts") {
		t.Error("event after window elapsed should be allowed")
	}
}

func TestLimiterAllowAllRejectionTouchesNoCounter(t *testing.T) {
	l := NewLimiter("")
	l.Configure("repairs", 3, time.Hour)
	l.Configure("restarts", 1, 24*time.Hour)

	if !l.AllowAll("repairs", "restarts") {
		t.Fatal("first combined reservation should be allowed")
	}

	// restarts is now full; the combined reservation fails and must
	// leave the repairs counter untouched
	if l.AllowAll("repairs", "restarts") {
		t.Fatal("combined reservation should be rejected once restarts is full")
	}
	if got := l.Count("repairs"); got != 1 {
		t.Errorf("repairs Count = %d, want 1 (rejection must not record an event)", got)
	}
	if got := l.Remaining("repairs"); got != 2 {
		t.Errorf("repairs Remaining = %d, want 2", got)
	}
}

func TestLimiterAllowAllUnknownNameRejects(t *testing.T) {
	l := NewLimiter("")
	l.Configure("repairs", 3, time.Hour)

	if l.AllowAll("repairs", "never-configured") {
		t.Fatal("combined reservation with an unknown counter should be rejected")
	}
	if got := l.Count("repairs"); got != 0 {
		t.Errorf("repairs Count = %d, want 0", got)
	}
}

func TestLimiterUnknownName(t *testing.T) {
	l := NewLimiter("")
	if l.Allow("never-configured") {
		t.Error("unknown counter should reject")
	}
	if got := l.Remaining("never-configured"); got != 0 {
		t.Errorf("Remaining for unknown counter = %d, want 0", got)
	}
}

func TestLimiterRemaining(t *testing.T) {
	l := NewLimiter("")
	l.Configure("repairs", 3, time.Hour)

	if got := l.Remaining("repairs"); got != 3 {
		t.Errorf("Remaining = %d, want 3", got)
	}

	l.Allow("repairs")
	l.Allow("repairs")

	if got := l.Remaining("repairs"); got != 1 {
		t.Errorf("Remaining after 2 events = %d, want 1", got)
	}
}

func TestLimiterStateSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ratelimit-state.json")

	l := NewLimiter(path)
	l.Configure("repairs", 2, time.Hour)
	l.Allow("repairs")
	l.Allow("repairs")

	// Simulate restart: new limiter, same state path
	reloaded := NewLimiter(path)
	reloaded.Configure("repairs", 2, time.Hour)

	if reloaded.Allow("repairs") {
		t.Error("limiter should still be full after reload")
	}
	if got := reloaded.Count("repairs"); got != 2 {
		t.Errorf("reloaded Count = %d, want 2", got)
	}
}
