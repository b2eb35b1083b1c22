package blobserver

import (
	"sync"
	"time"
)

// LockoutSettings controls how repeated authentication failures lock a client out
type LockoutSettings struct {
	Threshold int           // Failures within Window that lock the client (0 to disable)
	Window    time.Duration // Time window for counting failures; also the lockout length
}

// FailureTracker counts recent authentication failures per client id
type FailureTracker struct {
	settings LockoutSettings

	mu       sync.Mutex
	failures map[string][]time.Time
}

func NewFailureTracker(settings LockoutSettings) *FailureTracker {
	return &FailureTracker{
		settings: settings,
		failures: make(map[string][]time.Time),
	}
}

// RecordFailure records a failure at ts and returns the client's count within the window
func (t *FailureTracker) RecordFailure(clientID string, ts time.Time) int {
	if t.settings.Threshold <= 0 {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	recent := t.pruneLocked(clientID, ts)
	recent = append(recent, ts)
	t.failures[clientID] = recent
	return len(recent)
}

// IsLocked reports whether the client reached the threshold within the window ending at now
func (t *FailureTracker) IsLocked(clientID string, now time.Time) bool {
	if t.settings.Threshold <= 0 {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pruneLocked(clientID, now)) >= t.settings.Threshold
}

// Reset forgets a client's failures after a successful authentication
func (t *FailureTracker) Reset(clientID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.failures, clientID)
}

func (t *FailureTracker) pruneLocked(clientID string, now time.Time) []time.Time {
	cutoff := now.Add(-t.settings.Window)
	kept := t.failures[clientID][:0]
	for _, ts := range t.failures[clientID] {
		if !ts.Before(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) == 0 {
		delete(t.failures, clientID)
		return nil
	}
	t.failures[clientID] = kept
	return kept
}
