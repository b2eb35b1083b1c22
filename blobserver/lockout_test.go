package blobserver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFailureTracker_CountsPerClientWithinWindow(t *testing.T) {
	tracker := NewFailureTracker(LockoutSettings{Threshold: 3, Window: 10 * time.Minute})
	now := time.Now()

	assert.Equal(t, 1, tracker.RecordFailure("a", now))
	assert.Equal(t, 2, tracker.RecordFailure("a", now.Add(time.Minute)))
	assert.Equal(t, 1, tracker.RecordFailure("b", now.Add(2*time.Minute)))
	assert.False(t, tracker.IsLocked("a", now.Add(2*time.Minute)))

	assert.Equal(t, 3, tracker.RecordFailure("a", now.Add(3*time.Minute)))
	assert.True(t, tracker.IsLocked("a", now.Add(3*time.Minute)))
	assert.False(t, tracker.IsLocked("b", now.Add(3*time.Minute)))

	// the first failure falls out of the window
	assert.False(t, tracker.IsLocked("a", now.Add(10*time.Minute+time.Second)))
	assert.Equal(t, 3, tracker.RecordFailure("a", now.Add(11*time.Minute)))
}

func TestFailureTracker_Reset(t *testing.T) {
	tracker := NewFailureTracker(LockoutSettings{Threshold: 1, Window: time.Hour})
	now := time.Now()

	tracker.RecordFailure("a", now)
	assert.True(t, tracker.IsLocked("a", now))
	tracker.Reset("a")
	assert.False(t, tracker.IsLocked("a", now))
}

func TestFailureTracker_Disabled(t *testing.T) {
	tracker := NewFailureTracker(LockoutSettings{})
	now := time.Now()

	for i := 0; i < 10; i++ {
		assert.Equal(t, 0, tracker.RecordFailure("a", now))
	}
	assert.False(t, tracker.IsLocked("a", now))
}
