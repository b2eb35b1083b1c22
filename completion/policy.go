package completion

import "time"

// Policy holds the waits used to decide whether a stopped recording is usable.
// The recorder finalizes asynchronously, so the first check is delayed, and
// longer when it is the session's first recording or the finalize reported an error.
type Policy struct {
	LaterDelay      time.Duration
	LaterErrorDelay time.Duration
	FirstDelay      time.Duration
	FirstErrorDelay time.Duration

	// RetryDelay is the pause before the single re-check of an invalid file
	RetryDelay time.Duration

	// FallbackWindow is how long to wait for a finalize signal before the
	// fallback path checks the file on its own
	FallbackWindow      time.Duration
	FirstFallbackWindow time.Duration

	// MinSizeBytes is the size a file must exceed to count as a clip
	MinSizeBytes int64
}

// DefaultPolicy returns the timings tuned for file-based camera recorders
func DefaultPolicy() Policy {
	return Policy{
		LaterDelay:          300 * time.Millisecond,
		LaterErrorDelay:     800 * time.Millisecond,
		FirstDelay:          600 * time.Millisecond,
		FirstErrorDelay:     1200 * time.Millisecond,
		RetryDelay:          500 * time.Millisecond,
		FallbackWindow:      1 * time.Second,
		FirstFallbackWindow: 2 * time.Second,
		MinSizeBytes:        1000,
	}
}

// InitialDelay picks the wait before the first check after a finalize signal
func (p Policy) InitialDelay(firstRecording, finalizeErrored bool) time.Duration {
	switch {
	case firstRecording && finalizeErrored:
		return p.FirstErrorDelay
	case firstRecording:
		return p.FirstDelay
	case finalizeErrored:
		return p.LaterErrorDelay
	default:
		return p.LaterDelay
	}
}

// FallbackDelay is the window the fallback path waits for a finalize signal
func (p Policy) FallbackDelay(firstRecording bool) time.Duration {
	if firstRecording {
		return p.FirstFallbackWindow
	}
	return p.FallbackWindow
}

// Budget is an upper bound on how long detection can take once stop was requested.
// A finalize arriving just before the fallback concludes is the slowest case.
func (p Policy) Budget(firstRecording bool) time.Duration {
	fallbackEnd := p.FallbackDelay(firstRecording) + p.RetryDelay
	return fallbackEnd + p.InitialDelay(firstRecording, true) + p.RetryDelay
}
