package recording

import (
	"time"

	"github.com/yeti47/eight/completion"
)

// State is the capture session's lifecycle position
type State int

const (
	Idle State = iota
	Starting
	WarmingUp
	Ready
	Recording
	Stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case WarmingUp:
		return "warming_up"
	case Ready:
		return "ready"
	case Recording:
		return "recording"
	case Stopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Attempt is one recording into its own output file
type Attempt struct {
	ID         string
	OutputPath string
	StartedAt  time.Time
	StoppedAt  time.Time
	IsWarmup   bool
	// FirstInSession is set until a recording of this session has resolved valid
	FirstInSession bool
	Outcome        completion.Outcome
}

// Duration is the wall time between start and stop
func (a Attempt) Duration() time.Duration {
	if a.StoppedAt.IsZero() {
		return 0
	}
	return a.StoppedAt.Sub(a.StartedAt)
}

// Result hands a resolved attempt to the caller
type Result struct {
	Attempt Attempt
	Outcome completion.Outcome
}

// Status is the observable view of a session
type Status struct {
	State     State
	Ready     bool
	Recording bool
	Elapsed   time.Duration
	Zoom      float64
	LastError error
	// Message is the user-facing text for LastError
	Message string
}
