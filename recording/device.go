package recording

import (
	"context"
	"errors"
	"os"
	"syscall"
	"time"

	"github.com/yeti47/eight/faults"
	"github.com/yeti47/eight/resolution"
)

// FinalizeFunc receives the recorder's "stop processed" signal. err is
// informational; the file may still be valid.
type FinalizeFunc func(err error)

// PreviewFrame is one JPEG-encoded frame of the live preview
type PreviewFrame struct {
	JPEG       []byte
	Size       resolution.Resolution
	CapturedAt time.Time
}

// Device is an exclusively owned camera (and microphone) with a file recorder.
type Device interface {
	// RequestAccess checks whether the process may use the device
	RequestAccess(ctx context.Context) (bool, error)
	// Open starts the live device session
	Open(ctx context.Context) error
	// Close releases the device
	Close() error
	// StartRecording writes to path and stops on its own after maxDuration.
	// onFinalize is called from another goroutine after StartRecording has
	// returned nil, possibly more than once.
	StartRecording(path string, maxDuration time.Duration, onFinalize FinalizeFunc) error
	// StopRecording requests the current recording to stop
	StopRecording()
	// SetZoom applies an already clamped zoom factor
	SetZoom(factor float64) error
	// ZoomRange reports the zoom factors the hardware supports
	ZoomRange() (min, max float64)
	// Preview returns the live preview frames, or nil if the device has none
	Preview() <-chan PreviewFrame
}

// DeviceSettings configures a concrete capture backend
type DeviceSettings struct {
	Device      string
	AudioDevice string
	Resolution  resolution.Resolution
	FrameRate   float64
	Codec       string
	// Rotation is the clockwise rotation in degrees written as display metadata
	Rotation int
	MaxZoom  float64
}

// checkDeviceAccess maps filesystem access to the device node onto the
// permission outcome: a node that exists but cannot be opened is a denial.
func checkDeviceAccess(node string) (bool, error) {
	if _, err := os.Stat(node); err != nil {
		return false, faults.New(faults.DeviceUnavailable, "request access", err)
	}
	f, err := os.OpenFile(node, os.O_RDWR, 0)
	if err != nil {
		if errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
			return false, nil
		}
		return false, faults.New(faults.DeviceUnavailable, "request access", err)
	}
	_ = f.Close()
	return true, nil
}
