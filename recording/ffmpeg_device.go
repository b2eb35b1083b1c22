package recording

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/yeti47/eight/common"
	"github.com/yeti47/eight/faults"
)

// FFmpegDevice records camera and microphone by running ffmpeg against
// v4l2 and alsa. Every recording is its own ffmpeg process; stop sends SIGINT
// so ffmpeg writes the container trailer before exiting.
type FFmpegDevice struct {
	settings DeviceSettings
	binary   string
	logger   common.Logger

	mu     sync.Mutex
	opened bool
	zoom   float64
	cmd    *exec.Cmd
	exited chan struct{}
}

func NewFFmpegDevice(settings DeviceSettings, logger common.Logger) *FFmpegDevice {
	if settings.FrameRate <= 0 {
		settings.FrameRate = 30
	}
	return &FFmpegDevice{
		settings: settings,
		binary:   "ffmpeg",
		logger:   common.LoggerOrNop(logger),
		zoom:     1,
	}
}

func (d *FFmpegDevice) RequestAccess(ctx context.Context) (bool, error) {
	return checkDeviceAccess(d.settings.Device)
}

// Open verifies that ffmpeg is installed; the camera itself is opened per recording
func (d *FFmpegDevice) Open(ctx context.Context) error {
	path, err := exec.LookPath(d.binary)
	if err != nil {
		return faults.New(faults.DeviceUnavailable, "open ffmpeg device", err)
	}

	d.mu.Lock()
	d.binary = path
	d.opened = true
	d.mu.Unlock()
	return nil
}

// captureArgs builds the ffmpeg command line for one recording
func (d *FFmpegDevice) captureArgs(path string, maxDuration time.Duration, zoom float64) []string {
	s := d.settings
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin",
		"-f", "v4l2",
		"-framerate", strconv.FormatFloat(s.FrameRate, 'f', -1, 64),
	}
	if !s.Resolution.IsEmpty() {
		args = append(args, "-video_size", s.Resolution.String())
	}
	args = append(args, "-i", s.Device)

	hasAudio := s.AudioDevice != "" && s.AudioDevice != "none"
	if hasAudio {
		args = append(args, "-f", "alsa", "-i", s.AudioDevice)
	}

	args = append(args, "-t", strconv.FormatFloat(maxDuration.Seconds(), 'f', 3, 64))

	if zoom > 1 {
		filter := fmt.Sprintf("crop=trunc(iw/%[1]g/2)*2:trunc(ih/%[1]g/2)*2", zoom)
		if !s.Resolution.IsEmpty() {
			filter += ",scale=" + s.Resolution.Format("w:h")
		}
		args = append(args, "-vf", filter)
	}

	args = append(args, "-c:v", "libx264", "-preset", "ultrafast", "-pix_fmt", "yuv420p")
	if hasAudio {
		args = append(args, "-c:a", "aac")
	}
	if s.Rotation != 0 {
		args = append(args, "-metadata:s:v:0", "rotate="+strconv.Itoa(s.Rotation))
	}
	return append(args, "-y", path)
}

func (d *FFmpegDevice) StartRecording(path string, maxDuration time.Duration, onFinalize FinalizeFunc) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.opened {
		return errors.New("device not open")
	}
	if d.cmd != nil {
		return errors.New("a recording is already in progress")
	}

	cmd := exec.Command(d.binary, d.captureArgs(path, maxDuration, d.zoom)...)
	stderr := common.NewTailBuffer(4096)
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	exited := make(chan struct{})
	d.cmd = cmd
	d.exited = exited
	d.logger.Debug("ffmpeg capture started", "path", path, "pid", cmd.Process.Pid)

	go func() {
		err := cmd.Wait()
		close(exited)

		d.mu.Lock()
		if d.cmd == cmd {
			d.cmd = nil
		}
		d.mu.Unlock()

		if err != nil {
			// exit status 255 after SIGINT is ffmpeg's normal early stop
			err = fmt.Errorf("ffmpeg exited: %w: %s", err, strings.TrimSpace(stderr.String()))
			d.logger.Debug("ffmpeg capture ended with error", "path", path, "error", err)
		}
		onFinalize(err)
	}()
	return nil
}

func (d *FFmpegDevice) StopRecording() {
	d.mu.Lock()
	cmd := d.cmd
	d.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return
	}
	if err := cmd.Process.Signal(syscall.SIGINT); err != nil {
		_ = cmd.Process.Kill()
	}
}

func (d *FFmpegDevice) SetZoom(factor float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.zoom = factor
	return nil
}

func (d *FFmpegDevice) ZoomRange() (float64, float64) {
	if d.settings.MaxZoom >= 1 {
		return 1, d.settings.MaxZoom
	}
	return 1, 4
}

func (d *FFmpegDevice) Preview() <-chan PreviewFrame {
	return nil
}

// Close stops a running capture and waits up to five seconds for ffmpeg to exit
func (d *FFmpegDevice) Close() error {
	d.StopRecording()

	d.mu.Lock()
	exited := d.exited
	cmd := d.cmd
	d.opened = false
	d.mu.Unlock()

	if cmd == nil || exited == nil {
		return nil
	}
	select {
	case <-exited:
	case <-time.After(5 * time.Second):
		_ = cmd.Process.Kill()
		<-exited
	}
	return nil
}
