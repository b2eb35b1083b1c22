package export

import (
	"context"
	"io"
	"os"
	"os/exec"
	"time"
)

// Process is a started encoder
type Process interface {
	Wait() error
}

// Runner starts the encoder. Progress lines go to progress and diagnostics to stderr.
// The process must exit when ctx is cancelled.
type Runner interface {
	Start(ctx context.Context, args []string, progress, stderr io.Writer) (Process, error)
}

// FFmpegRunner runs the ffmpeg binary
type FFmpegRunner struct {
	Binary string
}

func NewFFmpegRunner() *FFmpegRunner {
	return &FFmpegRunner{Binary: "ffmpeg"}
}

func (r *FFmpegRunner) Start(ctx context.Context, args []string, progress, stderr io.Writer) (Process, error) {
	full := append([]string{"-hide_banner", "-nostdin", "-loglevel", "error", "-nostats", "-progress", "pipe:1"}, args...)
	cmd := exec.CommandContext(ctx, r.Binary, full...)
	cmd.Stdout = progress
	cmd.Stderr = stderr
	// ask ffmpeg to stop cleanly first, then kill
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = 3 * time.Second

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd, nil
}
