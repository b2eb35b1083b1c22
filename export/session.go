package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/yeti47/eight/common"
	"github.com/yeti47/eight/faults"
	"github.com/yeti47/eight/metrics"
)

type Status int

const (
	Pending Status = iota
	Running
	Completed
	Failed
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// IsTerminal reports whether the export has settled
func (s Status) IsTerminal() bool {
	return s == Completed || s == Failed || s == Cancelled
}

// Job is one encode
type Job struct {
	Args       []string
	Duration   time.Duration // Expected output duration, used for progress
	OutputPath string
}

type Options struct {
	// PollInterval is how often progress is sampled while encoding
	PollInterval time.Duration
	// OnProgress receives every change of the progress fraction
	OnProgress func(float64)
	Logger     common.Logger
}

const DefaultPollInterval = 100 * time.Millisecond

// Session runs a single export and exposes its progress and terminal status
type Session struct {
	job        Job
	runner     Runner
	interval   time.Duration
	onProgress func(float64)
	logger     common.Logger

	mu       sync.Mutex
	status   Status
	reason   string
	progress float64
	started  bool
}

func NewSession(runner Runner, job Job, opts Options) *Session {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &Session{
		job:        job,
		runner:     runner,
		interval:   opts.PollInterval,
		onProgress: opts.OnProgress,
		logger:     common.LoggerOrNop(opts.Logger),
	}
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Reason is the failure reason of a Failed export
func (s *Session) Reason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

func (s *Session) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// Run encodes the job and blocks until it settles. A Session runs once.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("export session already ran")
	}
	s.started = true
	s.status = Running
	s.mu.Unlock()

	started := time.Now()
	parser := &progressParser{}
	stderr := common.NewTailBuffer(2048)

	s.logger.Info("Export started", "output", s.job.OutputPath, "duration", s.job.Duration)
	proc, err := s.runner.Start(ctx, s.job.Args, parser, stderr)
	if err != nil {
		return s.fail(err, "failed to start encoder")
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- proc.Wait()
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			outTime, _ := parser.snapshot()
			s.setProgress(fraction(outTime, s.job.Duration))
		case err := <-waitErr:
			return s.settle(ctx, err, stderr, started)
		}
	}
}

func (s *Session) settle(ctx context.Context, err error, stderr *common.TailBuffer, started time.Time) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		s.removeOutput()
		s.mu.Lock()
		s.status = Cancelled
		s.mu.Unlock()
		metrics.IncExport("cancelled")
		s.logger.Info("Export cancelled", "output", s.job.OutputPath)
		return ctxErr
	}

	if err != nil {
		return s.fail(err, lastLine(stderr.String()))
	}

	info, statErr := os.Stat(s.job.OutputPath)
	if statErr != nil || info.Size() == 0 {
		return s.fail(errors.New("encoder produced no output"), "")
	}

	s.mu.Lock()
	s.status = Completed
	s.mu.Unlock()
	s.setProgress(1)

	elapsed := time.Since(started)
	metrics.IncExport("completed")
	metrics.ObserveExportDuration(elapsed)
	s.logger.Info("Export completed", "output", s.job.OutputPath, "bytes", info.Size(), "elapsed", elapsed)
	return nil
}

func (s *Session) fail(err error, detail string) error {
	s.removeOutput()

	reason := err.Error()
	if detail != "" {
		reason = detail
	}
	s.mu.Lock()
	s.status = Failed
	s.reason = reason
	s.mu.Unlock()

	metrics.IncExport("failed")
	s.logger.Error("Export failed", "output", s.job.OutputPath, "reason", reason, "error", err)
	return &faults.Error{Kind: faults.EncodeFailed, Op: "export", Reason: reason, Err: err}
}

func (s *Session) setProgress(p float64) {
	s.mu.Lock()
	if p <= s.progress {
		s.mu.Unlock()
		return
	}
	s.progress = p
	s.mu.Unlock()

	if s.onProgress != nil {
		s.onProgress(p)
	}
}

// removeOutput makes sure a failed export leaves nothing that looks usable
func (s *Session) removeOutput() {
	if s.job.OutputPath == "" {
		return
	}
	if err := os.Remove(s.job.OutputPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("Failed to remove partial export", "path", s.job.OutputPath, "error", err)
	}
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
