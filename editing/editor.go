package editing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/yeti47/eight/common"
	"github.com/yeti47/eight/composition"
	"github.com/yeti47/eight/faults"
	"github.com/yeti47/eight/media"
)

// Composer renders an edit
type Composer interface {
	Compose(ctx context.Context, spec composition.Spec, onProgress func(float64)) (string, error)
	MaxDuration() time.Duration
}

type Options struct {
	Demuxer  media.Demuxer
	Composer Composer
	Logger   common.Logger

	LoadAttempts   int           // Attempts to load a freshly recorded file, default 3
	LoadRetryDelay time.Duration // Delay between load attempts, default 0.5s
	MinSizeBytes   int64         // Smallest loadable file, default 1000

	// OnStatus is called after every change, on the goroutine that made it
	OnStatus func(Status)
}

// Status is what a UI shows for the edit screen
type Status struct {
	Source    string
	Loaded    bool
	Duration  time.Duration
	Trim      composition.TrimRange
	Overlay   *composition.TextOverlay
	Exporting bool
	Progress  float64
	LastError error
	Message   string
}

// Editor holds the trim range and caption for one recorded clip and exports it
type Editor struct {
	demuxer  media.Demuxer
	composer Composer
	logger   common.Logger
	onStatus func(Status)

	attempts   int
	retryDelay time.Duration
	minSize    int64

	mu           sync.Mutex
	source       string
	duration     time.Duration
	trim         composition.TrimRange
	overlay      *composition.TextOverlay
	exporting    bool
	progress     float64
	lastErr      error
	exportSeq    uint64
	cancelExport context.CancelFunc
}

func NewEditor(opts Options) *Editor {
	if opts.LoadAttempts <= 0 {
		opts.LoadAttempts = 3
	}
	if opts.LoadRetryDelay <= 0 {
		opts.LoadRetryDelay = 500 * time.Millisecond
	}
	if opts.MinSizeBytes <= 0 {
		opts.MinSizeBytes = 1000
	}
	return &Editor{
		demuxer:    opts.Demuxer,
		composer:   opts.Composer,
		logger:     common.LoggerOrNop(opts.Logger),
		onStatus:   opts.OnStatus,
		attempts:   opts.LoadAttempts,
		retryDelay: opts.LoadRetryDelay,
		minSize:    opts.MinSizeBytes,
	}
}

// Load opens a recorded clip. The file may still be settling on disk, so it
// is checked up to LoadAttempts times before giving up.
func (e *Editor) Load(ctx context.Context, path string) error {
	var lastErr error
	for attempt := 1; attempt <= e.attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(e.retryDelay):
			}
		}

		duration, err := e.tryLoad(ctx, path)
		if err == nil {
			maxDuration := e.composer.MaxDuration().Seconds()
			e.mu.Lock()
			e.source = path
			e.duration = duration
			e.trim = composition.DefaultTrim(duration.Seconds(), maxDuration)
			e.overlay = nil
			e.progress = 0
			e.lastErr = nil
			e.mu.Unlock()

			e.logger.Info("Clip loaded for editing", "path", path, "duration", duration, "attempt", attempt)
			e.notify()
			return nil
		}
		lastErr = err
		e.logger.Debug("Clip not ready for editing", "path", path, "attempt", attempt, "error", err)
	}

	e.mu.Lock()
	e.lastErr = lastErr
	e.mu.Unlock()
	e.notify()
	return lastErr
}

func (e *Editor) tryLoad(ctx context.Context, path string) (time.Duration, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, faults.New(faults.FileNotFound, "load clip", err)
	}
	if info.Size() < e.minSize {
		return 0, faults.Newf(faults.FileTooSmall, "load clip", "%d bytes", info.Size())
	}

	duration, err := e.demuxer.Duration(ctx, path)
	if err != nil {
		return 0, faults.New(faults.NoMediaTrack, "load clip", err)
	}
	if duration <= 0 {
		return 0, faults.Newf(faults.NoMediaTrack, "load clip", "zero duration")
	}
	return duration, nil
}

// SetTrimRange stores the clamped range and returns it
func (e *Editor) SetTrimRange(r composition.TrimRange) composition.TrimRange {
	e.mu.Lock()
	r = composition.ClampTrim(r, e.duration.Seconds(), e.composer.MaxDuration().Seconds())
	e.trim = r
	e.mu.Unlock()
	e.notify()
	return r
}

// SetTextOverlay replaces the caption; nil removes it
func (e *Editor) SetTextOverlay(o *composition.TextOverlay) {
	e.mu.Lock()
	if o == nil {
		e.overlay = nil
	} else {
		normalized := o.Normalized()
		e.overlay = &normalized
	}
	e.mu.Unlock()
	e.notify()
}

// EnsureOverlay returns the caption, creating a default one on first use
func (e *Editor) EnsureOverlay() composition.TextOverlay {
	e.mu.Lock()
	if e.overlay == nil {
		o := composition.NewTextOverlay()
		e.overlay = &o
	}
	o := *e.overlay
	e.mu.Unlock()
	e.notify()
	return o
}

// EditedText is the caption text, or "" when there is none to publish
func (e *Editor) EditedText() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !composition.HasText(e.overlay) {
		return ""
	}
	return strings.TrimSpace(e.overlay.Text)
}

// Export renders the current edit. A newer Export cancels an older one still
// running; the superseded call returns context.Canceled.
func (e *Editor) Export(ctx context.Context) (string, error) {
	e.mu.Lock()
	if e.source == "" {
		e.mu.Unlock()
		return "", errors.New("no clip loaded")
	}
	if e.cancelExport != nil {
		e.cancelExport()
	}
	exportCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.exportSeq++
	seq := e.exportSeq
	e.cancelExport = cancel
	e.exporting = true
	e.progress = 0
	e.lastErr = nil

	spec := composition.Spec{SourcePath: e.source, Trim: e.trim}
	if e.overlay != nil {
		o := *e.overlay
		spec.Overlay = &o
	}
	e.mu.Unlock()
	e.notify()

	out, err := e.composer.Compose(exportCtx, spec, func(p float64) {
		e.mu.Lock()
		current := e.exportSeq == seq
		if current {
			e.progress = p
		}
		e.mu.Unlock()
		if current {
			e.notify()
		}
	})

	e.mu.Lock()
	if e.exportSeq == seq {
		e.exporting = false
		e.cancelExport = nil
		if err != nil && !errors.Is(err, context.Canceled) {
			e.lastErr = err
		}
	}
	e.mu.Unlock()
	e.notify()

	if err != nil {
		return "", fmt.Errorf("export of %s: %w", spec.SourcePath, err)
	}
	e.logger.Info("Clip exported", "source", spec.SourcePath, "output", out)
	return out, nil
}

func (e *Editor) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := Status{
		Source:    e.source,
		Loaded:    e.source != "",
		Duration:  e.duration,
		Trim:      e.trim,
		Exporting: e.exporting,
		Progress:  e.progress,
		LastError: e.lastErr,
		Message:   faults.Message(e.lastErr),
	}
	if e.overlay != nil {
		o := *e.overlay
		st.Overlay = &o
	}
	return st
}

func (e *Editor) notify() {
	if e.onStatus != nil {
		e.onStatus(e.Status())
	}
}
