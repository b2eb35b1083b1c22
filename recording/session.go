package recording

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yeti47/eight/common"
	"github.com/yeti47/eight/completion"
	"github.com/yeti47/eight/config"
	filemanagement "github.com/yeti47/eight/file-management"
	"github.com/yeti47/eight/faults"
	"github.com/yeti47/eight/metrics"
)

// SessionOptions wires a Session to its collaborators
type SessionOptions struct {
	Settings config.SettingsProvider[Settings]
	Detector *completion.Detector
	Files    filemanagement.FileTracker
	// Extension of recorded files, ".mp4" when empty
	Extension string
	Logger    common.Logger
	// OnStatus observes state changes. Calls are serialized on one goroutine and
	// coalesced, so a slow observer only ever sees the latest status.
	OnStatus func(Status)
}

type activeAttempt struct {
	attempt   Attempt
	finalized chan completion.FinalizeEvent
	stopTimer chan struct{}
}

// Session owns one capture device and runs the recording state machine:
// Idle → Starting → WarmingUp → Ready → Recording → Stopping → Ready.
type Session struct {
	device   Device
	settings config.SettingsProvider[Settings]
	detector *completion.Detector
	files    filemanagement.FileTracker
	ext      string
	logger   common.Logger
	onStatus func(Status)

	mu           sync.Mutex
	state        State
	zoom         float64
	hasCompleted bool
	current      *activeAttempt
	lastErr      error
	changed      chan struct{}
	closed       bool

	results    chan Result
	notify     chan struct{}
	notifyDone chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSession creates an idle session for device
func NewSession(device Device, opts SessionOptions) *Session {
	if opts.Settings == nil {
		opts.Settings = config.NewStaticSettingsProvider(DefaultSettings)
	}
	if opts.Detector == nil {
		opts.Detector = completion.NewDetector(completion.DefaultPolicy(), opts.Logger)
	}
	if opts.Extension == "" {
		opts.Extension = ".mp4"
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		device:     device,
		settings:   opts.Settings,
		detector:   opts.Detector,
		files:      opts.Files,
		ext:        opts.Extension,
		logger:     common.LoggerOrNop(opts.Logger),
		onStatus:   opts.OnStatus,
		state:      Idle,
		zoom:       1,
		changed:    make(chan struct{}),
		results:    make(chan Result, 8),
		notify:     make(chan struct{}, 1),
		notifyDone: make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
	go s.notifyLoop()
	return s
}

// Results delivers exactly one Result per real recording. Warm-ups are never delivered.
// The channel is closed by Close.
func (s *Session) Results() <-chan Result {
	return s.results
}

// State returns the current state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns a snapshot for observers
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		State:     s.state,
		Ready:     s.state == Ready,
		Recording: s.state == Recording || s.state == Stopping,
		Zoom:      s.zoom,
		LastError: s.lastErr,
		Message:   faults.Message(s.lastErr),
	}
	if a := s.current; a != nil {
		if a.attempt.StoppedAt.IsZero() {
			st.Elapsed = time.Since(a.attempt.StartedAt)
		} else {
			st.Elapsed = a.attempt.Duration()
		}
	}
	return st
}

// Start requests device access and, when granted, opens the device and warms
// the recorder up in the background. A denial is returned and leaves the
// session Idle. Use WaitReady to wait for the outcome of the background start.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return faults.Newf(faults.SessionNotReady, "start session", "session closed")
	}
	if s.state != Idle {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	granted, err := s.device.RequestAccess(ctx)
	if err != nil {
		if faults.KindOf(err) == faults.Unknown {
			err = faults.New(faults.DeviceUnavailable, "start session", err)
		}
		s.fail(err)
		return err
	}
	if !granted {
		err := faults.New(faults.PermissionDenied, "start session", nil)
		s.fail(err)
		return err
	}

	s.mu.Lock()
	if s.closed || s.state != Idle {
		s.mu.Unlock()
		return nil
	}
	s.lastErr = nil
	s.setStateLocked(Starting)
	s.wg.Add(1)
	s.mu.Unlock()
	s.notifyStatus()

	go s.startDevice()
	return nil
}

// WaitReady blocks until the session is Ready, the background start failed, or ctx ends
func (s *Session) WaitReady(ctx context.Context) error {
	for {
		s.mu.Lock()
		state, lastErr, changed := s.state, s.lastErr, s.changed
		s.mu.Unlock()

		switch {
		case state == Ready:
			return nil
		case state == Idle && lastErr != nil:
			return lastErr
		case state == Idle:
			return faults.Newf(faults.SessionNotReady, "wait ready", "session not started")
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Session) startDevice() {
	defer s.wg.Done()

	if err := s.device.Open(s.ctx); err != nil {
		if faults.KindOf(err) == faults.Unknown {
			err = faults.New(faults.DeviceUnavailable, "open device", err)
		}
		s.logger.Error("Failed to start capture session", "error", err)
		s.mu.Lock()
		s.lastErr = err
		s.setStateLocked(Idle)
		s.mu.Unlock()
		s.notifyStatus()
		return
	}

	s.logger.Info("Capture session running")
	if !s.transition(Starting, WarmingUp) {
		return
	}

	s.warmUp()

	if s.transition(WarmingUp, Ready) {
		s.logger.Info("Capture session ready")
	}
}

// warmUp records one short throwaway clip so the first real recording does
// not pay the recorder's first-write latency. Failures only log.
func (s *Session) warmUp() {
	settings := s.settings.GetSettings()
	if settings.SkipWarmup {
		metrics.IncWarmup("skipped")
		return
	}
	if !s.sleep(settings.WarmupDelay) {
		return
	}

	path := s.newPath("warmup")
	finalized := make(chan completion.FinalizeEvent, 2)
	err := s.device.StartRecording(path, settings.WarmupCap, func(err error) {
		select {
		case finalized <- completion.FinalizeEvent{Err: err}:
		default:
		}
	})
	if err != nil {
		s.logger.Warn("Warm-up recording could not start", "error", err)
		metrics.IncWarmup("failed")
		s.deleteFile(path)
		return
	}

	s.sleep(settings.WarmupStopAfter)
	s.device.StopRecording()

	outcome := s.detector.Detect(s.ctx, completion.Request{
		Path:           path,
		FirstRecording: true,
		Finalized:      finalized,
	})
	s.sleep(settings.WarmupSettle)
	s.deleteFile(path)

	if outcome.IsValid() {
		metrics.IncWarmup("ok")
		s.logger.Debug("Warm-up recording completed", "size", outcome.SizeBytes)
	} else {
		metrics.IncWarmup("failed")
		s.logger.Warn("Warm-up recording was not usable", "error", outcome.Err)
	}
}

// StartRecording begins a recording. It is only valid in Ready; in any other
// state it returns a SessionNotReady error and changes nothing.
func (s *Session) StartRecording() (Attempt, error) {
	settings := s.settings.GetSettings()

	s.mu.Lock()
	if s.closed || s.state != Ready {
		err := faults.Newf(faults.SessionNotReady, "start recording", "session is %s", s.state)
		s.lastErr = err
		s.mu.Unlock()
		s.notifyStatus()
		return Attempt{}, err
	}

	a := &activeAttempt{
		attempt: Attempt{
			ID:             uuid.NewString(),
			OutputPath:     s.newPath("recording"),
			StartedAt:      time.Now(),
			FirstInSession: !s.hasCompleted,
		},
		finalized: make(chan completion.FinalizeEvent, 2),
		stopTimer: make(chan struct{}),
	}

	onFinalize := func(err error) {
		select {
		case a.finalized <- completion.FinalizeEvent{Err: err}:
		default:
		}
		// the device stopped on its own (e.g. its duration cap fired)
		s.stop(a, "device finalized", false)
	}

	if err := s.device.StartRecording(a.attempt.OutputPath, settings.MaxDuration, onFinalize); err != nil {
		err = faults.New(faults.OutputCreationFailed, "start recording", err)
		s.lastErr = err
		s.mu.Unlock()
		s.notifyStatus()
		return Attempt{}, err
	}

	a.attempt.StartedAt = time.Now()
	started := a.attempt
	s.current = a
	s.lastErr = nil
	s.setStateLocked(Recording)
	s.wg.Add(1)
	s.mu.Unlock()
	s.notifyStatus()

	s.logger.Info("Recording started", "id", started.ID, "path", started.OutputPath,
		"first_in_session", started.FirstInSession)

	go s.runTimer(a, started.StartedAt, settings.MaxDuration, settings.TickInterval)
	return started, nil
}

// StopRecording stops the current recording. Calls outside Recording,
// including repeated calls while Stopping, do nothing.
func (s *Session) StopRecording() {
	s.mu.Lock()
	a := s.current
	s.mu.Unlock()
	if a != nil {
		s.stop(a, "requested", true)
	}
}

// stop moves a from Recording to Stopping exactly once and hands it to detection
func (s *Session) stop(a *activeAttempt, reason string, stopDevice bool) {
	s.mu.Lock()
	if s.current != a || s.state != Recording {
		s.mu.Unlock()
		return
	}
	a.attempt.StoppedAt = time.Now()
	stopped := a.attempt
	close(a.stopTimer)
	s.setStateLocked(Stopping)
	if s.closed {
		// torn down mid-recording; nobody is left to receive the result
		s.mu.Unlock()
		if stopDevice {
			s.device.StopRecording()
		}
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	s.notifyStatus()

	s.logger.Info("Recording stopping", "id", stopped.ID, "reason", reason, "elapsed", stopped.Duration())

	if stopDevice {
		s.device.StopRecording()
	}
	go s.resolve(a)
}

// runTimer stops the recording at maxDuration even if the device cap never fires
func (s *Session) runTimer(a *activeAttempt, startedAt time.Time, maxDuration, tick time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopTimer:
			return
		case <-s.ctx.Done():
			return
		case now := <-ticker.C:
			if now.Sub(startedAt) >= maxDuration {
				s.stop(a, "max duration reached", true)
				return
			}
			s.notifyStatus()
		}
	}
}

func (s *Session) resolve(a *activeAttempt) {
	defer s.wg.Done()

	s.mu.Lock()
	first, path := a.attempt.FirstInSession, a.attempt.OutputPath
	s.mu.Unlock()

	outcome := s.detector.Detect(s.ctx, completion.Request{
		Path:           path,
		FirstRecording: first,
		Finalized:      a.finalized,
	})

	s.mu.Lock()
	a.attempt.Outcome = outcome
	if outcome.IsValid() {
		s.hasCompleted = true
	} else {
		s.lastErr = outcome.Err
	}
	s.current = nil
	if !s.closed {
		s.setStateLocked(Ready)
	}
	result := Result{Attempt: a.attempt, Outcome: outcome}
	s.mu.Unlock()
	s.notifyStatus()

	if outcome.IsValid() {
		metrics.IncRecording("valid")
		s.logger.Info("Recording completed", "id", result.Attempt.ID, "size", outcome.SizeBytes, "duration", result.Attempt.Duration())
	} else {
		metrics.IncRecording("invalid")
		s.logger.Warn("Recording failed validation", "id", result.Attempt.ID, "error", outcome.Err)
		s.deleteFile(result.Attempt.OutputPath)
	}

	select {
	case s.results <- result:
	case <-s.ctx.Done():
	}
}

// SetZoom clamps factor to the supported range, applies it and returns the effective value
func (s *Session) SetZoom(factor float64) (float64, error) {
	minZoom, maxZoom := s.ZoomRange()
	if math.IsNaN(factor) {
		factor = minZoom
	}
	clamped := math.Max(minZoom, math.Min(factor, maxZoom))

	if err := s.device.SetZoom(clamped); err != nil {
		return s.currentZoom(), fmt.Errorf("failed to set zoom: %w", err)
	}

	s.mu.Lock()
	s.zoom = clamped
	s.mu.Unlock()
	s.notifyStatus()
	return clamped, nil
}

// ZoomRange is the device's range capped by the configured maximum
func (s *Session) ZoomRange() (float64, float64) {
	minZoom, maxZoom := s.device.ZoomRange()
	if minZoom < 1 {
		minZoom = 1
	}
	if limit := s.settings.GetSettings().MaxZoom; limit >= 1 && maxZoom > limit {
		maxZoom = limit
	}
	if maxZoom < minZoom {
		maxZoom = minZoom
	}
	return minZoom, maxZoom
}

func (s *Session) currentZoom() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zoom
}

// Close stops any recording, waits for background work and releases the device
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	recording := s.state == Recording
	s.mu.Unlock()

	if recording {
		s.device.StopRecording()
	}
	s.cancel()
	s.wg.Wait()
	<-s.notifyDone

	s.mu.Lock()
	s.setStateLocked(Idle)
	s.mu.Unlock()

	close(s.results)
	return s.device.Close()
}

func (s *Session) transition(from, to State) bool {
	s.mu.Lock()
	if s.closed || s.state != from {
		s.mu.Unlock()
		return false
	}
	s.setStateLocked(to)
	s.mu.Unlock()
	s.notifyStatus()
	return true
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	s.notifyStatus()
}

func (s *Session) setStateLocked(state State) {
	if s.state == state {
		return
	}
	s.logger.Debug("Capture session state changed", "from", s.state.String(), "to", state.String())
	s.state = state
	close(s.changed)
	s.changed = make(chan struct{})
}

func (s *Session) notifyStatus() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Session) notifyLoop() {
	defer close(s.notifyDone)
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.notify:
			if s.onStatus != nil {
				s.onStatus(s.Status())
			}
		}
	}
}

func (s *Session) newPath(prefix string) string {
	if s.files != nil {
		return s.files.NewTempPath(prefix, s.ext)
	}
	return fmt.Sprintf("%s_%s%s", prefix, uuid.NewString(), s.ext)
}

func (s *Session) deleteFile(path string) {
	if s.files != nil {
		s.files.DeleteFile(path)
	}
}

func (s *Session) sleep(d time.Duration) bool {
	if d <= 0 {
		return s.ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-s.ctx.Done():
		return false
	}
}
