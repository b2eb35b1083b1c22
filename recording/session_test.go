package recording

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/yeti47/eight/completion"
	"github.com/yeti47/eight/config"
	filemanagement "github.com/yeti47/eight/file-management"
	"github.com/yeti47/eight/faults"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeRecording struct {
	path       string
	onFinalize FinalizeFunc
	once       sync.Once
	capTimer   *time.Timer
}

type fakeDevice struct {
	mu sync.Mutex

	denied    bool
	accessErr error
	openErr   error
	startErr  error
	zoomMax   float64
	honourCap bool
	fileSize  int
	// finalizeErr is reported with the finalize signal
	finalizeErr   error
	finalizeTwice bool

	zoom       float64
	started    []string
	stops      int
	closed     bool
	active     *fakeRecording
	finalizers sync.WaitGroup
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{zoomMax: 20, honourCap: true, fileSize: 4096, zoom: 1}
}

func (d *fakeDevice) RequestAccess(ctx context.Context) (bool, error) {
	return !d.denied, d.accessErr
}

func (d *fakeDevice) Open(ctx context.Context) error { return d.openErr }

func (d *fakeDevice) Close() error {
	d.finalizers.Wait()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *fakeDevice) StartRecording(path string, maxDuration time.Duration, onFinalize FinalizeFunc) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.startErr != nil {
		return d.startErr
	}
	rec := &fakeRecording{path: path, onFinalize: onFinalize}
	if d.honourCap {
		d.finalizers.Add(1)
		rec.capTimer = time.AfterFunc(maxDuration, func() {
			defer d.finalizers.Done()
			d.finish(rec)
		})
	}
	d.started = append(d.started, path)
	d.active = rec
	return nil
}

func (d *fakeDevice) StopRecording() {
	d.mu.Lock()
	d.stops++
	rec := d.active
	d.mu.Unlock()
	if rec == nil {
		return
	}
	if rec.capTimer != nil && rec.capTimer.Stop() {
		d.finalizers.Done()
	}
	d.finalizers.Add(1)
	go func() {
		defer d.finalizers.Done()
		time.Sleep(5 * time.Millisecond)
		d.finish(rec)
	}()
}

func (d *fakeDevice) finish(rec *fakeRecording) {
	rec.once.Do(func() {
		if d.fileSize > 0 {
			_ = os.WriteFile(rec.path, make([]byte, d.fileSize), 0644)
		}
		rec.onFinalize(d.finalizeErr)
		if d.finalizeTwice {
			rec.onFinalize(errors.New("duplicate finalize"))
		}
	})
}

func (d *fakeDevice) SetZoom(factor float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.zoom = factor
	return nil
}

func (d *fakeDevice) ZoomRange() (float64, float64) { return 1, d.zoomMax }

func (d *fakeDevice) Preview() <-chan PreviewFrame { return nil }

func (d *fakeDevice) startedPaths() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.started...)
}

func fastSettings() Settings {
	return Settings{
		MaxDuration:     2 * time.Second,
		MaxZoom:         10,
		TickInterval:    100 * time.Millisecond,
		WarmupDelay:     5 * time.Millisecond,
		WarmupCap:       20 * time.Millisecond,
		WarmupStopAfter: 25 * time.Millisecond,
		WarmupSettle:    5 * time.Millisecond,
	}
}

func fastPolicy() completion.Policy {
	return completion.Policy{
		LaterDelay:          10 * time.Millisecond,
		LaterErrorDelay:     20 * time.Millisecond,
		FirstDelay:          15 * time.Millisecond,
		FirstErrorDelay:     30 * time.Millisecond,
		RetryDelay:          20 * time.Millisecond,
		FallbackWindow:      80 * time.Millisecond,
		FirstFallbackWindow: 120 * time.Millisecond,
		MinSizeBytes:        1000,
	}
}

func newTestSession(t *testing.T, dev *fakeDevice, settings Settings) (*Session, string) {
	t.Helper()
	dir := t.TempDir()
	s := NewSession(dev, SessionOptions{
		Settings: config.NewStaticSettingsProvider(settings),
		Detector: completion.NewDetector(fastPolicy(), nil),
		Files:    filemanagement.NewLocalFileTracker(dir, nil),
	})
	t.Cleanup(func() { _ = s.Close() })
	return s, dir
}

func startReady(t *testing.T, s *Session) {
	t.Helper()
	require.NoError(t, s.Start(context.Background()))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.WaitReady(ctx))
}

func awaitResult(t *testing.T, s *Session, within time.Duration) Result {
	t.Helper()
	select {
	case r := <-s.Results():
		return r
	case <-time.After(within):
		t.Fatalf("no result within %v", within)
		return Result{}
	}
}

func TestStart_PermissionDenied(t *testing.T) {
	dev := newFakeDevice()
	dev.denied = true
	s, _ := newTestSession(t, dev, fastSettings())

	err := s.Start(context.Background())

	assert.ErrorIs(t, err, faults.ErrPermissionDenied)
	assert.Equal(t, Idle, s.State())
	assert.Equal(t, "Camera permission denied", s.Status().Message)
	assert.Empty(t, dev.startedPaths())
}

func TestStart_DeviceOpenFailure(t *testing.T) {
	dev := newFakeDevice()
	dev.openErr = errors.New("VIDIOC_STREAMON: device busy")
	s, _ := newTestSession(t, dev, fastSettings())

	require.NoError(t, s.Start(context.Background()))
	err := s.WaitReady(context.Background())

	assert.ErrorIs(t, err, faults.ErrDeviceUnavailable)
	assert.Equal(t, Idle, s.State())
}

func TestWarmup_NeverSurfacedAndDeleted(t *testing.T) {
	dev := newFakeDevice()
	s, _ := newTestSession(t, dev, fastSettings())

	startReady(t, s)

	paths := dev.startedPaths()
	require.Len(t, paths, 1)
	assert.True(t, strings.HasPrefix(filepath.Base(paths[0]), "warmup_"))
	assert.NoFileExists(t, paths[0])

	select {
	case r := <-s.Results():
		t.Fatalf("warm-up surfaced as a result: %+v", r)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWarmup_FailureStillEndsReady(t *testing.T) {
	dev := newFakeDevice()
	dev.fileSize = 0
	s, _ := newTestSession(t, dev, fastSettings())

	startReady(t, s)

	assert.Equal(t, Ready, s.State())
	assert.NoError(t, s.Status().LastError)
}

func TestStartRecording_RejectedWhileWarmingUp(t *testing.T) {
	dev := newFakeDevice()
	settings := fastSettings()
	settings.WarmupDelay = 300 * time.Millisecond
	s, _ := newTestSession(t, dev, settings)

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return s.State() == WarmingUp }, time.Second, 5*time.Millisecond)

	_, err := s.StartRecording()

	assert.ErrorIs(t, err, faults.ErrSessionNotReady)
	assert.Equal(t, WarmingUp, s.State())
	assert.Empty(t, dev.startedPaths())
}

func TestStartRecording_RejectedWhenIdle(t *testing.T) {
	s, _ := newTestSession(t, newFakeDevice(), fastSettings())

	_, err := s.StartRecording()

	assert.ErrorIs(t, err, faults.ErrSessionNotReady)
	assert.Equal(t, Idle, s.State())
}

func TestStartRecording_OutputCreationFailure(t *testing.T) {
	dev := newFakeDevice()
	settings := fastSettings()
	settings.SkipWarmup = true
	s, _ := newTestSession(t, dev, settings)
	startReady(t, s)

	dev.mu.Lock()
	dev.startErr = errors.New("cannot open output")
	dev.mu.Unlock()

	_, err := s.StartRecording()

	assert.ErrorIs(t, err, faults.ErrOutputCreationFailed)
	assert.Equal(t, Ready, s.State())
}

func TestStopRecording_TwiceDeliversOneResult(t *testing.T) {
	dev := newFakeDevice()
	dev.finalizeTwice = true
	s, _ := newTestSession(t, dev, fastSettings())
	startReady(t, s)

	attempt, err := s.StartRecording()
	require.NoError(t, err)
	assert.Equal(t, Recording, s.State())

	time.Sleep(50 * time.Millisecond)
	s.StopRecording()
	s.StopRecording()
	assert.Equal(t, Stopping, s.State())

	r := awaitResult(t, s, time.Second)
	assert.Equal(t, attempt.ID, r.Attempt.ID)
	assert.True(t, r.Outcome.IsValid())

	select {
	case extra := <-s.Results():
		t.Fatalf("second result delivered: %+v", extra)
	case <-time.After(200 * time.Millisecond):
	}

	dev.mu.Lock()
	stops := dev.stops
	dev.mu.Unlock()
	assert.Equal(t, 2, stops, "one warm-up stop plus one recording stop")
	assert.Equal(t, Ready, s.State())
}

func TestAutoStop_LocalTimerWithoutDeviceCap(t *testing.T) {
	dev := newFakeDevice()
	dev.honourCap = false
	settings := fastSettings()
	settings.SkipWarmup = true
	settings.MaxDuration = 500 * time.Millisecond
	s, _ := newTestSession(t, dev, settings)
	startReady(t, s)

	_, err := s.StartRecording()
	require.NoError(t, err)

	r := awaitResult(t, s, 2*time.Second)

	assert.True(t, r.Outcome.IsValid())
	assert.GreaterOrEqual(t, r.Attempt.Duration(), settings.MaxDuration)
	assert.LessOrEqual(t, r.Attempt.Duration(), settings.MaxDuration+150*time.Millisecond)
}

func TestDeviceCapFinalizeActsAsStop(t *testing.T) {
	dev := newFakeDevice()
	settings := fastSettings()
	settings.SkipWarmup = true
	settings.MaxDuration = 200 * time.Millisecond
	settings.TickInterval = time.Second
	s, _ := newTestSession(t, dev, settings)
	startReady(t, s)

	_, err := s.StartRecording()
	require.NoError(t, err)

	r := awaitResult(t, s, 2*time.Second)

	assert.True(t, r.Outcome.IsValid())
	assert.Less(t, r.Attempt.Duration(), 400*time.Millisecond)
}

func TestStartRecording_ReturnsSnapshotWhenCapFiresImmediately(t *testing.T) {
	dev := newFakeDevice()
	settings := fastSettings()
	settings.SkipWarmup = true
	settings.MaxDuration = time.Nanosecond
	settings.TickInterval = time.Millisecond
	s, _ := newTestSession(t, dev, settings)
	startReady(t, s)

	started, err := s.StartRecording()
	require.NoError(t, err)
	assert.True(t, started.StoppedAt.IsZero())
	assert.False(t, started.StartedAt.IsZero())

	r := awaitResult(t, s, 2*time.Second)
	assert.Equal(t, started.ID, r.Attempt.ID)
	assert.Equal(t, started.OutputPath, r.Attempt.OutputPath)
	assert.False(t, r.Attempt.StoppedAt.IsZero())
}

func TestNearInstantStop_ResolvesWithinBudget(t *testing.T) {
	dev := newFakeDevice()
	settings := fastSettings()
	settings.SkipWarmup = true
	s, _ := newTestSession(t, dev, settings)
	startReady(t, s)

	dev.mu.Lock()
	dev.fileSize = 0
	dev.finalizeErr = errors.New("recording stopped before any data was written")
	dev.mu.Unlock()

	_, err := s.StartRecording()
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	s.StopRecording()

	r := awaitResult(t, s, fastPolicy().Budget(true)+time.Second)

	assert.Equal(t, completion.Invalid, r.Outcome.Kind)
	assert.ErrorIs(t, r.Outcome.Err, faults.ErrFileNotFound)
	assert.Eventually(t, func() bool { return s.State() == Ready }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "Recorded file not found", s.Status().Message)
}

func TestFirstInSession_ClearedAfterValidRecording(t *testing.T) {
	dev := newFakeDevice()
	s, _ := newTestSession(t, dev, fastSettings())
	startReady(t, s)

	first, err := s.StartRecording()
	require.NoError(t, err)
	assert.True(t, first.FirstInSession)
	s.StopRecording()
	awaitResult(t, s, time.Second)
	require.Eventually(t, func() bool { return s.State() == Ready }, time.Second, 5*time.Millisecond)

	second, err := s.StartRecording()
	require.NoError(t, err)
	assert.False(t, second.FirstInSession)
	assert.NotEqual(t, first.OutputPath, second.OutputPath)
	s.StopRecording()
	awaitResult(t, s, time.Second)
}

func TestSetZoom_ClampsToConfiguredMaximum(t *testing.T) {
	dev := newFakeDevice()
	s, _ := newTestSession(t, dev, fastSettings())

	zoom, err := s.SetZoom(15)
	require.NoError(t, err)
	assert.Equal(t, 10.0, zoom)
	assert.Equal(t, 10.0, dev.zoom)

	zoom, err = s.SetZoom(0.2)
	require.NoError(t, err)
	assert.Equal(t, 1.0, zoom)
	assert.Equal(t, Idle, s.State())
}

func TestOnStatus_ObservesReady(t *testing.T) {
	dev := newFakeDevice()
	var mu sync.Mutex
	var seen []State

	s := NewSession(dev, SessionOptions{
		Settings: config.NewStaticSettingsProvider(fastSettings()),
		Detector: completion.NewDetector(fastPolicy(), nil),
		Files:    filemanagement.NewLocalFileTracker(t.TempDir(), nil),
		OnStatus: func(st Status) {
			mu.Lock()
			seen = append(seen, st.State)
			mu.Unlock()
		},
	})
	defer s.Close()

	startReady(t, s)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0 && seen[len(seen)-1] == Ready
	}, time.Second, 5*time.Millisecond)
}

func TestClose_ReleasesDeviceAndClosesResults(t *testing.T) {
	dev := newFakeDevice()
	s, _ := newTestSession(t, dev, fastSettings())
	startReady(t, s)
	_, err := s.StartRecording()
	require.NoError(t, err)

	require.NoError(t, s.Close())

	assert.True(t, dev.closed)
	_, open := <-s.Results()
	assert.False(t, open)
	assert.Equal(t, Idle, s.State())
}
