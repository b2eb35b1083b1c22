package recording

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/yeti47/eight/common"
	"github.com/yeti47/eight/faults"
	"github.com/yeti47/eight/resolution"
	"gocv.io/x/gocv"
)

// ErrMaxDurationReached is reported with the finalize signal when a recording hit its cap
var ErrMaxDurationReached = errors.New("maximum recording duration reached")

type gocvRecording struct {
	path          string
	writer        *gocv.VideoWriter
	deadline      time.Time
	onFinalize    FinalizeFunc
	stopRequested bool
	frames        int
}

// GoCVDevice captures video through OpenCV. It keeps the camera open for the
// session, serves JPEG preview frames and applies zoom digitally.
type GoCVDevice struct {
	settings DeviceSettings
	logger   common.Logger

	mu        sync.Mutex
	webcam    *gocv.VideoCapture
	frameSize resolution.Resolution
	zoom      float64
	rec       *gocvRecording

	preview chan PreviewFrame
	stop    chan struct{}
	done    chan struct{}
}

func NewGoCVDevice(settings DeviceSettings, logger common.Logger) *GoCVDevice {
	if settings.FrameRate <= 0 {
		settings.FrameRate = 30
	}
	if settings.Codec == "" {
		settings.Codec = "mp4v"
	}
	return &GoCVDevice{
		settings: settings,
		logger:   common.LoggerOrNop(logger),
		zoom:     1,
		preview:  make(chan PreviewFrame, 1),
	}
}

// deviceID turns "0", "/dev/video0" or a URL into what OpenVideoCapture accepts
func (d *GoCVDevice) deviceID() any {
	device := d.settings.Device
	if device == "" {
		return 0
	}
	if id, err := strconv.Atoi(device); err == nil {
		return id
	}
	if n, ok := strings.CutPrefix(device, "/dev/video"); ok {
		if id, err := strconv.Atoi(n); err == nil {
			return id
		}
	}
	return device
}

func (d *GoCVDevice) RequestAccess(ctx context.Context) (bool, error) {
	switch id := d.deviceID().(type) {
	case int:
		return checkDeviceAccess(fmt.Sprintf("/dev/video%d", id))
	default:
		// network streams and files have no permission model
		return true, nil
	}
}

func (d *GoCVDevice) Open(ctx context.Context) error {
	webcam, err := gocv.OpenVideoCapture(d.deviceID())
	if err != nil {
		return faults.New(faults.DeviceUnavailable, "open webcam", err)
	}
	if !d.settings.Resolution.IsEmpty() {
		webcam.Set(gocv.VideoCaptureFrameWidth, float64(d.settings.Resolution.Width))
		webcam.Set(gocv.VideoCaptureFrameHeight, float64(d.settings.Resolution.Height))
	}
	webcam.Set(gocv.VideoCaptureFPS, d.settings.FrameRate)

	size := resolution.Resolution{
		Width:  int(webcam.Get(gocv.VideoCaptureFrameWidth)),
		Height: int(webcam.Get(gocv.VideoCaptureFrameHeight)),
	}
	if size.IsEmpty() {
		size = resolution.Resolution{Width: 640, Height: 480}
		d.logger.Warn("Webcam did not report a resolution, using default", "resolution", size.String())
	}
	if d.settings.Rotation == 90 || d.settings.Rotation == 270 {
		size = size.Swapped()
	}

	d.mu.Lock()
	d.webcam = webcam
	d.frameSize = size
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	d.mu.Unlock()

	d.logger.Info("Webcam opened", "device", d.settings.Device, "resolution", size.String())
	go d.captureLoop(webcam)
	return nil
}

func (d *GoCVDevice) captureLoop(webcam *gocv.VideoCapture) {
	defer close(d.done)

	img := gocv.NewMat()
	defer img.Close()
	frame := gocv.NewMat()
	defer frame.Close()

	frameInterval := time.Duration(float64(time.Second) / d.settings.FrameRate)
	nextFrameTime := time.Now()
	frameCount := 0

	for {
		select {
		case <-d.stop:
			d.finishRecording(nil)
			return
		default:
		}

		d.checkRecordingEnd()

		if now := time.Now(); now.Before(nextFrameTime) {
			time.Sleep(nextFrameTime.Sub(now))
		}

		if ok := webcam.Read(&img); !ok || img.Empty() {
			time.Sleep(frameInterval)
			continue
		}
		nextFrameTime = nextFrameTime.Add(frameInterval)
		frameCount++

		d.prepareFrame(img, &frame)

		d.mu.Lock()
		if rec := d.rec; rec != nil {
			if err := rec.writer.Write(frame); err != nil {
				d.logger.Warn("Failed to write frame", "path", rec.path, "error", err)
			} else {
				rec.frames++
			}
		}
		d.mu.Unlock()

		if frameCount%3 == 0 {
			d.publishPreview(frame)
		}
	}
}

// prepareFrame applies rotation and digital zoom into dst
func (d *GoCVDevice) prepareFrame(src gocv.Mat, dst *gocv.Mat) {
	switch d.settings.Rotation {
	case 90:
		gocv.Rotate(src, dst, gocv.Rotate90Clockwise)
	case 180:
		gocv.Rotate(src, dst, gocv.Rotate180Clockwise)
	case 270:
		gocv.Rotate(src, dst, gocv.Rotate90CounterClockwise)
	default:
		src.CopyTo(dst)
	}

	d.mu.Lock()
	zoom := d.zoom
	d.mu.Unlock()
	if zoom <= 1 {
		return
	}

	w, h := dst.Cols(), dst.Rows()
	cw, ch := int(float64(w)/zoom), int(float64(h)/zoom)
	rect := image.Rect((w-cw)/2, (h-ch)/2, (w-cw)/2+cw, (h-ch)/2+ch)
	region := dst.Region(rect)
	zoomed := gocv.NewMat()
	gocv.Resize(region, &zoomed, image.Pt(w, h), 0, 0, gocv.InterpolationLinear)
	region.Close()
	zoomed.CopyTo(dst)
	zoomed.Close()
}

func (d *GoCVDevice) publishPreview(frame gocv.Mat) {
	if len(d.preview) > 0 {
		return
	}
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame)
	if err != nil {
		return
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	select {
	case d.preview <- PreviewFrame{JPEG: data, Size: resolution.Resolution{Width: frame.Cols(), Height: frame.Rows()}, CapturedAt: time.Now()}:
	default:
	}
}

// checkRecordingEnd finalizes the active recording when it was asked to stop or hit its cap
func (d *GoCVDevice) checkRecordingEnd() {
	d.mu.Lock()
	rec := d.rec
	var reason error
	switch {
	case rec == nil:
		d.mu.Unlock()
		return
	case rec.stopRequested:
	case time.Now().After(rec.deadline):
		reason = ErrMaxDurationReached
	default:
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()
	d.finishRecording(reason)
}

func (d *GoCVDevice) finishRecording(reason error) {
	d.mu.Lock()
	rec := d.rec
	d.rec = nil
	d.mu.Unlock()
	if rec == nil {
		return
	}

	err := rec.writer.Close()
	d.logger.Info("Recording finalized", "path", rec.path, "frames", rec.frames)
	if err == nil {
		err = reason
	}
	if rec.frames == 0 && err == nil {
		err = errors.New("no frames were recorded from webcam")
	}
	go rec.onFinalize(err)
}

func (d *GoCVDevice) StartRecording(path string, maxDuration time.Duration, onFinalize FinalizeFunc) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.webcam == nil {
		return errors.New("webcam not initialized")
	}
	if d.rec != nil {
		return errors.New("a recording is already in progress")
	}

	writer, err := gocv.VideoWriterFile(path, d.settings.Codec, d.settings.FrameRate, d.frameSize.Width, d.frameSize.Height, true)
	if err != nil {
		return fmt.Errorf("failed to create video writer: %w", err)
	}

	d.rec = &gocvRecording{
		path:       path,
		writer:     writer,
		deadline:   time.Now().Add(maxDuration),
		onFinalize: onFinalize,
	}
	d.logger.Debug("Recording to file", "path", path, "codec", d.settings.Codec, "max_duration", maxDuration)
	return nil
}

func (d *GoCVDevice) StopRecording() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rec != nil {
		d.rec.stopRequested = true
	}
}

func (d *GoCVDevice) SetZoom(factor float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.zoom = factor
	return nil
}

func (d *GoCVDevice) ZoomRange() (float64, float64) {
	if d.settings.MaxZoom >= 1 {
		return 1, d.settings.MaxZoom
	}
	return 1, 4
}

func (d *GoCVDevice) Preview() <-chan PreviewFrame {
	return d.preview
}

func (d *GoCVDevice) Close() error {
	d.mu.Lock()
	webcam, stop, done := d.webcam, d.stop, d.done
	d.webcam = nil
	d.mu.Unlock()
	if webcam == nil {
		return nil
	}

	close(stop)
	<-done
	d.logger.Info("Closing webcam")
	return webcam.Close()
}
