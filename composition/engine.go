package composition

import (
	"context"
	"fmt"
	"time"

	"github.com/yeti47/eight/common"
	"github.com/yeti47/eight/config"
	"github.com/yeti47/eight/export"
	"github.com/yeti47/eight/faults"
	filemanagement "github.com/yeti47/eight/file-management"
	"github.com/yeti47/eight/media"
)

type EngineOptions struct {
	Prober     media.Prober
	Measurer   TextMeasurer
	Rasterizer TextRasterizer
	Codecs     common.CodecProvider
	Files      filemanagement.FileTracker
	Runner     export.Runner
	Settings   config.SettingsProvider[EncodeSettings]
	// MaxDuration caps the rendered clip; zero means 8s
	MaxDuration  time.Duration
	PollInterval time.Duration
	Logger       common.Logger
}

// Engine turns a recorded clip, a trim range and an optional caption into the final encoded clip
type Engine struct {
	prober       media.Prober
	measurer     TextMeasurer
	rasterizer   TextRasterizer
	codecs       common.CodecProvider
	files        filemanagement.FileTracker
	runner       export.Runner
	settings     config.SettingsProvider[EncodeSettings]
	maxDuration  time.Duration
	pollInterval time.Duration
	logger       common.Logger
}

func NewEngine(opts EngineOptions) *Engine {
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 8 * time.Second
	}
	if opts.Settings == nil {
		opts.Settings = config.NewStaticSettingsProvider(DefaultEncodeSettings)
	}
	if opts.Runner == nil {
		opts.Runner = export.NewFFmpegRunner()
	}
	return &Engine{
		prober:       opts.Prober,
		measurer:     opts.Measurer,
		rasterizer:   opts.Rasterizer,
		codecs:       opts.Codecs,
		files:        opts.Files,
		runner:       opts.Runner,
		settings:     opts.Settings,
		maxDuration:  opts.MaxDuration,
		pollInterval: opts.PollInterval,
		logger:       common.LoggerOrNop(opts.Logger),
	}
}

func (e *Engine) MaxDuration() time.Duration {
	return e.maxDuration
}

// Plan probes the source and resolves spec against it
func (e *Engine) Plan(ctx context.Context, spec Spec) (Plan, error) {
	info, err := e.prober.Probe(ctx, spec.SourcePath)
	if err != nil {
		return Plan{}, err
	}
	return BuildPlan(spec, info, e.maxDuration, e.measurer)
}

// EncodeSettings returns the configured encoder settings with unavailable codecs replaced by fallbacks
func (e *Engine) EncodeSettings() (EncodeSettings, error) {
	enc := e.settings.GetSettings()
	if e.codecs == nil {
		return enc, nil
	}

	video, err := e.codecs.GetFallbackCodec(enc.VideoCodec)
	if err != nil {
		return enc, faults.New(faults.EncodeFailed, "select video codec", err)
	}
	enc.VideoCodec = video

	if audio, err := e.codecs.GetFallbackCodec(enc.AudioCodec); err == nil {
		enc.AudioCodec = audio
	} else {
		e.logger.Warn("No audio encoder available, keeping configured codec", "codec", enc.AudioCodec, "error", err)
	}
	return enc, nil
}

// Compose renders spec and returns the path of the encoded clip. When the
// spec has no output path a fresh temp path is used. onProgress may be nil.
func (e *Engine) Compose(ctx context.Context, spec Spec, onProgress func(float64)) (string, error) {
	plan, err := e.Plan(ctx, spec)
	if err != nil {
		return "", err
	}
	if plan.OutputPath == "" {
		plan.OutputPath = e.files.NewTempPath("edited", ".mp4")
	}

	if plan.OverlayLayout != nil {
		if e.rasterizer == nil {
			return "", faults.Newf(faults.EncodeFailed, "compose", "no text rasterizer configured")
		}
		overlayPath := e.files.NewTempPath("overlay", ".png")
		defer e.files.DeleteFile(overlayPath)

		if err := e.rasterizer.Rasterize(*plan.Overlay, *plan.OverlayLayout, plan.RenderSize, overlayPath); err != nil {
			return "", faults.New(faults.EncodeFailed, "rasterize overlay", err)
		}
		plan.OverlayImage = overlayPath
	}

	enc, err := e.EncodeSettings()
	if err != nil {
		return "", err
	}

	e.logger.Info("Composing clip",
		"source", plan.SourcePath,
		"orientation", plan.Orientation.String(),
		"render_size", plan.RenderSize.String(),
		"trim_start", plan.Trim.Start,
		"trim_end", plan.Trim.End,
		"overlay", plan.OverlayLayout != nil,
		"codec", enc.VideoCodec)

	session := export.NewSession(e.runner, export.Job{
		Args:       plan.Args(enc),
		Duration:   time.Duration(plan.Trim.Duration() * float64(time.Second)),
		OutputPath: plan.OutputPath,
	}, export.Options{
		PollInterval: e.pollInterval,
		OnProgress:   onProgress,
		Logger:       e.logger,
	})

	if err := session.Run(ctx); err != nil {
		return "", fmt.Errorf("failed to compose %s: %w", plan.SourcePath, err)
	}
	return plan.OutputPath, nil
}
