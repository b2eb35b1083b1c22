package recording

import (
	"fmt"
	"strings"
	"time"

	"github.com/yeti47/eight/common"
	"github.com/yeti47/eight/config"
	"github.com/yeti47/eight/resolution"
)

type Settings struct {
	MaxDuration time.Duration // Hard cap for one recording
	MaxZoom     float64       // Upper zoom bound on top of the device's own limit
	// TickInterval is the granularity of the local auto-stop timer
	TickInterval time.Duration

	SkipWarmup      bool
	WarmupDelay     time.Duration // Settle time after the device reports running
	WarmupCap       time.Duration // Device-level cap for the warm-up recording
	WarmupStopAfter time.Duration // When the warm-up recording is stopped
	WarmupSettle    time.Duration // Pause after the warm-up resolved, before deleting it
}

var DefaultSettings = Settings{
	MaxDuration:     8 * time.Second,
	MaxZoom:         10,
	TickInterval:    100 * time.Millisecond,
	WarmupDelay:     500 * time.Millisecond,
	WarmupCap:       200 * time.Millisecond,
	WarmupStopAfter: 250 * time.Millisecond,
	WarmupSettle:    300 * time.Millisecond,
}

// SettingsProvider implements config.SettingsProvider for Settings
type SettingsProvider struct {
	configProvider config.SettingsProvider[config.Config]
}

// NewSettingsProvider creates a SettingsProvider that maps the live configuration
func NewSettingsProvider(configProvider config.SettingsProvider[config.Config]) *SettingsProvider {
	return &SettingsProvider{
		configProvider: configProvider,
	}
}

// GetSettings returns the current recording settings mapped from the configuration
func (p *SettingsProvider) GetSettings() Settings {
	cfg := p.configProvider.GetSettings()

	settings := DefaultSettings
	if cfg.MaxDurationSeconds > 0 {
		settings.MaxDuration = time.Duration(cfg.MaxDurationSeconds * float64(time.Second))
	}
	if cfg.MaxZoom >= 1 {
		settings.MaxZoom = cfg.MaxZoom
	}
	return settings
}

// DeviceSettingsFromConfig maps the capture section of the configuration
func DeviceSettingsFromConfig(cfg config.Config) (DeviceSettings, error) {
	res, err := resolution.Parse(cfg.CaptureResolution)
	if err != nil {
		return DeviceSettings{}, fmt.Errorf("invalid capture resolution: %w", err)
	}
	return DeviceSettings{
		Device:      cfg.CameraDevice,
		AudioDevice: cfg.AudioDevice,
		Resolution:  res,
		FrameRate:   cfg.CaptureFrameRate,
		Codec:       cfg.CaptureCodec,
		Rotation:    cfg.CaptureRotation,
		MaxZoom:     cfg.MaxZoom,
	}, nil
}

// NewDevice creates the capture backend selected by the configuration
func NewDevice(cfg config.Config, logger common.Logger) (Device, error) {
	settings, err := DeviceSettingsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(cfg.CaptureBackend) {
	case config.BackendGoCV:
		return NewGoCVDevice(settings, logger), nil
	case config.BackendFFmpeg, "":
		return NewFFmpegDevice(settings, logger), nil
	default:
		return nil, fmt.Errorf("unknown capture backend %q", cfg.CaptureBackend)
	}
}
