package composition

import (
	"time"

	"github.com/yeti47/eight/config"
)

// EncodeSettingsProvider implements config.SettingsProvider for EncodeSettings
type EncodeSettingsProvider struct {
	configProvider config.SettingsProvider[config.Config]
}

func NewEncodeSettingsProvider(configProvider config.SettingsProvider[config.Config]) *EncodeSettingsProvider {
	return &EncodeSettingsProvider{configProvider: configProvider}
}

func (p *EncodeSettingsProvider) GetSettings() EncodeSettings {
	cfg := p.configProvider.GetSettings()

	settings := DefaultEncodeSettings
	if cfg.VideoCodec != "" {
		settings.VideoCodec = cfg.VideoCodec
	}
	if cfg.AudioCodec != "" {
		settings.AudioCodec = cfg.AudioCodec
	}
	if cfg.Preset != "" {
		settings.Preset = cfg.Preset
	}
	if cfg.CRF > 0 {
		settings.CRF = cfg.CRF
	}
	if cfg.AudioBitrate != "" {
		settings.AudioBitrate = cfg.AudioBitrate
	}
	return settings
}

// MaxDuration returns the configured clip cap
func MaxDuration(cfg config.Config) time.Duration {
	if cfg.MaxDurationSeconds > 0 {
		return time.Duration(cfg.MaxDurationSeconds * float64(time.Second))
	}
	return 8 * time.Second
}
