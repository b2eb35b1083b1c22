package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/yeti47/eight/resolution"
)

const (
	BackendFFmpeg = "ffmpeg"
	BackendGoCV   = "gocv"
)

// Config holds the application configuration
type Config struct {
	UserID               string `json:"user_id"`
	ServerURL            string `json:"server_url"`
	ClientID             string `json:"client_id"`
	ClientSecret         string `json:"client_secret"`
	ServerTimeoutSeconds int    `json:"server_timeout_seconds"` // HTTP timeout for blob uploads (in seconds)

	CaptureBackend     string  `json:"capture_backend"` // "ffmpeg" (v4l2 + alsa) or "gocv" (video only, with preview)
	CameraDevice       string  `json:"camera_device"`
	AudioDevice        string  `json:"audio_device"`
	CaptureResolution  string  `json:"capture_resolution"`
	CaptureFrameRate   float64 `json:"capture_frame_rate"`
	CaptureCodec       string  `json:"capture_codec"` // FOURCC used by the gocv backend
	CaptureRotation    int     `json:"capture_rotation"` // clockwise degrees tagged on recordings, e.g. 90 for a sideways-mounted camera
	MaxDurationSeconds float64 `json:"max_duration_seconds"`
	MaxZoom            float64 `json:"max_zoom"`

	VideoCodec   string `json:"video_codec"`
	AudioCodec   string `json:"audio_codec"`
	Preset       string `json:"preset"`
	CRF          int    `json:"crf"`
	AudioBitrate string `json:"audio_bitrate"`

	TempDir       string `json:"temp_dir"`
	DatabasePath  string `json:"database_path"`
	LogPath       string `json:"log_path"`
	LogLevel      string `json:"log_level"`
	BufferSize    int    `json:"buffer_size"`    // Number of publish jobs to buffer
	UploadRetries int    `json:"upload_retries"` // Attempts per publish job on recoverable errors

	BlobServer BlobServerConfig `json:"blob_server"`
}

// BlobServerConfig configures `eight serve`
type BlobServerConfig struct {
	ListenAddr string `json:"listen_addr"`
	StorageDir string `json:"storage_dir"`
	PublicURL  string `json:"public_url"`
	// Credentials maps client ids to secrets hashed with `eight hash-secret`
	Credentials    map[string]string `json:"credentials"`
	MaxUploadMB    int64             `json:"max_upload_mb"`
	TrustedProxies []string          `json:"trusted_proxies"`
	// LockoutThreshold failed logins within LockoutWindowSeconds lock a client out (0 disables)
	LockoutThreshold     int `json:"lockout_threshold"`
	LockoutWindowSeconds int `json:"lockout_window_seconds"`
}

// DefaultConfig returns a new Config with default values
func DefaultConfig() *Config {
	dataDir := "."
	if homeDir, err := os.UserHomeDir(); err == nil && homeDir != "" {
		dataDir = filepath.Join(homeDir, "eight")
	}

	return &Config{
		UserID:               "local-user",
		ServerURL:            "http://localhost:8080",
		ClientID:             "eight-cli",
		ClientSecret:         "change-me",
		ServerTimeoutSeconds: 30,

		CaptureBackend:     BackendFFmpeg,
		CameraDevice:       "/dev/video0",
		AudioDevice:        "default",
		CaptureResolution:  "1280x720",
		CaptureFrameRate:   30,
		CaptureCodec:       "mp4v",
		MaxDurationSeconds: 8,
		MaxZoom:            10,

		VideoCodec:   "libx264",
		AudioCodec:   "aac",
		Preset:       "veryslow",
		CRF:          18,
		AudioBitrate: "192k",

		TempDir:       filepath.Join(os.TempDir(), "eight"),
		DatabasePath:  filepath.Join(dataDir, "eight.db"),
		LogPath:       filepath.Join(dataDir, "logs"),
		LogLevel:      "info",
		BufferSize:    4,
		UploadRetries: 3,

		BlobServer: BlobServerConfig{
			ListenAddr:  "127.0.0.1:8080",
			StorageDir:  filepath.Join(dataDir, "blobs"),
			PublicURL:   "http://localhost:8080",
			Credentials: map[string]string{},
			MaxUploadMB: 200,

			LockoutThreshold:     5,
			LockoutWindowSeconds: 900,
		},
	}
}

// LoadConfig loads configuration from a JSON file. Missing fields keep their
// defaults; a missing file is created with the defaults.
func LoadConfig(filename string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			if err := config.SaveConfig(filename); err != nil {
				return nil, fmt.Errorf("failed to create default config file: %w", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// ConfigOverrides holds potential override values for configuration
type ConfigOverrides struct {
	UserID         *string
	ServerURL      *string
	CaptureBackend *string
	CameraDevice   *string
	AudioDevice    *string
	TempDir        *string
	LogLevel       *string
	MaxZoom        *float64
}

// Override allows overriding specific configuration values using ConfigOverrides struct
func (c *Config) Override(overrides ConfigOverrides) {
	if overrides.UserID != nil && *overrides.UserID != "" {
		c.UserID = *overrides.UserID
	}
	if overrides.ServerURL != nil && *overrides.ServerURL != "" {
		c.ServerURL = *overrides.ServerURL
	}
	if overrides.CaptureBackend != nil && *overrides.CaptureBackend != "" {
		c.CaptureBackend = *overrides.CaptureBackend
	}
	if overrides.CameraDevice != nil && *overrides.CameraDevice != "" {
		c.CameraDevice = *overrides.CameraDevice
	}
	if overrides.AudioDevice != nil && *overrides.AudioDevice != "" {
		c.AudioDevice = *overrides.AudioDevice
	}
	if overrides.TempDir != nil && *overrides.TempDir != "" {
		c.TempDir = *overrides.TempDir
	}
	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		c.LogLevel = *overrides.LogLevel
	}
	if overrides.MaxZoom != nil && *overrides.MaxZoom >= 1 {
		c.MaxZoom = *overrides.MaxZoom
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch strings.ToLower(c.CaptureBackend) {
	case BackendFFmpeg, BackendGoCV:
	default:
		return fmt.Errorf("invalid capture backend: %q", c.CaptureBackend)
	}
	if _, err := resolution.Parse(c.CaptureResolution); err != nil {
		return fmt.Errorf("invalid capture resolution: %w", err)
	}
	if c.CaptureFrameRate <= 0 {
		return fmt.Errorf("invalid capture frame rate: %v", c.CaptureFrameRate)
	}
	switch c.CaptureRotation {
	case 0, 90, 180, 270:
	default:
		return fmt.Errorf("invalid capture rotation: %d", c.CaptureRotation)
	}
	if c.MaxDurationSeconds <= 0 {
		return fmt.Errorf("invalid max duration: %v", c.MaxDurationSeconds)
	}
	if c.MaxZoom < 1 {
		return fmt.Errorf("invalid max zoom: %v", c.MaxZoom)
	}
	if c.CRF < 0 || c.CRF > 51 {
		return fmt.Errorf("invalid crf: %d", c.CRF)
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("invalid buffer size: %d", c.BufferSize)
	}
	if c.TempDir == "" {
		return fmt.Errorf("temp dir must be set")
	}
	return nil
}

// SaveConfig atomically writes the configuration to a JSON file
func (c *Config) SaveConfig(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config file: %w", err)
	}

	if err := renameio.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
