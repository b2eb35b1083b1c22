package common

import (
	"fmt"
	"maps"
	"os/exec"
	"regexp"
	"strings"
)

// CodecFallbackMap defines fallback chains for the encoders used by exports
var CodecFallbackMap = map[string][]string{
	// H.264 encoders in preference order; software first for bit-exact output
	"libx264":      {"libx264", "libopenh264", "h264_vaapi", "h264_qsv", "h264_v4l2m2m"},
	"libopenh264":  {"libopenh264", "libx264", "h264_vaapi", "h264_qsv", "h264_v4l2m2m"},
	"h264_vaapi":   {"h264_vaapi", "libx264", "libopenh264", "h264_qsv", "h264_v4l2m2m"},
	"h264_qsv":     {"h264_qsv", "libx264", "libopenh264", "h264_vaapi", "h264_v4l2m2m"},
	"h264_v4l2m2m": {"h264_v4l2m2m", "libx264", "libopenh264", "h264_vaapi", "h264_qsv"},

	// H.265 falls back to H.264
	"libx265": {"libx265", "libx264", "libopenh264", "h264_vaapi", "h264_qsv", "h264_v4l2m2m"},

	"aac":        {"aac", "libfdk_aac"},
	"libfdk_aac": {"libfdk_aac", "aac"},
}

// CodecProvider interface for managing codec availability and fallbacks
type CodecProvider interface {
	IsCodecAvailable(codec string) bool
	GetFallbackCodec(requestedCodec string) (string, error)
	GetAvailableCodecs() map[string]bool
}

// encoderPattern matches lines like:
// " V....D libopenh264          OpenH264 H.264 / AVC / MPEG-4 AVC / MPEG-4 part 10 (codec h264)"
var encoderPattern = regexp.MustCompile(`^ ([VA][.SFXBD]{5})\s+([a-zA-Z0-9_-]+)\s+`)

// FFmpegCodecProvider implements CodecProvider using the encoder list of the local ffmpeg
type FFmpegCodecProvider struct {
	availableCodecs map[string]bool
	logger          Logger
}

// NewFFmpegCodecProvider queries `ffmpeg -encoders` once and caches the result
func NewFFmpegCodecProvider(logger Logger) *FFmpegCodecProvider {
	logger = LoggerOrNop(logger)

	output, err := exec.Command("ffmpeg", "-encoders").Output()
	if err != nil {
		logger.Warn("Failed to query FFmpeg encoders", "error", err)
		return NewStaticCodecProvider(nil, logger)
	}

	provider := NewStaticCodecProvider(ParseEncoderList(string(output)), logger)
	logger.Debug("Loaded available codecs from FFmpeg", "count", len(provider.availableCodecs))
	return provider
}

// NewStaticCodecProvider creates a provider over a fixed set of encoder names
func NewStaticCodecProvider(codecs []string, logger Logger) *FFmpegCodecProvider {
	provider := &FFmpegCodecProvider{
		availableCodecs: make(map[string]bool, len(codecs)),
		logger:          LoggerOrNop(logger),
	}
	for _, codec := range codecs {
		provider.availableCodecs[codec] = true
	}
	return provider
}

// ParseEncoderList extracts the video and audio encoder names from `ffmpeg -encoders` output
func ParseEncoderList(output string) []string {
	var codecs []string
	for _, line := range strings.Split(output, "\n") {
		// header lines look like " V..... = Video"
		if strings.Contains(line, " = ") {
			continue
		}
		matches := encoderPattern.FindStringSubmatch(line)
		if len(matches) >= 3 && matches[2] != "" {
			codecs = append(codecs, matches[2])
		}
	}
	return codecs
}

// IsCodecAvailable checks if a codec is available
func (c *FFmpegCodecProvider) IsCodecAvailable(codec string) bool {
	available, exists := c.availableCodecs[codec]
	return exists && available
}

// GetAvailableCodecs returns a copy of all available codecs
func (c *FFmpegCodecProvider) GetAvailableCodecs() map[string]bool {
	result := make(map[string]bool, len(c.availableCodecs))
	maps.Copy(result, c.availableCodecs)
	return result
}

// GetFallbackCodec finds the first available codec from the fallback chain
func (c *FFmpegCodecProvider) GetFallbackCodec(requestedCodec string) (string, error) {
	if c.IsCodecAvailable(requestedCodec) {
		return requestedCodec, nil
	}

	fallbackChain, exists := CodecFallbackMap[requestedCodec]
	if !exists {
		return "", fmt.Errorf("codec '%s' is not available and no fallback is defined", requestedCodec)
	}

	c.logger.Warn("Codec not available, trying fallbacks", "codec", requestedCodec, "fallbacks", fallbackChain)

	for _, codec := range fallbackChain {
		if c.IsCodecAvailable(codec) {
			c.logger.Info("Using fallback codec", "codec", codec)
			return codec, nil
		}
	}

	return "", fmt.Errorf("no suitable codec available from fallback chain: %v", fallbackChain)
}
