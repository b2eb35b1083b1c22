package resolution

import (
	"fmt"
	"strconv"
	"strings"
)

// Resolution is a frame size in pixels
type Resolution struct {
	Width  int
	Height int
}

func Resolution720p() Resolution {
	return Resolution{Width: 1280, Height: 720}
}

func Resolution1080p() Resolution {
	return Resolution{Width: 1920, Height: 1080}
}

// Returns the string representation of this Resolution (e.g. 1920x1080)
func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// Format replaces "w" and "h" in formatString, e.g. Format("w:h") for ffmpeg filters
func (r Resolution) Format(formatString string) string {
	result := strings.ReplaceAll(formatString, "w", strconv.Itoa(r.Width))
	return strings.ReplaceAll(result, "h", strconv.Itoa(r.Height))
}

// Swapped returns the resolution rotated by a quarter turn
func (r Resolution) Swapped() Resolution {
	return Resolution{Width: r.Height, Height: r.Width}
}

// IsPortrait reports whether the frame is taller than it is wide
func (r Resolution) IsPortrait() bool {
	return r.Height > r.Width
}

// IsEmpty checks if either dimension is missing.
func (r Resolution) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Even rounds both dimensions down to even numbers, as 4:2:0 encoders require
func (r Resolution) Even() Resolution {
	return Resolution{Width: r.Width &^ 1, Height: r.Height &^ 1}
}

// Parse converts a string representation of a resolution into a Resolution.
// Supported formats: "1920x1080", "1920:1080", "1080p" and "720p".
func Parse(resolutionStr string) (Resolution, error) {
	s := strings.TrimSpace(resolutionStr)
	switch {
	case strings.Contains(s, "x"):
		return parseDimensions(s, "x")
	case strings.Contains(s, ":"):
		return parseDimensions(s, ":")
	case s == "1080p":
		return Resolution1080p(), nil
	case s == "720p":
		return Resolution720p(), nil
	default:
		return Resolution{}, fmt.Errorf("invalid resolution format: %s", resolutionStr)
	}
}

func parseDimensions(dimStr, sep string) (Resolution, error) {
	parts := strings.Split(dimStr, sep)
	if len(parts) != 2 {
		return Resolution{}, fmt.Errorf("invalid dimensions: %s", dimStr)
	}

	width, err := strconv.Atoi(parts[0])
	if err != nil || width <= 0 {
		return Resolution{}, fmt.Errorf("invalid width: %s", parts[0])
	}

	height, err := strconv.Atoi(parts[1])
	if err != nil || height <= 0 {
		return Resolution{}, fmt.Errorf("invalid height: %s", parts[1])
	}

	return Resolution{Width: width, Height: height}, nil
}
