package composition

import (
	"fmt"
	"strconv"
	"strings"
)

// EncodeSettings selects the encoder for the final clip
type EncodeSettings struct {
	VideoCodec   string
	AudioCodec   string
	Preset       string
	CRF          int
	AudioBitrate string
	FrameRate    int
}

var DefaultEncodeSettings = EncodeSettings{
	VideoCodec:   "libx264",
	AudioCodec:   "aac",
	Preset:       "veryslow",
	CRF:          18,
	AudioBitrate: "192k",
	FrameRate:    30,
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// FilterGraph returns the filter_complex for the plan. The video is always the
// bottom input of the overlay and the caption the top one.
func (p Plan) FilterGraph() string {
	base := fmt.Sprintf("[0:v]%s,setsar=1[base]", rotationFilter(p.Orientation))
	if p.OverlayLayout == nil || p.OverlayImage == "" {
		return base + ";[base]format=yuv420p[out]"
	}

	bounds := p.OverlayLayout.PixelBounds(p.RenderSize)
	return strings.Join([]string{
		base,
		"[1:v]format=rgba[text]",
		fmt.Sprintf("[base][text]overlay=x=%d:y=%d:eof_action=repeat,format=yuv420p[out]", bounds.Min.X, bounds.Min.Y),
	}, ";")
}

// Args returns the ffmpeg arguments that render the plan with the given encoder settings.
// Two plans that differ only in OutputPath produce arguments that differ only in the last element.
func (p Plan) Args(enc EncodeSettings) []string {
	args := []string{
		"-noautorotate",
		"-ss", seconds(p.Trim.Start),
		"-i", p.SourcePath,
	}
	if p.OverlayLayout != nil && p.OverlayImage != "" {
		args = append(args, "-i", p.OverlayImage)
	}

	args = append(args,
		"-filter_complex", p.FilterGraph(),
		"-map", "[out]",
	)
	if p.HasAudio {
		args = append(args, "-map", "0:a:0")
	}

	args = append(args,
		"-t", seconds(p.Trim.Duration()),
		"-c:v", enc.VideoCodec,
		"-preset", enc.Preset,
		"-crf", strconv.Itoa(enc.CRF),
		"-r", strconv.Itoa(enc.FrameRate),
	)
	if p.HasAudio {
		args = append(args, "-c:a", enc.AudioCodec, "-b:a", enc.AudioBitrate)
	} else {
		args = append(args, "-an")
	}

	args = append(args,
		"-map_metadata", "-1",
		"-fflags", "+bitexact",
		"-flags:v", "+bitexact",
		"-flags:a", "+bitexact",
		"-movflags", "+faststart",
		"-f", "mp4",
		"-y", p.OutputPath,
	)
	return args
}
