package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/yeti47/eight/common"
	"github.com/yeti47/eight/faults"
	"github.com/yeti47/eight/resolution"
)

// VideoTrack describes the first video stream of a file
type VideoTrack struct {
	Codec string
	// Size is the coded (storage) size before the rotation is applied
	Size resolution.Resolution
	// Rotation is the clockwise display rotation in degrees, normalized to [0, 360)
	Rotation int
}

// Info is what the composition pipeline needs to know about a source file
type Info struct {
	Duration time.Duration
	Video    *VideoTrack
	HasAudio bool
}

// Prober inspects media files
type Prober interface {
	Probe(ctx context.Context, path string) (Info, error)
}

// FFprobe implements Prober by running ffprobe with JSON output
type FFprobe struct {
	binary string
	logger common.Logger
}

func NewFFprobe(logger common.Logger) *FFprobe {
	return &FFprobe{binary: "ffprobe", logger: common.LoggerOrNop(logger)}
}

func (p *FFprobe) Probe(ctx context.Context, path string) (Info, error) {
	cmd := exec.CommandContext(ctx, p.binary,
		"-v", "error",
		"-print_format", "json",
		"-show_streams", "-show_format",
		path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return Info{}, faults.New(faults.NoMediaTrack, "probe "+path,
			fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String())))
	}

	info, err := ParseProbeOutput(out)
	if err != nil {
		return Info{}, faults.New(faults.NoMediaTrack, "probe "+path, err)
	}
	p.logger.Debug("Probed media file", "path", path, "duration", info.Duration, "has_video", info.Video != nil, "has_audio", info.HasAudio)
	return info, nil
}

type probeOutput struct {
	Streams []struct {
		CodecType    string            `json:"codec_type"`
		CodecName    string            `json:"codec_name"`
		Width        int               `json:"width"`
		Height       int               `json:"height"`
		Duration     string            `json:"duration"`
		Tags         map[string]string `json:"tags"`
		SideDataList []struct {
			SideDataType string          `json:"side_data_type"`
			Rotation     json.RawMessage `json:"rotation"`
		} `json:"side_data_list"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ParseProbeOutput decodes ffprobe's -print_format json output
func ParseProbeOutput(data []byte) (Info, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return Info{}, fmt.Errorf("failed to decode ffprobe output: %w", err)
	}

	var info Info
	info.Duration = parseSeconds(out.Format.Duration)

	for _, s := range out.Streams {
		switch s.CodecType {
		case "audio":
			info.HasAudio = true
		case "video":
			if info.Video != nil {
				continue
			}
			track := &VideoTrack{
				Codec: s.CodecName,
				Size:  resolution.Resolution{Width: s.Width, Height: s.Height},
			}
			// display matrix side data is counterclockwise, the legacy tag is clockwise
			for _, sd := range s.SideDataList {
				if len(sd.Rotation) == 0 {
					continue
				}
				if deg, err := strconv.ParseFloat(string(sd.Rotation), 64); err == nil {
					track.Rotation = NormalizeRotation(int(math.Round(-deg)))
					break
				}
			}
			if track.Rotation == 0 {
				if tag, ok := s.Tags["rotate"]; ok {
					if deg, err := strconv.Atoi(strings.TrimSpace(tag)); err == nil {
						track.Rotation = NormalizeRotation(deg)
					}
				}
			}
			if info.Duration == 0 {
				info.Duration = parseSeconds(s.Duration)
			}
			info.Video = track
		}
	}
	return info, nil
}

// NormalizeRotation maps any angle in degrees into [0, 360)
func NormalizeRotation(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg
}

func parseSeconds(s string) time.Duration {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}
