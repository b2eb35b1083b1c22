package media

import (
	"context"
	"fmt"
	"time"

	"github.com/xfrr/goffmpeg/transcoder"

	"github.com/yeti47/eight/common"
)

// Demuxer opens a container and reports its playable duration
type Demuxer interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// FFmpegDemuxer implements Demuxer using goffmpeg's probe of the input file
type FFmpegDemuxer struct {
	logger common.Logger
}

func NewFFmpegDemuxer(logger common.Logger) *FFmpegDemuxer {
	return &FFmpegDemuxer{logger: common.LoggerOrNop(logger)}
}

func (d *FFmpegDemuxer) Duration(ctx context.Context, path string) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	trans := new(transcoder.Transcoder)
	if err := trans.Initialize(path, ""); err != nil {
		return 0, fmt.Errorf("failed to initialize transcoder: %w", err)
	}

	metadata := trans.MediaFile().Metadata()
	duration := parseSeconds(metadata.Format.Duration)
	if duration <= 0 {
		for _, stream := range metadata.Streams {
			if stream.CodecType == "video" {
				duration = parseSeconds(stream.Duration)
				break
			}
		}
	}

	d.logger.Debug("Demuxed container", "path", path, "duration", duration)
	return duration, nil
}
