package thumbnail

import (
	"context"
	"fmt"
	"os"

	"github.com/xfrr/goffmpeg/transcoder"

	"github.com/yeti47/eight/common"
	filemanagement "github.com/yeti47/eight/file-management"
	"github.com/yeti47/eight/media"
	"github.com/yeti47/eight/resolution"
)

// PosterTime is where the poster frame is taken from
const PosterTime = "00:00:00.500"

// Generator defines the interface for generating video thumbnails
type Generator interface {
	// Generate writes a JPEG poster frame of videoPath and returns its path
	Generate(ctx context.Context, videoPath string) (string, error)
}

// FFmpegGenerator implements Generator using goffmpeg
type FFmpegGenerator struct {
	prober media.Prober
	files  filemanagement.FileTracker
	logger common.Logger
}

func NewFFmpegGenerator(prober media.Prober, files filemanagement.FileTracker, logger common.Logger) *FFmpegGenerator {
	return &FFmpegGenerator{
		prober: prober,
		files:  files,
		logger: common.LoggerOrNop(logger),
	}
}

// Dimensions fits a display size into a 480x480 box, preserving aspect ratio
// and keeping both sides even.
func Dimensions(display resolution.Resolution) resolution.Resolution {
	const maxSide = 480

	if display.IsEmpty() {
		return resolution.Resolution{Width: maxSide, Height: maxSide}
	}

	aspectRatio := float64(display.Width) / float64(display.Height)
	var w, h int
	if aspectRatio >= 1 {
		w = maxSide
		h = int(float64(maxSide) / aspectRatio)
	} else {
		h = maxSide
		w = int(float64(maxSide) * aspectRatio)
	}
	return resolution.Resolution{Width: max(2, w), Height: max(2, h)}.Even()
}

func (g *FFmpegGenerator) Generate(ctx context.Context, videoPath string) (string, error) {
	info, err := g.prober.Probe(ctx, videoPath)
	if err != nil {
		return "", fmt.Errorf("failed to probe video for thumbnail: %w", err)
	}
	if info.Video == nil {
		return "", fmt.Errorf("video %s has no video stream", videoPath)
	}

	// ffmpeg autorotates the input, so scale to the display size
	size := Dimensions(info.Video.Size)
	if info.Video.Rotation == 90 || info.Video.Rotation == 270 {
		size = Dimensions(info.Video.Size.Swapped())
	}

	thumbnailFile := g.files.NewTempPath("thumbnail", ".jpg")

	trans := new(transcoder.Transcoder)
	if err := trans.Initialize(videoPath, thumbnailFile); err != nil {
		return "", fmt.Errorf("failed to initialize transcoder: %w", err)
	}

	trans.MediaFile().SetSeekTime(PosterTime)
	trans.MediaFile().SetVideoFilter(fmt.Sprintf("scale=%d:%d", size.Width, size.Height))
	trans.MediaFile().SetVideoCodec("mjpeg")
	trans.MediaFile().SetSkipAudio(true)
	trans.MediaFile().SetOutputFormat("image2")

	done := trans.Run(false)
	if err := <-done; err != nil {
		g.files.DeleteFile(thumbnailFile)
		return "", fmt.Errorf("ffmpeg thumbnail extraction failed: %w", err)
	}

	stat, err := os.Stat(thumbnailFile)
	if err != nil || stat.Size() == 0 {
		g.files.DeleteFile(thumbnailFile)
		return "", fmt.Errorf("thumbnail was not written for %s", videoPath)
	}

	g.logger.Debug("Generated thumbnail", "video", videoPath, "path", thumbnailFile, "size", size.String(), "bytes", stat.Size())
	return thumbnailFile, nil
}
