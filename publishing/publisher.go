package publishing

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yeti47/eight/auth"
	"github.com/yeti47/eight/blob"
	"github.com/yeti47/eight/common"
	filemanagement "github.com/yeti47/eight/file-management"
	"github.com/yeti47/eight/media"
	"github.com/yeti47/eight/store"
	"github.com/yeti47/eight/thumbnail"
)

// VideoStore persists published video records
type VideoStore interface {
	Create(ctx context.Context, video store.VideoRecord) error
	IncrementResponseCount(ctx context.Context, videoID string) error
}

// Request describes one exported clip to publish
type Request struct {
	// VideoID names the blobs and the record. Empty means a fresh id is assigned;
	// keeping it across retries makes repeated uploads overwrite the same keys.
	VideoID       string
	VideoPath     string
	Caption       *string
	EditedText    string
	ParentVideoID *string
	// TransientFiles are deleted once the video is published
	TransientFiles []string
}

// Publisher uploads an exported clip with its thumbnail and records it
type Publisher struct {
	auth       auth.Provider
	thumbnails thumbnail.Generator
	uploader   blob.Uploader
	demuxer    media.Demuxer
	videos     VideoStore
	files      filemanagement.FileTracker
	logger     common.Logger
	now        func() time.Time
}

type Options struct {
	Auth       auth.Provider
	Thumbnails thumbnail.Generator
	Uploader   blob.Uploader
	Demuxer    media.Demuxer
	Videos     VideoStore
	Files      filemanagement.FileTracker
	Logger     common.Logger
}

func NewPublisher(opts Options) *Publisher {
	return &Publisher{
		auth:       opts.Auth,
		thumbnails: opts.Thumbnails,
		uploader:   opts.Uploader,
		demuxer:    opts.Demuxer,
		videos:     opts.Videos,
		files:      opts.Files,
		logger:     common.LoggerOrNop(opts.Logger),
		now:        time.Now,
	}
}

// VideoKey is the blob key of a published clip
func VideoKey(userID, videoID string) string {
	return path.Join("videos", userID, videoID+".mp4")
}

// ThumbnailKey is the blob key of a published clip's poster frame
func ThumbnailKey(userID, videoID string) string {
	return path.Join("thumbnails", userID, videoID+".jpg")
}

// Publish runs the whole flow and returns the stored record. Upload errors are
// returned unwrapped enough for blob.IsRecoverableUploadError to classify them.
func (p *Publisher) Publish(ctx context.Context, req Request) (*store.VideoRecord, error) {
	if req.VideoPath == "" {
		return nil, errors.New("no video to publish")
	}

	userID, err := p.auth.UserID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	videoID := req.VideoID
	if videoID == "" {
		videoID = uuid.NewString()
	}

	thumbPath, err := p.thumbnails.Generate(ctx, req.VideoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to generate thumbnail: %w", err)
	}
	defer p.files.DeleteFile(thumbPath)

	var videoURL, thumbnailURL string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		url, err := p.uploader.Upload(gctx, req.VideoPath, VideoKey(userID, videoID))
		if err != nil {
			return fmt.Errorf("failed to upload video: %w", err)
		}
		videoURL = url
		return nil
	})
	g.Go(func() error {
		url, err := p.uploader.Upload(gctx, thumbPath, ThumbnailKey(userID, videoID))
		if err != nil {
			return fmt.Errorf("failed to upload thumbnail: %w", err)
		}
		thumbnailURL = url
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	duration, err := p.demuxer.Duration(ctx, req.VideoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read duration of %s: %w", req.VideoPath, err)
	}

	video := store.VideoRecord{
		ID:            videoID,
		UserID:        userID,
		VideoURL:      videoURL,
		ThumbnailURL:  thumbnailURL,
		Duration:      duration.Seconds(),
		Caption:       req.Caption,
		CreatedAt:     p.now().UTC(),
		ParentVideoID: req.ParentVideoID,
	}
	if text := strings.TrimSpace(req.EditedText); text != "" {
		video.EditedText = &text
	}

	if err := p.videos.Create(ctx, video); err != nil {
		return nil, fmt.Errorf("failed to create video record: %w", err)
	}
	if video.IsResponse() {
		if err := p.videos.IncrementResponseCount(ctx, *video.ParentVideoID); err != nil {
			return nil, fmt.Errorf("failed to count response on %s: %w", *video.ParentVideoID, err)
		}
	}

	for _, f := range req.TransientFiles {
		p.files.DeleteFile(f)
	}

	p.logger.Info("Video published", "videoID", videoID, "userID", userID, "duration", video.Duration, "response", video.IsResponse())
	return &video, nil
}
