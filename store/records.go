package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const (
	VideosCollection = "videos"
	UsersCollection  = "users"
)

// VideoRecord is a published clip as stored in the videos collection
type VideoRecord struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	VideoURL      string    `json:"videoURL"`
	ThumbnailURL  string    `json:"thumbnailURL"`
	Duration      float64   `json:"duration"`
	Caption       *string   `json:"caption"`
	CreatedAt     time.Time `json:"createdAt"`
	LikeCount     int       `json:"likeCount"`
	DislikeCount  int       `json:"dislikeCount"`
	ResponseCount int       `json:"responseCount"`
	ParentVideoID *string   `json:"parentVideoId"` // nil for original videos, set for responses
	EditedText    *string   `json:"editedText"`    // caption burnt into the clip
}

// IsResponse reports whether the video answers another video
func (v VideoRecord) IsResponse() bool {
	return v.ParentVideoID != nil && *v.ParentVideoID != ""
}

// ToDocument converts a typed record into a Document
func ToDocument(v any) (Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// FromDocument decodes a Document into a typed record
func FromDocument(doc Document, v any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// VideoRepository writes and reads video records and keeps the derived counters
type VideoRepository struct {
	docs DocumentStore
}

func NewVideoRepository(docs DocumentStore) *VideoRepository {
	return &VideoRepository{docs: docs}
}

// Create stores the video and bumps the owner's video count
func (r *VideoRepository) Create(ctx context.Context, video VideoRecord) error {
	doc, err := ToDocument(video)
	if err != nil {
		return fmt.Errorf("failed to encode video %s: %w", video.ID, err)
	}
	if err := r.docs.CreateRecord(ctx, VideosCollection, video.ID, doc); err != nil {
		return err
	}
	return r.docs.IncrementField(ctx, UsersCollection, video.UserID, "videoCount", 1)
}

// GetByID returns the video or nil if it does not exist
func (r *VideoRepository) GetByID(ctx context.Context, id string) (*VideoRecord, error) {
	doc, err := r.docs.GetRecord(ctx, VideosCollection, id)
	if err != nil || doc == nil {
		return nil, err
	}
	var video VideoRecord
	if err := FromDocument(doc, &video); err != nil {
		return nil, fmt.Errorf("failed to decode video %s: %w", id, err)
	}
	return &video, nil
}

func (r *VideoRepository) IncrementResponseCount(ctx context.Context, videoID string) error {
	return r.docs.IncrementField(ctx, VideosCollection, videoID, "responseCount", 1)
}
