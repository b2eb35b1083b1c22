package uploading

import (
	"time"

	"github.com/yeti47/eight/publishing"
)

// PublishJob represents an exported clip waiting to be published
type PublishJob struct {
	Request    publishing.Request
	QueuedAt   time.Time
	RetryCount int // Number of retry attempts made
}
