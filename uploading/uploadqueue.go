package uploading

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yeti47/eight/blob"
	"github.com/yeti47/eight/common"
	"github.com/yeti47/eight/metrics"
	"github.com/yeti47/eight/publishing"
	"github.com/yeti47/eight/store"
)

// Publisher is the step the queue runs for every job
type Publisher interface {
	Publish(ctx context.Context, req publishing.Request) (*store.VideoRecord, error)
}

// UploadQueue publishes exported clips in the background
type UploadQueue interface {
	// Queue adds a job to the queue; false means the queue is full and the job was dropped
	Queue(job *PublishJob) bool

	// Start begins processing the queue. Once stopChan closes, the remaining jobs
// and any retry backoff get DrainTimeout before they are abandoned.
func (q *uploadQueue) Start(stopChan <-chan struct{}, wg *sync.WaitGroup, successCallback func(job *PublishJob, video *store.VideoRecord)) {
	defer wg.Done()

	abort, release := abortAfterStop(stopChan, q.opts.DrainTimeout)
	defer release()

	for {
		select {
		case job := <-q.jobs:
			q.publish(job, abort, successCallback)
		case <-stopChan:
			q.drain(abort, successCallback)
			return
		}
	}
}

// Drain processes remaining jobs during shutdown with timeout
func (q *uploadQueue) Drain(timeout time.Duration) {
	stopped := make(chan struct{})
	close(stopped)
	abort, release := abortAfterStop(stopped, timeout)
	defer release()
	q.drain(abort, nil)
}

// abortAfterStop returns a channel that closes grace after stopChan does.
// release must be called to end the watcher.
func abortAfterStop(stopChan <-chan struct{}, grace time.Duration) (<-chan struct{}, func()) {
	abort := make(chan struct{})
	done := make(chan struct{})
	go func() {
		select {
		case <-stopChan:
		case <-done:
			return
		}
		timer := time.NewTimer(grace)
		defer timer.Stop()
		select {
		case <-timer.C:
			close(abort)
		case <-done:
		}
	}()
	return abort, func() { close(done) }
}

func (q *uploadQueue) drain(abort <-chan struct{}, successCallback func(job *PublishJob, video *store.VideoRecord)) {
	for {
		select {
		case <-abort:
			q.logger.Warn("Publish queue drain timeout, forcing shutdown", "remaining", len(q.jobs))
			return
		default:
		}

		select {
		case job := <-q.jobs:
			q.publish(job, abort, successCallback)
		default:
			return
		}
	}
}

// publish runs one job, retrying recoverable upload errors with exponential
// backoff. Closing abort cancels the running attempt and any pending retry.
func (q *uploadQueue) publish(job *PublishJob, abort <-chan struct{}, successCallback func(job *PublishJob, video *store.VideoRecord)) {
	for {
		video, err := q.attempt(job, abort)

		if err == nil {
			metrics.IncUpload("published")
			q.logger.Info("Published clip", "videoID", video.ID, "retries", job.RetryCount)
			if successCallback != nil {
				successCallback(job, video)
			}
			return
		}

		if !blob.IsRecoverableUploadError(err) || job.RetryCount >= q.opts.MaxRetries {
			metrics.IncUpload("dropped")
			q.logger.Error("Failed to publish clip, keeping files for a manual retry",
				"path", job.Request.VideoPath, "videoID", job.Request.VideoID, "retries", job.RetryCount, "error", err)
			return
		}

		delay := q.opts.RetryDelay << job.RetryCount
		job.RetryCount++
		metrics.IncUpload("retried")
		q.logger.Warn("Publishing failed, retrying", "videoID", job.Request.VideoID, "attempt", job.RetryCount, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-abort:
			timer.Stop()
			metrics.IncUpload("dropped")
			q.logger.Warn("Shutdown during publish backoff, keeping files for a manual retry",
				"path", job.Request.VideoPath, "videoID", job.Request.VideoID, "retries", job.RetryCount)
			return
		}
	}
}

func (q *uploadQueue) attempt(job *PublishJob, abort <-chan struct{}) (*store.VideoRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), q.opts.JobTimeout)
	defer cancel()

	go func() {
		select {
		case <-abort:
			cancel()
		case <-ctx.Done():
		}
	}()

	return q.publisher.Publish(ctx, job.Request)
}
