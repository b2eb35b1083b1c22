package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recordingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eight_recordings_total",
		Help: "Recording attempts by resolved outcome",
	}, []string{"outcome"})

	warmupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eight_warmups_total",
		Help: "Session warm-up recordings by result",
	}, []string{"result"})

	completionSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "eight_completion_resolve_seconds",
		Help:    "Time from stop request to a resolved recording outcome, by resolving path",
		Buckets: []float64{0.25, 0.5, 1, 1.5, 2, 3, 5},
	}, []string{"source"})

	exportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eight_exports_total",
		Help: "Composition exports by terminal status",
	}, []string{"status"})

	exportSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "eight_export_duration_seconds",
		Help:    "Wall time of completed exports",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 8),
	})

	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eight_uploads_total",
		Help: "Publish jobs by result",
	}, []string{"result"})

	blobsStoredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eight_blobs_stored_total",
		Help: "Blobs accepted by the blob server, by content class",
	}, []string{"class"})
)

// IncRecording counts a resolved recording; outcome ∈ {valid,invalid}
func IncRecording(outcome string) {
	recordingsTotal.WithLabelValues(allow(outcome, "valid", "invalid")).Inc()
}

// IncWarmup counts a warm-up; result ∈ {ok,skipped,failed}
func IncWarmup(result string) {
	warmupsTotal.WithLabelValues(allow(result, "ok", "skipped", "failed")).Inc()
}

// ObserveCompletion records how long detection took; source ∈ {finalize,fallback}
func ObserveCompletion(source string, elapsed time.Duration) {
	completionSeconds.WithLabelValues(allow(source, "finalize", "fallback")).Observe(elapsed.Seconds())
}

// IncExport counts a finished export; status ∈ {completed,failed,cancelled}
func IncExport(status string) {
	exportsTotal.WithLabelValues(allow(status, "completed", "failed", "cancelled")).Inc()
}

func ObserveExportDuration(elapsed time.Duration) {
	exportSeconds.Observe(elapsed.Seconds())
}

// IncUpload counts a publish job; result ∈ {published,retried,dropped}
func IncUpload(result string) {
	uploadsTotal.WithLabelValues(allow(result, "published", "retried", "dropped")).Inc()
}

// IncBlobStored counts an accepted upload; class ∈ {video,image}
func IncBlobStored(class string) {
	blobsStoredTotal.WithLabelValues(allow(class, "video", "image")).Inc()
}

func allow(value string, allowed ...string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return "unknown"
}
