package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestIncRecording_NormalizesLabels(t *testing.T) {
	valid := testutil.ToFloat64(recordingsTotal.WithLabelValues("valid"))
	unknown := testutil.ToFloat64(recordingsTotal.WithLabelValues("unknown"))

	IncRecording(" Valid ")
	IncRecording("exploded")

	assert.Equal(t, valid+1, testutil.ToFloat64(recordingsTotal.WithLabelValues("valid")))
	assert.Equal(t, unknown+1, testutil.ToFloat64(recordingsTotal.WithLabelValues("unknown")))
}

func TestIncExport(t *testing.T) {
	before := testutil.ToFloat64(exportsTotal.WithLabelValues("cancelled"))

	IncExport("cancelled")

	assert.Equal(t, before+1, testutil.ToFloat64(exportsTotal.WithLabelValues("cancelled")))
}

func TestObserveCompletion_CollectsSamples(t *testing.T) {
	ObserveCompletion("fallback", 1200*time.Millisecond)

	assert.GreaterOrEqual(t, testutil.CollectAndCount(completionSeconds), 1)
}
