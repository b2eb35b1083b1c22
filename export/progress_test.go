package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressParser(t *testing.T) {
	p := &progressParser{}

	// lines may be split across writes
	_, _ = p.Write([]byte("frame=1\nout_time_u"))
	_, _ = p.Write([]byte("s=1500000\nprogress=continue\n"))
	outTime, ended := p.snapshot()
	assert.Equal(t, 1500*time.Millisecond, outTime)
	assert.False(t, ended)

	_, _ = p.Write([]byte("out_time=00:01:02.500000\nprogress=end\n"))
	outTime, ended = p.snapshot()
	assert.Equal(t, time.Minute+2500*time.Millisecond, outTime)
	assert.True(t, ended)

	// ffmpeg reports N/A before the first frame
	_, _ = p.Write([]byte("out_time_us=N/A\n"))
	outTime, _ = p.snapshot()
	assert.Equal(t, time.Minute+2500*time.Millisecond, outTime)
}

func TestFraction(t *testing.T) {
	assert.Equal(t, 0.0, fraction(time.Second, 0))
	assert.Equal(t, 0.0, fraction(0, time.Second))
	assert.InDelta(t, 0.5, fraction(time.Second, 2*time.Second), 1e-9)
	assert.Equal(t, 0.99, fraction(3*time.Second, 2*time.Second))
}
