package export

import (
	"bytes"
	"strconv"
	"strings"
	"sync"
	"time"
)

// progressParser consumes ffmpeg's -progress key=value stream
type progressParser struct {
	mu      sync.Mutex
	partial []byte
	outTime time.Duration
	ended   bool
}

func (p *progressParser) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.partial = append(p.partial, data...)
	for {
		i := bytes.IndexByte(p.partial, '\n')
		if i < 0 {
			break
		}
		p.handleLine(string(p.partial[:i]))
		p.partial = p.partial[i+1:]
	}
	return len(data), nil
}

func (p *progressParser) handleLine(line string) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return
	}
	value = strings.TrimSpace(value)

	switch key {
	// out_time_ms is in microseconds as well
	case "out_time_us", "out_time_ms":
		if us, err := strconv.ParseInt(value, 10, 64); err == nil && us >= 0 {
			p.outTime = time.Duration(us) * time.Microsecond
		}
	case "out_time":
		if d, ok := parseTimestamp(value); ok {
			p.outTime = d
		}
	case "progress":
		if value == "end" {
			p.ended = true
		}
	}
}

func (p *progressParser) snapshot() (time.Duration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outTime, p.ended
}

// parseTimestamp reads HH:MM:SS.micro
func parseTimestamp(s string) (time.Duration, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	sec, err3 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || err3 != nil || h < 0 || m < 0 || sec < 0 {
		return 0, false
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec*float64(time.Second)), true
}

// fraction maps encoded time onto [0, 1) of the expected duration. 1 is
// reserved for a completed export.
func fraction(outTime, total time.Duration) float64 {
	if total <= 0 || outTime <= 0 {
		return 0
	}
	f := float64(outTime) / float64(total)
	if f > 0.99 {
		return 0.99
	}
	return f
}
