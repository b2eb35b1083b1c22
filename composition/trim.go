package composition

import "math"

// MinClipDuration is the shortest clip the engine will render, in seconds
const MinClipDuration = 0.1

// TrimRange selects [Start, End) of the source in seconds
type TrimRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func (r TrimRange) Duration() float64 {
	return math.Max(0, r.End-r.Start)
}

// IsValid reports whether the range is usable as given for a clip capped at maxDuration
func (r TrimRange) IsValid(maxDuration float64) bool {
	return r.Start >= 0 && r.End > r.Start && r.Duration() <= maxDuration
}

// DefaultTrim covers the whole source up to maxDuration
func DefaultTrim(sourceDuration, maxDuration float64) TrimRange {
	return TrimRange{Start: 0, End: math.Max(0, math.Min(sourceDuration, maxDuration))}
}

// ResolveTrim maps a requested range onto the real source duration. An invalid
// request falls back to the default range, and the result always lasts at
// least MinClipDuration.
func ResolveTrim(requested TrimRange, sourceDuration, maxDuration float64) TrimRange {
	var r TrimRange
	if requested.IsValid(maxDuration) {
		r.Start = math.Max(0, math.Min(requested.Start, sourceDuration-MinClipDuration))
		r.End = math.Min(requested.End, sourceDuration)
	} else {
		r = DefaultTrim(sourceDuration, maxDuration)
	}

	r.End = r.Start + math.Max(MinClipDuration, r.End-r.Start)
	return r
}

// ClampTrim keeps an edited range inside [0, sourceDuration] and no longer than
// maxDuration, moving the end rather than the start.
func ClampTrim(r TrimRange, sourceDuration, maxDuration float64) TrimRange {
	start := math.Max(0, math.Min(r.Start, math.Max(0, sourceDuration-MinClipDuration)))
	end := math.Min(r.End, sourceDuration)
	end = math.Min(end, start+maxDuration)
	if end-start < MinClipDuration {
		end = start + MinClipDuration
	}
	return TrimRange{Start: start, End: end}
}
