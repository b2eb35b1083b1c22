package composition

import (
	"fmt"
	"time"

	"github.com/yeti47/eight/faults"
	"github.com/yeti47/eight/media"
	"github.com/yeti47/eight/resolution"
)

// Spec is one export request
type Spec struct {
	SourcePath string
	Trim       TrimRange
	Overlay    *TextOverlay
	OutputPath string
}

// Plan is a Spec resolved against the probed source. It holds everything the
// encoder needs and nothing that depends on when or where it runs, apart
// from the output and overlay image paths.
type Plan struct {
	SourcePath     string
	Orientation    Orientation
	NaturalSize    resolution.Resolution
	RenderSize     resolution.Resolution
	LayerTransform Transform
	Trim           TrimRange
	HasAudio       bool

	Overlay       *TextOverlay
	OverlayLayout *OverlayLayout
	// OverlayImage is the rasterized caption, filled in by the engine
	OverlayImage string

	OutputPath string
}

// BuildPlan resolves spec against the source's probe result
func BuildPlan(spec Spec, info media.Info, maxDuration time.Duration, m TextMeasurer) (Plan, error) {
	if info.Video == nil || info.Video.Size.IsEmpty() {
		return Plan{}, faults.New(faults.NoMediaTrack, "build plan", fmt.Errorf("%s has no video stream", spec.SourcePath))
	}

	orientation := Classify(RotationTransform(info.Video.Rotation))
	display := DisplaySize(orientation, info.Video.Size)

	plan := Plan{
		SourcePath:     spec.SourcePath,
		Orientation:    orientation,
		NaturalSize:    info.Video.Size,
		RenderSize:     display,
		LayerTransform: LayerTransform(orientation, display),
		Trim:           ResolveTrim(spec.Trim, info.Duration.Seconds(), maxDuration.Seconds()),
		HasAudio:       info.HasAudio,
		OutputPath:     spec.OutputPath,
	}

	if HasText(spec.Overlay) && m != nil {
		overlay := spec.Overlay.Normalized()
		if layout, ok := LayoutOverlay(overlay, display, m); ok {
			plan.Overlay = &overlay
			plan.OverlayLayout = &layout
		}
	}
	return plan, nil
}
