package composition

import (
	"math"

	"github.com/yeti47/eight/resolution"
)

// Transform is a 2D affine transform in the [a b; c d; tx ty] row convention:
// x' = a*x + c*y + tx, y' = b*x + d*y + ty.
type Transform struct {
	A, B, C, D, TX, TY float64
}

var Identity = Transform{A: 1, D: 1}

func Translation(tx, ty float64) Transform {
	return Transform{A: 1, D: 1, TX: tx, TY: ty}
}

// RotationTransform returns the display transform for a clockwise rotation in degrees
func RotationTransform(clockwiseDegrees int) Transform {
	rad := float64(clockwiseDegrees) * math.Pi / 180
	sin, cos := snap(math.Sin(rad)), snap(math.Cos(rad))
	return Transform{A: cos, B: sin, C: -sin, D: cos}
}

// snap removes floating point noise around the unit values
func snap(v float64) float64 {
	r := math.Round(v)
	if math.Abs(v-r) < 1e-9 {
		return r + 0
	}
	return v
}

// Then returns the transform that applies t first and next second
func (t Transform) Then(next Transform) Transform {
	return Transform{
		A:  t.A*next.A + t.B*next.C,
		B:  t.A*next.B + t.B*next.D,
		C:  t.C*next.A + t.D*next.C,
		D:  t.C*next.B + t.D*next.D,
		TX: t.TX*next.A + t.TY*next.C + next.TX,
		TY: t.TX*next.B + t.TY*next.D + next.TY,
	}
}

func (t Transform) Apply(x, y float64) (float64, float64) {
	return t.A*x + t.C*y + t.TX, t.B*x + t.D*y + t.TY
}

type Orientation int

const (
	Landscape Orientation = iota
	Portrait90CW
	Portrait90CCW
)

func (o Orientation) String() string {
	switch o {
	case Portrait90CW:
		return "portrait_90_cw"
	case Portrait90CCW:
		return "portrait_90_ccw"
	default:
		return "landscape"
	}
}

func (o Orientation) IsPortrait() bool {
	return o == Portrait90CW || o == Portrait90CCW
}

// Classify inspects the rotational part of a display transform. Anything that
// is not a quarter turn, including upside down, is treated as landscape.
func Classify(t Transform) Orientation {
	switch {
	case math.Abs(t.A) < 0.1 && t.B > 0.9:
		return Portrait90CW
	case math.Abs(t.A) < 0.1 && t.B < -0.9:
		return Portrait90CCW
	default:
		return Landscape
	}
}

// DisplaySize is the size the viewer sees for a coded frame of the given size
func DisplaySize(o Orientation, natural resolution.Resolution) resolution.Resolution {
	if o.IsPortrait() {
		return natural.Swapped()
	}
	return natural
}

// LayerTransform maps coded frame coordinates into the render frame: the
// rotation alone, followed by the translation that puts the rotated frame
// back at the render origin.
func LayerTransform(o Orientation, display resolution.Resolution) Transform {
	switch o {
	case Portrait90CW:
		return Transform{A: 0, B: 1, C: -1, D: 0}.Then(Translation(float64(display.Width), 0))
	case Portrait90CCW:
		return Transform{A: 0, B: -1, C: 1, D: 0}.Then(Translation(0, float64(display.Height)))
	default:
		return Identity
	}
}

// rotationFilter is the ffmpeg filter that bakes the layer transform into pixels
func rotationFilter(o Orientation) string {
	switch o {
	case Portrait90CW:
		return "transpose=clock"
	case Portrait90CCW:
		return "transpose=cclock"
	default:
		return "null"
	}
}
