package composition

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yeti47/eight/resolution"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		degrees int
		want    Orientation
	}{
		{0, Landscape},
		{90, Portrait90CW},
		{-270, Portrait90CW},
		{180, Landscape},
		{270, Portrait90CCW},
		{-90, Portrait90CCW},
		{45, Landscape},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(RotationTransform(tt.degrees)), "rotation %d", tt.degrees)
	}

	assert.Equal(t, Landscape, Classify(Identity))
	assert.Equal(t, Portrait90CW, Classify(Transform{A: 0.05, B: 0.99, C: -0.99, D: 0.05}))
}

func TestDisplaySize_SwapsOnlyForPortrait(t *testing.T) {
	sizes := []resolution.Resolution{resolution.Resolution1080p(), resolution.Resolution720p(), {Width: 640, Height: 480}, {Width: 1080, Height: 1920}}
	for _, o := range []Orientation{Landscape, Portrait90CW, Portrait90CCW} {
		for _, natural := range sizes {
			got := DisplaySize(o, natural)
			if o.IsPortrait() {
				assert.Equal(t, natural.Swapped(), got, "%s %s", o, natural)
			} else {
				assert.Equal(t, natural, got, "%s %s", o, natural)
			}
		}
	}
}

func TestLayerTransform_MapsFrameOntoRenderBounds(t *testing.T) {
	natural := resolution.Resolution1080p()
	for _, o := range []Orientation{Landscape, Portrait90CW, Portrait90CCW} {
		display := DisplaySize(o, natural)
		tr := LayerTransform(o, display)

		minX, minY := math.Inf(1), math.Inf(1)
		maxX, maxY := math.Inf(-1), math.Inf(-1)
		for _, corner := range [][2]float64{{0, 0}, {1920, 0}, {0, 1080}, {1920, 1080}} {
			x, y := tr.Apply(corner[0], corner[1])
			minX, maxX = math.Min(minX, x), math.Max(maxX, x)
			minY, maxY = math.Min(minY, y), math.Max(maxY, y)
		}
		assert.Equal(t, 0.0, minX, o.String())
		assert.Equal(t, 0.0, minY, o.String())
		assert.Equal(t, float64(display.Width), maxX, o.String())
		assert.Equal(t, float64(display.Height), maxY, o.String())
	}
}

func TestLayerTransform_KeepsRotationOnly(t *testing.T) {
	display := resolution.Resolution{Width: 1080, Height: 1920}
	tr := LayerTransform(Portrait90CW, display)
	assert.Equal(t, Transform{A: 0, B: 1, C: -1, D: 0, TX: 1080, TY: 0}, tr)

	// top-left of the coded frame ends up top-right after a clockwise turn
	x, y := tr.Apply(0, 0)
	assert.Equal(t, 1080.0, x)
	assert.Equal(t, 0.0, y)

	tr = LayerTransform(Portrait90CCW, display)
	assert.Equal(t, Transform{A: 0, B: -1, C: 1, D: 0, TX: 0, TY: 1920}, tr)
}

func TestTransform_Then(t *testing.T) {
	tr := RotationTransform(90).Then(RotationTransform(90))
	assert.Equal(t, RotationTransform(180), tr)

	tr = Translation(5, 7).Then(Translation(1, 1))
	x, y := tr.Apply(0, 0)
	assert.Equal(t, 6.0, x)
	assert.Equal(t, 8.0, y)
}
