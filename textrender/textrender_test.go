package textrender

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/yeti47/eight/composition"
	"github.com/yeti47/eight/resolution"
)

func TestRGBA(t *testing.T) {
	tests := []struct {
		in   composition.TextColor
		want color.RGBA
	}{
		{composition.White, color.RGBA{255, 255, 255, 255}},
		{composition.Black, color.RGBA{0, 0, 0, 255}},
		{composition.Red, color.RGBA{255, 0, 0, 255}},
		{composition.Blue, color.RGBA{0, 0, 255, 255}},
		{composition.Yellow, color.RGBA{255, 255, 0, 255}},
		{composition.Green, color.RGBA{0, 255, 0, 255}},
		{composition.TextColor(42), color.RGBA{255, 255, 255, 255}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RGBA(tt.in), tt.in.String())
	}
}

func TestRenderer_MeasureGrowsWithSize(t *testing.T) {
	r := NewRenderer(nil)
	w1, h1 := r.Measure("Hello", 20)
	w2, h2 := r.Measure("Hello", 40)

	assert.Greater(t, w1, 0.0)
	assert.Greater(t, h1, 0.0)
	assert.Greater(t, w2, w1)
	assert.Greater(t, h2, h1)

	wLong, _ := r.Measure("Hello there", 40)
	assert.Greater(t, wLong, w2)
}

func TestRenderer_RasterizeWritesTransparentPNG(t *testing.T) {
	r := NewRenderer(nil)
	display := resolution.Resolution{Width: 720, Height: 1280}
	o := composition.NewTextOverlay()
	o.Text = "eight"
	o.Color = composition.Yellow

	layout, ok := composition.LayoutOverlay(o, display, r)
	require.True(t, ok)

	path := filepath.Join(t.TempDir(), "overlay.png")
	require.NoError(t, r.Rasterize(o, layout, display, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	img := gocv.IMRead(path, gocv.IMReadUnchanged)
	defer img.Close()
	bounds := layout.PixelBounds(display)
	assert.Equal(t, bounds.Dx(), img.Cols())
	assert.Equal(t, bounds.Dy(), img.Rows())
	assert.Equal(t, 4, img.Channels())
}
