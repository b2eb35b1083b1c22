package textrender

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"github.com/yeti47/eight/common"
	"github.com/yeti47/eight/composition"
	"github.com/yeti47/eight/resolution"
)

// referenceSize is the font size that maps to Hershey scale 1.0
const referenceSize = 30.0

var palette = map[composition.TextColor]color.RGBA{
	composition.White:  {R: 255, G: 255, B: 255, A: 255},
	composition.Black:  {R: 0, G: 0, B: 0, A: 255},
	composition.Red:    {R: 255, G: 0, B: 0, A: 255},
	composition.Blue:   {R: 0, G: 0, B: 255, A: 255},
	composition.Yellow: {R: 255, G: 255, B: 0, A: 255},
	composition.Green:  {R: 0, G: 255, B: 0, A: 255},
}

// RGBA converts a palette color, falling back to white
func RGBA(c composition.TextColor) color.RGBA {
	if rgba, ok := palette[c]; ok {
		return rgba
	}
	return palette[composition.White]
}

// Renderer measures and rasterizes captions with OpenCV's Hershey fonts
type Renderer struct {
	font   gocv.HersheyFont
	logger common.Logger
}

func NewRenderer(logger common.Logger) *Renderer {
	return &Renderer{font: gocv.FontHersheySimplex, logger: common.LoggerOrNop(logger)}
}

func scaleFor(fontSize float64) float64 {
	return fontSize / referenceSize
}

func thicknessFor(fontSize float64) int {
	return max(1, int(math.Round(fontSize/15)))
}

// Measure implements composition.TextMeasurer. The height includes the descent below the baseline.
func (r *Renderer) Measure(text string, fontSize float64) (float64, float64) {
	size, baseline := gocv.GetTextSizeWithBaseline(text, r.font, scaleFor(fontSize), thicknessFor(fontSize))
	return float64(size.X), float64(size.Y + baseline)
}

// Rasterize implements composition.TextRasterizer by writing a transparent PNG
func (r *Renderer) Rasterize(o composition.TextOverlay, layout composition.OverlayLayout, display resolution.Resolution, path string) error {
	bounds := layout.PixelBounds(display)
	if bounds.Empty() {
		return fmt.Errorf("overlay has no visible area")
	}

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), bounds.Dy(), bounds.Dx(), gocv.MatTypeCV8UC4)
	defer img.Close()

	scale := scaleFor(o.FontSize)
	thickness := thicknessFor(o.FontSize)
	size, _ := gocv.GetTextSizeWithBaseline(o.Text, r.font, scale, thickness)

	origin := layout.TextOrigin(o, display)
	baseline := image.Pt(origin.X, origin.Y+size.Y)
	gocv.PutTextWithParams(&img, o.Text, baseline, r.font, scale, RGBA(o.Color), thickness, gocv.LineAA, false)

	if ok := gocv.IMWrite(path, img); !ok {
		return fmt.Errorf("failed to write overlay image %s", path)
	}
	r.logger.Debug("Rasterized text overlay", "path", path, "bounds", bounds.String(), "color", o.Color.String())
	return nil
}
