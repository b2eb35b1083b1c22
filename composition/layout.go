package composition

import (
	"image"
	"math"

	"github.com/yeti47/eight/resolution"
)

// OverlayPadding is the space kept around the text inside its layer, in pixels
const OverlayPadding = 20.0

// TextMeasurer reports the rendered size of a single line of text
type TextMeasurer interface {
	Measure(text string, fontSize float64) (width, height float64)
}

// Rect is a rectangle in overlay layer space, where the origin is bottom-left
type Rect struct {
	X, Y, W, H float64
}

func (r Rect) IsEmpty() bool {
	return r.W <= 0 || r.H <= 0
}

func (r Rect) Intersect(o Rect) Rect {
	x0 := math.Max(r.X, o.X)
	y0 := math.Max(r.Y, o.Y)
	x1 := math.Min(r.X+r.W, o.X+o.W)
	y1 := math.Min(r.Y+r.H, o.Y+o.H)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// OverlayLayout is where a caption lands in the render frame
type OverlayLayout struct {
	// AnchorX, AnchorY is the caption position in layer space
	AnchorX, AnchorY float64
	TextW, TextH     float64
	// Frame is the text layer before clipping
	Frame Rect
	// Visible is Frame clipped to the render bounds
	Visible Rect
}

// AnchorPoint maps normalized UI coordinates (origin top-left) into layer space (origin bottom-left)
func AnchorPoint(x, y float64, display resolution.Resolution) (float64, float64) {
	return x * float64(display.Width), (1 - y) * float64(display.Height)
}

// LayoutOverlay computes the text layer frame for an overlay on a render frame of
// size display. ok is false when the overlay is empty or clips to nothing.
func LayoutOverlay(o TextOverlay, display resolution.Resolution, m TextMeasurer) (OverlayLayout, bool) {
	if !HasText(&o) || display.IsEmpty() {
		return OverlayLayout{}, false
	}
	o = o.Normalized()

	x, y := AnchorPoint(o.PositionX, o.PositionY, display)
	tw, th := m.Measure(o.Text, o.FontSize)
	W := float64(display.Width)
	pad := OverlayPadding

	var frame Rect
	switch o.Alignment {
	case AlignLeft:
		frame = Rect{
			X: math.Max(pad, x-pad),
			Y: y - th/2,
			W: math.Min(W-x, tw+pad*2),
			H: th + pad,
		}
	case AlignRight:
		frame = Rect{
			X: x - tw - pad,
			Y: y - th/2,
			W: math.Min(x, tw+pad*2),
			H: th + pad,
		}
	default:
		frame = Rect{
			X: x - tw/2 - pad,
			Y: y - th/2,
			W: tw + pad*2,
			H: th + pad,
		}
	}

	bounds := Rect{W: W, H: float64(display.Height)}
	visible := frame.Intersect(bounds)
	layout := OverlayLayout{AnchorX: x, AnchorY: y, TextW: tw, TextH: th, Frame: frame, Visible: visible}
	if visible.IsEmpty() {
		return layout, false
	}
	return layout, true
}

// PixelBounds converts the visible frame to an image rectangle with a top-left
// origin, as used by raster images and ffmpeg's overlay filter.
func (l OverlayLayout) PixelBounds(display resolution.Resolution) image.Rectangle {
	H := float64(display.Height)
	r := image.Rect(
		int(math.Floor(l.Visible.X)),
		int(math.Floor(H-(l.Visible.Y+l.Visible.H))),
		int(math.Ceil(l.Visible.X+l.Visible.W)),
		int(math.Ceil(H-l.Visible.Y)),
	)
	return r.Intersect(image.Rect(0, 0, display.Width, display.Height))
}

// TextOrigin is where the text's top-left corner sits inside the raster of
// PixelBounds. It can be negative when the frame was clipped.
func (l OverlayLayout) TextOrigin(o TextOverlay, display resolution.Resolution) image.Point {
	H := float64(display.Height)
	bounds := l.PixelBounds(display)
	frameLeft := l.Frame.X
	frameTop := H - (l.Frame.Y + l.Frame.H)

	var textLeft float64
	switch o.Alignment {
	case AlignLeft:
		textLeft = frameLeft
	case AlignRight:
		textLeft = frameLeft + l.Frame.W - l.TextW
	default:
		textLeft = frameLeft + (l.Frame.W-l.TextW)/2
	}
	textTop := frameTop + OverlayPadding/2

	return image.Pt(int(math.Round(textLeft))-bounds.Min.X, int(math.Round(textTop))-bounds.Min.Y)
}

// TextRasterizer draws an overlay into a transparent image of the layout's
// pixel bounds and writes it to path.
type TextRasterizer interface {
	Rasterize(o TextOverlay, layout OverlayLayout, display resolution.Resolution, path string) error
}
