package composition

import (
	"fmt"
	"math"
	"strings"
)

// TextColor is the overlay palette. Conversion to pixel colors happens in textrender.
type TextColor int

const (
	White TextColor = iota
	Black
	Red
	Blue
	Yellow
	Green
)

var textColorNames = []string{"white", "black", "red", "blue", "yellow", "green"}

func (c TextColor) String() string {
	if c < 0 || int(c) >= len(textColorNames) {
		return fmt.Sprintf("TextColor(%d)", int(c))
	}
	return textColorNames[c]
}

func ParseTextColor(s string) (TextColor, error) {
	for i, name := range textColorNames {
		if strings.EqualFold(s, name) {
			return TextColor(i), nil
		}
	}
	return White, fmt.Errorf("unknown text color %q", s)
}

type Alignment int

const (
	AlignCenter Alignment = iota
	AlignLeft
	AlignRight
)

func (a Alignment) String() string {
	switch a {
	case AlignLeft:
		return "left"
	case AlignRight:
		return "right"
	default:
		return "center"
	}
}

func ParseAlignment(s string) (Alignment, error) {
	switch strings.ToLower(s) {
	case "left":
		return AlignLeft, nil
	case "center", "centre", "":
		return AlignCenter, nil
	case "right":
		return AlignRight, nil
	}
	return AlignCenter, fmt.Errorf("unknown alignment %q", s)
}

const DefaultFontSize = 40.0

// TextOverlay is a single caption placed in normalized UI coordinates (origin top-left)
type TextOverlay struct {
	Text      string    `json:"text"`
	PositionX float64   `json:"position_x"`
	PositionY float64   `json:"position_y"`
	FontSize  float64   `json:"font_size"`
	Color     TextColor `json:"color"`
	Alignment Alignment `json:"alignment"`
}

// NewTextOverlay returns an empty centered white caption
func NewTextOverlay() TextOverlay {
	return TextOverlay{
		PositionX: 0.5,
		PositionY: 0.5,
		FontSize:  DefaultFontSize,
		Color:     White,
		Alignment: AlignCenter,
	}
}

// HasText reports whether o carries any visible text; a nil overlay has none
func HasText(o *TextOverlay) bool {
	return o != nil && strings.TrimSpace(o.Text) != ""
}

// Normalized clamps the position into [0,1] and replaces an unusable font size
func (o TextOverlay) Normalized() TextOverlay {
	o.PositionX = clamp01(o.PositionX)
	o.PositionY = clamp01(o.PositionY)
	if o.FontSize <= 0 || math.IsNaN(o.FontSize) {
		o.FontSize = DefaultFontSize
	}
	return o
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0.5
	}
	return math.Max(0, math.Min(1, v))
}
