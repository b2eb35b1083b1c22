package composition

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasText(t *testing.T) {
	assert.False(t, HasText(nil))
	assert.False(t, HasText(&TextOverlay{Text: "  \n"}))
	assert.True(t, HasText(&TextOverlay{Text: " hi "}))
}

func TestTextOverlay_Normalized(t *testing.T) {
	o := TextOverlay{Text: "hi", PositionX: -1, PositionY: math.NaN(), FontSize: 0}.Normalized()

	assert.Equal(t, 0.0, o.PositionX)
	assert.Equal(t, 0.5, o.PositionY)
	assert.Equal(t, DefaultFontSize, o.FontSize)
}
