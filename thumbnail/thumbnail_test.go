package thumbnail

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yeti47/eight/resolution"
)

func TestDimensions(t *testing.T) {
	tests := []struct {
		name    string
		display resolution.Resolution
		want    resolution.Resolution
	}{
		{"portrait 9:16", resolution.Resolution{Width: 1080, Height: 1920}, resolution.Resolution{Width: 270, Height: 480}},
		{"landscape 16:9", resolution.Resolution1080p(), resolution.Resolution{Width: 480, Height: 270}},
		{"square", resolution.Resolution{Width: 720, Height: 720}, resolution.Resolution{Width: 480, Height: 480}},
		{"odd result is evened", resolution.Resolution{Width: 640, Height: 480}, resolution.Resolution{Width: 480, Height: 360}},
		{"4:3 portrait", resolution.Resolution{Width: 480, Height: 640}, resolution.Resolution{Width: 360, Height: 480}},
		{"unknown", resolution.Resolution{}, resolution.Resolution{Width: 480, Height: 480}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Dimensions(tt.display))
		})
	}
}
