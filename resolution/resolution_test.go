package resolution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    Resolution
		wantErr bool
	}{
		{input: "1920x1080", want: Resolution{1920, 1080}},
		{input: "1080:1920", want: Resolution{1080, 1920}},
		{input: "720p", want: Resolution720p()},
		{input: " 1080p ", want: Resolution1080p()},
		{input: "0x1080", wantErr: true},
		{input: "axb", wantErr: true},
		{input: "4k", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolution_Helpers(t *testing.T) {
	r := Resolution{Width: 1921, Height: 1079}

	assert.Equal(t, Resolution{1079, 1921}, r.Swapped())
	assert.True(t, r.Swapped().IsPortrait())
	assert.False(t, r.IsPortrait())
	assert.Equal(t, Resolution{1920, 1078}, r.Even())
	assert.Equal(t, "1921:1079", r.Format("w:h"))
	assert.True(t, Resolution{Width: 0, Height: 10}.IsEmpty())
}
