package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const encoderListing = `Encoders:
 V..... = Video
 A..... = Audio
 S..... = Subtitle
 ------
 V....D libopenh264          OpenH264 H.264 / AVC / MPEG-4 AVC / MPEG-4 part 10 (codec h264)
 V....D h264_v4l2m2m         V4L2 mem2mem H.264 encoder wrapper (codec h264)
 V..... mpeg4                MPEG-4 part 2
 A....D aac                  AAC (Advanced Audio Coding)
 S..... srt                  SubRip subtitle
`

func TestParseEncoderList(t *testing.T) {
	codecs := ParseEncoderList(encoderListing)

	assert.ElementsMatch(t, []string{"libopenh264", "h264_v4l2m2m", "mpeg4", "aac"}, codecs)
}

func TestGetAvailableCodecs_ReturnsCopy(t *testing.T) {
	provider := NewStaticCodecProvider(ParseEncoderList(encoderListing), nil)

	codecs1 := provider.GetAvailableCodecs()
	codecs1["modification_test"] = true

	codecs2 := provider.GetAvailableCodecs()
	_, exists := codecs2["modification_test"]
	assert.False(t, exists, "GetAvailableCodecs should return independent copies")
	assert.Len(t, codecs2, 4)
}

func TestGetFallbackCodec(t *testing.T) {
	provider := NewStaticCodecProvider(ParseEncoderList(encoderListing), nil)

	tests := []struct {
		name      string
		requested string
		want      string
		wantErr   string
	}{
		{name: "available codec returns itself", requested: "aac", want: "aac"},
		{name: "libx264 falls back along its chain", requested: "libx264", want: "libopenh264"},
		{name: "libx265 falls back to h264", requested: "libx265", want: "libopenh264"},
		{name: "unknown codec without chain", requested: "nonexistent_codec", wantErr: "no fallback is defined"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := provider.GetFallbackCodec(tt.requested)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetFallbackCodec_ExhaustedChain(t *testing.T) {
	provider := NewStaticCodecProvider([]string{"mpeg4"}, nil)

	_, err := provider.GetFallbackCodec("libx264")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no suitable codec available")
}
