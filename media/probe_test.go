package media

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeti47/eight/resolution"
)

const portraitPhoneProbe = `{
  "streams": [
    {
      "codec_type": "video",
      "codec_name": "h264",
      "width": 1920,
      "height": 1080,
      "duration": "6.006000",
      "side_data_list": [
        {"side_data_type": "Display Matrix", "displaymatrix": "...", "rotation": -90}
      ]
    },
    {"codec_type": "audio", "codec_name": "aac"}
  ],
  "format": {"duration": "6.016000"}
}`

const legacyTagProbe = `{
  "streams": [
    {"codec_type": "video", "codec_name": "mpeg4", "width": 640, "height": 480, "tags": {"rotate": "270"}}
  ],
  "format": {"duration": "2.5"}
}`

const audioOnlyProbe = `{
  "streams": [{"codec_type": "audio", "codec_name": "aac"}],
  "format": {"duration": "3.0"}
}`

func TestParseProbeOutput(t *testing.T) {
	t.Run("display matrix rotation", func(t *testing.T) {
		info, err := ParseProbeOutput([]byte(portraitPhoneProbe))
		require.NoError(t, err)
		require.NotNil(t, info.Video)
		assert.Equal(t, resolution.Resolution1080p(), info.Video.Size)
		assert.Equal(t, 90, info.Video.Rotation)
		assert.Equal(t, "h264", info.Video.Codec)
		assert.True(t, info.HasAudio)
		assert.Equal(t, 6016*time.Millisecond, info.Duration)
	})

	t.Run("rotate tag", func(t *testing.T) {
		info, err := ParseProbeOutput([]byte(legacyTagProbe))
		require.NoError(t, err)
		require.NotNil(t, info.Video)
		assert.Equal(t, 270, info.Video.Rotation)
		assert.False(t, info.HasAudio)
		assert.Equal(t, 2500*time.Millisecond, info.Duration)
	})

	t.Run("no video stream", func(t *testing.T) {
		info, err := ParseProbeOutput([]byte(audioOnlyProbe))
		require.NoError(t, err)
		assert.Nil(t, info.Video)
		assert.True(t, info.HasAudio)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParseProbeOutput([]byte("not json"))
		assert.Error(t, err)
	})
}

func TestNormalizeRotation(t *testing.T) {
	cases := map[int]int{0: 0, 90: 90, -90: 270, 360: 0, 450: 90, -180: 180}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeRotation(in), "input %d", in)
	}
}
