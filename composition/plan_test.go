package composition

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeti47/eight/faults"
	"github.com/yeti47/eight/media"
	"github.com/yeti47/eight/resolution"
)

func portraitInfo() media.Info {
	return media.Info{
		Duration: 6 * time.Second,
		Video:    &media.VideoTrack{Codec: "h264", Size: resolution.Resolution1080p(), Rotation: 90},
		HasAudio: true,
	}
}

func TestBuildPlan_NoVideoTrack(t *testing.T) {
	_, err := BuildPlan(Spec{SourcePath: "voice.m4a"}, media.Info{Duration: time.Second, HasAudio: true}, 8*time.Second, fixedMeasurer{})
	assert.ErrorIs(t, err, faults.ErrNoMediaTrack)
}

func TestBuildPlan_PortraitSource(t *testing.T) {
	plan, err := BuildPlan(Spec{SourcePath: "in.mp4", Trim: TrimRange{Start: 1, End: 4}, OutputPath: "out.mp4"},
		portraitInfo(), 8*time.Second, fixedMeasurer{})
	require.NoError(t, err)

	assert.Equal(t, Portrait90CW, plan.Orientation)
	assert.Equal(t, resolution.Resolution{Width: 1080, Height: 1920}, plan.RenderSize)
	assert.Equal(t, resolution.Resolution1080p(), plan.NaturalSize)
	assert.Equal(t, TrimRange{Start: 1, End: 4}, plan.Trim)
	assert.Nil(t, plan.OverlayLayout)
	assert.True(t, plan.HasAudio)
}

func TestBuildPlan_OverlayInDisplaySpace(t *testing.T) {
	o := overlay("hi", 0.5, 0.1, AlignCenter)
	plan, err := BuildPlan(Spec{SourcePath: "in.mp4", Overlay: &o}, portraitInfo(), 8*time.Second, fixedMeasurer{})
	require.NoError(t, err)

	require.NotNil(t, plan.OverlayLayout)
	assert.Equal(t, 540.0, plan.OverlayLayout.AnchorX)
	assert.InDelta(t, 0.9*1920, plan.OverlayLayout.AnchorY, 1e-6)
	// invalid trim falls back to the whole 6s source
	assert.Equal(t, TrimRange{Start: 0, End: 6}, plan.Trim)
}

func TestBuildPlan_BlankOverlayDiscarded(t *testing.T) {
	o := overlay("  ", 0.5, 0.5, AlignCenter)
	plan, err := BuildPlan(Spec{SourcePath: "in.mp4", Overlay: &o}, portraitInfo(), 8*time.Second, fixedMeasurer{})
	require.NoError(t, err)
	assert.Nil(t, plan.Overlay)
	assert.Nil(t, plan.OverlayLayout)
}

func TestPlan_FilterGraphLayerOrder(t *testing.T) {
	o := overlay("hi", 0.5, 0.5, AlignCenter)
	plan, err := BuildPlan(Spec{SourcePath: "in.mp4", Overlay: &o}, portraitInfo(), 8*time.Second, fixedMeasurer{})
	require.NoError(t, err)
	plan.OverlayImage = "overlay.png"

	graph := plan.FilterGraph()
	assert.Contains(t, graph, "[0:v]transpose=clock,setsar=1[base]")
	assert.Contains(t, graph, "[base][text]overlay=")
	assert.NotContains(t, graph, "[text][base]")

	plan.OverlayImage = ""
	assert.Equal(t, "[0:v]transpose=clock,setsar=1[base];[base]format=yuv420p[out]", plan.FilterGraph())
}

func TestPlan_ArgsDifferOnlyInOutputPath(t *testing.T) {
	o := overlay("hello", 0.3, 0.8, AlignLeft)
	spec := Spec{SourcePath: "in.mp4", Trim: TrimRange{Start: 0.5, End: 3.5}, Overlay: &o}

	first := spec
	first.OutputPath = "/tmp/edited_a.mp4"
	second := spec
	second.OutputPath = "/tmp/edited_b.mp4"

	p1, err := BuildPlan(first, portraitInfo(), 8*time.Second, fixedMeasurer{})
	require.NoError(t, err)
	p2, err := BuildPlan(second, portraitInfo(), 8*time.Second, fixedMeasurer{})
	require.NoError(t, err)
	p1.OverlayImage = "/tmp/overlay.png"
	p2.OverlayImage = "/tmp/overlay.png"

	a1, a2 := p1.Args(DefaultEncodeSettings), p2.Args(DefaultEncodeSettings)
	require.Len(t, a2, len(a1))
	assert.Empty(t, cmp.Diff(a1[:len(a1)-1], a2[:len(a2)-1]))
	assert.Equal(t, "/tmp/edited_a.mp4", a1[len(a1)-1])
	assert.Equal(t, "/tmp/edited_b.mp4", a2[len(a2)-1])
}

func TestPlan_Args(t *testing.T) {
	plan, err := BuildPlan(Spec{SourcePath: "in.mp4", Trim: TrimRange{Start: 1, End: 2.5}, OutputPath: "out.mp4"},
		portraitInfo(), 8*time.Second, fixedMeasurer{})
	require.NoError(t, err)

	joined := strings.Join(plan.Args(DefaultEncodeSettings), " ")
	for _, want := range []string{
		"-noautorotate -ss 1.000 -i in.mp4",
		"-map [out] -map 0:a:0",
		"-t 1.500",
		"-c:v libx264 -preset veryslow -crf 18",
		"-c:a aac -b:a 192k",
		"-fflags +bitexact",
		"-movflags +faststart",
	} {
		assert.Contains(t, joined, want)
	}

	plan.HasAudio = false
	joined = strings.Join(plan.Args(DefaultEncodeSettings), " ")
	assert.Contains(t, joined, "-an")
	assert.NotContains(t, joined, "0:a:0")
}
