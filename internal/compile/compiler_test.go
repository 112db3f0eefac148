package compile

import (
	"strings"
	"testing"

	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/timeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoSceneTimeline() *timeline.Timeline {
	return &timeline.Timeline{
		Version: 1,
		Width:   1080,
		Height:  1920,
		FPS:     30,
		Scenes: []timeline.Scene{
			{
				ID:          "scene-1",
				AssetID:     "asset-1",
				Kind:        timeline.SceneKindVideo,
				InSec:       0,
				OutSec:      4,
				DurationSec: 4,
				CropMode:    timeline.CropModeCover,
			},
			{
				ID:          "scene-2",
				AssetID:     "asset-2",
				Kind:        timeline.SceneKindImage,
				DurationSec: 3,
				CropMode:    timeline.CropModeCover,
			},
		},
		Export: timeline.Export{Codec: timeline.CodecH264, CRF: 23, AudioKbps: 128},
	}
}

func TestCompile_RejectsEmptyTimeline(t *testing.T) {
	_, err := Compile(&timeline.Timeline{}, nil, nil)
	require.Error(t, err)
}

func TestCompile_MissingAssetFallsBackToBlackFrame(t *testing.T) {
	tl := twoSceneTimeline()
	plan, err := Compile(tl, map[string]string{}, nil)
	require.NoError(t, err)
	assert.Contains(t, plan.FilterComplex, "color=c=black")
}

func TestCompile_ProducesDeterministicOutputForSameInputs(t *testing.T) {
	tl := twoSceneTimeline()
	paths := map[string]string{"asset-1": "/tmp/a.mp4", "asset-2": "/tmp/b.jpg"}

	plan1, err := Compile(tl, paths, nil)
	require.NoError(t, err)
	plan2, err := Compile(tl, paths, nil)
	require.NoError(t, err)

	assert.Equal(t, plan1.Args, plan2.Args)
	assert.Equal(t, plan1.FilterComplex, plan2.FilterComplex)
	assert.Equal(t, plan1.OutputDurationSec, plan2.OutputDurationSec)
}

func TestCompile_MapsBothInputsAndAppliesCodecSettings(t *testing.T) {
	tl := twoSceneTimeline()
	paths := map[string]string{"asset-1": "/tmp/a.mp4", "asset-2": "/tmp/b.jpg"}

	plan, err := Compile(tl, paths, nil)
	require.NoError(t, err)

	assert.Contains(t, plan.Args, "/tmp/a.mp4")
	assert.Contains(t, plan.Args, "/tmp/b.jpg")
	assert.Contains(t, plan.Args, "libx264")
	assert.Contains(t, plan.Args, "-crf")
	assert.InDelta(t, 7.0, plan.OutputDurationSec, 0.01)
}

func TestCompile_ReconcilesDurationForLongVoiceover(t *testing.T) {
	tl := twoSceneTimeline()
	tl.Voiceover = &timeline.Voiceover{AssetID: "vo", DurationSec: 20}
	paths := map[string]string{"asset-1": "/tmp/a.mp4", "asset-2": "/tmp/b.jpg", "vo": "/tmp/vo.mp3"}

	plan, err := Compile(tl, paths, nil)
	require.NoError(t, err)
	assert.Greater(t, plan.OutputDurationSec, 20.0)
	assert.True(t, strings.Contains(plan.FilterComplex, "tpad") || plan.OutputDurationSec > 7)
}

func TestCompile_UsesBitrateWhenCRFUnset(t *testing.T) {
	tl := twoSceneTimeline()
	tl.Export = timeline.Export{Codec: timeline.CodecH265, BitrateMbps: 4, AudioKbps: 128}
	paths := map[string]string{"asset-1": "/tmp/a.mp4", "asset-2": "/tmp/b.jpg"}

	plan, err := Compile(tl, paths, nil)
	require.NoError(t, err)
	assert.Contains(t, plan.Args, "libx265")
	assert.Contains(t, plan.Args, "-b:v")
	assert.Contains(t, plan.Args, "4M")
}

func TestCompile_FallsBackToTalkingHeadAudioWhenNoVoiceoverOrTracks(t *testing.T) {
	tl := twoSceneTimeline()
	tl.Scenes[0].IsTalkingHead = true
	paths := map[string]string{"asset-1": "/tmp/a.mp4", "asset-2": "/tmp/b.jpg"}

	plan, err := Compile(tl, paths, nil)
	require.NoError(t, err)
	assert.Contains(t, plan.FilterComplex, "talkinghead_concat")
	assert.Contains(t, plan.FilterComplex, "concat=n=2:v=0:a=1")
	assert.Contains(t, plan.FilterComplex, "aevalsrc=0:d=3")
}

func TestCompile_SkipsTalkingHeadFallbackWithNoFlaggedScenes(t *testing.T) {
	tl := twoSceneTimeline()
	paths := map[string]string{"asset-1": "/tmp/a.mp4", "asset-2": "/tmp/b.jpg"}

	plan, err := Compile(tl, paths, nil)
	require.NoError(t, err)
	assert.NotContains(t, plan.FilterComplex, "talkinghead_concat")
}

func TestCompile_PrefersVoiceoverOverTalkingHeadFallback(t *testing.T) {
	tl := twoSceneTimeline()
	tl.Scenes[0].IsTalkingHead = true
	tl.Voiceover = &timeline.Voiceover{AssetID: "vo", DurationSec: 5}
	paths := map[string]string{"asset-1": "/tmp/a.mp4", "asset-2": "/tmp/b.jpg", "vo": "/tmp/vo.mp3"}

	plan, err := Compile(tl, paths, nil)
	require.NoError(t, err)
	assert.NotContains(t, plan.FilterComplex, "talkinghead_concat")
}

func TestGraph_DedupesInputsByPath(t *testing.T) {
	g := newGraph()
	idx1 := g.addInput("/tmp/shared.mp4", false, false, false)
	idx2 := g.addInput("/tmp/shared.mp4", false, false, false)
	assert.Equal(t, idx1, idx2)
	assert.Len(t, g.inputArgs(), 2) // one "-i" pair
}

func TestGraph_FilterComplexSerializesInOrder(t *testing.T) {
	g := newGraph()
	g.addNode("a", "scale=100:100", "0:v")
	g.addNode("b", "fade=in", "a")
	assert.Equal(t, "[0:v]scale=100:100[a];[a]fade=in[b]", g.filterComplex())
}
