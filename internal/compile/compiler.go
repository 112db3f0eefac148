package compile

import (
	"fmt"
	"math"
	"strings"

	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/timeline"
)

// Plan is the Timeline Compiler's output: everything the Engine Runner
// needs to invoke the encoding subprocess (spec §4.4).
type Plan struct {
	Args              []string
	FilterComplex     string
	OutputDurationSec float64
}

// Compile translates a validated timeline and its resolved asset paths
// into an engine invocation plan. It performs no I/O and is a pure
// function of its arguments (spec §8 property 6): identical timeline +
// identical path map always yields byte-identical args and filter
// graph.
func Compile(tl *timeline.Timeline, paths map[string]string, gifKeys map[string]bool) (*Plan, error) {
	if len(tl.Scenes) == 0 {
		return nil, fmt.Errorf("timeline has no scenes")
	}

	g := newGraph()

	sceneLabels := make([]string, len(tl.Scenes))
	sceneDurations := make([]float64, len(tl.Scenes))
	for i, scene := range tl.Scenes {
		label, dur, err := compileScene(g, tl, i, scene, paths, gifKeys)
		if err != nil {
			return nil, fmt.Errorf("scene %d (%s): %w", i, scene.ID, err)
		}
		sceneLabels[i] = label
		sceneDurations[i] = dur
	}

	videoLabel, visualDuration := compileTransitions(g, tl, sceneLabels, sceneDurations)

	videoLabel = compileOverlays(g, tl, videoLabel, paths)

	outputDuration := reconcileDuration(tl, visualDuration)
	videoLabel = padShortfall(g, videoLabel, visualDuration, outputDuration, tl)

	audioLabel, hasAudio := compileAudioGraph(g, tl, paths, outputDuration)

	args := buildOutputArgs(g, tl, videoLabel, audioLabel, hasAudio, outputDuration)

	return &Plan{
		Args:              args,
		FilterComplex:     g.filterComplex(),
		OutputDurationSec: outputDuration,
	}, nil
}

// compileScene builds the per-scene video chain (spec §4.4.2): either a
// local-asset source (trimmed, aspect-fit, freeze-padded) or, when no
// asset resolved, a synthesized black frame.
func compileScene(g *graph, tl *timeline.Timeline, idx int, scene timeline.Scene, paths map[string]string, gifKeys map[string]bool) (string, float64, error) {
	label := fmt.Sprintf("v%d", idx)
	key := scene.SourceKey()
	path, hasAsset := paths[key]

	if !hasAsset {
		g.addNode(label, fmt.Sprintf(
			"color=c=black:s=%dx%d:r=%g:d=%g,format=yuv420p",
			tl.Width, tl.Height, tl.FPS, scene.DurationSec,
		))
		return label, scene.DurationSec, nil
	}

	isGIF := gifKeys[key]
	idxIn := g.addInput(path, isGIF, scene.Kind == timeline.SceneKindImage, isGIF)

	var chain string
	switch scene.Kind {
	case timeline.SceneKindImage:
		frames := int(math.Ceil(scene.DurationSec * tl.FPS))
		chain = fmt.Sprintf("trim=start_frame=0:end_frame=%d,setpts=PTS-STARTPTS,%s,fps=%g",
			frames, fitFilter(scene.CropMode, tl.Width, tl.Height), tl.FPS)
	case timeline.SceneKindVideo:
		if isGIF {
			chain = fmt.Sprintf("trim=0:%g,setpts=PTS-STARTPTS,%s,fps=%g",
				scene.DurationSec, fitFilter(timeline.CropModeCover, tl.Width, tl.Height), tl.FPS)
		} else {
			chain = fmt.Sprintf("trim=%g:%g,setpts=PTS-STARTPTS,%s,fps=%g,setsar=1",
				scene.InSec, scene.OutSec, fitFilter(scene.CropMode, tl.Width, tl.Height), tl.FPS)
			if scene.NeedsFreezeFramePad() {
				pad := scene.DurationSec - scene.TrimDuration()
				chain += fmt.Sprintf(",tpad=stop_mode=clone:stop_duration=%g", pad)
			}
		}
	default:
		return "", 0, fmt.Errorf("unsupported scene kind %q", scene.Kind)
	}

	g.addNode(label, chain, fmt.Sprintf("%d:v", idxIn))

	if scene.TextOverlay != nil {
		textLabel := label + "_txt"
		g.addNode(textLabel, drawTextFilter(*scene.TextOverlay, tl), label)
		label = textLabel
	}

	return label, scene.DurationSec, nil
}

// fitFilter renders the cover/contain aspect-fit chain for a scene
// (spec §4.4.2): cover scales-then-crops, contain scales-then-pads.
// Crop origins are clamped with max(0, …) to protect against a source
// smaller than the target.
func fitFilter(mode timeline.CropMode, w, h int) string {
	switch mode {
	case timeline.CropModeContain:
		return fmt.Sprintf(
			"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black",
			w, h, w, h,
		)
	case timeline.CropModeFill:
		return fmt.Sprintf("scale=%d:%d", w, h)
	default: // cover
		return fmt.Sprintf(
			"scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d:max(0\\,(iw-%d)/2):max(0\\,(ih-%d)/2)",
			w, h, w, h, w, h,
		)
	}
}

// compileTransitions builds the cross-fade cascade, or a plain concat
// when no scene declares a known transition (spec §4.4.3).
func compileTransitions(g *graph, tl *timeline.Timeline, labels []string, durations []float64) (string, float64) {
	anyTransition := false
	for _, s := range tl.Scenes {
		if s.TransitionOut != "" && s.TransitionOut != timeline.TransitionNone && timeline.KnownTransitions[s.TransitionOut] {
			anyTransition = true
			break
		}
	}

	if !anyTransition {
		out := "vconcat"
		var inputs []string
		for _, l := range labels {
			inputs = append(inputs, l)
		}
		g.addNode(out, fmt.Sprintf("concat=n=%d:v=1:a=0", len(labels)), inputs...)
		total := 0.0
		for _, d := range durations {
			total += d
		}
		return out, total
	}

	current := labels[0]
	cumulative := durations[0]
	for i := 0; i < len(labels)-1; i++ {
		next := labels[i+1]
		transitionName := tl.Scenes[i].TransitionOut
		duration := tl.Scenes[i].TransitionDur
		if duration <= 0 {
			duration = 1
		}
		if !timeline.KnownTransitions[transitionName] {
			transitionName = "" // degrade to concat for this pair
		}

		label := fmt.Sprintf("xf%d", i)
		if transitionName == "" {
			g.addNode(label, "concat=n=2:v=1:a=0", current, next)
			cumulative += durations[i+1]
		} else {
			offset := cumulative - duration
			if offset < 0 {
				offset = 0
			}
			g.addNode(label, fmt.Sprintf("xfade=transition=%s:duration=%g:offset=%g", transitionName, duration, offset), current, next)
			cumulative = offset + duration + (durations[i+1] - duration)
		}
		current = label
	}
	return current, cumulative
}

// reconcileDuration applies the voiceover safety buffer (spec §4.4.4):
// if the declared voiceover duration exceeds the visual duration by
// more than 0.5s, the output must be extended to cover it.
func reconcileDuration(tl *timeline.Timeline, visualDuration float64) float64 {
	if tl.Voiceover == nil || tl.Voiceover.DurationSec <= 0 {
		return visualDuration
	}
	introOffset := tl.Voiceover.StartOffsetMsec / 1000
	required := tl.Voiceover.DurationSec + introOffset
	if required > visualDuration+0.5 {
		return required + 0.5
	}
	return visualDuration
}

// padShortfall appends a freeze-frame pad to the final video label when
// duration reconciliation lengthened the output beyond the visual
// chain's natural length.
func padShortfall(g *graph, videoLabel string, visualDuration, outputDuration float64, tl *timeline.Timeline) string {
	shortfall := outputDuration - visualDuration
	if shortfall <= 0.01 {
		return videoLabel
	}
	padded := videoLabel + "_pad"
	g.addNode(padded, fmt.Sprintf("tpad=stop_mode=clone:stop_duration=%g", shortfall), videoLabel)
	return padded
}

// compileOverlays applies, in order, text overlays, the brand logo,
// image overlays, and burned-in captions (spec §4.4.5).
func compileOverlays(g *graph, tl *timeline.Timeline, videoLabel string, paths map[string]string) string {
	for i, t := range tl.TextOvls {
		label := fmt.Sprintf("txtovl%d", i)
		g.addNode(label, drawTextFilter(t, tl), videoLabel)
		videoLabel = label
	}

	if tl.Brand != nil {
		if path, ok := paths[tl.Brand.LogoAssetID]; ok {
			idx := g.addInput(path, false, true, false)
			pos := cornerPosition(tl.Brand.Corner, 30)
			scaleLabel := "brand_scaled"
			g.addNode(scaleLabel, fmt.Sprintf("scale=%d:-1", tl.Brand.WidthPixels), fmt.Sprintf("%d:v", idx))
			out := "branded"
			g.addNode(out, fmt.Sprintf("overlay=%s:eof_action=pass", pos), videoLabel, scaleLabel)
			videoLabel = out
		}
	}

	for i, ov := range tl.ImageOvls {
		path, ok := paths[ov.AssetID]
		if !ok {
			continue
		}
		idx := g.addInput(path, ov.IsGIF, !ov.IsGIF, ov.IsGIF)
		trimmed := fmt.Sprintf("imgovl%d_trim", i)
		if ov.IsGIF {
			g.addNode(trimmed, fmt.Sprintf("trim=0:%g,setpts=PTS-STARTPTS,scale=iw*%g:ih*%g", ov.Duration, ov.Scale, ov.Scale), fmt.Sprintf("%d:v", idx))
		} else {
			g.addNode(trimmed, fmt.Sprintf("scale=iw*%g:ih*%g", ov.Scale, ov.Scale), fmt.Sprintf("%d:v", idx))
		}
		out := fmt.Sprintf("imgovl%d", i)
		enable := fmt.Sprintf("between(t\\,%g\\,%g)", ov.StartSec, ov.StartSec+ov.Duration)
		g.addNode(out, fmt.Sprintf("overlay=x=main_w*%g/100-overlay_w/2:y=main_h*%g/100-overlay_h/2:enable='%s':eof_action=pass", ov.XPercent, ov.YPercent, enable), videoLabel, trimmed)
		videoLabel = out
	}

	if tl.Captions != nil && tl.Captions.Enabled && tl.Captions.BurnIn {
		for i, seg := range tl.Captions.Segments {
			if seg.Duration() < 0.1 || seg.StartSec < 0 {
				continue // dropped: spec §4.4.5 minimum-duration rule
			}
			label := fmt.Sprintf("cap%d", i)
			g.addNode(label, captionFilter(seg), videoLabel)
			videoLabel = label
		}
	}

	return videoLabel
}

func cornerPosition(corner timeline.BrandCorner, margin int) string {
	switch corner {
	case timeline.CornerTopLeft:
		return fmt.Sprintf("%d:%d", margin, margin)
	case timeline.CornerTopRight:
		return fmt.Sprintf("main_w-overlay_w-%d:%d", margin, margin)
	case timeline.CornerBottomLeft:
		return fmt.Sprintf("%d:main_h-overlay_h-%d", margin, margin)
	default: // bottom-right
		return fmt.Sprintf("main_w-overlay_w-%d:main_h-overlay_h-%d", margin, margin)
	}
}

func drawTextFilter(t timeline.TextOverlay, tl *timeline.Timeline) string {
	size := int(float64(t.FontSize) / 10 * float64(tl.Height) / 10)
	color := hexToFFColor(t.Color)
	filter := fmt.Sprintf(
		"drawtext=text='%s':fontsize=%d:fontcolor=%s:x=(w*%g/100)-(text_w/2):y=(h*%g/100)-(text_h/2):shadowcolor=black@0.7:shadowx=2:shadowy=2",
		escapeDrawtext(t.Text), size, color, t.XPercent, t.YPercent,
	)
	if t.Duration > 0 {
		filter += fmt.Sprintf(":enable='between(t\\,%g\\,%g)'", t.StartSec, t.StartSec+t.Duration)
	}
	return filter
}

func captionFilter(seg timeline.CaptionSegment) string {
	return fmt.Sprintf(
		"drawtext=text='%s':fontsize=28:fontcolor=white:x=(w-text_w)/2:y=h*0.92-text_h:box=1:boxcolor=black@0.7:boxborderw=8:enable='between(t\\,%g\\,%g)'",
		escapeDrawtext(seg.Text), seg.StartSec, seg.EndSec,
	)
}

// escapeDrawtext escapes the characters the filter DSL treats
// specially (spec §4.4.5): backslash, single quote, colon, brackets,
// double quote, percent, semicolon.
func escapeDrawtext(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`[`, `\[`,
		`]`, `\]`,
		`"`, `\"`,
		`%`, `\%`,
		`;`, `\;`,
	)
	return replacer.Replace(s)
}

func hexToFFColor(hex string) string {
	hex = strings.TrimPrefix(hex, "#")
	if hex == "" {
		return "white"
	}
	return "0x" + strings.ToUpper(hex)
}

// compileAudioGraph builds the music/voiceover/talking-head/sound-effect
// branches and the final mix (spec §4.4.6).
func compileAudioGraph(g *graph, tl *timeline.Timeline, paths map[string]string, totalDuration float64) (string, bool) {
	var branches []string

	if tl.Music != nil {
		key := tl.Music.Key()
		if path, ok := paths[key]; ok {
			idx := g.addInput(path, false, false, true)
			label := "music"
			volume := tl.Music.Volume
			if volume <= 0 {
				volume = 0.3
			}
			g.addNode(label, fmt.Sprintf("atrim=0:%g,volume=%g", totalDuration, volume), fmt.Sprintf("%d:a", idx))
			branches = append(branches, label)
		}
	}

	if tl.Voiceover != nil {
		if path, ok := paths[tl.Voiceover.AssetID]; ok {
			idx := g.addInput(path, false, false, false)
			label := "voiceover"
			chain := fmt.Sprintf("volume=%g", nonZeroOr(tl.Voiceover.Volume, 1))
			if tl.Voiceover.StartOffsetMsec > 0 {
				chain += fmt.Sprintf(",adelay=%d|%d", int(tl.Voiceover.StartOffsetMsec), int(tl.Voiceover.StartOffsetMsec))
			}
			g.addNode(label, chain, fmt.Sprintf("%d:a", idx))
			branches = append(branches, label)
		}
	} else if len(tl.AudioTracks) > 0 {
		var trackLabels []string
		for i, track := range tl.AudioTracks {
			path, ok := paths[track.AssetID]
			if !ok {
				continue
			}
			idx := g.addInput(path, false, false, false)
			label := fmt.Sprintf("track%d", i)
			chain := fmt.Sprintf("volume=%g", nonZeroOr(track.Volume, 1))
			if track.StartOffsetMsec > 0 {
				chain += fmt.Sprintf(",adelay=%d|%d", int(track.StartOffsetMsec), int(track.StartOffsetMsec))
			}
			g.addNode(label, chain, fmt.Sprintf("%d:a", idx))
			trackLabels = append(trackLabels, label)
		}
		if len(trackLabels) == 1 {
			branches = append(branches, trackLabels[0])
		} else if len(trackLabels) > 1 {
			mixed := "talkinghead_mix"
			g.addNode(mixed, fmt.Sprintf("amix=inputs=%d:duration=longest:normalize=0", len(trackLabels)), trackLabels...)
			branches = append(branches, mixed)
		}
	} else if label, ok := compileTalkingHeadAudio(g, tl, paths); ok {
		branches = append(branches, label)
	}

	for i, fx := range tl.SoundFX {
		path, ok := paths[fx.AssetID]
		if !ok {
			continue
		}
		idx := g.addInput(path, false, false, false)
		label := fmt.Sprintf("fx%d", i)
		delayMs := int(fx.AtTimeSec * 1000)
		g.addNode(label, fmt.Sprintf("adelay=%d|%d,volume=%g", delayMs, delayMs, nonZeroOr(fx.Volume, 1)), fmt.Sprintf("%d:a", idx))
		branches = append(branches, label)
	}

	if len(branches) == 0 {
		return "", false
	}
	if len(branches) == 1 {
		return branches[0], true
	}

	weights := strings.TrimSpace(strings.Repeat("1 ", len(branches)))
	out := "aout"
	g.addNode(out, fmt.Sprintf("amix=inputs=%d:duration=longest:dropout_transition=2:weights=\"%s\":normalize=0", len(branches), weights), branches...)
	return out, true
}

// compileTalkingHeadAudio is the spec §4.4.6 fallback for timelines that
// declare neither a voiceover nor audioTracks: it pulls the voice track
// straight out of each scene flagged isTalkingHead and concatenates
// those segments in scene order. Scenes not flagged contribute silence
// of the same duration so the concatenated track stays aligned with the
// video timeline built by compileTransitions. Returns ("", false) when
// no scene is flagged.
func compileTalkingHeadAudio(g *graph, tl *timeline.Timeline, paths map[string]string) (string, bool) {
	anyTalkingHead := false
	for _, scene := range tl.Scenes {
		if scene.IsTalkingHead {
			anyTalkingHead = true
			break
		}
	}
	if !anyTalkingHead {
		return "", false
	}

	segments := make([]string, len(tl.Scenes))
	for i, scene := range tl.Scenes {
		label := fmt.Sprintf("th%d", i)
		path, hasAsset := paths[scene.SourceKey()]
		if scene.IsTalkingHead && hasAsset {
			idx := g.addInput(path, false, false, false)
			chain := fmt.Sprintf("atrim=%g:%g,asetpts=PTS-STARTPTS", scene.InSec, scene.OutSec)
			if scene.NeedsFreezeFramePad() {
				chain += fmt.Sprintf(",apad=whole_dur=%g", scene.DurationSec)
			}
			g.addNode(label, chain, fmt.Sprintf("%d:a", idx))
		} else {
			g.addNode(label, fmt.Sprintf("aevalsrc=0:d=%g", scene.DurationSec))
		}
		segments[i] = label
	}

	out := "talkinghead_concat"
	g.addNode(out, fmt.Sprintf("concat=n=%d:v=0:a=1", len(segments)), segments...)
	return out, true
}

func nonZeroOr(v, fallback float64) float64 {
	if v <= 0 {
		return fallback
	}
	return v
}

// buildOutputArgs renders the final ffmpeg argument list (spec §4.4.7):
// codec selection, CRF-or-bitrate, AAC audio, faststart, duration cap.
func buildOutputArgs(g *graph, tl *timeline.Timeline, videoLabel, audioLabel string, hasAudio bool, duration float64) []string {
	args := []string{"-y"}
	args = append(args, g.inputArgs()...)
	args = append(args, "-filter_complex", g.filterComplex())
	args = append(args, "-map", fmt.Sprintf("[%s]", videoLabel))
	if hasAudio {
		args = append(args, "-map", fmt.Sprintf("[%s]", audioLabel))
	}

	codec := "libx264"
	if tl.Export.Codec == timeline.CodecH265 {
		codec = "libx265"
	}
	args = append(args, "-c:v", codec)
	if tl.Export.UsesCRF() {
		args = append(args, "-crf", fmt.Sprintf("%g", tl.Export.CRF))
	} else {
		args = append(args, "-b:v", fmt.Sprintf("%gM", tl.Export.BitrateMbps))
	}
	args = append(args, "-preset", "medium")

	if hasAudio {
		args = append(args, "-c:a", "aac", "-b:a", fmt.Sprintf("%dk", tl.Export.AudioKbps))
	}

	args = append(args,
		"-sn", "-dn",
		"-movflags", "+faststart",
		"-pix_fmt", "yuv420p",
		"-t", fmt.Sprintf("%g", duration),
	)

	return args
}
