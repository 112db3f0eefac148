// Package timeline defines the strongly-typed video timeline document:
// the declarative description of scenes, audio tracks, overlays, and
// captions that the render worker compiles into a single encoded
// output. The document arrives over the wire as loosely typed JSON
// (projects.timeline_json); Parse and Validate convert it once, at
// ingress, into the closed algebraic types below so the rest of the
// pipeline — the compiler above all — operates on total types instead
// of re-checking shape at every step.
package timeline

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// SceneKind enumerates the two scene content types.
type SceneKind string

const (
	SceneKindVideo SceneKind = "video"
	SceneKindImage SceneKind = "image"
)

// CropMode enumerates the aspect-fit policies for scene video sources.
type CropMode string

const (
	CropModeCover   CropMode = "cover"
	CropModeContain CropMode = "contain"
	CropModeFill    CropMode = "fill"
)

// TransitionKind enumerates the allow-listed inter-scene transitions.
// Any other string is accepted by Validate (it is the compiler's job,
// not the type's, to degrade unknown transitions to concat) but these
// are the names the compiler recognizes.
type TransitionKind string

const (
	TransitionNone       TransitionKind = "none"
	TransitionFade       TransitionKind = "fade"
	TransitionFadeBlack  TransitionKind = "fadeblack"
	TransitionWipeLeft   TransitionKind = "wipeleft"
	TransitionWipeRight  TransitionKind = "wiperight"
	TransitionSlideLeft  TransitionKind = "slideleft"
	TransitionSlideRight TransitionKind = "slideright"
	TransitionDissolve   TransitionKind = "dissolve"
)

// KnownTransitions is the compiler's allow-list; anything absent from
// this set falls back to a plain concat per spec §4.4.3.
var KnownTransitions = map[TransitionKind]bool{
	TransitionFade:       true,
	TransitionFadeBlack:  true,
	TransitionWipeLeft:   true,
	TransitionWipeRight:  true,
	TransitionSlideLeft:  true,
	TransitionSlideRight: true,
	TransitionDissolve:   true,
}

// Codec enumerates the supported output video codecs.
type Codec string

const (
	CodecH264 Codec = "h264"
	CodecH265 Codec = "h265"
)

// BrandCorner enumerates logo placement corners.
type BrandCorner string

const (
	CornerTopLeft     BrandCorner = "top_left"
	CornerTopRight    BrandCorner = "top_right"
	CornerBottomLeft  BrandCorner = "bottom_left"
	CornerBottomRight BrandCorner = "bottom_right"
)

// TextOverlay is a timed piece of on-screen text, used both for a
// scene's embedded overlay and the timeline-level TextOverlay list.
type TextOverlay struct {
	Text     string  `json:"text"`
	Style    string  `json:"style,omitempty"`
	FontSize float64 `json:"fontSize,omitempty"`
	Color    string  `json:"color,omitempty"`
	StartSec float64 `json:"startSec"`
	Duration float64 `json:"durationSec"`
	XPercent float64 `json:"xPercent"`
	YPercent float64 `json:"yPercent"`
	Shadow   bool    `json:"shadow,omitempty"`
}

// Scene is one ordered entry in the timeline's visual track.
type Scene struct {
	ID            string         `json:"id"`
	AssetID       string         `json:"assetId,omitempty"`
	ClipURL       string         `json:"clipUrl,omitempty"`
	ClipID        string         `json:"clipId,omitempty"`
	Kind          SceneKind      `json:"kind"`
	InSec         float64        `json:"inSec"`
	OutSec        float64        `json:"outSec"`
	DurationSec   float64        `json:"durationSec"`
	CropMode      CropMode       `json:"cropMode"`
	TextOverlay   *TextOverlay   `json:"textOverlay,omitempty"`
	TransitionOut TransitionKind `json:"transitionOut,omitempty"`
	TransitionDur float64        `json:"transitionDurationSec,omitempty"`
	IsTalkingHead bool           `json:"isTalkingHead,omitempty"`
}

// HasAsset reports whether the scene references a local source (asset
// or public clip) as opposed to requiring a synthesized black frame.
func (s Scene) HasAsset() bool {
	return s.AssetID != "" || s.ClipURL != ""
}

// SourceKey returns the key this scene's source is addressed by in the
// Asset Fetcher's path map: the asset id when owned, else the clip id
// if present, else the clip URL itself.
func (s Scene) SourceKey() string {
	if s.AssetID != "" {
		return s.AssetID
	}
	if s.ClipID != "" {
		return s.ClipID
	}
	return s.ClipURL
}

// TrimDuration is outSec - inSec, the length of footage actually read
// from the source before any freeze-frame padding.
func (s Scene) TrimDuration() float64 {
	return s.OutSec - s.InSec
}

// NeedsFreezeFramePad reports whether DurationSec exceeds the trimmed
// source length by more than the 0.1s tolerance in spec §4.4.2.
func (s Scene) NeedsFreezeFramePad() bool {
	return s.DurationSec > s.TrimDuration()+0.1
}

// Music is the optional global background track.
type Music struct {
	AssetID string  `json:"assetId,omitempty"`
	URL     string  `json:"url,omitempty"`
	Volume  float64 `json:"volume"`
}

// Key returns the asset-fetcher lookup key for the music track: an
// explicit asset id when present, else the "music" sentinel per §4.3.
func (m Music) Key() string {
	if m.AssetID != "" {
		return m.AssetID
	}
	return "music"
}

// Voiceover is the optional synthesized narration track.
type Voiceover struct {
	AssetID         string  `json:"assetId"`
	Volume          float64 `json:"volume"`
	StartOffsetMsec float64 `json:"startOffsetMsec,omitempty"`
	DurationSec     float64 `json:"durationSec,omitempty"`
}

// AudioTrack is one continuous talking-head audio source with its own
// start offset, used when the voice comes from user video rather than
// a synthesized voiceover.
type AudioTrack struct {
	AssetID         string  `json:"assetId"`
	Volume          float64 `json:"volume"`
	StartOffsetMsec float64 `json:"startOffsetMsec"`
}

// SoundEffect is a one-shot audio cue placed at an absolute time.
type SoundEffect struct {
	AssetID   string  `json:"assetId"`
	AtTimeSec float64 `json:"atTimeSec"`
	Volume    float64 `json:"volume"`
}

// ImageOverlay is a timed picture-in-picture overlay, center-positioned
// by percentage of frame dimensions.
type ImageOverlay struct {
	AssetID  string  `json:"assetId"`
	StartSec float64 `json:"startSec"`
	Duration float64 `json:"durationSec"`
	XPercent float64 `json:"xPercent"`
	YPercent float64 `json:"yPercent"`
	Scale    float64 `json:"scale"`
	IsGIF    bool    `json:"isGIF,omitempty"`
}

// CaptionSegment is one burned-in or soft caption cue.
type CaptionSegment struct {
	Text     string  `json:"text"`
	StartSec float64 `json:"startSec"`
	EndSec   float64 `json:"endSec"`
}

// Duration is EndSec - StartSec.
func (c CaptionSegment) Duration() float64 {
	return c.EndSec - c.StartSec
}

// Captions is the optional subtitle track.
type Captions struct {
	Enabled  bool             `json:"enabled"`
	BurnIn   bool             `json:"burnIn"`
	Segments []CaptionSegment `json:"segments,omitempty"`
}

// Brand is the optional corner logo overlay.
type Brand struct {
	LogoAssetID string      `json:"logoAssetId,omitempty"`
	Corner      BrandCorner `json:"corner,omitempty"`
	WidthPixels int         `json:"widthPixels,omitempty"`
}

// Export holds the output encode settings.
type Export struct {
	Codec       Codec   `json:"codec"`
	BitrateMbps float64 `json:"bitrateMbps,omitempty"`
	CRF         float64 `json:"crf,omitempty"`
	AudioKbps   int     `json:"audioKbps"`
}

// UsesCRF reports whether CRF-based rate control was declared.
func (e Export) UsesCRF() bool {
	return e.CRF > 0
}

// Timeline is the full versioned document described by spec §3.
type Timeline struct {
	Version     int            `json:"version"`
	Width       int            `json:"width"`
	Height      int            `json:"height"`
	FPS         float64        `json:"fps"`
	Scenes      []Scene        `json:"scenes"`
	Music       *Music         `json:"music,omitempty"`
	Voiceover   *Voiceover     `json:"voiceover,omitempty"`
	AudioTracks []AudioTrack   `json:"audioTracks,omitempty"`
	SoundFX     []SoundEffect  `json:"soundEffects,omitempty"`
	ImageOvls   []ImageOverlay `json:"imageOverlays,omitempty"`
	TextOvls    []TextOverlay  `json:"textOverlays,omitempty"`
	Captions    *Captions      `json:"captions,omitempty"`
	Brand       *Brand         `json:"brand,omitempty"`
	Export      Export         `json:"export"`
}

// Value implements driver.Valuer so Timeline can be stored directly as
// a jsonb column (projects.timeline_json), mirroring the JSONB value
// type already used for error-log context.
func (t Timeline) Value() (driver.Value, error) {
	return json.Marshal(t)
}

// Scan implements sql.Scanner for the jsonb column.
func (t *Timeline) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("timeline: unsupported scan type %T", value)
	}
	return json.Unmarshal(bytes, t)
}

// Parse decodes a raw JSON timeline document. Unknown fields are
// ignored per spec §6 ("the compiler treats unknown fields as errors
// only if they affect required output").
func Parse(raw []byte) (*Timeline, error) {
	var t Timeline
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("timeline: invalid document: %w", err)
	}
	return &t, nil
}

// Validate checks the structural invariants spec §3 requires before
// the timeline reaches the compiler. It does not validate that
// referenced assets exist — that is the Asset Fetcher's job.
func (t *Timeline) Validate() error {
	if len(t.Scenes) == 0 {
		return fmt.Errorf("timeline: at least one scene is required")
	}
	if t.Width <= 0 || t.Height <= 0 {
		return fmt.Errorf("timeline: width and height must be positive")
	}
	if t.FPS <= 0 {
		return fmt.Errorf("timeline: fps must be positive")
	}

	for i, s := range t.Scenes {
		if s.OutSec < s.InSec {
			return fmt.Errorf("timeline: scene %d (%s): outSec must be >= inSec", i, s.ID)
		}
		if s.Kind != SceneKindVideo && s.Kind != SceneKindImage {
			return fmt.Errorf("timeline: scene %d (%s): invalid kind %q", i, s.ID, s.Kind)
		}
		if s.DurationSec <= 0 {
			return fmt.Errorf("timeline: scene %d (%s): durationSec must be positive", i, s.ID)
		}
		if s.CropMode == "" {
			t.Scenes[i].CropMode = CropModeCover
		}
	}

	if t.Voiceover != nil && len(t.AudioTracks) > 0 {
		return fmt.Errorf("timeline: voiceover and audioTracks are mutually exclusive")
	}

	switch t.Export.Codec {
	case CodecH264, CodecH265:
	case "":
		t.Export.Codec = CodecH264
	default:
		return fmt.Errorf("timeline: invalid export codec %q", t.Export.Codec)
	}

	if t.Export.AudioKbps <= 0 {
		t.Export.AudioKbps = 128
	}

	return nil
}

// TotalSceneDuration sums each scene's authored duration without
// accounting for cross-fade overlaps (the compiler's job, see
// internal/compile for the overlap-adjusted figure).
func (t *Timeline) TotalSceneDuration() float64 {
	var total float64
	for _, s := range t.Scenes {
		total += s.DurationSec
	}
	return total
}
