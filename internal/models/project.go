package models

import (
	"time"

	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/timeline"
)

// AspectMode describes how a project's declared resolution relates to
// its rendered frame — carried through from authoring, not interpreted
// by the core (the Timeline's own width/height/fps drive compilation).
type AspectMode string

const (
	AspectModePortrait  AspectMode = "portrait"
	AspectModeLandscape AspectMode = "landscape"
	AspectModeSquare    AspectMode = "square"
)

// ProjectStatus mirrors the latest RenderJob's terminal state, or
// "draft" before any render has been attempted.
type ProjectStatus string

const (
	ProjectStatusDraft    ProjectStatus = "draft"
	ProjectStatusRunning  ProjectStatus = "running"
	ProjectStatusFinished ProjectStatus = "finished"
	ProjectStatusFailed   ProjectStatus = "failed"
)

// Project is the authored unit the render worker turns into a video.
// Its Timeline field is the versioned document defined in package
// timeline; the web application and AI script/voiceover generation
// (out of scope per spec §1) are responsible for populating it.
type Project struct {
	ID         string             `gorm:"primaryKey" json:"id"`
	Title      string             `json:"title"`
	Width      int                `json:"width"`
	Height     int                `json:"height"`
	FPS        float64            `json:"fps"`
	AspectMode AspectMode         `json:"aspect_mode"`
	Timeline   timeline.Timeline  `gorm:"type:jsonb;column:timeline_json" json:"timeline"`
	Status     ProjectStatus      `gorm:"index:,type:btree" json:"status"`
	OutputURL  *string            `json:"output_url,omitempty"`
	ThumbURL   *string            `json:"thumbnail_url,omitempty"`
	DurationSec *float64          `json:"duration_sec,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// TableName specifies the table name for Project.
func (Project) TableName() string {
	return "projects"
}
