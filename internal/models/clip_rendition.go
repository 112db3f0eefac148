package models

import "time"

// ClipRendition is a transcoded lower-resolution derivative of a
// source clip, stored under a predictable key for fast selection at
// compose time (see Glossary: Rendition). Per the Open Question
// decision recorded in DESIGN.md, /generate-renditions writes these
// rows directly rather than reusing RenderJob — a rendition fan-out
// produces N outputs per request, not one.
type ClipRendition struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	ClipID     string    `gorm:"index:,type:btree;not null" json:"clip_id"`
	SourceURL  string    `json:"source_url"`
	Resolution string    `gorm:"index:,type:btree;not null" json:"resolution"`
	URL        *string   `json:"url,omitempty"`
	ObjectKey  *string   `json:"object_key,omitempty"`
	Error      *string   `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for ClipRendition.
func (ClipRendition) TableName() string {
	return "clip_renditions"
}

// Done reports whether the rendition has completed (successfully or
// with an error recorded).
func (c ClipRendition) Done() bool {
	return c.URL != nil || c.Error != nil
}
