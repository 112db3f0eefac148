package models

import (
	"time"
)

// RenderJobState is the state machine described in spec §3: a job
// advances monotonically queued -> running -> {finished, failed} and
// never leaves a terminal state.
type RenderJobState string

const (
	RenderJobQueued   RenderJobState = "queued"
	RenderJobRunning  RenderJobState = "running"
	RenderJobFinished RenderJobState = "finished"
	RenderJobFailed   RenderJobState = "failed"
)

// IsTerminal reports whether the state is one the job cannot leave.
func (s RenderJobState) IsTerminal() bool {
	return s == RenderJobFinished || s == RenderJobFailed
}

// RenderJob is one render run of a Project's timeline. See spec §3 for
// the invariants this type enforces only at the database layer — the
// Controller is responsible for writing states in a legal order.
type RenderJob struct {
	ID          string         `gorm:"primaryKey" json:"id"`
	ProjectID   string         `gorm:"index:,type:btree;not null" json:"project_id"`
	State       RenderJobState `gorm:"index:,type:btree;not null" json:"state"`
	Progress    int            `json:"progress"`
	Logs        string         `gorm:"type:text" json:"logs"`
	OutputURL   *string        `json:"output_url,omitempty"`
	ThumbURL    *string        `json:"thumbnail_url,omitempty"`
	DurationSec *float64       `json:"duration_sec,omitempty"`
	ByteSize    *int64         `json:"byte_size,omitempty"`
	Error       *string        `gorm:"type:text" json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// TableName specifies the table name for RenderJob.
func (RenderJob) TableName() string {
	return "render_jobs"
}

// AppendLog appends a timestamped line to the job's append-only log.
func (j *RenderJob) AppendLog(line string) {
	stamped := time.Now().UTC().Format(time.RFC3339) + " " + line + "\n"
	j.Logs += stamped
}

// CanTransitionTo reports whether moving from the job's current state
// to next is legal under the monotonic state-machine invariant.
func (j *RenderJob) CanTransitionTo(next RenderJobState) bool {
	if j.State.IsTerminal() {
		return false
	}
	switch j.State {
	case RenderJobQueued:
		return next == RenderJobRunning || next == RenderJobFailed
	case RenderJobRunning:
		return next == RenderJobFinished || next == RenderJobFailed
	default:
		return false
	}
}
