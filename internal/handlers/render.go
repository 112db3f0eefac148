package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/scaleupwith-ai/ai-videographer-sub000/internal/errors"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/models"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/util"
	"gorm.io/gorm"
)

// renderRequest is the POST /render body.
type renderRequest struct {
	JobID     string `json:"jobId"`
	ProjectID string `json:"projectId"`
}

// Render accepts a direct render invocation, bypassing both the Redis
// queue and the database poller (spec §4.1, §6). It enforces the same
// single-job-in-flight invariant as the other two acquisition paths by
// going through the shared Acquirer busy flag.
// POST /render
func (h *Handlers) Render(c *gin.Context) {
	var req renderRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.JobID == "" || req.ProjectID == "" {
		util.RespondBadRequest(c, "jobId and projectId are required")
		return
	}

	db := h.kernel.DB()
	var job models.RenderJob
	if err := db.First(&job, "id = ? AND project_id = ?", req.JobID, req.ProjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.RespondWithAPIError(c, apierrors.JobNotFound(req.JobID))
			return
		}
		util.RespondInternalError(c, "loading render job")
		return
	}
	if job.State.IsTerminal() {
		util.RespondWithAPIError(c, apierrors.JobAlreadyTerminal(req.JobID))
		return
	}

	acquirer := h.kernel.Acquirer()
	if acquirer == nil {
		util.RespondInternalError(c, "job acquirer not configured")
		return
	}

	if job.State == models.RenderJobQueued {
		job.State = models.RenderJobRunning
		job.AppendLog("claimed via direct invocation")
		if err := db.Save(&job).Error; err != nil {
			util.RespondInternalError(c, "updating render job")
			return
		}
	}

	if !acquirer.TryRun(req.JobID, req.ProjectID, "http") {
		c.JSON(http.StatusConflict, gin.H{"error": "a render is already in progress"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "jobId": req.JobID})
}
