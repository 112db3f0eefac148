package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/util"
)

// generateRenditionsRequest is the POST /generate-renditions body.
type generateRenditionsRequest struct {
	ClipID            string   `json:"clipId"`
	SourceURL         string   `json:"sourceUrl"`
	TargetResolutions []string `json:"targetResolutions"`
}

// GenerateRenditions kicks off a fire-and-forget transcode of a source
// clip into one clip_renditions row per requested resolution (spec §6).
// POST /generate-renditions
func (h *Handlers) GenerateRenditions(c *gin.Context) {
	var req generateRenditionsRequest
	if err := c.ShouldBindJSON(&req); err != nil ||
		req.ClipID == "" || req.SourceURL == "" || len(req.TargetResolutions) == 0 {
		util.RespondBadRequest(c, "clipId, sourceUrl, and targetResolutions are required")
		return
	}

	gen := h.kernel.RenditionGenerator()
	if gen == nil {
		util.RespondInternalError(c, "rendition generator not configured")
		return
	}

	go gen.Generate(context.Background(), req.ClipID, req.SourceURL, req.TargetResolutions)

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "clipId": req.ClipID})
}
