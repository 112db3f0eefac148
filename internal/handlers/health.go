package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health reports the worker's liveness and queue connectivity.
// GET /health
func (h *Handlers) Health(c *gin.Context) {
	acquirer := h.kernel.Acquirer()

	queueConnected := false
	busy := false
	if acquirer != nil {
		queueConnected = acquirer.QueueConnected()
		busy = acquirer.Busy()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"queueConnected": queueConnected,
		"busy":           busy,
	})
}
