package websocket

import (
	"net/http"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/logger"
	"go.uber.org/zap"
)

// Handler upgrades HTTP requests into job-progress subscriptions.
type Handler struct {
	hub *Hub
}

// NewHandler creates a Handler bound to hub.
func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// Subscribe upgrades the connection and streams progress updates for
// the job id named by the ":jobId" route parameter until the client
// disconnects or the job reaches 100%.
func (h *Handler) Subscribe(c *gin.Context) {
	jobID := c.Param("jobId")
	if jobID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "job id is required"})
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		logger.Log.Warn("websocket upgrade failed", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	defer conn.CloseNow()

	client := NewClient(h.hub, conn, jobID)
	client.Serve(c.Request.Context())
}
