package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/kernel"
	"github.com/stretchr/testify/require"
)

func TestGenerateRenditions_MissingFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandlers(kernel.New())

	router := gin.New()
	router.POST("/generate-renditions", h.GenerateRenditions)

	w := postJSON(t, router, "/generate-renditions", map[string]interface{}{"clipId": "clip-1"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateRenditions_GeneratorNotConfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandlers(kernel.New())

	router := gin.New()
	router.POST("/generate-renditions", h.GenerateRenditions)

	w := postJSON(t, router, "/generate-renditions", generateRenditionsRequest{
		ClipID:            "clip-1",
		SourceURL:         "https://example.com/clip.mp4",
		TargetResolutions: []string{"480p", "720p"},
	})
	require.Equal(t, http.StatusInternalServerError, w.Code)
}
