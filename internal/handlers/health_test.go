package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/kernel"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth_WithoutAcquirerReportsIdle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	k := kernel.New()
	h := NewHandlers(k)

	router := gin.New()
	router.GET("/health", h.Health)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","queueConnected":false,"busy":false}`, w.Body.String())
}

func TestHealth_ReflectsAcquirerState(t *testing.T) {
	gin.SetMode(gin.TestMode)

	acquirer := queue.New(nil, nil)
	k := kernel.New().WithAcquirer(acquirer)
	h := NewHandlers(k)

	router := gin.New()
	router.GET("/health", h.Health)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","queueConnected":false,"busy":false}`, w.Body.String())
}
