package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newSecretRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequireSharedSecret(secret))
	router.POST("/render", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func TestRequireSharedSecret_EmptySecretDisablesCheck(t *testing.T) {
	router := newSecretRouter("")

	req := httptest.NewRequest("POST", "/render", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireSharedSecret_MissingHeader(t *testing.T) {
	router := newSecretRouter("top-secret")

	req := httptest.NewRequest("POST", "/render", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireSharedSecret_WrongToken(t *testing.T) {
	router := newSecretRouter("top-secret")

	req := httptest.NewRequest("POST", "/render", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireSharedSecret_CorrectToken(t *testing.T) {
	router := newSecretRouter("top-secret")

	req := httptest.NewRequest("POST", "/render", nil)
	req.Header.Set("Authorization", "Bearer top-secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireSharedSecret_NonBearerScheme(t *testing.T) {
	router := newSecretRouter("top-secret")

	req := httptest.NewRequest("POST", "/render", nil)
	req.Header.Set("Authorization", "Basic dG9wLXNlY3JldA==")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
