package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/controller"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/kernel"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/models"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/queue"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.RenderJob{}, &models.ClipRendition{}))
	return db
}

func postJSON(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRender_MissingFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	k := kernel.New().WithDB(db).WithAcquirer(queue.New(nil, nil))
	h := NewHandlers(k)

	router := gin.New()
	router.POST("/render", h.Render)

	w := postJSON(t, router, "/render", map[string]string{"jobId": "only-job"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRender_JobNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	k := kernel.New().WithDB(db).WithAcquirer(queue.New(nil, nil))
	h := NewHandlers(k)

	router := gin.New()
	router.POST("/render", h.Render)

	w := postJSON(t, router, "/render", renderRequest{JobID: "missing", ProjectID: "proj-1"})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRender_AlreadyTerminalJobRejected(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	job := &models.RenderJob{ID: "job-1", ProjectID: "proj-1", State: models.RenderJobFinished}
	require.NoError(t, db.Create(job).Error)

	k := kernel.New().WithDB(db).WithAcquirer(queue.New(nil, nil))
	h := NewHandlers(k)

	router := gin.New()
	router.POST("/render", h.Render)

	w := postJSON(t, router, "/render", renderRequest{JobID: "job-1", ProjectID: "proj-1"})
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestRender_QueuedJobAccepted(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	job := &models.RenderJob{ID: "job-2", ProjectID: "proj-2", State: models.RenderJobQueued}
	require.NoError(t, db.Create(job).Error)

	acquirer := queue.New(nil, noopRenderer{})
	k := kernel.New().WithDB(db).WithAcquirer(acquirer)
	h := NewHandlers(k)

	router := gin.New()
	router.POST("/render", h.Render)

	w := postJSON(t, router, "/render", renderRequest{JobID: "job-2", ProjectID: "proj-2"})
	require.Equal(t, http.StatusAccepted, w.Code)

	var reloaded models.RenderJob
	require.NoError(t, db.First(&reloaded, "id = ?", "job-2").Error)
	require.Equal(t, models.RenderJobRunning, reloaded.State)
}

func TestRender_SecondConcurrentSubmissionRejected(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	for _, id := range []string{"job-a", "job-b"} {
		require.NoError(t, db.Create(&models.RenderJob{ID: id, ProjectID: id, State: models.RenderJobQueued}).Error)
	}

	unblock := make(chan struct{})
	t.Cleanup(func() { close(unblock) })
	acquirer := queue.New(nil, blockingRenderer{unblock: unblock})
	k := kernel.New().WithDB(db).WithAcquirer(acquirer)
	h := NewHandlers(k)

	router := gin.New()
	router.POST("/render", h.Render)

	w1 := postJSON(t, router, "/render", renderRequest{JobID: "job-a", ProjectID: "job-a"})
	require.Equal(t, http.StatusAccepted, w1.Code)

	w2 := postJSON(t, router, "/render", renderRequest{JobID: "job-b", ProjectID: "job-b"})
	require.Equal(t, http.StatusConflict, w2.Code)
}

type noopRenderer struct{}

func (noopRenderer) Render(ctx context.Context, jobID, projectID string, onProgress controller.ProgressFunc) error {
	return nil
}

// blockingRenderer simulates a render that never completes during the
// test, so the Acquirer's busy flag stays held and a second TryRun
// call is guaranteed to observe it.
type blockingRenderer struct {
	unblock chan struct{}
}

func (r blockingRenderer) Render(ctx context.Context, jobID, projectID string, onProgress controller.ProgressFunc) error {
	<-r.unblock
	return nil
}
