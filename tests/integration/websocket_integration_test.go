package integration

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ws "github.com/scaleupwith-ai/ai-videographer-sub000/internal/websocket"
)

// TestWebSocketHubLifecycle exercises the progress-broadcast hub's
// lifecycle: a fresh hub has sent no messages, and Run, Publish for a
// job with no subscribers, and Stop complete without blocking.
func TestWebSocketHubLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	hub := ws.NewHub()
	require.NotNil(t, hub)
	assert.Equal(t, int64(0), hub.Metrics().MessagesSent.Load())

	go hub.Run()
	defer hub.Stop()

	time.Sleep(10 * time.Millisecond)
	hub.Publish(ws.ProgressUpdate{JobID: "job-without-subscribers", Percent: 10, Message: "encoding"})
}

// TestProgressUpdateMarshaling verifies the wire format the worker
// broadcasts on GET /ws/jobs/:jobId.
func TestProgressUpdateMarshaling(t *testing.T) {
	update := ws.ProgressUpdate{
		JobID:   "job-123",
		Percent: 67,
		Message: "transcoding scene 3 of 5",
	}

	data, err := json.Marshal(update)
	require.NoError(t, err)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, "job-123", parsed["job_id"])
	assert.Equal(t, float64(67), parsed["percent"])
	assert.Equal(t, "transcoding scene 3 of 5", parsed["message"])
}
