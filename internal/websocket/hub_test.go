package websocket

import (
	"os"
	"testing"
	"time"

	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	_ = logger.Initialize("error", "")
	os.Exit(m.Run())
}

func TestNewHub(t *testing.T) {
	hub := NewHub()
	assert.NotNil(t, hub.clients)
	assert.NotNil(t, hub.register)
	assert.NotNil(t, hub.unregister)
	assert.NotNil(t, hub.broadcast)
	assert.NotNil(t, hub.metrics)
}

func TestHubDeliversToSubscribedJobOnly(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	subscribed := &Client{hub: hub, jobID: "job-a", send: make(chan ProgressUpdate, 4)}
	other := &Client{hub: hub, jobID: "job-b", send: make(chan ProgressUpdate, 4)}

	hub.register <- subscribed
	hub.register <- other
	time.Sleep(10 * time.Millisecond)

	hub.Publish(ProgressUpdate{JobID: "job-a", Percent: 42, Message: "compiling"})

	select {
	case update := <-subscribed.send:
		assert.Equal(t, 42, update.Percent)
	case <-time.After(time.Second):
		t.Fatal("expected subscribed client to receive the update")
	}

	select {
	case update := <-other.send:
		t.Fatalf("unexpected update delivered to unrelated subscriber: %+v", update)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubUnregisterClosesSendChannel(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	c := &Client{hub: hub, jobID: "job-x", send: make(chan ProgressUpdate, 1)}
	hub.register <- c
	time.Sleep(10 * time.Millisecond)
	hub.unregister <- c
	time.Sleep(10 * time.Millisecond)

	_, ok := <-c.send
	assert.False(t, ok, "send channel should be closed after unregister")
}
