package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/controller"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRenderer struct {
	calls   int32
	mu      sync.Mutex
	unblock chan struct{}
}

func (r *stubRenderer) Render(ctx context.Context, jobID, projectID string, onProgress controller.ProgressFunc) error {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.unblock != nil {
		<-r.unblock
	}
	return nil
}

func (r *stubRenderer) callCount() int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestAcquirer_TryAcquireIsExclusive(t *testing.T) {
	a := New(nil, &stubRenderer{})

	require.True(t, a.TryAcquire())
	assert.False(t, a.TryAcquire(), "a second TryAcquire must fail while the first is held")
	assert.True(t, a.Busy())

	a.Release()
	assert.False(t, a.Busy())
	assert.True(t, a.TryAcquire(), "TryAcquire must succeed again after Release")
}

func TestAcquirer_TryRunRejectsSecondSubmissionWhileBusy(t *testing.T) {
	unblock := make(chan struct{})
	t.Cleanup(func() { close(unblock) })
	renderer := &stubRenderer{unblock: unblock}
	a := New(nil, renderer)

	require.True(t, a.TryRun("job-1", "proj-1", "direct"))
	assert.False(t, a.TryRun("job-2", "proj-2", "direct"), "a second TryRun must be rejected while the first job is in flight")
}

func TestAcquirer_RunJobReleasesOnCompletion(t *testing.T) {
	renderer := &stubRenderer{}
	a := New(nil, renderer)

	require.True(t, a.TryRun("job-1", "proj-1", "direct"))

	require.Eventually(t, func() bool {
		return renderer.callCount() == 1
	}, time.Second, time.Millisecond)

	require.Eventually(t, func() bool {
		return !a.Busy()
	}, time.Second, time.Millisecond, "busy flag must clear once the job completes")
}

func TestAcquirer_QueueConnectedDefaultsFalseWithoutRedis(t *testing.T) {
	a := New(nil, &stubRenderer{})
	assert.False(t, a.QueueConnected())
}

func TestAcquirer_RunWithoutRedisOnlyStartsPoller(t *testing.T) {
	a := New(nil, &stubRenderer{})
	a.SetPollInterval(5 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		a.Run()
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	a.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
}
