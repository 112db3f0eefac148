// Package queue hands render jobs to the Job Controller — the Job
// Acquirer (spec §4.1). It runs two acquisition channels concurrently
// (a Redis work queue and a database poller) under a single process-wide
// busy flag, the same worker-pool/context-cancellation idiom the rest of
// this codebase uses for background processing, narrowed here to at
// most one job in flight.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/cache"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/controller"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/database"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/logger"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/models"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// QueueName is the Redis list the Acquirer consumes render jobs from.
const QueueName = "render:jobs"

// defaultPollInterval is how often the database poller scans for
// queued jobs when the bus channel is not healthy (spec §4.1).
const defaultPollInterval = 30 * time.Second

// busPollInterval is how often the queue channel checks the Redis list
// for new work; go-redis/v9's RPop is non-blocking in this codebase's
// client wrapper, so the channel is driven by a short poll rather than
// a BRPOP subscription.
const busPollInterval = 1 * time.Second

// QueueMessage is the JSON payload pushed onto QueueName.
type QueueMessage struct {
	JobID     string `json:"job_id"`
	ProjectID string `json:"project_id"`
}

// Renderer is the subset of *controller.Controller the Acquirer drives.
type Renderer interface {
	Render(ctx context.Context, jobID, projectID string, onProgress controller.ProgressFunc) error
}

// Acquirer enforces at-most-one job in flight per process, per spec
// §4.1, across three entry points: the Redis queue channel, the
// database poller, and the direct-invocation HTTP surface (§6).
type Acquirer struct {
	redis        *cache.RedisClient
	controller   Renderer
	pollInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.Mutex
	busy bool

	busHealthy atomic.Bool

	hub *websocket.Hub
}

// New creates an Acquirer. redis may be nil, in which case the queue
// channel is disabled and the poller carries the workload exclusively
// (spec §4.1 graceful degradation).
func New(redis *cache.RedisClient, controller Renderer) *Acquirer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Acquirer{
		redis:        redis,
		controller:   controller,
		pollInterval: defaultPollInterval,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// SetPollInterval overrides the default database-poller interval
// (spec §4.1, env POLL_INTERVAL_MS). Must be called before Run.
func (a *Acquirer) SetPollInterval(d time.Duration) {
	if d > 0 {
		a.pollInterval = d
	}
}

// SetHub wires a progress-broadcast hub (spec §6's supplemented
// WebSocket channel). Each job's progress checkpoints are published to
// it in addition to being persisted on the RenderJob row.
func (a *Acquirer) SetHub(hub *websocket.Hub) {
	a.hub = hub
}

// Run starts both acquisition channels and blocks until Stop is called.
func (a *Acquirer) Run() {
	if a.redis != nil {
		a.wg.Add(1)
		go a.runQueueChannel()
	}
	a.wg.Add(1)
	go a.runPoller()
	a.wg.Wait()
}

// Stop signals both channels to exit and waits for them to return.
func (a *Acquirer) Stop() {
	a.cancel()
	a.wg.Wait()
}

// TryAcquire claims the busy flag for the direct-invocation HTTP
// surface (spec §4.1, §6). It returns false if a job is already in
// flight; the caller should respond 409/503 rather than block.
func (a *Acquirer) TryAcquire() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.busy {
		return false
	}
	a.busy = true
	return true
}

// Release clears the busy flag. Callers of TryAcquire must defer it.
func (a *Acquirer) Release() {
	a.mu.Lock()
	a.busy = false
	a.mu.Unlock()
}

// Busy reports whether a job is currently in flight, without acquiring
// it. Used by GET /health (spec §6).
func (a *Acquirer) Busy() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.busy
}

// QueueConnected reports whether the Redis queue channel last saw a
// healthy bus. Used by GET /health (spec §6).
func (a *Acquirer) QueueConnected() bool {
	return a.busHealthy.Load()
}

// TryRun claims the busy flag and, if successful, starts the job in a
// new goroutine, returning immediately. It backs the direct-invocation
// HTTP surface (POST /render, spec §6), which must respond 202 without
// waiting for the render to finish and must reject a second submission
// while one is already in flight.
func (a *Acquirer) TryRun(jobID, projectID, source string) bool {
	if !a.TryAcquire() {
		return false
	}
	go a.runJob(jobID, projectID, source)
	return true
}

// runQueueChannel pops jobs off the Redis list. When the bus looks
// unreachable, it backs off and lets the poller take over; it keeps
// checking so it can resume primary responsibility once the bus
// recovers (spec §4.1: "a reconnected bus resumes primary responsibility").
func (a *Acquirer) runQueueChannel() {
	defer a.wg.Done()
	ticker := time.NewTicker(busPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			if err := a.redis.Ping(a.ctx); err != nil {
				a.busHealthy.Store(false)
				continue
			}
			a.busHealthy.Store(true)

			if !a.TryAcquire() {
				continue
			}
			msg, err := a.claimFromQueue()
			if err != nil {
				logger.Log.Warn("render queue pop failed", zap.Error(err))
				a.Release()
				continue
			}
			if msg == nil {
				a.Release()
				continue
			}
			a.runJob(msg.JobID, msg.ProjectID, "queue")
		}
	}
}

// claimFromQueue pops and decodes one message, or returns (nil, nil)
// when the queue is empty.
func (a *Acquirer) claimFromQueue() (*QueueMessage, error) {
	raw, err := a.redis.RPop(a.ctx, QueueName)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	var msg QueueMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return nil, fmt.Errorf("decoding queue message: %w", err)
	}
	return &msg, nil
}

// runPoller scans for the oldest queued RenderJob every pollInterval,
// but only while the bus channel is unhealthy (spec §4.1: "the poller
// only runs when the queue channel is not connected/healthy").
func (a *Acquirer) runPoller() {
	defer a.wg.Done()
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			if a.busHealthy.Load() {
				continue
			}
			if !a.TryAcquire() {
				continue
			}
			msg, err := a.claimFromDatabase()
			if err != nil {
				logger.Log.Warn("render job poll failed", zap.Error(err))
				a.Release()
				continue
			}
			if msg == nil {
				a.Release()
				continue
			}
			a.runJob(msg.JobID, msg.ProjectID, "poller")
		}
	}
}

// claimFromDatabase atomically selects the oldest queued RenderJob and
// transitions it to running, per spec §4.1 and spec.md §5: the
// queued → running transition is a conditional update (compare-and-swap
// on state), not a blind Save, so two workers racing on the same row
// can't both win the claim. It returns (nil, nil) when no job is queued
// or the row was claimed by another worker between the select and the
// update.
func (a *Acquirer) claimFromDatabase() (*QueueMessage, error) {
	if database.DB == nil {
		return nil, nil
	}
	var job models.RenderJob
	var claimed bool
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("state = ?", models.RenderJobQueued).
			Order("created_at ASC").
			Limit(1).
			First(&job).Error; err != nil {
			return err
		}
		job.AppendLog("claimed by poller")
		result := tx.Model(&models.RenderJob{}).
			Where("id = ? AND state = ?", job.ID, models.RenderJobQueued).
			Updates(map[string]interface{}{
				"state": models.RenderJobRunning,
				"logs":  job.Logs,
			})
		if result.Error != nil {
			return result.Error
		}
		claimed = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !claimed {
		return nil, nil
	}
	return &QueueMessage{JobID: job.ID, ProjectID: job.ProjectID}, nil
}

func (a *Acquirer) runJob(jobID, projectID, source string) {
	defer a.Release()
	logger.Log.Info("render job claimed", zap.String("job_id", jobID), zap.String("project_id", projectID), zap.String("source", source))

	ctx, cancel := context.WithTimeout(a.ctx, 2*time.Hour)
	defer cancel()

	var onProgress controller.ProgressFunc
	if a.hub != nil {
		onProgress = func(percent int, message string) {
			a.hub.Publish(websocket.ProgressUpdate{JobID: jobID, Percent: percent, Message: message})
		}
	}

	if err := a.controller.Render(ctx, jobID, projectID, onProgress); err != nil {
		// Render never returns a non-nil error on a normal failure path
		// (it always records `failed` on the job itself); this branch
		// only fires on a programming error in the Controller, which
		// must not propagate past the Acquirer (spec §4.1).
		logger.Log.Error("render job controller returned an error", zap.String("job_id", jobID), zap.Error(err))
	}
}
