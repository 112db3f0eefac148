package alerts

import (
	"fmt"
	"sync"
	"time"
)

// JobOutcomeTracker accumulates render job outcomes since the last
// evaluation so the Evaluator can compute a failure rate without
// querying Prometheus (which is a write-only sink from this process's
// point of view).
type JobOutcomeTracker struct {
	mu        sync.Mutex
	succeeded int64
	failed    int64
}

// NewJobOutcomeTracker creates an empty tracker.
func NewJobOutcomeTracker() *JobOutcomeTracker {
	return &JobOutcomeTracker{}
}

// RecordSuccess registers one finished render job.
func (t *JobOutcomeTracker) RecordSuccess() {
	t.mu.Lock()
	t.succeeded++
	t.mu.Unlock()
}

// RecordFailure registers one failed render job.
func (t *JobOutcomeTracker) RecordFailure() {
	t.mu.Lock()
	t.failed++
	t.mu.Unlock()
}

// snapshotAndReset returns the counts accumulated since the last call
// and zeroes them, so each evaluation window is independent.
func (t *JobOutcomeTracker) snapshotAndReset() (succeeded, failed int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	succeeded, failed = t.succeeded, t.failed
	t.succeeded, t.failed = 0, 0
	return
}

// Evaluator evaluates alert rules against the job outcome tracker.
type Evaluator struct {
	manager *AlertManager
	tracker *JobOutcomeTracker
	mu      sync.RWMutex
}

// NewEvaluator creates an alert evaluator bound to tracker.
func NewEvaluator(manager *AlertManager, tracker *JobOutcomeTracker) *Evaluator {
	return &Evaluator{
		manager: manager,
		tracker: tracker,
	}
}

// EvaluateRules checks all enabled rules against the current window's
// job outcomes.
func (e *Evaluator) EvaluateRules() {
	e.mu.Lock()
	rules := e.manager.GetAllRules()
	e.mu.Unlock()

	succeeded, failed := e.tracker.snapshotAndReset()
	total := succeeded + failed

	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}

		if rule.LastTriggered != nil {
			if time.Since(*rule.LastTriggered).Seconds() < float64(rule.CooldownSec) {
				continue
			}
		}

		triggered, details := e.evaluateRule(rule, total, failed)
		if !triggered {
			continue
		}

		e.manager.TriggerAlert(
			rule.Type,
			rule.Level,
			fmt.Sprintf("[%s] %s", rule.Name, rule.Condition),
			details,
			rule.ID,
		)
		now := time.Now()
		rule.LastTriggered = &now
	}
}

func (e *Evaluator) evaluateRule(rule *AlertRule, total, failed int64) (bool, map[string]interface{}) {
	details := make(map[string]interface{})

	switch rule.Type {
	case AlertTypeHighJobFailureRate:
		if total == 0 {
			return false, details
		}
		failureRate := float64(failed) / float64(total) * 100
		if failureRate >= rule.Threshold {
			details["failed"] = failed
			details["total"] = total
			details["current_failure_rate"] = failureRate
			details["threshold"] = rule.Threshold
			return true, details
		}
	}

	return false, details
}

// InitializeDefaultRules sets up the default render-worker alert rules.
func (e *Evaluator) InitializeDefaultRules() {
	e.manager.AddRule(&AlertRule{
		Name:        "High Job Failure Rate",
		Type:        AlertTypeHighJobFailureRate,
		Enabled:     true,
		Level:       AlertLevelCritical,
		Condition:   "Render job failure rate >= 25% over the evaluation window",
		Threshold:   25.0,
		Duration:    5 * time.Minute,
		CooldownSec: 300,
	})
}

// StartEvaluationLoop starts periodic evaluation of rules, returning a
// channel that stops the loop when closed.
func (e *Evaluator) StartEvaluationLoop(interval time.Duration) chan struct{} {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				e.EvaluateRules()
			case <-stop:
				return
			}
		}
	}()
	return stop
}
