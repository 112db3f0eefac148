// Package kernel provides dependency injection management for the render
// worker. It consolidates the worker's services and provides type-safe
// access to dependencies via a Service Locator with lifecycle hooks.
package kernel

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/alerts"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/cache"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/logger"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/queue"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/rendition"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/storage"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Kernel holds all application dependencies and provides type-safe access.
type Kernel struct {
	db     *gorm.DB
	logger *zap.Logger
	cache  *cache.RedisClient

	s3         *storage.S3Uploader
	acquirer   *queue.Acquirer
	hub        *websocket.Hub
	renditions *rendition.Generator

	alertManager   *alerts.AlertManager
	alertEvaluator *alerts.Evaluator

	cleanupFuncs []func(context.Context) error
	mu           sync.RWMutex
}

// New creates a new empty kernel. Services should be registered using
// Set* methods.
func New() *Kernel {
	return &Kernel{
		cleanupFuncs: make([]func(context.Context) error, 0),
	}
}

func (c *Kernel) SetDB(db *gorm.DB) *Kernel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.db = db
	return c
}

func (c *Kernel) DB() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

func (c *Kernel) SetLogger(l *zap.Logger) *Kernel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = l
	return c
}

func (c *Kernel) Logger() *zap.Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.logger == nil {
		return logger.Log
	}
	return c.logger
}

func (c *Kernel) SetCache(client *cache.RedisClient) *Kernel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = client
	return c
}

func (c *Kernel) Cache() *cache.RedisClient {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cache
}

func (c *Kernel) SetS3Uploader(uploader *storage.S3Uploader) *Kernel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s3 = uploader
	return c
}

func (c *Kernel) S3() *storage.S3Uploader {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.s3
}

func (c *Kernel) SetAcquirer(a *queue.Acquirer) *Kernel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acquirer = a
	return c
}

func (c *Kernel) Acquirer() *queue.Acquirer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.acquirer
}

func (c *Kernel) SetWebSocketHub(hub *websocket.Hub) *Kernel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hub = hub
	return c
}

func (c *Kernel) WebSocketHub() *websocket.Hub {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hub
}

func (c *Kernel) SetRenditionGenerator(g *rendition.Generator) *Kernel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renditions = g
	return c
}

func (c *Kernel) RenditionGenerator() *rendition.Generator {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.renditions
}

func (c *Kernel) SetAlertManager(manager *alerts.AlertManager) *Kernel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alertManager = manager
	return c
}

func (c *Kernel) AlertManager() *alerts.AlertManager {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.alertManager
}

func (c *Kernel) SetAlertEvaluator(evaluator *alerts.Evaluator) *Kernel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alertEvaluator = evaluator
	return c
}

func (c *Kernel) AlertEvaluator() *alerts.Evaluator {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.alertEvaluator
}

// OnCleanup registers a cleanup function to be called during shutdown.
// Cleanup functions run in LIFO order so dependents tear down before
// the dependencies they used.
func (c *Kernel) OnCleanup(fn func(context.Context) error) *Kernel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
	return c
}

// Cleanup performs graceful shutdown of all registered services.
func (c *Kernel) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := len(c.cleanupFuncs) - 1; i >= 0; i-- {
		if err := c.cleanupFuncs[i](ctx); err != nil {
			c.Logger().Error("cleanup function failed", zap.Int("index", i), zap.Error(err))
		}
	}
	return nil
}

// InitializationError reports which required dependencies a Kernel was
// missing when Validate was called.
type InitializationError struct {
	Message string
	Missing []string
}

func NewInitializationError(message string, missing []string) *InitializationError {
	return &InitializationError{Message: message, Missing: missing}
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Missing, ", "))
}

// Validate checks that all required dependencies are registered. It
// should be called after initialization and before starting the worker.
func (c *Kernel) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var missing []string
	if c.db == nil {
		missing = append(missing, "database (DB)")
	}
	if c.s3 == nil {
		missing = append(missing, "S3 uploader")
	}
	if c.acquirer == nil {
		missing = append(missing, "job acquirer")
	}

	if len(missing) > 0 {
		return NewInitializationError("missing required dependencies", missing)
	}
	return nil
}

func (c *Kernel) WithDB(db *gorm.DB) *Kernel                      { return c.SetDB(db) }
func (c *Kernel) WithLogger(l *zap.Logger) *Kernel                { return c.SetLogger(l) }
func (c *Kernel) WithCache(client *cache.RedisClient) *Kernel     { return c.SetCache(client) }
func (c *Kernel) WithS3Uploader(u *storage.S3Uploader) *Kernel    { return c.SetS3Uploader(u) }
func (c *Kernel) WithAcquirer(a *queue.Acquirer) *Kernel          { return c.SetAcquirer(a) }
func (c *Kernel) WithWebSocketHub(hub *websocket.Hub) *Kernel     { return c.SetWebSocketHub(hub) }
func (c *Kernel) WithRenditionGenerator(g *rendition.Generator) *Kernel {
	return c.SetRenditionGenerator(g)
}
func (c *Kernel) WithAlertManager(m *alerts.AlertManager) *Kernel { return c.SetAlertManager(m) }
func (c *Kernel) WithAlertEvaluator(e *alerts.Evaluator) *Kernel  { return c.SetAlertEvaluator(e) }
