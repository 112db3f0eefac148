package kernel

import (
	"context"

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

// MockKernel is a kernel designed for testing. It allows easy overriding
// of dependencies with test doubles.
type MockKernel struct {
	*Kernel
	overrides map[string]interface{}
}

// NewMock creates a new mock kernel with no dependencies registered.
func NewMock() *MockKernel {
	return &MockKernel{
		Kernel:    New(),
		overrides: make(map[string]interface{}),
	}
}

func (m *MockKernel) WithMockDB(db *gorm.DB) *MockKernel {
	m.SetDB(db)
	return m
}

func (m *MockKernel) WithMockLogger(l *zap.Logger) *MockKernel {
	m.SetLogger(l)
	return m
}

func (m *MockKernel) WithMockCache(c *cache.RedisClient) *MockKernel {
	m.SetCache(c)
	return m
}

func (m *MockKernel) WithMockS3Uploader(uploader *storage.S3Uploader) *MockKernel {
	m.SetS3Uploader(uploader)
	return m
}

func (m *MockKernel) WithMockAcquirer(a *queue.Acquirer) *MockKernel {
	m.SetAcquirer(a)
	return m
}

func (m *MockKernel) WithMockWebSocketHub(hub *websocket.Hub) *MockKernel {
	m.SetWebSocketHub(hub)
	return m
}

func (m *MockKernel) WithMockRenditionGenerator(g *rendition.Generator) *MockKernel {
	m.SetRenditionGenerator(g)
	return m
}

func (m *MockKernel) WithMockAlertManager(manager *alerts.AlertManager) *MockKernel {
	m.SetAlertManager(manager)
	return m
}

func (m *MockKernel) WithMockAlertEvaluator(evaluator *alerts.Evaluator) *MockKernel {
	m.SetAlertEvaluator(evaluator)
	return m
}

// Override sets a custom override for a specific dependency key, for
// tests that need a double not covered by the Kernel's own setters.
func (m *MockKernel) Override(key string, value interface{}) *MockKernel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[key] = value
	return m
}

// GetOverride retrieves an override if set.
func (m *MockKernel) GetOverride(key string) (interface{}, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.overrides[key]
	return val, ok
}

// MinimalMock creates a mock kernel with only a logger registered,
// useful for isolated unit tests that don't need the full dependency set.
func MinimalMock() *MockKernel {
	mock := NewMock()
	mock.SetLogger(logger.Log)
	return mock
}

// Clean cleans up a mock kernel after a test completes.
func (m *MockKernel) Clean(ctx context.Context) error {
	return m.Cleanup(ctx)
}
