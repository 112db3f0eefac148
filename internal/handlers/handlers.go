package handlers

import "github.com/scaleupwith-ai/ai-videographer-sub000/internal/kernel"

// Handlers contains all HTTP handlers for the API.
// Uses dependency injection via container for all service dependencies.
type Handlers struct {
	kernel *kernel.Kernel
}

// NewHandlers creates a new handlers instance with dependency injection.
// All service dependencies are accessed through the container.
func NewHandlers(c *kernel.Kernel) *Handlers {
	return &Handlers{
		kernel: c,
	}
}

// Kernel returns the underlying dependency injection container.
// Used for testing and access to all services.
func (h *Handlers) Kernel() *kernel.Kernel {
	return h.kernel
}
