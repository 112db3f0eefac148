// Package websocket broadcasts render-job progress updates to
// subscribed clients over WebSocket connections. Uses
// github.com/coder/websocket, the context-aware WebSocket library this
// codebase standardizes on.
package websocket

import (
	"sync"
	"sync/atomic"
)

// ProgressUpdate is one controller.ProgressFunc checkpoint, broadcast
// to every client subscribed to its job id.
type ProgressUpdate struct {
	JobID   string `json:"job_id"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

// Metrics tracks hub-wide connection counters.
type Metrics struct {
	TotalConnections  atomic.Int64
	ActiveConnections atomic.Int64
	MessagesSent      atomic.Int64
	Errors            atomic.Int64
}

// Hub maintains the set of clients subscribed to each job id and fans
// out progress updates to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan ProgressUpdate

	metrics *Metrics
	done    chan struct{}
}

// NewHub creates a Hub. Call Run in a goroutine to start it.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		broadcast:  make(chan ProgressUpdate, 256),
		metrics:    &Metrics{},
		done:       make(chan struct{}),
	}
}

// Run processes register/unregister/broadcast events until Stop is
// called.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if h.clients[c.jobID] == nil {
				h.clients[c.jobID] = make(map[*Client]struct{})
			}
			h.clients[c.jobID][c] = struct{}{}
			h.mu.Unlock()
			h.metrics.TotalConnections.Add(1)
			h.metrics.ActiveConnections.Add(1)

		case c := <-h.unregister:
			h.mu.Lock()
			if set, ok := h.clients[c.jobID]; ok {
				if _, ok := set[c]; ok {
					delete(set, c)
					close(c.send)
					h.metrics.ActiveConnections.Add(-1)
				}
				if len(set) == 0 {
					delete(h.clients, c.jobID)
				}
			}
			h.mu.Unlock()

		case update := <-h.broadcast:
			h.mu.RLock()
			subscribers := h.clients[update.JobID]
			for c := range subscribers {
				select {
				case c.send <- update:
					h.metrics.MessagesSent.Add(1)
				default:
					h.metrics.Errors.Add(1)
				}
			}
			h.mu.RUnlock()

		case <-h.done:
			return
		}
	}
}

// Stop ends the Run loop.
func (h *Hub) Stop() {
	close(h.done)
}

// Publish broadcasts a progress update to every client subscribed to
// its job id. Safe to call from the Controller's onProgress callback.
func (h *Hub) Publish(update ProgressUpdate) {
	select {
	case h.broadcast <- update:
	default:
		h.metrics.Errors.Add(1)
	}
}

func (h *Hub) Metrics() *Metrics {
	return h.metrics
}
