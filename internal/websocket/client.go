package websocket

import (
	"context"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/logger"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pingPeriod     = 30 * time.Second
	sendBufferSize = 64
)

// Client is one subscriber connection watching a single job id.
type Client struct {
	conn  *websocket.Conn
	hub   *Hub
	jobID string
	send  chan ProgressUpdate
}

// NewClient registers conn as a subscriber to jobID's progress updates.
func NewClient(hub *Hub, conn *websocket.Conn, jobID string) *Client {
	return &Client{
		conn:  conn,
		hub:   hub,
		jobID: jobID,
		send:  make(chan ProgressUpdate, sendBufferSize),
	}
}

// Serve registers the client and writes updates until the connection
// closes or ctx is cancelled. It blocks, so call it from the request
// goroutine handling the upgrade.
func (c *Client) Serve(ctx context.Context) {
	c.hub.register <- c
	defer func() { c.hub.unregister <- c }()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-c.send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := wsjson.Write(writeCtx, c.conn, update)
			cancel()
			if err != nil {
				logger.Log.Debug("websocket write failed, closing subscriber", zap.String("job_id", c.jobID), zap.Error(err))
				return
			}
			if update.Percent >= 100 {
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
