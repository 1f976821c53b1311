package realtime

import (
	"sync"

	v1 "aya/shared/contracts/realtime/v1"
)

// Client represents one connected websocket for a (username, device) pair.
//
// Design notes:
//
//   - Send is never closed by the server, so the hub can enqueue without racing shutdown.
//   - done signals the connection goroutines to stop.
//   - kicked is closed once the session was displaced; the writer flushes Send and closes.
type Client struct {
	ConnID   string
	Username string
	DeviceID string
	Send     chan v1.Envelope

	done      chan struct{}
	closeOnce sync.Once

	kicked   chan struct{}
	kickOnce sync.Once
}

// NewClient constructs a Client with a bounded send queue.
func NewClient(connID, username, deviceID string, sendQueueSize int) *Client {
	if sendQueueSize <= 0 {
		sendQueueSize = 16
	}
	return &Client{
		ConnID:   connID,
		Username: username,
		DeviceID: deviceID,
		Send:     make(chan v1.Envelope, sendQueueSize),
		done:     make(chan struct{}),
		kicked:   make(chan struct{}),
	}
}

// Done returns a channel that is closed when the client is shutting down.
func (c *Client) Done() <-chan struct{} {
	if c == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return c.done
}

// Kicked returns a channel that is closed once the client's session was displaced.
func (c *Client) Kicked() <-chan struct{} {
	return c.kicked
}

// Close signals the client goroutines to stop (idempotent).
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Kick marks the client displaced (idempotent).
func (c *Client) Kick() {
	if c == nil {
		return
	}
	c.kickOnce.Do(func() {
		close(c.kicked)
	})
}

// TrySend enqueues env without blocking. It reports false when the client is
// shutting down or its queue is full.
func (c *Client) TrySend(env v1.Envelope) bool {
	if c == nil {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.Send <- env:
		return true
	default:
		return false
	}
}
