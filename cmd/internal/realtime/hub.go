package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"aya/cmd/identity/ids"
	v1 "aya/shared/contracts/realtime/v1"
)

// ConnectionObserver is told the number of open connections after every change.
type ConnectionObserver interface {
	ObserveConnections(n int)
}

// Hub indexes live connections by username and pushes displacement notices.
// It implements session.Notifier.
type Hub struct {
	log *slog.Logger
	obs ConnectionObserver

	mu     sync.RWMutex
	byUser map[string]map[string]*Client // username -> conn id -> client
	total  int
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithConnectionObserver sets the connection gauge observer.
func WithConnectionObserver(obs ConnectionObserver) HubOption {
	return func(h *Hub) {
		if obs != nil {
			h.obs = obs
		}
	}
}

// NewHub constructs a Hub instance.
func NewHub(log *slog.Logger, opts ...HubOption) *Hub {
	if log == nil {
		log = slog.Default()
	}
	h := &Hub{
		log:    log,
		byUser: make(map[string]map[string]*Client),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Register adds c to the index.
func (h *Hub) Register(c *Client) {
	if c == nil || c.ConnID == "" {
		return
	}
	h.mu.Lock()
	conns, ok := h.byUser[c.Username]
	if !ok {
		conns = make(map[string]*Client)
		h.byUser[c.Username] = conns
	}
	if _, dup := conns[c.ConnID]; !dup {
		h.total++
	}
	conns[c.ConnID] = c
	n := h.total
	h.mu.Unlock()

	h.observe(n)
	h.log.Info("realtime.conn.register", "username", c.Username, "device_id", c.DeviceID, "conn_id", c.ConnID)
}

// Unregister removes c from the index and signals it to stop.
func (h *Hub) Unregister(c *Client) {
	if c == nil {
		return
	}
	h.mu.Lock()
	removed := false
	if conns, ok := h.byUser[c.Username]; ok {
		if _, ok := conns[c.ConnID]; ok {
			delete(conns, c.ConnID)
			h.total--
			removed = true
		}
		if len(conns) == 0 {
			delete(h.byUser, c.Username)
		}
	}
	n := h.total
	h.mu.Unlock()

	// Signal shutdown after removal so no notifier still holds the client.
	c.Close()

	if removed {
		h.observe(n)
		h.log.Info("realtime.conn.unregister", "username", c.Username, "conn_id", c.ConnID)
	}
}

// Len returns the number of registered connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total
}

// Displaced notifies every connection of priorDeviceID under username and kicks it.
// It never blocks: a full queue loses the notice but the connection is still closed.
func (h *Hub) Displaced(username, priorDeviceID, newDeviceID string) {
	h.mu.RLock()
	var targets []*Client
	for _, c := range h.byUser[username] {
		if c.DeviceID == priorDeviceID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	env := displacedEnvelope(username, priorDeviceID, v1.ReasonNewLogin, time.Now().UTC())
	for _, c := range targets {
		if !c.TrySend(env) {
			h.log.Warn("realtime.displaced.drop", "username", username, "conn_id", c.ConnID)
		}
		c.Kick()
	}
	h.log.Info("realtime.displaced", "username", username, "prior_device_id", priorDeviceID, "device_id", newDeviceID, "conns", len(targets))
}

func (h *Hub) observe(n int) {
	if h.obs != nil {
		h.obs.ObserveConnections(n)
	}
}

func displacedEnvelope(username, deviceID, reason string, now time.Time) v1.Envelope {
	p, _ := json.Marshal(v1.SessionDisplacedPayload{Username: username, DeviceID: deviceID, Reason: reason})
	return newEnvelope(v1.TypeSessionDisplaced, p, now)
}

func newEnvelope(typ string, payload json.RawMessage, ts time.Time) v1.Envelope {
	id, _ := ids.NewULID(ts)
	return v1.Envelope{
		V:       v1.Version,
		Type:    typ,
		ID:      id,
		TS:      ts,
		Payload: payload,
	}
}
