// Package broadcast fans poll events out to connected WebSocket observers.
//
// Delivery is best-effort and at-most-once: an observer that is not connected,
// or whose send buffer is full, misses the event and must refetch. Every
// payload for a poll is a full snapshot, so the next delivered event heals
// any gap.
package broadcast

import (
	"encoding/json"
	"log/slog"
	"sync"

	"livepolls/internal/metrics"
)

const sendBuffer = 64

// Hub owns the live connection set and the presence count derived from it.
type Hub struct {
	// mu guards clients and serialises fan-out, so every connection sees
	// events in publish order.
	mu      sync.Mutex
	clients map[*client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger,
	}
}

// Publish encodes ev once and queues it on every connected observer.
func (h *Hub) Publish(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("encode broadcast event", "event", "broadcast_encode_failed", "kind", ev.Kind, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.fanOut(payload)
}

// ActiveUsers is the number of currently connected observers.
func (h *Hub) ActiveUsers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every observer.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		c.stop()
	}
	metrics.SetConnections(0)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	h.presenceChanged()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	c.stop()
	h.presenceChanged()
}

// presenceChanged recomputes the count from the live set. Caller holds mu.
func (h *Hub) presenceChanged() {
	n := len(h.clients)
	metrics.SetConnections(n)
	payload, err := json.Marshal(Event{Kind: PresenceChanged, Data: Presence{ActiveUsers: n}})
	if err != nil {
		return
	}
	h.fanOut(payload)
}

// fanOut never blocks: a full buffer means a stalled reader, which is
// dropped rather than allowed to hold up everyone else. Caller holds mu.
func (h *Hub) fanOut(payload []byte) {
	var slow []*client
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	if len(slow) == 0 {
		return
	}
	for _, c := range slow {
		delete(h.clients, c)
		c.stop()
		h.logger.Warn("dropping slow observer", "event", "broadcast_observer_dropped", "remote", c.remote)
	}
	h.presenceChanged()
}
