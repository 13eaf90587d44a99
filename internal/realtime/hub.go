package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Hub is the session registry and fan-out point. It tracks which live
// clients are joined to which trip and delivers change events to them.
// Delivery is at-most-once: a client whose send buffer is full, or whose
// connection has died, simply misses the event and recovers by resyncing.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub. Clients start unjoined; they see no
// events until they join a trip.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client and closes its send channel. Safe to call
// more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Join binds a client to a trip. A client follows at most one trip;
// joining again switches it.
func (h *Hub) Join(c *Client, tripID int64) {
	h.mu.Lock()
	c.tripID = tripID
	h.mu.Unlock()
}

// Broadcast delivers an event to every client joined to its trip. The
// event is encoded once; each hand-off is non-blocking so one slow client
// cannot stall the others or the mutation that triggered the event.
func (h *Hub) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal event", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if c.tripID != ev.TripID {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Buffer full: drop for this client only. The client's next
			// resync restores correctness.
			h.logger.Debug("dropped event", "trip_id", ev.TripID, "activity_id", ev.ActivityID, "kind", ev.Kind)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TripClientCount returns the number of clients joined to one trip.
func (h *Hub) TripClientCount(tripID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.clients {
		if c.tripID == tripID {
			n++
		}
	}
	return n
}
