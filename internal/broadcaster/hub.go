// Package broadcaster is the server-push channel for library sync progress
// and regeneration events, per spec.md §6. It mirrors the teacher's
// websocket hub: a Register/Unregister/broadcast select loop with
// deterministic client ordering.
package broadcaster

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cablecast/cablecast/internal/metrics"
)

// Message types from spec.md §6.
const (
	TypeConnected           = "connected"
	TypeHeartbeat           = "heartbeat"
	TypeGenerationProgress  = "generation:progress"
	TypeLibrarySynced       = "library:synced"
	TypeChannelsRegenerated = "channels:regenerated"
)

// HeartbeatInterval is how often the hub pushes a heartbeat to every client.
const HeartbeatInterval = 30 * time.Second

// Message is the push envelope: {type, payload}.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// GenerationProgress is the payload for TypeGenerationProgress.
type GenerationProgress struct {
	Step    string `json:"step"`
	Message string `json:"message"`
	Current *int   `json:"current,omitempty"`
	Total   *int   `json:"total,omitempty"`
}

// Hub maintains the set of connected clients and broadcasts messages.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool

	broadcast  chan Message
	register   chan *Client
	unregister chan *Client

	logger zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run drives the hub's event loop until ctx is cancelled, also emitting a
// heartbeat on HeartbeatInterval.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			count := len(h.clients)
			h.mu.Unlock()
			metrics.BroadcastClients.Set(float64(count))
			c.enqueue(Message{Type: TypeConnected})
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			metrics.BroadcastClients.Set(float64(count))
		case msg := <-h.broadcast:
			h.deliver(msg)
		case <-ticker.C:
			h.deliver(Message{Type: TypeHeartbeat})
		}
	}
}

// Broadcast enqueues msg for delivery to every connected client.
// Non-blocking: drops the message (with a warning log) if the internal
// queue is full rather than stalling the caller.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn().Str("type", msg.Type).Msg("broadcast queue full, dropping message")
	}
}

func (h *Hub) deliver(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })

	var stale []*Client
	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			stale = append(stale, c)
		}
	}
	for _, c := range stale {
		close(c.send)
		delete(h.clients, c)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })
	for _, c := range clients {
		close(c.send)
		delete(h.clients, c)
	}
}

// Register adds c to the hub; called once per accepted connection.
func (h *Hub) Register(c *Client) { h.register <- c }

// Unregister removes c from the hub; called when its connection ends.
func (h *Hub) Unregister(c *Client) { h.unregister <- c }

// ClientCount reports the number of currently connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Marshal encodes msg as its JSON envelope. Client's writePump does not use
// it; it writes messages with conn.WriteJSON.
func Marshal(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
