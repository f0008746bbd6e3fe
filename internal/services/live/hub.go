// Package live fans counting messages out to connected websocket clients.
package live

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

// Message types sent to clients
const (
	TypeCount    = "count"
	TypeProgress = "progress"
	TypeReport   = "report"
)

const clientBuffer = 64

// Message is the envelope every client receives
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Client is one registered subscriber
type Client struct {
	send chan []byte
}

// Messages returns the client's outgoing queue. It is closed on Unregister.
func (c *Client) Messages() <-chan []byte {
	return c.send
}

// Hub broadcasts published messages to all registered clients. Slow
// clients miss messages instead of blocking the publisher.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
	types   map[string]string
	logger  zerolog.Logger
}

// NewHub creates a hub. types maps publish subjects to message types;
// unknown subjects are sent with the subject as type.
func NewHub(types map[string]string, logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		types:   types,
		logger:  logger,
	}
}

// Register adds a client
func (h *Hub) Register() *Client {
	c := &Client{send: make(chan []byte, clientBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Int("clients", n).Msg("Live client registered")
	return c
}

// Unregister removes a client and closes its queue
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Int("clients", n).Msg("Live client unregistered")
}

// Clients returns the number of registered clients
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish encodes data in a Message envelope and queues it for every client
func (h *Hub) Publish(subject string, data interface{}) error {
	msgType, ok := h.types[subject]
	if !ok {
		msgType = subject
	}

	payload, err := json.Marshal(Message{Type: msgType, Data: data})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.logger.Warn().Str("type", msgType).Msg("Live client too slow, message dropped")
		}
	}
	return nil
}

// Close unregisters every client
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
