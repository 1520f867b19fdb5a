// Package websocket fans provisioning events out to connected operator UIs.
package websocket

import (
	"log"
	"sync"
)

const sendBuffer = 256

// Client is one connected UI. The send channel is drained by the
// connection's write pump and closed by the hub on unregister.
type Client struct {
	send chan []byte
}

// NewClient creates a client ready to be registered with a hub.
func NewClient() *Client {
	return &Client{send: make(chan []byte, sendBuffer)}
}

// Send returns the channel the write pump drains.
func (c *Client) Send() <-chan []byte {
	return c.send
}

// Hub tracks the connected clients and fans broadcast messages out to
// them. A client that cannot keep up with the event stream is dropped.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

// Register adds a client to the fan-out set.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()
	log.Printf("WebSocket client connected (total: %d)", total)
}

// Unregister removes a client and closes its send channel. Safe to call
// for a client the hub already dropped.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	log.Printf("WebSocket client disconnected (total: %d)", total)
}

// Broadcast delivers a message to every connected client. Clients with a
// full send buffer are dropped rather than blocking the event source.
func (h *Hub) Broadcast(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- message:
		default:
			delete(h.clients, c)
			close(c.send)
			log.Println("WebSocket client too slow, dropping connection")
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
