package hub

import (
	"sync"
	"time"

	"github.com/arafat2020/feedwire/src/types"
)

// Client wraps a WebSocket connection and manages message flow.
type Client struct {
	ID          string
	conn        types.Conn
	hub         *Hub
	Send        chan []byte
	connectedAt time.Time
	mu          sync.Mutex
	done        chan struct{}
	closed      bool
}

// NewClient creates a new WebSocket client wrapper.
func NewClient(id string, conn types.Conn, h *Hub) *Client {
	return &Client{
		ID:          id,
		conn:        conn,
		hub:         h,
		Send:        make(chan []byte, 256),
		connectedAt: time.Now(),
		done:        make(chan struct{}),
	}
}

// ReadPump reads raw frames from the WebSocket and forwards them to the hub.
// Frame validation happens on the hub loop; a read error ends the pump and
// unregisters the client.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	for {
		raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.hub.inbound <- inboundMsg{clientID: c.ID, raw: raw}
	}
}

// WritePump writes frames from the send channel to the WebSocket.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for {
		select {
		case data, ok := <-c.Send:
			if !ok {
				return
			}
			if err := c.conn.WriteMessage(data); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// Close signals the client to stop its pumps.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
		close(c.Send)
	}
}
