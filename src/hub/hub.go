package hub

import (
	"sync"

	"github.com/arafat2020/feedwire/src/types"
	"github.com/rs/zerolog"
)

// MessageBridge relays events to other server instances.
// Defined here to avoid circular imports with the bridge package.
type MessageBridge interface {
	Publish(room string, frame types.Frame) error
	Available() bool
}

// Hub owns all live WebSocket connections and the room membership map.
// Rooms hold weak membership only: a room is created on first join and
// deleted as soon as its last member leaves.
type Hub struct {
	clients map[string]*Client
	rooms   map[string]map[string]bool // room -> set of clientIDs

	register   chan *Client
	unregister chan *Client
	inbound    chan inboundMsg
	broadcast  chan broadcastMsg
	localCast  chan broadcastMsg // frames from bridge, no re-publish

	bridge MessageBridge
	mu     sync.RWMutex
	logger zerolog.Logger
	done   chan struct{}
}

type inboundMsg struct {
	clientID string
	raw      []byte
}

type broadcastMsg struct {
	room  string
	frame types.Frame
	data  []byte // frame serialized exactly once
}

// New creates a new Hub instance.
func New(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inboundMsg, 256),
		broadcast:  make(chan broadcastMsg, 256),
		localCast:  make(chan broadcastMsg, 256),
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// SetBridge attaches a cross-instance message bridge to the hub.
// When set, published events are also forwarded to other instances.
func (h *Hub) SetBridge(b MessageBridge) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bridge = b
}

// BroadcastToLocal delivers a frame from the bridge to local members only.
// It does not re-publish to the bridge, preventing infinite loops.
func (h *Hub) BroadcastToLocal(room string, frame types.Frame) {
	data, err := frame.Encode()
	if err != nil {
		h.logger.Error().Err(err).Msg("encode bridge frame")
		return
	}
	h.localCast <- broadcastMsg{room: room, frame: frame, data: data}
}

// Run starts the hub event loop. Call in a goroutine. All membership
// mutation happens on this goroutine; broadcasts therefore observe a
// consistent membership snapshot.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.inbound:
			h.handleInbound(msg)
		case bm := <-h.broadcast:
			h.publishToBridge(bm)
			h.fanOut(bm)
		case bm := <-h.localCast:
			h.fanOut(bm)
		case <-h.done:
			return
		}
	}
}

// Stop halts the hub event loop.
func (h *Hub) Stop() {
	close(h.done)
}

// Register queues a client for registration.
func (h *Hub) Register(c *Client) {
	h.register <- c
}

// Unregister queues a client for removal.
func (h *Hub) Unregister(c *Client) {
	h.unregister <- c
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()

	h.logger.Info().Str("client_id", c.ID).Msg("client registered")
}

// removeClient drops the client and removes it from every room it joined.
// Rooms left empty are deleted.
func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.ID)

	for room, members := range h.rooms {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	h.mu.Unlock()

	c.Close()
	h.logger.Info().Str("client_id", c.ID).Msg("client unregistered")
}
