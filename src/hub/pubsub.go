package hub

import (
	"encoding/json"

	"github.com/arafat2020/feedwire/src/types"
)

// Publish fans an event out to every live member of room. An empty room
// targets all live connections. The frame is serialized exactly once;
// delivery is best-effort, at-most-once per currently-joined connection.
func (h *Hub) Publish(kind types.EventKind, payload any, room string) error {
	frame, err := types.NewFrame(kind, payload)
	if err != nil {
		return err
	}
	data, err := frame.Encode()
	if err != nil {
		return err
	}
	h.broadcast <- broadcastMsg{room: room, frame: frame, data: data}
	return nil
}

// Join adds a client to a room. Idempotent; a no-op for clients that are
// not (or no longer) live.
func (h *Hub) Join(room, clientID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[clientID]; !ok {
		return false
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]bool)
	}
	h.rooms[room][clientID] = true
	return true
}

// Leave removes a client from a room, deleting the room when it empties.
func (h *Hub) Leave(room, clientID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		return false
	}
	delete(members, clientID)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
	return true
}

// handleInbound validates a raw client frame. Malformed frames and frames
// other than join_room are dropped; the connection stays open.
func (h *Hub) handleInbound(msg inboundMsg) {
	frame, err := types.ParseFrame(msg.raw)
	if err != nil {
		h.logger.Warn().Err(err).Str("client_id", msg.clientID).Msg("dropping malformed frame")
		return
	}
	if frame.Type != types.EventJoinRoom {
		h.logger.Warn().
			Str("client_id", msg.clientID).
			Str("type", string(frame.Type)).
			Msg("dropping unexpected client frame")
		return
	}

	var join types.JoinRoom
	if err := json.Unmarshal(frame.Data, &join); err != nil || join.RoomID == "" {
		h.logger.Warn().Str("client_id", msg.clientID).Msg("dropping join_room without roomId")
		return
	}

	if h.Join(join.RoomID, msg.clientID) {
		h.logger.Debug().
			Str("client_id", msg.clientID).
			Str("room", join.RoomID).
			Msg("joined room")
	}
}

// fanOut delivers a serialized frame to the current membership snapshot.
// A full send buffer is treated as an implicit close: the client is
// unregistered so one stalled connection never delays the others.
func (h *Hub) fanOut(bm broadcastMsg) {
	ids := h.targets(bm.room)

	for _, id := range ids {
		h.mu.RLock()
		client, exists := h.clients[id]
		h.mu.RUnlock()
		if !exists {
			continue
		}
		select {
		case client.Send <- bm.data:
		default:
			h.logger.Warn().Str("client_id", id).Msg("send buffer full, dropping client")
			h.removeClient(client)
		}
	}
}

// targets snapshots the IDs to deliver to, without holding the lock
// during sends.
func (h *Hub) targets(room string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if room == "" {
		ids := make([]string, 0, len(h.clients))
		for id := range h.clients {
			ids = append(ids, id)
		}
		return ids
	}

	members, ok := h.rooms[room]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	return ids
}

// publishToBridge forwards a frame to the bridge if one is attached.
func (h *Hub) publishToBridge(bm broadcastMsg) {
	h.mu.RLock()
	b := h.bridge
	h.mu.RUnlock()

	if b == nil || !b.Available() {
		return
	}
	if err := b.Publish(bm.room, bm.frame); err != nil {
		h.logger.Error().Err(err).Msg("bridge publish failed")
	}
}
