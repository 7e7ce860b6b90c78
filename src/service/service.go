package service

import (
	"fmt"

	"github.com/arafat2020/feedwire/src/hub"
	"github.com/arafat2020/feedwire/src/types"
	"github.com/rs/zerolog"
)

// Service is the broadcaster facade handed to the persistence collaborators.
// The contract: Publish is called only after the corresponding write has
// durably committed, never speculatively. It is an explicitly constructed
// instance owned by the server's startup routine, not a process singleton.
type Service struct {
	hub    *hub.Hub
	logger zerolog.Logger
}

// New creates a broadcaster service backed by the given hub.
func New(h *hub.Hub, logger zerolog.Logger) *Service {
	return &Service{hub: h, logger: logger}
}

// Hub returns the underlying hub.
func (s *Service) Hub() *hub.Hub { return s.hub }

// Publish fans a committed mutation out to room. An empty room targets all
// live connections. Only server-to-client event kinds are accepted.
func (s *Service) Publish(kind types.EventKind, payload any, room string) error {
	if !kind.ServerEvent() {
		return fmt.Errorf("event kind %q cannot be published", kind)
	}
	if err := s.hub.Publish(kind, payload, room); err != nil {
		return err
	}
	s.logger.Debug().
		Str("type", string(kind)).
		Str("room", room).
		Msg("published")
	return nil
}

// Join adds a live connection to a room. Idempotent.
func (s *Service) Join(room, clientID string) error {
	if ok := s.hub.Join(room, clientID); !ok {
		return fmt.Errorf("client %s not found", clientID)
	}
	s.logger.Debug().
		Str("client_id", clientID).
		Str("room", room).
		Msg("joined")
	return nil
}

// ConnectedClients returns IDs of all connected clients.
func (s *Service) ConnectedClients() []string {
	return s.hub.ConnectedClients()
}

// Rooms returns active rooms with member counts.
func (s *Service) Rooms() map[string]int {
	return s.hub.Rooms()
}

// ClientInfo returns info for a connected client, or an error.
func (s *Service) ClientInfo(clientID string) (*types.ClientInfo, error) {
	info := s.hub.ClientInfo(clientID)
	if info == nil {
		return nil, fmt.Errorf("client %s not found", clientID)
	}
	return info, nil
}
