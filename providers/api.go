package providers

import (
	"errors"

	"github.com/arafat2020/feedwire/src/hub"
	"github.com/arafat2020/feedwire/src/store"
	"github.com/arafat2020/feedwire/src/types"
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
)

// Publisher fans a committed mutation out to a room. Satisfied by
// service.Service; a narrow interface keeps handlers testable.
type Publisher interface {
	Publish(kind types.EventKind, payload any, room string) error
}

// API wires the REST collaborator surface to the store of record and the
// broadcaster. Handlers persist first and publish only after the store
// mutation has returned successfully.
type API struct {
	store     store.Store
	publisher Publisher
	hub       *hub.Hub
	logger    zerolog.Logger
}

// NewAPI creates the REST/WebSocket transport layer.
func NewAPI(st store.Store, pub Publisher, h *hub.Hub, logger zerolog.Logger) *API {
	return &API{
		store:     st,
		publisher: pub,
		hub:       h,
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

// userID reads the authenticated user from the gateway header.
// Authentication itself happens upstream; this layer only consumes the
// resolved identity.
func userID(c fiber.Ctx) string {
	return c.Get("X-User-ID")
}

func author(c fiber.Ctx) types.UserRef {
	return types.UserRef{ID: c.Get("X-User-ID"), Username: c.Get("X-User-Name")}
}

// storeError maps store sentinel errors onto HTTP responses.
func storeError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "not found"})
	case errors.Is(err, store.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "forbidden"})
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
}

// publish forwards a committed mutation to the broadcaster. Publish
// failures are logged, not surfaced: the write already committed and the
// event stream is best-effort.
func (a *API) publish(kind types.EventKind, payload any, room string) {
	if err := a.publisher.Publish(kind, payload, room); err != nil {
		a.logger.Error().Err(err).Str("type", string(kind)).Msg("publish failed")
	}
}
