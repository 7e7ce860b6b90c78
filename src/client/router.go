package client

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/arafat2020/feedwire/src/types"
	"github.com/rs/zerolog"
)

// Handler receives events for a subscribed room.
type Handler func(kind types.EventKind, data json.RawMessage)

// Router demultiplexes inbound frames to per-room subscribers. Dispatch
// is synchronous and follows the arrival order on the connection; a
// cancelled subscriber stops receiving immediately.
type Router struct {
	mu     sync.RWMutex
	subs   map[string]map[int]Handler
	nextID int
	logger zerolog.Logger
}

// NewRouter creates an empty router.
func NewRouter(logger zerolog.Logger) *Router {
	return &Router{
		subs:   make(map[string]map[int]Handler),
		logger: logger.With().Str("component", "ws-router").Logger(),
	}
}

// Subscribe registers a callback for a room's events. The returned cancel
// function removes the subscription synchronously: after it returns no
// further events are dispatched to fn, even while the connection stays
// open for other subscribers.
func (r *Router) Subscribe(room string, fn Handler) (cancel func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.subs[room] == nil {
		r.subs[room] = make(map[int]Handler)
	}
	id := r.nextID
	r.nextID++
	r.subs[room][id] = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if handlers, ok := r.subs[room]; ok {
			delete(handlers, id)
			if len(handlers) == 0 {
				delete(r.subs, room)
			}
		}
	}
}

// Dispatch routes one raw inbound frame. Malformed frames are dropped
// without affecting the connection or other subscribers.
func (r *Router) Dispatch(raw []byte) {
	frame, err := types.ParseFrame(raw)
	if err != nil {
		r.logger.Warn().Err(err).Msg("dropping malformed frame")
		return
	}

	switch frame.Type {
	case types.EventNewPost, types.EventUpdatePost, types.EventDeletePost:
		r.deliver(types.FeedRoom, frame)

	case types.EventNewComment, types.EventUpdateComment:
		var c types.Comment
		if err := json.Unmarshal(frame.Data, &c); err != nil || c.PostID == "" {
			r.logger.Warn().Str("type", string(frame.Type)).Msg("dropping comment event without postId")
			return
		}
		r.deliver(types.PostRoom(c.PostID), frame)

	case types.EventDeleteComment:
		// The payload carries only the id, so the owning room cannot be
		// derived. Removal by id is idempotent; deliver to every post
		// room and let unrelated rooms no-op.
		r.deliverPostRooms(frame)

	default:
		r.logger.Warn().Str("type", string(frame.Type)).Msg("dropping unexpected frame")
	}
}

func (r *Router) deliver(room string, frame types.Frame) {
	for _, fn := range r.snapshot(room) {
		fn(frame.Type, frame.Data)
	}
}

func (r *Router) deliverPostRooms(frame types.Frame) {
	r.mu.RLock()
	var handlers []Handler
	for room, subs := range r.subs {
		if !strings.HasPrefix(room, types.PostRoomPrefix) {
			continue
		}
		for _, fn := range subs {
			handlers = append(handlers, fn)
		}
	}
	r.mu.RUnlock()

	for _, fn := range handlers {
		fn(frame.Type, frame.Data)
	}
}

// snapshot copies a room's handlers so dispatch never holds the lock
// while running callbacks.
func (r *Router) snapshot(room string) []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs, ok := r.subs[room]
	if !ok {
		return nil
	}
	handlers := make([]Handler, 0, len(subs))
	for _, fn := range subs {
		handlers = append(handlers, fn)
	}
	return handlers
}
