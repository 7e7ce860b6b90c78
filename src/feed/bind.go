package feed

import (
	"encoding/json"

	"github.com/arafat2020/feedwire/src/client"
	"github.com/arafat2020/feedwire/src/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TempID generates a client-side temporary id for an optimistic create.
// The id doubles as the correlation key until the server-confirmed entity
// arrives.
func TempID() string {
	return "temp-" + uuid.New().String()
}

// BindPosts folds feed-room broadcasts into a post engine. Returns the
// subscription cancel function.
func BindPosts(r *client.Router, e *Engine, logger zerolog.Logger) (cancel func()) {
	return r.Subscribe(types.FeedRoom, func(kind types.EventKind, data json.RawMessage) {
		switch kind {
		case types.EventNewPost, types.EventUpdatePost:
			var p types.Post
			if err := json.Unmarshal(data, &p); err != nil || p.ID == "" {
				logger.Warn().Str("type", string(kind)).Msg("dropping malformed post event")
				return
			}
			e.ApplyConfirmed(&p, "")

		case types.EventDeletePost:
			var d types.Deletion
			if err := json.Unmarshal(data, &d); err != nil || d.ID == "" {
				logger.Warn().Msg("dropping malformed delete_post event")
				return
			}
			e.ApplyDeleted(d.ID)
		}
	})
}

// BindComments folds a post room's broadcasts into a comment engine.
func BindComments(r *client.Router, e *Engine, postID string, logger zerolog.Logger) (cancel func()) {
	return r.Subscribe(types.PostRoom(postID), func(kind types.EventKind, data json.RawMessage) {
		switch kind {
		case types.EventNewComment, types.EventUpdateComment:
			var c types.Comment
			if err := json.Unmarshal(data, &c); err != nil || c.ID == "" {
				logger.Warn().Str("type", string(kind)).Msg("dropping malformed comment event")
				return
			}
			if c.PostID != postID {
				return
			}
			e.ApplyConfirmed(&c, "")

		case types.EventDeleteComment:
			var d types.Deletion
			if err := json.Unmarshal(data, &d); err != nil || d.ID == "" {
				logger.Warn().Msg("dropping malformed delete_comment event")
				return
			}
			e.ApplyDeleted(d.ID)
		}
	})
}
