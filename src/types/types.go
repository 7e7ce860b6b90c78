package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind identifies a wire frame. The set is closed; frames with an
// unknown kind are rejected at the decode boundary.
type EventKind string

const (
	EventNewPost       EventKind = "new_post"
	EventUpdatePost    EventKind = "update_post"
	EventDeletePost    EventKind = "delete_post"
	EventNewComment    EventKind = "new_comment"
	EventUpdateComment EventKind = "update_comment"
	EventDeleteComment EventKind = "delete_comment"

	// EventJoinRoom is the only client-to-server control frame.
	EventJoinRoom EventKind = "join_room"
)

// Valid reports whether k is a recognized event kind.
func (k EventKind) Valid() bool {
	switch k {
	case EventNewPost, EventUpdatePost, EventDeletePost,
		EventNewComment, EventUpdateComment, EventDeleteComment,
		EventJoinRoom:
		return true
	}
	return false
}

// ServerEvent reports whether k flows server-to-client.
func (k EventKind) ServerEvent() bool {
	return k.Valid() && k != EventJoinRoom
}

// Frame is the wire shape of every message: {"type": ..., "data": ...}.
type Frame struct {
	Type EventKind       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewFrame builds a frame from a kind and a payload value.
func NewFrame(kind EventKind, payload any) (Frame, error) {
	if !kind.Valid() {
		return Frame{}, fmt.Errorf("unknown event kind %q", kind)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	return Frame{Type: kind, Data: data}, nil
}

// Encode serializes the frame for the wire.
func (f Frame) Encode() ([]byte, error) {
	return json.Marshal(f)
}

// ParseFrame decodes a raw inbound message, rejecting unknown kinds.
func ParseFrame(raw []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if !f.Type.Valid() {
		return Frame{}, fmt.Errorf("unknown event kind %q", f.Type)
	}
	return f, nil
}

// JoinRoom is the payload of a join_room frame.
type JoinRoom struct {
	RoomID string `json:"roomId"`
}

// Deletion is the payload of delete_post and delete_comment frames.
type Deletion struct {
	ID string `json:"id"`
}

// FeedRoom is the room carrying the global post stream.
const FeedRoom = "feed"

// PostRoomPrefix prefixes every per-post comment room.
const PostRoomPrefix = "post_"

// PostRoom returns the room carrying a post's comment stream.
func PostRoom(postID string) string {
	return PostRoomPrefix + postID
}

// ClientInfo holds metadata about a connected WebSocket client.
type ClientInfo struct {
	ID          string    `json:"id"`
	ConnectedAt time.Time `json:"connected_at"`
	Rooms       []string  `json:"rooms"`
}

// Conn abstracts a WebSocket connection for testability.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}
