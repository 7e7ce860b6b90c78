package client_test

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/arafat2020/feedwire/src/client"
	"github.com/arafat2020/feedwire/src/types"
	"github.com/rs/zerolog"
)

func encode(t *testing.T, kind types.EventKind, payload any) []byte {
	t.Helper()
	frame, err := types.NewFrame(kind, payload)
	if err != nil {
		t.Fatalf("build frame: %v", err)
	}
	data, err := frame.Encode()
	if err != nil {
		t.Fatalf("encode frame: %v", err)
	}
	return data
}

type received struct {
	kind types.EventKind
	data json.RawMessage
}

// recorder captures deliveries; safe to poll from the test goroutine while
// a read loop dispatches.
type recorder struct {
	mu     sync.Mutex
	events []received
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *recorder) list() []received {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]received, len(r.events))
	copy(cp, r.events)
	return cp
}

func collect(r *client.Router, room string) *recorder {
	rec := &recorder{}
	r.Subscribe(room, func(kind types.EventKind, data json.RawMessage) {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		rec.events = append(rec.events, received{kind: kind, data: data})
	})
	return rec
}

func TestPostEventsGoToFeedRoom(t *testing.T) {
	r := client.NewRouter(zerolog.Nop())
	feed := collect(r, types.FeedRoom)
	other := collect(r, types.PostRoom("1"))

	r.Dispatch(encode(t, types.EventNewPost, types.Post{ID: "p1", Content: "hi"}))
	r.Dispatch(encode(t, types.EventUpdatePost, types.Post{ID: "p1", Content: "edited"}))
	r.Dispatch(encode(t, types.EventDeletePost, types.Deletion{ID: "p1"}))

	events := feed.list()
	if len(events) != 3 {
		t.Fatalf("expected 3 feed events, got %d", len(events))
	}
	if events[0].kind != types.EventNewPost ||
		events[1].kind != types.EventUpdatePost ||
		events[2].kind != types.EventDeletePost {
		t.Errorf("events out of arrival order: %v", events)
	}
	if other.count() != 0 {
		t.Errorf("post events must not reach post rooms, got %d", other.count())
	}
}

func TestCommentEventsGoToOwningPostRoom(t *testing.T) {
	r := client.NewRouter(zerolog.Nop())
	room7 := collect(r, types.PostRoom("7"))
	room9 := collect(r, types.PostRoom("9"))

	r.Dispatch(encode(t, types.EventNewComment, types.Comment{ID: "c1", PostID: "7"}))
	r.Dispatch(encode(t, types.EventUpdateComment, types.Comment{ID: "c1", PostID: "7", Content: "edit"}))

	if room7.count() != 2 {
		t.Fatalf("expected 2 events in post_7, got %d", room7.count())
	}
	if room9.count() != 0 {
		t.Errorf("post_9 must not receive post_7 events, got %d", room9.count())
	}
}

func TestDeleteCommentReachesAllPostRooms(t *testing.T) {
	r := client.NewRouter(zerolog.Nop())
	room7 := collect(r, types.PostRoom("7"))
	room9 := collect(r, types.PostRoom("9"))
	feed := collect(r, types.FeedRoom)

	r.Dispatch(encode(t, types.EventDeleteComment, types.Deletion{ID: "c1"}))

	if room7.count() != 1 || room9.count() != 1 {
		t.Errorf("expected delete_comment in every post room, got %d and %d", room7.count(), room9.count())
	}
	if feed.count() != 0 {
		t.Errorf("delete_comment must not reach the feed room, got %d", feed.count())
	}
}

func TestMalformedFramesAreDropped(t *testing.T) {
	r := client.NewRouter(zerolog.Nop())
	feed := collect(r, types.FeedRoom)

	r.Dispatch([]byte("not json"))
	r.Dispatch([]byte(`{"type":"bogus","data":{}}`))
	r.Dispatch([]byte(`{"type":"new_comment","data":{"id":"c1"}}`)) // no postId
	r.Dispatch(encode(t, types.EventNewPost, types.Post{ID: "p1"}))

	if feed.count() != 1 {
		t.Fatalf("expected only the valid frame to be delivered, got %d", feed.count())
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	r := client.NewRouter(zerolog.Nop())

	var count int
	cancel := r.Subscribe(types.FeedRoom, func(types.EventKind, json.RawMessage) { count++ })

	r.Dispatch(encode(t, types.EventNewPost, types.Post{ID: "p1"}))
	cancel()
	r.Dispatch(encode(t, types.EventNewPost, types.Post{ID: "p2"}))

	if count != 1 {
		t.Errorf("expected 1 delivery before cancel, got %d", count)
	}
}

func TestMultipleSubscribersSameRoom(t *testing.T) {
	r := client.NewRouter(zerolog.Nop())

	var a, b int
	r.Subscribe(types.FeedRoom, func(types.EventKind, json.RawMessage) { a++ })
	r.Subscribe(types.FeedRoom, func(types.EventKind, json.RawMessage) { b++ })

	r.Dispatch(encode(t, types.EventNewPost, types.Post{ID: "p1"}))

	if a != 1 || b != 1 {
		t.Errorf("expected both subscribers delivered once, got %d and %d", a, b)
	}
}

func TestJoinRoomFrameIsNotDispatched(t *testing.T) {
	r := client.NewRouter(zerolog.Nop())
	feed := collect(r, types.FeedRoom)

	r.Dispatch(encode(t, types.EventJoinRoom, types.JoinRoom{RoomID: types.FeedRoom}))

	if feed.count() != 0 {
		t.Errorf("join_room must not be dispatched to subscribers, got %d", feed.count())
	}
}
