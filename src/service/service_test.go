package service_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/arafat2020/feedwire/src/hub"
	"github.com/arafat2020/feedwire/src/service"
	"github.com/arafat2020/feedwire/src/types"
	"github.com/rs/zerolog"
)

type stubConn struct {
	mu       sync.Mutex
	written  [][]byte
	closed   bool
	closedCh chan struct{}
}

func newStubConn() *stubConn {
	return &stubConn{closedCh: make(chan struct{})}
}

func (s *stubConn) ReadMessage() ([]byte, error) {
	<-s.closedCh
	return nil, errors.New("connection closed")
}

func (s *stubConn) WriteMessage(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written = append(s.written, data)
	return nil
}

func (s *stubConn) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.closedCh)
	}
	return nil
}

func (s *stubConn) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.written)
}

func newTestService(t *testing.T) (*service.Service, *hub.Hub) {
	t.Helper()
	h := hub.New(zerolog.Nop())
	go h.Run()
	t.Cleanup(func() { h.Stop() })
	return service.New(h, zerolog.Nop()), h
}

func connect(t *testing.T, h *hub.Hub, id string) *stubConn {
	t.Helper()
	conn := newStubConn()
	c := hub.NewClient(id, conn, h)
	h.Register(c)
	go c.WritePump()
	time.Sleep(20 * time.Millisecond)
	return conn
}

func TestPublishRejectsClientKinds(t *testing.T) {
	s, _ := newTestService(t)

	if err := s.Publish(types.EventJoinRoom, types.JoinRoom{RoomID: "feed"}, ""); err == nil {
		t.Error("join_room must not be publishable")
	}
	if err := s.Publish(types.EventKind("bogus"), nil, ""); err == nil {
		t.Error("unknown kinds must be rejected")
	}
}

func TestPublishReachesJoinedClient(t *testing.T) {
	s, h := newTestService(t)
	conn := connect(t, h, "c1")

	if err := s.Join(types.FeedRoom, "c1"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := s.Publish(types.EventNewPost, types.Post{ID: "p1"}, types.FeedRoom); err != nil {
		t.Fatalf("publish: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	if conn.count() != 1 {
		t.Errorf("expected 1 delivered frame, got %d", conn.count())
	}
}

func TestJoinUnknownClient(t *testing.T) {
	s, _ := newTestService(t)

	if err := s.Join(types.FeedRoom, "ghost"); err == nil {
		t.Error("expected error for unknown client")
	}
}

func TestClientQueries(t *testing.T) {
	s, h := newTestService(t)
	connect(t, h, "c1")

	if got := s.ConnectedClients(); len(got) != 1 || got[0] != "c1" {
		t.Errorf("expected [c1], got %v", got)
	}

	if err := s.Join(types.PostRoom("7"), "c1"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if got := s.Rooms()["post_7"]; got != 1 {
		t.Errorf("expected 1 member in post_7, got %d", got)
	}

	info, err := s.ClientInfo("c1")
	if err != nil {
		t.Fatalf("client info: %v", err)
	}
	if info.ID != "c1" || len(info.Rooms) != 1 {
		t.Errorf("unexpected info: %+v", info)
	}

	if _, err := s.ClientInfo("ghost"); err == nil {
		t.Error("expected error for unknown client")
	}
}
