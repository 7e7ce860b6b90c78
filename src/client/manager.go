package client

import (
	"errors"
	"sync"
	"time"

	"github.com/arafat2020/feedwire/src/types"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// DefaultReconnectDelay is the fixed interval between an unexpected close
// and the next connection attempt.
const DefaultReconnectDelay = 3 * time.Second

// ErrClosed is returned by Connect after deliberate teardown.
var ErrClosed = errors.New("connection manager closed")

// State is the connection manager's lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	// StateClosing is terminal: no further reconnect attempts are made.
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosing:
		return "closing"
	}
	return "unknown"
}

// Dialer abstracts connection establishment for testability.
type Dialer interface {
	Dial(url string) (types.Conn, error)
}

// WebSocketDialer dials real WebSocket connections.
type WebSocketDialer struct{}

func (WebSocketDialer) Dial(url string) (types.Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn *websocket.Conn
}

func (w *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := w.conn.ReadMessage()
	return data, err
}

func (w *wsConn) WriteMessage(data []byte) error {
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

func (w *wsConn) Close() error { return w.conn.Close() }

// ManagerConfig configures a connection manager.
type ManagerConfig struct {
	URL            string
	ReconnectDelay time.Duration   // defaults to DefaultReconnectDelay
	Dialer         Dialer          // defaults to WebSocketDialer
	Clock          clockwork.Clock // defaults to the real clock
}

// Manager maintains exactly one outbound connection per process. On an
// unexpected close it schedules exactly one reconnect attempt after a
// fixed delay and re-joins every previously requested room once
// connected again. Close is terminal and cancels any pending attempt.
type Manager struct {
	url    string
	delay  time.Duration
	dialer Dialer
	clock  clockwork.Clock
	router *Router
	logger zerolog.Logger

	mu              sync.Mutex
	state           State
	conn            types.Conn
	gen             int // connection generation, guards stale read loops
	rooms           map[string]bool
	reconnectCancel chan struct{}
}

// NewManager creates a connection manager. It starts disconnected; call
// Connect to establish the first connection.
func NewManager(cfg ManagerConfig, router *Router, logger zerolog.Logger) *Manager {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.Dialer == nil {
		cfg.Dialer = WebSocketDialer{}
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &Manager{
		url:    cfg.URL,
		delay:  cfg.ReconnectDelay,
		dialer: cfg.Dialer,
		clock:  cfg.Clock,
		router: router,
		logger: logger.With().Str("component", "ws-client").Logger(),
		state:  StateDisconnected,
		rooms:  make(map[string]bool),
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect establishes the connection. On dial failure the manager moves to
// Reconnecting and retries after the fixed delay, indefinitely.
func (m *Manager) Connect() error {
	m.mu.Lock()
	if m.state == StateClosing {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.state == StateConnected || m.state == StateConnecting {
		m.mu.Unlock()
		return nil
	}
	m.state = StateConnecting
	m.mu.Unlock()

	conn, err := m.dialer.Dial(m.url)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateClosing {
		if conn != nil {
			conn.Close()
		}
		return ErrClosed
	}
	if err != nil {
		m.logger.Warn().Err(err).Msg("dial failed")
		m.state = StateReconnecting
		m.scheduleReconnectLocked()
		return err
	}

	m.conn = conn
	m.gen++
	m.state = StateConnected
	m.logger.Info().Str("url", m.url).Msg("connected")

	m.rejoinRoomsLocked()
	go m.readLoop(conn, m.gen)
	return nil
}

// JoinRoom records interest in a room and, when connected, sends the
// join_room frame immediately. Rooms are re-joined after every reconnect.
func (m *Manager) JoinRoom(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[roomID] = true
	if m.state == StateConnected {
		m.writeLocked(types.EventJoinRoom, types.JoinRoom{RoomID: roomID})
	}
}

// Send transmits a frame when connected. In any other state it is a
// logged no-op, never an error.
func (m *Manager) Send(kind types.EventKind, payload any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateConnected {
		m.logger.Warn().
			Str("type", string(kind)).
			Str("state", m.state.String()).
			Msg("not connected, dropping send")
		return
	}
	m.writeLocked(kind, payload)
}

// Close is deliberate teardown: it cancels any pending reconnect timer,
// closes the connection, and suppresses all further attempts.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateClosing {
		return
	}
	m.state = StateClosing
	m.cancelReconnectLocked()
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	m.logger.Info().Msg("closed")
}

func (m *Manager) writeLocked(kind types.EventKind, payload any) {
	frame, err := types.NewFrame(kind, payload)
	if err != nil {
		m.logger.Error().Err(err).Msg("encode frame")
		return
	}
	data, err := frame.Encode()
	if err != nil {
		m.logger.Error().Err(err).Msg("encode frame")
		return
	}
	if err := m.conn.WriteMessage(data); err != nil {
		m.logger.Warn().Err(err).Msg("write failed")
	}
}

func (m *Manager) rejoinRoomsLocked() {
	for room := range m.rooms {
		m.writeLocked(types.EventJoinRoom, types.JoinRoom{RoomID: room})
	}
}

// readLoop pumps inbound frames into the router. Dispatch order is the
// arrival order on the connection.
func (m *Manager) readLoop(conn types.Conn, gen int) {
	for {
		raw, err := conn.ReadMessage()
		if err != nil {
			m.handleDisconnect(gen)
			return
		}
		if m.router != nil {
			m.router.Dispatch(raw)
		}
	}
}

// handleDisconnect reacts to an unexpected close by scheduling exactly
// one reconnect attempt. Stale generations (a reconnect already replaced
// this connection) and deliberate teardown are ignored.
func (m *Manager) handleDisconnect(gen int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateClosing || gen != m.gen {
		return
	}
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	m.state = StateReconnecting
	m.logger.Warn().Dur("delay", m.delay).Msg("connection lost, scheduling reconnect")
	m.scheduleReconnectLocked()
}

func (m *Manager) scheduleReconnectLocked() {
	m.cancelReconnectLocked()
	cancel := make(chan struct{})
	m.reconnectCancel = cancel

	timer := m.clock.NewTimer(m.delay)
	go func() {
		defer timer.Stop()
		select {
		case <-timer.Chan():
			m.reconnect()
		case <-cancel:
		}
	}()
}

func (m *Manager) reconnect() {
	m.mu.Lock()
	if m.state != StateReconnecting {
		m.mu.Unlock()
		return
	}
	m.state = StateDisconnected
	m.mu.Unlock()

	if err := m.Connect(); err != nil && !errors.Is(err, ErrClosed) {
		m.logger.Warn().Err(err).Msg("reconnect attempt failed")
	}
}

func (m *Manager) cancelReconnectLocked() {
	if m.reconnectCancel != nil {
		close(m.reconnectCancel)
		m.reconnectCancel = nil
	}
}
