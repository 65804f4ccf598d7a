// Package chatclient owns the persistent websocket connection to the chat
// backend: connect/disconnect, exponential-backoff reconnection, inbound
// frame routing, and the processed-message dedup set. Inbound chat messages
// are normalized here once and handed to the chatstore; everything downstream
// sees only canonical values.
package chatclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ronalking182/errand-shop-mobile-app-sub001/internal/auth"
	"github.com/ronalking182/errand-shop-mobile-app-sub001/internal/chatstore"
	"github.com/ronalking182/errand-shop-mobile-app-sub001/internal/models"
	"github.com/ronalking182/errand-shop-mobile-app-sub001/internal/notify"
)

// State is the connection lifecycle state.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateReconnecting:
		return "reconnecting"
	}
	return "unknown"
}

// ErrNotConnected is returned when a send is attempted without an open
// connection. The caller decides whether to fall back to a local append.
var ErrNotConnected = errors.New("chatclient: not connected")

const (
	defaultMaxAttempts     = 5
	defaultBaseBackoff     = 3000 * time.Millisecond
	defaultMaxBackoff      = 30 * time.Second
	defaultCleanupInterval = 5 * time.Minute
)

// Conn is the subset of *websocket.Conn the manager uses; faked in tests.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens a websocket connection to a target URL.
type Dialer interface {
	Dial(ctx context.Context, target string) (Conn, error)
}

type gorillaDialer struct{}

func (gorillaDialer) Dial(ctx context.Context, target string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Config wires the manager's collaborators. Zero-value tunables fall back to
// the production defaults; tests override Dialer and AfterFunc.
type Config struct {
	// BaseURL is the backend HTTP base, e.g. "https://api.example.com".
	// The websocket target mirrors the scheme: http→ws, https→wss.
	BaseURL  string
	Tokens   auth.TokenSource
	Store    *chatstore.Store
	Notifier notify.Notifier

	Dialer          Dialer
	AfterFunc       func(d time.Duration, fn func()) *time.Timer
	MaxAttempts     int
	BaseBackoff     time.Duration
	MaxBackoff      time.Duration
	CleanupInterval time.Duration
}

// Manager is the connection manager. Construct with NewManager; the zero
// value is not usable.
type Manager struct {
	cfg      Config
	dialer   Dialer
	after    func(time.Duration, func()) *time.Timer
	notifier notify.Notifier

	mu    sync.Mutex
	state State
	conn  Conn
	// epoch invalidates in-flight dials: bumped by every Connect and by
	// Disconnect, so a dial that finishes after the session changed hands
	// is discarded instead of installed.
	epoch          uint64
	roomID         string
	attempts       int
	foreground     bool
	senderID       string
	processed      map[string]struct{}
	handlers       map[string][]func(models.Frame)
	cleanupRunning bool
	quit           chan struct{}

	writeMu sync.Mutex

	subMu      sync.Mutex
	statusSubs []func(connected bool)
	typingSubs []func(roomID, senderID string, typing bool)
}

func NewManager(cfg Config) *Manager {
	if cfg.Dialer == nil {
		cfg.Dialer = gorillaDialer{}
	}
	if cfg.AfterFunc == nil {
		cfg.AfterFunc = time.AfterFunc
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BaseBackoff == 0 {
		cfg.BaseBackoff = defaultBaseBackoff
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = defaultMaxBackoff
	}
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = defaultCleanupInterval
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Manager{
		cfg:        cfg,
		dialer:     cfg.Dialer,
		after:      cfg.AfterFunc,
		notifier:   notifier,
		state:      StateIdle,
		foreground: true,
		processed:  make(map[string]struct{}),
		handlers:   make(map[string][]func(models.Frame)),
	}
}

// Connect opens the persistent connection, optionally scoped to a room. It is
// a no-op when a connection is already opening or open, and a deliberate skip
// (not an error) when no credential is stored. A failed dial feeds the
// reconnection policy rather than surfacing to the caller.
func (m *Manager) Connect(ctx context.Context, roomID string) error {
	m.mu.Lock()
	if m.state == StateConnecting || m.state == StateOpen {
		m.mu.Unlock()
		return nil
	}
	token := ""
	if m.cfg.Tokens != nil {
		token = m.cfg.Tokens.Token()
	}
	if token == "" {
		log.Printf("chatclient: no stored credential, skipping connect")
		m.mu.Unlock()
		return nil
	}
	m.state = StateConnecting
	m.epoch++
	epoch := m.epoch
	if roomID != "" {
		m.roomID = roomID
	}
	m.senderID = auth.SenderIDFromToken(token)
	target, err := wsTarget(m.cfg.BaseURL, token, m.roomID)
	if err != nil {
		m.state = StateClosed
		m.mu.Unlock()
		return err
	}
	if !m.cleanupRunning {
		m.cleanupRunning = true
		m.quit = make(chan struct{})
		go m.cleanupLoop(m.quit)
	}
	m.mu.Unlock()

	conn, err := m.dialer.Dial(ctx, target)

	m.mu.Lock()
	if m.epoch != epoch || m.state != StateConnecting {
		// Disconnect (or a newer connect) won the race while the dial was
		// in flight; this attempt no longer owns the session.
		m.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return nil
	}
	if err != nil {
		m.mu.Unlock()
		log.Printf("ERROR: chatclient: dial failed: %v", err)
		m.handleClose()
		return nil
	}
	m.conn = conn
	m.state = StateOpen
	m.attempts = 0
	m.mu.Unlock()

	m.fireStatus(true)
	go m.readLoop(conn)
	return nil
}

// Disconnect tears the connection down and resets the manager to its initial
// state. No reconnect is scheduled after an explicit disconnect.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.state = StateIdle
	m.epoch++
	m.roomID = ""
	m.attempts = 0
	m.processed = make(map[string]struct{})
	if m.cleanupRunning {
		close(m.quit)
		m.cleanupRunning = false
	}
	m.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	m.fireStatus(false)
}

// Retry is the manual escape hatch after reconnect attempts are exhausted: it
// resets the attempt counter, drops any stale handle, and connects again
// immediately.
func (m *Manager) Retry(ctx context.Context) error {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.attempts = 0
	if m.state != StateIdle {
		m.state = StateClosed
	}
	m.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	return m.Connect(ctx, "")
}

// IsConnected reports whether the connection is open.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateOpen
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SetForeground records whether the application is foregrounded. This only
// gates notification presentation; the connection itself stays up either way.
func (m *Manager) SetForeground(foreground bool) {
	m.mu.Lock()
	m.foreground = foreground
	m.mu.Unlock()
}

// OnConnectionChange registers a connection-status subscriber.
func (m *Manager) OnConnectionChange(fn func(connected bool)) {
	m.subMu.Lock()
	m.statusSubs = append(m.statusSubs, fn)
	m.subMu.Unlock()
}

// OnTyping registers a typing-indicator subscriber. Only staff typing events
// are ever delivered.
func (m *Manager) OnTyping(fn func(roomID, senderID string, typing bool)) {
	m.subMu.Lock()
	m.typingSubs = append(m.typingSubs, fn)
	m.subMu.Unlock()
}

// Handle registers a handler for a literal frame type that has no built-in
// routing. Frames of unknown types are delivered only to handlers registered
// here.
func (m *Manager) Handle(frameType string, fn func(models.Frame)) {
	m.mu.Lock()
	m.handlers[frameType] = append(m.handlers[frameType], fn)
	m.mu.Unlock()
}

// SendChatMessage transmits a customer message over the open connection. When
// the connection is not open it returns ErrNotConnected and the caller is
// expected to append the message to the local store instead; the manager
// never queues outbound messages.
func (m *Manager) SendChatMessage(text, roomID string) error {
	m.mu.Lock()
	conn := m.conn
	open := m.state == StateOpen
	sender := m.senderID
	m.mu.Unlock()

	if !open || conn == nil {
		return ErrNotConnected
	}
	if sender == "" {
		sender = "anonymous"
	}
	frame := models.Frame{
		Type:       models.FrameChatMessage,
		Message:    text,
		RoomID:     models.FlexID(roomID),
		SenderID:   sender,
		SenderType: string(models.RoleCustomer),
		Timestamp:  time.Now().UnixMilli(),
	}
	return m.writeFrame(conn, frame)
}

// SendTypingIndicator is fire-and-forget: no acknowledgment, no retry. Write
// failures are logged and dropped.
func (m *Manager) SendTypingIndicator(typing bool, roomID string) {
	m.mu.Lock()
	conn := m.conn
	open := m.state == StateOpen
	sender := m.senderID
	m.mu.Unlock()

	if !open || conn == nil {
		return
	}
	frameType := models.FrameTypingStop
	if typing {
		frameType = models.FrameTypingStart
	}
	frame := models.Frame{
		Type:       frameType,
		RoomID:     models.FlexID(roomID),
		SenderID:   sender,
		SenderType: string(models.RoleCustomer),
	}
	if err := m.writeFrame(conn, frame); err != nil {
		log.Printf("chatclient: typing indicator dropped: %v", err)
	}
}

func (m *Manager) writeFrame(conn Conn, frame models.Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (m *Manager) readLoop(conn Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.mu.Lock()
			stale := m.conn != conn
			m.mu.Unlock()
			if stale {
				return
			}
			log.Printf("chatclient: connection closed: %v", err)
			m.handleClose()
			return
		}
		m.handleInbound(data)
	}
}

// handleInbound parses and routes one inbound frame. A parse failure drops
// the frame and nothing else; the connection stays up.
func (m *Manager) handleInbound(data []byte) {
	var frame models.Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		log.Printf("ERROR: chatclient: dropping unparseable frame: %v", err)
		return
	}
	m.route(frame.Flatten())
}

func (m *Manager) route(frame models.Frame) {
	switch frame.Type {
	case models.FrameChatMessage, models.FrameNewMessage:
		m.ingestChatMessage(frame)
	case models.FrameTypingStart, models.FrameTypingStop:
		if models.ParseSenderRole(frame.SenderType).IsStaff() {
			m.fireTyping(m.reconcileRoomID(string(frame.RoomID)), frame.Sender(), frame.Type == models.FrameTypingStart)
		}
	case models.FrameUserJoined, models.FrameUserLeft:
		log.Printf("chatclient: presence %s: %s", frame.Type, frame.Sender())
		m.dispatch(frame)
	default:
		m.dispatch(frame)
	}
}

// dispatch delivers a frame to the handlers registered for its literal type.
func (m *Manager) dispatch(frame models.Frame) {
	m.mu.Lock()
	handlers := append([]func(models.Frame){}, m.handlers[frame.Type]...)
	m.mu.Unlock()
	for _, fn := range handlers {
		fn(frame)
	}
}

// ingestChatMessage deduplicates by message id, normalizes, and hands the
// message to the store. When the app is backgrounded and the sender is staff
// the notifier is asked to present it.
func (m *Manager) ingestChatMessage(frame models.Frame) {
	timestamp := frame.Timestamp
	if timestamp == 0 {
		timestamp = time.Now().UnixMilli()
	}
	id := frame.MessageID
	if id == "" {
		id = fmt.Sprintf("recv-%s-%d", frame.Sender(), timestamp)
	}

	m.mu.Lock()
	if _, seen := m.processed[id]; seen {
		m.mu.Unlock()
		return
	}
	m.processed[id] = struct{}{}
	foreground := m.foreground
	m.mu.Unlock()

	roomID := m.reconcileRoomID(string(frame.RoomID))
	role := models.ParseSenderRole(frame.SenderType)

	m.cfg.Store.AddMessage(models.ChatMessage{
		ID:         id,
		Message:    frame.Message,
		SenderRole: role,
		SenderID:   frame.Sender(),
		SenderName: frame.SenderName,
		RoomID:     roomID,
		Timestamp:  timestamp,
		Read:       false,
		Kind:       models.KindText,
	})

	if !foreground && role.IsStaff() {
		m.notifier.SendChatNotification(frame.SenderName, frame.Message, roomID)
	}
}

// reconcileRoomID resolves the room a frame belongs to. When the manager is
// scoped to a room and the wire disagrees, the session's room wins: the
// backend has been observed pushing frames tagged with the wrong room id.
// A compromise, not a correctness guarantee.
func (m *Manager) reconcileRoomID(wireRoomID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.roomID != "" {
		if wireRoomID != "" && wireRoomID != m.roomID {
			log.Printf("chatclient: overriding frame room %s with session room %s", wireRoomID, m.roomID)
		}
		return m.roomID
	}
	return wireRoomID
}

// handleClose runs the reconnection policy after a transport failure or a
// failed dial. No credential means no reconnect; exhausted attempts leave the
// manager closed until Retry.
func (m *Manager) handleClose() {
	m.mu.Lock()
	if m.state == StateIdle {
		m.mu.Unlock()
		return
	}
	m.conn = nil
	m.state = StateClosed
	token := ""
	if m.cfg.Tokens != nil {
		token = m.cfg.Tokens.Token()
	}
	if token == "" {
		m.mu.Unlock()
		m.fireStatus(false)
		return
	}
	if m.attempts >= m.cfg.MaxAttempts {
		log.Printf("chatclient: reconnect attempts exhausted (%d), waiting for manual retry", m.attempts)
		m.mu.Unlock()
		m.fireStatus(false)
		return
	}
	m.attempts++
	delay := m.backoffDelay(m.attempts)
	m.state = StateReconnecting
	roomID := m.roomID
	m.mu.Unlock()

	m.fireStatus(false)
	log.Printf("chatclient: reconnecting in %v (attempt %d/%d)", delay, m.attemptCount(), m.cfg.MaxAttempts)
	m.after(delay, func() {
		m.mu.Lock()
		if m.state != StateReconnecting {
			m.mu.Unlock()
			return
		}
		m.state = StateClosed
		m.mu.Unlock()
		m.Connect(context.Background(), roomID)
	})
}

// backoffDelay doubles per attempt from the base interval, capped.
func (m *Manager) backoffDelay(attempt int) time.Duration {
	delay := m.cfg.BaseBackoff
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= m.cfg.MaxBackoff {
			return m.cfg.MaxBackoff
		}
	}
	if delay > m.cfg.MaxBackoff {
		delay = m.cfg.MaxBackoff
	}
	return delay
}

func (m *Manager) attemptCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// cleanupLoop periodically clears the processed-id set so it cannot grow
// without bound on a long-lived connection. A message older than the interval
// but still inside the content dedup window could in theory slip through
// after a clear; accepted as-is.
func (m *Manager) cleanupLoop(quit chan struct{}) {
	ticker := time.NewTicker(m.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
			m.mu.Lock()
			m.processed = make(map[string]struct{})
			m.mu.Unlock()
		}
	}
}

func (m *Manager) fireStatus(connected bool) {
	m.subMu.Lock()
	subs := append([]func(bool){}, m.statusSubs...)
	m.subMu.Unlock()
	for _, fn := range subs {
		fn(connected)
	}
}

func (m *Manager) fireTyping(roomID, senderID string, typing bool) {
	m.subMu.Lock()
	subs := append([]func(string, string, bool){}, m.typingSubs...)
	m.subMu.Unlock()
	for _, fn := range subs {
		fn(roomID, senderID, typing)
	}
}

// wsTarget builds the websocket URL from the HTTP base, embedding the bearer
// credential and the optional room id as query parameters.
func wsTarget(baseURL, token, roomID string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	q := u.Query()
	q.Set("token", token)
	if roomID != "" {
		q.Set("room_id", roomID)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
