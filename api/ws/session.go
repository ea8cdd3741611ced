package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	sendChanBuf   = 64
	writeDeadline = 10 * time.Second
	readDeadline  = 60 * time.Second
	pingInterval  = 30 * time.Second

	// Observer requests per second, and the burst allowed on top.
	msgRate  = 20
	msgBurst = 40
)

// Packet is the unified WS message envelope.
type Packet struct {
	Seq     uint64          `json:"seq"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Session is one connected observer. Conn may be nil in tests.
type Session struct {
	ID       string
	Observer string
	// Scope is the only level the observer token may watch; empty means any.
	Scope    string
	Conn     *websocket.Conn
	SendChan chan []byte
	Done     chan struct{}
	TraceID  string
	LastSeq  uint64

	mu      sync.Mutex
	level   string
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewSession creates a Session watching level and starts its write loop.
func NewSession(observer, level string, conn *websocket.Conn, logger *zap.Logger) *Session {
	s := newSession(observer, level, logger)
	s.Conn = conn
	s.Throttle(msgRate, msgBurst)
	go s.writePump()
	return s
}

func newSession(observer, level string, logger *zap.Logger) *Session {
	return &Session{
		ID:       uuid.NewString(),
		Observer: observer,
		SendChan: make(chan []byte, sendChanBuf),
		Done:     make(chan struct{}),
		level:    level,
		logger:   logger,
	}
}

// Level returns the level currently streamed to the observer.
func (s *Session) Level() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

// CanWatch reports whether the observer may stream level.
func (s *Session) CanWatch(level string) bool {
	return s.Scope == "" || s.Scope == level
}

// Throttle limits how many packets the observer may send. Sessions
// without a limiter are not throttled.
func (s *Session) Throttle(r rate.Limit, burst int) {
	s.limiter = rate.NewLimiter(r, burst)
}

func (s *Session) allow() bool {
	return s.limiter == nil || s.limiter.Allow()
}

// SetLevel switches the streamed level.
func (s *Session) SetLevel(level string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level = level
}

// writePump drains SendChan and writes to the WebSocket connection.
// Also sends periodic WebSocket pings to detect dead connections quickly.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer s.Conn.Close()
	for {
		select {
		case data := <-s.SendChan:
			_ = s.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := s.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Debug("ws write error", zap.String("session", s.ID), zap.Error(err))
				s.Close()
				return
			}
		case <-ticker.C:
			_ = s.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := s.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.Close()
				return
			}
		case <-s.Done:
			_ = s.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Send encodes a packet and queues it without blocking. Snapshots are
// periodic, so a packet that does not fit is dropped.
func (s *Session) Send(msgType string, payload interface{}) {
	if s.IsClosed() {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("ws marshal payload", zap.String("type", msgType), zap.Error(err))
		return
	}
	data, err := json.Marshal(&Packet{Type: msgType, Payload: raw})
	if err != nil {
		return
	}
	select {
	case s.SendChan <- data:
	case <-s.Done:
	default:
		s.logger.Debug("send channel full, dropping packet",
			zap.String("session", s.ID),
			zap.String("type", msgType))
	}
}

// Close signals the writePump to shut down. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.Done:
	default:
		close(s.Done)
	}
}

// IsClosed returns true if the session has been closed.
func (s *Session) IsClosed() bool {
	select {
	case <-s.Done:
		return true
	default:
		return false
	}
}

func (s *Session) setReadDeadline() {
	_ = s.Conn.SetReadDeadline(time.Now().Add(readDeadline))
}
