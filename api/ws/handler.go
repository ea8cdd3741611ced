package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/kasuganosora/stealthguard/config"
	"github.com/kasuganosora/stealthguard/game/world"
	mw "github.com/kasuganosora/stealthguard/middleware"
	"go.uber.org/zap"
)

const defaultStreamInterval = 100 * time.Millisecond

// Handler is the Gin handler for GET /ws.
type Handler struct {
	wm       *world.WorldManager
	router   *Router
	interval time.Duration
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a new WebSocket Handler.
// sec.AllowedOrigins controls which WebSocket origins are accepted.
// An empty slice permits all origins (development only).
func NewHandler(sec config.SecurityConfig, wm *world.WorldManager, router *Router, interval time.Duration, logger *zap.Logger) *Handler {
	if interval <= 0 {
		interval = defaultStreamInterval
	}
	h := &Handler{
		wm:       wm,
		router:   router,
		interval: interval,
		logger:   logger,
	}
	allowed := sec.AllowedOrigins
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true // dev mode: allow all
			}
			origin := r.Header.Get("Origin")
			for _, o := range allowed {
				if o == origin {
					return true
				}
			}
			return false
		},
	}
	return h
}

// ServeWS handles GET /ws?token=<jwt>&level=<name>. It must run behind
// middleware.ObserverAuth. A level-scoped token may omit the level.
func (h *Handler) ServeWS(c *gin.Context) {
	claims := mw.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	level := c.Query("level")
	if level == "" {
		level = claims.Level
	}
	if level == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing level"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	s := NewSession(claims.Observer, level, conn, h.logger)
	s.Scope = claims.Level
	h.logger.Info("observer connected",
		zap.String("session", s.ID),
		zap.String("observer", s.Observer),
		zap.String("level", level))

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go h.stream(s)
	h.readPump(ctx, s)
}

// stream pushes a snapshot of the session's level every interval until the
// session closes. A level that is not running is reported once.
func (h *Handler) stream(s *Session) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	down := ""
	for {
		select {
		case <-ticker.C:
			level := s.Level()
			l := h.wm.Get(level)
			if l == nil {
				if down != level {
					s.Send("error", ErrorPayload{Level: level, Error: errLevelNotRunning.Error()})
					down = level
				}
				continue
			}
			down = ""
			s.Send("snapshot", l.Snapshot())
		case <-s.Done:
			return
		}
	}
}

// readPump reads messages from the WebSocket connection and dispatches them.
func (h *Handler) readPump(ctx context.Context, s *Session) {
	defer func() {
		s.Close()
		h.logger.Info("observer disconnected",
			zap.String("session", s.ID),
			zap.String("observer", s.Observer))
	}()

	s.setReadDeadline()
	s.Conn.SetPongHandler(func(string) error {
		s.setReadDeadline()
		return nil
	})

	for {
		_, raw, err := s.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseNoStatusReceived) {
				h.logger.Warn("ws unexpected close",
					zap.String("session", s.ID),
					zap.Error(err))
			}
			return
		}
		s.setReadDeadline()
		h.router.Dispatch(ctx, s, raw)
	}
}
