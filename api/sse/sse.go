package sse

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/stealthguard/cache"
	"github.com/kasuganosora/stealthguard/game/world"
	mw "github.com/kasuganosora/stealthguard/middleware"
	"go.uber.org/zap"
)

const keepAliveInterval = 30 * time.Second

// Handler streams guard alerts as server-sent events.
type Handler struct {
	pubsub    cache.PubSub
	keepAlive time.Duration
	logger    *zap.Logger
}

// NewHandler creates a new SSE Handler.
func NewHandler(pubsub cache.PubSub, logger *zap.Logger) *Handler {
	return &Handler{pubsub: pubsub, keepAlive: keepAliveInterval, logger: logger}
}

// ServeSSE handles GET /sse?token=<jwt>[&level=<name>].
// It must run behind middleware.ObserverAuth. Alerts are filtered to the
// requested level and to the levels the token may watch.
func (h *Handler) ServeSSE(c *gin.Context) {
	claims := mw.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	level := c.Query("level")

	subCtx, subCancel := context.WithCancel(c.Request.Context())
	defer subCancel()

	msgCh, unsub, err := h.pubsub.Subscribe(subCtx, world.AlertChannel)
	if err != nil {
		h.logger.Error("sse subscribe failed", zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	defer unsub()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	fmt.Fprintf(c.Writer, "event: connected\ndata: {\"observer\":%q}\n\n", claims.Observer)
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			a, err := world.ParseAlert(msg.Payload)
			if err != nil {
				h.logger.Warn("sse dropped malformed alert", zap.Error(err))
				continue
			}
			if (level != "" && a.Level != level) || !claims.CanWatch(a.Level) {
				continue
			}
			fmt.Fprintf(c.Writer, "event: alert\ndata: %s\n\n", msg.Payload)
			c.Writer.Flush()

		case <-ticker.C:
			// Keepalive comment to prevent proxy timeouts.
			fmt.Fprintf(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()

		case <-c.Request.Context().Done():
			return
		}
	}
}
