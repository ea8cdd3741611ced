package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// dispatchTimeout bounds a single handler call.
const dispatchTimeout = 5 * time.Second

// HandlerFunc processes a decoded WS message payload.
type HandlerFunc func(ctx context.Context, s *Session, payload json.RawMessage) error

// ErrorPayload is the body of every "error" packet.
type ErrorPayload struct {
	Type  string `json:"type,omitempty"`
	Level string `json:"level,omitempty"`
	Error string `json:"error"`
}

// Router dispatches incoming WS packets to registered handlers.
type Router struct {
	handlers map[string]HandlerFunc
	logger   *zap.Logger
}

// NewRouter creates a new Router.
func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
	}
}

// On registers a HandlerFunc for the given message type.
func (r *Router) On(msgType string, fn HandlerFunc) {
	r.handlers[msgType] = fn
}

// Dispatch decodes raw bytes, validates seq, and invokes the appropriate
// handler under ctx. Anything the observer got wrong comes back as an
// "error" packet; replays are dropped silently.
func (r *Router) Dispatch(ctx context.Context, s *Session, raw []byte) {
	var pkt Packet
	if err := json.Unmarshal(raw, &pkt); err != nil {
		r.logger.Debug("malformed packet", zap.String("session", s.ID), zap.Error(err))
		s.Send("error", ErrorPayload{Error: "malformed packet"})
		return
	}

	// Monotonic seq check. Seq == 0 means no seq tracking.
	if pkt.Seq != 0 && pkt.Seq <= s.LastSeq {
		r.logger.Debug("replayed or out-of-order packet",
			zap.String("session", s.ID),
			zap.Uint64("seq", pkt.Seq),
			zap.Uint64("last_seq", s.LastSeq))
		return
	}
	if pkt.Seq != 0 {
		s.LastSeq = pkt.Seq
	}

	if !s.allow() {
		s.Send("error", ErrorPayload{Type: pkt.Type, Error: "rate limited"})
		return
	}

	fn, ok := r.handlers[pkt.Type]
	if !ok {
		r.logger.Debug("unhandled message type",
			zap.String("type", pkt.Type),
			zap.String("session", s.ID))
		s.Send("error", ErrorPayload{Type: pkt.Type, Error: "unknown message type"})
		return
	}

	s.TraceID = uuid.NewString()
	ctx, cancel := context.WithTimeout(context.WithValue(ctx, ctxKeyTraceID{}, s.TraceID), dispatchTimeout)
	defer cancel()

	if err := fn(ctx, s, pkt.Payload); err != nil {
		r.logger.Debug("handler error",
			zap.String("type", pkt.Type),
			zap.String("session", s.ID),
			zap.String("trace_id", s.TraceID),
			zap.Error(err))
		s.Send("error", ErrorPayload{Type: pkt.Type, Error: err.Error()})
	}
}

type ctxKeyTraceID struct{}

// TraceIDFromCtx extracts the trace ID from a handler context.
func TraceIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyTraceID{}).(string); ok {
		return v
	}
	return ""
}
