package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kasuganosora/stealthguard/game/world"
	"go.uber.org/zap"
)

var (
	errLevelNotRunning = errors.New("level not running")
	errLevelForbidden  = errors.New("level not permitted")
)

// LevelHandlers answers observer requests about levels.
type LevelHandlers struct {
	wm     *world.WorldManager
	logger *zap.Logger
}

// NewLevelHandlers creates LevelHandlers.
func NewLevelHandlers(wm *world.WorldManager, logger *zap.Logger) *LevelHandlers {
	return &LevelHandlers{wm: wm, logger: logger}
}

// RegisterHandlers registers all level message handlers on the router.
func (lh *LevelHandlers) RegisterHandlers(r *Router) {
	r.On("ping", lh.HandlePing)
	r.On("subscribe", lh.HandleSubscribe)
	r.On("snapshot", lh.HandleSnapshot)
	r.On("grid", lh.HandleGrid)
}

// HandlePing answers with the observer's current level.
func (lh *LevelHandlers) HandlePing(_ context.Context, s *Session, _ json.RawMessage) error {
	s.Send("pong", map[string]string{"level": s.Level()})
	return nil
}

type subscribeReq struct {
	Level string `json:"level"`
}

// HandleSubscribe switches the streamed level and answers with a snapshot.
func (lh *LevelHandlers) HandleSubscribe(ctx context.Context, s *Session, raw json.RawMessage) error {
	var req subscribeReq
	if err := json.Unmarshal(raw, &req); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	if req.Level == "" {
		return errors.New("subscribe: missing level")
	}
	if !s.CanWatch(req.Level) {
		return errLevelForbidden
	}
	s.SetLevel(req.Level)
	lh.logger.Debug("observer switched level",
		zap.String("session", s.ID),
		zap.String("level", req.Level),
		zap.String("trace_id", TraceIDFromCtx(ctx)))
	return lh.HandleSnapshot(ctx, s, nil)
}

// HandleSnapshot sends the current snapshot without waiting for the stream.
func (lh *LevelHandlers) HandleSnapshot(_ context.Context, s *Session, _ json.RawMessage) error {
	l := lh.wm.Get(s.Level())
	if l == nil {
		return errLevelNotRunning
	}
	s.Send("snapshot", l.Snapshot())
	return nil
}

// HandleGrid sends the text dump of the current level's grid.
func (lh *LevelHandlers) HandleGrid(_ context.Context, s *Session, _ json.RawMessage) error {
	l := lh.wm.Get(s.Level())
	if l == nil {
		return errLevelNotRunning
	}
	s.Send("grid", map[string]string{"level": l.Name, "dump": l.GridDump()})
	return nil
}
