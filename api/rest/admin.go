package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/stealthguard/game/geom"
	"github.com/kasuganosora/stealthguard/game/world"
	"github.com/kasuganosora/stealthguard/scheduler"
	"go.uber.org/zap"
)

// AdminHandler handles admin-only REST endpoints.
// Routes should be protected by AdminAuth middleware.
type AdminHandler struct {
	wm     *world.WorldManager
	sched  *scheduler.Scheduler
	logger *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(wm *world.WorldManager, sched *scheduler.Scheduler, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{wm: wm, sched: sched, logger: logger}
}

type pointRequest struct {
	X *float64 `json:"x" binding:"required"`
	Y *float64 `json:"y" binding:"required"`
}

func (p pointRequest) vec() geom.Vec2 { return geom.Vec2{X: *p.X, Y: *p.Y} }

// level resolves :name to a running level or writes 404.
func (h *AdminHandler) level(c *gin.Context) *world.Level {
	l := h.wm.Get(c.Param("name"))
	if l == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "level not running"})
	}
	return l
}

// Metrics returns server health metrics.
// GET /api/admin/metrics
func (h *AdminHandler) Metrics(c *gin.Context) {
	modes := map[string]int{}
	guards := 0
	for _, l := range h.wm.Levels() {
		for _, gs := range l.GuardSnapshots() {
			modes[gs.Mode]++
			guards++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"active_levels":   h.wm.ActiveLevelCount(),
		"guards":          guards,
		"guard_modes":     modes,
		"scheduler_tasks": h.sched.ListTickers(),
	})
}

// ListSchedulerTasks returns names of all registered ticker tasks.
// GET /api/admin/scheduler
func (h *AdminHandler) ListSchedulerTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": h.sched.ListTickers()})
}

// StartLevel builds and runs a level from its definition.
// POST /api/admin/levels/:name/start
func (h *AdminHandler) StartLevel(c *gin.Context) {
	name := c.Param("name")
	l, err := h.wm.GetOrCreate(name)
	if err != nil {
		if errors.Is(err, world.ErrUnknownLevel) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown level"})
			return
		}
		h.logger.Warn("admin start level failed", zap.String("level", name), zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "level": l.Name})
}

// StopLevel stops a running level.
// DELETE /api/admin/levels/:name
func (h *AdminHandler) StopLevel(c *gin.Context) {
	if l := h.level(c); l != nil {
		h.wm.Destroy(l.Name)
		h.logger.Info("admin stopped level", zap.String("level", l.Name))
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// Meow injects a sound stimulus for the next tick.
// POST /api/admin/levels/:name/meow {"x":..,"y":..}
func (h *AdminHandler) Meow(c *gin.Context) {
	var req pointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if l := h.level(c); l != nil {
		l.Meow(req.vec())
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// Blind denies vision on every camera of the level.
// POST /api/admin/levels/:name/blind
func (h *AdminHandler) Blind(c *gin.Context) {
	if l := h.level(c); l != nil {
		n := l.BlindCameras()
		h.logger.Info("admin blinded cameras", zap.String("level", l.Name), zap.Int("cameras", n))
		c.JSON(http.StatusOK, gin.H{"ok": true, "cameras": n, "ticks": world.MaxBlindTicks})
	}
}

// Reset rebuilds the level from its definition.
// POST /api/admin/levels/:name/reset
func (h *AdminHandler) Reset(c *gin.Context) {
	l := h.level(c)
	if l == nil {
		return
	}
	if err := l.Reset(); err != nil {
		h.logger.Error("admin reset failed", zap.String("level", l.Name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reset failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// MoveTarget teleports a target and optionally makes it the active one.
// POST /api/admin/levels/:name/targets/:index {"x":..,"y":..,"active":bool}
func (h *AdminHandler) MoveTarget(c *gin.Context) {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid index"})
		return
	}
	var req struct {
		pointRequest
		Active bool `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	l := h.level(c)
	if l == nil {
		return
	}
	if err := l.MoveTarget(idx, req.vec()); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if req.Active {
		if err := l.SetActiveTarget(idx); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
