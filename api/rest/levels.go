package rest

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/stealthguard/cache"
	"github.com/kasuganosora/stealthguard/game/world"
	"github.com/kasuganosora/stealthguard/model"
	"github.com/kasuganosora/stealthguard/scheduler"
	"go.uber.org/zap"
)

const (
	defaultAlertLimit = 20
	maxAlertLimit     = 200
)

// AlertHistory is the persistent alert trail, see audit.Service.
type AlertHistory interface {
	Recent(ctx context.Context, level string, limit int) ([]model.AlertEvent, error)
}

// LevelHandler serves read-only level diagnostics.
type LevelHandler struct {
	wm      *world.WorldManager
	cache   cache.Cache
	history AlertHistory
	logger  *zap.Logger
}

// NewLevelHandler creates a LevelHandler. history may be nil when the
// alert trail is disabled.
func NewLevelHandler(wm *world.WorldManager, c cache.Cache, history AlertHistory, logger *zap.Logger) *LevelHandler {
	return &LevelHandler{wm: wm, cache: c, history: history, logger: logger}
}

type levelInfo struct {
	Name   string `json:"name"`
	Tick   uint64 `json:"tick"`
	Guards int    `json:"guards"`
}

// List handles GET /api/levels.
func (h *LevelHandler) List(c *gin.Context) {
	active := h.wm.Levels()
	out := make([]levelInfo, 0, len(active))
	for _, l := range active {
		out = append(out, levelInfo{Name: l.Name, Tick: l.TickCount(), Guards: len(l.Guards())})
	}
	var available []string
	if res := h.wm.Resources(); res != nil {
		available = res.Names()
	}
	c.JSON(http.StatusOK, gin.H{"levels": out, "available": available})
}

// Snapshot handles GET /api/levels/:name.
func (h *LevelHandler) Snapshot(c *gin.Context) {
	l := h.wm.Get(c.Param("name"))
	if l == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "level not running"})
		return
	}
	c.JSON(http.StatusOK, l.Snapshot())
}

// Grid handles GET /api/levels/:name/grid. A level that is not running is
// served from the last cached dump.
func (h *LevelHandler) Grid(c *gin.Context) {
	name := c.Param("name")
	if l := h.wm.Get(name); l != nil {
		c.String(http.StatusOK, l.GridDump())
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	dump, err := h.cache.Get(ctx, scheduler.GridKey(name))
	if err != nil {
		if !cache.IsNotFound(err) {
			h.logger.Warn("grid cache read failed", zap.String("level", name), zap.Error(err))
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "level not running"})
		return
	}
	c.String(http.StatusOK, dump)
}

// Guards handles GET /api/levels/:name/guards. A level that is not running
// is served from the cached snapshots.
func (h *LevelHandler) Guards(c *gin.Context) {
	name := c.Param("name")
	if l := h.wm.Get(name); l != nil {
		c.JSON(http.StatusOK, gin.H{"level": name, "live": true, "guards": l.GuardSnapshots()})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	guards, err := world.CachedGuards(ctx, h.cache, name)
	if err != nil {
		h.logger.Warn("guard cache read failed", zap.String("level", name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cache error"})
		return
	}
	if len(guards) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "level not running"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"level": name, "live": false, "guards": guards})
}

// Alerts handles GET /api/levels/:name/alerts?limit=N. It returns the cached
// recent feed and, when enabled, the stored history.
func (h *LevelHandler) Alerts(c *gin.Context) {
	name := c.Param("name")
	limit := defaultAlertLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = min(n, maxAlertLimit)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	recent, err := world.RecentAlerts(ctx, h.cache, name, limit)
	if err != nil {
		h.logger.Warn("recent alerts read failed", zap.String("level", name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cache error"})
		return
	}
	resp := gin.H{"level": name, "recent": recent}
	if h.history != nil {
		events, err := h.history.Recent(ctx, name, limit)
		if err != nil {
			h.logger.Warn("alert history query failed", zap.String("level", name), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		resp["history"] = events
	}
	c.JSON(http.StatusOK, resp)
}
