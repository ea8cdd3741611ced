package scheduler

import (
	"context"

	"github.com/kasuganosora/stealthguard/cache"
	"github.com/kasuganosora/stealthguard/game/world"
	"go.uber.org/zap"
)

const (
	TaskSnapshotCache = "snapshot_cache"
	TaskGridDump      = "grid_dump"
)

// GridKey is the cache key holding the text dump of a level's grid.
func GridKey(level string) string { return "grid:" + level }

// SnapshotCache writes every active level's guard snapshots to the cache.
func SnapshotCache(wm *world.WorldManager, c cache.Cache, logger *zap.Logger) TaskFn {
	return func(ctx context.Context) {
		for _, l := range wm.Levels() {
			if err := l.CacheSnapshots(ctx, c); err != nil {
				logger.Warn("snapshot cache failed", zap.String("level", l.Name), zap.Error(err))
			}
		}
	}
}

// GridDump logs each active level's grid at Debug and stores it in the cache.
// The grid is static per level, so the dump only changes across resets.
func GridDump(wm *world.WorldManager, c cache.Cache, logger *zap.Logger) TaskFn {
	return func(ctx context.Context) {
		for _, l := range wm.Levels() {
			dump := l.GridDump()
			logger.Debug("grid", zap.String("level", l.Name), zap.String("dump", dump))
			if err := c.Set(ctx, GridKey(l.Name), dump, world.SnapshotTTL); err != nil {
				logger.Warn("grid dump cache failed", zap.String("level", l.Name), zap.Error(err))
			}
		}
	}
}
