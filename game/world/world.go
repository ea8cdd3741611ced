package world

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/kasuganosora/stealthguard/resource"
	"go.uber.org/zap"
)

// ErrUnknownLevel is returned when no definition exists for a level name.
var ErrUnknownLevel = errors.New("world: unknown level")

// WorldManager manages all running Level instances.
type WorldManager struct {
	mu     sync.RWMutex
	levels map[string]*Level
	res    *resource.ResourceLoader
	cfg    LevelConfig
	sink   AlertSink
	logger *zap.Logger
}

// NewWorldManager creates a new WorldManager.
func NewWorldManager(res *resource.ResourceLoader, cfg LevelConfig, sink AlertSink, logger *zap.Logger) *WorldManager {
	return &WorldManager{
		levels: make(map[string]*Level),
		res:    res,
		cfg:    cfg,
		sink:   sink,
		logger: logger,
	}
}

// Resources returns the level definitions the manager builds from.
func (wm *WorldManager) Resources() *resource.ResourceLoader { return wm.res }

// GetOrCreate returns the running level called name, building and starting
// it if needed.
func (wm *WorldManager) GetOrCreate(name string) (*Level, error) {
	// Fast path: level already running.
	wm.mu.RLock()
	l, ok := wm.levels[name]
	wm.mu.RUnlock()
	if ok {
		return l, nil
	}

	wm.mu.Lock()
	defer wm.mu.Unlock()
	if l, ok = wm.levels[name]; ok {
		return l, nil
	}
	def := wm.res.Level(name)
	if def == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLevel, name)
	}
	l, err := NewLevel(def, wm.cfg, wm.sink, wm.logger)
	if err != nil {
		return nil, err
	}
	wm.levels[name] = l
	go l.Run()
	wm.logger.Info("level started",
		zap.String("level", name),
		zap.Int("guards", len(def.Guards)))
	return l, nil
}

// Get returns the running level called name, or nil.
func (wm *WorldManager) Get(name string) *Level {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	return wm.levels[name]
}

// Destroy stops and removes the level called name.
func (wm *WorldManager) Destroy(name string) {
	wm.mu.Lock()
	l, ok := wm.levels[name]
	if ok {
		delete(wm.levels, name)
	}
	wm.mu.Unlock()
	if ok {
		l.Stop()
		wm.logger.Info("level stopped", zap.String("level", name))
	}
}

// ActiveLevelCount returns the number of running levels.
func (wm *WorldManager) ActiveLevelCount() int {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	return len(wm.levels)
}

// Levels returns the running levels sorted by name.
func (wm *WorldManager) Levels() []*Level {
	wm.mu.RLock()
	out := make([]*Level, 0, len(wm.levels))
	for _, l := range wm.levels {
		out = append(out, l)
	}
	wm.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// StopAll stops all running levels (used at server shutdown).
func (wm *WorldManager) StopAll() {
	wm.mu.Lock()
	levels := make([]*Level, 0, len(wm.levels))
	for _, l := range wm.levels {
		levels = append(levels, l)
	}
	wm.levels = make(map[string]*Level)
	wm.mu.Unlock()
	for _, l := range levels {
		l.Stop()
	}
}
