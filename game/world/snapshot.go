package world

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/kasuganosora/stealthguard/cache"
)

// GuardSnapshot is the observable state of one guard.
type GuardSnapshot struct {
	ID            string  `json:"id"`
	Mode          string  `json:"mode"`
	Agroed        bool    `json:"agroed"`
	Meowed        bool    `json:"meowed"`
	CameraAlerted bool    `json:"camera_alerted"`
	ChaseTimer    int     `json:"chase_timer"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Angle         float64 `json:"angle"`
	HasTarget     bool    `json:"has_target"`
	TargetX       float64 `json:"target_x,omitempty"`
	TargetY       float64 `json:"target_y,omitempty"`
	PatrolIndex   int     `json:"patrol_index"`
}

type TargetSnapshot struct {
	Name   string  `json:"name"`
	Active bool    `json:"active"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type CameraSnapshot struct {
	ID         string  `json:"id"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Radius     float64 `json:"radius"`
	Blinded    bool    `json:"blinded"`
	BlindTimer int     `json:"blind_timer"`
}

// Snapshot is the observable state of a level at one tick.
type Snapshot struct {
	Level   string           `json:"level"`
	Tick    uint64           `json:"tick"`
	Guards  []GuardSnapshot  `json:"guards"`
	Targets []TargetSnapshot `json:"targets"`
	Cameras []CameraSnapshot `json:"cameras"`
}

// GuardSnapshots returns the state of every guard.
func (l *Level) GuardSnapshots() []GuardSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.guardSnapshots()
}

func (l *Level) guardSnapshots() []GuardSnapshot {
	out := make([]GuardSnapshot, 0, len(l.guards))
	for _, g := range l.guards {
		st := g.ctrl.State()
		pos := g.Body.Position()
		gs := GuardSnapshot{
			ID:            g.ID,
			Mode:          st.Mode.String(),
			Agroed:        st.Agroed(),
			Meowed:        st.Meowed(),
			CameraAlerted: st.Camera(),
			ChaseTimer:    st.ChaseTimer,
			X:             pos.X,
			Y:             pos.Y,
			Angle:         g.Body.Angle(),
			HasTarget:     st.HasTarget(),
			PatrolIndex:   g.ctrl.Route().Index(),
		}
		if gs.HasTarget {
			gs.TargetX, gs.TargetY = st.Target.X, st.Target.Y
		}
		out = append(out, gs)
	}
	return out
}

// Snapshot captures guards, targets and cameras under one lock.
func (l *Level) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s := Snapshot{
		Level:   l.Name,
		Tick:    l.tick,
		Guards:  l.guardSnapshots(),
		Targets: make([]TargetSnapshot, 0, len(l.targets)),
		Cameras: make([]CameraSnapshot, 0, len(l.cameras)),
	}
	for i, t := range l.targets {
		p := t.Body.Position()
		s.Targets = append(s.Targets, TargetSnapshot{Name: t.Name, Active: i == l.active, X: p.X, Y: p.Y})
	}
	for _, c := range l.cameras {
		s.Cameras = append(s.Cameras, CameraSnapshot{
			ID:         c.ID,
			X:          c.Position.X,
			Y:          c.Position.Y,
			Radius:     c.Radius,
			Blinded:    c.Blinded(),
			BlindTimer: c.BlindTimer(),
		})
	}
	return s
}

// GuardKey is the cache hash holding the latest guard snapshots of a level.
func GuardKey(level string) string { return "guard:" + level }

// SnapshotTTL bounds how long a stopped level's guards stay readable.
const SnapshotTTL = time.Hour

// CacheSnapshots replaces the level's hash with the current guard snapshots,
// one JSON field per guard.
func (l *Level) CacheSnapshots(ctx context.Context, c cache.Cache) error {
	snaps := l.GuardSnapshots()
	fields := make(map[string]string, len(snaps))
	for _, gs := range snaps {
		data, err := json.Marshal(gs)
		if err != nil {
			return fmt.Errorf("encode guard %s: %w", gs.ID, err)
		}
		fields[gs.ID] = string(data)
	}
	return c.ReplaceHash(ctx, GuardKey(l.Name), fields, SnapshotTTL)
}

// CachedGuards reads back what CacheSnapshots stored, ordered by guard id.
func CachedGuards(ctx context.Context, c cache.Cache, level string) ([]GuardSnapshot, error) {
	all, err := c.HGetAll(ctx, GuardKey(level))
	if err != nil {
		return nil, err
	}
	out := make([]GuardSnapshot, 0, len(all))
	for id, raw := range all {
		var gs GuardSnapshot
		if err := json.Unmarshal([]byte(raw), &gs); err != nil {
			return nil, fmt.Errorf("decode guard %s: %w", id, err)
		}
		out = append(out, gs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
