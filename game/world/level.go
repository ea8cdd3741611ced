package world

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/kasuganosora/stealthguard/game/ai"
	"github.com/kasuganosora/stealthguard/game/geom"
	"github.com/kasuganosora/stealthguard/game/grid"
	"github.com/kasuganosora/stealthguard/resource"
	"go.uber.org/zap"
)

const defaultTickInterval = time.Second / 60

// ErrNoTarget is returned when a target index does not exist.
var ErrNoTarget = errors.New("world: no such target")

// LevelConfig holds the simulation settings shared by every level.
type LevelConfig struct {
	Params       ai.Params
	TickInterval time.Duration
}

// Guard is a guard entity: a physics body driven by a controller.
type Guard struct {
	ID    string
	Body  Body
	Force float64
	ctrl  *ai.Controller
}

func (g *Guard) Controller() *ai.Controller { return g.ctrl }

// Target is a detectable actor.
type Target struct {
	Name string
	Body Body
}

// Level runs one level instance with its own game loop.
type Level struct {
	Name string

	def     *resource.LevelDef
	cfg     LevelConfig
	grid    *grid.Grid
	guards  []*Guard
	targets []*Target
	active  int
	cameras []*SecurityCamera
	sounds  []geom.Vec2
	tick    uint64

	sink   AlertSink
	mu     sync.RWMutex
	stopCh chan struct{}
	logger *zap.Logger
}

// NewLevel builds a level from its definition but does not start the loop.
// A degenerate grid is reported as an error wrapping grid.ErrConfiguration.
func NewLevel(def *resource.LevelDef, cfg LevelConfig, sink AlertSink, logger *zap.Logger) (*Level, error) {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTickInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Level{
		Name:   def.Name,
		def:    def,
		cfg:    cfg,
		sink:   sink,
		stopCh: make(chan struct{}),
		logger: logger.With(zap.String("level", def.Name)),
	}
	if err := l.build(); err != nil {
		return nil, err
	}
	return l, nil
}

// build derives the grid and every entity from the definition.
func (l *Level) build() error {
	g, err := grid.Build(l.def.Bounds.Rect(), l.def.Scale.Vec(), l.def.CellsPerUnit, l.def.WallRects())
	if err != nil {
		return fmt.Errorf("level %s: %w", l.def.Name, err)
	}
	guards := make([]*Guard, 0, len(l.def.Guards))
	for _, gd := range l.def.Guards {
		route := ai.NewPatrolRoute(gd.PatrolPoints())
		guards = append(guards, &Guard{
			ID:    gd.ID,
			Body:  NewKinematicBody(gd.Position.Vec(), gd.Facing*math.Pi/180),
			Force: gd.Force,
			ctrl:  ai.NewController(gd.ID, route, l.cfg.Params, l.logger),
		})
	}
	targets := make([]*Target, 0, len(l.def.Targets))
	for _, td := range l.def.Targets {
		targets = append(targets, &Target{Name: td.Name, Body: NewKinematicBody(td.Position.Vec(), 0)})
	}
	cameras := make([]*SecurityCamera, 0, len(l.def.Cameras))
	for _, cd := range l.def.Cameras {
		cameras = append(cameras, &SecurityCamera{ID: cd.ID, Position: cd.Position.Vec(), Radius: cd.Radius})
	}

	l.grid = g
	l.guards = guards
	l.targets = targets
	l.cameras = cameras
	l.active = 0
	l.sounds = nil
	l.tick = 0
	return nil
}

// Run starts the fixed-rate game loop. Call in a goroutine.
func (l *Level) Run() {
	ticker := time.NewTicker(l.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.Tick()
		case <-l.stopCh:
			return
		}
	}
}

// Stop signals the game loop to exit.
func (l *Level) Stop() {
	select {
	case <-l.stopCh:
	default:
		close(l.stopCh)
	}
}

// StopChan returns a channel that is closed when this level is stopped.
func (l *Level) StopChan() <-chan struct{} {
	return l.stopCh
}

// Tick advances the simulation by one step and returns the alerts it raised.
// Guards are resolved one after another; each owns its search marks.
func (l *Level) Tick() []Alert {
	l.mu.Lock()
	l.tick++
	for _, c := range l.cameras {
		c.Tick()
	}
	stimuli := l.stimuli()
	l.sounds = l.sounds[:0]

	var alerts []Alert
	for _, g := range l.guards {
		prev := g.ctrl.State()
		ctx := &ai.TickContext{
			Tick:     l.tick,
			Grid:     l.grid,
			Position: g.Body.Position(),
			Angle:    g.Body.Angle(),
			Force:    g.Force,
			Stimuli:  stimuli,
		}
		cmd, tr := g.ctrl.Tick(ctx)
		g.Body.SetAngle(cmd.Angle)
		if cmd.Moving {
			g.Body.ApplyForce(cmd.Force)
		}
		if tr.Changed() || tr.Camera != prev.Camera() {
			alerts = append(alerts, Alert{
				Level:   l.Name,
				GuardID: g.ID,
				From:    tr.From.String(),
				To:      tr.To.String(),
				Cause:   string(tr.Cause),
				Camera:  tr.Camera,
				TargetX: tr.Target.X,
				TargetY: tr.Target.Y,
				Tick:    l.tick,
				At:      time.Now(),
			})
		}
	}
	l.integrate()
	l.mu.Unlock()

	if l.sink != nil {
		for _, a := range alerts {
			l.sink.PublishAlert(a)
		}
	}
	return alerts
}

// stimuli collects this tick's external events. Only the active target
// can trip a camera; the view cone checks the active target first.
func (l *Level) stimuli() ai.Stimuli {
	var st ai.Stimuli
	if n := len(l.sounds); n > 0 {
		s := l.sounds[n-1]
		st.Sound = &s
	}
	if len(l.targets) == 0 {
		return st
	}
	active := l.targets[l.active].Body.Position()
	for _, c := range l.cameras {
		if !c.Contains(active) {
			continue
		}
		p := active
		st.Sensor = &p
		if !c.Blinded() {
			st.VisionDenied = false
			break
		}
		st.VisionDenied = true
	}
	st.Targets = make([]geom.Vec2, 0, len(l.targets))
	st.Targets = append(st.Targets, active)
	for i, t := range l.targets {
		if i != l.active {
			st.Targets = append(st.Targets, t.Body.Position())
		}
	}
	return st
}

func (l *Level) integrate() {
	dt := l.cfg.TickInterval.Seconds()
	for _, g := range l.guards {
		if s, ok := g.Body.(stepper); ok {
			s.Step(dt, l.blocked)
		}
	}
	for _, t := range l.targets {
		if s, ok := t.Body.(stepper); ok {
			s.Step(dt, l.blocked)
		}
	}
}

func (l *Level) blocked(p geom.Vec2) bool {
	if !l.grid.Bounds().Contains(p) {
		return true
	}
	x, y := l.grid.WorldToGrid(p)
	return l.grid.IsWall(x, y)
}

// Meow queues a sound alert at pos for the next tick. When several sounds
// arrive in one tick the latest wins.
func (l *Level) Meow(pos geom.Vec2) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sounds = append(l.sounds, pos)
}

// BlindCameras blinds every camera and returns how many there are.
func (l *Level) BlindCameras() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.cameras {
		c.Blind()
	}
	return len(l.cameras)
}

// MoveTarget teleports target i. Bodies other than KinematicBody are
// pushed towards pos instead.
func (l *Level) MoveTarget(i int, pos geom.Vec2) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i < 0 || i >= len(l.targets) {
		return fmt.Errorf("%w: %d", ErrNoTarget, i)
	}
	b := l.targets[i].Body
	if kb, ok := b.(*KinematicBody); ok {
		kb.SetPosition(pos)
		return nil
	}
	b.ApplyForce(pos.Sub(b.Position()))
	return nil
}

// SetActiveTarget switches which target is the active avatar.
func (l *Level) SetActiveTarget(i int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i < 0 || i >= len(l.targets) {
		return fmt.Errorf("%w: %d", ErrNoTarget, i)
	}
	l.active = i
	return nil
}

// Reset rebuilds the grid and all entities from the level definition.
func (l *Level) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.build(); err != nil {
		return err
	}
	l.logger.Info("level reset")
	return nil
}

// GridDump renders the wall map for diagnostics.
func (l *Level) GridDump() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.grid.Dump()
}

// Grid returns the level grid. It must be treated as read-only.
func (l *Level) Grid() *grid.Grid {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.grid
}

// TickCount returns the number of ticks since the last (re)build.
func (l *Level) TickCount() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tick
}

// Guards returns the guard entities. Callers must not tick them.
func (l *Level) Guards() []*Guard {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]*Guard(nil), l.guards...)
}
