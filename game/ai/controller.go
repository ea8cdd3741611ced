package ai

import (
	"github.com/kasuganosora/stealthguard/game/geom"
	"github.com/kasuganosora/stealthguard/game/grid"
	"go.uber.org/zap"
)

// Controller runs the guard state machine for one guard. It owns the
// guard's alert state, its patrol route, and private path search marks.
type Controller struct {
	id     string
	params Params
	route  *PatrolRoute
	state  State
	logger *zap.Logger

	scratch     *grid.Scratch
	scratchGrid *grid.Grid
}

// NewController creates a patrolling guard controller. A nil route means
// the guard holds position while patrolling.
func NewController(id string, route *PatrolRoute, p Params, logger *zap.Logger) *Controller {
	if route == nil {
		route = NewPatrolRoute(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		id:     id,
		params: p,
		route:  route,
		logger: logger.With(zap.String("guard_id", id)),
	}
}

func (c *Controller) ID() string { return c.id }
func (c *Controller) State() State { return c.state }
func (c *Controller) Route() *PatrolRoute { return c.route }
func (c *Controller) Params() Params { return c.params }

// Reset returns the guard to its patrol defaults.
func (c *Controller) Reset() {
	c.state = State{}
	c.route.Reset()
	c.scratch, c.scratchGrid = nil, nil
}

// Tick resolves this tick's stimuli into the next state and produces the
// steering command. Patrol moves along the grid; chase and investigate
// steer straight at the target.
func (c *Controller) Tick(ctx *TickContext) (Command, Transition) {
	facing := geom.FromAngle(ctx.Angle)
	next, tr := Resolve(c.state, ctx.Position, facing, ctx.Stimuli, c.params)
	c.state = next
	if tr.Changed() {
		c.logger.Info("guard state changed",
			zap.Stringer("from", tr.From),
			zap.Stringer("to", tr.To),
			zap.String("cause", string(tr.Cause)),
			zap.Bool("camera", tr.Camera),
			zap.Uint64("tick", ctx.Tick))
	}

	var cmd Command
	switch next.Mode {
	case ModeChase:
		speed := c.params.ChaseSpeed
		if next.CameraAlerted {
			speed = c.params.CameraChaseSpeed
		}
		cmd = steer(ctx, next.Target, speed)
	case ModeInvestigate:
		cmd = steer(ctx, next.Target, c.params.InvestigateSpeed)
	default:
		cmd = c.patrol(ctx)
	}
	return cmd, tr
}

func (c *Controller) patrol(ctx *TickContext) Command {
	wp, ok := c.route.Advance(ctx.Position, c.params.PatrolThreshold)
	if !ok || ctx.Grid == nil {
		return hold(ctx)
	}
	s := c.marks(ctx.Grid)
	s.ClearMarks()
	gx, gy := ctx.Grid.WorldToGrid(wp)
	if err := s.SetGoal(gx, gy); err != nil {
		c.logger.Debug("patrol waypoint off grid", zap.Error(err))
		return hold(ctx)
	}
	dir, err := FirstStep(ctx.Grid, s, ctx.Position)
	if err != nil {
		c.logger.Debug("guard off grid", zap.Error(err))
		return hold(ctx)
	}
	if dir == NoMove {
		// Already on the waypoint's tile but not yet within the threshold:
		// finish the approach directly.
		if sx, sy := ctx.Grid.WorldToGrid(ctx.Position); sx == gx && sy == gy {
			return steer(ctx, wp, c.params.PatrolSpeed)
		}
		return hold(ctx)
	}
	return command(ctx, dir.Vec().Scale(ctx.Force*c.params.PatrolSpeed))
}

func (c *Controller) marks(g *grid.Grid) *grid.Scratch {
	if c.scratch == nil || c.scratchGrid != g {
		c.scratch = g.NewScratch()
		c.scratchGrid = g
	}
	return c.scratch
}

func steer(ctx *TickContext, target geom.Vec2, speed float64) Command {
	d := target.Sub(ctx.Position)
	if d.IsZero() {
		return hold(ctx)
	}
	return command(ctx, d.Normalize().Scale(ctx.Force*speed))
}

func command(ctx *TickContext, force geom.Vec2) Command {
	if force.IsZero() {
		return hold(ctx)
	}
	return Command{Force: force, Angle: force.Angle(), Moving: true}
}

func hold(ctx *TickContext) Command {
	return Command{Angle: ctx.Angle}
}
