package ai

import (
	"github.com/kasuganosora/stealthguard/game/geom"
	"github.com/kasuganosora/stealthguard/game/grid"
)

// TickContext is passed to a guard controller once per simulation tick.
// The owning game loop builds it from the physics and input collaborators;
// the controller never reaches for shared global state.
type TickContext struct {
	Tick     uint64
	Grid     *grid.Grid
	Position geom.Vec2
	Angle    float64 // current facing, radians, 0 = +X
	Force    float64 // drive force magnitude
	Stimuli  Stimuli
}

// Command is the steering output handed back to the physics collaborator.
type Command struct {
	Force  geom.Vec2
	Angle  float64
	Moving bool
}
