package world

import "github.com/kasuganosora/stealthguard/game/geom"

// Body is the physics-side view of an actor. The physics engine owns
// collision response and integration; the level only reads positions,
// sets facing and applies forces.
type Body interface {
	Position() geom.Vec2
	Angle() float64
	SetAngle(a float64)
	ApplyForce(f geom.Vec2)
}

// stepper is implemented by bodies the level integrates itself.
type stepper interface {
	Step(dt float64, blocked func(geom.Vec2) bool)
}

// KinematicBody is an overdamped body for headless runs: each step it moves
// by force/mass*dt and forgets the force, so it never slides.
type KinematicBody struct {
	pos   geom.Vec2
	angle float64
	mass  float64
	force geom.Vec2
}

// NewKinematicBody creates a unit-mass body at pos facing angle (radians).
func NewKinematicBody(pos geom.Vec2, angle float64) *KinematicBody {
	return &KinematicBody{pos: pos, angle: angle, mass: 1}
}

func (b *KinematicBody) Position() geom.Vec2 { return b.pos }
func (b *KinematicBody) Angle() float64 { return b.angle }
func (b *KinematicBody) SetAngle(a float64) { b.angle = geom.NormalizeAngle(a) }
func (b *KinematicBody) SetPosition(p geom.Vec2) { b.pos = p }
func (b *KinematicBody) ApplyForce(f geom.Vec2) { b.force = b.force.Add(f) }

// Step integrates the accumulated force. Each axis is moved separately and
// a move onto a blocked position is dropped, so bodies slide along walls.
func (b *KinematicBody) Step(dt float64, blocked func(geom.Vec2) bool) {
	d := b.force.Scale(dt / b.mass)
	b.force = geom.Vec2{}
	if d.IsZero() {
		return
	}
	if next := geom.V(b.pos.X+d.X, b.pos.Y); blocked == nil || !blocked(next) {
		b.pos = next
	}
	if next := geom.V(b.pos.X, b.pos.Y+d.Y); blocked == nil || !blocked(next) {
		b.pos = next
	}
}
