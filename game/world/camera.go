package world

import "github.com/kasuganosora/stealthguard/game/geom"

// MaxBlindTicks is how long a blinded camera stays dark.
const MaxBlindTicks = 180

// SecurityCamera is a circular light volume. A target standing in the light
// raises a sensor alert unless the camera is blinded.
type SecurityCamera struct {
	ID       string
	Position geom.Vec2
	Radius   float64

	blinded    bool
	blindTimer int
}

// Blind darkens the camera, restarting the countdown if already dark.
func (c *SecurityCamera) Blind() {
	c.blinded = true
	c.blindTimer = MaxBlindTicks
}

func (c *SecurityCamera) Blinded() bool { return c.blinded }
func (c *SecurityCamera) BlindTimer() int { return c.blindTimer }

// Tick counts the blind timer down; the light comes back on the tick
// after it reaches zero.
func (c *SecurityCamera) Tick() {
	if !c.blinded {
		return
	}
	if c.blindTimer <= 0 {
		c.blinded = false
		c.blindTimer = 0
		return
	}
	c.blindTimer--
}

// Contains reports whether p lies inside the light volume.
func (c *SecurityCamera) Contains(p geom.Vec2) bool {
	return p.Dist(c.Position) <= c.Radius
}
