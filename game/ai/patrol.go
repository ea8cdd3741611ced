package ai

import "github.com/kasuganosora/stealthguard/game/geom"

// PatrolRoute is a cyclic list of waypoints with a current index.
type PatrolRoute struct {
	points []geom.Vec2
	index  int
}

// NewPatrolRoute copies points into a new route starting at the first one.
func NewPatrolRoute(points []geom.Vec2) *PatrolRoute {
	return &PatrolRoute{points: append([]geom.Vec2(nil), points...)}
}

func (r *PatrolRoute) Len() int { return len(r.points) }
func (r *PatrolRoute) Index() int { return r.index }
func (r *PatrolRoute) Reset() { r.index = 0 }

// Points returns a copy of the waypoints.
func (r *PatrolRoute) Points() []geom.Vec2 {
	return append([]geom.Vec2(nil), r.points...)
}

// Current returns the active waypoint.
func (r *PatrolRoute) Current() (geom.Vec2, bool) {
	if len(r.points) == 0 {
		return geom.Vec2{}, false
	}
	return r.points[r.index], true
}

// Advance moves to the next waypoint when pos is closer than threshold to
// the current one, then returns the (possibly new) current waypoint.
func (r *PatrolRoute) Advance(pos geom.Vec2, threshold float64) (geom.Vec2, bool) {
	if len(r.points) == 0 {
		return geom.Vec2{}, false
	}
	if pos.Dist(r.points[r.index]) < threshold {
		r.index = (r.index + 1) % len(r.points)
	}
	return r.points[r.index], true
}
