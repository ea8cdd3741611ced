// Package geom holds the continuous-space primitives shared by the grid,
// the guard AI and the simulation shell.
package geom

import "math"

// Vec2 is a point or direction in continuous world units.
type Vec2 struct {
	X, Y float64
}

// V is shorthand for Vec2{x, y}.
func V(x, y float64) Vec2 { return Vec2{X: x, Y: y} }

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(f float64) Vec2 { return Vec2{v.X * f, v.Y * f} }
func (v Vec2) Dot(o Vec2) float64 { return v.X*o.X + v.Y*o.Y }
func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }
func (v Vec2) Len2() float64 { return v.X*v.X + v.Y*v.Y }
func (v Vec2) Dist(o Vec2) float64 { return v.Sub(o).Len() }
func (v Vec2) IsZero() bool { return v.X == 0 && v.Y == 0 }
func (v Vec2) Mul(o Vec2) Vec2 { return Vec2{v.X * o.X, v.Y * o.Y} }
func (v Vec2) Angle() float64 { return math.Atan2(v.Y, v.X) }

// Normalize returns the unit vector in the direction of v.
// The zero vector normalizes to itself.
func (v Vec2) Normalize() Vec2 {
	l := v.Len()
	if l == 0 {
		return Vec2{}
	}
	return Vec2{v.X / l, v.Y / l}
}

// FromAngle returns the unit vector pointing at angle rad (0 = +X).
func FromAngle(rad float64) Vec2 {
	return Vec2{math.Cos(rad), math.Sin(rad)}
}

// Rect is an axis-aligned rectangle stored as centre + half extent, the
// way level geometry describes wall obstacles.
type Rect struct {
	Center Vec2
	Half   Vec2
}

// RectFromOrigin builds a Rect from its minimum corner and full size.
func RectFromOrigin(x, y, w, h float64) Rect {
	return Rect{Center: Vec2{x + w/2, y + h/2}, Half: Vec2{w / 2, h / 2}}
}

func (r Rect) Min() Vec2 { return r.Center.Sub(r.Half) }
func (r Rect) Max() Vec2 { return r.Center.Add(r.Half) }
func (r Rect) Width() float64 { return 2 * r.Half.X }
func (r Rect) Height() float64 { return 2 * r.Half.Y }

// Contains reports whether p lies inside r (edges included).
func (r Rect) Contains(p Vec2) bool {
	lo, hi := r.Min(), r.Max()
	return p.X >= lo.X && p.X <= hi.X && p.Y >= lo.Y && p.Y <= hi.Y
}

// NormalizeAngle wraps a to [-pi, pi].
func NormalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
