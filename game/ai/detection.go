package ai

import (
	"math"

	"github.com/kasuganosora/stealthguard/game/geom"
)

// Stimuli are the external events a guard reacts to during one tick.
type Stimuli struct {
	// Sound is the position of a sound alert raised this tick.
	Sound *geom.Vec2
	// Sensor is the position of a target standing inside a security light.
	Sensor *geom.Vec2
	// VisionDenied is set while the sensors are blinded. It suppresses
	// Sensor; the guard's own view cone keeps working.
	VisionDenied bool
	// Targets are the candidate positions for the view cone, in priority
	// order (the active avatar first).
	Targets []geom.Vec2
}

// Cause names what drove a state transition.
type Cause string

const (
	CauseNone    Cause = ""
	CauseSensor  Cause = "sensor"
	CauseFOV     Cause = "fov"
	CauseSound   Cause = "sound"
	CauseTimeout Cause = "timeout"
	CauseArrived Cause = "arrived"
)

// Detection is the strongest stimulus that fired on a tick.
type Detection struct {
	Cause  Cause
	Target geom.Vec2
}

// Fired reports whether any stimulus fired.
func (d Detection) Fired() bool { return d.Cause != CauseNone }

// InCone reports whether p lies within maxDist of origin and within half of
// angleDeg of the facing direction. A point on top of the origin is seen.
func InCone(origin, facing, p geom.Vec2, maxDist, angleDeg float64) bool {
	to := p.Sub(origin)
	dist := to.Len()
	if dist > maxDist {
		return false
	}
	if dist == 0 {
		return true
	}
	f := facing.Normalize()
	if f.IsZero() {
		return false
	}
	cos := f.Dot(to.Scale(1 / dist))
	cos = math.Max(-1, math.Min(1, cos))
	half := angleDeg * math.Pi / 360
	return math.Acos(cos) <= half+1e-9
}

// Detect picks the strongest actable stimulus for a guard at pos facing
// facing. Sensor beats the view cone, which beats sound. Sound is only
// actable when the guard is not already chasing.
func Detect(prev State, pos, facing geom.Vec2, st Stimuli, p Params) Detection {
	if st.Sensor != nil && !st.VisionDenied {
		return Detection{Cause: CauseSensor, Target: *st.Sensor}
	}
	for _, t := range st.Targets {
		if InCone(pos, facing, t, p.FOVDistance, p.FOVAngle) {
			return Detection{Cause: CauseFOV, Target: t}
		}
	}
	if st.Sound != nil && prev.Mode != ModeChase {
		return Detection{Cause: CauseSound, Target: *st.Sound}
	}
	return Detection{}
}
