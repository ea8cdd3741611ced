package ai

import "github.com/kasuganosora/stealthguard/game/geom"

// Mode is the effective behaviour of a guard.
type Mode int

const (
	ModePatrol Mode = iota
	ModeChase
	ModeInvestigate
)

func (m Mode) String() string {
	switch m {
	case ModeChase:
		return "chase"
	case ModeInvestigate:
		return "investigate"
	}
	return "patrol"
}

// State is the alert state of one guard. Chase and Investigate are
// mutually exclusive by construction; CameraAlerted only means anything
// while chasing.
type State struct {
	Mode          Mode
	CameraAlerted bool
	Target        geom.Vec2
	ChaseTimer    int
}

// Agroed reports whether the guard is chasing a detected target.
func (s State) Agroed() bool { return s.Mode == ModeChase }

// Meowed reports whether the guard is investigating a sound.
func (s State) Meowed() bool { return s.Mode == ModeInvestigate }

// Camera reports whether the current chase was raised by a sensor.
func (s State) Camera() bool { return s.Mode == ModeChase && s.CameraAlerted }

// HasTarget reports whether Target is meaningful.
func (s State) HasTarget() bool { return s.Mode != ModePatrol }

// Transition describes how Resolve moved a guard between two ticks.
type Transition struct {
	From   Mode
	To     Mode
	Camera bool
	Cause  Cause
	Target geom.Vec2
}

// Changed reports whether the effective mode changed.
func (t Transition) Changed() bool { return t.From != t.To }

// Resolve is the per-tick priority function. It consumes this tick's
// stimuli and returns the next state with the transition that led to it.
func Resolve(prev State, pos, facing geom.Vec2, st Stimuli, p Params) (State, Transition) {
	next := prev
	if next.ChaseTimer < 0 {
		next.ChaseTimer = 0
	}
	det := Detect(prev, pos, facing, st, p)
	cause := det.Cause

	switch det.Cause {
	case CauseSensor:
		next = State{
			Mode:          ModeChase,
			CameraAlerted: true,
			Target:        det.Target,
			ChaseTimer:    p.BaseChaseTicks * p.CameraMultiplier,
		}
	case CauseFOV:
		next = State{
			Mode:          ModeChase,
			CameraAlerted: prev.Camera(),
			Target:        det.Target,
			ChaseTimer:    p.BaseChaseTicks,
		}
	case CauseSound:
		next = State{
			Mode:       ModeInvestigate,
			Target:     det.Target,
			ChaseTimer: p.BaseChaseTicks,
		}
	default:
		if next.ChaseTimer > 0 {
			next.ChaseTimer--
		}
		if next.Mode == ModeChase && next.ChaseTimer == 0 {
			next = State{Mode: ModePatrol}
			cause = CauseTimeout
		}
	}

	if next.Mode == ModeInvestigate && pos.Dist(next.Target) < p.InvestigateEpsilon {
		next = State{Mode: ModePatrol}
		cause = CauseArrived
	}

	return next, Transition{
		From:   prev.Mode,
		To:     next.Mode,
		Camera: next.Camera(),
		Cause:  cause,
		Target: next.Target,
	}
}
