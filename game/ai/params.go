package ai

import (
	"errors"
	"fmt"
)

// Params are the guard tuning constants. The mapstructure tags let the
// config layer decode them straight from the "guard" section.
type Params struct {
	BaseChaseTicks     int     `mapstructure:"base_chase_ticks"`
	CameraMultiplier   int     `mapstructure:"camera_multiplier"`
	FOVDistance        float64 `mapstructure:"fov_distance"`
	FOVAngle           float64 `mapstructure:"fov_angle"` // total cone angle, degrees
	PatrolThreshold    float64 `mapstructure:"patrol_threshold"`
	InvestigateEpsilon float64 `mapstructure:"investigate_epsilon"`
	PatrolSpeed        float64 `mapstructure:"patrol_speed"`
	InvestigateSpeed   float64 `mapstructure:"investigate_speed"`
	ChaseSpeed         float64 `mapstructure:"chase_speed"`
	CameraChaseSpeed   float64 `mapstructure:"camera_chase_speed"`
}

// DefaultParams returns the values the levels were tuned with.
func DefaultParams() Params {
	return Params{
		BaseChaseTicks:     420,
		CameraMultiplier:   2,
		FOVDistance:        7.0,
		FOVAngle:           45.0,
		PatrolThreshold:    0.5,
		InvestigateEpsilon: 0.1,
		PatrolSpeed:        1.0,
		InvestigateSpeed:   0.5,
		ChaseSpeed:         1.1,
		CameraChaseSpeed:   1.5,
	}
}

var errInvalidParams = errors.New("ai: invalid params")

// Validate rejects values that would make the state machine misbehave.
func (p Params) Validate() error {
	switch {
	case p.BaseChaseTicks <= 0:
		return fmt.Errorf("%w: base_chase_ticks %d", errInvalidParams, p.BaseChaseTicks)
	case p.CameraMultiplier <= 0:
		return fmt.Errorf("%w: camera_multiplier %d", errInvalidParams, p.CameraMultiplier)
	case p.FOVDistance < 0:
		return fmt.Errorf("%w: fov_distance %v", errInvalidParams, p.FOVDistance)
	case p.FOVAngle < 0 || p.FOVAngle > 360:
		return fmt.Errorf("%w: fov_angle %v", errInvalidParams, p.FOVAngle)
	case p.PatrolThreshold <= 0:
		return fmt.Errorf("%w: patrol_threshold %v", errInvalidParams, p.PatrolThreshold)
	case p.InvestigateEpsilon <= 0:
		return fmt.Errorf("%w: investigate_epsilon %v", errInvalidParams, p.InvestigateEpsilon)
	}
	return nil
}
