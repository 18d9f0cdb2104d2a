// Package joint defines the static per-axis motion limits a planner plans
// against: maximum velocity, maximum acceleration, and the limits derived
// from them.
package joint

import (
	"fmt"

	"trajplan/pkg/errors"
)

// Joint is one mechanical degree of freedom: one stepper-driven axis.
// It is immutable once configured; Block and Segment hold read-only
// references to it.
type Joint struct {
	// N is the joint's index in the planner's joint vector.
	N int

	// VMax is the maximum velocity, in steps/s.
	VMax float64

	// AMax is the maximum acceleration, in steps/s^2.
	AMax float64

	// SmallX is the distance below which a triangular profile cannot
	// reach VMax: v_max^2 / (2*a_max).
	SmallX float64

	// MaxAt is the time to accelerate across the joint's full velocity
	// range: v_max / a_max.
	MaxAt float64
}

// New validates limits and derives SmallX and MaxAt.
func New(n int, vMax, aMax float64) (*Joint, error) {
	if vMax <= 0 {
		return nil, errors.ConfigValidationError("joint", "v_max", fmt.Sprintf("must be positive, got %g", vMax))
	}
	if aMax <= 0 {
		return nil, errors.ConfigValidationError("joint", "a_max", fmt.Sprintf("must be positive, got %g", aMax))
	}
	return &Joint{
		N:      n,
		VMax:   vMax,
		AMax:   aMax,
		SmallX: (vMax * vMax) / (2 * aMax),
		MaxAt:  vMax / aMax,
	}, nil
}

// Clip returns v clamped to [0, VMax].
func (j *Joint) Clip(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > j.VMax {
		return j.VMax
	}
	return v
}
