// Package block implements the single-axis profile solver: given a
// distance, a target duration, and boundary velocity hints, it finds the
// cruise velocity that makes an accel/cruise/decel trapezoid cover the
// distance in exactly that time, subject to the joint's velocity and
// acceleration limits.
//
// The solver is a direct port of the look-ahead prototype's gsolver.py
// (ACDBlock.plan/set_bv/min_time), adapted to the fixed acceleration
// model and look-back planner described in the trajectory spec.
package block

import (
	"math"

	"trajplan/pkg/errors"
	"trajplan/pkg/joint"
)

// stepEpsilon is the "1 step" bracket-width and area-matching tolerance
// used throughout the solver (spec §4.1, §8).
const stepEpsilon = 1.0

// Hint describes how a boundary velocity (v_0 or v_1) should be resolved
// by SetBV.
type Hint struct {
	kind  hintKind
	value float64
}

type hintKind int

const (
	hintKeep         hintKind = iota // leave the block's current value
	hintValue                        // use an explicit value
	hintFromNeighbor                 // inherit from the prior/next block
	hintVMax                         // use the joint's v_max
)

// KeepV leaves the block's current boundary velocity untouched.
func KeepV() Hint { return Hint{kind: hintKeep} }

// FixedV pins the boundary velocity to an explicit value.
func FixedV(v float64) Hint { return Hint{kind: hintValue, value: v} }

// FromNeighborV inherits the boundary velocity from the adjacent block
// (prior.V1 for a v_0 hint, next.V0 for a v_1 hint).
func FromNeighborV() Hint { return Hint{kind: hintFromNeighbor} }

// VMaxV pins the boundary velocity to the joint's maximum.
func VMaxV() Hint { return Hint{kind: hintVMax} }

// Block is the per-axis portion of a Segment: a single move's
// accel/cruise/decel trapezoid for one joint.
type Block struct {
	Joint *joint.Joint

	X float64 // unsigned step count
	D int     // direction: -1, 0, or +1

	V0, Vc, V1 float64 // boundary and cruise velocities (magnitudes)
	Xa, Xc, Xd float64 // phase distances
	Ta, Tc, Td float64 // phase times
	T          float64 // total time

	// Replans counts how many times Plan has run against this block.
	Replans int

	// Reductions records which relaxation step (if any) the solver used
	// to reach convergence, in the order applied. Diagnostic only.
	Reductions []string
}

// New creates a Block for a signed step displacement x on the given
// joint. V0/V1 default to the joint's maximum velocity, matching the
// prototype's Joint.new_block.
func New(j *joint.Joint, x float64) *Block {
	b := &Block{
		Joint: j,
		X:     math.Abs(x),
		D:     sign(x),
		V0:    j.VMax,
		V1:    j.VMax,
	}
	return b
}

func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

func sameSign(a, b int) bool {
	return a == 0 || b == 0 || sign(float64(a)) == sign(float64(b))
}

// accelXT returns the distance and time to accelerate from vi to vf at
// magnitude a (accel_xt in the prototype).
func accelXT(vi, vf, a float64) (x, t float64) {
	if vf == vi {
		return 0, 0
	}
	if vf < vi {
		a = -a
	}
	t = (vf - vi) / a
	x = (vi + vf) / 2 * t
	return x, t
}

// accelACD returns the combined accel+decel distance and time for
// v0->vc->v1 (accel_acd in the prototype).
func accelACD(v0, vc, v1, a float64) (x, t float64) {
	xa, ta := accelXT(v0, vc, a)
	xd, td := accelXT(vc, v1, a)
	return xa + xd, ta + td
}

// MinTime returns the shortest duration this block can achieve given its
// current X, V0, and V1 (spec §4.1 "Minimum time").
func (b *Block) MinTime() float64 {
	if b.X == 0 {
		return 0
	}

	var vc float64
	if b.X < 2*b.Joint.SmallX {
		vc = math.Sqrt(4*b.Joint.AMax*b.X+2*b.V0*b.V0+2*b.V1*b.V1) / 2
	} else {
		vc = b.Joint.VMax
	}

	xad, tad := accelACD(b.V0, vc, b.V1, b.Joint.AMax)

	var tc float64
	if vc != 0 {
		tc = (b.X - xad) / vc
	}
	// One-third rule: cruise is at least half the combined accel+decel time.
	tc = math.Max(tc, tad/2)

	return tc + tad
}

// SetBV reconciles the boundary velocity hints with X before planning
// (spec §4.1 "Boundary clipping").
func (b *Block) SetBV(v0, v1 Hint, prior, next *Block) {
	switch v0.kind {
	case hintValue:
		b.V0 = v0.value
	case hintFromNeighbor:
		if prior != nil {
			b.V0 = prior.V1
		}
	case hintVMax:
		b.V0 = b.Joint.VMax
	}

	switch v1.kind {
	case hintValue:
		b.V1 = v1.value
	case hintFromNeighbor:
		if next != nil {
			b.V1 = next.V0
		}
	case hintVMax:
		b.V1 = b.Joint.VMax
	}

	if prior != nil {
		if !sameSign(prior.D, b.D) || prior.X == 0 || b.X == 0 {
			b.V0 = 0
		}
	} else if b.X == 0 {
		b.V0 = 0
	}

	xa, _ := accelXT(b.V0, 0, b.Joint.AMax)
	xd := b.X - xa

	switch {
	case xd < 0:
		b.V0 = math.Min(b.V0, math.Sqrt(2*b.Joint.AMax*b.X))
		b.V1 = 0
	case b.X == 0:
		b.V0 = 0
		b.V1 = 0
	default:
		b.V1 = math.Min(b.V1, math.Sqrt(2*b.Joint.AMax*xd))
	}

	b.V0 = b.Joint.Clip(b.V0)
	b.V1 = b.Joint.Clip(b.V1)
}

// LimitBV progressively halves the boundary velocities to widen the
// feasible set for the next replan pass (spec §4.1 "limitBv").
func (b *Block) LimitBV() {
	half := b.Joint.VMax / 2
	switch {
	case b.V1 > half:
		b.V1 /= 2
		b.Reductions = append(b.Reductions, "V1A")
	case b.V0 > half:
		b.V0 /= 2
		b.Reductions = append(b.Reductions, "V0A")
	case b.V1 > 1:
		b.V1 /= 2
		b.Reductions = append(b.Reductions, "V1B")
	case b.V0 > 1:
		b.V0 /= 2
		b.Reductions = append(b.Reductions, "V0B")
	}
}

// zero sets a degenerate block (x == 0 or t == 0) to rest (spec §3
// invariant 5).
func (b *Block) zero(t float64) {
	b.Xa, b.Xc, b.Xd = 0, 0, 0
	b.Ta, b.Td = 0, 0
	b.V0, b.Vc, b.V1 = 0, 0, 0
	b.Tc = t
	b.T = t
}

// unsetTime is the sentinel passed to Plan to request MinTime() as the
// initial duration.
const unsetTime = -1.0

// Plan solves for Vc such that the trapezoid v0->vc->v1 covers X in
// exactly t (or MinTime() if t == unsetTime), honoring the boundary
// hints and neighbors (spec §4.1 "Solver"). segIdx/jointIdx are used only
// to label an UnsolvableProfileError.
func (b *Block) Plan(t float64, v0, v1 Hint, prior, next *Block, segIdx, jointIdx int) error {
	b.SetBV(v0, v1, prior, next)

	if t == unsetTime {
		t = b.MinTime()
	}

	b.Replans++

	if b.X == 0 || t == 0 {
		b.zero(t)
		return nil
	}

	return b.solve(t, segIdx, jointIdx, 0)
}

func (b *Block) solve(t float64, segIdx, jointIdx int, relax int) error {
	a := b.Joint.AMax

	errFn := func(vc float64) float64 {
		xad, tad := accelACD(b.V0, vc, b.V1, a)
		tc := math.Max(t-tad, 0)
		xc := math.Max(vc, 0) * tc
		return b.X - (xad + xc)
	}

	vGuess := b.X / t
	vMin, vMax := 0.0, b.Joint.VMax

	for i := 0; i < 20; i++ {
		e := errFn(vGuess)
		switch {
		case math.Round(e) > 0:
			vMin, vGuess = vGuess, (vMax+vGuess)/2
		case math.Round(e) < 0:
			vMax, vGuess = vGuess, (vMin+vGuess)/2
		default:
			vMin, vMax = vGuess, vGuess
		}
		if math.Abs(vMax-vMin) < stepEpsilon {
			break
		}
	}

	vc := math.Min(vGuess, b.Joint.VMax)
	if vc < 0 {
		vc = 0
	}
	b.Vc = vc

	b.Xa, b.Ta = accelXT(b.V0, b.Vc, a)
	b.Xd, b.Td = accelXT(b.Vc, b.V1, a)
	b.Ta = math.Abs(b.Ta)
	b.Td = math.Abs(b.Td)

	b.Xc = b.X - (b.Xa + b.Xd)
	if math.Round(b.Xc) == 0 && b.Xc < 0 {
		b.Xc = 0
	}

	if b.Vc != 0 {
		b.Tc = math.Abs(b.Xc / b.Vc)
	} else {
		b.Tc = 0
	}
	b.T = b.Ta + b.Tc + b.Td

	if b.hasError() {
		if ok := b.relax(relax); ok {
			if relax == 2 {
				t = b.T
			}
			return b.solve(t, segIdx, jointIdx, relax+1)
		}
		if b.X > 25 {
			return errors.UnsolvableProfileError(segIdx, jointIdx, b.X)
		}
	}

	return nil
}

// hasError reports whether the solved block violates the area or
// cruise-distance constraints (spec §4.1 step 6 "Consistency").
func (b *Block) hasError() bool {
	if b.Xc < -stepEpsilon {
		return true
	}
	return math.Abs(math.Round(b.area())-b.X) > stepEpsilon && b.X > 25
}

// relax applies the next relaxation in order (drop v1, drop v0, expand
// t) and returns false once every relaxation has been tried.
func (b *Block) relax(step int) bool {
	switch step {
	case 0:
		b.V1 = 0
		b.Reductions = append(b.Reductions, "V1")
		return true
	case 1:
		b.V0 = 0
		b.Reductions = append(b.Reductions, "V0")
		return true
	case 2:
		b.Reductions = append(b.Reductions, "T")
		b.T = b.Ta + b.Td
		return true
	default:
		return false
	}
}

// area recomputes X from the solved phase velocities and times, for use
// as the post-solve consistency check (spec §4.1 step 6; §8 "Area
// conservation").
func (b *Block) area() float64 {
	xad, tad := accelACD(b.V0, b.Vc, b.V1, b.Joint.AMax)
	tc := b.T - tad
	if tc < 0 {
		tc = 0
	}
	xc := b.Vc * tc
	if xc < 0 {
		xc = 0
	}
	return xad + xc
}

// Area is the public, unrounded form of area(), used by callers verifying
// spec §8's area-conservation invariant.
func (b *Block) Area() float64 {
	return b.area()
}

// Bent reports whether the velocity boundary between prior and current
// is "bent": the prior block's tail and the current block's head curve
// in opposing directions, which the look-back loop treats as a
// re-planning opportunity (spec §4.1 "bent").
func Bent(prior, current *Block) bool {
	pd, cd := float64(prior.D), float64(current.D)
	s1 := sign(pd*prior.Vc - pd*prior.V1)
	s2 := sign(cd*current.V0 - cd*current.Vc)
	return s1*s2 < 0
}

// MeanBV returns the velocity at which a straight line through
// (prior.Vc, next.Vc) crosses the shared boundary time, or the simple
// mean if both adjoining phase times are zero (spec §4.1 "meanBv").
func MeanBV(prior, next *Block) float64 {
	denom := prior.Td + next.Ta
	if denom == 0 {
		return (next.Vc + prior.Vc) / 2
	}
	a := (next.Vc - prior.Vc) / denom
	return prior.Vc + a*prior.Td
}
