// Package segment implements the cross-axis time-matching layer: one
// Segment owns a Block per joint for a single move and forces every
// axis's Block to agree on one shared duration, per the look-ahead
// prototype's planner.py Segment class.
package segment

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"trajplan/pkg/block"
	"trajplan/pkg/errors"
	"trajplan/pkg/joint"
)

// UnsetTime asks Plan to choose its own candidate duration instead of
// using a caller-supplied one.
const UnsetTime = -1.0

// timeTolerance is the RMS threshold below which all blocks are
// considered to share the same duration (spec §3 "Segment" invariant,
// §8 "Time equality within a segment").
const timeTolerance = 1e-3

// Segment is one planned move across every joint.
type Segment struct {
	N int // sequence number

	T float64 // shared duration, once planned

	Blocks []*block.Block
	Move   []int // signed step displacements, one per joint

	Replans int
}

// New builds a Segment with one fresh Block per joint from a signed
// move vector. len(move) must equal len(joints).
func New(joints []*joint.Joint, n int, move []int) (*Segment, error) {
	if len(move) != len(joints) {
		return nil, errors.ConfigValidationError(fmt.Sprintf("segment[%d]", n), "move", fmt.Sprintf("expected %d axes, got %d", len(joints), len(move)))
	}
	blocks := make([]*block.Block, len(joints))
	for i, j := range joints {
		blocks[i] = block.New(j, float64(move[i]))
	}
	return &Segment{N: n, Blocks: blocks, Move: move}, nil
}

// Plan assigns a common duration to every Block and plans each at that
// duration, relaxing boundary velocities and retrying until the blocks'
// times agree within tolerance or the iteration cap is hit (spec §4.2).
// v0/v1 are the boundary hints applied uniformly across axes; prior/next
// are the neighboring Segments (either may be nil).
func (s *Segment) Plan(t float64, v0, v1 block.Hint, prior, next *Segment) error {
	lowerBound := 2 * s.maxAt()

	target := t
	for iter := 0; iter < 10; iter++ {
		candidate := target
		if candidate == UnsetTime {
			if iter == 0 {
				candidate = math.Max(s.minTime(), lowerBound)
			} else {
				candidate = math.Max(s.maxBlockTime(), lowerBound)
			}
		}

		for i, b := range s.Blocks {
			var priorBlock, nextBlock *block.Block
			if prior != nil {
				priorBlock = prior.Blocks[i]
			}
			if next != nil {
				nextBlock = next.Blocks[i]
			}
			if err := b.Plan(candidate, v0, v1, priorBlock, nextBlock, s.N, i); err != nil {
				return err
			}
		}

		s.Replans++

		if s.TimeError() < timeTolerance {
			s.T = candidate
			return nil
		}

		for _, b := range s.Blocks {
			if b.T < candidate {
				b.LimitBV()
			}
		}
		target = UnsetTime
	}

	s.T = s.maxBlockTime()
	return nil
}

func (s *Segment) minTime() float64 {
	m := 0.0
	for _, b := range s.Blocks {
		m = math.Max(m, b.MinTime())
	}
	return m
}

func (s *Segment) maxBlockTime() float64 {
	m := 0.0
	for _, b := range s.Blocks {
		m = math.Max(m, b.T)
	}
	return m
}

func (s *Segment) maxAt() float64 {
	m := 0.0
	for _, b := range s.Blocks {
		m = math.Max(m, b.Joint.MaxAt)
	}
	return m
}

// TimeError is the RMS deviation of each Block's planned time from the
// segment mean, used by Plan to decide whether every axis agrees on a
// shared duration (spec §4.2 step 4, §8 "Time equality within a
// segment").
func (s *Segment) TimeError() float64 {
	if len(s.Blocks) == 0 {
		return 0
	}
	times := make([]float64, len(s.Blocks))
	for i, b := range s.Blocks {
		times[i] = b.T
	}
	mean := stat.Mean(times, nil)
	sq := make([]float64, len(times))
	for i, tv := range times {
		d := tv - mean
		sq[i] = d * d
	}
	return math.Sqrt(stat.Mean(sq, nil))
}

// BoundaryError is the RMS of the per-axis discontinuity between prior's
// tail velocity and next's head velocity (spec §4.2 "boundaryError").
func BoundaryError(prior, next *Segment) float64 {
	if prior == nil || next == nil || len(prior.Blocks) != len(next.Blocks) {
		return 0
	}
	diffs := make([]float64, len(prior.Blocks))
	for i := range prior.Blocks {
		diffs[i] = prior.Blocks[i].V1 - next.Blocks[i].V0
	}
	sq := make([]float64, len(diffs))
	for i, d := range diffs {
		sq[i] = d * d
	}
	return math.Sqrt(stat.Mean(sq, nil))
}

// Dominant returns the index of the Block whose minimum achievable time
// is largest: the axis that sets the segment's pace (spec §4 supplement,
// ported from the prototype's is_dominant).
func (s *Segment) Dominant() int {
	dom, best := 0, -1.0
	for i, b := range s.Blocks {
		if mt := b.MinTime(); mt > best {
			best, dom = mt, i
		}
	}
	return dom
}
