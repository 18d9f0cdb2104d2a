// Package planner implements the ordered queue of Segments and the
// boundary look-back re-planning loop, ported from the look-ahead
// prototype's planner.py SegmentList.
package planner

import (
	"math"

	"trajplan/pkg/block"
	"trajplan/pkg/errors"
	"trajplan/pkg/joint"
	"trajplan/pkg/log"
	"trajplan/pkg/segment"
)

// lookbackIterations caps the boundary re-planning loop per move (spec
// §4.3, §9 "Look-back window").
const lookbackIterations = 15

// boundaryEpsilon is the "nonzero" threshold used when deciding whether
// to keep re-planning a boundary (spec §4.3 step 6).
const boundaryEpsilon = 1e-6

var logger = log.New("planner")

// Planner owns the joint configuration and the committed segment queue.
type Planner struct {
	Joints []*joint.Joint

	segments []*segment.Segment
	position []int
	seq      int

	// Bends counts how many bent boundaries the look-back loop has
	// snapped across the planner's lifetime. Diagnostic only.
	Bends int
}

// New builds a Planner over a fixed joint configuration.
func New(joints []*joint.Joint) *Planner {
	return &Planner{
		Joints:   joints,
		position: make([]int, len(joints)),
	}
}

// Position returns a copy of the accumulated signed position.
func (p *Planner) Position() []int {
	out := make([]int, len(p.position))
	copy(out, p.position)
	return out
}

// Len reports the number of committed segments still in the queue.
func (p *Planner) Len() int { return len(p.segments) }

// Empty reports whether the queue has no segments.
func (p *Planner) Empty() bool { return len(p.segments) == 0 }

// Front returns the oldest segment without removing it, or nil if the
// queue is empty.
func (p *Planner) Front() *segment.Segment {
	if len(p.segments) == 0 {
		return nil
	}
	return p.segments[0]
}

// PopFront removes and returns the oldest segment, or nil if the queue
// is empty.
func (p *Planner) PopFront() *segment.Segment {
	if len(p.segments) == 0 {
		return nil
	}
	s := p.segments[0]
	p.segments = p.segments[1:]
	return s
}

// Move appends a new Segment for a signed displacement vector, updates
// the running position, and runs the boundary look-back loop (spec
// §4.3 "Planner — Boundary Look-back").
func (p *Planner) Move(displacements []int) (*segment.Segment, error) {
	if len(displacements) != len(p.Joints) {
		return nil, errors.ConfigValidationError("move", "displacements", "length does not match joint count")
	}

	for i, d := range displacements {
		p.position[i] += d
	}

	s, err := segment.New(p.Joints, p.seq, displacements)
	if err != nil {
		return nil, err
	}
	p.seq++

	// Plan the new segment on its own first: it starts from the previous
	// segment's tail (or from rest when the queue is empty) and ends at
	// rest, so a lone segment is fully planned before any look-back.
	var last *segment.Segment
	v0 := block.FixedV(0)
	if len(p.segments) > 0 {
		last = p.segments[len(p.segments)-1]
		v0 = block.FromNeighborV()
	}
	if err := s.Plan(segment.UnsetTime, v0, block.FixedV(0), last, nil); err != nil {
		return nil, err
	}
	p.segments = append(p.segments, s)

	if err := p.lookBack(); err != nil {
		return nil, err
	}
	return s, nil
}

func (p *Planner) lookBack() error {
	segIdx := len(p.segments) - 1

	for iter := 0; iter < lookbackIterations; iter++ {
		if segIdx < 1 || segIdx >= len(p.segments) {
			break
		}

		current := p.segments[segIdx]
		prior := p.segments[segIdx-1]
		var prePrior *segment.Segment
		if segIdx-2 >= 0 {
			prePrior = p.segments[segIdx-2]
		}

		if err := prior.Plan(segment.UnsetTime, block.KeepV(), block.FromNeighborV(), prePrior, current); err != nil {
			logger.WithError(err).WithField("segment", prior.N).Warn("segment replan failed")
			return err
		}
		if err := current.Plan(segment.UnsetTime, block.FromNeighborV(), block.KeepV(), prior, nil); err != nil {
			logger.WithError(err).WithField("segment", current.N).Warn("segment replan failed")
			return err
		}

		bent := false
		for i := range p.Joints {
			pb, cb := prior.Blocks[i], current.Blocks[i]
			if !block.Bent(pb, cb) {
				continue
			}
			mv := block.MeanBV(pb, cb)
			limit := lookbackVelocityLimit(iter, p.Joints[i].VMax)
			if math.Abs(pb.V1-mv) <= limit {
				pb.V1 = mv
				cb.V0 = mv
				bent = true
				p.Bends++
				logger.WithFields(log.Fields{
					"segment": prior.N,
					"joint":   i,
					"mean_bv": mv,
					"iter":    iter,
				}).Debug("bent boundary snapped")
			}
		}

		switch {
		case bent:
			segIdx--
		case prePrior != nil && segment.BoundaryError(prePrior, prior) > boundaryEpsilon:
			segIdx--
		case segment.BoundaryError(prior, current) > boundaryEpsilon:
			// repeat at this boundary
		default:
			segIdx++
		}

		if segIdx < 1 {
			segIdx = 1
		}

		if iter == lookbackIterations-1 {
			if residual := segment.BoundaryError(prior, current); residual > boundaryEpsilon {
				logger.WithError(errors.BoundaryInconsistentError(current.N, -1, residual)).
					Warn("boundary look-back exhausted its iteration cap with residual error; committing best approximation")
			}
		}
	}

	return nil
}

// lookbackVelocityLimit returns the maximum boundary-velocity change the
// look-back loop may apply to a given joint at a given iteration:
// unrestricted for the first two iterations, halved for the next two,
// frozen (0) afterwards (spec §4.3 step 5).
func lookbackVelocityLimit(iter int, vMax float64) float64 {
	switch {
	case iter < 2:
		return vMax
	case iter < 4:
		return vMax / 2
	default:
		return 0
	}
}
