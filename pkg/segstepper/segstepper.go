// Package segstepper implements the segment dispatcher: it pulls the
// oldest committed Segment off the planner's queue, loads each axis's
// three phases into its StepperState, advances every axis by one tick,
// and retires the segment once every axis reports done (spec §4.5).
package segstepper

import (
	"math"

	"trajplan/pkg/block"
	"trajplan/pkg/planner"
	"trajplan/pkg/pool"
	"trajplan/pkg/segment"
	"trajplan/pkg/stepperstate"
	"trajplan/pkg/stepsink"
)

// SegmentStepper owns a StepperState per joint and dispatches segments
// from a Planner's queue into them.
type SegmentStepper struct {
	planner *planner.Planner
	states  []*stepperstate.StepperState

	current *segment.Segment
}

// New builds a SegmentStepper with one StepperState per sink, each
// ticking at the fixed pulse period dt (spec §9 "Pulse period choice").
// len(sinks) must equal len(planner.Joints).
func New(p *planner.Planner, sinks []stepsink.Stepper, dt float64) *SegmentStepper {
	states := make([]*stepperstate.StepperState, len(sinks))
	for i, sink := range sinks {
		states[i] = stepperstate.New(sink, dt)
	}
	return &SegmentStepper{planner: p, states: states}
}

// allIdle reports whether every axis has finished its current block.
func (ss *SegmentStepper) allIdle() bool {
	for _, s := range ss.states {
		if !s.Done() {
			return false
		}
	}
	return true
}

// Next advances every axis by one tick of dt and returns the number of
// axes still active. It performs no heap allocation: phase buffers come
// from pkg/pool (spec §9 "no dynamic allocation inside the tick loop").
func (ss *SegmentStepper) Next() int {
	if ss.allIdle() {
		if ss.current != nil {
			ss.current = nil
		}
		if seg := ss.planner.Front(); seg != nil {
			ss.current = seg
			for i, b := range seg.Blocks {
				phases := pool.GetPhaseBuffer()
				fillPhases(phases, b)
				ss.states[i].LoadPhases(phases)
				pool.PutPhaseBuffer(phases)
			}
		}
	}

	active := 0
	for _, s := range ss.states {
		if s.Next() {
			active++
		}
	}

	if active == 0 && ss.current != nil {
		ss.planner.PopFront()
		ss.current = nil
	}

	return active
}

// fillPhases writes a Block's three phases (accel, cruise, decel) into
// buf, folding the block's direction into each phase's signed step
// count (spec §4.5 step 1).
func fillPhases(buf []stepperstate.Phase, b *block.Block) {
	d := float64(b.D)
	if d == 0 {
		d = 1
	}
	buf[0] = stepperstate.Phase{X: roundSigned(b.Xa, d), Vi: b.V0, Vf: b.Vc}
	buf[1] = stepperstate.Phase{X: roundSigned(b.Xc, d), Vi: b.Vc, Vf: b.Vc}
	buf[2] = stepperstate.Phase{X: roundSigned(b.Xd, d), Vi: b.Vc, Vf: b.V1}
}

func roundSigned(x, direction float64) int {
	return int(math.Round(x * direction))
}
