// Package stepperstate implements the per-axis step-interval engine: an
// online, linear-acceleration ("Austin-style") algorithm that converts a
// block's three phases into timed step/no-step decisions, integrating
// 1/velocity rather than precomputing pulse timestamps. Ported from the
// look-ahead prototype's stepper.py Stepper class (spec §4.4).
package stepperstate

import (
	"math"

	"trajplan/pkg/stepsink"
)

// Phase is one accel/cruise/decel leg of a planned Block, reduced to the
// three numbers the step engine needs: a signed step count and the
// velocities at its endpoints.
type Phase struct {
	X      int // signed step count; sign carries direction
	Vi, Vf float64
}

// StepperState drives one Stepper sink through a queue of up to three
// Phases.
type StepperState struct {
	sink stepsink.Stepper
	dt   float64 // fixed tick period, seconds

	phases    [3]Phase
	numPhases int
	phaseIdx  int

	direction int
	stepsLeft int

	vi, vf, a float64
	phaseT    float64

	delay        float64
	delayCounter float64

	t    float64 // total elapsed time across all loaded phases
	done bool
}

// New creates a StepperState driving sink at a fixed tick period dt
// (spec §9 "Pulse period choice": dt must be < 1/v_max).
func New(sink stepsink.Stepper, dt float64) *StepperState {
	return &StepperState{sink: sink, dt: dt, done: true}
}

// Done reports whether every loaded phase has been consumed.
func (s *StepperState) Done() bool { return s.done }

// ElapsedTime returns the total simulated time advanced across all
// phases loaded since the last LoadPhases call.
func (s *StepperState) ElapsedTime() float64 { return s.t }

// LoadPhases copies up to three phases and begins executing the first.
// The caller retains ownership of phases and may reuse or pool it as
// soon as LoadPhases returns. An empty slice leaves the engine done.
func (s *StepperState) LoadPhases(phases []Phase) {
	s.numPhases = copy(s.phases[:], phases)
	s.phaseIdx = 0
	s.t = 0
	if s.numPhases == 0 {
		s.done = true
		return
	}
	s.done = false
	s.loadPhase(s.phases[0])
}

func (s *StepperState) loadPhase(p Phase) {
	s.direction = sign(p.X)
	s.stepsLeft = abs(p.X)
	s.vi, s.vf = p.Vi, p.Vf

	var tf float64
	if s.vi+s.vf != 0 {
		tf = math.Abs(2 * float64(s.stepsLeft) / (s.vi + s.vf))
	}
	if tf != 0 {
		s.a = (s.vf - s.vi) / tf
	} else {
		s.a = 0
	}

	s.phaseT = 0

	denom := math.Abs(s.a*s.dt + s.vi)
	if denom != 0 {
		s.delay = 1 / denom
	} else {
		s.delay = 0
	}
	s.delayCounter = s.dt

	s.sink.SetDirection(s.direction)
}

// Next advances the engine by one tick of dt, emitting at most one step
// on the sink, and reports whether the axis is still active (spec §4.4
// "Per tick next(dt)").
func (s *StepperState) Next() bool {
	if s.done {
		return false
	}

	for s.stepsLeft <= 0 {
		s.phaseIdx++
		if s.phaseIdx >= s.numPhases {
			s.done = true
			return false
		}
		s.loadPhase(s.phases[s.phaseIdx])
	}

	if s.delayCounter >= s.delay {
		s.sink.WriteStep()
		s.stepsLeft--
		s.delayCounter -= s.delay
	} else {
		s.sink.ClearStep()
	}

	v := s.vi + s.a*s.phaseT
	if v != 0 {
		s.delay = 1 / math.Abs(v)
	} else {
		s.delay = 1
	}
	s.delayCounter += s.dt
	s.phaseT += s.dt
	s.t += s.dt

	return true
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
