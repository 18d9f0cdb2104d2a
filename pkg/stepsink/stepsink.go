// Package stepsink defines the abstract step output the stepper-state
// engine drives, and a counting implementation for tests (spec §4.6).
package stepsink

// Stepper is the abstract output sink a StepperState drives. Production
// sinks toggle hardware GPIO pins; test sinks count pulses.
type Stepper interface {
	// WriteStep asserts a step pulse on the currently latched direction.
	WriteStep()

	// ClearStep finishes the previous pulse (the falling edge).
	ClearStep()

	// SetDirection latches the direction for every subsequent WriteStep
	// until the next call. d is one of -1, 0, +1.
	SetDirection(d int)
}

// CountingStepper records net and absolute step counts for tests. It
// implements the "Step count" invariant check directly: Net accumulates
// signed steps, Total accumulates their absolute count (spec §8).
type CountingStepper struct {
	Net   int
	Total int

	direction int
	asserted  bool
}

// NewCountingStepper returns a CountingStepper at rest.
func NewCountingStepper() *CountingStepper {
	return &CountingStepper{}
}

func (c *CountingStepper) WriteStep() {
	c.Net += c.direction
	c.Total++
	c.asserted = true
}

func (c *CountingStepper) ClearStep() {
	c.asserted = false
}

func (c *CountingStepper) SetDirection(d int) {
	c.direction = d
}

// Asserted reports whether the most recent call was WriteStep without a
// following ClearStep, for tests that care about pulse shape.
func (c *CountingStepper) Asserted() bool { return c.asserted }
