package stepsink

import "testing"

func TestCountingStepperNetAndTotal(t *testing.T) {
	c := NewCountingStepper()

	c.SetDirection(1)
	for i := 0; i < 5; i++ {
		c.WriteStep()
		c.ClearStep()
	}

	c.SetDirection(-1)
	for i := 0; i < 2; i++ {
		c.WriteStep()
		c.ClearStep()
	}

	if c.Net != 3 {
		t.Fatalf("expected net 3, got %v", c.Net)
	}
	if c.Total != 7 {
		t.Fatalf("expected total 7, got %v", c.Total)
	}
}

func TestCountingStepperAssertedTracksPulseShape(t *testing.T) {
	c := NewCountingStepper()
	c.SetDirection(1)

	if c.Asserted() {
		t.Fatalf("expected not asserted before any step")
	}
	c.WriteStep()
	if !c.Asserted() {
		t.Fatalf("expected asserted after WriteStep")
	}
	c.ClearStep()
	if c.Asserted() {
		t.Fatalf("expected not asserted after ClearStep")
	}
}
