// Package reactor drives the stepper tick loop at a fixed pulse period,
// using the platform's highest-resolution sleep available.
package reactor

import (
	"sync"
	"time"
)

// PulseDriver calls a tick function once per fixed period using the
// platform's highest-resolution sleep (nanosleep on Linux, time.Sleep
// elsewhere), driving SegmentStepper.Next at the configured pulse
// period in the host-simulation mode of spec §5.
type PulseDriver struct {
	period time.Duration
	tick   func() int

	stop chan struct{}
	done chan struct{}

	mu      sync.Mutex
	started bool
}

// NewPulseDriver creates a driver that calls tick once per period until
// Stop is called. tick's return value (the active-axis count) is not
// used to decide whether to keep running: the driver runs until
// stopped, since a planner queue can become nonempty again between
// calls.
func NewPulseDriver(period time.Duration, tick func() int) *PulseDriver {
	return &PulseDriver{
		period: period,
		tick:   tick,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Run calls tick once per period until Stop is called. It blocks;
// callers that want a background driver should call Start instead.
func (d *PulseDriver) Run() {
	defer close(d.done)
	for {
		select {
		case <-d.stop:
			return
		default:
		}
		d.tick()
		if err := nanosleep(d.period); err != nil {
			return
		}
	}
}

// Start runs the driver in a goroutine.
func (d *PulseDriver) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true
	go d.Run()
}

// Stop signals the driver to exit and waits for its current tick to
// finish.
func (d *PulseDriver) Stop() {
	select {
	case <-d.stop:
	default:
		close(d.stop)
	}
	<-d.done
}
