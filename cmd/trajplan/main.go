// trajplan is a host-side trajectory planner for coordinated
// stepper-motor motion: it reads joint limits and a sequence of moves
// from the text front end, runs them through the boundary look-back
// planner, and optionally drives them through the step-interval engine.
//
// Usage:
//
//	trajplan --planner program.txt [options]
//
// Options:
//
//	--planner|-p string  Text front-end program (this or --stepper is required)
//	--stepper|-s string  Stepper-file fixture to replay instead of --planner
//	--json|-j            Dump the planned queue as JSON instead of running it
//	--sim                Run the program through planner and stepper, print a summary
//	--help|-h            Show this help and exit
//
// Examples:
//
//	# Plan a program and print the JSON dump
//	trajplan --planner program.txt --json
//
//	# Plan and step a program, printing a per-axis summary
//	trajplan --planner program.txt --sim
package main

import (
	"flag"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"trajplan/pkg/dump"
	"trajplan/pkg/joint"
	"trajplan/pkg/log"
	"trajplan/pkg/metrics"
	"trajplan/pkg/planner"
	"trajplan/pkg/reactor"
	"trajplan/pkg/segment"
	"trajplan/pkg/segstepper"
	"trajplan/pkg/stepsink"
	"trajplan/pkg/textio"
)

const defaultTickPeriod = 1.0 / 20000 // 50us, safety factor 4 at v_max=5000

func main() {
	var plannerFile, stepperFile string
	var jsonDump, sim, help bool

	flag.StringVar(&plannerFile, "planner", "", "Text front-end program")
	flag.StringVar(&plannerFile, "p", "", "Text front-end program (shorthand)")
	flag.StringVar(&stepperFile, "stepper", "", "Stepper-file fixture to replay instead of --planner")
	flag.StringVar(&stepperFile, "s", "", "Stepper-file fixture (shorthand)")
	flag.BoolVar(&jsonDump, "json", false, "Dump the planned queue as JSON instead of running it")
	flag.BoolVar(&jsonDump, "j", false, "Dump the planned queue as JSON (shorthand)")
	flag.BoolVar(&sim, "sim", false, "Run the program through planner and stepper, print a summary")
	flag.BoolVar(&help, "help", false, "Show this help and exit")
	flag.BoolVar(&help, "h", false, "Show this help and exit (shorthand)")
	flag.Parse()

	if help {
		flag.Usage()
		os.Exit(1)
	}

	logger := log.New("trajplan")

	if plannerFile == "" && stepperFile == "" {
		fmt.Fprintln(os.Stderr, "Error: one of --planner or --stepper is required")
		flag.Usage()
		os.Exit(1)
	}

	var joints []*joint.Joint
	var moves [][]int

	switch {
	case plannerFile != "":
		f, err := os.Open(plannerFile)
		if err != nil {
			logger.Error("failed to open planner program: %v", err)
			os.Exit(1)
		}
		defer f.Close()

		prog, err := textio.ParseProgram(f)
		if err != nil {
			logger.Error("failed to parse planner program: %v", err)
			os.Exit(1)
		}
		joints = make([]*joint.Joint, len(prog.Joints))
		for i, spec := range prog.Joints {
			j, err := joint.New(i, spec.VMax, spec.AMax)
			if err != nil {
				logger.Error("invalid joint %d: %v", i, err)
				os.Exit(1)
			}
			joints[i] = j
		}
		moves = prog.Moves

	case stepperFile != "":
		f, err := os.Open(stepperFile)
		if err != nil {
			logger.Error("failed to open stepper file: %v", err)
			os.Exit(1)
		}
		defer f.Close()

		parsed, err := textio.ParseStepperFile(f)
		if err != nil {
			logger.Error("failed to parse stepper file: %v", err)
			os.Exit(1)
		}
		if len(parsed) == 0 {
			logger.Error("stepper file contains no moves")
			os.Exit(1)
		}
		n := len(parsed[0])
		joints = make([]*joint.Joint, n)
		for i := range joints {
			j, err := joint.New(i, 5000, 50000)
			if err != nil {
				logger.Error("invalid default joint %d: %v", i, err)
				os.Exit(1)
			}
			joints[i] = j
		}
		moves = parsed
	}

	p := planner.New(joints)
	committed := make([]*segment.Segment, 0, len(moves))
	for i, move := range moves {
		seg, err := p.Move(move)
		if err != nil {
			logger.Error("move %d failed: %v", i, err)
			os.Exit(1)
		}
		committed = append(committed, seg)
	}

	logger.Info("planned %d moves across %d joints (%d bent boundaries snapped)", len(moves), len(joints), p.Bends)

	if jsonDump {
		m := dump.Planner(p, committed, "")
		data, err := dump.MarshalIndent(m)
		if err != nil {
			logger.Error("failed to marshal dump: %v", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
		return
	}

	if sim {
		runSim(logger, p, joints)
		return
	}
}

// runSim drains the planner's segment queue through the step-interval
// engine at the configured pulse period, printing a per-axis step-count
// and elapsed-time summary (the host-side analogue of the look-ahead
// prototype's test harness). The tick loop is driven by a
// reactor.PulseDriver rather than a bare loop, so the emitted step
// stream is paced the same way a live host-simulation run would be.
func runSim(logger *log.Logger, p *planner.Planner, joints []*joint.Joint) {
	tm := metrics.GlobalMetrics()

	sinks := make([]stepsink.Stepper, len(joints))
	counters := make([]*stepsink.CountingStepper, len(joints))
	for i := range joints {
		c := stepsink.NewCountingStepper()
		counters[i] = c
		sinks[i] = tm.WrapStepper(i, c)
	}

	ss := segstepper.New(p, sinks, defaultTickPeriod)

	var ticks atomic.Int64
	finished := make(chan struct{})
	var closeOnce sync.Once

	period := time.Duration(defaultTickPeriod * float64(time.Second))
	driver := reactor.NewPulseDriver(period, func() int {
		tm.SetQueueDepth(p.Len())
		active := ss.Next()
		ticks.Add(1)
		if active == 0 && p.Len() == 0 {
			closeOnce.Do(func() { close(finished) })
		}
		return active
	})

	start := time.Now()
	driver.Start()
	<-finished
	driver.Stop()
	elapsed := time.Since(start)

	n := ticks.Load()
	logger.Info("simulation complete: %d ticks (%s simulated, %s wall clock)",
		n, time.Duration(float64(n)*defaultTickPeriod*float64(time.Second)), elapsed)
	for i, c := range counters {
		fmt.Printf("joint %d: net=%d total=%d\n", i, c.Net, c.Total)
	}
}
