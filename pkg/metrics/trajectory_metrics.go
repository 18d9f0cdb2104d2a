// Trajectory planner metrics definitions.
//
// Defines all metrics for the host trajectory planner and step
// generator: queue depth, replans, bent-boundary snaps, steps executed
// per axis, solver iterations, planning latency, plus generic Go
// runtime metrics.
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"fmt"
	goruntime "runtime"
	"sync"
	"time"

	"trajplan/pkg/stepsink"
)

// TrajectoryMetrics holds all trajectory-planner metrics.
type TrajectoryMetrics struct {
	// Planner/queue metrics
	QueueDepth       *Gauge
	SegmentReplans   *Counter
	BlockReplans     *Counter
	BentBoundaries   *Counter
	BoundaryResidual *Gauge
	PlanningLatency  *Histogram

	// Step-generation metrics
	StepsExecuted     *Counter
	SolverIterations  *Histogram
	SegmentsCompleted *Counter

	// System metrics
	HostUptime    *Counter
	GoGoroutines  *Gauge
	GoMemoryHeap  *Gauge
	GoMemoryAlloc *Gauge
	GoGCCycles    *Counter

	// Error metrics
	ErrorsTotal   *Counter
	WarningsTotal *Counter

	// Internal
	startTime time.Time
	registry  *Registry
	mu        sync.RWMutex
}

// NewTrajectoryMetrics creates and registers all trajectory metrics.
func NewTrajectoryMetrics() *TrajectoryMetrics {
	tm := &TrajectoryMetrics{
		startTime: time.Now(),
		registry:  NewRegistry(),
	}

	tm.QueueDepth = NewGauge("trajplan_queue_depth",
		"Number of committed segments waiting in the planner queue")
	tm.SegmentReplans = NewCounter("trajplan_segment_replans_total",
		"Total Segment.Plan passes across all segments")
	tm.BlockReplans = NewCounter("trajplan_block_replans_total",
		"Total Block.Plan passes, labeled by joint")
	tm.BentBoundaries = NewCounter("trajplan_bent_boundaries_total",
		"Total bent boundaries snapped by the look-back loop, labeled by joint")
	tm.BoundaryResidual = NewGauge("trajplan_boundary_residual_steps_per_sec",
		"Most recent boundary velocity RMS residual outside the look-back window")
	tm.PlanningLatency = NewHistogram("trajplan_move_planning_seconds",
		"Time spent in Planner.Move, including the look-back loop", DefaultBuckets())

	tm.StepsExecuted = NewCounter("trajplan_steps_executed_total",
		"Total step pulses emitted, labeled by joint and direction")
	tm.SolverIterations = NewHistogram("trajplan_solver_iterations",
		"Binary-search iterations used by Block.Plan to converge",
		[]float64{1, 2, 4, 8, 12, 16, 20})
	tm.SegmentsCompleted = NewCounter("trajplan_segments_completed_total",
		"Total segments retired by the SegmentStepper")

	tm.HostUptime = NewCounter("trajplan_host_uptime_seconds_total",
		"Total host uptime in seconds")
	tm.GoGoroutines = NewGauge("trajplan_go_goroutines",
		"Number of active goroutines")
	tm.GoMemoryHeap = NewGauge("trajplan_go_memory_heap_bytes",
		"Go heap memory in use")
	tm.GoMemoryAlloc = NewGauge("trajplan_go_memory_alloc_bytes",
		"Go total memory allocated")
	tm.GoGCCycles = NewCounter("trajplan_go_gc_cycles_total",
		"Total Go garbage collection cycles")

	tm.ErrorsTotal = NewCounter("trajplan_errors_total",
		"Total errors by error code")
	tm.WarningsTotal = NewCounter("trajplan_warnings_total",
		"Total warnings by type")

	tm.registerAll()
	return tm
}

func (tm *TrajectoryMetrics) registerAll() {
	all := []Metric{
		tm.QueueDepth, tm.SegmentReplans, tm.BlockReplans, tm.BentBoundaries,
		tm.BoundaryResidual, tm.PlanningLatency,
		tm.StepsExecuted, tm.SolverIterations, tm.SegmentsCompleted,
		tm.HostUptime, tm.GoGoroutines, tm.GoMemoryHeap, tm.GoMemoryAlloc, tm.GoGCCycles,
		tm.ErrorsTotal, tm.WarningsTotal,
	}
	for _, m := range all {
		tm.registry.MustRegister(m)
	}
}

// UpdateSystemMetrics refreshes the Go runtime gauges.
func (tm *TrajectoryMetrics) UpdateSystemMetrics() {
	var m goruntime.MemStats
	goruntime.ReadMemStats(&m)

	tm.GoGoroutines.Set(nil, float64(goruntime.NumGoroutine()))
	tm.GoMemoryHeap.Set(nil, float64(m.HeapAlloc))
	tm.GoMemoryAlloc.Set(nil, float64(m.Alloc))
	tm.GoGCCycles.Add(nil, uint64(m.NumGC)-tm.GoGCCycles.Get(nil))
	tm.HostUptime.Add(nil, uint64(time.Since(tm.startTime).Seconds())-tm.HostUptime.Get(nil))
}

// SetQueueDepth records the planner's current committed-segment count.
func (tm *TrajectoryMetrics) SetQueueDepth(n int) {
	tm.QueueDepth.Set(nil, float64(n))
}

// RecordSegmentReplan counts one Segment.Plan pass.
func (tm *TrajectoryMetrics) RecordSegmentReplan() {
	tm.SegmentReplans.Inc(nil)
}

// RecordBlockReplan counts one Block.Plan pass for a joint.
func (tm *TrajectoryMetrics) RecordBlockReplan(joint int) {
	tm.BlockReplans.Inc(Labels{"joint": jointLabel(joint)})
}

// RecordBentBoundary counts one bent-boundary snap for a joint.
func (tm *TrajectoryMetrics) RecordBentBoundary(joint int) {
	tm.BentBoundaries.Inc(Labels{"joint": jointLabel(joint)})
}

// SetBoundaryResidual records the most recent out-of-window boundary
// error (spec §7 "Boundary inconsistency (soft)").
func (tm *TrajectoryMetrics) SetBoundaryResidual(v float64) {
	tm.BoundaryResidual.Set(nil, v)
}

// RecordPlanningLatency records the wall-clock cost of one Planner.Move.
func (tm *TrajectoryMetrics) RecordPlanningLatency(d time.Duration) {
	tm.PlanningLatency.Observe(nil, d.Seconds())
}

// RecordSolverIterations records how many binary-search iterations a
// Block.Plan call used before converging.
func (tm *TrajectoryMetrics) RecordSolverIterations(joint, n int) {
	tm.SolverIterations.Observe(Labels{"joint": jointLabel(joint)}, float64(n))
}

// RecordSegmentCompleted counts one segment retired by the
// SegmentStepper.
func (tm *TrajectoryMetrics) RecordSegmentCompleted() {
	tm.SegmentsCompleted.Inc(nil)
}

// RecordError records an error by its HostError code.
func (tm *TrajectoryMetrics) RecordError(code string) {
	tm.ErrorsTotal.Inc(Labels{"code": code})
}

// RecordWarning records a warning by type.
func (tm *TrajectoryMetrics) RecordWarning(warningType string) {
	tm.WarningsTotal.Inc(Labels{"type": warningType})
}

// WrapStepper returns a stepsink.Stepper that forwards to sink while
// counting emitted pulses in StepsExecuted, labeled by joint and
// direction. Used to instrument the Stepper sinks the CLI
// wires into SegmentStepper without touching the stepper-state engine
// itself.
func (tm *TrajectoryMetrics) WrapStepper(joint int, sink stepsink.Stepper) stepsink.Stepper {
	return &meteredStepper{sink: sink, tm: tm, joint: joint}
}

type meteredStepper struct {
	sink      stepsink.Stepper
	tm        *TrajectoryMetrics
	joint     int
	direction int
}

func (m *meteredStepper) WriteStep() {
	m.sink.WriteStep()
	m.tm.StepsExecuted.Inc(Labels{"joint": jointLabel(m.joint), "dir": dirLabel(m.direction)})
}

func (m *meteredStepper) ClearStep() {
	m.sink.ClearStep()
}

func (m *meteredStepper) SetDirection(d int) {
	m.direction = d
	m.sink.SetDirection(d)
}

func jointLabel(joint int) string {
	return fmt.Sprintf("%d", joint)
}

func dirLabel(d int) string {
	switch {
	case d > 0:
		return "+"
	case d < 0:
		return "-"
	default:
		return "0"
	}
}

// Gather returns all metrics in Prometheus text format.
func (tm *TrajectoryMetrics) Gather() string {
	tm.UpdateSystemMetrics()
	return tm.registry.Gather()
}

// Registry returns the internal registry.
func (tm *TrajectoryMetrics) Registry() *Registry {
	return tm.registry
}

var globalMetrics *TrajectoryMetrics
var globalMetricsOnce sync.Once

// GlobalMetrics returns the global trajectory metrics instance.
func GlobalMetrics() *TrajectoryMetrics {
	globalMetricsOnce.Do(func() {
		globalMetrics = NewTrajectoryMetrics()
	})
	return globalMetrics
}
