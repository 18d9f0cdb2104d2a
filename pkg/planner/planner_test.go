package planner

import (
	"math"
	"testing"

	"trajplan/pkg/joint"
	"trajplan/pkg/segment"
)

func testJoints(t *testing.T, n int, vMax, aMax float64) []*joint.Joint {
	joints := make([]*joint.Joint, n)
	for i := range joints {
		j, err := joint.New(i, vMax, aMax)
		if err != nil {
			t.Fatalf("joint.New: %v", err)
		}
		joints[i] = j
	}
	return joints
}

func TestMoveAccumulatesPosition(t *testing.T) {
	p := New(testJoints(t, 1, 5000, 50000))

	for i := 0; i < 3; i++ {
		if _, err := p.Move([]int{1000}); err != nil {
			t.Fatalf("Move: %v", err)
		}
	}

	pos := p.Position()
	if pos[0] != 3000 {
		t.Fatalf("expected position 3000, got %v", pos[0])
	}
	if p.Len() != 3 {
		t.Fatalf("expected 3 queued segments, got %v", p.Len())
	}
}

func TestThreeEqualMovesCruiseInMiddle(t *testing.T) {
	joints := testJoints(t, 1, 5000, 50000)
	p := New(joints)

	for i := 0; i < 3; i++ {
		if _, err := p.Move([]int{1000}); err != nil {
			t.Fatalf("Move %d: %v", i, err)
		}
	}

	// The middle segment should reach (or nearly reach) v_max since it
	// neither starts nor ends the run.
	mid := p.at(1)
	if mid == nil {
		t.Fatalf("expected a middle segment to still be queued")
	}
	if mid.Blocks[0].Vc < joints[0].VMax*0.9 {
		t.Fatalf("expected middle segment to approach v_max, got vc=%v", mid.Blocks[0].Vc)
	}
}

// at is a test helper exposing index access into the queue without
// mutating it.
func (p *Planner) at(i int) *segment.Segment {
	if i < 0 || i >= len(p.segments) {
		return nil
	}
	return p.segments[i]
}

func TestDirectionReversalForcesZeroBoundary(t *testing.T) {
	joints := testJoints(t, 2, 5000, 50000)
	p := New(joints)

	moves := [][]int{
		{-1000, 5000},
		{-500, 10000},
		{1000, -15000},
	}
	for _, m := range moves {
		if _, err := p.Move(m); err != nil {
			t.Fatalf("Move: %v", err)
		}
	}

	for idx := 1; idx < p.Len(); idx++ {
		prior := p.at(idx - 1)
		cur := p.at(idx)
		for axis := 0; axis < 2; axis++ {
			pd := sign(prior.Move[axis])
			cd := sign(cur.Move[axis])
			if pd != 0 && cd != 0 && pd != cd {
				if math.Abs(prior.Blocks[axis].V1) > 1e-6 {
					t.Fatalf("axis %v: expected zero boundary velocity on reversal, got %v", axis, prior.Blocks[axis].V1)
				}
			}
		}
	}
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
