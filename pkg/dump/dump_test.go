package dump

import (
	"encoding/json"
	"testing"

	"trajplan/pkg/joint"
	"trajplan/pkg/planner"
	"trajplan/pkg/segment"
)

func testJoints(t *testing.T, n int, vMax, aMax float64) []*joint.Joint {
	t.Helper()
	js := make([]*joint.Joint, n)
	for i := range js {
		j, err := joint.New(i, vMax, aMax)
		if err != nil {
			t.Fatalf("joint.New: %v", err)
		}
		js[i] = j
	}
	return js
}

func TestJointDump(t *testing.T) {
	js := testJoints(t, 1, 5000, 50000)
	m := Joint(js[0], "")

	if m["_type"] != "Joint" {
		t.Errorf("expected _type Joint, got %v", m["_type"])
	}
	if m["v_max"] != 5000.0 {
		t.Errorf("expected v_max 5000, got %v", m["v_max"])
	}
	if _, hasTag := m["_tag"]; hasTag {
		t.Error("empty tag should not be present")
	}
	Release(m)
}

func TestJointDumpWithTag(t *testing.T) {
	js := testJoints(t, 1, 5000, 50000)
	m := Joint(js[0], "j0")

	if m["_tag"] != "j0" {
		t.Errorf("expected _tag j0, got %v", m["_tag"])
	}
	Release(m)
}

func TestBlockAndSegmentDump(t *testing.T) {
	joints := testJoints(t, 2, 5000, 50000)
	p := planner.New(joints)
	seg, err := p.Move([]int{1000, 1000})
	if err != nil {
		t.Fatalf("Move: %v", err)
	}

	m := Segment(seg, "seg0")
	if m["_type"] != "Segment" {
		t.Errorf("expected _type Segment, got %v", m["_type"])
	}
	if m["_tag"] != "seg0" {
		t.Errorf("expected _tag seg0, got %v", m["_tag"])
	}

	blocks, ok := m["blocks"].([]map[string]any)
	if !ok {
		t.Fatalf("expected blocks to be []map[string]any, got %T", m["blocks"])
	}
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	for _, want := range []string{"x", "d", "t", "t_a", "t_c", "t_d", "x_a", "x_c", "x_d", "v_0", "v_c", "v_1"} {
		if _, ok := blocks[0][want]; !ok {
			t.Errorf("block dump missing field %q", want)
		}
	}
	Release(m)
}

func TestPlannerDumpMarshalsToValidJSON(t *testing.T) {
	joints := testJoints(t, 2, 5000, 50000)
	p := planner.New(joints)
	seg, err := p.Move([]int{1000, 500})
	if err != nil {
		t.Fatalf("Move: %v", err)
	}

	m := Planner(p, []*segment.Segment{seg}, "")
	data, err := Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decoded output is not valid JSON: %v", err)
	}
	if decoded["_type"] != "Planner" {
		t.Errorf("expected _type Planner, got %v", decoded["_type"])
	}
	joints2, ok := decoded["joints"].([]any)
	if !ok || len(joints2) != 2 {
		t.Fatalf("expected 2 joints in decoded output, got %v", decoded["joints"])
	}
}

func TestMarshalIndentProducesIndentedOutput(t *testing.T) {
	js := testJoints(t, 1, 5000, 50000)
	m := Joint(js[0], "")

	data, err := MarshalIndent(m)
	if err != nil {
		t.Fatalf("MarshalIndent: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty output")
	}
}
