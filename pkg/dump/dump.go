// Package dump serializes Planner/Segment/Block/Joint state to the
// JSON dump format test harnesses diff against a reference
// implementation (spec §6 "JSON dump (for tests)"): every entity emits
// a "_type" tag and its numerically significant attributes, plus an
// optional "_tag" label set by the caller. Grounded on the teacher's
// map[string]any status-dict idiom (pkg/hosth4's WebHooks.GetStatus).
package dump

import (
	"encoding/json"

	"trajplan/pkg/block"
	"trajplan/pkg/joint"
	"trajplan/pkg/planner"
	"trajplan/pkg/pool"
	"trajplan/pkg/segment"
)

// Joint returns the dump dict for a single Joint.
func Joint(j *joint.Joint, tag string) map[string]any {
	m := pool.GetAttrMap()
	m["_type"] = "Joint"
	if tag != "" {
		m["_tag"] = tag
	}
	m["n"] = j.N
	m["v_max"] = j.VMax
	m["a_max"] = j.AMax
	return m
}

// Block returns the dump dict for a single Block, with the exact field
// set spec §6 names.
func Block(b *block.Block, tag string) map[string]any {
	m := pool.GetAttrMap()
	m["_type"] = "Block"
	if tag == "" {
		tag = string(b.Shape())
	}
	if tag != "" {
		m["_tag"] = tag
	}
	m["x"] = b.X
	m["d"] = b.D
	m["t"] = b.T
	m["t_a"] = b.Ta
	m["t_c"] = b.Tc
	m["t_d"] = b.Td
	m["x_a"] = b.Xa
	m["x_c"] = b.Xc
	m["x_d"] = b.Xd
	m["v_0"] = b.V0
	m["v_c"] = b.Vc
	m["v_1"] = b.V1
	return m
}

// Segment returns the dump dict for a Segment: its move vector and the
// dump of each of its Blocks.
func Segment(s *segment.Segment, tag string) map[string]any {
	m := pool.GetAttrMap()
	m["_type"] = "Segment"
	if tag != "" {
		m["_tag"] = tag
	}
	m["n"] = s.N
	m["t"] = s.T
	m["move"] = s.Move
	m["dominant"] = s.Dominant()

	blocks := make([]map[string]any, len(s.Blocks))
	for i, b := range s.Blocks {
		blocks[i] = Block(b, "")
	}
	m["blocks"] = blocks
	return m
}

// Planner returns the dump dict for an entire Planner: its joint
// configuration and every committed Segment still in the queue.
func Planner(p *planner.Planner, segments []*segment.Segment, tag string) map[string]any {
	m := pool.GetAttrMap()
	m["_type"] = "Planner"
	if tag != "" {
		m["_tag"] = tag
	}

	joints := make([]map[string]any, len(p.Joints))
	for i, j := range p.Joints {
		joints[i] = Joint(j, "")
	}
	m["joints"] = joints

	segs := make([]map[string]any, len(segments))
	for i, s := range segments {
		segs[i] = Segment(s, "")
	}
	m["segments"] = segs
	return m
}

// Marshal is a convenience wrapper around json.Marshal for the dump
// dicts returned above. It releases v and its nested dicts back to the
// attribute-map pool once encoding completes.
func Marshal(v map[string]any) ([]byte, error) {
	defer Release(v)
	return json.Marshal(v)
}

// MarshalIndent pretty-prints a dump dict, for human-readable fixtures.
// It releases v and its nested dicts back to the attribute-map pool
// once encoding completes.
func MarshalIndent(v map[string]any) ([]byte, error) {
	defer Release(v)
	return json.MarshalIndent(v, "", "  ")
}

// Release returns m, and every nested dump dict it holds under
// "blocks"/"segments"/"joints", to the attribute-map pool. Callers that
// build a dump dict but don't pass it through Marshal/MarshalIndent
// should call Release themselves once they're done with it.
func Release(m map[string]any) {
	if m == nil {
		return
	}
	for _, key := range []string{"blocks", "segments", "joints"} {
		children, ok := m[key].([]map[string]any)
		if !ok {
			continue
		}
		for _, child := range children {
			Release(child)
		}
	}
	pool.PutAttrMap(m)
}
