// Object pools for reducing GC pressure in hot paths.
//
// Provides reusable object pools for commonly allocated types:
// - Phase buffers (for loading a Block's three phases into a StepperState)
// - Int slices (for per-axis active/step-count scratch space)
// - Float64 slices (for position and boundary-velocity vectors)
// - Byte buffers (for JSON dump encoding)
// - String slices and attribute maps (for the text front end and dump)
//
// Usage:
//
//	buf := pool.GetPhaseBuffer()
//	defer pool.PutPhaseBuffer(buf)
//	// fill buf[:n] with Phase values...
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package pool

import (
	"sync"

	"trajplan/pkg/stepperstate"
)

// PhaseBuffer pool - fixed at 3 phases per block (spec §9 "no dynamic
// allocation inside the tick loop; phase buffers fixed at 3 per block").
var phaseBufferPool = sync.Pool{
	New: func() any {
		buf := make([]stepperstate.Phase, 3)
		return &buf
	},
}

// GetPhaseBuffer gets a zeroed 3-element Phase slice from the pool.
func GetPhaseBuffer() []stepperstate.Phase {
	buf := phaseBufferPool.Get().(*[]stepperstate.Phase)
	for i := range *buf {
		(*buf)[i] = stepperstate.Phase{}
	}
	return *buf
}

// PutPhaseBuffer returns a Phase slice to the pool. Only 3-element
// slices obtained from GetPhaseBuffer are pooled.
func PutPhaseBuffer(s []stepperstate.Phase) {
	if s == nil || len(s) != 3 {
		return
	}
	phaseBufferPool.Put(&s)
}

// IntSlice pool - for per-axis active flags and step-count scratch space
// in the SegmentStepper tick loop.
type intSlicePool struct {
	pools [5]sync.Pool // sizes 1, 2, 3, 4, 6
}

var intPool = &intSlicePool{}

func init() {
	sizes := []int{1, 2, 3, 4, 6}
	for i, size := range sizes {
		s := size
		intPool.pools[i].New = func() any {
			return make([]int, s)
		}
	}
}

func intPoolIndex(size int) int {
	switch size {
	case 1:
		return 0
	case 2:
		return 1
	case 3:
		return 2
	case 4:
		return 3
	case 6:
		return 4
	default:
		return -1
	}
}

// GetIntSlice gets a zeroed int slice from the pool, or allocates one if
// size has no dedicated pool.
func GetIntSlice(size int) []int {
	idx := intPoolIndex(size)
	if idx >= 0 {
		s := intPool.pools[idx].Get().([]int)
		for i := range s {
			s[i] = 0
		}
		return s
	}
	return make([]int, size)
}

// PutIntSlice returns an int slice to the pool.
func PutIntSlice(s []int) {
	if s == nil {
		return
	}
	if idx := intPoolIndex(len(s)); idx >= 0 {
		intPool.pools[idx].Put(s)
	}
}

// Float64Slice pool - for position, displacement, and boundary-velocity
// vectors, one element per joint.
type float64SlicePool struct {
	pools [5]sync.Pool // pools for sizes 3, 4, 5, 6, 8
}

var floatSlicePool = &float64SlicePool{}

func init() {
	// Pre-initialize pools for common joint counts
	sizes := []int{3, 4, 5, 6, 8}
	for i, size := range sizes {
		s := size // capture for closure
		floatSlicePool.pools[i].New = func() any {
			return make([]float64, s)
		}
	}
}

// poolIndex returns the pool index for a given size, or -1 if no pool
func poolIndex(size int) int {
	switch size {
	case 3:
		return 0
	case 4:
		return 1
	case 5:
		return 2
	case 6:
		return 3
	case 8:
		return 4
	default:
		return -1
	}
}

// GetFloat64Slice gets a float64 slice from the pool
// If the requested size doesn't match a pool, allocates a new slice
func GetFloat64Slice(size int) []float64 {
	idx := poolIndex(size)
	if idx >= 0 {
		s := floatSlicePool.pools[idx].Get().([]float64)
		// Zero the slice
		for i := range s {
			s[i] = 0
		}
		return s
	}
	return make([]float64, size)
}

// PutFloat64Slice returns a float64 slice to the pool
func PutFloat64Slice(s []float64) {
	if s == nil {
		return
	}
	idx := poolIndex(len(s))
	if idx >= 0 {
		floatSlicePool.pools[idx].Put(s)
	}
	// Non-pooled sizes are just discarded
}

// ByteBuffer pool - for JSON dump encoding buffers
type ByteBuffer struct {
	buf []byte
}

var byteBufferPool = sync.Pool{
	New: func() any {
		return &ByteBuffer{
			buf: make([]byte, 0, 64), // Common message size
		}
	},
}

// GetByteBuffer gets a byte buffer from the pool
func GetByteBuffer() *ByteBuffer {
	b := byteBufferPool.Get().(*ByteBuffer)
	b.buf = b.buf[:0] // Reset length but keep capacity
	return b
}

// PutByteBuffer returns a byte buffer to the pool
func PutByteBuffer(b *ByteBuffer) {
	if b == nil {
		return
	}
	// Don't pool oversized buffers (> 4KB)
	if cap(b.buf) > 4096 {
		return
	}
	byteBufferPool.Put(b)
}

// Bytes returns the buffer's byte slice
func (b *ByteBuffer) Bytes() []byte {
	return b.buf
}

// Write appends bytes to the buffer
func (b *ByteBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// WriteByte appends a single byte
func (b *ByteBuffer) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}

// WriteString appends a string
func (b *ByteBuffer) WriteString(s string) (int, error) {
	b.buf = append(b.buf, s...)
	return len(s), nil
}

// Len returns the buffer length
func (b *ByteBuffer) Len() int {
	return len(b.buf)
}

// Cap returns the buffer capacity
func (b *ByteBuffer) Cap() int {
	return cap(b.buf)
}

// Reset clears the buffer
func (b *ByteBuffer) Reset() {
	b.buf = b.buf[:0]
}

// Grow ensures the buffer has capacity for n more bytes
func (b *ByteBuffer) Grow(n int) {
	if cap(b.buf)-len(b.buf) < n {
		newCap := cap(b.buf)*2 + n
		newBuf := make([]byte, len(b.buf), newCap)
		copy(newBuf, b.buf)
		b.buf = newBuf
	}
}

// StringSlice pool - for tokenized lines (e.g. the text front end's
// splitFields scratch tokens)
var stringSlicePool = sync.Pool{
	New: func() any {
		s := make([]string, 0, 16)
		return &s
	},
}

// GetStringSlice gets a string slice from the pool
func GetStringSlice() *[]string {
	s := stringSlicePool.Get().(*[]string)
	*s = (*s)[:0]
	return s
}

// PutStringSlice returns a string slice to the pool
func PutStringSlice(s *[]string) {
	if s == nil || cap(*s) > 256 {
		return
	}
	// Clear to allow GC of string contents
	for i := range *s {
		(*s)[i] = ""
	}
	*s = (*s)[:0]
	stringSlicePool.Put(s)
}

// AttrMap pool - for JSON dump entity attribute maps (_type/_tag plus
// numeric fields)
var attrMapPool = sync.Pool{
	New: func() any {
		return make(map[string]any, 16)
	},
}

// GetAttrMap gets an attribute map from the pool
func GetAttrMap() map[string]any {
	return attrMapPool.Get().(map[string]any)
}

// PutAttrMap returns an attribute map to the pool
func PutAttrMap(m map[string]any) {
	if m == nil {
		return
	}
	clear(m)
	attrMapPool.Put(m)
}
