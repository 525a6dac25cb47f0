// Package tensor provides the dense row-major arrays handed to a training
// loop, and the bridges between them and gocv Mats.
package tensor

import (
	"fmt"
)

// U8 is a dense uint8 array.
type U8 struct {
	Shape []int
	Data  []uint8
}

// F32 is a dense float32 array.
type F32 struct {
	Shape []int
	Data  []float32
}

func volume(shape []int) int {
	n := 1
	for _, d := range shape {
		if d < 0 {
			panic(fmt.Sprintf("negative dimension in shape %v", shape))
		}
		n *= d
	}
	return n
}

// NewU8 allocates a zeroed uint8 tensor.
func NewU8(shape ...int) *U8 {
	return &U8{Shape: append([]int(nil), shape...), Data: make([]uint8, volume(shape))}
}

// NewF32 allocates a zeroed float32 tensor.
func NewF32(shape ...int) *F32 {
	return &F32{Shape: append([]int(nil), shape...), Data: make([]float32, volume(shape))}
}

// Plane returns the i'th contiguous slab along the first axis, sharing memory.
func (t *U8) Plane(i int) []uint8 {
	n := len(t.Data) / t.Shape[0]
	return t.Data[i*n : (i+1)*n]
}

// Plane returns the i'th contiguous slab along the first axis, sharing memory.
func (t *F32) Plane(i int) []float32 {
	n := len(t.Data) / t.Shape[0]
	return t.Data[i*n : (i+1)*n]
}

// At reads the element at a full index.
func (t *F32) At(idx ...int) float32 {
	return t.Data[offset(t.Shape, idx)]
}

// At reads the element at a full index.
func (t *U8) At(idx ...int) uint8 {
	return t.Data[offset(t.Shape, idx)]
}

func offset(shape, idx []int) int {
	if len(idx) != len(shape) {
		panic(fmt.Sprintf("index %v does not match shape %v", idx, shape))
	}
	off := 0
	for i, d := range shape {
		if idx[i] < 0 || idx[i] >= d {
			panic(fmt.Sprintf("index %v out of range for shape %v", idx, shape))
		}
		off = off*d + idx[i]
	}
	return off
}

// Float converts to float32.
func (t *U8) Float() *F32 {
	r := NewF32(t.Shape...)
	for i, v := range t.Data {
		r.Data[i] = float32(v)
	}
	return r
}

// Max returns the largest element and its flat offset.
func (t *F32) Max() (float32, int) {
	best, at := float32(0), -1
	for i, v := range t.Data {
		if at < 0 || v > best {
			best, at = v, i
		}
	}
	return best, at
}

// SameShape reports whether two shapes are identical.
func SameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
