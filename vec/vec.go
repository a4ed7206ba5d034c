// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// vec provides dense row-major N-dimensional float64 arrays.
//
// An Array carries a shape and a flat backing slice. By convention
// throughout this module, the leading axis of an array is the "special"
// axis: the sample axis of an ensemble, or the bin axis of histogram
// edges and counts. All remaining axes are independent point axes.
package vec // import "github.com/aclements/go-ensemble/vec"

import "fmt"

// An Array is a dense N-dimensional array of float64 in row-major
// order. The zero value is an empty scalar-less array; use New or
// NewData to construct one.
type Array struct {
	// Shape holds the extent of each axis. A nil or empty Shape
	// denotes a scalar holding exactly one element.
	Shape []int

	// Data is the row-major backing slice. Its length is the
	// product of Shape.
	Data []float64
}

// New returns a zero-filled array of the given shape.
func New(shape ...int) *Array {
	n := sizeOf(shape)
	return &Array{Shape: append([]int(nil), shape...), Data: make([]float64, n)}
}

// NewData returns an array wrapping data with the given shape. The
// backing slice is not copied. It panics if len(data) does not match
// the shape.
func NewData(data []float64, shape ...int) *Array {
	if n := sizeOf(shape); n != len(data) {
		panic(fmt.Sprintf("vec: NewData with %d elements for shape %v (want %d)", len(data), shape, n))
	}
	return &Array{Shape: append([]int(nil), shape...), Data: data}
}

// Full returns an array of the given shape with every element set to v.
func Full(v float64, shape ...int) *Array {
	a := New(shape...)
	for i := range a.Data {
		a.Data[i] = v
	}
	return a
}

func sizeOf(shape []int) int {
	n := 1
	for _, s := range shape {
		if s < 0 {
			panic(fmt.Sprintf("vec: negative axis in shape %v", shape))
		}
		n *= s
	}
	return n
}

// Size returns the total number of elements.
func (a *Array) Size() int { return sizeOf(a.Shape) }

// Rank returns the number of axes.
func (a *Array) Rank() int { return len(a.Shape) }

// PointShape returns the shape with the leading axis removed. For a
// rank-0 or rank-1 array this is empty.
func (a *Array) PointShape() []int {
	if len(a.Shape) == 0 {
		return nil
	}
	return a.Shape[1:]
}

// PointSize returns the number of elements per slice of the leading
// axis: the product of PointShape.
func (a *Array) PointSize() int { return sizeOf(a.PointShape()) }

// Row returns the contiguous slice of the i'th entry along the leading
// axis. It panics if a has rank 0 or i is out of range.
func (a *Array) Row(i int) []float64 {
	if len(a.Shape) == 0 {
		panic("vec: Row of a scalar array")
	}
	p := a.PointSize()
	return a.Data[i*p : (i+1)*p]
}

// Clone returns a deep copy of a.
func (a *Array) Clone() *Array {
	return &Array{
		Shape: append([]int(nil), a.Shape...),
		Data:  append([]float64(nil), a.Data...),
	}
}

// SameShape reports whether a and b have identical shapes.
func SameShape(a, b *Array) bool { return EqualShapes(a.Shape, b.Shape) }

// EqualShapes reports whether two shapes are identical. Unlike
// reflect.DeepEqual, it treats nil and empty shapes as equal (both
// denote scalars).
func EqualShapes(a, b []int) bool {
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
