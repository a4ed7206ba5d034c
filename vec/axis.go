// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vec

import "fmt"

// MoveAxisFront returns a copy of a with axis dim moved to the front
// and all other axes kept in order. MoveAxisFront(a, 0) is a plain
// copy. It panics if dim is out of range.
func MoveAxisFront(a *Array, dim int) *Array {
	if dim < 0 || dim >= len(a.Shape) {
		panic(fmt.Sprintf("vec: axis %d out of range for shape %v", dim, a.Shape))
	}
	if dim == 0 {
		return a.Clone()
	}

	strides := strides(a.Shape)
	outShape := make([]int, 0, len(a.Shape))
	outShape = append(outShape, a.Shape[dim])
	outStrides := make([]int, 0, len(a.Shape))
	outStrides = append(outStrides, strides[dim])
	for i, s := range a.Shape {
		if i == dim {
			continue
		}
		outShape = append(outShape, s)
		outStrides = append(outStrides, strides[i])
	}

	out := New(outShape...)
	idx := make([]int, len(outShape))
	for i := range out.Data {
		src := 0
		for ax := range idx {
			src += idx[ax] * outStrides[ax]
		}
		out.Data[i] = a.Data[src]
		// Advance the row-major index over the output shape.
		for ax := len(idx) - 1; ax >= 0; ax-- {
			idx[ax]++
			if idx[ax] < outShape[ax] {
				break
			}
			idx[ax] = 0
		}
	}
	return out
}

// strides returns the row-major stride of each axis of shape.
func strides(shape []int) []int {
	st := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		st[i] = acc
		acc *= shape[i]
	}
	return st
}
