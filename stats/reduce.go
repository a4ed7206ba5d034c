// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stats

// A Reducer combines partial statistics across the participants of a
// distributed computation. It is an injected collaborator: the
// statistics core only requires that the reductions are associative
// and commutative and that every participant calls them in the same
// order. Process-group lifecycle, rank discovery, and transport are
// out of scope.
//
// When histogram edges are derived rather than fixed, all
// participants must agree on them; AllReduceMin and AllReduceMax give
// the engines a symmetric way to do so before counts are summed.
type Reducer interface {
	// AllReduceSum returns the elementwise sum of xs across all
	// participants.
	AllReduceSum(xs []float64) ([]float64, error)

	// AllReduceMin returns the elementwise minimum of xs across
	// all participants.
	AllReduceMin(xs []float64) ([]float64, error)

	// AllReduceMax returns the elementwise maximum of xs across
	// all participants.
	AllReduceMax(xs []float64) ([]float64, error)
}

// Local is the single-process Reducer. Every reduction returns its
// input unchanged.
type Local struct{}

func (Local) AllReduceSum(xs []float64) ([]float64, error) { return xs, nil }
func (Local) AllReduceMin(xs []float64) ([]float64, error) { return xs, nil }
func (Local) AllReduceMax(xs []float64) ([]float64, error) { return xs, nil }
