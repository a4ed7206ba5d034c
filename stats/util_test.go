// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stats

import (
	"math"
	"math/rand"

	"github.com/aclements/go-ensemble/vec"
)

func aeq(expect, got float64) bool {
	return math.Abs(expect-got) < 0.00001
}

func aeqTol(expect, got, tol float64) bool {
	return math.Abs(expect-got) < tol
}

// randn returns an array of the given shape filled with draws from
// N(0, scale²).
func randn(rng *rand.Rand, scale float64, shape ...int) *vec.Array {
	a := vec.New(shape...)
	for i := range a.Data {
		a.Data[i] = scale * rng.NormFloat64()
	}
	return a
}

// randu returns an array of the given shape filled with draws from
// U[0, 1).
func randu(rng *rand.Rand, shape ...int) *vec.Array {
	a := vec.New(shape...)
	for i := range a.Data {
		a.Data[i] = rng.Float64()
	}
	return a
}

// column gathers the ensemble members of point p from a [m, point...]
// array.
func column(x *vec.Array, p int) []float64 {
	ps := x.PointSize()
	col := make([]float64, x.Shape[0])
	for i := range col {
		col[i] = x.Data[i*ps+p]
	}
	return col
}

// queueReducer is a fake two-participant Reducer: each reduction pops
// the partner's pre-computed contribution from the matching queue and
// combines it with the local input.
type queueReducer struct {
	sums, mins, maxs [][]float64
}

func (r *queueReducer) AllReduceSum(xs []float64) ([]float64, error) {
	partner := r.sums[0]
	r.sums = r.sums[1:]
	out := append([]float64(nil), xs...)
	for i := range out {
		out[i] += partner[i]
	}
	return out, nil
}

func (r *queueReducer) AllReduceMin(xs []float64) ([]float64, error) {
	partner := r.mins[0]
	r.mins = r.mins[1:]
	out := append([]float64(nil), xs...)
	for i := range out {
		out[i] = math.Min(out[i], partner[i])
	}
	return out, nil
}

func (r *queueReducer) AllReduceMax(xs []float64) ([]float64, error) {
	partner := r.maxs[0]
	r.maxs = r.maxs[1:]
	out := append([]float64(nil), xs...)
	for i := range out {
		out[i] = math.Max(out[i], partner[i])
	}
	return out, nil
}
