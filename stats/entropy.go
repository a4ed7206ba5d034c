// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/aclements/go-ensemble/vec"
)

// EntropyFromCounts returns the per-point Shannon entropy of the
// empirical distribution given by (edges, counts).
//
// Unnormalized, this is the differential entropy over the bin widths,
// −Σ pᵢ·ln(pᵢ/Δᵢ); for a large Gaussian ensemble it approaches
// ½ + ½·ln(2πσ²). With normalized set, the discrete entropy −Σ pᵢ·ln pᵢ
// is divided by its maximum ln B, giving a value in [0, 1]: 0 for a
// degenerate distribution, 1 for a maximally flat one.
//
// Zero-count bins and zero-width bins contribute nothing.
func EntropyFromCounts(counts, edges *vec.Array, normalized bool) (*vec.Array, error) {
	if err := validateCountPair(counts, edges); err != nil {
		return nil, err
	}
	bins := counts.Shape[0]
	ps := counts.PointSize()
	totals := binTotals(counts)

	out := vec.New(counts.PointShape()...)
	for b := 0; b < bins; b++ {
		row := counts.Row(b)
		for p, c := range row {
			if c <= 0 || totals[p] <= 0 {
				continue
			}
			pr := c / totals[p]
			if normalized {
				out.Data[p] -= pr * math.Log(pr)
				continue
			}
			width := edges.Data[(b+1)*ps+p] - edges.Data[b*ps+p]
			if width <= 0 {
				continue
			}
			out.Data[p] -= pr * math.Log(pr/width)
		}
	}
	if normalized {
		floats.Scale(1/math.Log(float64(bins)), out.Data)
	}
	return out, nil
}

// RelativeEntropyFromCounts returns the per-point relative entropy
// (Kullback-Leibler divergence) Σ pᵢ·ln(pᵢ/qᵢ) of the distribution
// with counts countsP from the distribution with counts countsQ. Both
// must share edges and point shape. Terms with pᵢ = 0 contribute
// zero, as do terms whose reference bin is empty; the result is never
// NaN for valid counts.
func RelativeEntropyFromCounts(countsP, countsQ, edges *vec.Array) (*vec.Array, error) {
	if err := validateCountPair(countsP, edges); err != nil {
		return nil, err
	}
	if !vec.EqualShapes(countsQ.Shape, countsP.Shape) {
		return nil, shapeErr("countsQ", countsQ.Shape, countsP.Shape)
	}
	bins := countsP.Shape[0]
	totalsP := binTotals(countsP)
	totalsQ := binTotals(countsQ)

	out := vec.New(countsP.PointShape()...)
	for b := 0; b < bins; b++ {
		rowP := countsP.Row(b)
		rowQ := countsQ.Row(b)
		for p, c := range rowP {
			if c <= 0 || rowQ[p] <= 0 || totalsP[p] <= 0 || totalsQ[p] <= 0 {
				continue
			}
			pr := c / totalsP[p]
			qr := rowQ[p] / totalsQ[p]
			out.Data[p] += pr * math.Log(pr/qr)
		}
	}
	return out, nil
}

// validateCountPair checks a (counts, edges) pair: both rank ≥ 2,
// matching point shapes, and one more edge than bins.
func validateCountPair(counts, edges *vec.Array) error {
	if counts.Rank() < 2 {
		return rankErr("counts", counts.Rank(), 2)
	}
	if edges.Rank() < 2 {
		return rankErr("edges", edges.Rank(), 2)
	}
	if counts.Shape[0] != edges.Shape[0]-1 {
		return shapeErr("counts", counts.Shape[:1], []int{edges.Shape[0] - 1})
	}
	if !vec.EqualShapes(counts.PointShape(), edges.PointShape()) {
		return shapeErr("counts", counts.PointShape(), edges.PointShape())
	}
	return nil
}

// binTotals sums counts over the bin axis, giving the per-point
// sample totals.
func binTotals(counts *vec.Array) []float64 {
	totals := make([]float64, counts.PointSize())
	for b := 0; b < counts.Shape[0]; b++ {
		floats.Add(totals, counts.Row(b))
	}
	return totals
}
