// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stats

import (
	"github.com/aclements/go-ensemble/vec"
)

// rankBins is the resolution of the rank histogram behind
// RankProbabilityScore.
const rankBins = 10

// FindRank returns, per point, the normalized rank in [0, 1] of the
// observation within the empirical CDF given by (edges, counts): the
// fraction of the ensemble below the observation, interpolated
// linearly within the containing bin. Observations outside the edge
// range rank 0 or 1. obs must have the point shape of edges.
func FindRank(edges, counts, obs *vec.Array) (*vec.Array, error) {
	if err := validateCountPair(counts, edges); err != nil {
		return nil, err
	}
	if obs.Size() != edges.PointSize() {
		return nil, shapeErr("obs", obs.Shape, edges.PointShape())
	}

	cdf := cdfFromCounts(counts)
	bins := counts.Shape[0]
	ps := counts.PointSize()
	out := vec.New(obs.Shape...)
	for p := 0; p < ps; p++ {
		v := obs.Data[p]
		switch {
		case v <= edges.Data[p]:
			out.Data[p] = 0
		case v >= edges.Data[bins*ps+p]:
			out.Data[p] = 1
		default:
			b := findBin(edges, bins, ps, p, v)
			lo, hi := edges.Data[b*ps+p], edges.Data[(b+1)*ps+p]
			fl, fh := cdf.Data[b*ps+p], cdf.Data[(b+1)*ps+p]
			r := fh
			if hi > lo {
				r = fl + (fh-fl)*(v-lo)/(hi-lo)
			}
			out.Data[p] = r
		}
	}
	return out, nil
}

// RankProbabilityScore bins the observation ranks along the leading
// axis of ranks into a rank histogram over [0, 1] and returns, per
// point, the squared deviation of its CDF from the discrete uniform:
// 0 for a perfectly calibrated ensemble, bounded in (0, 1) otherwise.
// For a well-calibrated ensemble the ranks are uniform, so the score
// approaches 0 as the number of observations grows.
func RankProbabilityScore(ranks *vec.Array) (*vec.Array, error) {
	if ranks.Rank() < 1 {
		return nil, rankErr("ranks", ranks.Rank(), 1)
	}
	r := ranks
	squeeze := r.Rank() == 1
	if squeeze {
		r = vec.NewData(r.Data, r.Shape[0], 1)
	}

	point := r.PointShape()
	edges, err := Linspace(vec.New(point...), vec.Full(1, point...), rankBins)
	if err != nil {
		return nil, err
	}
	_, counts, err := HistogramWith(edges, r)
	if err != nil {
		return nil, err
	}
	out, err := rankProbabilityScoreFromCounts(edges, counts)
	if err != nil {
		return nil, err
	}
	if squeeze {
		return vec.NewData(out.Data), nil
	}
	return out, nil
}

// rankProbabilityScoreFromCounts computes the calibration score from
// a pre-built rank histogram: Σₖ (CDF(eₖ) − Uniform(eₖ))²·Δₖ over the
// rank bins, with the uniform reference spanning the same edge range.
func rankProbabilityScoreFromCounts(edges, counts *vec.Array) (*vec.Array, error) {
	if err := validateCountPair(counts, edges); err != nil {
		return nil, err
	}
	bins := counts.Shape[0]
	ps := counts.PointSize()
	totals := binTotals(counts)

	out := vec.New(counts.PointShape()...)
	for p := 0; p < ps; p++ {
		lo, hi := edges.Data[p], edges.Data[bins*ps+p]
		if totals[p] <= 0 || hi <= lo {
			continue
		}
		cum, score := 0.0, 0.0
		for k := 1; k <= bins; k++ {
			cum += counts.Data[(k-1)*ps+p] / totals[p]
			e := edges.Data[k*ps+p]
			u := (e - lo) / (hi - lo)
			d := cum - u
			score += d * d * (e - edges.Data[(k-1)*ps+p]) / (hi - lo)
		}
		out.Data[p] = score
	}
	return out, nil
}
