// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stats

import (
	"math"

	"github.com/aclements/go-ensemble/vec"
)

// Wasserstein returns the per-point 1-Wasserstein distance between
// two distributions given by their CDF values at shared bin edges:
// the integral of |CDF_p − CDF_q| over the edge range, discretized by
// the trapezoid rule per bin. Identical CDFs give exactly 0. Both
// CDFs must have the shape of edges.
func Wasserstein(edges, cdfP, cdfQ *vec.Array) (*vec.Array, error) {
	if edges.Rank() < 1 {
		return nil, rankErr("edges", edges.Rank(), 1)
	}
	if !vec.SameShape(cdfP, edges) {
		return nil, shapeErr("cdfP", cdfP.Shape, edges.Shape)
	}
	if !vec.SameShape(cdfQ, edges) {
		return nil, shapeErr("cdfQ", cdfQ.Shape, edges.Shape)
	}

	bins := edges.Shape[0] - 1
	ps := edges.PointSize()
	out := vec.New(edges.PointShape()...)
	for p := 0; p < ps; p++ {
		total := 0.0
		for b := 0; b < bins; b++ {
			width := edges.Data[(b+1)*ps+p] - edges.Data[b*ps+p]
			d0 := math.Abs(cdfP.Data[b*ps+p] - cdfQ.Data[b*ps+p])
			d1 := math.Abs(cdfP.Data[(b+1)*ps+p] - cdfQ.Data[(b+1)*ps+p])
			total += width * (d0 + d1) / 2
		}
		out.Data[p] = total
	}
	return out, nil
}
