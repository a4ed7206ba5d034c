// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/aclements/go-ensemble/vec"
)

// maxIndicatorElems bounds the size of the sample×bin indicator
// tensor the high-memory bin reductions materialize. Above it, the
// bounded-scratch reductions are used instead.
const maxIndicatorElems = 1 << 26

// Linspace returns bins+1 evenly spaced boundaries per point:
// edges[i] = start + i*(end-start)/bins. start and end must have the
// same shape, which becomes the point shape of the result.
//
// Where start == end the boundaries for that point all collapse to
// the same value. Counting against such degenerate edges clamps every
// sample of that point into the last bin; it is the caller's problem
// to supply a non-empty value range if that matters.
func Linspace(start, end *vec.Array, bins int) (*vec.Array, error) {
	if !vec.SameShape(start, end) {
		return nil, shapeErr("end", end.Shape, start.Shape)
	}
	step := make([]float64, start.Size())
	floats.SubTo(step, end.Data, start.Data)
	floats.Scale(1/float64(bins), step)

	edges := vec.New(append([]int{bins + 1}, start.Shape...)...)
	for i := 0; i <= bins; i++ {
		row := edges.Row(i)
		copy(row, start.Data)
		floats.AddScaled(row, float64(i), step)
	}
	return edges, nil
}

// MinsMaxs returns the per-point minimum and maximum over the sample
// axis of one or more sample arrays. It fails with ErrEmpty when
// called with no arrays and with ErrShape when the arrays disagree on
// point shape.
func MinsMaxs(xs ...*vec.Array) (mins, maxs *vec.Array, err error) {
	if len(xs) == 0 {
		return nil, nil, ErrEmpty
	}
	point := xs[0].PointShape()
	mins = vec.Full(math.Inf(1), point...)
	maxs = vec.Full(math.Inf(-1), point...)
	for _, x := range xs {
		if x.Rank() < 1 {
			return nil, nil, rankErr("samples", x.Rank(), 1)
		}
		if !vec.EqualShapes(x.PointShape(), point) {
			return nil, nil, shapeErr("samples", x.PointShape(), point)
		}
		for i := 0; i < x.Shape[0]; i++ {
			row := x.Row(i)
			for p, v := range row {
				if v < mins.Data[p] {
					mins.Data[p] = v
				}
				if v > maxs.Data[p] {
					maxs.Data[p] = v
				}
			}
		}
	}
	return mins, maxs, nil
}

// validateBinArgs checks the shared contract of the bin reductions:
// samples is [m, point...], edges is [B+1, point...], and counts is
// [B, point...] (or [B+1, point...] for the cumulative reductions,
// which pass cum=true).
func validateBinArgs(samples, edges, counts *vec.Array, cum bool) error {
	if samples.Rank() < 2 {
		return rankErr("samples", samples.Rank(), 2)
	}
	if edges.Rank() < 2 {
		return rankErr("edges", edges.Rank(), 2)
	}
	if counts.Rank() < 2 {
		return rankErr("counts", counts.Rank(), 2)
	}
	want := edges.Shape[0] - 1
	if cum {
		want = edges.Shape[0]
	}
	if counts.Shape[0] != want {
		return shapeErr("counts", counts.Shape[:1], []int{want})
	}
	if !vec.EqualShapes(edges.PointShape(), samples.PointShape()) {
		return shapeErr("edges", edges.PointShape(), samples.PointShape())
	}
	if !vec.EqualShapes(counts.PointShape(), samples.PointShape()) {
		return shapeErr("counts", counts.PointShape(), samples.PointShape())
	}
	return nil
}

// findBin returns the bin index of v for point p against B+1 strided
// edge values. Samples below the first edge clamp into bin 0 and
// samples at or above the last edge clamp into bin B-1, so every
// sample lands in exactly one bin and the total-count invariant holds
// even for externally supplied edges that do not cover the data.
func findBin(edges *vec.Array, bins, pointSize, p int, v float64) int {
	b := sort.Search(bins+1, func(k int) bool {
		return edges.Data[k*pointSize+p] > v
	}) - 1
	if b < 0 {
		b = 0
	}
	if b >= bins {
		b = bins - 1
	}
	return b
}

// countBins adds the per-bin counts of samples into counts, choosing
// a reduction strategy by the footprint of the indicator tensor the
// high-memory strategy would materialize.
func countBins(samples, edges, counts *vec.Array) error {
	if err := validateBinArgs(samples, edges, counts, false); err != nil {
		return err
	}
	if samples.Shape[0]*counts.Size() > maxIndicatorElems {
		lowMemoryCounts(samples, edges, counts)
	} else {
		highMemoryCounts(samples, edges, counts)
	}
	return nil
}

// lowMemoryCounts accumulates bin counts one sample at a time with
// bounded scratch: each value is located by binary search over its
// point's edges. More passes over the edges, no sample×bin tensor.
func lowMemoryCounts(samples, edges, counts *vec.Array) {
	bins := counts.Shape[0]
	ps := counts.PointSize()
	for i := 0; i < samples.Shape[0]; i++ {
		row := samples.Row(i)
		for p, v := range row {
			counts.Data[findBin(edges, bins, ps, p, v)*ps+p]++
		}
	}
}

// highMemoryCounts materializes the full sample×bin×point indicator
// and reduces it over the sample axis in a single pass. Memory grows
// with m*B*points; the aggregate counts are identical to
// lowMemoryCounts.
func highMemoryCounts(samples, edges, counts *vec.Array) {
	m := samples.Shape[0]
	bins := counts.Shape[0]
	ps := counts.PointSize()

	ind := make([]bool, m*bins*ps)
	for i := 0; i < m; i++ {
		row := samples.Row(i)
		for b := 0; b < bins; b++ {
			out := ind[(i*bins+b)*ps : (i*bins+b+1)*ps]
			for p, v := range row {
				lo := edges.Data[b*ps+p]
				hi := edges.Data[(b+1)*ps+p]
				out[p] = (v >= lo || b == 0) && (v < hi || b == bins-1)
			}
		}
	}
	for i := 0; i < m; i++ {
		for b := 0; b < bins; b++ {
			row := ind[(i*bins+b)*ps : (i*bins+b+1)*ps]
			for p, in := range row {
				if in {
					counts.Data[b*ps+p]++
				}
			}
		}
	}
}

// cumBins adds unnormalized cumulative edge counts of samples into
// cum, which has shape [B+1, point...]: cum[k] gains the number of
// samples strictly below edges[k] for interior edges, zero at the
// first edge, and the full sample count at the last. Dividing by the
// total sample count afterwards yields the empirical CDF.
func cumBins(samples, edges, cum *vec.Array) error {
	if err := validateBinArgs(samples, edges, cum, true); err != nil {
		return err
	}
	if samples.Shape[0]*cum.Size() > maxIndicatorElems {
		lowMemoryCDF(samples, edges, cum)
	} else {
		highMemoryCDF(samples, edges, cum)
	}
	return nil
}

// lowMemoryCDF computes cumulative edge counts through a bounded
// bin-count scratch: samples are binned by binary search and the bin
// counts are prefix-summed into cum.
func lowMemoryCDF(samples, edges, cum *vec.Array) {
	bins := cum.Shape[0] - 1
	ps := cum.PointSize()
	scratch := vec.New(append([]int{bins}, cum.PointShape()...)...)
	lowMemoryCounts(samples, edges, scratch)
	run := make([]float64, ps)
	for k := 1; k <= bins; k++ {
		floats.Add(run, scratch.Row(k-1))
		floats.Add(cum.Row(k), run)
	}
}

// highMemoryCDF materializes the full sample×edge×point indicator of
// v < edges[k] and reduces it over the sample axis. Agrees exactly
// with lowMemoryCDF under the same end-bin clamping.
func highMemoryCDF(samples, edges, cum *vec.Array) {
	m := samples.Shape[0]
	bins := cum.Shape[0] - 1
	ps := cum.PointSize()

	ind := make([]bool, m*(bins+1)*ps)
	for i := 0; i < m; i++ {
		row := samples.Row(i)
		for k := 0; k <= bins; k++ {
			out := ind[(i*(bins+1)+k)*ps : (i*(bins+1)+k+1)*ps]
			for p, v := range row {
				// Clamping makes the first edge count
				// nothing and the last edge count
				// everything.
				out[p] = k > 0 && (v < edges.Data[k*ps+p] || k == bins)
			}
		}
	}
	for i := 0; i < m; i++ {
		for k := 0; k <= bins; k++ {
			row := ind[(i*(bins+1)+k)*ps : (i*(bins+1)+k+1)*ps]
			for p, in := range row {
				if in {
					cum.Data[k*ps+p]++
				}
			}
		}
	}
}

// promoteSamples lifts rank-1 sample arrays to [m, 1] so the counting
// layer always sees a point axis. It reports whether outputs should
// be squeezed back to rank 1.
func promoteSamples(xs []*vec.Array) ([]*vec.Array, bool, error) {
	if len(xs) == 0 {
		return nil, false, ErrEmpty
	}
	squeeze := xs[0].Rank() == 1
	if !squeeze {
		return xs, false, nil
	}
	out := make([]*vec.Array, len(xs))
	for i, x := range xs {
		if x.Rank() != 1 {
			return nil, false, shapeErr("samples", x.Shape, []int{x.Size()})
		}
		out[i] = vec.NewData(x.Data, x.Shape[0], 1)
	}
	return out, true, nil
}

// squeezeBinAxis drops the trailing singleton point axis a rank-1
// input was promoted with.
func squeezeBinAxis(a *vec.Array) *vec.Array {
	return vec.NewData(a.Data, a.Shape[0])
}

// HistogramCounts bins one or more sample arrays into bins evenly
// spaced per-point bins spanning the global min/max of the samples,
// returning the bin edges [bins+1, point...] and counts
// [bins, point...]. Rank-1 inputs are treated as a single point.
func HistogramCounts(bins int, xs ...*vec.Array) (edges, counts *vec.Array, err error) {
	sx, squeeze, err := promoteSamples(xs)
	if err != nil {
		return nil, nil, err
	}
	mins, maxs, err := MinsMaxs(sx...)
	if err != nil {
		return nil, nil, err
	}
	edges, err = Linspace(mins, maxs, bins)
	if err != nil {
		return nil, nil, err
	}
	counts = vec.New(append([]int{bins}, sx[0].PointShape()...)...)
	for _, x := range sx {
		if err := countBins(x, edges, counts); err != nil {
			return nil, nil, err
		}
	}
	if squeeze {
		edges, counts = squeezeBinAxis(edges), squeezeBinAxis(counts)
	}
	return edges, counts, nil
}

// HistogramWith bins one or more sample arrays against externally
// supplied edges. Samples outside the edge range clamp into the end
// bins, so the counts still sum to the total sample count.
func HistogramWith(edges *vec.Array, xs ...*vec.Array) (*vec.Array, *vec.Array, error) {
	sx, squeeze, err := promoteSamples(xs)
	if err != nil {
		return nil, nil, err
	}
	e := edges
	if squeeze && e.Rank() == 1 {
		e = vec.NewData(e.Data, e.Shape[0], 1)
	}
	counts := vec.New(append([]int{e.Shape[0] - 1}, sx[0].PointShape()...)...)
	for _, x := range sx {
		if err := countBins(x, e, counts); err != nil {
			return nil, nil, err
		}
	}
	if squeeze {
		return edges.Clone(), squeezeBinAxis(counts), nil
	}
	return e.Clone(), counts, nil
}

// CumulativeDensity bins one or more sample arrays into bins evenly
// spaced per-point bins and returns the edges together with the
// empirical CDF [bins+1, point...], with CDF[0] = 0 and CDF[bins] = 1.
func CumulativeDensity(bins int, xs ...*vec.Array) (edges, cdf *vec.Array, err error) {
	sx, squeeze, err := promoteSamples(xs)
	if err != nil {
		return nil, nil, err
	}
	mins, maxs, err := MinsMaxs(sx...)
	if err != nil {
		return nil, nil, err
	}
	edges, err = Linspace(mins, maxs, bins)
	if err != nil {
		return nil, nil, err
	}
	cdf, err = cumulativeWith(edges, sx)
	if err != nil {
		return nil, nil, err
	}
	if squeeze {
		edges, cdf = squeezeBinAxis(edges), squeezeBinAxis(cdf)
	}
	return edges, cdf, nil
}

// CumulativeDensityWith is CumulativeDensity against externally
// supplied edges, for building comparable CDFs over a shared range.
func CumulativeDensityWith(edges *vec.Array, xs ...*vec.Array) (*vec.Array, *vec.Array, error) {
	sx, squeeze, err := promoteSamples(xs)
	if err != nil {
		return nil, nil, err
	}
	e := edges
	if squeeze && e.Rank() == 1 {
		e = vec.NewData(e.Data, e.Shape[0], 1)
	}
	cdf, err := cumulativeWith(e, sx)
	if err != nil {
		return nil, nil, err
	}
	if squeeze {
		return edges.Clone(), squeezeBinAxis(cdf), nil
	}
	return e.Clone(), cdf, nil
}

func cumulativeWith(edges *vec.Array, sx []*vec.Array) (*vec.Array, error) {
	cum := vec.New(append([]int{edges.Shape[0]}, sx[0].PointShape()...)...)
	total := 0
	for _, x := range sx {
		if err := cumBins(x, edges, cum); err != nil {
			return nil, err
		}
		total += x.Shape[0]
	}
	floats.Scale(1/float64(total), cum.Data)
	return cum, nil
}

// A Histogram accumulates per-point bin counts across batches of
// samples. The point shape is fixed at construction; Update merges
// each new batch into the running counts and Finalize derives a
// density without mutating state.
//
// When edges are derived from the data (NewHistogram), an Update
// whose samples fall outside the current edge range extends the edges
// by whole multiples of each point's existing bin width until the
// union range is covered, so historical counts are re-expressed on
// the new edges exactly, at an index offset. Bin width never shrinks:
// resolution is fixed by the first batch.
type Histogram struct {
	// Reducer, if non-nil, merges statistics across distributed
	// participants: mins and maxes are all-reduced before edges
	// are derived so all participants agree on them, and counts
	// are sum-reduced in Finalize. Participants must call Update
	// and Finalize in lockstep.
	Reducer Reducer

	bins       int
	pointShape []int
	fixed      bool // externally supplied edges; never extended

	edges  *vec.Array
	counts *vec.Array
	n      int // samples seen locally
}

// NewHistogram returns a Histogram over the given point shape whose
// edges are derived from the first batch and extended as needed.
func NewHistogram(pointShape []int, bins int) *Histogram {
	return &Histogram{bins: bins, pointShape: append([]int(nil), pointShape...)}
}

// NewHistogramEdges returns a Histogram with fixed, externally
// supplied edges of shape [B+1, point...]. Out-of-range samples clamp
// into the end bins.
func NewHistogramEdges(edges *vec.Array) (*Histogram, error) {
	if edges.Rank() < 2 {
		return nil, rankErr("edges", edges.Rank(), 2)
	}
	h := &Histogram{
		bins:       edges.Shape[0] - 1,
		pointShape: append([]int(nil), edges.PointShape()...),
		fixed:      true,
		edges:      edges.Clone(),
	}
	h.counts = vec.New(append([]int{h.bins}, h.pointShape...)...)
	return h, nil
}

// Update merges one or more sample batches into the running counts
// and returns the current edges and counts.
func (h *Histogram) Update(xs ...*vec.Array) (edges, counts *vec.Array, err error) {
	sx, _, err := promoteSamples(xs)
	if err != nil {
		return nil, nil, err
	}
	wantPoint := h.pointShape
	if len(wantPoint) == 0 {
		wantPoint = []int{1}
	}
	for _, x := range sx {
		if !vec.EqualShapes(x.PointShape(), wantPoint) {
			return nil, nil, shapeErr("samples", x.PointShape(), h.pointShape)
		}
	}

	if !h.fixed {
		mins, maxs, err := MinsMaxs(sx...)
		if err != nil {
			return nil, nil, err
		}
		if h.Reducer != nil {
			if mins.Data, err = h.Reducer.AllReduceMin(mins.Data); err != nil {
				return nil, nil, err
			}
			if maxs.Data, err = h.Reducer.AllReduceMax(maxs.Data); err != nil {
				return nil, nil, err
			}
		}
		if h.edges == nil {
			if h.edges, err = Linspace(mins, maxs, h.bins); err != nil {
				return nil, nil, err
			}
			h.counts = vec.New(append([]int{h.bins}, mins.Shape...)...)
		} else {
			h.extend(mins, maxs)
		}
	}

	for _, x := range sx {
		if err := countBins(x, h.edges, h.counts); err != nil {
			return nil, nil, err
		}
		h.n += x.Shape[0]
	}
	return h.edges.Clone(), h.counts.Clone(), nil
}

// extend grows the edge range by whole bins of the existing per-point
// width until [mins, maxs] is covered, shifting historical counts to
// their new bin indices. The number of added bins is uniform across
// points so edges and counts stay rectangular. Points with a
// degenerate zero-width range cannot be extended; their out-of-range
// samples continue to clamp.
func (h *Histogram) extend(mins, maxs *vec.Array) {
	bins := h.counts.Shape[0]
	ps := h.counts.PointSize()
	below, above := 0, 0
	for p := 0; p < ps; p++ {
		start := h.edges.Data[p]
		end := h.edges.Data[bins*ps+p]
		w := (end - start) / float64(bins)
		if w <= 0 {
			continue
		}
		if v := mins.Data[p]; v < start {
			if k := int(math.Ceil((start - v) / w)); k > below {
				below = k
			}
		}
		if v := maxs.Data[p]; v > end {
			if k := int(math.Ceil((v - end) / w)); k > above {
				above = k
			}
		}
	}
	if below == 0 && above == 0 {
		return
	}

	newBins := bins + below + above
	edges := vec.New(append([]int{newBins + 1}, h.counts.PointShape()...)...)
	for p := 0; p < ps; p++ {
		start := h.edges.Data[p]
		end := h.edges.Data[bins*ps+p]
		w := (end - start) / float64(bins)
		for k := 0; k <= newBins; k++ {
			edges.Data[k*ps+p] = start + float64(k-below)*w
		}
	}
	counts := vec.New(append([]int{newBins}, h.counts.PointShape()...)...)
	for b := 0; b < bins; b++ {
		copy(counts.Row(b+below), h.counts.Row(b))
	}
	h.edges, h.counts = edges, counts
}

// Finalize returns the current edges together with the probability
// density per bin, or the cumulative distribution at the edges when
// cdf is true. It does not mutate the accumulator. With a Reducer
// set, counts are sum-reduced across participants first.
func (h *Histogram) Finalize(cdf bool) (edges, density *vec.Array, err error) {
	if h.counts == nil {
		return nil, nil, ErrEmpty
	}
	counts := h.counts.Clone()
	if h.Reducer != nil {
		if counts.Data, err = h.Reducer.AllReduceSum(counts.Data); err != nil {
			return nil, nil, err
		}
	}

	bins := counts.Shape[0]
	ps := counts.PointSize()
	totals := make([]float64, ps)
	for b := 0; b < bins; b++ {
		floats.Add(totals, counts.Row(b))
	}

	if !cdf {
		pdf := counts
		for b := 0; b < bins; b++ {
			row := pdf.Row(b)
			for p := range row {
				if totals[p] > 0 {
					row[p] /= totals[p]
				}
			}
		}
		return h.edges.Clone(), pdf, nil
	}

	out := vec.New(append([]int{bins + 1}, counts.PointShape()...)...)
	for k := 1; k <= bins; k++ {
		row := out.Row(k)
		copy(row, out.Row(k-1))
		prev := counts.Row(k - 1)
		for p := range row {
			if totals[p] > 0 {
				row[p] += prev[p] / totals[p]
			}
		}
	}
	return h.edges.Clone(), out, nil
}
