// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/aclements/go-ensemble/vec"
)

// UpdateMean merges a batch of samples into a running mean aggregate
// of n samples and returns the combined unnormalized sum together
// with the new count; the caller divides by the count to recover the
// mean. Keeping the sum unnormalized lets repeated merges avoid
// compounding rounding from intermediate divisions.
//
// When batched is true, batch carries its samples along the leading
// axis with point shape equal to mean's shape; otherwise batch is a
// single point-shaped sample.
func UpdateMean(mean *vec.Array, n int, batch *vec.Array, batched bool) (sum *vec.Array, nOut int, err error) {
	sum = mean.Clone()
	floats.Scale(float64(n), sum.Data)
	if !batched {
		if !vec.SameShape(batch, mean) {
			return nil, 0, shapeErr("batch", batch.Shape, mean.Shape)
		}
		floats.Add(sum.Data, batch.Data)
		return sum, n + 1, nil
	}
	if batch.Rank() < 1 || !vec.EqualShapes(batch.PointShape(), mean.Shape) {
		return nil, 0, shapeErr("batch", batch.PointShape(), mean.Shape)
	}
	m := batch.Shape[0]
	for i := 0; i < m; i++ {
		floats.Add(sum.Data, batch.Row(i))
	}
	return sum, n + m, nil
}

// UpdateVar merges a batch of samples into a running variance
// aggregate (mean, sum of squared deviations, count) using the
// parallel-variance combination
//
//	M2' = M2 + M2_batch + n·m/(n+m) · (mean_batch − mean)²
//
// and returns the combined unnormalized sum, combined sum of squared
// deviations, and new count. Variance = sumSq/(n'−1). The result
// matches a two-pass computation over the union of the batches to
// within rounding for any partition of the data.
//
// Chan, T. F.; Golub, G. H.; LeVeque, R. J. (1983). "Algorithms for
// computing the sample variance: analysis and recommendations". The
// American Statistician 37 (3): 242-247.
func UpdateVar(mean, sumSqDev *vec.Array, n int, batch *vec.Array, batched bool) (sum, sumSq *vec.Array, nOut int, err error) {
	if !vec.SameShape(mean, sumSqDev) {
		return nil, nil, 0, shapeErr("sumSqDev", sumSqDev.Shape, mean.Shape)
	}

	var batchMean *vec.Array
	var batchM2 *vec.Array
	var m int
	if !batched {
		if !vec.SameShape(batch, mean) {
			return nil, nil, 0, shapeErr("batch", batch.Shape, mean.Shape)
		}
		batchMean, batchM2, m = batch.Clone(), vec.New(mean.Shape...), 1
	} else {
		if batch.Rank() < 1 || !vec.EqualShapes(batch.PointShape(), mean.Shape) {
			return nil, nil, 0, shapeErr("batch", batch.PointShape(), mean.Shape)
		}
		m = batch.Shape[0]
		batchMean = vec.New(mean.Shape...)
		for i := 0; i < m; i++ {
			floats.Add(batchMean.Data, batch.Row(i))
		}
		floats.Scale(1/float64(m), batchMean.Data)
		batchM2 = vec.New(mean.Shape...)
		for i := 0; i < m; i++ {
			row := batch.Row(i)
			for p, v := range row {
				d := v - batchMean.Data[p]
				batchM2.Data[p] += d * d
			}
		}
	}

	sum = mean.Clone()
	floats.Scale(float64(n), sum.Data)
	floats.AddScaled(sum.Data, float64(m), batchMean.Data)

	sumSq = sumSqDev.Clone()
	floats.Add(sumSq.Data, batchM2.Data)
	w := float64(n) * float64(m) / float64(n+m)
	for p := range sumSq.Data {
		d := batchMean.Data[p] - mean.Data[p]
		sumSq.Data[p] += w * d * d
	}
	return sum, sumSq, n + m, nil
}

// A Metric is a stateful per-point ensemble statistic accumulated
// across sample batches. Call initializes the aggregate from a first
// batch, Update merges a further batch and returns the running
// statistic, and Finalize reads the current estimate without mutating
// state.
type Metric interface {
	Call(x *vec.Array) (*vec.Array, error)
	Update(x *vec.Array) (*vec.Array, error)
	Finalize() (*vec.Array, error)
}

// MetricBase carries the point shape and distributed-reduction hook
// shared by the concrete metrics. It implements Metric, but every
// operation fails with ErrNotSupported: the base is a dispatch point,
// not a statistic.
type MetricBase struct {
	// Reducer, if non-nil, merges partial sums and counts across
	// distributed participants during Finalize.
	Reducer Reducer

	pointShape []int
}

// NewMetricBase returns a MetricBase over the given point shape.
func NewMetricBase(pointShape []int) *MetricBase {
	return &MetricBase{pointShape: append([]int(nil), pointShape...)}
}

// PointShape returns the configured point shape.
func (b *MetricBase) PointShape() []int { return b.pointShape }

func (b *MetricBase) Call(*vec.Array) (*vec.Array, error) {
	return nil, fmt.Errorf("%w: Call", ErrNotSupported)
}

func (b *MetricBase) Update(*vec.Array) (*vec.Array, error) {
	return nil, fmt.Errorf("%w: Update", ErrNotSupported)
}

func (b *MetricBase) Finalize() (*vec.Array, error) {
	return nil, fmt.Errorf("%w: Finalize", ErrNotSupported)
}

// checkShape validates a batch of shape [m, point...] against the
// configured point shape.
func (b *MetricBase) checkShape(x *vec.Array) error {
	if x.Rank() < 1 {
		return rankErr("batch", x.Rank(), 1)
	}
	if !vec.EqualShapes(x.PointShape(), b.pointShape) {
		return shapeErr("batch", x.PointShape(), b.pointShape)
	}
	return nil
}

// reduceSumCount all-reduces an unnormalized sum array and a local
// sample count across participants.
func (b *MetricBase) reduceSumCount(sum *vec.Array, n int) (*vec.Array, int, error) {
	if b.Reducer == nil {
		return sum, n, nil
	}
	data, err := b.Reducer.AllReduceSum(append([]float64(nil), sum.Data...))
	if err != nil {
		return nil, 0, err
	}
	ns, err := b.Reducer.AllReduceSum([]float64{float64(n)})
	if err != nil {
		return nil, 0, err
	}
	return vec.NewData(data, sum.Shape...), int(ns[0]), nil
}

// Mean is the streaming per-point ensemble mean.
type Mean struct {
	MetricBase
	sum *vec.Array
	n   int
}

// NewMean returns a Mean metric over the given point shape.
func NewMean(pointShape []int) *Mean {
	return &Mean{MetricBase: *NewMetricBase(pointShape)}
}

// Call resets the aggregate and initializes it from a first batch,
// returning the batch mean.
func (mn *Mean) Call(x *vec.Array) (*vec.Array, error) {
	mn.sum, mn.n = nil, 0
	return mn.Update(x)
}

// Update merges a batch into the aggregate and returns the running
// mean.
func (mn *Mean) Update(x *vec.Array) (*vec.Array, error) {
	if err := mn.checkShape(x); err != nil {
		return nil, err
	}
	if mn.sum == nil {
		mn.sum = vec.New(mn.pointShape...)
	}
	mean := mn.mean(mn.sum, mn.n)
	sum, n, err := UpdateMean(mean, mn.n, x, true)
	if err != nil {
		return nil, err
	}
	mn.sum, mn.n = sum, n
	return mn.mean(sum, n), nil
}

// Finalize returns the current mean. With a Reducer set, partial sums
// and counts are combined across participants first.
func (mn *Mean) Finalize() (*vec.Array, error) {
	if mn.sum == nil {
		return nil, ErrEmpty
	}
	sum, n, err := mn.reduceSumCount(mn.sum, mn.n)
	if err != nil {
		return nil, err
	}
	return mn.mean(sum, n), nil
}

func (*Mean) mean(sum *vec.Array, n int) *vec.Array {
	out := sum.Clone()
	if n > 0 {
		floats.Scale(1/float64(n), out.Data)
	}
	return out
}

// Variance is the streaming per-point ensemble sample variance.
type Variance struct {
	MetricBase
	sum   *vec.Array // Σx per point
	sumSq *vec.Array // sum of squared deviations per point
	n     int
}

// NewVariance returns a Variance metric over the given point shape.
func NewVariance(pointShape []int) *Variance {
	return &Variance{MetricBase: *NewMetricBase(pointShape)}
}

// Call resets the aggregate and initializes it from a first batch,
// returning the batch sample variance.
func (v *Variance) Call(x *vec.Array) (*vec.Array, error) {
	v.sum, v.sumSq, v.n = nil, nil, 0
	return v.Update(x)
}

// Update merges a batch into the aggregate and returns the running
// sample variance.
func (v *Variance) Update(x *vec.Array) (*vec.Array, error) {
	if err := v.checkShape(x); err != nil {
		return nil, err
	}
	if v.sum == nil {
		v.sum = vec.New(v.pointShape...)
		v.sumSq = vec.New(v.pointShape...)
	}
	mean := v.sum.Clone()
	if v.n > 0 {
		floats.Scale(1/float64(v.n), mean.Data)
	}
	sum, sumSq, n, err := UpdateVar(mean, v.sumSq, v.n, x, true)
	if err != nil {
		return nil, err
	}
	v.sum, v.sumSq, v.n = sum, sumSq, n
	return variance(sumSq, n), nil
}

// Finalize returns the current sample variance. With a Reducer set,
// the distributed aggregate is recovered from all-reduced sums: the
// global sum of squared deviations is Σᵣ(M2ᵣ + nᵣ·meanᵣ²) − N·mean̄²,
// which needs only elementwise sum reductions.
func (v *Variance) Finalize() (*vec.Array, error) {
	sumSq, n, err := v.finalizeAggregate()
	if err != nil {
		return nil, err
	}
	return variance(sumSq, n), nil
}

// Stddev returns the current sample standard deviation.
func (v *Variance) Stddev() (*vec.Array, error) {
	out, err := v.Finalize()
	if err != nil {
		return nil, err
	}
	for p, x := range out.Data {
		out.Data[p] = math.Sqrt(x)
	}
	return out, nil
}

func (v *Variance) finalizeAggregate() (*vec.Array, int, error) {
	if v.sum == nil {
		return nil, 0, ErrEmpty
	}
	if v.Reducer == nil {
		return v.sumSq.Clone(), v.n, nil
	}
	// Local term M2 + n·mean² = M2 + sum²/n.
	local := v.sumSq.Clone()
	for p, s := range v.sum.Data {
		local.Data[p] += s * s / float64(v.n)
	}
	data, err := v.Reducer.AllReduceSum(local.Data)
	if err != nil {
		return nil, 0, err
	}
	sum, n, err := v.reduceSumCount(v.sum, v.n)
	if err != nil {
		return nil, 0, err
	}
	sumSq := vec.NewData(data, v.pointShape...)
	for p, s := range sum.Data {
		sumSq.Data[p] -= s * s / float64(n)
	}
	return sumSq, n, nil
}

func variance(sumSq *vec.Array, n int) *vec.Array {
	out := sumSq.Clone()
	if n > 1 {
		floats.Scale(1/float64(n-1), out.Data)
	} else {
		for p := range out.Data {
			out.Data[p] = 0
		}
	}
	return out
}
