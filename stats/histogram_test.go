// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stats

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/aclements/go-ensemble/vec"
)

func TestLinspace(t *testing.T) {
	start := vec.New(3, 4)
	end := vec.Full(1, 3, 4)
	edges, err := Linspace(start, end, 10)
	if err != nil {
		t.Fatal(err)
	}
	if !vec.EqualShapes(edges.Shape, []int{11, 3, 4}) {
		t.Fatalf("edges shape %v, want [11 3 4]", edges.Shape)
	}
	for i := 0; i <= 10; i++ {
		for _, v := range edges.Row(i) {
			if !aeq(float64(i)/10, v) {
				t.Errorf("edge %d = %v, want %v", i, v, float64(i)/10)
			}
		}
	}

	if _, err := Linspace(vec.New(3), vec.New(4), 10); !errors.Is(err, ErrShape) {
		t.Errorf("mismatched start/end: got %v, want ErrShape", err)
	}
}

func TestLinspaceDegenerate(t *testing.T) {
	// start == end collapses all boundaries to one value; counting
	// against such edges clamps every sample into the last bin.
	x := vec.Full(2.5, 20, 2)
	edges, counts, err := HistogramCounts(5, x)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 6; i++ {
		for _, v := range edges.Row(i) {
			if v != 2.5 {
				t.Fatalf("degenerate edge = %v, want 2.5", v)
			}
		}
	}
	for _, v := range counts.Row(4) {
		if v != 20 {
			t.Errorf("last bin count = %v, want 20", v)
		}
	}
}

func TestMinsMaxs(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	x := randn(rng, 1, 10, 3)
	y := randn(rng, 1, 5, 3)
	mins, maxs, err := MinsMaxs(x, y)
	if err != nil {
		t.Fatal(err)
	}
	for p := 0; p < 3; p++ {
		lo, hi := mins.Data[p], maxs.Data[p]
		for _, v := range append(column(x, p), column(y, p)...) {
			if v < lo || v > hi {
				t.Fatalf("point %d: sample %v outside [%v, %v]", p, v, lo, hi)
			}
		}
	}

	if _, _, err := MinsMaxs(); !errors.Is(err, ErrEmpty) {
		t.Errorf("no arrays: got %v, want ErrEmpty", err)
	}
	if _, _, err := MinsMaxs(randn(rng, 1, 10, 3), randn(rng, 1, 10, 5)); !errors.Is(err, ErrShape) {
		t.Errorf("mismatched points: got %v, want ErrShape", err)
	}
}

func TestBinStrategiesAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	x := randn(rng, 1, 50, 3, 4)
	// Edges deliberately narrower than the data so the clamping
	// paths of both strategies are exercised.
	edges, err := Linspace(vec.Full(-1, 3, 4), vec.Full(1, 3, 4), 10)
	if err != nil {
		t.Fatal(err)
	}

	low := vec.New(10, 3, 4)
	high := vec.New(10, 3, 4)
	lowMemoryCounts(x, edges, low)
	highMemoryCounts(x, edges, high)
	for i, v := range low.Data {
		if v != high.Data[i] {
			t.Fatalf("counts disagree at %d: low %v, high %v", i, v, high.Data[i])
		}
	}

	lowCum := vec.New(11, 3, 4)
	highCum := vec.New(11, 3, 4)
	lowMemoryCDF(x, edges, lowCum)
	highMemoryCDF(x, edges, highCum)
	for i, v := range lowCum.Data {
		if v != highCum.Data[i] {
			t.Fatalf("cumulative counts disagree at %d: low %v, high %v", i, v, highCum.Data[i])
		}
	}
}

func TestHistogramTotals(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	x := randn(rng, 1, 10, 2, 3)
	y := randn(rng, 1, 5, 2, 3)

	for _, bins := range []int{1, 5, 10, 30} {
		_, counts, err := HistogramCounts(bins, x)
		if err != nil {
			t.Fatal(err)
		}
		checkTotals(t, counts, 10)

		_, counts, err = HistogramCounts(bins, x, y)
		if err != nil {
			t.Fatal(err)
		}
		checkTotals(t, counts, 15)
	}

	// Counting new data against edges derived from old data must
	// still account for every sample.
	edges, _, err := HistogramCounts(10, x)
	if err != nil {
		t.Fatal(err)
	}
	_, counts, err := HistogramWith(edges, x, y)
	if err != nil {
		t.Fatal(err)
	}
	checkTotals(t, counts, 15)
}

func checkTotals(t *testing.T, counts *vec.Array, want float64) {
	t.Helper()
	ps := counts.PointSize()
	totals := make([]float64, ps)
	for b := 0; b < counts.Shape[0]; b++ {
		for p, v := range counts.Row(b) {
			totals[p] += v
		}
	}
	for p, v := range totals {
		if v != want {
			t.Fatalf("point %d: total count %v, want %v", p, v, want)
		}
	}
}

func TestHistogramRank1(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	x := randn(rng, 1, 10)
	edges, counts, err := HistogramCounts(10, x)
	if err != nil {
		t.Fatal(err)
	}
	if len(edges.Shape) != 1 || edges.Shape[0] != 11 {
		t.Fatalf("edges shape %v, want [11]", edges.Shape)
	}
	if len(counts.Shape) != 1 || counts.Shape[0] != 10 {
		t.Fatalf("counts shape %v, want [10]", counts.Shape)
	}
	sum := 0.0
	for _, v := range counts.Data {
		sum += v
	}
	if sum != 10 {
		t.Errorf("total count %v, want 10", sum)
	}
	for i := 1; i < 11; i++ {
		if edges.Data[i] < edges.Data[i-1] {
			t.Errorf("edges not monotonic at %d", i)
		}
	}
}

func TestCountBinsErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	x := randn(rng, 1, 10, 3)
	edges, _ := Linspace(vec.New(3), vec.Full(1, 3), 10)
	counts := vec.New(10, 3)

	if err := countBins(vec.New(12), edges, counts); !errors.Is(err, ErrShape) {
		t.Errorf("rank-1 samples: got %v, want ErrShape", err)
	}
	if err := countBins(x, edges, vec.New(10, 5)); !errors.Is(err, ErrShape) {
		t.Errorf("mismatched counts: got %v, want ErrShape", err)
	}
	if err := countBins(x, edges, vec.New(7, 3)); !errors.Is(err, ErrShape) {
		t.Errorf("wrong bin count: got %v, want ErrShape", err)
	}
	if _, _, err := HistogramCounts(10); !errors.Is(err, ErrEmpty) {
		t.Errorf("no samples: got %v, want ErrEmpty", err)
	}
}

func TestHistogramUpdateExtends(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	h := NewHistogram([]int{2}, 10)

	x := randu(rng, 40, 2) // [0, 1)
	edges1, counts1, err := h.Update(x)
	if err != nil {
		t.Fatal(err)
	}
	checkTotals(t, counts1, 40)
	width := edges1.Data[1*2] - edges1.Data[0]

	y := randu(rng, 20, 2)
	for i := range y.Data {
		y.Data[i] = y.Data[i]*3 - 1 // [-1, 2), outside the old range
	}
	edges2, counts2, err := h.Update(y)
	if err != nil {
		t.Fatal(err)
	}
	checkTotals(t, counts2, 60)
	if edges2.Shape[0] <= edges1.Shape[0] {
		t.Fatalf("edges not extended: %v -> %v", edges1.Shape, edges2.Shape)
	}
	if w := edges2.Data[1*2] - edges2.Data[0]; !aeq(width, w) {
		t.Errorf("bin width changed on extension: %v -> %v", width, w)
	}

	// Historical counts must be recoverable exactly at an index
	// offset: the old first edge appears among the new edges.
	offset := -1
	for k := 0; k < edges2.Shape[0]; k++ {
		if aeq(edges1.Data[0], edges2.Row(k)[0]) {
			offset = k
			break
		}
	}
	if offset < 0 {
		t.Fatal("old first edge not found among extended edges")
	}
	for b := 0; b < counts1.Shape[0]; b++ {
		oldRow := counts1.Row(b)
		newRow := counts2.Row(b + offset)
		for p := range oldRow {
			if newRow[p] < oldRow[p] {
				t.Fatalf("bin %d point %d: extended count %v below historical %v",
					b, p, newRow[p], oldRow[p])
			}
		}
	}
}

func TestHistogramFinalize(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	h := NewHistogram([]int{3, 4}, 12)
	if _, _, err := h.Update(randn(rng, 1, 25, 3, 4)); err != nil {
		t.Fatal(err)
	}
	if _, _, err := h.Update(randn(rng, 1, 15, 3, 4)); err != nil {
		t.Fatal(err)
	}

	_, pdf, err := h.Finalize(false)
	if err != nil {
		t.Fatal(err)
	}
	ps := pdf.PointSize()
	sums := make([]float64, ps)
	for b := 0; b < pdf.Shape[0]; b++ {
		for p, v := range pdf.Row(b) {
			sums[p] += v
		}
	}
	for p, v := range sums {
		if !aeq(1, v) {
			t.Errorf("point %d: pdf sums to %v, want 1", p, v)
		}
	}

	_, cdf, err := h.Finalize(true)
	if err != nil {
		t.Fatal(err)
	}
	last := cdf.Row(cdf.Shape[0] - 1)
	for p, v := range cdf.Row(0) {
		if v != 0 {
			t.Errorf("point %d: cdf[0] = %v, want 0", p, v)
		}
		if !aeq(1, last[p]) {
			t.Errorf("point %d: cdf[-1] = %v, want 1", p, last[p])
		}
	}
	for k := 1; k < cdf.Shape[0]; k++ {
		prev := cdf.Row(k - 1)
		for p, v := range cdf.Row(k) {
			if v < prev[p] {
				t.Fatalf("cdf not monotone at edge %d point %d", k, p)
			}
		}
	}
}

func TestCumulativeDensity(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	x := randn(rng, 1, 200, 2, 2)
	edges, cdf, err := CumulativeDensity(25, x)
	if err != nil {
		t.Fatal(err)
	}
	last := cdf.Row(cdf.Shape[0] - 1)
	for p, v := range last {
		if !aeq(1, v) {
			t.Errorf("point %d: cdf[-1] = %v, want 1", p, v)
		}
	}

	// The CDF path must agree with the counts path bin for bin.
	_, counts, err := HistogramWith(edges, x)
	if err != nil {
		t.Fatal(err)
	}
	fromCounts := cdfFromCounts(counts)
	for i, v := range cdf.Data {
		if !aeq(fromCounts.Data[i], v) {
			t.Fatalf("cdf disagrees with counts-derived cdf at %d: %v vs %v",
				i, v, fromCounts.Data[i])
		}
	}
}

func TestHistogramDistributed(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	x1 := randn(rng, 1, 30, 2)
	x2 := randn(rng, 1, 20, 2)

	mins2, maxs2, err := MinsMaxs(x2)
	if err != nil {
		t.Fatal(err)
	}
	red := &queueReducer{
		mins: [][]float64{mins2.Data},
		maxs: [][]float64{maxs2.Data},
	}
	h := NewHistogram([]int{2}, 8)
	h.Reducer = red

	edges, _, err := h.Update(x1)
	if err != nil {
		t.Fatal(err)
	}
	// Partner counts against the agreed edges.
	_, counts2, err := HistogramWith(edges, x2)
	if err != nil {
		t.Fatal(err)
	}
	red.sums = [][]float64{counts2.Data}

	_, pdf, err := h.Finalize(false)
	if err != nil {
		t.Fatal(err)
	}

	// Single-process reference over the union.
	_, want, err := HistogramCounts(8, x1, x2)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range pdf.Data {
		if !aeq(want.Data[i]/50, v) {
			t.Fatalf("distributed pdf at %d: %v, want %v", i, v, want.Data[i]/50)
		}
	}
}
