// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stats

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/aclements/go-ensemble/vec"
)

func TestEntropyGaussian(t *testing.T) {
	rng := rand.New(rand.NewSource(30))
	x := randn(rng, 1, 50_000, 4, 4)
	edges, counts, err := HistogramCounts(30, x)
	if err != nil {
		t.Fatal(err)
	}

	// Differential entropy of N(0,1) is ½ + ½·ln(2π).
	want := 0.5 + 0.5*math.Log(2*math.Pi)
	ent, err := EntropyFromCounts(counts, edges, false)
	if err != nil {
		t.Fatal(err)
	}
	if !vec.EqualShapes(ent.Shape, []int{4, 4}) {
		t.Fatalf("entropy shape %v, want [4 4]", ent.Shape)
	}
	for p, v := range ent.Data {
		if !aeqTol(want, v, 5e-2) {
			t.Errorf("point %d: entropy %v, want %v", p, v, want)
		}
	}

	norm, err := EntropyFromCounts(counts, edges, true)
	if err != nil {
		t.Fatal(err)
	}
	for p, v := range norm.Data {
		if v < 0 || v > 1 {
			t.Errorf("point %d: normalized entropy %v outside [0, 1]", p, v)
		}
	}
}

func TestEntropyUniform(t *testing.T) {
	rng := rand.New(rand.NewSource(31))
	x := randu(rng, 50_000, 3, 3)
	edges, counts, err := HistogramCounts(30, x)
	if err != nil {
		t.Fatal(err)
	}
	// A flat distribution has maximal normalized entropy.
	norm, err := EntropyFromCounts(counts, edges, true)
	if err != nil {
		t.Fatal(err)
	}
	for p, v := range norm.Data {
		if !aeqTol(1, v, 1e-2) {
			t.Errorf("point %d: normalized entropy %v, want 1", p, v)
		}
	}
}

func TestRelativeEntropy(t *testing.T) {
	rng := rand.New(rand.NewSource(32))
	x := randn(rng, 1, 100_000, 3, 3)
	edges, countsX, err := HistogramCounts(30, x)
	if err != nil {
		t.Fatal(err)
	}
	_, counts1, err := HistogramWith(edges, randn(rng, 1, 100_000, 3, 3))
	if err != nil {
		t.Fatal(err)
	}
	_, counts2, err := HistogramWith(edges, randn(rng, 0.1, 100_000, 3, 3))
	if err != nil {
		t.Fatal(err)
	}

	rel1, err := RelativeEntropyFromCounts(countsX, counts1, edges)
	if err != nil {
		t.Fatal(err)
	}
	rel2, err := RelativeEntropyFromCounts(counts2, countsX, edges)
	if err != nil {
		t.Fatal(err)
	}
	for p := range rel1.Data {
		// A resample of the same distribution is much closer
		// than a genuinely different one, whose divergence is
		// strictly positive.
		if rel1.Data[p] > rel2.Data[p] {
			t.Errorf("point %d: rel entropy %v vs %v, want monotone in divergence",
				p, rel1.Data[p], rel2.Data[p])
		}
		if rel2.Data[p] <= 0 {
			t.Errorf("point %d: rel entropy of narrow distribution %v, want > 0",
				p, rel2.Data[p])
		}
		if rel1.Data[p] < -1e-3 {
			t.Errorf("point %d: rel entropy %v, want near 0", p, rel1.Data[p])
		}
	}
}

func TestEntropyErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(33))
	x := randn(rng, 1, 1000, 2, 2)
	edges, counts, err := HistogramCounts(10, x)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := EntropyFromCounts(vec.New(10, 1, 1), edges, false); !errors.Is(err, ErrShape) {
		t.Errorf("mismatched point shape: got %v, want ErrShape", err)
	}
	if _, err := EntropyFromCounts(vec.New(1, 2, 2), edges, false); !errors.Is(err, ErrShape) {
		t.Errorf("wrong bin count: got %v, want ErrShape", err)
	}
	if _, err := EntropyFromCounts(vec.New(10), edges, false); !errors.Is(err, ErrShape) {
		t.Errorf("rank-1 counts: got %v, want ErrShape", err)
	}
	if _, err := RelativeEntropyFromCounts(vec.New(10, 1, 1), counts, edges); !errors.Is(err, ErrShape) {
		t.Errorf("mismatched p: got %v, want ErrShape", err)
	}
	if _, err := RelativeEntropyFromCounts(counts, vec.New(1, 2, 2), edges); !errors.Is(err, ErrShape) {
		t.Errorf("mismatched q: got %v, want ErrShape", err)
	}
}
