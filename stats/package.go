// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// stats computes probabilistic verification statistics over ensembles
// of forecasts or samples.
//
// Sample arrays carry their draws along the leading axis; every other
// axis is an independent grid point. From per-point empirical
// histograms and streaming moment aggregates, the package derives the
// continuous ranked probability score, Shannon and relative entropy,
// rank histograms with their calibration score, and the 1-Wasserstein
// distance between empirical CDFs.
package stats // import "github.com/aclements/go-ensemble/stats"
