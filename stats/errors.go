// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stats

import (
	"errors"
	"fmt"
)

var (
	// ErrShape indicates an argument whose rank or point shape
	// disagrees with the other arguments or with an accumulator's
	// configured point shape.
	ErrShape = errors.New("shape mismatch")

	// ErrEmpty indicates a required sample argument was omitted
	// entirely.
	ErrEmpty = errors.New("no sample arrays")

	// ErrNotSupported indicates an operation not provided by a
	// metric variant. This is a programming error, not a data
	// error.
	ErrNotSupported = errors.New("not supported by this metric")
)

// shapeErr reports a shape mismatch for the named argument with
// enough context to fix the call.
func shapeErr(name string, got, want []int) error {
	return fmt.Errorf("%w: %s has shape %v, want %v", ErrShape, name, got, want)
}

// rankErr reports an argument of insufficient rank. The counting and
// derivation layers require a leading bin or sample axis plus point
// axes.
func rankErr(name string, got, want int) error {
	return fmt.Errorf("%w: %s has rank %d, want at least %d", ErrShape, name, got, want)
}
