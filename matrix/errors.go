// SPDX-License-Identifier: MIT
// Package matrix: sentinel error set.
// This file defines ONLY package-level sentinel errors used across the matrix
// package. Kernels return these sentinels (optionally wrapped with an operation
// tag through matrixErrorf) and tests match them via errors.Is.

package matrix

import (
	"errors"
	"fmt"
)

// NOTE ON NAMING & PREFIXING
// --------------------------
// Every message is prefixed with "matrix: ..." for consistency and to allow
// easy grepping across logs. Context is added at the outer boundary with
// matrixErrorf(op, err); callers still use errors.Is to match.

var (
	// ErrNilMatrix indicates that a nil matrix or vector argument was used.
	ErrNilMatrix = errors.New("matrix: nil argument")

	// ErrDimensionMismatch indicates incompatible dimensions between operands,
	// e.g. a vector whose length differs from the matrix order.
	ErrDimensionMismatch = errors.New("matrix: dimension mismatch")

	// ErrNonSquare signals that a square matrix was required but the input wasn't.
	ErrNonSquare = errors.New("matrix: matrix is not square")

	// ErrEmpty signals a zero-sized operand where at least one element is required.
	ErrEmpty = errors.New("matrix: empty operand")

	// ErrNaNInf signals a NaN or ±Inf value was encountered where finite values
	// are required.
	ErrNaNInf = errors.New("matrix: NaN or Inf encountered")

	// ErrTooFewSamples is returned by sample statistics that need at least two
	// observations (the n-1 denominator).
	ErrTooFewSamples = errors.New("matrix: at least two samples required")
)

// Operation name constants for unified error wrapping.
const (
	opInvert        = "Invert"
	opPseudoInverse = "PseudoInverse"
	opQuadratic     = "QuadraticForm"
	opMulVec        = "MulVec"
	opMoments       = "Moments"
	opBlock         = "CopyBlock"
)

// matrixErrorf wraps err with an operation tag, preserving the original error via %w.
// Use only when err != nil.
func matrixErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}
