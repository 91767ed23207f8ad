// Package matrix provides the numeric kernels shared by the unfolding engine.
//
// The matrix package provides:
//
//   - Invert: SVD pseudo-inverse of a square matrix with a Status describing
//     its conditioning (ok, bad condition, poor condition, failed) and
//     verbosity-gated diagnostics through log/slog.
//   - Moments: streaming first/second raw moments and the unbiased sample
//     covariance built from them.
//   - Small helpers over gonum matrices (QuadraticForm, MulVec, CopyBlock,
//     Diagonal, IdentityDeviation) and the validators they rely on.
//
// Storage is gonum's mat.Dense throughout; this package never panics on user
// data and reports numeric trouble through Status values or sentinel errors.
package matrix
