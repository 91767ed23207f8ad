// SPDX-License-Identifier: MIT

package matrix

import (
	"gonum.org/v1/gonum/mat"
)

// Moments accumulates the first and second raw moments of a stream of
// fixed-length observations so that the sample covariance can be formed
// without storing the observations.
//
// Implementation:
//   - Add: Σxᵢ += xᵢ and Σxᵢxⱼ += xᵢ·xⱼ for every pair (i,j).
//   - Covariance: (Σxᵢxⱼ − Σxᵢ·Σxⱼ/N) / (N−1), the unbiased sample estimator.
//
// Determinism:
//   - Fixed i→j accumulation order; identical input streams give identical output.
//
// Complexity:
//   - Add O(n²), Covariance O(n²), Space O(n²).
type Moments struct {
	n     int
	count int
	sum   []float64
	sumSq *mat.SymDense
}

// NewMoments allocates an accumulator for observations of length n (n > 0).
func NewMoments(n int) (*Moments, error) {
	if n <= 0 {
		return nil, matrixErrorf(opMoments, ErrEmpty)
	}
	return &Moments{
		n:     n,
		sum:   make([]float64, n),
		sumSq: mat.NewSymDense(n, nil),
	}, nil
}

// Add records one observation.
func (a *Moments) Add(x []float64) error {
	if err := ValidateVecLen(x, a.n); err != nil {
		return matrixErrorf(opMoments, err)
	}
	var i, j int
	for i = 0; i < a.n; i++ {
		a.sum[i] += x[i]
		for j = i; j < a.n; j++ {
			a.sumSq.SetSym(i, j, a.sumSq.At(i, j)+x[i]*x[j])
		}
	}
	a.count++

	return nil
}

// Count returns the number of observations recorded.
func (a *Moments) Count() int { return a.count }

// Mean returns Σx/N, or ErrTooFewSamples when nothing was recorded.
func (a *Moments) Mean() ([]float64, error) {
	if a.count == 0 {
		return nil, matrixErrorf(opMoments, ErrTooFewSamples)
	}
	out := make([]float64, a.n)
	for i, s := range a.sum {
		out[i] = s / float64(a.count)
	}
	return out, nil
}

// Covariance returns the n×n unbiased sample covariance.
// Errors: ErrTooFewSamples when fewer than two observations were recorded.
func (a *Moments) Covariance() (*mat.Dense, error) {
	if a.count < 2 {
		return nil, matrixErrorf(opMoments, ErrTooFewSamples)
	}
	N := float64(a.count)
	out := mat.NewDense(a.n, a.n, nil)
	var i, j int
	for i = 0; i < a.n; i++ {
		for j = 0; j < a.n; j++ {
			out.Set(i, j, (a.sumSq.At(i, j)-a.sum[i]*a.sum[j]/N)/(N-1))
		}
	}

	return out, nil
}
