// SPDX-License-Identifier: MIT

package unfold

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/lvunfold/matrix"
)

// noneAlgorithm copies the measured values into the first min(nm, nt) bins.
// It is a diagnostic fallback, not an unfolding.
type noneAlgorithm struct{}

func (noneAlgorithm) Tag() AlgorithmTag { return AlgNone }

func (noneAlgorithm) Unfold(in *Input) ([]float64, error) {
	in.info("dummy unfolding: copying measured input")
	rec := make([]float64, in.Nt)
	copy(rec, in.Measured[:min(in.Nm, in.Nt)])

	return rec, nil
}

// binByBin scales each measured bin by the training ratio truth/measured.
// It needs identical truth and measured binning.
type binByBin struct {
	factors []float64
}

func (*binByBin) Tag() AlgorithmTag { return AlgBinByBin }

func (b *binByBin) Unfold(in *Input) ([]float64, error) {
	if in.Nt != in.Nm {
		return nil, unfoldErrorf(opBinByBin, fmt.Errorf("nt=%d nm=%d: %w", in.Nt, in.Nm, ErrBinningMismatch))
	}
	truth := in.Response.VTruth()
	train := in.Response.VMeasured()
	b.factors = make([]float64, in.Nt)
	rec := make([]float64, in.Nt)
	for i := range rec {
		if train[i] != 0 {
			b.factors[i] = truth[i] / train[i]
			rec[i] = in.Measured[i] * b.factors[i]
		}
	}
	in.info("bin-by-bin correction factors", "factors", b.factors)

	return rec, nil
}

// Covariance scales the measured covariance by the correction factors.
func (b *binByBin) Covariance(in *Input, _ []float64) (*mat.Dense, error) {
	if len(b.factors) != in.Nt {
		return nil, unfoldErrorf(opBinByBin, ErrDimensionMismatch)
	}
	cov := mat.NewDense(in.Nt, in.Nt, nil)
	cov.Apply(func(i, j int, v float64) float64 {
		return b.factors[i] * b.factors[j] * in.MeasuredCov.At(i, j)
	}, cov)

	return cov, nil
}

// inversion applies the pseudo-inverse of the response matrix. Non-square
// responses use the nt×nm Moore-Penrose inverse.
type inversion struct {
	inv *mat.Dense // nt×nm, from the last Unfold
}

func (*inversion) Tag() AlgorithmTag { return AlgInvert }

func (a *inversion) Unfold(in *Input) ([]float64, error) {
	inv, status := matrix.PseudoInverse(in.Response.Matrix(),
		matrix.WithName("response matrix"),
		matrix.WithVerbose(in.Verbose),
		matrix.WithLogger(in.Logger),
	)
	if !status.Usable() {
		return nil, unfoldErrorf(opInvertAlg, fmt.Errorf("response matrix: %v: %w", status, ErrInversionFailed))
	}
	a.inv = inv
	rec, err := matrix.MulVec(inv, in.Measured)
	if err != nil {
		return nil, unfoldErrorf(opInvertAlg, err)
	}
	return rec, nil
}

// Covariance propagates the measured covariance: R⁺·V·R⁺ᵀ.
func (a *inversion) Covariance(in *Input, _ []float64) (*mat.Dense, error) {
	if a.inv == nil {
		return nil, unfoldErrorf(opInvertAlg, ErrInversionFailed)
	}
	return propagate(a.inv, in.MeasuredCov), nil
}

// propagate returns m·v·mᵀ.
func propagate(m mat.Matrix, v mat.Matrix) *mat.Dense {
	var mv, out mat.Dense
	mv.Mul(m, v)
	out.Mul(&mv, m.T())

	return &out
}
