// SPDX-License-Identifier: MIT

package unfold

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/lvunfold/matrix"
)

// truncatedSVD unfolds with the pseudo-inverse of the response restricted to
// its k largest singular values. k ≤ 0 selects nt/2.
type truncatedSVD struct {
	k       int
	inverse *mat.Dense // nt×nm, from the last Unfold
}

func newSVD() *truncatedSVD { return &truncatedSVD{} }

func (*truncatedSVD) Tag() AlgorithmTag { return AlgSVD }

func (s *truncatedSVD) RegParm() float64 { return float64(s.k) }

func (s *truncatedSVD) SetRegParm(p float64) { s.k = int(math.Round(p)) }

func (*truncatedSVD) ParamBounds(nt, _ int) ParamBounds {
	return ParamBounds{Min: 1, Max: float64(nt), Step: 1, Default: float64(max(1, nt/2))}
}

// Unfold implements Algorithm.
//
// Implementation:
//   - Stage 1: Factorize R = U·Σ·Vᵀ (thin).
//   - Stage 2: R⁺ₖ = Σ_{l<k} v_l·u_lᵀ/σ_l over non-negligible σ_l.
//   - Stage 3: rec = R⁺ₖ·m.
//
// Complexity:
//   - Time O(nm·nt·min(nm,nt)), Space O(nm·nt).
func (s *truncatedSVD) Unfold(in *Input) ([]float64, error) {
	r := in.Response.Matrix()
	nm, nt := r.Dims()
	if nt != in.Nt || nm != in.Nm {
		return nil, unfoldErrorf(opSVD, fmt.Errorf("response %dx%d: %w", nm, nt, ErrDimensionMismatch))
	}
	var svd mat.SVD
	if !svd.Factorize(r, mat.SVDThin) {
		return nil, unfoldErrorf(opSVD, ErrInversionFailed)
	}
	sv := svd.Values(nil)
	if len(sv) == 0 || !(sv[0] > 0) {
		return nil, unfoldErrorf(opSVD, fmt.Errorf("zero response: %w", ErrInversionFailed))
	}
	k := s.k
	if k <= 0 {
		k = max(1, nt/2)
	}
	k = min(k, len(sv))
	tol := float64(max(nm, nt)) * sv[0] * 2.220446049250313e-16

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	inv := mat.NewDense(nt, nm, nil)
	var kept int
	for l := 0; l < k; l++ {
		if sv[l] <= tol {
			break
		}
		var outer mat.Dense
		outer.Outer(1/sv[l], v.ColView(l), u.ColView(l))
		inv.Add(inv, &outer)
		kept++
	}
	in.info("svd truncation", "k", k, "kept", kept, "sigma_max", sv[0], "sigma_min", sv[len(sv)-1])
	s.inverse = inv

	rec, err := matrix.MulVec(inv, in.Measured)
	if err != nil {
		return nil, unfoldErrorf(opSVD, err)
	}
	return rec, nil
}

// Covariance propagates the measured covariance: R⁺ₖ·V·R⁺ₖᵀ.
func (s *truncatedSVD) Covariance(in *Input, _ []float64) (*mat.Dense, error) {
	if s.inverse == nil {
		return nil, unfoldErrorf(opSVD, ErrInversionFailed)
	}
	return propagate(s.inverse, in.MeasuredCov), nil
}
