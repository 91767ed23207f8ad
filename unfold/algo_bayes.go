// SPDX-License-Identifier: MIT

package unfold

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/lvunfold/matrix"
)

const (
	// DefaultBayesIterations is the iteration count when none is configured.
	DefaultBayesIterations = 4
	maxBayesIterations     = 15
)

// bayes is iterative Bayesian unfolding. Each iteration builds the unfolding
// matrix M(i,j) = P(truth i | measured j)/ε(i) from the current prior and
// replaces the prior with the normalized result. The first prior is the
// training truth.
type bayes struct {
	iterations int
	unfolding  *mat.Dense // nt×nm, from the last Unfold
}

func newBayes() *bayes { return &bayes{iterations: DefaultBayesIterations} }

func (*bayes) Tag() AlgorithmTag { return AlgBayes }

func (b *bayes) RegParm() float64 { return float64(b.iterations) }

// SetRegParm rounds p to an iteration count of at least one.
func (b *bayes) SetRegParm(p float64) { b.iterations = max(1, int(math.Round(p))) }

func (*bayes) ParamBounds(_, _ int) ParamBounds {
	return ParamBounds{Min: 1, Max: maxBayesIterations, Step: 1, Default: DefaultBayesIterations}
}

// Unfold implements Algorithm.
//
// Implementation:
//   - Stage 1: Efficiencies ε(i) = Σ_j R(j,i); prior = training truth shape.
//   - Stage 2: For each iteration, M(i,j) = R(j,i)·p(i) / (f(j)·ε(i)) with
//     f(j) = Σ_i R(j,i)·p(i), then n = M·m and p = n/Σn.
//
// Complexity:
//   - Time O(iterations·nt·nm), Space O(nt·nm).
func (b *bayes) Unfold(in *Input) ([]float64, error) {
	r := in.Response.Matrix()
	nm, nt := r.Dims()
	if nt != in.Nt || nm != in.Nm {
		return nil, unfoldErrorf(opBayes, fmt.Errorf("response %dx%d: %w", nm, nt, ErrDimensionMismatch))
	}

	eff := make([]float64, nt)
	for i := range eff {
		eff[i] = floats.Sum(mat.Col(nil, i, r))
	}
	prior := in.Response.Truth().Vector(in.Overflow, false)
	if s := floats.Sum(prior); s > 0 {
		floats.Scale(1/s, prior)
	} else {
		for i := range prior {
			prior[i] = 1 / float64(nt)
		}
	}

	m := mat.NewDense(nt, nm, nil)
	folded := make([]float64, nm)
	var rec []float64
	var err error
	for it := 0; it < b.iterations; it++ {
		for j := range folded {
			folded[j] = floats.Dot(r.RawRowView(j), prior)
		}
		for i := 0; i < nt; i++ {
			for j := 0; j < nm; j++ {
				v := 0.0
				if folded[j] > 0 && eff[i] > 0 {
					v = r.At(j, i) * prior[i] / (folded[j] * eff[i])
				}
				m.Set(i, j, v)
			}
		}
		if rec, err = matrix.MulVec(m, in.Measured); err != nil {
			return nil, unfoldErrorf(opBayes, err)
		}
		if s := floats.Sum(rec); s > 0 {
			copy(prior, rec)
			floats.Scale(1/s, prior)
		}
		in.info("bayes iteration", "iteration", it+1, "total", floats.Sum(rec))
	}
	b.unfolding = m

	return rec, nil
}

// Covariance propagates the measured covariance through the last unfolding
// matrix, ignoring the dependence of M on the data.
func (b *bayes) Covariance(in *Input, _ []float64) (*mat.Dense, error) {
	if b.unfolding == nil {
		return nil, unfoldErrorf(opBayes, ErrDimensionMismatch)
	}
	return propagate(b.unfolding, in.MeasuredCov), nil
}
