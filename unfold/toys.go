// SPDX-License-Identifier: MIT

package unfold

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/katalvlaran/lvunfold/dist"
)

// ToySet collects the results of RunToys. Errors and Chi2 are filled only when
// the engine's error treatment was not NoError when the run started.
type ToySet struct {
	Values [][]float64
	Errors [][]float64
	Chi2   []float64
	// Failed counts toys whose unfolding failed; their Values are zeros.
	Failed int
}

// RunToys unfolds n randomized replicas of the current inputs. Before each toy
// the cache is reset; the measured vector is Poisson-fluctuated unless the
// systematics mode is NoMeasured, and the response is fluctuated only when it
// is AllSystematics. Parametric measured distributions are fluctuated through
// their nuisance parameters instead.
//
// The engine's error treatment is Default while the loop runs and is restored
// afterwards, together with a final cache reset.
func (e *Engine) RunToys(n int) ToySet {
	errorType := e.withError
	e.withError = Default
	defer func() {
		e.ForceRecalculation()
		e.withError = errorType
	}()

	if e.meas.Kind() == dist.KindParametric {
		return e.runParametricToys(n, errorType)
	}
	var set ToySet
	for i := 0; i < n; i++ {
		e.ForceRecalculation()
		if e.dosys != NoMeasured {
			dist.Fluctuate(e.vmeas(), e.rng)
		}
		if e.dosys == AllSystematics {
			e.res.RunToy(e.rng)
		}
		e.recordToy(&set, errorType)
	}
	e.infof("toys done", "toys", n, "failed", set.Failed)

	return set
}

// RunToy is RunToys(1) unpacked. chi2 is -1 when errors were not requested.
func (e *Engine) RunToy() (x, xe []float64, chi2 float64) {
	set := e.RunToys(1)
	x, chi2 = set.Values[0], -1
	if len(set.Errors) > 0 {
		xe, chi2 = set.Errors[0], set.Chi2[0]
	}
	return x, xe, chi2
}

func (e *Engine) recordToy(set *ToySet, errorType ErrorTreatment) {
	x := e.Vunfold()
	if e.cache.fail {
		set.Failed++
	}
	set.Values = append(set.Values, x)
	if errorType != NoError {
		set.Errors = append(set.Errors, e.EunfoldV(Default))
		set.Chi2 = append(set.Chi2, e.Chi2(nil, Default))
	}
}

// gammaSource is implemented by backends with one nuisance parameter per bin.
type gammaSource interface {
	Gammas(overflow bool) []*dist.Parameter
}

// runParametricToys draws every floating nuisance parameter from a
// multivariate Gaussian centred on its current value and unfolds once per
// draw. An explicit measured covariance correlates the measured γ parameters
// as cov(i,j)/(m_i·m_j). Parameter values are restored afterwards.
func (e *Engine) runParametricToys(n int, errorType ErrorTreatment) ToySet {
	var params []*dist.Parameter
	if e.dosys != NoMeasured {
		params = append(params, e.meas.Nuisance()...)
	}
	if e.dosys == AllSystematics {
		params = append(params, e.res.NuisanceParameters()...)
	}

	var set ToySet
	if len(params) == 0 {
		for i := 0; i < n; i++ {
			e.ForceRecalculation()
			e.recordToy(&set, errorType)
		}
		return set
	}

	nominal := dist.Snapshot(params)
	defer dist.Restore(params, nominal)

	sigma := mat.NewSymDense(len(params), nil)
	index := make(map[*dist.Parameter]int, len(params))
	for k, p := range params {
		index[p] = k
		sigma.SetSym(k, k, p.Error*p.Error)
	}
	if gs, ok := e.meas.(gammaSource); ok && e.covMes != nil && e.dosys != NoMeasured {
		gammas := gs.Gammas(e.overflow)
		m := e.meas.Vector(e.overflow, e.density)
		for i, gi := range gammas {
			ki, ok := index[gi]
			if !ok || m[i] == 0 {
				continue
			}
			for j := i; j < len(gammas); j++ {
				kj, ok := index[gammas[j]]
				if !ok || m[j] == 0 {
					continue
				}
				sigma.SetSym(ki, kj, e.covMes.At(i, j)/(m[i]*m[j]))
			}
		}
	}

	normal, ok := distmv.NewNormal(nominal, sigma, e.rng)
	if !ok {
		e.warnf("nuisance covariance is not positive definite", "parameters", len(params))
		set.Failed = n
		for i := 0; i < n; i++ {
			set.Values = append(set.Values, make([]float64, e.nt))
		}
		return set
	}
	draw := make([]float64, len(params))
	for i := 0; i < n; i++ {
		normal.Rand(draw)
		dist.Restore(params, draw)
		e.ForceRecalculation()
		e.recordToy(&set, errorType)
	}
	e.infof("parametric toys done", "toys", n, "parameters", len(params), "failed", set.Failed)

	return set
}
