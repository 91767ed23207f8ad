// SPDX-License-Identifier: MIT

// Bias estimation.
//
// Every protocol works on a disposable clone of the engine whose measured
// input is an Asimov copy of the response's training measured distribution
// (contents as given, errors sqrt(content)). The engine's own cache is touched
// only to store the result, and only on success.
//
//	Estimator: unfold the clone once, bias = (unfolded − truth)/truth.
//	Closure:   unfold ntoys toys of the clone, bias = mean of (toy − truth)/toy.
//	Asimov:    ntoys primary draws of the nominal truth, ntoys secondary draws
//	           of each, folded and unfolded; bias = mean of (primary − unfolded)/primary.

package unfold

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/katalvlaran/lvunfold/dist"
)

// CalculateBias estimates the unfolding bias against truth (the response's
// training truth when nil) with the given protocol. Unknown methods panic.
//
// Returns ErrDimensionMismatch if truth does not match nt, ErrInvalidConfig if
// Closure or Asimov get ntoys < 1, and ErrBiasFailed if the clone could not be
// unfolded.
func (e *Engine) CalculateBias(method BiasMethod, ntoys int, truth dist.Backend) error {
	if method < BiasEstimator || method > BiasAsimov {
		panic(panicUnknownBias)
	}
	if truth == nil {
		truth = e.res.Truth()
	}
	tv := truth.Vector(e.overflow, e.density)
	te := truth.ErrorVector(e.overflow, e.density)
	if len(tv) != e.nt {
		return unfoldErrorf(opBias, fmt.Errorf("truth has %d bins, want %d: %w", len(tv), e.nt, ErrDimensionMismatch))
	}
	if method != BiasEstimator && ntoys < 1 {
		return unfoldErrorf(opBias, fmt.Errorf("%v needs at least one toy: %w", method, ErrInvalidConfig))
	}

	trained := e.res.Measured()
	asimov, err := trained.Derive(trained.Vector(e.overflow, e.density), nil, e.overflow, e.density)
	if err != nil {
		return unfoldErrorf(opBias, err)
	}
	toy := e.clone(asimov)
	toy.covMes = nil

	var bias, sig []float64
	switch method {
	case BiasEstimator:
		bias, sig, err = toy.biasEstimator(tv, te)
	case BiasClosure:
		bias, sig, err = toy.biasClosure(tv, ntoys)
	case BiasAsimov:
		bias, sig, err = toy.biasAsimov(ntoys)
	}
	if err != nil {
		return unfoldErrorf(opBias, err)
	}

	c := e.cache
	c.bias, c.sigBias, c.haveBias = bias, sig, true
	e.infof("bias calculated", "method", method, "toys", ntoys)
	e.debugf("bias", "bias", bias, "error", sig)

	return nil
}

// CalculateBiasToys runs Estimator when ntoys is 0 and Closure otherwise.
func (e *Engine) CalculateBiasToys(ntoys int, truth dist.Backend) error {
	if ntoys == 0 {
		return e.CalculateBias(BiasEstimator, 0, truth)
	}
	return e.CalculateBias(BiasClosure, ntoys, truth)
}

// Vbias returns the bias per truth bin.
func (e *Engine) Vbias() ([]float64, error) {
	if !e.cache.haveBias {
		return nil, unfoldErrorf(opVbias, ErrBiasNotCalculated)
	}
	return append([]float64(nil), e.cache.bias...), nil
}

// Ebias returns the bias uncertainty per truth bin.
func (e *Engine) Ebias() ([]float64, error) {
	if !e.cache.haveBias {
		return nil, unfoldErrorf(opEbias, ErrBiasNotCalculated)
	}
	return append([]float64(nil), e.cache.sigBias...), nil
}

// biasEstimator treats truth and unfolded errors as uncorrelated. Bins with
// zero truth report absolute differences.
func (e *Engine) biasEstimator(truth, truthErr []float64) (bias, sig []float64, err error) {
	unf := e.Vunfold()
	unfErr := e.EunfoldV(Default)
	if e.cache.fail {
		return nil, nil, ErrBiasFailed
	}
	bias = make([]float64, e.nt)
	sig = make([]float64, e.nt)
	for i, t := range truth {
		d := unf[i] - t
		s := math.Hypot(truthErr[i], unfErr[i])
		if t != 0 {
			d, s = d/t, s/t
		}
		bias[i], sig[i] = d, s
	}
	return bias, sig, nil
}

// biasClosure averages per-toy pulls normalized by the toy's own unfolded
// value. Pulls of toys with zero error or zero content in a bin count as 0.
func (e *Engine) biasClosure(truth []float64, ntoys int) (bias, sig []float64, err error) {
	set := e.RunToys(ntoys)
	if set.Failed > 0 || len(set.Errors) != ntoys {
		return nil, nil, fmt.Errorf("%d of %d toys failed: %w", set.Failed, ntoys, ErrBiasFailed)
	}
	bias = make([]float64, e.nt)
	sig = make([]float64, e.nt)
	pulls := make([]float64, ntoys)
	for j := 0; j < e.nt; j++ {
		for i := range pulls {
			pulls[i] = 0
			if x := set.Values[i][j]; set.Errors[i][j] != 0 && x != 0 {
				pulls[i] = (x - truth[j]) / x
			}
		}
		if ntoys == 1 {
			bias[j] = pulls[0]
			continue
		}
		mean, variance := stat.MeanVariance(pulls, nil)
		bias[j], sig[j] = mean, math.Sqrt(variance/float64(ntoys))
	}
	return bias, sig, nil
}

// biasAsimov collects ntoys² relative differences between primary truth toys
// and the unfolding of their folded secondary toys.
func (e *Engine) biasAsimov(ntoys int) (bias, sig []float64, err error) {
	samples, err := e.runBiasAsimovToys(ntoys)
	if err != nil {
		return nil, nil, err
	}
	n := float64(len(samples))
	bias = make([]float64, e.nt)
	sig = make([]float64, e.nt)
	for i := 0; i < e.nt; i++ {
		var sum, sum2 float64
		for _, b := range samples {
			sum += b[i]
			sum2 += b[i] * b[i]
		}
		mean := sum / n
		bias[i] = mean
		if len(samples) > 1 {
			sig[i] = math.Sqrt(math.Abs(sum2-sum*mean) / (n - 1) / n)
		} else {
			sig[i] = math.Sqrt(sum2)
		}
	}
	return bias, sig, nil
}

func (e *Engine) runBiasAsimovToys(ntoys int) ([][]float64, error) {
	defer e.ForceRecalculation()

	nominal := e.res.VTruth()
	samples := make([][]float64, 0, ntoys*ntoys)
	for i := 0; i < ntoys; i++ {
		primary := append([]float64(nil), nominal...)
		dist.Fluctuate(primary, e.rng)
		for j := 0; j < ntoys; j++ {
			secondary := append([]float64(nil), primary...)
			dist.Fluctuate(secondary, e.rng)
			folded, err := e.res.Fold(secondary)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrBiasFailed, err)
			}
			e.ForceRecalculation()
			e.cache.vMes = folded
			unf := e.Vunfold()
			if e.cache.fail {
				return nil, fmt.Errorf("asimov toy %d/%d: %w", i, j, ErrBiasFailed)
			}
			b := make([]float64, e.nt)
			for k, t := range primary {
				if t > 0 {
					b[k] = (t - unf[k]) / t
				}
			}
			samples = append(samples, b)
		}
	}
	return samples, nil
}
