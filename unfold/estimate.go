// SPDX-License-Identifier: MIT

// Error estimation.
//
// UnfoldWithErrors is the single entry point every error accessor funnels
// through. It unfolds on first use and then builds exactly the quantity the
// requested ErrorTreatment needs:
//
//	Errors, Parametric  → diagonal variances
//	Covariance          → covariance (or its inverse when weights are wanted)
//	CovToy              → covariance from the spread of toy unfoldings
//	NoError, Default    → nothing
//
// Any quantity that cannot be built sets the sticky fail flag; accessors then
// return zero-filled results rather than errors.

package unfold

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/katalvlaran/lvunfold/dist"
	"github.com/katalvlaran/lvunfold/matrix"
)

// resolve maps Default to the configured treatment, and that to Errors when
// no treatment was ever configured. Unknown values panic.
func (e *Engine) resolve(t ErrorTreatment) ErrorTreatment {
	if t < NoError || t > Default {
		panic(panicUnknownTreatment)
	}
	if t == Default {
		t = e.withError
	}
	if t == Default {
		t = Errors
	}
	return t
}

// UnfoldWithErrors unfolds if needed and builds the error quantity t requires.
// With wantWeights and t ∈ {Errors, Covariance} it builds the inverse
// covariance instead. It reports false, leaving the fail flag set, if anything
// could not be built or an earlier step of this cache generation failed.
// NoError needs only the unfolded vector and succeeds whenever one is cached.
func (e *Engine) UnfoldWithErrors(t ErrorTreatment, wantWeights bool) bool {
	if t < NoError || t > Default {
		panic(panicUnknownTreatment)
	}
	c := e.cache
	if !e.ensureUnfolded() || (c.fail && t != NoError) {
		return false
	}
	if e.withError != t {
		c.haveErrors = false
	}
	e.withError = t

	ok := true
	switch {
	case wantWeights && (t == Errors || t == Covariance):
		if !c.haveWgt {
			e.getWgt()
		}
		ok = c.haveWgt
	case t == Errors || t == Parametric:
		if !c.haveErrors {
			e.getErrors(t)
		}
		ok = c.haveErrors
	case t == Covariance:
		if !c.haveCov {
			e.getCov()
		}
		ok = c.haveCov
	case t == CovToy:
		if !c.haveErrMat {
			e.getErrMat()
		}
		ok = c.haveErrMat
	}
	if !ok {
		c.fail = true
	}
	return ok
}

// getCov asks the algorithm for its covariance. Algorithms without one get
// the measured covariance copied into the top-left min(nm, nt) block.
func (e *Engine) getCov() {
	c := e.cache
	if ce, ok := e.alg.(CovarianceEstimator); ok {
		cov, err := ce.Covariance(e.input(), c.rec)
		if err != nil {
			e.warnf("covariance failed", "algorithm", e.tag, "err", err)
			return
		}
		if r, k := cov.Dims(); r != e.nt || k != e.nt {
			e.warnf("covariance failed", "algorithm", e.tag,
				"err", fmt.Errorf("got %dx%d, want %dx%d: %w", r, k, e.nt, e.nt, ErrDimensionMismatch))
			return
		}
		c.cov, c.haveCov = cov, true
		return
	}

	cov := mat.NewDense(e.nt, e.nt, nil)
	if err := matrix.CopyBlock(cov, e.measuredCov(), min(e.nm, e.nt)); err != nil {
		e.warnf("covariance failed", "err", err)
		return
	}
	c.cov, c.haveCov = cov, true
}

// getWgt inverts the covariance.
func (e *Engine) getWgt() {
	c := e.cache
	if !c.haveCov {
		e.getCov()
	}
	if !c.haveCov {
		return
	}
	wgt, status := matrix.Invert(c.cov, e.invertOptions("covariance matrix")...)
	if !status.Usable() {
		e.warnf("cannot invert covariance matrix", "status", status)
		return
	}
	c.wgt, c.haveWgt = wgt, true
}

// getErrors fills the diagonal variances. Parametric on a parametric
// measured distribution uses a toy ensemble; everything else uses the
// algorithm's own variances or the covariance diagonal.
func (e *Engine) getErrors(t ErrorTreatment) {
	c := e.cache
	if t == Parametric && e.meas.Kind() == dist.KindParametric {
		e.getErrorsToys()
		return
	}
	if ve, ok := e.alg.(VarianceEstimator); ok {
		v, err := ve.Variances(e.input(), c.rec)
		if err != nil || len(v) != e.nt {
			e.warnf("variances failed", "algorithm", e.tag, "err", err)
			return
		}
		c.variances, c.haveErrors = v, true
		return
	}
	if !c.haveCov {
		e.getCov()
	}
	if !c.haveCov {
		return
	}
	c.variances, c.haveErrors = matrix.DiagOf(c.cov), true
}

// getErrorsToys takes per-bin variances from nToys parametric toys run on a
// disposable clone, leaving this engine's cache and parameters untouched.
func (e *Engine) getErrorsToys() {
	if e.nToys <= 1 {
		e.warnf("parametric errors need more than one toy", "toys", e.nToys)
		return
	}
	set := e.clone(e.meas).RunToys(e.nToys)
	if set.Failed > 0 {
		e.warnf("parametric errors failed", "failed_toys", set.Failed)
		return
	}
	col := make([]float64, len(set.Values))
	variances := make([]float64, e.nt)
	for j := range variances {
		for i, x := range set.Values {
			col[i] = x[j]
		}
		_, variances[j] = stat.MeanVariance(col, nil)
	}
	c := e.cache
	c.variances, c.haveErrors = variances, true
}

// getErrMat builds the toy covariance from nToys single-toy unfoldings of a
// disposable clone.
func (e *Engine) getErrMat() {
	if e.nToys <= 1 {
		e.warnf("toy covariance needs more than one toy", "toys", e.nToys)
		return
	}
	acc, err := matrix.NewMoments(e.nt)
	if err != nil {
		e.warnf("toy covariance failed", "err", err)
		return
	}
	toy := e.clone(e.meas)
	for k := 0; k < e.nToys; k++ {
		set := toy.RunToys(1)
		if set.Failed > 0 {
			e.warnf("toy covariance failed", "toy", k)
			return
		}
		if err = acc.Add(set.Values[0]); err != nil {
			e.warnf("toy covariance failed", "toy", k, "err", err)
			return
		}
	}
	cov, err := acc.Covariance()
	if err != nil {
		e.warnf("toy covariance failed", "err", err)
		return
	}
	c := e.cache
	c.errMat, c.haveErrMat = cov, true
	e.debugf("toy covariance", "matrix", mat.Formatted(cov, mat.Squeeze()))
}

// Eunfold returns the covariance representation of t: a diagonal of the
// unfolded contents (NoError), a diagonal of variances (Errors, Parametric), the
// covariance (Covariance) or the toy covariance (CovToy). A failed
// computation yields a zero matrix.
func (e *Engine) Eunfold(t ErrorTreatment) *mat.Dense {
	t = e.resolve(t)
	if !e.UnfoldWithErrors(t, false) {
		return mat.NewDense(e.nt, e.nt, nil)
	}
	c := e.cache
	switch t {
	case NoError:
		return matrix.Diagonal(c.rec)
	case Errors, Parametric:
		return matrix.Diagonal(c.variances)
	case Covariance:
		return mat.DenseCopyOf(c.cov)
	default:
		return mat.DenseCopyOf(c.errMat)
	}
}

// EunfoldV returns per-bin errors under t: sqrt(|content|) for NoError and
// the square roots of the relevant variances otherwise.
func (e *Engine) EunfoldV(t ErrorTreatment) []float64 {
	t = e.resolve(t)
	out := make([]float64, e.nt)
	if !e.UnfoldWithErrors(t, false) {
		return out
	}
	c := e.cache
	switch t {
	case NoError:
		for i, x := range c.rec {
			out[i] = math.Sqrt(math.Abs(x))
		}
	case Errors, Parametric:
		for i, v := range c.variances {
			out[i] = math.Sqrt(math.Abs(v))
		}
	case Covariance:
		for i, v := range matrix.DiagOf(c.cov) {
			out[i] = math.Sqrt(math.Abs(v))
		}
	default:
		for i, v := range matrix.DiagOf(c.errMat) {
			out[i] = math.Sqrt(math.Abs(v))
		}
	}
	return out
}

// Wunfold returns the weight (inverse covariance) matrix under t. Diagonal
// treatments invert element-wise and leave zero entries at zero.
func (e *Engine) Wunfold(t ErrorTreatment) *mat.Dense {
	t = e.resolve(t)
	zero := mat.NewDense(e.nt, e.nt, nil)
	if !e.UnfoldWithErrors(t, true) {
		return zero
	}
	c := e.cache
	switch t {
	case NoError:
		return matrix.Diagonal(reciprocal(c.rec))
	case Errors:
		return matrix.Diagonal(matrix.DiagOf(c.wgt))
	case Parametric:
		return matrix.Diagonal(reciprocal(c.variances))
	case Covariance:
		return mat.DenseCopyOf(c.wgt)
	default:
		w, status := matrix.Invert(c.errMat, e.invertOptions("toy covariance matrix")...)
		if !status.Usable() {
			e.warnf("cannot invert toy covariance matrix", "status", status)
			c.fail = true
			return zero
		}
		return w
	}
}

func reciprocal(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		if x != 0 {
			out[i] = 1 / x
		}
	}
	return out
}

// Chi2 compares the unfolded vector with truth (the response's training truth
// when nil) bin by bin. Covariance and CovToy use the full weight matrix,
// the other treatments the per-bin errors; bins with zero error are skipped.
// It returns -1 when the comparison cannot be made.
func (e *Engine) Chi2(truth dist.Backend, t ErrorTreatment) float64 {
	t = e.resolve(t)
	if truth == nil {
		truth = e.res.Truth()
	}
	tv := truth.Vector(e.overflow, e.density)
	if len(tv) != e.nt {
		e.warnf("chi2: truth does not match unfolded binning", "bins", len(tv), "nt", e.nt)
		return -1
	}
	rec := e.Vunfold()
	if e.cache.fail {
		return -1
	}
	res := make([]float64, e.nt)
	for i := range res {
		res[i] = rec[i] - tv[i]
	}

	if t == Covariance || t == CovToy {
		w := e.Wunfold(t)
		if e.cache.fail {
			return -1
		}
		chi2, err := matrix.QuadraticForm(res, w)
		if err != nil {
			e.warnf("chi2 failed", "err", err)
			return -1
		}
		return chi2
	}

	errs := e.EunfoldV(t)
	if e.cache.fail {
		return -1
	}
	var chi2 float64
	for i, r := range res {
		if errs[i] > 0 {
			chi2 += r * r / (errs[i] * errs[i])
		}
	}
	return chi2
}
