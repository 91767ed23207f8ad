// SPDX-License-Identifier: MIT

package unfold

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/lvunfold/dist"
	"github.com/katalvlaran/lvunfold/matrix"
	"github.com/katalvlaran/lvunfold/response"
)

// Engine orchestrates one unfolding: it owns a private response, the measured
// distribution, the selected Algorithm and a lazily filled result cache.
//
// Every setter that changes an input replaces the cache, so no accessor ever
// returns a result computed from a previous configuration. Accessors fill the
// cache on demand; an Engine is therefore not safe for concurrent use.
type Engine struct {
	name string
	tag  AlgorithmTag
	ctor Constructor
	alg  Algorithm

	res    response.Mapping
	meas   dist.Backend
	covMes *mat.Dense // explicit measured covariance, nil when derived from errors

	nt, nm   int
	overflow bool
	density  bool

	verbose   int
	nToys     int
	dosys     Systematics
	withError ErrorTreatment

	rng *rand.Rand
	log *slog.Logger

	cache *cache
}

// New builds an engine running the algorithm registered for tag on the
// measured distribution meas, using res as the response.
//
// The response is copied unless WithTakeOwnership is given; meas is always
// copied. Returns ErrUnknownAlgorithm or ErrAlgorithmUnavailable for tags
// without a constructor, ErrNilResponse/ErrNilMeasured for nil inputs and
// ErrDimensionMismatch when meas does not match the response's measured binning.
func New(tag AlgorithmTag, res response.Mapping, meas dist.Backend, opts ...Option) (*Engine, error) {
	ctor, err := lookup(tag)
	if err != nil {
		return nil, unfoldErrorf(opNew, err)
	}
	o := gatherOptions(opts...)
	e := &Engine{
		name:      o.name,
		tag:       tag,
		ctor:      ctor,
		alg:       ctor(),
		verbose:   o.verbose,
		nToys:     o.nToys,
		dosys:     o.dosys,
		withError: o.withError,
		rng:       o.rng,
		log:       o.logger,
		cache:     newCache(),
	}
	if e.name == "" {
		e.name = tag.String()
	}
	if o.hasRegParm {
		e.setRegParm(o.regParm)
	}
	if err = e.setup(res, meas, o.takeOwnership); err != nil {
		return nil, unfoldErrorf(opNew, err)
	}
	if o.measCov != nil {
		if err = e.SetMeasuredCov(o.measCov); err != nil {
			return nil, unfoldErrorf(opNew, err)
		}
	}
	e.infof("engine created", "algorithm", tag, "nt", e.nt, "nm", e.nm, "overflow", e.overflow)

	return e, nil
}

// Setup replaces both the response (copied) and the measured distribution,
// and resets all derived state.
func (e *Engine) Setup(res response.Mapping, meas dist.Backend) error {
	if err := e.setup(res, meas, false); err != nil {
		return unfoldErrorf(opSetup, err)
	}
	return nil
}

func (e *Engine) setup(res response.Mapping, meas dist.Backend, own bool) error {
	if res == nil {
		return ErrNilResponse
	}
	if meas == nil {
		return ErrNilMeasured
	}
	if got, want := meas.Len(res.Overflow()), res.MeasuredBins(); got != want {
		return fmt.Errorf("measured has %d bins, response expects %d: %w", got, want, ErrDimensionMismatch)
	}
	e.Reset()
	e.attach(res, own)
	e.meas = meas.Clone()

	return nil
}

// attach installs res and derives nt, nm and the flow/density conventions from it.
func (e *Engine) attach(res response.Mapping, own bool) {
	if !own {
		res = res.Clone()
	}
	e.res = res
	e.nt = res.TruthBins()
	e.nm = res.MeasuredBins()
	e.overflow = res.Overflow()
	e.density = res.Density()
}

// SetResponse replaces the response. Without takeOwnership the engine keeps a
// copy. The current measured distribution must match the new measured binning.
func (e *Engine) SetResponse(res response.Mapping, takeOwnership bool) error {
	if res == nil {
		return unfoldErrorf(opSetup, ErrNilResponse)
	}
	if e.meas != nil && e.meas.Len(res.Overflow()) != res.MeasuredBins() {
		return unfoldErrorf(opSetup, ErrDimensionMismatch)
	}
	if e.covMes != nil {
		if r, _ := e.covMes.Dims(); r != res.MeasuredBins() {
			e.covMes = nil
		}
	}
	e.attach(res, takeOwnership)
	e.invalidate()

	return nil
}

// SetMeasured replaces the measured distribution with a copy of meas. An
// explicit measured covariance is kept.
func (e *Engine) SetMeasured(meas dist.Backend) error {
	if meas == nil {
		return unfoldErrorf(opSetMeas, ErrNilMeasured)
	}
	if got := meas.Len(e.overflow); got != e.nm {
		return unfoldErrorf(opSetMeas, fmt.Errorf("got %d bins, want %d: %w", got, e.nm, ErrDimensionMismatch))
	}
	e.meas = meas.Clone()
	e.invalidate()

	return nil
}

// SetMeasuredVector replaces the measured contents and per-bin errors (nil
// errors means sqrt(|content|)). Any explicit measured covariance is dropped.
func (e *Engine) SetMeasuredVector(v, errs []float64) error {
	if len(v) != e.nm || (errs != nil && len(errs) != e.nm) {
		return unfoldErrorf(opSetMeas, fmt.Errorf("want %d entries: %w", e.nm, ErrDimensionMismatch))
	}
	b, err := e.res.Measured().Derive(v, errs, e.overflow, e.density)
	if err != nil {
		return unfoldErrorf(opSetMeas, err)
	}
	e.meas = b
	e.covMes = nil
	e.invalidate()

	return nil
}

// SetMeasuredWithCov replaces the measured contents and installs cov as the
// measured covariance; per-bin errors become sqrt(diag(cov)).
func (e *Engine) SetMeasuredWithCov(v []float64, cov mat.Matrix) error {
	if err := e.SetMeasuredVector(v, nil); err != nil {
		return err
	}
	return e.SetMeasuredCov(cov)
}

// SetMeasuredCov installs an explicit nm×nm measured covariance.
func (e *Engine) SetMeasuredCov(cov mat.Matrix) error {
	if err := matrix.ValidateNotNil(cov); err != nil {
		return unfoldErrorf(opSetCov, err)
	}
	if r, c := cov.Dims(); r != e.nm || c != e.nm {
		return unfoldErrorf(opSetCov, fmt.Errorf("got %dx%d, want %dx%d: %w", r, c, e.nm, e.nm, ErrDimensionMismatch))
	}
	e.covMes = mat.DenseCopyOf(cov)
	e.invalidate()

	return nil
}

// Reset discards every cached result and the explicit measured covariance.
func (e *Engine) Reset() {
	e.covMes = nil
	e.cache = newCache()
}

// ForceRecalculation drops every cached result and restores the response to
// its nominal state.
func (e *Engine) ForceRecalculation() {
	e.invalidate()
	if e.res != nil {
		e.res.ClearCache()
	}
}

func (e *Engine) invalidate() { e.cache = newCache() }

// Unfold runs the algorithm now, replacing any cached unfolded vector, and
// reports success. A failure sets the sticky fail flag.
func (e *Engine) Unfold() bool {
	e.runAlgorithm()
	if !e.cache.unfolded {
		e.cache.fail = true
	}
	return e.cache.unfolded
}

func (e *Engine) runAlgorithm() {
	c := e.cache
	c.unfolded = false
	rec, err := e.alg.Unfold(e.input())
	if err != nil {
		e.warnf("unfolding failed", "algorithm", e.tag, "err", err)
		return
	}
	if len(rec) != e.nt {
		e.warnf("unfolding failed", "algorithm", e.tag, "err", fmt.Errorf("got %d bins, want %d: %w", len(rec), e.nt, ErrDimensionMismatch))
		return
	}
	c.rec = rec
	c.unfolded = true
	e.debugf("unfolded", "rec", rec)
}

// ensureUnfolded runs the algorithm once per cache generation and never
// retries after a failure.
func (e *Engine) ensureUnfolded() bool {
	c := e.cache
	if c.unfolded {
		return true
	}
	if c.fail {
		return false
	}
	e.runAlgorithm()
	if !c.unfolded {
		c.fail = true
	}
	return c.unfolded
}

func (e *Engine) input() *Input {
	return &Input{
		Response:       e.res,
		Measured:       e.vmeas(),
		MeasuredErrors: e.emeas(),
		MeasuredCov:    e.measuredCov(),
		Nt:             e.nt,
		Nm:             e.nm,
		Overflow:       e.overflow,
		Verbose:        e.verbose,
		Logger:         e.log,
	}
}

// vmeas returns the cached measured vector; toys randomize it in place.
func (e *Engine) vmeas() []float64 {
	c := e.cache
	if c.vMes == nil {
		c.vMes = e.meas.Vector(e.overflow, e.density)
	}
	return c.vMes
}

func (e *Engine) emeas() []float64 {
	c := e.cache
	if c.eMes != nil {
		return c.eMes
	}
	if e.covMes != nil {
		c.eMes = make([]float64, e.nm)
		for i := range c.eMes {
			if v := e.covMes.At(i, i); v > 0 {
				c.eMes[i] = math.Sqrt(v)
			}
		}
		return c.eMes
	}
	c.eMes = e.meas.ErrorVector(e.overflow, e.density)

	return c.eMes
}

func (e *Engine) measuredCov() *mat.Dense {
	if e.covMes != nil {
		return e.covMes
	}
	c := e.cache
	if c.covMes == nil {
		errs := e.emeas()
		sq := make([]float64, len(errs))
		for i, x := range errs {
			sq[i] = x * x
		}
		c.covMes = matrix.Diagonal(sq)
	}
	return c.covMes
}

// Vmeasured returns the measured vector the algorithm sees.
func (e *Engine) Vmeasured() []float64 { return append([]float64(nil), e.vmeas()...) }

// Emeasured returns the measured errors: sqrt(diag) of an explicit covariance
// when one is set, the distribution's own errors otherwise.
func (e *Engine) Emeasured() []float64 { return append([]float64(nil), e.emeas()...) }

// MeasuredCov returns the explicit measured covariance, or the diagonal
// matrix of squared measured errors.
func (e *Engine) MeasuredCov() *mat.Dense { return mat.DenseCopyOf(e.measuredCov()) }

// Vunfold returns the unfolded vector, unfolding on first use. After a failed
// unfolding it returns zeros and Failed reports true.
func (e *Engine) Vunfold() []float64 {
	if !e.ensureUnfolded() {
		return make([]float64, e.nt)
	}
	return append([]float64(nil), e.cache.rec...)
}

// Hunfold returns the unfolded result as a distribution in the truth binning,
// with errors from EunfoldV(t). Errors fall back to NoError when t fails.
func (e *Engine) Hunfold(t ErrorTreatment) (dist.Backend, error) {
	t = e.resolve(t)
	if !e.UnfoldWithErrors(t, false) {
		t = NoError
	}
	return e.res.Truth().Derive(e.Vunfold(), e.EunfoldV(t), e.overflow, e.density)
}

// Failed reports the sticky failure flag of the current cache generation.
func (e *Engine) Failed() bool { return e.cache.fail }

// Unfolded reports whether a valid unfolded vector is cached.
func (e *Engine) Unfolded() bool { return e.cache.unfolded }

// Name returns the engine label used in logs and String.
func (e *Engine) Name() string { return e.name }

// Algorithm returns the tag the engine was built with.
func (e *Engine) Algorithm() AlgorithmTag { return e.tag }

// Response returns the engine's private response. Mutating it bypasses cache invalidation.
func (e *Engine) Response() response.Mapping { return e.res }

// Measured returns the engine's copy of the measured distribution.
func (e *Engine) Measured() dist.Backend { return e.meas }

// NBinsTruth returns nt, flow bins included when Overflow is set.
func (e *Engine) NBinsTruth() int { return e.nt }

// NBinsMeasured returns nm, flow bins included when Overflow is set.
func (e *Engine) NBinsMeasured() int { return e.nm }

// Overflow reports whether flow bins take part in the unfolding.
func (e *Engine) Overflow() bool { return e.overflow }

// Verbose returns the diagnostic level.
func (e *Engine) Verbose() int { return e.verbose }

// NToys returns the toy count for CovToy and parametric variances.
func (e *Engine) NToys() int { return e.nToys }

// Systematics returns what toys fluctuate.
func (e *Engine) Systematics() Systematics { return e.dosys }

// ErrorTreatment returns the treatment Default resolves to: the configured one,
// or the last one requested explicitly.
func (e *Engine) ErrorTreatment() ErrorTreatment { return e.withError }

// SetVerbose sets the diagnostic level.
func (e *Engine) SetVerbose(level int) { e.verbose = level }

// SetNToys sets the toy count for CovToy and parametric variances. Cached toy
// results are dropped.
func (e *Engine) SetNToys(n int) {
	if n != e.nToys {
		e.nToys = n
		e.invalidate()
	}
}

// IncludeSystematics selects what toys fluctuate; a change drops cached results.
func (e *Engine) IncludeSystematics(s Systematics) {
	if s < NoSystematics || s > NoMeasured {
		panic(panicSystematics)
	}
	if s != e.dosys {
		e.dosys = s
		e.invalidate()
	}
}

// RegParm returns the algorithm's regularisation parameter, or UnsetRegParm.
func (e *Engine) RegParm() float64 {
	if r, ok := e.alg.(Regularized); ok {
		return r.RegParm()
	}
	return UnsetRegParm
}

// SetRegParm changes the regularisation parameter and drops cached results.
// Algorithms without one ignore it.
func (e *Engine) SetRegParm(p float64) {
	if e.setRegParm(p) {
		e.invalidate()
	}
}

func (e *Engine) setRegParm(p float64) bool {
	r, ok := e.alg.(Regularized)
	if ok {
		r.SetRegParm(p)
	}
	return ok
}

// ParamBounds reports the useful regularisation range of the algorithm; the
// zero value for algorithms without one.
func (e *Engine) ParamBounds() ParamBounds {
	if b, ok := e.alg.(Bounded); ok {
		return b.ParamBounds(e.nt, e.nm)
	}
	return ParamBounds{}
}

// newAlgorithm returns a fresh algorithm carrying this engine's regularisation.
func (e *Engine) newAlgorithm() Algorithm {
	a := e.ctor()
	if src, ok := e.alg.(Regularized); ok {
		if dst, ok := a.(Regularized); ok {
			dst.SetRegParm(src.RegParm())
		}
	}
	return a
}

// clone returns a disposable engine configured like e, reading meas, with its
// own response copy and an empty cache. It shares e's generator so toy draws
// stay in one reproducible sequence.
func (e *Engine) clone(meas dist.Backend) *Engine {
	c := &Engine{
		name:      e.name,
		tag:       e.tag,
		ctor:      e.ctor,
		alg:       e.newAlgorithm(),
		res:       e.res.Clone(),
		meas:      meas.Clone(),
		nt:        e.nt,
		nm:        e.nm,
		overflow:  e.overflow,
		density:   e.density,
		verbose:   min(e.verbose, 0),
		nToys:     e.nToys,
		dosys:     e.dosys,
		withError: Default,
		rng:       e.rng,
		log:       e.log,
		cache:     newCache(),
	}
	c.res.ClearCache()
	if e.covMes != nil {
		c.covMes = mat.DenseCopyOf(e.covMes)
	}
	return c
}

func (e *Engine) invertOptions(name string) []matrix.Option {
	return []matrix.Option{
		matrix.WithName(name),
		matrix.WithVerbose(e.verbose),
		matrix.WithLogger(e.log),
	}
}

func (e *Engine) warnf(msg string, args ...any) {
	if e.verbose >= 0 {
		e.log.Warn(msg, append([]any{"engine", e.name}, args...)...)
	}
}

func (e *Engine) infof(msg string, args ...any) {
	if e.verbose >= 1 {
		e.log.Info(msg, append([]any{"engine", e.name}, args...)...)
	}
}

func (e *Engine) debugf(msg string, args ...any) {
	if e.verbose >= 3 {
		e.log.Debug(msg, append([]any{"engine", e.name}, args...)...)
	}
}
