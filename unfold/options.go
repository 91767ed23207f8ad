// SPDX-License-Identifier: MIT

// Engine configuration: functional options over documented defaults.
// Constructors panic only on nonsensical values (programmer error); everything
// that depends on data (dimensions, nil inputs) is validated when applied.

package unfold

import (
	"log/slog"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// ---------- Defaults (single source of truth) ----------

const (
	// DefaultToys is the number of toys used by CovToy and parametric variances.
	DefaultToys = 50

	// DefaultVerbose prints warnings and the conditioning summary of inversions.
	DefaultVerbose = 1

	// DefaultSeed seeds the generator when none is supplied (seed==0 maps here too).
	DefaultSeed uint64 = 1

	// UnsetRegParm is reported by algorithms without a regularisation parameter.
	UnsetRegParm = -1e30
)

// pcgStream is the fixed second word of the PCG state; only the seed varies.
const pcgStream uint64 = 0x9e3779b97f4a7c15

// Option configures an Engine.
type Option func(*options)

type options struct {
	name          string
	regParm       float64
	hasRegParm    bool
	verbose       int
	nToys         int
	dosys         Systematics
	withError     ErrorTreatment
	logger        *slog.Logger
	rng           *rand.Rand
	measCov       *mat.Dense
	takeOwnership bool
}

func defaultOptions() options {
	return options{
		verbose:   DefaultVerbose,
		nToys:     DefaultToys,
		dosys:     NoSystematics,
		withError: Default,
	}
}

func gatherOptions(user ...Option) options {
	o := defaultOptions()
	for _, fn := range user {
		if fn != nil {
			fn(&o)
		}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.rng == nil {
		o.rng = rngFromSeed(DefaultSeed)
	}
	return o
}

// rngFromSeed returns a deterministic generator; seed==0 selects DefaultSeed.
func rngFromSeed(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = DefaultSeed
	}
	return rand.New(rand.NewPCG(seed, pcgStream))
}

// WithName labels the engine in logs and String().
func WithName(name string) Option { return func(o *options) { o.name = name } }

// WithRegParm sets the regularisation parameter passed to the algorithm.
func WithRegParm(p float64) Option {
	return func(o *options) { o.regParm, o.hasRegParm = p, true }
}

// WithVerbose sets the diagnostic level (<0 silent, 0 warnings, ≥1 info, ≥3 debug).
func WithVerbose(level int) Option { return func(o *options) { o.verbose = level } }

// WithToys sets the toy count used by CovToy and parametric variances. Panics if n < 1.
func WithToys(n int) Option {
	if n < 1 {
		panic(panicToysInvalid)
	}
	return func(o *options) { o.nToys = n }
}

// WithSystematics selects what toys fluctuate. Panics on an unknown value.
func WithSystematics(s Systematics) Option {
	if s < NoSystematics || s > NoMeasured {
		panic(panicSystematics)
	}
	return func(o *options) { o.dosys = s }
}

// WithErrorTreatment sets the treatment that Default resolves to.
func WithErrorTreatment(t ErrorTreatment) Option {
	if t < NoError || t > Default {
		panic(panicUnknownTreatment)
	}
	return func(o *options) { o.withError = t }
}

// WithLogger routes diagnostics to l (nil selects slog.Default()).
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithRand shares an explicit generator. Every random draw of the engine and of
// its toy clones consumes from it in a fixed order. Panics on nil.
func WithRand(r *rand.Rand) Option {
	if r == nil {
		panic(panicVerboseNilRand)
	}
	return func(o *options) { o.rng = r }
}

// WithSeed installs a fresh deterministic generator.
func WithSeed(seed uint64) Option {
	return func(o *options) { o.rng = rngFromSeed(seed) }
}

// WithMeasuredCov supplies an explicit nm×nm covariance of the measured distribution.
func WithMeasuredCov(cov mat.Matrix) Option {
	return func(o *options) {
		if cov != nil {
			o.measCov = mat.DenseCopyOf(cov)
		}
	}
}

// WithTakeOwnership makes the engine adopt the response passed to New/Setup
// instead of copying it. The caller must not use the response afterwards.
func WithTakeOwnership() Option { return func(o *options) { o.takeOwnership = true } }
