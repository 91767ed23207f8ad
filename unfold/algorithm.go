// SPDX-License-Identifier: MIT

package unfold

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/lvunfold/response"
)

// Input is the view of the engine an Algorithm works from. Slices and matrices
// are owned by the engine and must not be modified.
type Input struct {
	Response       response.Mapping
	Measured       []float64  // nm
	MeasuredErrors []float64  // nm
	MeasuredCov    *mat.Dense // nm×nm
	Nt, Nm         int
	Overflow       bool
	Verbose        int
	Logger         *slog.Logger
}

func (in *Input) info(msg string, args ...any) {
	if in.Verbose >= 1 {
		in.Logger.Info(msg, args...)
	}
}

// Algorithm is one unfolding strategy.
type Algorithm interface {
	Tag() AlgorithmTag
	// Unfold returns the nt unfolded values. A non-nil error marks the
	// unfolding as failed.
	Unfold(in *Input) ([]float64, error)
}

// CovarianceEstimator is implemented by algorithms that propagate the measured
// covariance themselves. It is called after a successful Unfold on the same
// Input. Without it the engine falls back to the measured covariance.
type CovarianceEstimator interface {
	Covariance(in *Input, rec []float64) (*mat.Dense, error)
}

// VarianceEstimator is implemented by algorithms with a cheaper diagonal than
// the full covariance.
type VarianceEstimator interface {
	Variances(in *Input, rec []float64) ([]float64, error)
}

// Regularized is implemented by algorithms with a regularisation parameter.
type Regularized interface {
	RegParm() float64
	SetRegParm(p float64)
}

// ParamBounds describes the useful range of a regularisation parameter.
type ParamBounds struct {
	Min, Max, Step, Default float64
}

// Bounded reports ParamBounds for the given dimensions.
type Bounded interface {
	ParamBounds(nt, nm int) ParamBounds
}

// Constructor returns a fresh algorithm instance in its default state.
type Constructor func() Algorithm

var (
	registryMu sync.RWMutex
	registry   = map[AlgorithmTag]Constructor{
		AlgNone:     func() Algorithm { return noneAlgorithm{} },
		AlgBinByBin: func() Algorithm { return &binByBin{} },
		AlgInvert:   func() Algorithm { return &inversion{} },
		AlgBayes:    func() Algorithm { return newBayes() },
		AlgSVD:      func() Algorithm { return newSVD() },
	}
)

// Register installs ctor for tag, replacing any previous constructor.
func Register(tag AlgorithmTag, ctor Constructor) error {
	if ctor == nil {
		return unfoldErrorf(opRegister, fmt.Errorf("%v: nil constructor: %w", tag, ErrInvalidConfig))
	}
	registryMu.Lock()
	registry[tag] = ctor
	registryMu.Unlock()

	return nil
}

func lookup(tag AlgorithmTag) (Constructor, error) {
	registryMu.RLock()
	ctor, ok := registry[tag]
	registryMu.RUnlock()
	if ok {
		return ctor, nil
	}
	if tag >= 0 && int(tag) < len(algorithmNames) {
		return nil, fmt.Errorf("%v: %w", tag, ErrAlgorithmUnavailable)
	}
	return nil, fmt.Errorf("%v: %w", tag, ErrUnknownAlgorithm)
}

// AlgorithmInfo reports one registry entry.
type AlgorithmInfo struct {
	Tag       AlgorithmTag
	Available bool
}

// Available lists every known tag and every registered one, in tag order.
func Available() []AlgorithmInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	tags := make([]AlgorithmTag, 0, len(algorithmNames)+len(registry))
	for i := range algorithmNames {
		tags = append(tags, AlgorithmTag(i))
	}
	for tag := range registry {
		if !slices.Contains(tags, tag) {
			tags = append(tags, tag)
		}
	}
	slices.Sort(tags)

	out := make([]AlgorithmInfo, len(tags))
	for i, tag := range tags {
		_, ok := registry[tag]
		out[i] = AlgorithmInfo{Tag: tag, Available: ok}
	}
	return out
}
