// SPDX-License-Identifier: MIT

package unfold

import (
	"fmt"
	"strings"
)

// ErrorTreatment selects how uncertainties on the unfolded vector are produced.
type ErrorTreatment int

const (
	// NoError: errors are sqrt(|content|), no covariance is computed.
	NoError ErrorTreatment = iota
	// Errors: diagonal variances (from the covariance unless an algorithm supplies them).
	Errors
	// Covariance: full covariance matrix from the algorithm.
	Covariance
	// CovToy: covariance from the spread of toy unfoldings.
	CovToy
	// Parametric: backend-specific diagonal variances. Parametric backends use a
	// toy ensemble of nuisance-parameter draws, histogram backends the covariance diagonal.
	Parametric
	// Default: the engine's configured treatment, or Errors if none was set.
	Default
)

var treatmentNames = [...]string{"none", "errors", "covariance", "covtoy", "parametric", "default"}

// String implements fmt.Stringer.
func (t ErrorTreatment) String() string {
	if t >= 0 && int(t) < len(treatmentNames) {
		return treatmentNames[t]
	}
	return fmt.Sprintf("ErrorTreatment(%d)", int(t))
}

// ParseErrorTreatment maps a name produced by String back to its value.
func ParseErrorTreatment(s string) (ErrorTreatment, error) {
	for i, n := range treatmentNames {
		if strings.EqualFold(s, n) {
			return ErrorTreatment(i), nil
		}
	}
	return 0, fmt.Errorf("%q: %w", s, ErrUnknownTreatment)
}

// BiasMethod selects a bias estimation protocol.
type BiasMethod int

const (
	// BiasEstimator unfolds the folded reference truth once.
	BiasEstimator BiasMethod = iota
	// BiasClosure unfolds toys thrown around the folded reference truth.
	BiasClosure
	// BiasAsimov nests secondary truth toys inside primary truth toys.
	BiasAsimov
)

var biasNames = [...]string{"estimator", "closure", "asimov"}

// String implements fmt.Stringer.
func (m BiasMethod) String() string {
	if m >= 0 && int(m) < len(biasNames) {
		return biasNames[m]
	}
	return fmt.Sprintf("BiasMethod(%d)", int(m))
}

// ParseBiasMethod maps a name produced by String back to its value.
func ParseBiasMethod(s string) (BiasMethod, error) {
	for i, n := range biasNames {
		if strings.EqualFold(s, n) {
			return BiasMethod(i), nil
		}
	}
	return 0, fmt.Errorf("%q: %w", s, ErrUnknownBiasMethod)
}

// Systematics selects what toys fluctuate.
type Systematics int

const (
	// NoSystematics fluctuates the measured distribution only.
	NoSystematics Systematics = iota
	// AllSystematics fluctuates the measurement and the response.
	AllSystematics
	// NoMeasured leaves the measured distribution fixed. The response is
	// fluctuated only by AllSystematics, so NoMeasured toys repeat the nominal result.
	NoMeasured
)

var systematicsNames = [...]string{"none", "all", "no-measured"}

// String implements fmt.Stringer.
func (s Systematics) String() string {
	if s >= 0 && int(s) < len(systematicsNames) {
		return systematicsNames[s]
	}
	return fmt.Sprintf("Systematics(%d)", int(s))
}

// ParseSystematics maps a name produced by String back to its value.
func ParseSystematics(s string) (Systematics, error) {
	for i, n := range systematicsNames {
		if strings.EqualFold(s, n) {
			return Systematics(i), nil
		}
	}
	return 0, fmt.Errorf("%q: %w", s, ErrInvalidConfig)
}

// AlgorithmTag identifies an unfolding strategy in the factory.
type AlgorithmTag int

const (
	AlgNone AlgorithmTag = iota
	AlgBayes
	AlgSVD
	AlgBinByBin
	AlgTUnfold
	AlgInvert
	AlgDagostini
	AlgIDS
	AlgGP
)

var algorithmNames = [...]string{"none", "bayes", "svd", "binbybin", "tunfold", "invert", "dagostini", "ids", "gp"}

// String implements fmt.Stringer.
func (a AlgorithmTag) String() string {
	if a >= 0 && int(a) < len(algorithmNames) {
		return algorithmNames[a]
	}
	return fmt.Sprintf("AlgorithmTag(%d)", int(a))
}

// ParseAlgorithm maps a name produced by String back to its tag.
func ParseAlgorithm(s string) (AlgorithmTag, error) {
	for i, n := range algorithmNames {
		if strings.EqualFold(s, n) {
			return AlgorithmTag(i), nil
		}
	}
	return 0, fmt.Errorf("%q: %w", s, ErrUnknownAlgorithm)
}
