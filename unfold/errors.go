// SPDX-License-Identifier: MIT

package unfold

import (
	"errors"
	"fmt"
)

// Configuration and sequencing errors. Numeric failures are not errors: they
// set the engine's sticky fail flag and degrade results to zeros.
var (
	// ErrNilResponse is returned when a nil response mapping is attached.
	ErrNilResponse = errors.New("unfold: cannot set response to invalid value")

	// ErrNilMeasured is returned when a nil measured distribution is attached.
	ErrNilMeasured = errors.New("unfold: nil measured distribution")

	// ErrDimensionMismatch is returned when an input does not match nt or nm.
	ErrDimensionMismatch = errors.New("unfold: dimension mismatch")

	// ErrUnknownAlgorithm is returned by the factory for tags it does not know.
	ErrUnknownAlgorithm = errors.New("unfold: unknown algorithm")

	// ErrAlgorithmUnavailable is returned for known tags without an implementation.
	ErrAlgorithmUnavailable = errors.New("unfold: algorithm is not available")

	// ErrUnknownTreatment is returned when parsing an unknown error treatment name.
	ErrUnknownTreatment = errors.New("unfold: unknown error treatment")

	// ErrUnknownBiasMethod is returned when parsing an unknown bias method name.
	ErrUnknownBiasMethod = errors.New("unfold: unknown bias method")

	// ErrBiasNotCalculated is returned when bias is read before CalculateBias succeeded.
	ErrBiasNotCalculated = errors.New("unfold: calculate bias before attempting to retrieve it")

	// ErrBiasFailed is returned when a bias protocol could not unfold its inputs.
	ErrBiasFailed = errors.New("unfold: bias calculation failed")

	// ErrBinningMismatch is returned by algorithms that need nt == nm.
	ErrBinningMismatch = errors.New("unfold: truth and measured binning differ")

	// ErrInversionFailed is returned by algorithms whose matrix inversion failed.
	ErrInversionFailed = errors.New("unfold: matrix inversion failed")

	// ErrInvalidConfig is returned for configuration values that cannot be honored.
	ErrInvalidConfig = errors.New("unfold: invalid configuration")
)

const (
	opSetup     = "Setup"
	opSetMeas   = "SetMeasured"
	opSetCov    = "SetMeasuredCov"
	opNew       = "New"
	opBias      = "CalculateBias"
	opVbias     = "Vbias"
	opEbias     = "Ebias"
	opRegister  = "Register"
	opBinByBin  = "BinByBin"
	opInvertAlg = "Invert"
	opBayes     = "Bayes"
	opSVD       = "SVD"
)

// unfoldErrorf tags err with the operation that produced it.
func unfoldErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}

// Programming errors panic with these messages.
const (
	panicUnknownTreatment = "unfold: unrecognised error treatment"
	panicUnknownBias      = "unfold: unrecognised bias method"
	panicToysInvalid      = "unfold: WithToys: toy count must be positive"
	panicVerboseNilRand   = "unfold: WithRand: nil generator"
	panicSystematics      = "unfold: unrecognised systematics treatment"
)
