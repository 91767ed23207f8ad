// SPDX-License-Identifier: MIT

// Package unfold recovers a true binned distribution from a measured one
// distorted by a known response, together with its uncertainty and bias.
//
// An Engine binds one Algorithm (selected by AlgorithmTag through a registry)
// to a private copy of a response.Mapping and a measured dist.Backend:
//
//	e, err := unfold.New(unfold.AlgBayes, res, meas, unfold.WithRegParm(4))
//	rec := e.Vunfold()
//	errs := e.EunfoldV(unfold.Covariance)
//	chi2 := e.Chi2(truth, unfold.Covariance)
//
// Results are computed lazily and cached; any input change discards the whole
// cache. Numeric failures (singular matrices, failed algorithms) never return
// errors from accessors: they set a sticky fail flag, reported by Failed, and
// accessors return zero-filled results. Configuration mistakes are returned as
// errors; unknown enumeration values panic.
//
// Error treatments:
//
//	NoError     sqrt(|content|)
//	Errors      diagonal of the covariance (or the algorithm's own variances)
//	Covariance  full covariance from the algorithm
//	CovToy      covariance from the spread of toy unfoldings
//	Parametric  toy variances for parametric backends, covariance diagonal otherwise
//
// Bias (CalculateBias) is estimated with one of three protocols: a single
// Asimov unfolding, closure toys, or nested Asimov truth toys.
//
// All randomness is drawn from one seedable generator (WithSeed, WithRand)
// in a fixed order, so runs are reproducible.
package unfold
