// SPDX-License-Identifier: MIT

// Package lvunfold corrects binned measurements for detector effects.
//
// A measured histogram is the true distribution folded with a response
// matrix (efficiency, resolution and migration between bins). Unfolding
// inverts that mapping and estimates how trustworthy the result is.
//
// The work is split across small packages:
//
//	dist/         binned distributions: plain histograms and parametric (nuisance γ) ones
//	response/     migration counts, normalized response matrix, folding and response toys
//	matrix/       SVD inversion with conditioning diagnostics, covariance helpers
//	unfold/       the Engine: algorithm registry, error treatments, toys, bias studies
//	scenario/     YAML description of a complete job and its runner
//	cmd/lvunfold/ command line front end
//
// Quick example:
//
//	res, _ := response.New(counts, trainTruth, trainMeasured)
//	e, _ := unfold.New(unfold.AlgBayes, res, data, unfold.WithRegParm(4))
//	values := e.Vunfold()
//	errs := e.EunfoldV(unfold.Covariance)
//	chi2 := e.Chi2(truth, unfold.Covariance)
//
// Numeric failures never panic and never return errors from accessors: they
// set a sticky flag (Engine.Failed) and results degrade to zeros. Panics are
// reserved for programmer errors such as unknown enumeration values.
package lvunfold
