// SPDX-License-Identifier: MIT

package unfold

import "gonum.org/v1/gonum/mat"

// cache holds everything the engine derives lazily. Read accessors on Engine
// fill it on first use, so the engine mutates even when only queried.
// A fresh cache is installed on every configuration change.
type cache struct {
	unfolded   bool
	fail       bool // sticky until the cache is replaced
	haveCov    bool
	haveWgt    bool
	haveErrMat bool
	haveErrors bool
	haveBias   bool

	rec       []float64  // nt
	cov       *mat.Dense // nt×nt
	wgt       *mat.Dense // nt×nt, inverse of cov
	variances []float64  // nt
	errMat    *mat.Dense // nt×nt, toy covariance
	bias      []float64  // nt
	sigBias   []float64  // nt

	vMes   []float64  // nm, measured contents (toys overwrite it)
	eMes   []float64  // nm, measured errors
	covMes *mat.Dense // nm×nm, default covariance built from eMes
}

func newCache() *cache { return &cache{} }
