// SPDX-License-Identifier: MIT
// Package matrix: SVD pseudo-inverse with conditioning diagnostics.
//
// Purpose:
//   - Invert covariance and response matrices through a singular-value
//     decomposition so that near-singular inputs still produce a best-effort
//     pseudo-inverse instead of a hard error.
//   - Report numerical quality as a Status (ok / bad condition / poor condition /
//     failed) and through the logger, never by panicking.
//
// Notes:
//   - Only a Failed status means "do not use the result". Both warning statuses
//     return a usable pseudo-inverse.

package matrix

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Status reports the outcome of Invert.
type Status int

const (
	// StatusFailed: the decomposition or the inversion itself failed; the result is nil.
	StatusFailed Status = iota
	// StatusOK: well-conditioned inverse.
	StatusOK
	// StatusBadCondition: the condition number was negative or NaN; best-effort inverse returned.
	StatusBadCondition
	// StatusPoorCondition: the condition number exceeded the limit; the inverse may be inaccurate.
	StatusPoorCondition
)

// Usable reports whether the inverse returned alongside s may be used.
func (s Status) Usable() bool { return s != StatusFailed }

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusFailed:
		return "failed"
	case StatusOK:
		return "ok"
	case StatusBadCondition:
		return "bad-condition"
	case StatusPoorCondition:
		return "poor-condition"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// machEps is the float64 unit round-off used for the singular value cut.
const machEps = 2.220446049250313e-16

// Invert returns the pseudo-inverse of the square matrix m computed by SVD.
//
// Implementation:
//   - Stage 1: Validate m (non-nil, square) and factorize m = U·Σ·Vᵀ.
//   - Stage 2: Condition number σmax/σmin; classify as ok / bad / poor.
//   - Stage 3: inv = V·Σ⁺·Uᵀ, dropping singular values below n·σmax·eps.
//   - Stage 4: With verbose ≥ 1, log max|M·M⁻¹ − I| as a percentage.
//
// Returns:
//   - (*mat.Dense, StatusOK|StatusBadCondition|StatusPoorCondition) on success.
//   - (nil, StatusFailed) if the input is invalid, the factorization fails, every
//     singular value is zero, or the result is not finite.
//
// Complexity:
//   - Time O(n³), Space O(n²).
func Invert(m mat.Matrix, opts ...Option) (*mat.Dense, Status) {
	o := gatherOptions(opts...)
	if err := ValidateSquare(m); err != nil {
		if o.verbose >= 0 {
			o.logger.Warn("inversion rejected", "name", o.name, "err", matrixErrorf(opInvert, err))
		}
		return nil, StatusFailed
	}
	return pseudoInverse(m, o, opInvert)
}

// PseudoInverse returns the c×r Moore-Penrose pseudo-inverse of the r×c
// matrix m. It shares the tolerance, status classification and diagnostics of
// Invert; the accuracy report is max|M⁺·M − I|, which is zero for full column
// rank.
//
// Complexity:
//   - Time O(r·c·min(r,c)), Space O(r·c).
func PseudoInverse(m mat.Matrix, opts ...Option) (*mat.Dense, Status) {
	o := gatherOptions(opts...)
	if err := ValidateNotNil(m); err != nil {
		if o.verbose >= 0 {
			o.logger.Warn("inversion rejected", "name", o.name, "err", matrixErrorf(opPseudoInverse, err))
		}
		return nil, StatusFailed
	}
	return pseudoInverse(m, o, opPseudoInverse)
}

func pseudoInverse(m mat.Matrix, o Options, op string) (*mat.Dense, Status) {
	log := o.logger
	r, c := m.Dims()

	var svd mat.SVD
	if !svd.Factorize(m, mat.SVDThin) {
		if o.verbose >= 0 {
			log.Warn("inversion failed", "name", o.name, "reason", "SVD did not converge")
		}
		return nil, StatusFailed
	}
	sv := svd.Values(nil)
	smax := sv[0]
	tol := float64(max(r, c)) * smax * machEps
	cond := svd.Cond()

	if o.verbose >= 1 {
		args := []any{"name", o.name, "condition", cond, "tolerance", tol}
		if r == c {
			args = append(args, "determinant", mat.Det(m))
		}
		log.Info("inverting", args...)
	}

	status := StatusOK
	switch {
	case math.IsNaN(cond) || cond < 0:
		if o.verbose >= 0 {
			log.Warn("bad condition", "name", o.name, "condition", cond)
		}
		status = StatusBadCondition
	case cond > o.condLimit:
		if o.verbose >= 0 {
			log.Warn("poorly conditioned, inverse may be inaccurate", "name", o.name, "condition", cond)
		}
		status = StatusPoorCondition
	}

	if !(smax > 0) {
		if o.verbose >= 0 {
			log.Warn("inversion failed", "name", o.name, "reason", "all singular values are zero")
		}
		return nil, StatusFailed
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	// Scale the columns of V by 1/σ, zeroing the ones below tolerance.
	var i, k int
	for k = 0; k < len(sv); k++ {
		scale := 0.0
		if sv[k] > tol {
			scale = 1 / sv[k]
		}
		for i = 0; i < c; i++ {
			v.Set(i, k, v.At(i, k)*scale)
		}
	}
	inv := mat.NewDense(c, r, nil)
	inv.Mul(&v, u.T())

	if err := ValidateFinite(inv); err != nil {
		if o.verbose >= 0 {
			log.Warn("inversion failed", "name", o.name, "err", matrixErrorf(op, err))
		}
		return nil, StatusFailed
	}

	if o.verbose >= 1 {
		var prod mat.Dense
		if r == c {
			prod.Mul(m, inv)
		} else {
			prod.Mul(inv, m)
		}
		if o.verbose >= 3 {
			log.Debug("M*M^-1", "name", o.name, "matrix", fmt.Sprintf("%.4g", mat.Formatted(&prod, mat.Squeeze())))
		}
		log.Info("inverse accuracy", "name", o.name, "max_error_percent", 100*IdentityDeviation(&prod))
	}

	return inv, status
}
