// SPDX-License-Identifier: MIT

// Package matrix: functional configuration for the SVD inverter.
// This file defines:
//   - Option / Options (functional options with internal state),
//   - documented defaults (constants),
//   - WithX constructors with strong validation (panic on nonsensical values),
//   - gatherOptions helper (internal) that enforces invariants.
//
// Design goals:
//   - Deterministic behavior: no global state.
//   - Diagnostics go to a *slog.Logger, never into return values.
//   - Safe by construction: panic only on invalid parameters (programmer error).
package matrix

import (
	"log/slog"
	"math"
)

// ---------- Defaults (single source of truth) ----------

const (
	// DefaultConditionLimit is the condition number above which an inverse is
	// reported as poorly conditioned. It sits near the double-precision floor.
	DefaultConditionLimit = 1e17

	// DefaultName labels the matrix in diagnostics.
	DefaultName = "matrix"

	// DefaultVerbose keeps warnings but suppresses informational diagnostics.
	DefaultVerbose = 0
)

// ---------- Internal panic messages (no magic strings) ----------

const (
	panicConditionLimitInvalid = "matrix: WithConditionLimit: limit must be finite and positive"
)

// Option mutates internal options. Safe to apply repeatedly (idempotent).
type Option func(*Options)

// Options is the resolved inverter configuration.
type Options struct {
	name      string
	verbose   int
	condLimit float64
	logger    *slog.Logger
}

// WithName labels the matrix in log lines ("covariance matrix", "response matrix", ...).
func WithName(name string) Option {
	return func(o *Options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithVerbose sets the verbosity level:
//
//	< 0  silent
//	  0  warnings only
//	>= 1 condition, determinant, tolerance and the M·M⁻¹ identity deviation
//	>= 3 additionally dumps M·M⁻¹ at debug level
func WithVerbose(level int) Option {
	return func(o *Options) { o.verbose = level }
}

// WithConditionLimit overrides DefaultConditionLimit.
// Panics if limit is not finite and positive.
func WithConditionLimit(limit float64) Option {
	if math.IsNaN(limit) || math.IsInf(limit, 0) || limit <= 0 {
		panic(panicConditionLimitInvalid)
	}
	return func(o *Options) { o.condLimit = limit }
}

// WithLogger routes diagnostics to l. A nil logger selects slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.logger = l }
}

func defaultOptions() Options {
	return Options{
		name:      DefaultName,
		verbose:   DefaultVerbose,
		condLimit: DefaultConditionLimit,
	}
}

// gatherOptions applies user options over the defaults and finalizes the logger.
func gatherOptions(user ...Option) Options {
	o := defaultOptions()
	for _, fn := range user {
		if fn != nil {
			fn(&o)
		}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}
