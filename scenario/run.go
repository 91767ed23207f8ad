// SPDX-License-Identifier: MIT

package scenario

import (
	"fmt"
	"log/slog"

	"github.com/katalvlaran/lvunfold/unfold"
)

// Result is the outcome of Run.
type Result struct {
	Summary  string
	Table    unfold.Table
	Chi2     float64
	Failed   bool
	Bias     []float64 // nil unless a bias study was requested
	BiasErr  []float64
	BiasKind unfold.BiasMethod
}

// Run builds the scenario, unfolds it and, if requested, estimates the bias.
// Numeric failures are reported through Result.Failed, not as errors.
func Run(s *Scenario, logger *slog.Logger) (*Result, error) {
	job, err := Build(s, logger)
	if err != nil {
		return nil, err
	}
	return job.Run()
}

// Run unfolds the job's engine and collects the table, chi-square and bias.
func (j *Job) Run() (*Result, error) {
	e := j.Engine
	tab, err := e.Table(j.Truth, j.Treatment)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", j.Scenario.Name, err)
	}
	r := &Result{
		Summary: e.String(),
		Table:   tab,
		Chi2:    e.Chi2(j.Truth, tab.Treatment),
		Failed:  e.Failed(),
	}
	if b := j.Scenario.Bias; b != nil {
		method, _ := unfold.ParseBiasMethod(b.Method)
		if err = e.CalculateBias(method, b.Toys, j.Truth); err != nil {
			return nil, fmt.Errorf("scenario %q: %w", j.Scenario.Name, err)
		}
		r.BiasKind = method
		r.Bias, _ = e.Vbias()
		r.BiasErr, _ = e.Ebias()
	}
	return r, nil
}
