// SPDX-License-Identifier: MIT

package unfold

import (
	"fmt"
	"strings"

	"github.com/katalvlaran/lvunfold/dist"
)

// Row is one truth bin of a Table.
type Row struct {
	Bin           int
	TrainTruth    float64
	TrainMeasured float64
	Truth         float64
	Measured      float64
	Unfolded      float64
	Error         float64
	Diff          float64 // Unfolded − Truth
	Pull          float64 // Diff/Error, 0 when Error is 0
}

// Table is the per-bin comparison of training, measured, truth and unfolded
// values. Chi2 is set only for the Covariance and CovToy treatments.
type Table struct {
	Treatment ErrorTreatment
	Rows      []Row
	Chi2      float64
	HasChi2   bool
}

// Table builds the comparison against truth (the training truth when nil).
// If errors under t cannot be computed the table falls back to NoError.
// Measured-side columns are filled for the first min(nm, nt) bins.
func (e *Engine) Table(truth dist.Backend, t ErrorTreatment) (Table, error) {
	t = e.resolve(t)
	if !e.UnfoldWithErrors(t, false) {
		t = NoError
	}
	if truth == nil {
		truth = e.res.Truth()
	}
	tv := truth.Vector(e.overflow, e.density)
	if len(tv) != e.nt {
		return Table{}, fmt.Errorf("Table: truth has %d bins, want %d: %w", len(tv), e.nt, ErrDimensionMismatch)
	}
	trainTruth := e.res.VTruth()
	trainMeas := e.res.VMeasured()
	meas := e.vmeas()
	rec := e.Vunfold()
	errs := e.EunfoldV(t)

	tab := Table{Treatment: t, Rows: make([]Row, e.nt)}
	for i := range tab.Rows {
		r := Row{
			Bin:        i,
			TrainTruth: trainTruth[i],
			Truth:      tv[i],
			Unfolded:   rec[i],
			Error:      errs[i],
			Diff:       rec[i] - tv[i],
		}
		if i < e.nm {
			r.TrainMeasured, r.Measured = trainMeas[i], meas[i]
		}
		if r.Error > 0 {
			r.Pull = r.Diff / r.Error
		}
		tab.Rows[i] = r
	}
	if t == Covariance || t == CovToy {
		tab.Chi2, tab.HasChi2 = e.Chi2(truth, t), true
	}
	return tab, nil
}

// String summarises the configuration.
func (e *Engine) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "unfold.Engine %q algorithm=%v", e.name, e.tag)
	if p := e.RegParm(); p != UnsetRegParm {
		fmt.Fprintf(&b, ", regularisation parameter=%g", p)
	}
	if e.covMes != nil {
		b.WriteString(", with measurement covariance")
	}
	if e.dosys != NoSystematics {
		fmt.Fprintf(&b, ", systematics=%v", e.dosys)
	}
	fmt.Fprintf(&b, ", %d bins measured, %d bins truth", e.nm, e.nt)
	if e.overflow {
		b.WriteString(" including overflows")
	}
	return b.String()
}
