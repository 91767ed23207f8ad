// SPDX-License-Identifier: MIT

package dist

import (
	"fmt"
	"math"
)

// Parameter is a nuisance parameter with a central value and a 1σ error.
// Constant parameters never fluctuate.
type Parameter struct {
	Name     string
	Value    float64
	Error    float64
	Constant bool
}

// Parametric models each bin as nominal·γ, where γ is a per-bin nuisance
// parameter centred on 1 whose error is the relative bin error.
type Parametric struct {
	binning
	nominal []float64    // Bins()+2
	gammas  []*Parameter // Bins()+2, aligned with nominal
}

var _ Backend = (*Parametric)(nil)

// NewParametric builds a parametric distribution. nominal and errors follow the
// NewHistogram layout rules; nil errors means sqrt(|nominal|). Bins with zero
// nominal content or zero error get a constant γ.
func NewParametric(name string, edges, nominal, errors []float64) (*Parametric, error) {
	b, err := newBinning(name, edges)
	if err != nil {
		return nil, fmt.Errorf("NewParametric %q: %w", name, err)
	}
	n, err := b.full(nominal)
	if err != nil {
		return nil, fmt.Errorf("NewParametric %q nominal: %w", name, err)
	}
	var e []float64
	if errors == nil {
		e = sqrtAbs(n)
	} else if e, err = b.full(errors); err != nil {
		return nil, fmt.Errorf("NewParametric %q errors: %w", name, err)
	}
	return &Parametric{binning: b, nominal: n, gammas: makeGammas(name, n, e)}, nil
}

func makeGammas(name string, nominal, errors []float64) []*Parameter {
	out := make([]*Parameter, len(nominal))
	for k := range nominal {
		p := &Parameter{Name: fmt.Sprintf("gamma_%s_bin_%d", name, k), Value: 1}
		if nominal[k] != 0 && errors[k] != 0 {
			p.Error = math.Abs(errors[k] / nominal[k])
		} else {
			p.Constant = true
		}
		out[k] = p
	}
	return out
}

// Kind implements Backend.
func (p *Parametric) Kind() Kind { return KindParametric }

// Vector implements Backend: nominal·γ per bin.
func (p *Parametric) Vector(overflow, density bool) []float64 {
	full := make([]float64, len(p.nominal))
	for k, n := range p.nominal {
		full[k] = n * p.gammas[k].Value
	}
	return p.project(full, overflow, density)
}

// ErrorVector implements Backend: nominal·σ(γ) per bin.
func (p *Parametric) ErrorVector(overflow, density bool) []float64 {
	full := make([]float64, len(p.nominal))
	for k, n := range p.nominal {
		full[k] = math.Abs(n * p.gammas[k].Error)
	}
	return p.project(full, overflow, density)
}

// Gammas returns the per-bin parameters aligned with Vector(overflow, ·).
func (p *Parametric) Gammas(overflow bool) []*Parameter {
	if overflow {
		return append([]*Parameter(nil), p.gammas...)
	}
	return append([]*Parameter(nil), p.gammas[1:len(p.gammas)-1]...)
}

// Nuisance implements Backend: the non-constant γ parameters in bin order.
func (p *Parametric) Nuisance() []*Parameter {
	var out []*Parameter
	for _, g := range p.gammas {
		if !g.Constant {
			out = append(out, g)
		}
	}
	return out
}

// Derive implements Backend. The derived distribution gets fresh γ parameters.
func (p *Parametric) Derive(values, errors []float64, overflow, density bool) (Backend, error) {
	n, err := p.inject(values, overflow, density)
	if err != nil {
		return nil, fmt.Errorf("Parametric.Derive values: %w", err)
	}
	var e []float64
	if errors == nil {
		e = sqrtAbs(n)
	} else if e, err = p.inject(errors, overflow, density); err != nil {
		return nil, fmt.Errorf("Parametric.Derive errors: %w", err)
	}
	return &Parametric{
		binning: binning{name: p.name, edges: p.edges},
		nominal: n,
		gammas:  makeGammas(p.name, n, e),
	}, nil
}

// Clone implements Backend. Parameters are copied, never shared.
func (p *Parametric) Clone() Backend {
	gs := make([]*Parameter, len(p.gammas))
	for k, g := range p.gammas {
		c := *g
		gs[k] = &c
	}
	return &Parametric{
		binning: binning{name: p.name, edges: append([]float64(nil), p.edges...)},
		nominal: append([]float64(nil), p.nominal...),
		gammas:  gs,
	}
}

// Snapshot records the current values of ps.
func Snapshot(ps []*Parameter) []float64 {
	out := make([]float64, len(ps))
	for i, p := range ps {
		out[i] = p.Value
	}
	return out
}

// Restore writes values back into ps; values must come from Snapshot(ps).
func Restore(ps []*Parameter, values []float64) {
	for i, p := range ps {
		p.Value = values[i]
	}
}
