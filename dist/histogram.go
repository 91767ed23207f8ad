// SPDX-License-Identifier: MIT

package dist

import "fmt"

// Histogram is the plain numeric backend: bin contents and bin errors.
type Histogram struct {
	binning
	contents []float64 // Bins()+2, [underflow, b1..bn, overflow]
	errors   []float64 // same layout
}

var _ Backend = (*Histogram)(nil)

// NewHistogram builds a histogram over edges. contents and errors may be given
// with (Bins()+2) or without (Bins()) flow bins; nil errors means sqrt(|content|).
func NewHistogram(name string, edges, contents, errors []float64) (*Histogram, error) {
	b, err := newBinning(name, edges)
	if err != nil {
		return nil, fmt.Errorf("NewHistogram %q: %w", name, err)
	}
	c, err := b.full(contents)
	if err != nil {
		return nil, fmt.Errorf("NewHistogram %q contents: %w", name, err)
	}
	var e []float64
	if errors == nil {
		e = sqrtAbs(c)
	} else if e, err = b.full(errors); err != nil {
		return nil, fmt.Errorf("NewHistogram %q errors: %w", name, err)
	}
	return &Histogram{binning: b, contents: c, errors: e}, nil
}

// Kind implements Backend.
func (h *Histogram) Kind() Kind { return KindHistogram }

// Vector implements Backend.
func (h *Histogram) Vector(overflow, density bool) []float64 {
	return h.project(h.contents, overflow, density)
}

// ErrorVector implements Backend.
func (h *Histogram) ErrorVector(overflow, density bool) []float64 {
	return h.project(h.errors, overflow, density)
}

// Nuisance implements Backend; a histogram has no floating parameters.
func (h *Histogram) Nuisance() []*Parameter { return nil }

// Derive implements Backend.
func (h *Histogram) Derive(values, errors []float64, overflow, density bool) (Backend, error) {
	c, err := h.inject(values, overflow, density)
	if err != nil {
		return nil, fmt.Errorf("Histogram.Derive values: %w", err)
	}
	var e []float64
	if errors == nil {
		e = sqrtAbs(c)
	} else if e, err = h.inject(errors, overflow, density); err != nil {
		return nil, fmt.Errorf("Histogram.Derive errors: %w", err)
	}
	return &Histogram{binning: binning{name: h.name, edges: h.edges}, contents: c, errors: e}, nil
}

// Clone implements Backend.
func (h *Histogram) Clone() Backend {
	return &Histogram{
		binning:  binning{name: h.name, edges: append([]float64(nil), h.edges...)},
		contents: append([]float64(nil), h.contents...),
		errors:   append([]float64(nil), h.errors...),
	}
}
