// SPDX-License-Identifier: MIT

// Package dist defines the binned-distribution backends the unfolding engine
// reads from.
//
// Two representations satisfy the same Backend capability set:
//
//   - Histogram: plain bin contents with per-bin errors.
//   - Parametric: nominal contents scaled by one nuisance parameter ("gamma")
//     per bin; fluctuating the parameters fluctuates the distribution.
//
// Both carry underflow/overflow bins. Vector accessors include them only when
// asked to, and optionally divide by the bin width (density normalization).
package dist

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrBadBinning is returned for fewer than two edges or non-increasing edges.
	ErrBadBinning = errors.New("dist: invalid bin edges")

	// ErrLength is returned when a contents/errors/values slice does not match the binning.
	ErrLength = errors.New("dist: length does not match binning")
)

// Kind identifies a backend implementation.
type Kind int

const (
	// KindHistogram is the plain numeric backend.
	KindHistogram Kind = iota
	// KindParametric is the nuisance-parameter backend.
	KindParametric
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindHistogram:
		return "histogram"
	case KindParametric:
		return "parametric"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Backend is the capability set the engine needs from a binned distribution.
type Backend interface {
	// Kind reports which representation this is.
	Kind() Kind
	// Name is a label for logs and tables.
	Name() string
	// Bins returns the number of regular bins (flow bins excluded).
	Bins() int
	// Len is Bins()+2 when overflow is set, else Bins().
	Len(overflow bool) int
	// Edges returns a copy of the bin edges.
	Edges() []float64
	// Widths returns the bin widths aligned with Vector(overflow, ·); flow bins have unit width.
	Widths(overflow bool) []float64
	// Vector returns the contents, optionally with flow bins and divided by bin width.
	Vector(overflow, density bool) []float64
	// ErrorVector returns the per-bin errors under the same conventions as Vector.
	ErrorVector(overflow, density bool) []float64
	// Nuisance returns the floating parameters of the distribution (nil if none).
	Nuisance() []*Parameter
	// Derive builds a backend of the same kind and binning holding values/errors
	// given in Vector(overflow, density) space. Nil errors means sqrt(|content|).
	Derive(values, errors []float64, overflow, density bool) (Backend, error)
	// Clone returns an independent deep copy.
	Clone() Backend
}

// binning is the shared edge bookkeeping of both backends.
type binning struct {
	name  string
	edges []float64
}

func newBinning(name string, edges []float64) (binning, error) {
	if len(edges) < 2 {
		return binning{}, ErrBadBinning
	}
	for i := 1; i < len(edges); i++ {
		if !(edges[i] > edges[i-1]) {
			return binning{}, fmt.Errorf("edge %d: %w", i, ErrBadBinning)
		}
	}
	return binning{name: name, edges: append([]float64(nil), edges...)}, nil
}

// UniformEdges returns n+1 equally spaced edges covering [lo, hi].
func UniformEdges(n int, lo, hi float64) []float64 {
	out := make([]float64, n+1)
	w := (hi - lo) / float64(n)
	for i := range out {
		out[i] = lo + float64(i)*w
	}
	return out
}

func (b binning) Name() string { return b.name }

func (b binning) Bins() int { return len(b.edges) - 1 }

func (b binning) Len(overflow bool) int {
	if overflow {
		return b.Bins() + 2
	}
	return b.Bins()
}

func (b binning) Edges() []float64 { return append([]float64(nil), b.edges...) }

func (b binning) Widths(overflow bool) []float64 {
	ones := make([]float64, b.Bins()+2)
	for k := range ones {
		ones[k] = b.width(k)
	}
	return b.project(ones, overflow, false)
}

// width of full-layout bin k (0 = underflow, Bins()+1 = overflow).
// Flow bins have unit width.
func (b binning) width(k int) float64 {
	if k <= 0 || k > b.Bins() {
		return 1
	}
	return b.edges[k] - b.edges[k-1]
}

// full expands contents given either with or without flow bins into the
// Bins()+2 layout.
func (b binning) full(v []float64) ([]float64, error) {
	n := b.Bins()
	switch len(v) {
	case n + 2:
		return append([]float64(nil), v...), nil
	case n:
		out := make([]float64, n+2)
		copy(out[1:], v)
		return out, nil
	default:
		return nil, fmt.Errorf("got %d, want %d or %d: %w", len(v), n, n+2, ErrLength)
	}
}

// project maps a full layout slice to Vector space.
func (b binning) project(full []float64, overflow, density bool) []float64 {
	lo, hi := 1, b.Bins()+1
	if overflow {
		lo, hi = 0, b.Bins()+2
	}
	out := make([]float64, 0, hi-lo)
	for k := lo; k < hi; k++ {
		v := full[k]
		if density {
			v /= b.width(k)
		}
		out = append(out, v)
	}
	return out
}

// inject is the inverse of project: Vector space back to the full layout.
// Flow bins stay zero when overflow is false.
func (b binning) inject(v []float64, overflow, density bool) ([]float64, error) {
	if len(v) != b.Len(overflow) {
		return nil, fmt.Errorf("got %d, want %d: %w", len(v), b.Len(overflow), ErrLength)
	}
	full := make([]float64, b.Bins()+2)
	lo := 1
	if overflow {
		lo = 0
	}
	for i, x := range v {
		k := lo + i
		if density {
			x *= b.width(k)
		}
		full[k] = x
	}
	return full, nil
}

func sqrtAbs(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = math.Sqrt(math.Abs(x))
	}
	return out
}
