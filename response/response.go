// SPDX-License-Identifier: MIT

// Package response describes the known measured-given-truth relationship used
// by the unfolding engine.
//
// Mapping is the narrow query surface the engine needs. Response is the
// concrete implementation: a matrix of migration counts (measured × truth)
// plus the truth and measured training distributions it was filled from.
//
// A Response keeps its nominal counts untouched. RunToy installs a fluctuated
// copy that stays active until ClearCache.
package response

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/lvunfold/dist"
	"github.com/katalvlaran/lvunfold/matrix"
)

var (
	// ErrNilInput is returned when counts or a training distribution is nil.
	ErrNilInput = errors.New("response: nil counts or distribution")

	// ErrShape is returned when the counts matrix does not match the training binnings.
	ErrShape = errors.New("response: counts shape does not match binning")
)

// Mapping is the contract the engine requires from a response.
type Mapping interface {
	// TruthBins is nt, flow bins included when Overflow is set.
	TruthBins() int
	// MeasuredBins is nm, flow bins included when Overflow is set.
	MeasuredBins() int
	Overflow() bool
	Density() bool

	// Truth and Measured are the training distributions.
	Truth() dist.Backend
	Measured() dist.Backend
	VTruth() []float64
	ETruth() []float64
	VMeasured() []float64

	// Matrix is the normalized response P(measured i | truth j), nm×nt.
	Matrix() *mat.Dense
	// Fold maps a truth-space vector to measured space.
	Fold(truth []float64) ([]float64, error)

	// RunToy perturbs the mapping in place with a single systematic draw.
	RunToy(rng *rand.Rand)
	// ClearCache drops derived state and any installed toy.
	ClearCache()

	// NuisanceParameters collects the floating parameters of the training distributions.
	NuisanceParameters() []*dist.Parameter

	Clone() Mapping
}

// Response is the matrix-backed Mapping.
type Response struct {
	name     string
	counts   *mat.Dense
	truth    dist.Backend
	measured dist.Backend
	overflow bool
	density  bool

	toy  *mat.Dense // fluctuated counts, nil when nominal
	norm *mat.Dense // cached Matrix()
}

var _ Mapping = (*Response)(nil)

// Option configures New.
type Option func(*Response)

// WithOverflow includes underflow/overflow bins in every vector and in counts.
func WithOverflow(on bool) Option { return func(r *Response) { r.overflow = on } }

// WithDensity divides vectors by bin width.
func WithDensity(on bool) Option { return func(r *Response) { r.density = on } }

// WithName labels the response.
func WithName(name string) Option { return func(r *Response) { r.name = name } }

// New builds a Response from migration counts (rows = measured bins, columns =
// truth bins, flow bins included when WithOverflow(true)) and the training
// distributions. Counts and distributions are copied.
func New(counts mat.Matrix, truth, measured dist.Backend, opts ...Option) (*Response, error) {
	if counts == nil || truth == nil || measured == nil {
		return nil, ErrNilInput
	}
	r := &Response{name: "response"}
	for _, fn := range opts {
		fn(r)
	}
	rows, cols := counts.Dims()
	if rows != measured.Len(r.overflow) || cols != truth.Len(r.overflow) {
		return nil, fmt.Errorf("counts %dx%d, want %dx%d: %w",
			rows, cols, measured.Len(r.overflow), truth.Len(r.overflow), ErrShape)
	}
	r.counts = mat.DenseCopyOf(counts)
	r.truth = truth.Clone()
	r.measured = measured.Clone()

	return r, nil
}

// Name returns the response label.
func (r *Response) Name() string { return r.name }

func (r *Response) TruthBins() int    { return r.truth.Len(r.overflow) }
func (r *Response) MeasuredBins() int { return r.measured.Len(r.overflow) }
func (r *Response) Overflow() bool    { return r.overflow }
func (r *Response) Density() bool     { return r.density }

func (r *Response) Truth() dist.Backend    { return r.truth }
func (r *Response) Measured() dist.Backend { return r.measured }

func (r *Response) VTruth() []float64     { return r.truth.Vector(r.overflow, r.density) }
func (r *Response) ETruth() []float64     { return r.truth.ErrorVector(r.overflow, r.density) }
func (r *Response) VMeasured() []float64  { return r.measured.Vector(r.overflow, r.density) }

// Counts returns a copy of the active (nominal or toy) migration counts.
func (r *Response) Counts() *mat.Dense { return mat.DenseCopyOf(r.active()) }

func (r *Response) active() *mat.Dense {
	if r.toy != nil {
		return r.toy
	}
	return r.counts
}

// Matrix returns the response normalized by the truth content of each column,
// so that column sums are the per-bin efficiencies. Empty truth bins give zero
// columns. The result is cached until ClearCache or RunToy.
func (r *Response) Matrix() *mat.Dense {
	if r.norm != nil {
		return mat.DenseCopyOf(r.norm)
	}
	truth := r.truth.Vector(r.overflow, false)
	c := r.active()
	rows, cols := c.Dims()
	norm := mat.NewDense(rows, cols, nil)
	var i, j int
	for j = 0; j < cols; j++ {
		if truth[j] == 0 {
			continue
		}
		for i = 0; i < rows; i++ {
			norm.Set(i, j, c.At(i, j)/truth[j])
		}
	}
	r.norm = norm

	return mat.DenseCopyOf(norm)
}

// Fold returns Matrix()·truth. With density set, the vector is converted to
// counts before folding and back to densities after.
func (r *Response) Fold(truth []float64) ([]float64, error) {
	t := append([]float64(nil), truth...)
	if r.density {
		for i, w := range r.truth.Widths(r.overflow) {
			if i < len(t) {
				t[i] *= w
			}
		}
	}
	out, err := matrix.MulVec(r.Matrix(), t)
	if err != nil {
		return nil, fmt.Errorf("response: Fold: %w", err)
	}
	if r.density {
		for i, w := range r.measured.Widths(r.overflow) {
			out[i] /= w
		}
	}
	return out, nil
}

// RunToy installs a Poisson fluctuation of the nominal counts drawn from rng.
func (r *Response) RunToy(rng *rand.Rand) {
	toy := mat.DenseCopyOf(r.counts)
	raw := toy.RawMatrix()
	for i := 0; i < raw.Rows; i++ {
		dist.Fluctuate(raw.Data[i*raw.Stride:i*raw.Stride+raw.Cols], rng)
	}
	r.toy = toy
	r.norm = nil
}

// ClearCache restores the nominal counts and drops the cached normalization.
func (r *Response) ClearCache() {
	r.toy = nil
	r.norm = nil
}

// NuisanceParameters returns the truth then measured floating parameters.
func (r *Response) NuisanceParameters() []*dist.Parameter {
	return append(r.truth.Nuisance(), r.measured.Nuisance()...)
}

// Clone implements Mapping with a fully independent copy.
func (r *Response) Clone() Mapping {
	c := &Response{
		name:     r.name,
		counts:   mat.DenseCopyOf(r.counts),
		truth:    r.truth.Clone(),
		measured: r.measured.Clone(),
		overflow: r.overflow,
		density:  r.density,
	}
	if r.toy != nil {
		c.toy = mat.DenseCopyOf(r.toy)
	}
	return c
}
