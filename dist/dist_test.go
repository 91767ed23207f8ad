// SPDX-License-Identifier: MIT
package dist_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvunfold/dist"
)

func TestHistogramLayout(t *testing.T) {
	t.Parallel()

	h, err := dist.NewHistogram("h", []float64{0, 1, 3}, []float64{5, 4, 6, 7}, nil)
	require.NoError(t, err)
	require.Equal(t, dist.KindHistogram, h.Kind())
	require.Equal(t, 2, h.Bins())
	require.Equal(t, 4, h.Len(true))
	require.Equal(t, []float64{4, 6}, h.Vector(false, false))
	require.Equal(t, []float64{5, 4, 6, 7}, h.Vector(true, false))
	require.Equal(t, []float64{4, 3}, h.Vector(false, true), "density divides by width")
	require.Equal(t, []float64{1, 1, 2, 1}, h.Widths(true))
	require.InDeltaSlice(t, []float64{2, math.Sqrt(6)}, h.ErrorVector(false, false), 1e-12)
	require.Nil(t, h.Nuisance())
}

func TestHistogramRegularBinsOnly(t *testing.T) {
	t.Parallel()

	h, err := dist.NewHistogram("h", dist.UniformEdges(3, 0, 3), []float64{1, 2, 3}, []float64{0.1, 0.2, 0.3})
	require.NoError(t, err)
	require.Equal(t, []float64{0, 1, 2, 3, 0}, h.Vector(true, false))
	require.Equal(t, []float64{0.1, 0.2, 0.3}, h.ErrorVector(false, false))
}

func TestHistogramErrors(t *testing.T) {
	t.Parallel()

	_, err := dist.NewHistogram("h", []float64{0}, nil, nil)
	require.ErrorIs(t, err, dist.ErrBadBinning)
	_, err = dist.NewHistogram("h", []float64{0, 2, 1}, []float64{1, 1}, nil)
	require.ErrorIs(t, err, dist.ErrBadBinning)
	_, err = dist.NewHistogram("h", []float64{0, 1}, []float64{1, 2, 3}, nil)
	require.ErrorIs(t, err, dist.ErrLength)
}

// TestDeriveAndClone checks Derive keeps the binning and Clone is independent.
func TestDeriveAndClone(t *testing.T) {
	t.Parallel()

	h, err := dist.NewHistogram("h", []float64{0, 2, 4}, []float64{1, 1}, nil)
	require.NoError(t, err)

	d, err := h.Derive([]float64{3, 4}, nil, false, true)
	require.NoError(t, err)
	require.Equal(t, []float64{6, 8}, d.Vector(false, false))
	require.Equal(t, []float64{3, 4}, d.Vector(false, true))
	require.Equal(t, h.Edges(), d.Edges())

	_, err = h.Derive([]float64{1}, nil, false, false)
	require.ErrorIs(t, err, dist.ErrLength)

	c := d.Clone()
	require.Equal(t, d.Vector(true, false), c.Vector(true, false))
}

func TestParametricGammas(t *testing.T) {
	t.Parallel()

	p, err := dist.NewParametric("p", []float64{0, 1, 2, 3}, []float64{100, 0, 25}, []float64{10, 0, 5})
	require.NoError(t, err)
	require.Equal(t, dist.KindParametric, p.Kind())
	require.Equal(t, []float64{100, 0, 25}, p.Vector(false, false))

	nuis := p.Nuisance()
	require.Len(t, nuis, 2, "empty bin and flow bins are constant")
	require.InDelta(t, 0.1, nuis[0].Error, 1e-12)
	require.InDelta(t, 0.2, nuis[1].Error, 1e-12)

	gs := p.Gammas(false)
	require.Len(t, gs, 3)
	require.Same(t, nuis[0], gs[0])

	gs[0].Value = 1.5
	require.Equal(t, []float64{150, 0, 25}, p.Vector(false, false))
	require.InDeltaSlice(t, []float64{10, 0, 5}, p.ErrorVector(false, false), 1e-12)

	snap := dist.Snapshot(nuis)
	nuis[1].Value = 2
	dist.Restore(nuis, snap)
	require.Equal(t, 1.5, nuis[0].Value)
	require.Equal(t, 1.0, nuis[1].Value)

	c := p.Clone()
	c.Nuisance()[0].Value = 3
	require.Equal(t, 1.5, nuis[0].Value, "clone must not share parameters")
}

// TestFluctuateDeterministic checks seeded reproducibility and that
// non-positive entries are left alone.
func TestFluctuateDeterministic(t *testing.T) {
	t.Parallel()

	draw := func() []float64 {
		v := []float64{0, -1, 50, 1000}
		dist.Fluctuate(v, rand.New(rand.NewPCG(3, 4)))
		return v
	}
	a, b := draw(), draw()
	require.Equal(t, a, b)
	require.Equal(t, 0.0, a[0])
	require.Equal(t, -1.0, a[1])
	require.Equal(t, math.Round(a[2]), a[2], "Poisson draws are integers")
	require.InDelta(t, 1000, a[3], 200)
}
