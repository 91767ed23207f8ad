// SPDX-License-Identifier: MIT
package scenario_test

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvunfold/scenario"
	"github.com/katalvlaran/lvunfold/unfold"
)

const explicitYAML = `
name: two-bin
algorithm: invert
errors: covariance
verbose: -1
binning:
  truth:    {bins: 2, lo: 0, hi: 2}
  measured: {edges: [0, 1, 2]}
response:
  counts: [[80, 20], [20, 80]]
  truth: [100, 100]
measured:
  values: [120, 180]
truth: [100, 200]
`

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// valid returns a scenario that passes Validate; cases mutate one field.
func valid() *scenario.Scenario {
	return &scenario.Scenario{
		Name:        "base",
		Seed:        1,
		Algorithm:   "invert",
		Errors:      "covariance",
		Toys:        10,
		Systematics: "none",
		Backend:     "histogram",
		Binning: scenario.Binning{
			Truth:    scenario.Axis{Bins: 2, Lo: 0, Hi: 2},
			Measured: scenario.Axis{Bins: 2, Lo: 0, Hi: 2},
		},
		Response: &scenario.Response{Counts: [][]float64{{80, 20}, {20, 80}}, Truth: []float64{100, 100}},
		Measured: &scenario.Measured{Values: []float64{120, 180}},
	}
}

func TestParseDefaults(t *testing.T) {
	s, err := scenario.Parse([]byte(`
binning:
  truth:    {bins: 2, lo: 0, hi: 2}
  measured: {bins: 2, lo: 0, hi: 2}
generate: {events: 1000, width: 1, resolution: 0.5}
`))
	require.NoError(t, err)
	require.Equal(t, "scenario", s.Name)
	require.Equal(t, uint64(scenario.DefaultSeed), s.Seed)
	require.Equal(t, scenario.DefaultAlgorithm, s.Algorithm)
	require.Equal(t, scenario.DefaultErrors, s.Errors)
	require.Equal(t, scenario.DefaultBackend, s.Backend)
	require.Equal(t, unfold.DefaultToys, s.Toys)
	require.Equal(t, "none", s.Systematics)
	require.Nil(t, s.RegParm)
	require.Equal(t, 1.0, s.Generate.Efficiency)
}

func TestParseRejectsBadYAML(t *testing.T) {
	_, err := scenario.Parse([]byte("binning: [unterminated"))
	require.Error(t, err)
	require.NotErrorIs(t, err, scenario.ErrInvalid)
}

func TestValidate(t *testing.T) {
	require.NoError(t, valid().Validate())

	cases := []struct {
		name   string
		mutate func(*scenario.Scenario)
	}{
		{"algorithm", func(s *scenario.Scenario) { s.Algorithm = "magic" }},
		{"errors", func(s *scenario.Scenario) { s.Errors = "bogus" }},
		{"systematics", func(s *scenario.Scenario) { s.Systematics = "some" }},
		{"toys", func(s *scenario.Scenario) { s.Toys = -1 }},
		{"backend", func(s *scenario.Scenario) { s.Backend = "csv" }},
		{"truth binning", func(s *scenario.Scenario) { s.Binning.Truth = scenario.Axis{Bins: 0, Lo: 0, Hi: 1} }},
		{"measured binning", func(s *scenario.Scenario) { s.Binning.Measured = scenario.Axis{Bins: 2, Lo: 1, Hi: 1} }},
		{"single edge", func(s *scenario.Scenario) { s.Binning.Measured = scenario.Axis{Edges: []float64{1}} }},
		{"no response", func(s *scenario.Scenario) { s.Response = nil }},
		{"response and generate", func(s *scenario.Scenario) {
			s.Generate = &scenario.Generate{Events: 10, Width: 1, Resolution: 1, Efficiency: 1}
		}},
		{"generate width", func(s *scenario.Scenario) {
			s.Response = nil
			s.Generate = &scenario.Generate{Events: 10, Width: 0, Resolution: 1, Efficiency: 1}
		}},
		{"generate efficiency", func(s *scenario.Scenario) {
			s.Response = nil
			s.Generate = &scenario.Generate{Events: 10, Width: 1, Resolution: 1, Efficiency: 1.5}
		}},
		{"generate overflow", func(s *scenario.Scenario) {
			s.Response = nil
			s.Overflow = true
			s.Generate = &scenario.Generate{Events: 10, Width: 1, Resolution: 1, Efficiency: 1}
		}},
		{"measured missing", func(s *scenario.Scenario) { s.Measured = nil }},
		{"errors and covariance", func(s *scenario.Scenario) {
			s.Measured.Errors = []float64{1, 1}
			s.Measured.Covariance = [][]float64{{1, 0}, {0, 1}}
		}},
		{"bias method", func(s *scenario.Scenario) { s.Bias = &scenario.Bias{Method: "guess"} }},
		{"bias toys", func(s *scenario.Scenario) { s.Bias = &scenario.Bias{Method: "closure"} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := valid()
			tc.mutate(s)
			require.ErrorIs(t, s.Validate(), scenario.ErrInvalid)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "two-bin.yaml")
	require.NoError(t, os.WriteFile(path, []byte(explicitYAML), 0o600))
	s, err := scenario.Load(path)
	require.NoError(t, err)
	require.Equal(t, "two-bin", s.Name)
	require.Equal(t, []float64{0, 1, 2}, s.Binning.Measured.Edges)

	_, err = scenario.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunExplicitResponse(t *testing.T) {
	s, err := scenario.Parse([]byte(explicitYAML))
	require.NoError(t, err)
	res, err := scenario.Run(s, quiet())
	require.NoError(t, err)

	require.False(t, res.Failed)
	require.Len(t, res.Table.Rows, 2)
	require.InDelta(t, 100, res.Table.Rows[0].Unfolded, 1e-9)
	require.InDelta(t, 200, res.Table.Rows[1].Unfolded, 1e-9)
	require.Equal(t, 200.0, res.Table.Rows[1].Truth)
	require.Equal(t, 100.0, res.Table.Rows[1].TrainTruth)
	require.Equal(t, 100.0, res.Table.Rows[1].TrainMeasured)
	require.True(t, res.Table.HasChi2)
	require.InDelta(t, 0, res.Chi2, 1e-9)
	require.Nil(t, res.Bias)
	require.Contains(t, res.Summary, "algorithm=invert")
}

func TestRunMeasuredCovariance(t *testing.T) {
	s := valid()
	s.Verbose = -1
	s.Measured.Covariance = [][]float64{{100, 0}, {0, 100}}
	res, err := scenario.Run(s, quiet())
	require.NoError(t, err)
	require.Contains(t, res.Summary, "with measurement covariance")
	// R⁻¹ = [[0.8,-0.2],[-0.2,0.8]]/0.6, so var = 100·(0.64+0.04)/0.36.
	require.InDelta(t, 10*0.8246211251/0.6, res.Table.Rows[0].Error, 1e-6)
}

func TestRunGeneratedWithBias(t *testing.T) {
	s, err := scenario.Parse([]byte(`
name: gauss
seed: 7
algorithm: bayes
reg_parm: 4
errors: errors
verbose: -1
binning:
  truth:    {bins: 10, lo: -10, hi: 10}
  measured: {bins: 10, lo: -10, hi: 10}
generate:
  events: 100000
  width: 2.5
  resolution: 0.8
  efficiency: 0.9
  fluctuate: true
bias:
  method: closure
  toys: 3
`))
	require.NoError(t, err)
	job, err := scenario.Build(s, quiet())
	require.NoError(t, err)
	require.Equal(t, unfold.AlgBayes, job.Engine.Algorithm())
	require.Equal(t, 4.0, job.Engine.RegParm())
	require.Equal(t, unfold.Errors, job.Treatment)
	require.Equal(t, 10, job.Engine.NBinsTruth())

	res, err := job.Run()
	require.NoError(t, err)
	require.False(t, res.Failed)
	require.Len(t, res.Table.Rows, 10)
	require.False(t, res.Table.HasChi2)
	require.Equal(t, unfold.BiasClosure, res.BiasKind)
	require.Len(t, res.Bias, 10)
	require.Len(t, res.BiasErr, 10)
	for _, row := range res.Table.Rows {
		require.Greater(t, row.TrainTruth, 0.0)
		require.GreaterOrEqual(t, row.Error, 0.0)
	}
	// The generator's Gaussian peak sits in the central bins.
	require.Greater(t, res.Table.Rows[5].TrainTruth, res.Table.Rows[0].TrainTruth)
}

func TestRunParametricBackend(t *testing.T) {
	s := valid()
	s.Verbose = -1
	s.Backend = "parametric"
	s.Errors = "parametric"
	s.Toys = 20
	res, err := scenario.Run(s, quiet())
	require.NoError(t, err)
	require.False(t, res.Failed)
	require.Greater(t, res.Table.Rows[0].Error, 0.0)
	require.Equal(t, unfold.Parametric, res.Table.Treatment)
}

func TestBuildErrors(t *testing.T) {
	s := valid()
	s.Measured.Values = []float64{1, 2, 3}
	_, err := scenario.Build(s, quiet())
	require.ErrorIs(t, err, scenario.ErrInvalid)

	s = valid()
	s.Response.Counts = [][]float64{{1, 2}, {3}}
	_, err = scenario.Build(s, quiet())
	require.ErrorIs(t, err, scenario.ErrInvalid)

	s = valid()
	s.Response.Counts = [][]float64{{1, 2, 3}, {4, 5, 6}}
	_, err = scenario.Build(s, quiet())
	require.ErrorIs(t, err, scenario.ErrInvalid)

	s = valid()
	s.Algorithm = "tunfold"
	_, err = scenario.Build(s, quiet())
	require.ErrorIs(t, err, unfold.ErrAlgorithmUnavailable)
}
