// SPDX-License-Identifier: MIT

package scenario

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/katalvlaran/lvunfold/dist"
	"github.com/katalvlaran/lvunfold/response"
	"github.com/katalvlaran/lvunfold/unfold"
)

// Job is a built scenario: the engine plus the truth to compare against.
type Job struct {
	Scenario  *Scenario
	Engine    *unfold.Engine
	Truth     dist.Backend
	Treatment unfold.ErrorTreatment
}

// Build constructs the response, the measured input and the engine. All
// random draws (generator fluctuation, then engine toys) come from one
// generator seeded with s.Seed.
func Build(s *Scenario, logger *slog.Logger) (*Job, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	rng := rand.New(rand.NewPCG(s.Seed, s.Seed^0x5851f42d4c957f2d))
	truthEdges, _ := s.Binning.Truth.edges()
	measEdges, _ := s.Binning.Measured.edges()

	var (
		counts            *mat.Dense
		trainT, trainM    []float64
		measured, measErr []float64
		truth             []float64
	)
	if s.Generate != nil {
		counts, trainT = s.Generate.migrations(truthEdges, measEdges)
		trainM = rowSums(counts)
		truth = trainT
		measured = append([]float64(nil), trainM...)
		if s.Generate.Fluctuate {
			dist.Fluctuate(measured, rng)
		}
	} else {
		r := s.Response
		var err error
		if counts, err = denseOf(r.Counts); err != nil {
			return nil, invalid("response.counts", err)
		}
		trainT, trainM = r.Truth, r.Measured
		if trainM == nil {
			trainM = rowSums(counts)
		}
		truth = trainT
	}
	if s.Measured != nil {
		measured, measErr = s.Measured.Values, s.Measured.Errors
	}
	if s.Truth != nil {
		truth = s.Truth
	}

	build := func(name string, edges, values, errs []float64) (dist.Backend, error) {
		if s.Backend == "parametric" {
			return dist.NewParametric(name, edges, values, errs)
		}
		return dist.NewHistogram(name, edges, values, errs)
	}
	hTrainT, err := build("train_truth", truthEdges, trainT, nil)
	if err != nil {
		return nil, invalid("response.truth", err)
	}
	hTrainM, err := build("train_measured", measEdges, trainM, nil)
	if err != nil {
		return nil, invalid("response.measured", err)
	}
	hMeas, err := build("measured", measEdges, measured, measErr)
	if err != nil {
		return nil, invalid("measured", err)
	}
	hTruth, err := build("truth", truthEdges, truth, nil)
	if err != nil {
		return nil, invalid("truth", err)
	}

	res, err := response.New(counts, hTrainT, hTrainM,
		response.WithName(s.Name),
		response.WithOverflow(s.Overflow),
		response.WithDensity(s.Density),
	)
	if err != nil {
		return nil, invalid("response", err)
	}

	alg, _ := unfold.ParseAlgorithm(s.Algorithm)
	treatment, _ := unfold.ParseErrorTreatment(s.Errors)
	sys, _ := unfold.ParseSystematics(s.Systematics)
	opts := []unfold.Option{
		unfold.WithName(s.Name),
		unfold.WithVerbose(s.Verbose),
		unfold.WithToys(s.Toys),
		unfold.WithSystematics(sys),
		unfold.WithErrorTreatment(treatment),
		unfold.WithLogger(logger),
		unfold.WithRand(rng),
		unfold.WithTakeOwnership(),
	}
	if s.RegParm != nil {
		opts = append(opts, unfold.WithRegParm(*s.RegParm))
	}
	if s.Measured != nil && s.Measured.Covariance != nil {
		cov, err := denseOf(s.Measured.Covariance)
		if err != nil {
			return nil, invalid("measured.covariance", err)
		}
		opts = append(opts, unfold.WithMeasuredCov(cov))
	}
	eng, err := unfold.New(alg, res, hMeas, opts...)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
	}
	return &Job{Scenario: s, Engine: eng, Truth: hTruth, Treatment: treatment}, nil
}

// migrations integrates the truth peak over the truth bins and smears each
// truth bin centre into the measured bins with the resolution Gaussian.
func (g *Generate) migrations(truthEdges, measEdges []float64) (*mat.Dense, []float64) {
	peak := distuv.Normal{Mu: g.Mean, Sigma: g.Width}
	nt, nm := len(truthEdges)-1, len(measEdges)-1
	truth := make([]float64, nt)
	counts := mat.NewDense(nm, nt, nil)
	for j := 0; j < nt; j++ {
		lo, hi := truthEdges[j], truthEdges[j+1]
		truth[j] = g.Events * (peak.CDF(hi) - peak.CDF(lo))
		smear := distuv.Normal{Mu: (lo+hi)/2 + g.Shift, Sigma: g.Resolution}
		for i := 0; i < nm; i++ {
			p := smear.CDF(measEdges[i+1]) - smear.CDF(measEdges[i])
			counts.Set(i, j, truth[j]*g.Efficiency*p)
		}
	}
	return counts, truth
}

func rowSums(m *mat.Dense) []float64 {
	r, _ := m.Dims()
	out := make([]float64, r)
	for i := range out {
		out[i] = mat.Sum(m.RowView(i))
	}
	return out
}

func denseOf(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, errors.New("empty matrix")
	}
	c := len(rows[0])
	data := make([]float64, 0, len(rows)*c)
	for i, row := range rows {
		if len(row) != c {
			return nil, fmt.Errorf("row %d has %d columns, want %d", i, len(row), c)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), c, data), nil
}
