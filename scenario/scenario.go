// SPDX-License-Identifier: MIT

// Package scenario describes a complete unfolding job in YAML: binning,
// response (explicit or generated), measured input, algorithm and error
// settings, and an optional bias study.
//
// Example:
//
//	name: smear
//	seed: 7
//	algorithm: bayes
//	reg_parm: 4
//	errors: covariance
//	binning:
//	  truth:    {bins: 20, lo: -10, hi: 10}
//	  measured: {bins: 20, lo: -10, hi: 10}
//	generate:
//	  events: 100000
//	  mean: 0
//	  width: 2.5
//	  resolution: 0.8
//	  efficiency: 0.9
//	  fluctuate: true
//	bias:
//	  method: closure
//	  toys: 20
package scenario

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/lvunfold/dist"
	"github.com/katalvlaran/lvunfold/unfold"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("scenario: invalid")

// Defaults applied by Parse for omitted keys.
const (
	DefaultAlgorithm = "bayes"
	DefaultErrors    = "errors"
	DefaultBackend   = "histogram"
	DefaultSeed      = 1
)

// Scenario is the top-level YAML document.
type Scenario struct {
	Name        string    `yaml:"name"`
	Seed        uint64    `yaml:"seed"`
	Algorithm   string    `yaml:"algorithm"`
	RegParm     *float64  `yaml:"reg_parm,omitempty"`
	Errors      string    `yaml:"errors"`
	Toys        int       `yaml:"toys"`
	Systematics string    `yaml:"systematics"`
	Verbose     int       `yaml:"verbose"`
	Overflow    bool      `yaml:"overflow"`
	Density     bool      `yaml:"density"`
	Backend     string    `yaml:"backend"`
	Binning     Binning   `yaml:"binning"`
	Response    *Response `yaml:"response,omitempty"`
	Generate    *Generate `yaml:"generate,omitempty"`
	Measured    *Measured `yaml:"measured,omitempty"`
	Truth       []float64 `yaml:"truth,omitempty"`
	Bias        *Bias     `yaml:"bias,omitempty"`
}

// Axis is a binning given either as explicit edges or as bins over [lo, hi].
type Axis struct {
	Bins  int       `yaml:"bins"`
	Lo    float64   `yaml:"lo"`
	Hi    float64   `yaml:"hi"`
	Edges []float64 `yaml:"edges,omitempty"`
}

// Binning holds the truth and measured axes.
type Binning struct {
	Truth    Axis `yaml:"truth"`
	Measured Axis `yaml:"measured"`
}

// Response is an explicit migration matrix. Counts rows are measured bins,
// columns truth bins (flow bins included when overflow is set). Measured
// defaults to the row sums of Counts.
type Response struct {
	Counts   [][]float64 `yaml:"counts"`
	Truth    []float64   `yaml:"truth"`
	Measured []float64   `yaml:"measured,omitempty"`
}

// Generate builds a Gaussian truth peak smeared by a Gaussian resolution.
type Generate struct {
	Events     float64 `yaml:"events"`
	Mean       float64 `yaml:"mean"`
	Width      float64 `yaml:"width"`
	Resolution float64 `yaml:"resolution"`
	Shift      float64 `yaml:"shift"`
	Efficiency float64 `yaml:"efficiency"`
	Fluctuate  bool    `yaml:"fluctuate"`
}

// Measured is the data to unfold. Errors and Covariance are exclusive.
type Measured struct {
	Values     []float64   `yaml:"values"`
	Errors     []float64   `yaml:"errors,omitempty"`
	Covariance [][]float64 `yaml:"covariance,omitempty"`
}

// Bias requests a bias study after unfolding.
type Bias struct {
	Method string `yaml:"method"`
	Toys   int    `yaml:"toys"`
}

// Load reads and parses a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies defaults and validates the result.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("scenario: decode: %w", err)
	}
	s.ApplyDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// ApplyDefaults fills omitted settings.
func (s *Scenario) ApplyDefaults() {
	if s.Name == "" {
		s.Name = "scenario"
	}
	if s.Seed == 0 {
		s.Seed = DefaultSeed
	}
	if s.Algorithm == "" {
		s.Algorithm = DefaultAlgorithm
	}
	if s.Errors == "" {
		s.Errors = DefaultErrors
	}
	if s.Toys == 0 {
		s.Toys = unfold.DefaultToys
	}
	if s.Systematics == "" {
		s.Systematics = unfold.NoSystematics.String()
	}
	if s.Backend == "" {
		s.Backend = DefaultBackend
	}
	if s.Generate != nil && s.Generate.Efficiency == 0 {
		s.Generate.Efficiency = 1
	}
}

// Validate checks the scenario without building anything heavy.
func (s *Scenario) Validate() error {
	if _, err := unfold.ParseAlgorithm(s.Algorithm); err != nil {
		return invalid("algorithm", err)
	}
	if _, err := unfold.ParseErrorTreatment(s.Errors); err != nil {
		return invalid("errors", err)
	}
	if _, err := unfold.ParseSystematics(s.Systematics); err != nil {
		return invalid("systematics", err)
	}
	if s.Toys < 1 {
		return invalid("toys", fmt.Errorf("must be positive, got %d", s.Toys))
	}
	if s.Backend != "histogram" && s.Backend != "parametric" {
		return invalid("backend", fmt.Errorf("%q is neither histogram nor parametric", s.Backend))
	}
	if _, err := s.Binning.Truth.edges(); err != nil {
		return invalid("binning.truth", err)
	}
	if _, err := s.Binning.Measured.edges(); err != nil {
		return invalid("binning.measured", err)
	}
	switch {
	case s.Response == nil && s.Generate == nil:
		return invalid("response", errors.New("one of response or generate is required"))
	case s.Response != nil && s.Generate != nil:
		return invalid("response", errors.New("response and generate are exclusive"))
	case s.Generate != nil:
		if err := s.Generate.validate(); err != nil {
			return invalid("generate", err)
		}
		if s.Overflow {
			return invalid("overflow", errors.New("generated responses have no flow bins"))
		}
	}
	if s.Measured == nil && s.Generate == nil {
		return invalid("measured", errors.New("required without a generator"))
	}
	if s.Measured != nil && s.Measured.Errors != nil && s.Measured.Covariance != nil {
		return invalid("measured", errors.New("errors and covariance are exclusive"))
	}
	if s.Bias != nil {
		m, err := unfold.ParseBiasMethod(s.Bias.Method)
		if err != nil {
			return invalid("bias.method", err)
		}
		if m != unfold.BiasEstimator && s.Bias.Toys < 1 {
			return invalid("bias.toys", fmt.Errorf("%v needs at least one toy", m))
		}
	}
	return nil
}

func (g *Generate) validate() error {
	switch {
	case g.Events <= 0:
		return fmt.Errorf("events must be positive, got %g", g.Events)
	case g.Width <= 0:
		return fmt.Errorf("width must be positive, got %g", g.Width)
	case g.Resolution <= 0:
		return fmt.Errorf("resolution must be positive, got %g", g.Resolution)
	case g.Efficiency <= 0 || g.Efficiency > 1:
		return fmt.Errorf("efficiency must be in (0, 1], got %g", g.Efficiency)
	}
	return nil
}

func (a Axis) edges() ([]float64, error) {
	if len(a.Edges) > 0 {
		if len(a.Edges) < 2 {
			return nil, dist.ErrBadBinning
		}
		return a.Edges, nil
	}
	if a.Bins < 1 || !(a.Hi > a.Lo) {
		return nil, fmt.Errorf("bins=%d lo=%g hi=%g: %w", a.Bins, a.Lo, a.Hi, dist.ErrBadBinning)
	}
	return dist.UniformEdges(a.Bins, a.Lo, a.Hi), nil
}

func invalid(field string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInvalid, field, err)
}
