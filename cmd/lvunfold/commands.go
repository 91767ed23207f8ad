// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/katalvlaran/lvunfold/scenario"
	"github.com/katalvlaran/lvunfold/unfold"
)

type runFlags struct {
	seed      uint64
	algorithm string
	errors    string
	regParm   float64
	toys      int
	verbose   int
	bias      string
	biasToys  int
}

func newRootCmd() *cobra.Command {
	var logLevel string
	root := &cobra.Command{
		Use:          "lvunfold",
		Short:        "Unfold binned distributions with error and bias estimates",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var lvl slog.Level
			if err := lvl.UnmarshalText([]byte(logLevel)); err != nil {
				return fmt.Errorf("--log-level: %w", err)
			}
			slog.SetDefault(newLogger(cmd.ErrOrStderr(), lvl))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(newRunCmd(), newAlgorithmsCmd(), newExampleCmd())

	return root
}

func newLogger(w io.Writer, lvl slog.Level) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      lvl,
		TimeFormat: "15:04:05",
	}))
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Unfold a scenario and print the per-bin table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := scenario.Load(args[0])
			if err != nil {
				return err
			}
			f.apply(cmd, s)
			res, err := scenario.Run(s, slog.Default())
			if err != nil {
				return err
			}
			renderResult(cmd.OutOrStdout(), res)
			if res.Failed {
				return fmt.Errorf("unfolding %q failed", s.Name)
			}
			return nil
		},
	}
	fl := cmd.Flags()
	fl.Uint64Var(&f.seed, "seed", 0, "override the scenario seed")
	fl.StringVar(&f.algorithm, "algorithm", "", "override the algorithm (none, bayes, svd, binbybin, invert)")
	fl.StringVar(&f.errors, "errors", "", "override the error treatment (none, errors, covariance, covtoy, parametric)")
	fl.Float64Var(&f.regParm, "reg", 0, "override the regularisation parameter")
	fl.IntVar(&f.toys, "toys", 0, "override the toy count")
	fl.IntVarP(&f.verbose, "verbose", "v", 0, "engine verbosity (-1 silent, 0 warnings, 1 info, 3 debug)")
	fl.StringVar(&f.bias, "bias", "", "run a bias study (estimator, closure, asimov)")
	fl.IntVar(&f.biasToys, "bias-toys", 10, "toys for the bias study")

	return cmd
}

// apply overrides scenario settings with the flags the user set.
func (f *runFlags) apply(cmd *cobra.Command, s *scenario.Scenario) {
	fl := cmd.Flags()
	if fl.Changed("seed") {
		s.Seed = f.seed
	}
	if fl.Changed("algorithm") {
		s.Algorithm = f.algorithm
	}
	if fl.Changed("errors") {
		s.Errors = f.errors
	}
	if fl.Changed("reg") {
		p := f.regParm
		s.RegParm = &p
	}
	if fl.Changed("toys") {
		s.Toys = f.toys
	}
	if fl.Changed("verbose") {
		s.Verbose = f.verbose
	}
	if fl.Changed("bias") {
		s.Bias = &scenario.Bias{Method: f.bias, Toys: f.biasToys}
	}
}

func newAlgorithmsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "algorithms",
		Short: "List algorithm tags and whether they are available",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			renderAlgorithms(cmd.OutOrStdout(), unfold.Available())
		},
	}
}

func newExampleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "example",
		Short: "Print an example scenario",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprint(cmd.OutOrStdout(), exampleScenario)
		},
	}
}

const exampleScenario = `name: gaussian-smear
seed: 7
algorithm: bayes
reg_parm: 4
errors: covariance
toys: 50
binning:
  truth:    {bins: 20, lo: -10, hi: 10}
  measured: {bins: 20, lo: -10, hi: 10}
generate:
  events: 100000
  mean: 0
  width: 2.5
  resolution: 0.8
  shift: 0.2
  efficiency: 0.9
  fluctuate: true
bias:
  method: closure
  toys: 20
`
