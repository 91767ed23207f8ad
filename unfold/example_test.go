// SPDX-License-Identifier: MIT
package unfold_test

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/lvunfold/dist"
	"github.com/katalvlaran/lvunfold/response"
	"github.com/katalvlaran/lvunfold/unfold"
)

// ExampleEngine unfolds a two-bin measurement with 20% migration between
// neighbouring bins by matrix inversion.
func ExampleEngine() {
	edges := dist.UniformEdges(2, 0, 2)
	trainTruth, _ := dist.NewHistogram("truth", edges, []float64{100, 100}, nil)
	trainMeas, _ := dist.NewHistogram("measured", edges, []float64{100, 100}, nil)
	res, err := response.New(mat.NewDense(2, 2, []float64{80, 20, 20, 80}), trainTruth, trainMeas)
	if err != nil {
		fmt.Println(err)
		return
	}
	data, _ := dist.NewHistogram("data", edges, []float64{120, 180}, nil)

	e, err := unfold.New(unfold.AlgInvert, res, data, unfold.WithVerbose(-1))
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("unfolded: %.1f\n", e.Vunfold())
	fmt.Printf("errors:   %.2f\n", e.EunfoldV(unfold.Covariance))
	// Output:
	// unfolded: [100.0 200.0]
	// errors:   [15.28 18.26]
}
