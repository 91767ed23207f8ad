// SPDX-License-Identifier: MIT
package matrix_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/lvunfold/matrix"
)

func TestValidators(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		check   func() error
		wantErr error
	}{
		{"not nil ok", func() error { return matrix.ValidateNotNil(mat.NewDense(1, 1, nil)) }, nil},
		{"nil", func() error { return matrix.ValidateNotNil(nil) }, matrix.ErrNilMatrix},
		{"empty", func() error { return matrix.ValidateNotNil(&mat.Dense{}) }, matrix.ErrEmpty},
		{"square ok", func() error { return matrix.ValidateSquare(mat.NewDense(2, 2, nil)) }, nil},
		{"not square", func() error { return matrix.ValidateSquare(mat.NewDense(2, 1, nil)) }, matrix.ErrNonSquare},
		{"vec ok", func() error { return matrix.ValidateVecLen([]float64{1, 2}, 2) }, nil},
		{"vec nil", func() error { return matrix.ValidateVecLen(nil, 2) }, matrix.ErrNilMatrix},
		{"vec short", func() error { return matrix.ValidateVecLen([]float64{1}, 2) }, matrix.ErrDimensionMismatch},
		{"finite ok", func() error { return matrix.ValidateFinite(mat.NewDense(1, 2, []float64{1, 2})) }, nil},
		{"nan", func() error { return matrix.ValidateFinite(mat.NewDense(1, 1, []float64{math.NaN()})) }, matrix.ErrNaNInf},
		{"inf", func() error { return matrix.ValidateFinite(mat.NewDense(1, 1, []float64{math.Inf(-1)})) }, matrix.ErrNaNInf},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.check()
			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestWithConditionLimitPanics(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() { matrix.WithConditionLimit(0) })
	require.Panics(t, func() { matrix.WithConditionLimit(math.Inf(1)) })
	require.NotPanics(t, func() { matrix.WithConditionLimit(1e10) })
}
