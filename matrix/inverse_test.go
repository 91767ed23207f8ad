// SPDX-License-Identifier: MIT
package matrix_test

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/lvunfold/matrix"
)

func quiet() matrix.Option { return matrix.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))) }

// TestInvertRoundTrip checks M·M⁻¹ ≈ I for well-conditioned matrices.
func TestInvertRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		m    *mat.Dense
	}{
		{"2x2", mat.NewDense(2, 2, []float64{4, 1, 2, 3})},
		{"diagonal", mat.NewDense(3, 3, []float64{2, 0, 0, 0, 5, 0, 0, 0, 0.5})},
		{"smearing", mat.NewDense(3, 3, []float64{
			0.8, 0.1, 0.0,
			0.2, 0.8, 0.2,
			0.0, 0.1, 0.8,
		})},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			inv, status := matrix.Invert(tc.m, quiet())
			require.Equal(t, matrix.StatusOK, status)
			require.NotNil(t, inv)

			var prod mat.Dense
			prod.Mul(tc.m, inv)
			require.InDelta(t, 0, matrix.IdentityDeviation(&prod), 1e-9)
		})
	}
}

// TestInvertSingular expects a usable pseudo-inverse flagged as poorly conditioned.
func TestInvertSingular(t *testing.T) {
	t.Parallel()

	m := mat.NewDense(2, 2, []float64{1, 0, 0, 0})
	inv, status := matrix.Invert(m, quiet())
	require.Equal(t, matrix.StatusPoorCondition, status)
	require.True(t, status.Usable())
	require.NotEqual(t, matrix.StatusOK, status)
	require.InDelta(t, 1, inv.At(0, 0), 1e-12)
	require.InDelta(t, 0, inv.At(1, 1), 1e-12)
}

// TestInvertFailures covers inputs that cannot be inverted at all.
func TestInvertFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		m    mat.Matrix
	}{
		{"nil", nil},
		{"non-square", mat.NewDense(2, 3, nil)},
		{"zero", mat.NewDense(2, 2, nil)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			inv, status := matrix.Invert(tc.m, quiet())
			require.Equal(t, matrix.StatusFailed, status)
			require.False(t, status.Usable())
			require.Nil(t, inv)
		})
	}
}

// TestInvertConditionLimit lowers the limit so that a mildly conditioned matrix is flagged.
func TestInvertConditionLimit(t *testing.T) {
	t.Parallel()

	m := mat.NewDense(2, 2, []float64{1, 0, 0, 1e-3})
	_, status := matrix.Invert(m, quiet(), matrix.WithConditionLimit(100))
	require.Equal(t, matrix.StatusPoorCondition, status)

	_, status = matrix.Invert(m, quiet())
	require.Equal(t, matrix.StatusOK, status)
}

// TestInvertDiagnostics checks the verbose report is logged.
func TestInvertDiagnostics(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	_, status := matrix.Invert(mat.NewDense(2, 2, []float64{2, 0, 0, 4}),
		matrix.WithLogger(logger), matrix.WithVerbose(3), matrix.WithName("cov"))
	require.Equal(t, matrix.StatusOK, status)
	require.Contains(t, buf.String(), "condition=2")
	require.Contains(t, buf.String(), "max_error_percent=")
	require.Contains(t, buf.String(), "name=cov")

	buf.Reset()
	_, _ = matrix.Invert(mat.NewDense(2, 2, nil), matrix.WithLogger(logger), matrix.WithVerbose(-1))
	require.Empty(t, buf.String())
}

func TestStatusString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "ok", matrix.StatusOK.String())
	require.Equal(t, "failed", matrix.StatusFailed.String())
	require.Equal(t, "poor-condition", matrix.StatusPoorCondition.String())
	require.Equal(t, "Status(9)", matrix.Status(9).String())
}

// TestPseudoInverseRectangular checks the Moore-Penrose inverse of tall and wide matrices.
func TestPseudoInverseRectangular(t *testing.T) {
	t.Parallel()

	tall := mat.NewDense(3, 2, []float64{1, 0, 0, 1, 1, 1})
	inv, status := matrix.PseudoInverse(tall, quiet())
	require.Equal(t, matrix.StatusOK, status)
	r, c := inv.Dims()
	require.Equal(t, []int{2, 3}, []int{r, c})
	want := mat.NewDense(2, 3, []float64{2.0 / 3, -1.0 / 3, 1.0 / 3, -1.0 / 3, 2.0 / 3, 1.0 / 3})
	require.True(t, mat.EqualApprox(want, inv, 1e-12))

	var left mat.Dense
	left.Mul(inv, tall)
	require.Less(t, matrix.IdentityDeviation(&left), 1e-12)

	wide := mat.DenseCopyOf(tall.T())
	winv, status := matrix.PseudoInverse(wide, quiet())
	require.True(t, status.Usable())
	var right mat.Dense
	right.Mul(wide, winv)
	require.Less(t, matrix.IdentityDeviation(&right), 1e-12)

	sq := mat.NewDense(2, 2, []float64{4, 7, 2, 6})
	a, _ := matrix.Invert(sq, quiet())
	b, _ := matrix.PseudoInverse(sq, quiet())
	require.True(t, mat.EqualApprox(a, b, 1e-15))

	nilInv, status := matrix.PseudoInverse(nil, quiet())
	require.Equal(t, matrix.StatusFailed, status)
	require.Nil(t, nilInv)
}
