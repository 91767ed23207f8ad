// SPDX-License-Identifier: MIT

package matrix

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// IdentityDeviation returns max|p(i,j) − δij| over all elements of the square
// matrix p. Applied to M·M⁻¹ it measures how far an inverse is from exact.
// Complexity: O(n²).
func IdentityDeviation(p mat.Matrix) float64 {
	r, c := p.Dims()
	var (
		i, j  int
		d, dm float64
	)
	for i = 0; i < r; i++ {
		for j = 0; j < c; j++ {
			if i == j {
				d = math.Abs(p.At(i, j) - 1)
			} else {
				d = math.Abs(p.At(i, j))
			}
			if d > dm {
				dm = d
			}
		}
	}

	return dm
}

// QuadraticForm computes xᵀ·W·x for a square W of order len(x).
// Complexity: O(n²).
func QuadraticForm(x []float64, w mat.Matrix) (float64, error) {
	if err := ValidateSquare(w); err != nil {
		return 0, matrixErrorf(opQuadratic, err)
	}
	n, _ := w.Dims()
	if err := ValidateVecLen(x, n); err != nil {
		return 0, matrixErrorf(opQuadratic, err)
	}
	xv := mat.NewVecDense(n, append([]float64(nil), x...))

	return mat.Inner(xv, w, xv), nil
}

// MulVec returns a·x as a fresh slice.
// Complexity: O(r*c).
func MulVec(a mat.Matrix, x []float64) ([]float64, error) {
	if err := ValidateNotNil(a); err != nil {
		return nil, matrixErrorf(opMulVec, err)
	}
	r, c := a.Dims()
	if err := ValidateVecLen(x, c); err != nil {
		return nil, matrixErrorf(opMulVec, err)
	}
	out := mat.NewVecDense(r, nil)
	out.MulVec(a, mat.NewVecDense(c, append([]float64(nil), x...)))

	return out.RawVector().Data, nil
}

// CopyBlock copies the top-left n×n block of src into dst.
// Both operands must be at least n×n.
func CopyBlock(dst *mat.Dense, src mat.Matrix, n int) error {
	if dst == nil || src == nil {
		return matrixErrorf(opBlock, ErrNilMatrix)
	}
	dr, dc := dst.Dims()
	sr, sc := src.Dims()
	if n > dr || n > dc || n > sr || n > sc {
		return matrixErrorf(opBlock, ErrDimensionMismatch)
	}
	var i, j int
	for i = 0; i < n; i++ {
		for j = 0; j < n; j++ {
			dst.Set(i, j, src.At(i, j))
		}
	}

	return nil
}

// Diagonal builds a square matrix with v on its diagonal.
func Diagonal(v []float64) *mat.Dense {
	n := len(v)
	if n == 0 {
		return &mat.Dense{}
	}
	d := mat.NewDense(n, n, nil)
	for i, x := range v {
		d.Set(i, i, x)
	}
	return d
}

// DiagOf extracts the diagonal of a square matrix.
func DiagOf(m mat.Matrix) []float64 {
	r, c := m.Dims()
	n := min(r, c)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = m.At(i, i)
	}
	return out
}
