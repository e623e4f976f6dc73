// Package linalg implements the small dense matrix operations needed by the
// regression engine: transpose, multiply and Gauss–Jordan inversion.
package linalg

import (
	"fmt"
	"math"
)

// DefaultPivotTolerance is the smallest pivot magnitude accepted by Invert.
const DefaultPivotTolerance = 1e-10

// Matrix is a dense row-major matrix.
type Matrix [][]float64

// New returns a zeroed rows×cols matrix.
func New(rows, cols int) Matrix {
	m := make(Matrix, rows)
	for i := range m {
		m[i] = make([]float64, cols)
	}
	return m
}

// Identity returns the n×n identity matrix.
func Identity(n int) Matrix {
	m := New(n, n)
	for i := 0; i < n; i++ {
		m[i][i] = 1
	}
	return m
}

// Column builds an n×1 matrix from v.
func Column(v []float64) Matrix {
	m := New(len(v), 1)
	for i, x := range v {
		m[i][0] = x
	}
	return m
}

// Dims returns the row and column counts. A ragged matrix reports ok=false.
func (m Matrix) Dims() (rows, cols int, ok bool) {
	rows = len(m)
	if rows == 0 {
		return 0, 0, true
	}
	cols = len(m[0])
	for _, r := range m[1:] {
		if len(r) != cols {
			return rows, cols, false
		}
	}
	return rows, cols, true
}

// Clone returns a deep copy of m.
func (m Matrix) Clone() Matrix {
	out := make(Matrix, len(m))
	for i, r := range m {
		out[i] = append([]float64(nil), r...)
	}
	return out
}

// Transpose returns Aᵗ.
func Transpose(a Matrix) Matrix {
	rows, cols, _ := a.Dims()
	out := New(cols, rows)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out[j][i] = a[i][j]
		}
	}
	return out
}

// Multiply returns A·B.
func Multiply(a, b Matrix) (Matrix, error) {
	ar, ac, okA := a.Dims()
	br, bc, okB := b.Dims()
	if !okA || !okB {
		return nil, fmt.Errorf("%w: ragged operand", ErrDimensionMismatch)
	}
	if ac != br {
		return nil, fmt.Errorf("%w: %dx%d · %dx%d", ErrDimensionMismatch, ar, ac, br, bc)
	}
	out := New(ar, bc)
	for i := 0; i < ar; i++ {
		for k := 0; k < ac; k++ {
			aik := a[i][k]
			if aik == 0 {
				continue
			}
			for j := 0; j < bc; j++ {
				out[i][j] += aik * b[k][j]
			}
		}
	}
	return out, nil
}

// Option configures Invert.
type Option func(*inverter)

type inverter struct {
	tolerance float64
}

// WithPivotTolerance overrides DefaultPivotTolerance.
func WithPivotTolerance(tol float64) Option {
	return func(v *inverter) {
		if tol > 0 {
			v.tolerance = tol
		}
	}
}

// Invert returns A⁻¹ using Gauss–Jordan elimination with partial pivoting on
// the augmented matrix [A | I]. A pivot smaller than the tolerance fails with
// ErrSingularMatrix; it is never replaced by a small constant.
func Invert(a Matrix, opts ...Option) (Matrix, error) {
	v := inverter{tolerance: DefaultPivotTolerance}
	for _, opt := range opts {
		opt(&v)
	}

	n, cols, ok := a.Dims()
	if !ok || n != cols {
		return nil, fmt.Errorf("%w: inverse needs a square matrix, got %dx%d", ErrDimensionMismatch, n, cols)
	}

	work := a.Clone()
	inv := Identity(n)

	for col := 0; col < n; col++ {
		p := col
		for r := col + 1; r < n; r++ {
			if math.Abs(work[r][col]) > math.Abs(work[p][col]) {
				p = r
			}
		}
		pivot := work[p][col]
		if math.Abs(pivot) < v.tolerance || math.IsNaN(pivot) {
			return nil, fmt.Errorf("%w: pivot %.3g in column %d", ErrSingularMatrix, pivot, col)
		}
		work[col], work[p] = work[p], work[col]
		inv[col], inv[p] = inv[p], inv[col]

		for j := 0; j < n; j++ {
			work[col][j] /= pivot
			inv[col][j] /= pivot
		}
		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			f := work[r][col]
			if f == 0 {
				continue
			}
			for j := 0; j < n; j++ {
				work[r][j] -= f * work[col][j]
				inv[r][j] -= f * inv[col][j]
			}
		}
	}
	return inv, nil
}
