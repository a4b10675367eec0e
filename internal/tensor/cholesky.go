package tensor

import (
	"fmt"
	"math"
)

// Cholesky computes the lower-triangular factor L of a symmetric positive
// semidefinite matrix, A = L·Lᵀ.
//
// Kernel matrices produced by polynomial approximation can carry small
// negative eigenvalues from rounding. The factorization is attempted
// jitter-free first; on failure a relative diagonal jitter is added, starting
// at 1e-12·mean(diag) and escalating by 100x up to 1e-6·mean(diag). If the
// matrix still fails to factor it is reported as not positive semidefinite.
func Cholesky(a *Dense) (*Dense, error) {
	n := a.Rows()
	if a.Cols() != n {
		return nil, fmt.Errorf("tensor: cholesky requires a square matrix, got (%d,%d)", n, a.Cols())
	}

	var meanDiag float64
	for i := 0; i < n; i++ {
		meanDiag += a.At(i, i)
	}
	meanDiag /= float64(n)
	if meanDiag <= 0 {
		meanDiag = 1
	}

	if l, ok := tryCholesky(a, 0); ok {
		return l, nil
	}
	for eps := 1e-12; eps <= 1e-6; eps *= 100 {
		if l, ok := tryCholesky(a, eps*meanDiag); ok {
			return l, nil
		}
	}
	return nil, fmt.Errorf("tensor: cholesky failed: matrix of size %d is not positive semidefinite within jitter tolerance", n)
}

func tryCholesky(a *Dense, jitter float64) (*Dense, bool) {
	n := a.Rows()
	l := NewDense(Shape{n, n})
	for j := 0; j < n; j++ {
		var sum float64
		for p := 0; p < j; p++ {
			v := l.At(j, p)
			sum += v * v
		}
		d := a.At(j, j) + jitter - sum
		if d <= 0 {
			return nil, false
		}
		ljj := math.Sqrt(d)
		l.Set(j, j, ljj)
		for i := j + 1; i < n; i++ {
			var s float64
			for p := 0; p < j; p++ {
				s += l.At(i, p) * l.At(j, p)
			}
			l.Set(i, j, (a.At(i, j)-s)/ljj)
		}
	}
	return l, true
}
