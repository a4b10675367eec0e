package polyfit

import (
	"fmt"
	"math"

	"github.com/tangent-ml/tangent/internal/tensor"
)

// nnls solves min ‖A·x − b‖₂ subject to x ≥ 0 with the Lawson–Hanson active
// set method. A is (n, p) with p small (polynomial degree + 1), so the inner
// least-squares solves go through normal equations.
func nnls(a *tensor.Dense, b []float64) ([]float64, error) {
	n, p := a.Rows(), a.Cols()
	if len(b) != n {
		return nil, fmt.Errorf("polyfit: nnls rhs length %d does not match %d rows", len(b), n)
	}

	x := make([]float64, p)
	passive := make([]bool, p)
	w := make([]float64, p)
	resid := make([]float64, n)

	tol := 1e-11 * gradScale(a, b)
	maxIter := 3 * p

	for iter := 0; iter < maxIter; iter++ {
		// w = Aᵀ(b - Ax)
		for i := 0; i < n; i++ {
			s := b[i]
			for j := 0; j < p; j++ {
				s -= a.At(i, j) * x[j]
			}
			resid[i] = s
		}
		for j := 0; j < p; j++ {
			var s float64
			for i := 0; i < n; i++ {
				s += a.At(i, j) * resid[i]
			}
			w[j] = s
		}

		best, bestVal := -1, tol
		for j := 0; j < p; j++ {
			if !passive[j] && w[j] > bestVal {
				best, bestVal = j, w[j]
			}
		}
		if best < 0 {
			return x, nil
		}
		passive[best] = true

		for {
			z, err := solvePassive(a, b, passive)
			if err != nil {
				return nil, err
			}
			minZ := math.Inf(1)
			for j := 0; j < p; j++ {
				if passive[j] && z[j] < minZ {
					minZ = z[j]
				}
			}
			if minZ > 0 {
				copy(x, z)
				break
			}
			// Step back along x -> z until the first coordinate hits zero,
			// then drop it from the passive set.
			alpha := math.Inf(1)
			for j := 0; j < p; j++ {
				if passive[j] && z[j] <= 0 {
					if r := x[j] / (x[j] - z[j]); r < alpha {
						alpha = r
					}
				}
			}
			for j := 0; j < p; j++ {
				if passive[j] {
					x[j] += alpha * (z[j] - x[j])
					if x[j] <= 1e-14 {
						x[j] = 0
						passive[j] = false
					}
				}
			}
		}
	}
	return x, nil
}

// solvePassive solves the unconstrained least squares restricted to the
// passive columns, returning zeros elsewhere.
func solvePassive(a *tensor.Dense, b []float64, passive []bool) ([]float64, error) {
	n, p := a.Rows(), a.Cols()
	cols := make([]int, 0, p)
	for j := 0; j < p; j++ {
		if passive[j] {
			cols = append(cols, j)
		}
	}
	q := len(cols)
	ata := tensor.NewDense(tensor.Shape{q, q})
	atb := make([]float64, q)
	for u := 0; u < q; u++ {
		for v := u; v < q; v++ {
			var s float64
			for i := 0; i < n; i++ {
				s += a.At(i, cols[u]) * a.At(i, cols[v])
			}
			ata.Set(u, v, s)
			ata.Set(v, u, s)
		}
		var s float64
		for i := 0; i < n; i++ {
			s += a.At(i, cols[u]) * b[i]
		}
		atb[u] = s
	}

	l, err := tensor.Cholesky(ata)
	if err != nil {
		return nil, fmt.Errorf("polyfit: nnls normal equations: %w", err)
	}
	y := forwardSolve(l, atb)
	z := backwardSolveT(l, y)

	out := make([]float64, p)
	for u, j := range cols {
		out[j] = z[u]
	}
	return out, nil
}

func forwardSolve(l *tensor.Dense, b []float64) []float64 {
	n := l.Rows()
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		s := b[i]
		for j := 0; j < i; j++ {
			s -= l.At(i, j) * y[j]
		}
		y[i] = s / l.At(i, i)
	}
	return y
}

func backwardSolveT(l *tensor.Dense, y []float64) []float64 {
	n := l.Rows()
	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		s := y[i]
		for j := i + 1; j < n; j++ {
			s -= l.At(j, i) * x[j]
		}
		x[i] = s / l.At(i, i)
	}
	return x
}

func gradScale(a *tensor.Dense, b []float64) float64 {
	var s float64
	for _, v := range a.Data() {
		s += v * v
	}
	var sb float64
	for _, v := range b {
		sb += v * v
	}
	return math.Sqrt(s) * math.Sqrt(sb)
}
