package polyfit

import (
	"fmt"
	"math"

	"github.com/tangent-ml/tangent/internal/tensor"
)

// gridSize is the number of Chebyshev fitting nodes on [-1, 1].
const gridSize = 256

// Kappa0Coeffs fits non-negative polynomial coefficients approximating the
// order-0 arc-cosine kernel. depth is the number of nonlinearities preceding
// the layer being fit; deeper layers see correlations concentrated near 1,
// so the fit weights shift accordingly.
func Kappa0Coeffs(degree, depth int) ([]float64, error) {
	return fitKernel(KappaScalar0, degree, depth)
}

// Kappa1Coeffs fits non-negative polynomial coefficients approximating the
// order-1 arc-cosine kernel.
func Kappa1Coeffs(degree, depth int) ([]float64, error) {
	return fitKernel(KappaScalar1, degree, depth)
}

// ReluNTKCoeffs produces paired coefficient vectors approximating the NNGP
// and NTK kernels of an entire ReLU MLP with numLayers nonlinearities, as
// functions of the input cosine. The caller applies the depth-dependent
// 2^(-L/2)·W^(L+1) scale separately.
func ReluNTKCoeffs(degree, numLayers int) (nngp, ntk []float64, err error) {
	if numLayers < 1 {
		return nil, nil, fmt.Errorf("polyfit: relu ntk coefficients need at least one layer, got %d", numLayers)
	}
	ts, weights := fitGrid(numLayers)
	nngpVals := make([]float64, len(ts))
	ntkVals := make([]float64, len(ts))
	for i, t := range ts {
		k, theta := t, t
		for l := 0; l < numLayers; l++ {
			kNew := KappaScalar1(k)
			theta = kNew + theta*KappaScalar0(k)
			k = kNew
		}
		nngpVals[i] = k
		ntkVals[i] = theta
	}
	if nngp, err = fitValues(ts, nngpVals, weights, degree); err != nil {
		return nil, nil, err
	}
	if ntk, err = fitValues(ts, ntkVals, weights, degree); err != nil {
		return nil, nil, err
	}
	return nngp, ntk, nil
}

// PolyEval evaluates the polynomial with the given coefficients (coeffs[i]
// weighting t^i) elementwise on a matrix.
func PolyEval(m *tensor.Dense, coeffs []float64) *tensor.Dense {
	return m.Apply(func(t float64) float64 {
		// Horner evaluation, highest degree first.
		var v float64
		for i := len(coeffs) - 1; i >= 0; i-- {
			v = v*t + coeffs[i]
		}
		return v
	})
}

func fitKernel(kernel func(float64) float64, degree, depth int) ([]float64, error) {
	if degree < 1 {
		return nil, fmt.Errorf("polyfit: fit degree must be >= 1, got %d", degree)
	}
	ts, weights := fitGrid(depth)
	vals := make([]float64, len(ts))
	for i, t := range ts {
		vals[i] = kernel(t)
	}
	return fitValues(ts, vals, weights, degree)
}

// fitGrid returns Chebyshev nodes on [-1, 1] and depth-dependent weights
// ((1+t)/2)^(depth/2).
func fitGrid(depth int) (ts, weights []float64) {
	ts = make([]float64, gridSize)
	weights = make([]float64, gridSize)
	exp := float64(depth) / 2
	for j := 0; j < gridSize; j++ {
		t := math.Cos(math.Pi * (float64(j) + 0.5) / gridSize)
		ts[j] = t
		weights[j] = math.Pow((1+t)/2, exp)
	}
	return ts, weights
}

func fitValues(ts, vals, weights []float64, degree int) ([]float64, error) {
	n := len(ts)
	a := tensor.NewDense(tensor.Shape{n, degree + 1})
	b := make([]float64, n)
	for i := 0; i < n; i++ {
		sw := math.Sqrt(weights[i])
		pow := 1.0
		for j := 0; j <= degree; j++ {
			a.Set(i, j, sw*pow)
			pow *= ts[i]
		}
		b[i] = sw * vals[i]
	}
	coeffs, err := nnls(a, b)
	if err != nil {
		return nil, fmt.Errorf("polyfit: coefficient fit failed: %w", err)
	}
	return coeffs, nil
}
