package polyfit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tangent-ml/tangent/internal/tensor"
)

// TestKappaScalarValues tests the arc-cosine kernels at known points.
func TestKappaScalarValues(t *testing.T) {
	assert.InDelta(t, 1.0, KappaScalar0(1), 1e-12)
	assert.InDelta(t, 0.5, KappaScalar0(0), 1e-12)
	assert.InDelta(t, 0.0, KappaScalar0(-1), 1e-12)
	assert.InDelta(t, 2.0/3.0, KappaScalar0(0.5), 1e-12)

	assert.InDelta(t, 1.0, KappaScalar1(1), 1e-12)
	assert.InDelta(t, 1/math.Pi, KappaScalar1(0), 1e-12)
	assert.InDelta(t, 0.0, KappaScalar1(-1), 1e-12)

	// Out-of-range cosines from rounding are clipped, not NaN.
	assert.False(t, math.IsNaN(KappaScalar1(1+1e-9)))
	assert.InDelta(t, 1.0, KappaScalar1(1+1e-9), 1e-6)
}

// TestKappaMatrices tests the matrix forms on a simple configuration.
func TestKappaMatrices(t *testing.T) {
	// Rows: 2·e1 and 3·e2 — orthogonal with distinct norms.
	x, err := tensor.FromSlice([]float64{2, 0, 0, 3}, tensor.Shape{2, 2})
	require.NoError(t, err)

	k0 := Kappa0(x)
	assert.InDelta(t, 1.0, k0.At(0, 0), 1e-12)
	assert.InDelta(t, 0.5, k0.At(0, 1), 1e-12)

	k1 := Kappa1(x)
	// Diagonal: ‖x_i‖²·kappa1(1) = ‖x_i‖².
	assert.InDelta(t, 4.0, k1.At(0, 0), 1e-12)
	assert.InDelta(t, 9.0, k1.At(1, 1), 1e-12)
	// Off-diagonal: ‖x_0‖·‖x_1‖·kappa1(0).
	assert.InDelta(t, 6.0/math.Pi, k1.At(0, 1), 1e-12)
	assert.InDelta(t, k1.At(0, 1), k1.At(1, 0), 1e-12)
}

// TestNNLSRecoversNonNegative tests exact recovery when the unconstrained
// least-squares solution is already non-negative.
func TestNNLSRecoversNonNegative(t *testing.T) {
	a, err := tensor.FromSlice([]float64{
		1, 0, 0,
		0, 2, 0,
		0, 0, 3,
		1, 1, 1,
	}, tensor.Shape{4, 3})
	require.NoError(t, err)
	want := []float64{0.5, 1.5, 0}
	b := make([]float64, 4)
	for i := 0; i < 4; i++ {
		for j := 0; j < 3; j++ {
			b[i] += a.At(i, j) * want[j]
		}
	}

	got, err := nnls(a, b)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for j := range want {
		assert.InDelta(t, want[j], got[j], 1e-8)
	}
}

// TestNNLSClampsNegative tests that a target pulling a coefficient negative
// lands on the constraint boundary instead.
func TestNNLSClampsNegative(t *testing.T) {
	a, err := tensor.FromSlice([]float64{
		1, 0,
		0, 1,
	}, tensor.Shape{2, 2})
	require.NoError(t, err)
	got, err := nnls(a, []float64{1, -1})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got[0], 1e-8)
	assert.InDelta(t, 0.0, got[1], 1e-10)
}

// TestKappaCoeffsFitQuality tests that the fitted polynomials track the
// kernels on the weighted grid.
func TestKappaCoeffsFitQuality(t *testing.T) {
	for _, tc := range []struct {
		name   string
		kernel func(float64) float64
		fit    func(degree, depth int) ([]float64, error)
	}{
		{"kappa0", KappaScalar0, Kappa0Coeffs},
		{"kappa1", KappaScalar1, Kappa1Coeffs},
	} {
		t.Run(tc.name, func(t *testing.T) {
			coeffs, err := tc.fit(8, 0)
			require.NoError(t, err)
			require.Len(t, coeffs, 9)
			for _, c := range coeffs {
				assert.GreaterOrEqual(t, c, 0.0)
			}

			ts, weights := fitGrid(0)
			var wse, wsum float64
			for i, x := range ts {
				m, _ := tensor.FromSlice([]float64{x}, tensor.Shape{1, 1})
				got := PolyEval(m, coeffs).At(0, 0)
				d := got - tc.kernel(x)
				wse += weights[i] * d * d
				wsum += weights[i]
			}
			rmse := math.Sqrt(wse / wsum)
			assert.Less(t, rmse, 0.05, "weighted rmse too large")
		})
	}
}

// TestReluNTKCoeffsEndpoint tests the whole-stack fit at perfect correlation,
// where the recursion has the closed values k_L(1) = 1 and theta_L(1) = L+1.
func TestReluNTKCoeffsEndpoint(t *testing.T) {
	const numLayers = 2
	nngp, ntk, err := ReluNTKCoeffs(8, numLayers)
	require.NoError(t, err)

	one, _ := tensor.FromSlice([]float64{1}, tensor.Shape{1, 1})
	assert.InDelta(t, 1.0, PolyEval(one, nngp).At(0, 0), 0.1)
	assert.InDelta(t, float64(numLayers+1), PolyEval(one, ntk).At(0, 0), 0.3)

	_, _, err = ReluNTKCoeffs(8, 0)
	assert.Error(t, err)
}

// TestPolyEvalHorner tests the coefficient ordering convention.
func TestPolyEvalHorner(t *testing.T) {
	m, err := tensor.FromSlice([]float64{2, -1}, tensor.Shape{1, 2})
	require.NoError(t, err)
	// 1 + 2t + 3t².
	out := PolyEval(m, []float64{1, 2, 3})
	assert.InDelta(t, 17.0, out.At(0, 0), 1e-12)
	assert.InDelta(t, 2.0, out.At(0, 1), 1e-12)
}
