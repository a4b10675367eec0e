// Copyright 2025 Tangent ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tangent-ml/tangent/internal/exact"
	"github.com/tangent-ml/tangent/internal/rng"
	"github.com/tangent-ml/tangent/internal/tensor"
)

// mlp builds depth Dense+Relu blocks followed by a width-1 readout, the
// architecture MLPKernels computes closed-form kernels for.
func mlp(depth int, wStd float64, cfg ReluConfig) Layer {
	layers := make([]Layer, 0, 2*depth+1)
	for i := 0; i < depth; i++ {
		blockCfg := cfg
		blockCfg.TopLayer = i == depth-1
		layers = append(layers, DenseFeatures(512, wStd, 0), ReluFeatures(blockCfg))
	}
	return Serial(append(layers, DenseFeatures(1, wStd, 0))...)
}

func featureGram(t *testing.T, m tensor.Matrix) *tensor.Dense {
	t.Helper()
	d, err := tensor.AsDense(m, "feature gram")
	require.NoError(t, err)
	flat, err := d.Reshape(tensor.Shape{d.Rows(), d.Cols()})
	require.NoError(t, err)
	return flat.Gram()
}

func relFrobError(a, b *tensor.Dense) float64 {
	var num, den float64
	for i := range b.Data() {
		d := a.Data()[i] - b.Data()[i]
		num += d * d
		den += b.Data()[i] * b.Data()[i]
	}
	return math.Sqrt(num / den)
}

// kernelErrors runs a network once and returns the relative Frobenius errors
// of its NNGP and NTK Gram matrices against the closed-form kernels.
func kernelErrors(t *testing.T, net Layer, x *tensor.Dense, depth int, wStd float64, key rng.Key) (float64, float64) {
	t.Helper()
	nngpExact, ntkExact, err := exact.MLPKernels(x, depth, wStd)
	require.NoError(t, err)

	_, params, err := net.InitShape(key, x.Shape())
	require.NoError(t, err)
	f, err := net.ApplyInput(x, params)
	require.NoError(t, err)

	return relFrobError(featureGram(t, f.NNGP), nngpExact),
		relFrobError(featureGram(t, f.NTK), ntkExact)
}

// TestExactMethodMatchesClosedForm tests that the exact Cholesky path
// reproduces the closed-form kernels to rounding error.
func TestExactMethodMatchesClosedForm(t *testing.T) {
	const depth = 3
	wStd := math.Sqrt2
	x := randomInput(t, rng.NewKey(21), tensor.Shape{6, 5})

	net := mlp(depth, wStd, ReluConfig{Method: MethodExact})
	nngpErr, ntkErr := kernelErrors(t, net, x, depth, wStd, rng.NewKey(22))
	assert.Less(t, nngpErr, 1e-5)
	assert.Less(t, ntkErr, 1e-5)
}

// TestPolyMethodApproximatesClosedForm tests the sketch-free polynomial path.
func TestPolyMethodApproximatesClosedForm(t *testing.T) {
	const depth = 2
	wStd := math.Sqrt2
	x := randomInput(t, rng.NewKey(23), tensor.Shape{6, 5})

	net := mlp(depth, wStd, ReluConfig{Method: MethodPoly, PolyDegree: 12})
	nngpErr, ntkErr := kernelErrors(t, net, x, depth, wStd, rng.NewKey(24))
	assert.Less(t, nngpErr, 0.1)
	assert.Less(t, ntkErr, 0.1)
}

// TestSketchedMethodsConverge tests that each sketched method's kernel error
// is bounded and shrinks as the feature dimensions grow.
func TestSketchedMethodsConverge(t *testing.T) {
	const (
		depth  = 2
		trials = 4
	)
	wStd := math.Sqrt2
	x := randomInput(t, rng.NewKey(25), tensor.Shape{4, 8})

	cfgAt := func(m Method, dim int) ReluConfig {
		return ReluConfig{
			Method:        m,
			FeatureDim0:   dim,
			FeatureDim1:   dim,
			SketchDim:     dim,
			PolyDegree:    8,
			PolySketchDim: dim,
		}
	}

	for _, method := range []Method{MethodRF, MethodPS, MethodPSRF} {
		t.Run(method.String(), func(t *testing.T) {
			avgAt := func(dim int) (float64, float64) {
				var nngpErr, ntkErr float64
				keys := rng.NewKey(uint64(26 + method)).Split(trials)
				for _, key := range keys {
					net := mlp(depth, wStd, cfgAt(method, dim))
					ne, te := kernelErrors(t, net, x, depth, wStd, key)
					nngpErr += ne
					ntkErr += te
				}
				return nngpErr / trials, ntkErr / trials
			}

			coarseNNGP, coarseNTK := avgAt(64)
			fineNNGP, fineNTK := avgAt(1024)

			assert.Less(t, fineNNGP, 0.5)
			assert.Less(t, fineNTK, 0.5)
			assert.Less(t, fineNNGP, coarseNNGP+0.1)
			assert.Less(t, fineNTK, coarseNTK+0.1)
		})
	}
}

// TestTopLayerRealConversion tests the complex-to-real handling of the
// sketched polynomial methods.
func TestTopLayerRealConversion(t *testing.T) {
	x := randomInput(t, rng.NewKey(31), tensor.Shape{3, 8})
	cfg := ReluConfig{Method: MethodPS, SketchDim: 64, PolySketchDim: 64, PolyDegree: 4}

	// Without the top-layer flag the embeddings stay complex.
	mid := Serial(DenseFeatures(8, 1, 0), ReluFeatures(cfg))
	_, params, err := mid.InitShape(rng.NewKey(32), x.Shape())
	require.NoError(t, err)
	f, err := mid.ApplyInput(x, params)
	require.NoError(t, err)
	assert.True(t, f.NNGP.IsComplex())
	assert.True(t, f.NTK.IsComplex())
	assert.Equal(t, 32, f.NNGP.Cols())

	// With it, they convert to real with doubled columns.
	cfg.TopLayer = true
	top := Serial(DenseFeatures(8, 1, 0), ReluFeatures(cfg))
	_, params, err = top.InitShape(rng.NewKey(32), x.Shape())
	require.NoError(t, err)
	f, err = top.ApplyInput(x, params)
	require.NoError(t, err)
	assert.False(t, f.NNGP.IsComplex())
	assert.False(t, f.NTK.IsComplex())
	assert.Equal(t, 64, f.NNGP.Cols())
	assert.Equal(t, 64, f.NTK.Cols())
}

// TestDeclaredShapesMatchOutputs tests the initializer's shape contract for
// every method on a full pipeline with a real top layer.
func TestDeclaredShapesMatchOutputs(t *testing.T) {
	const depth = 2
	x := randomInput(t, rng.NewKey(33), tensor.Shape{4, 8})

	for _, method := range []Method{MethodRF, MethodPS, MethodPSRF, MethodPoly, MethodExact} {
		t.Run(method.String(), func(t *testing.T) {
			net := mlp(depth, 1, ReluConfig{
				Method:        method,
				FeatureDim0:   64,
				FeatureDim1:   64,
				SketchDim:     64,
				PolyDegree:    4,
				PolySketchDim: 64,
			})
			shapes, params, err := net.InitShape(rng.NewKey(34), x.Shape())
			require.NoError(t, err)
			f, err := net.ApplyInput(x, params)
			require.NoError(t, err)

			assert.Equal(t, shapes.NNGP, f.NNGP.Shape())
			assert.Equal(t, shapes.NTK, f.NTK.Shape())
			assert.Equal(t, "DRDRD", shapes.Path)
		})
	}
}

// TestReluMethodsRequireRealInput tests that the real-only methods reject
// complex upstream features instead of silently truncating them.
func TestReluMethodsRequireRealInput(t *testing.T) {
	x := randomInput(t, rng.NewKey(35), tensor.Shape{3, 8})
	psCfg := ReluConfig{Method: MethodPS, SketchDim: 64, PolySketchDim: 64, PolyDegree: 4}

	for _, method := range []Method{MethodRF, MethodPoly, MethodExact} {
		t.Run(method.String(), func(t *testing.T) {
			net := Serial(
				DenseFeatures(8, 1, 0), ReluFeatures(psCfg),
				DenseFeatures(8, 1, 0),
				ReluFeatures(ReluConfig{Method: method, FeatureDim0: 64, FeatureDim1: 64, SketchDim: 64}),
			)
			_, params, err := net.InitShape(rng.NewKey(36), x.Shape())
			require.NoError(t, err)
			_, err = net.ApplyInput(x, params)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "complex")
		})
	}
}

// TestReluNTKFeaturesMatchesClosedForm tests the fused whole-stack layer
// against the exact kernels.
func TestReluNTKFeaturesMatchesClosedForm(t *testing.T) {
	const (
		numLayers = 2
		trials    = 4
	)
	wStd := math.Sqrt2
	x := randomInput(t, rng.NewKey(41), tensor.Shape{4, 8})
	nngpExact, ntkExact, err := exact.MLPKernels(x, numLayers, wStd)
	require.NoError(t, err)

	var nngpErr, ntkErr float64
	for _, key := range rng.NewKey(42).Split(trials) {
		net := Serial(ReluNTKFeatures(numLayers, 8, 2048, wStd))
		shapes, params, err := net.InitShape(key, x.Shape())
		require.NoError(t, err)
		assert.Equal(t, "N", shapes.Path)

		f, err := net.ApplyInput(x, params)
		require.NoError(t, err)
		nngpErr += relFrobError(featureGram(t, f.NNGP), nngpExact)
		ntkErr += relFrobError(featureGram(t, f.NTK), ntkExact)
	}
	assert.Less(t, nngpErr/trials, 0.5)
	assert.Less(t, ntkErr/trials, 0.5)
}

// TestReluNTKFeaturesMustBeFirst tests the first-layer requirement.
func TestReluNTKFeaturesMustBeFirst(t *testing.T) {
	x := randomInput(t, rng.NewKey(43), tensor.Shape{3, 8})
	net := Serial(DenseFeatures(8, 1, 0), ReluNTKFeatures(1, 8, 64, 1))
	_, _, err := net.InitShape(rng.NewKey(44), x.Shape())
	assert.Error(t, err)
}
