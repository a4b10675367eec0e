// Copyright 2025 Tangent ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tangent-ml/tangent/internal/rng"
	"github.com/tangent-ml/tangent/internal/tensor"
)

// TestConvAxisWindow tests the sliding-window block layout on a 1×1×4×1 map.
func TestConvAxisWindow(t *testing.T) {
	src := []float64{1, 2, 3, 4}
	out := convAxis(src, 1, 1, 4, 1, 3)
	require.Len(t, out, 12)

	// Blocks per pixel: [self, right neighbor, left neighbor].
	assert.Equal(t, []float64{1, 2, 0}, out[0:3])
	assert.Equal(t, []float64{2, 3, 1}, out[3:6])
	assert.Equal(t, []float64{3, 4, 2}, out[6:9])
	assert.Equal(t, []float64{4, 0, 3}, out[9:12])
}

// TestTransposeHW tests the spatial axis swap.
func TestTransposeHW(t *testing.T) {
	// (1, 2, 3, 1): rows [1 2 3] and [4 5 6].
	src := []float64{1, 2, 3, 4, 5, 6}
	out := transposeHW(src, 1, 2, 3, 1)
	assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, out)

	// Transposing twice is the identity.
	assert.Equal(t, src, transposeHW(out, 1, 3, 2, 1))
}

// TestConvFeaturesShapes tests the receptive-field dimension contract.
func TestConvFeaturesShapes(t *testing.T) {
	x := randomInput(t, rng.NewKey(51), tensor.Shape{2, 4, 4, 3})
	conv := ConvFeatures(16, 3, 1, 0)

	shapes, params, err := conv.InitShape(rng.NewKey(52), x.Shape())
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 4, 4, 27}, shapes.NNGP)
	assert.Equal(t, tensor.Shape{2, 4, 4, 27}, shapes.NTK)
	assert.Equal(t, "C", shapes.Path)

	f, err := conv.ApplyInput(x, params)
	require.NoError(t, err)
	assert.Equal(t, shapes.NNGP, f.NNGP.Shape())
	assert.Equal(t, f.NNGP, f.NTK)
}

// TestConvFeaturesUnitFilter tests that a 1×1 filter is a pure weight
// scaling of the embedding.
func TestConvFeaturesUnitFilter(t *testing.T) {
	const wStd = 1.5
	x := randomInput(t, rng.NewKey(53), tensor.Shape{2, 3, 3, 4})
	conv := ConvFeatures(8, 1, wStd, 0)

	_, params, err := conv.InitShape(rng.NewKey(54), x.Shape())
	require.NoError(t, err)
	f, err := conv.ApplyInput(x, params)
	require.NoError(t, err)

	in, err := FromInput(x)
	require.NoError(t, err)
	want, err := tensor.AsDense(in.NNGP, "test")
	require.NoError(t, err)
	got, err := tensor.AsDense(f.NNGP, "test")
	require.NoError(t, err)
	for i := range want.Data() {
		assert.InDelta(t, wStd*want.Data()[i], got.Data()[i], 1e-12)
	}
}

// TestConvRejectsFlatInput tests the NHWC requirement.
func TestConvRejectsFlatInput(t *testing.T) {
	conv := ConvFeatures(8, 3, 1, 0)
	_, _, err := conv.InitShape(rng.NewKey(55), tensor.Shape{2, 8})
	assert.Error(t, err)
}

// TestAvgPoolConstantMap tests that pooling a spatially constant map with
// full windows preserves the per-pixel values.
func TestAvgPoolConstantMap(t *testing.T) {
	// Same channel vector at every pixel.
	base := []float64{1, -2, 0.5}
	x := tensor.NewDense(tensor.Shape{1, 4, 4, 3})
	for p := 0; p < 16; p++ {
		copy(x.Data()[p*3:(p+1)*3], base)
	}

	pool := AvgPoolFeatures(2, 2, PaddingValid, false)
	shapes, params, err := pool.InitShape(rng.NewKey(56), x.Shape())
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 2, 2, 3}, shapes.NNGP)
	assert.Equal(t, "A", shapes.Path)

	f, err := pool.ApplyInput(x, params)
	require.NoError(t, err)
	got, err := tensor.AsDense(f.NNGP, "test")
	require.NoError(t, err)
	require.Equal(t, tensor.Shape{1, 2, 2, 3}, got.Shape())

	// Norms fold in before pooling, so pixels carry ‖base‖/sqrt(3)·unit.
	scale := 1 / math.Sqrt(3)
	for p := 0; p < 4; p++ {
		for c := 0; c < 3; c++ {
			assert.InDelta(t, base[c]*scale, got.At(p, c), 1e-12)
		}
	}
	// Norms are reset at the new row count.
	assert.Equal(t, 4, f.Norms.Rows())
	for _, v := range f.Norms.Data() {
		assert.Equal(t, 1.0, v)
	}
}

// TestAvgPoolGeometry tests valid/same output extents and stride handling.
func TestAvgPoolGeometry(t *testing.T) {
	outH, pad, err := poolGeometry(5, 3, 2, false)
	require.NoError(t, err)
	assert.Equal(t, 2, outH)
	assert.Equal(t, 0, pad)

	outH, pad, err = poolGeometry(5, 3, 2, true)
	require.NoError(t, err)
	assert.Equal(t, 3, outH)
	assert.Equal(t, 1, pad)

	_, _, err = poolGeometry(2, 3, 1, false)
	assert.Error(t, err)
}

// TestAvgPoolEdgeNormalization tests the boundary divisor policy under SAME
// padding.
func TestAvgPoolEdgeNormalization(t *testing.T) {
	// A 1×1×3×1 constant map, window 2, stride 2, SAME: the second window
	// only covers one in-bounds pixel.
	src := []float64{1, 1, 1}

	pooledFull, outH, outW, err := avgPool2D(src, 1, 1, 3, 1, 2, 2, true, false)
	require.NoError(t, err)
	assert.Equal(t, 1, outH)
	assert.Equal(t, 2, outW)
	assert.InDelta(t, 0.5, pooledFull[0], 1e-12) // 2 of 4 taps in bounds
	assert.InDelta(t, 0.25, pooledFull[1], 1e-12)

	pooledEdges, _, _, err := avgPool2D(src, 1, 1, 3, 1, 2, 2, true, true)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, pooledEdges[0], 1e-12)
	assert.InDelta(t, 1.0, pooledEdges[1], 1e-12)
}

// TestFlattenFeatures tests spatial collapse, scaling, and norm reset.
func TestFlattenFeatures(t *testing.T) {
	x := randomInput(t, rng.NewKey(57), tensor.Shape{2, 2, 2, 3})
	flat := FlattenFeatures(0)

	shapes, params, err := flat.InitShape(rng.NewKey(58), x.Shape())
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 12}, shapes.NNGP)
	assert.Equal(t, "F", shapes.Path)

	f, err := flat.ApplyInput(x, params)
	require.NoError(t, err)
	got, err := tensor.AsDense(f.NNGP, "test")
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 12}, got.Shape())

	// Entries are the folded per-pixel values over sqrt(spatial extent).
	in, err := FromInput(x)
	require.NoError(t, err)
	folded, err := in.renormalized()
	require.NoError(t, err)
	foldedD, err := tensor.AsDense(folded.NNGP, "test")
	require.NoError(t, err)
	for i := range got.Data() {
		assert.InDelta(t, foldedD.Data()[i]/2, got.Data()[i], 1e-12)
	}

	assert.Equal(t, 2, f.Norms.Rows())
	for _, v := range f.Norms.Data() {
		assert.Equal(t, 1.0, v)
	}
}

// TestConvNetPipeline tests a full convolutional pipeline end to end: shapes
// propagate, kernels come out real, and the declared contract holds.
func TestConvNetPipeline(t *testing.T) {
	x := randomInput(t, rng.NewKey(59), tensor.Shape{2, 4, 4, 2})
	net := Serial(
		ConvFeatures(8, 3, math.Sqrt2, 0),
		ReluFeatures(ReluConfig{Method: MethodRF, FeatureDim0: 64, FeatureDim1: 64, SketchDim: 64}),
		AvgPoolFeatures(2, 2, PaddingValid, false),
		FlattenFeatures(0),
		DenseFeatures(1, math.Sqrt2, 0),
	)

	shapes, params, err := net.InitShape(rng.NewKey(60), x.Shape())
	require.NoError(t, err)
	assert.Equal(t, "CRAFD", shapes.Path)

	f, err := net.ApplyInput(x, params)
	require.NoError(t, err)
	assert.Equal(t, shapes.NNGP, f.NNGP.Shape())
	assert.Equal(t, shapes.NTK, f.NTK.Shape())
	assert.False(t, f.NNGP.IsComplex())

	// The NTK Gram must dominate the NNGP Gram on the diagonal: the NTK
	// embedding contains the NNGP contribution as a block.
	nngpGram := featureGram(t, f.NNGP)
	ntkGram := featureGram(t, f.NTK)
	for i := 0; i < 2; i++ {
		assert.GreaterOrEqual(t, ntkGram.At(i, i), nngpGram.At(i, i)-1e-12)
	}
}
