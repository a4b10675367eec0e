// Copyright 2025 Tangent ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package features

import (
	"fmt"

	"github.com/tangent-ml/tangent/internal/rng"
	"github.com/tangent-ml/tangent/internal/tensor"
)

// DenseFeatures models an infinite-width fully connected layer.
//
// The layer's effect on the NNGP embedding is pure scaling, deferred into
// Norms to avoid compounding rounding error across layers. Its effect on the
// NTK embedding follows the recursion Θ_l = Σ K + Θ_{l-1}·K̇: the running
// NNGP embedding is concatenated onto the running NTK embedding (or aliases
// it outright for the first dense contribution).
//
// outDim is the declared layer width; it does not change any feature
// dimension (the embeddings track kernels, not activations). Only the "ntk"
// parameterization with zero bias is supported: a nonzero bStd panics at
// construction.
func DenseFeatures(outDim int, wStd, bStd float64) Layer {
	if outDim <= 0 {
		panic(fmt.Sprintf("dense features: invalid output dimension %d", outDim))
	}
	if bStd != 0 {
		panic("dense features: nonzero bias standard deviation is not supported; set bStd to 0")
	}

	initFn := func(key rng.Key, in FeatureShapes) (FeatureShapes, Params, error) {
		newNTK := in.NNGP.WithCols(in.NNGP.Cols() + in.ntkCols())
		return FeatureShapes{
			NNGP: in.NNGP.Clone(),
			NTK:  newNTK,
			Path: in.Path + "D",
		}, noParams{}, nil
	}

	applyFn := func(f *Features, p Params) (*Features, error) {
		if _, ok := p.(noParams); !ok {
			return nil, wrongParams("dense features", p)
		}
		norms := f.Norms.Scale(wStd)

		ntk := f.NTK
		if !f.HasNTK() {
			// First dense layer: the NTK is exactly the NNGP contribution.
			ntk = f.NNGP
		} else {
			var err error
			if ntk, err = tensor.AnyConcatCols(f.NTK, f.NNGP); err != nil {
				return nil, err
			}
		}
		return f.replace(f.NNGP, ntk, norms), nil
	}

	return Layer{Name: "DenseFeatures", init: initFn, apply: applyFn}
}
