// Copyright 2025 Tangent ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package features

import (
	"fmt"

	"github.com/tangent-ml/tangent/internal/rng"
	"github.com/tangent-ml/tangent/internal/tensor"
)

// ConvFeatures models an infinite-width square-filter convolution on NHWC
// feature maps by exact receptive-field enumeration: every pixel's embedding
// becomes the concatenation of its filterSize² neighborhood's channel
// vectors, built separably along each spatial axis, divided by filterSize
// and scaled by wStd. The NTK embedding undergoes the same transform and is
// then concatenated with the new NNGP contribution, per-pixel, mirroring
// DenseFeatures' recursive sum.
//
// outDim is the declared layer width and does not affect feature dimensions.
// Only zero bias is supported.
func ConvFeatures(outDim, filterSize int, wStd, bStd float64) Layer {
	if outDim <= 0 {
		panic(fmt.Sprintf("conv features: invalid output dimension %d", outDim))
	}
	if filterSize <= 0 {
		panic(fmt.Sprintf("conv features: invalid filter size %d", filterSize))
	}
	if bStd != 0 {
		panic("conv features: nonzero bias standard deviation is not supported; set bStd to 0")
	}

	initFn := func(key rng.Key, in FeatureShapes) (FeatureShapes, Params, error) {
		if len(in.NNGP) != 4 {
			return FeatureShapes{}, nil, fmt.Errorf("requires NHWC input, got shape %v", in.NNGP)
		}
		patch := filterSize * filterSize
		return FeatureShapes{
			NNGP: in.NNGP.WithCols(in.NNGP.Cols() * patch),
			NTK:  in.NNGP.WithCols((in.NNGP.Cols() + in.ntkCols()) * patch),
			Path: in.Path + "C",
		}, noParams{}, nil
	}

	applyFn := func(f *Features, p Params) (*Features, error) {
		if _, ok := p.(noParams); !ok {
			return nil, wrongParams("conv features", p)
		}
		nngpConv, err := convPatches(f.NNGP, filterSize)
		if err != nil {
			return nil, err
		}
		nngp := tensor.AnyScale(nngpConv, wStd/float64(filterSize))

		ntk := f.NTK
		if !f.HasNTK() {
			ntk = nngp
		} else {
			ntkConv, err := convPatches(f.NTK, filterSize)
			if err != nil {
				return nil, err
			}
			scaled := tensor.AnyScale(ntkConv, wStd/float64(filterSize))
			if ntk, err = tensor.AnyConcatCols(scaled, nngp); err != nil {
				return nil, err
			}
		}
		return f.replace(nngp, ntk, f.Norms), nil
	}

	return Layer{Name: "ConvFeatures", init: initFn, apply: applyFn}
}
