// Copyright 2025 Tangent ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package features

import (
	"fmt"
	"math"

	"github.com/tangent-ml/tangent/internal/polyfit"
	"github.com/tangent-ml/tangent/internal/rng"
	"github.com/tangent-ml/tangent/internal/sketch"
	"github.com/tangent-ml/tangent/internal/tensor"
)

type reluNTKParams struct {
	ps         *sketch.PolyTensorSketch
	nngpCoeffs []float64
	ntkCoeffs  []float64
	scale      float64
}

func (*reluNTKParams) isParams() {}

// ReluNTKFeatures fuses an entire ReLU MLP stack into one layer: instead of
// alternating DenseFeatures and ReluFeatures numLayers times, it fits
// polynomial coefficients for the whole stack's NNGP and NTK kernels at
// once, sketches the input a single time, and expands that sketch with each
// coefficient set. Output features are real (real/imaginary concatenation of
// the reduced sketch), so the layer composes with kernel extraction
// directly.
//
// The layer consumes the raw normalized input and must therefore be the
// first (and in practice only) layer of its pipeline.
func ReluNTKFeatures(numLayers, polyDegree, polySketchDim int, wStd float64) Layer {
	if numLayers < 1 {
		panic(fmt.Sprintf("relu ntk features: need at least one layer, got %d", numLayers))
	}

	initFn := func(key rng.Key, in FeatureShapes) (FeatureShapes, Params, error) {
		if in.Path != "" {
			return FeatureShapes{}, nil, fmt.Errorf("must be the first layer of a pipeline, found preceding layers %q", in.Path)
		}
		ps, err := sketch.NewPolyTensorSketch(key, in.NNGP.Cols(), polySketchDim, polyDegree)
		if err != nil {
			return FeatureShapes{}, nil, err
		}
		nngpCoeffs, ntkCoeffs, err := polyfit.ReluNTKCoeffs(polyDegree, numLayers)
		if err != nil {
			return FeatureShapes{}, nil, err
		}
		// Depth-dependent kernel scale: W² per dense layer and the ReLU half
		// factor per nonlinearity, folded into norms as its square root.
		scale := math.Pow(wStd, float64(numLayers+1)) * math.Pow(2, -float64(numLayers)/2)
		out := FeatureShapes{
			NNGP: in.NNGP.WithCols(polySketchDim),
			NTK:  in.NNGP.WithCols(polySketchDim),
			Path: "N",
		}
		return out, &reluNTKParams{ps: ps, nngpCoeffs: nngpCoeffs, ntkCoeffs: ntkCoeffs, scale: scale}, nil
	}

	applyFn := func(f *Features, p Params) (*Features, error) {
		rp, ok := p.(*reluNTKParams)
		if !ok {
			return nil, wrongParams("relu ntk features", p)
		}
		if f.HasNTK() {
			return nil, fmt.Errorf("must be the first layer of a pipeline")
		}
		leading := f.NNGP.Shape().Leading()

		feats, err := rp.ps.Sketch(f.NNGP)
		if err != nil {
			return nil, err
		}
		nngpExp, err := rp.ps.ExpandFeats(feats, rp.nngpCoeffs)
		if err != nil {
			return nil, err
		}
		ntkExp, err := rp.ps.ExpandFeats(feats, rp.ntkCoeffs)
		if err != nil {
			return nil, err
		}
		nngpC, err := rp.ps.StandardSRHT(nngpExp)
		if err != nil {
			return nil, err
		}
		ntkC, err := rp.ps.StandardSRHT(ntkExp)
		if err != nil {
			return nil, err
		}

		var nngp, ntk tensor.Matrix = nngpC.RealImagConcat(), ntkC.RealImagConcat()
		if nngp, err = reshapeTo(nngp, leading); err != nil {
			return nil, err
		}
		if ntk, err = reshapeTo(ntk, leading); err != nil {
			return nil, err
		}
		return f.replace(nngp, ntk, f.Norms.Scale(rp.scale)), nil
	}

	return Layer{Name: "ReluNTKFeatures", init: initFn, apply: applyFn}
}
