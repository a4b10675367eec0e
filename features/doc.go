// Copyright 2025 Tangent ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package features approximates NTK and NNGP kernels of deep networks with
// explicit low-dimensional feature maps.
//
// A network topology is declared as an ordered list of layers and composed
// with Serial. Initialization walks the list once with a splittable rng.Key,
// producing static shape metadata and per-layer parameters (random
// projections, sketch operators, polynomial coefficients). The transform
// pass walks the list again over concrete inputs, threading a Features value
// whose two matrices satisfy
//
//	nngpFeat · nngpFeatᵀ ≈ K_nngp
//	ntkFeat  · ntkFeatᵀ  ≈ K_ntk
//
// without ever materializing the O(n²) kernel matrices (except in the
// explicitly quadratic Poly/Exact debugging methods).
//
// Example:
//
//	net := features.Serial(
//	    features.DenseFeatures(512, 1.0, 0),
//	    features.ReluFeatures(features.ReluConfig{Method: features.MethodRF,
//	        FeatureDim0: 2048, FeatureDim1: 2048, SketchDim: 4096}),
//	    features.DenseFeatures(1, 1.0, 0),
//	)
//	_, params, err := net.InitShape(rng.NewKey(1), tensor.Shape{6, 5})
//	feats, err := net.ApplyInput(x, params)
package features
