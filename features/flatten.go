// Copyright 2025 Tangent ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package features

import (
	"fmt"
	"math"

	"github.com/tangent-ml/tangent/internal/rng"
	"github.com/tangent-ml/tangent/internal/tensor"
)

// FlattenFeatures collapses all spatial axes into the channel axis, dividing
// by the square root of the collapsed spatial extent. Flattening
// concatenates per-pixel embeddings, so the normalization keeps the
// inner-product-equals-kernel invariant consistent with a global spatial
// average.
//
// Like pooling, flattening changes the row count: accumulated norms are
// folded in first and reset to one per batch element.
func FlattenFeatures(batchAxisOut int) Layer {
	if batchAxisOut != 0 {
		panic(fmt.Sprintf("flatten features: only batch axis 0 is supported, got %d", batchAxisOut))
	}

	initFn := func(key rng.Key, in FeatureShapes) (FeatureShapes, Params, error) {
		out := FeatureShapes{
			NNGP: tensor.Shape{in.NNGP[0], in.NNGP.NumElements() / in.NNGP[0]},
			Path: in.Path + "F",
		}
		if in.NTK != nil {
			out.NTK = tensor.Shape{in.NTK[0], in.NTK.NumElements() / in.NTK[0]}
		}
		return out, noParams{}, nil
	}

	applyFn := func(f *Features, p Params) (*Features, error) {
		if _, ok := p.(noParams); !ok {
			return nil, wrongParams("flatten features", p)
		}
		folded, err := f.renormalized()
		if err != nil {
			return nil, err
		}

		flatten := func(m tensor.Matrix) (tensor.Matrix, error) {
			s := m.Shape()
			batch := s[0]
			spatial := 1
			for _, d := range s[1 : len(s)-1] {
				spatial *= d
			}
			flat, err := tensor.AnyReshape(m, tensor.Shape{batch, s.NumElements() / batch})
			if err != nil {
				return nil, err
			}
			return tensor.AnyScale(flat, 1/math.Sqrt(float64(spatial))), nil
		}

		nngp, err := flatten(folded.NNGP)
		if err != nil {
			return nil, err
		}
		ntk := folded.NTK
		if folded.HasNTK() {
			if ntk, err = flatten(folded.NTK); err != nil {
				return nil, err
			}
		}
		norms := tensor.Ones(tensor.Shape{nngp.Rows(), 1})
		return f.replace(nngp, ntk, norms), nil
	}

	return Layer{Name: "FlattenFeatures", init: initFn, apply: applyFn}
}
