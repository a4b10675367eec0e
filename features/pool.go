// Copyright 2025 Tangent ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package features

import (
	"fmt"
	"strings"

	"github.com/tangent-ml/tangent/internal/rng"
	"github.com/tangent-ml/tangent/internal/tensor"
)

// Padding selects the boundary policy of a pooling window.
type Padding int

const (
	// PaddingValid keeps only fully in-bounds windows.
	PaddingValid Padding = iota
	// PaddingSame zero-pads so the output extent is ceil(extent/stride).
	PaddingSame
)

// String returns the padding's configuration name.
func (p Padding) String() string {
	switch p {
	case PaddingValid:
		return "valid"
	case PaddingSame:
		return "same"
	}
	return fmt.Sprintf("Padding(%d)", int(p))
}

// ParsePadding parses a configuration name into a Padding.
func ParsePadding(s string) (Padding, error) {
	switch strings.ToLower(s) {
	case "valid":
		return PaddingValid, nil
	case "same":
		return PaddingSame, nil
	}
	return 0, fmt.Errorf("features: unrecognized padding %q", s)
}

// AvgPoolFeatures applies a windowed spatial average to both feature maps of
// an NHWC pipeline, shrinking the spatial extent by strideSize. The NTK map
// follows the NNGP transform unless it is still uninitialized. With
// normalizeEdges, windows truncated by the boundary divide by their actual
// tap count rather than the full window area.
//
// Pooling changes the per-pixel row count, so the accumulated norms are
// folded into the feature maps before the window average and reset to ones
// afterwards; the averaging itself is then exact on the folded values.
func AvgPoolFeatures(windowSize, strideSize int, padding Padding, normalizeEdges bool) Layer {
	if windowSize <= 0 {
		panic(fmt.Sprintf("avg pool features: invalid window size %d", windowSize))
	}
	if strideSize <= 0 {
		panic(fmt.Sprintf("avg pool features: invalid stride %d", strideSize))
	}
	same := padding == PaddingSame

	initFn := func(key rng.Key, in FeatureShapes) (FeatureShapes, Params, error) {
		if len(in.NNGP) != 4 {
			return FeatureShapes{}, nil, fmt.Errorf("requires NHWC input, got shape %v", in.NNGP)
		}
		outH, _, err := poolGeometry(in.NNGP[1], windowSize, strideSize, same)
		if err != nil {
			return FeatureShapes{}, nil, err
		}
		outW, _, err := poolGeometry(in.NNGP[2], windowSize, strideSize, same)
		if err != nil {
			return FeatureShapes{}, nil, err
		}
		out := FeatureShapes{
			NNGP: tensor.Shape{in.NNGP[0], outH, outW, in.NNGP.Cols()},
			Path: in.Path + "A",
		}
		if in.NTK != nil {
			out.NTK = tensor.Shape{in.NTK[0], outH, outW, in.NTK.Cols()}
		}
		return out, noParams{}, nil
	}

	applyFn := func(f *Features, p Params) (*Features, error) {
		if _, ok := p.(noParams); !ok {
			return nil, wrongParams("avg pool features", p)
		}
		folded, err := f.renormalized()
		if err != nil {
			return nil, err
		}
		nngp, err := poolSpatial(folded.NNGP, windowSize, strideSize, same, normalizeEdges)
		if err != nil {
			return nil, err
		}
		ntk := folded.NTK
		if folded.HasNTK() {
			if ntk, err = poolSpatial(folded.NTK, windowSize, strideSize, same, normalizeEdges); err != nil {
				return nil, err
			}
		}
		norms := tensor.Ones(tensor.Shape{nngp.Rows(), 1})
		return f.replace(nngp, ntk, norms), nil
	}

	return Layer{Name: "AvgPoolFeatures", init: initFn, apply: applyFn}
}
