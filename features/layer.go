// Copyright 2025 Tangent ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package features

import (
	"fmt"

	"github.com/tangent-ml/tangent/internal/rng"
	"github.com/tangent-ml/tangent/internal/tensor"
)

// FeatureShapes describes the static shape metadata threaded through the
// initializer pass: the NNGP and NTK embedding shapes plus a compact tag
// string recording the kinds of layers seen so far (one letter per layer).
// ReluFeatures reads the tag to know how many nonlinearities precede it.
//
// NTK is nil until a dense contribution exists, mirroring the runtime
// sentinel in Features.
type FeatureShapes struct {
	NNGP tensor.Shape
	NTK  tensor.Shape
	Path string
}

func (s FeatureShapes) validate() error {
	if s.NNGP == nil {
		return fmt.Errorf("features: malformed shape descriptor: missing nngp shape")
	}
	if err := s.NNGP.Validate(); err != nil {
		return fmt.Errorf("features: malformed nngp shape: %w", err)
	}
	if len(s.NNGP) < 2 {
		return fmt.Errorf("features: nngp shape needs batch and channel axes, got %v", s.NNGP)
	}
	if s.NTK != nil {
		if err := s.NTK.Validate(); err != nil {
			return fmt.Errorf("features: malformed ntk shape: %w", err)
		}
		if len(s.NTK) != len(s.NNGP) {
			return fmt.Errorf("features: inconsistent shape descriptor nesting: nngp %v vs ntk %v", s.NNGP, s.NTK)
		}
	}
	return nil
}

// ntkCols returns the NTK column count, zero for the sentinel.
func (s FeatureShapes) ntkCols() int {
	if s.NTK == nil {
		return 0
	}
	return s.NTK.Cols()
}

// Params is the per-layer parameter bundle produced by the initializer pass
// and consumed, read-only, by the transform pass. Each layer kind has its
// own variant; callers treat the values as opaque.
type Params interface {
	isParams()
}

// noParams is the bundle of layers that carry no auxiliary state.
type noParams struct{}

func (noParams) isParams() {}

// InitFn produces a layer's output shape descriptor and parameter bundle.
type InitFn func(key rng.Key, in FeatureShapes) (FeatureShapes, Params, error)

// ApplyFn transforms a Features value using the matching parameter bundle.
type ApplyFn func(f *Features, p Params) (*Features, error)

// Layer pairs a shape/parameter initializer with a feature transformer.
// Construct layers with DenseFeatures, ReluFeatures, ConvFeatures,
// AvgPoolFeatures, FlattenFeatures, ReluNTKFeatures, or Serial.
type Layer struct {
	Name  string
	init  InitFn
	apply ApplyFn
}

// Init runs the initializer on a full shape descriptor. The descriptor is
// validated before delegation so malformed nesting fails here rather than
// miscomputing downstream shapes.
func (l Layer) Init(key rng.Key, in FeatureShapes) (FeatureShapes, Params, error) {
	if err := in.validate(); err != nil {
		return FeatureShapes{}, nil, err
	}
	out, params, err := l.init(key, in)
	if err != nil {
		return FeatureShapes{}, nil, fmt.Errorf("%s: %w", l.Name, err)
	}
	return out, params, nil
}

// InitShape runs the initializer on a single concrete input shape,
// synthesizing the default "no NTK contribution yet" companion descriptor.
func (l Layer) InitShape(key rng.Key, input tensor.Shape) (FeatureShapes, Params, error) {
	return l.Init(key, FeatureShapes{NNGP: input.Clone(), NTK: nil, Path: ""})
}

// Apply transforms an already-lifted Features value.
func (l Layer) Apply(f *Features, p Params) (*Features, error) {
	out, err := l.apply(f, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.Name, err)
	}
	return out, nil
}

// ApplyInput lifts a raw input tensor and transforms it.
func (l Layer) ApplyInput(x *tensor.Dense, p Params) (*Features, error) {
	f, err := FromInput(x)
	if err != nil {
		return nil, err
	}
	return l.Apply(f, p)
}

// wrongParams builds the error reported when a transform pass receives a
// bundle produced by a different layer kind (a caller ordering bug).
func wrongParams(layer string, p Params) error {
	return fmt.Errorf("parameter bundle %T does not belong to %s; initializer and transform layer lists must correspond 1:1", p, layer)
}
