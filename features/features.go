// Copyright 2025 Tangent ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package features

import (
	"fmt"
	"math"

	"github.com/tangent-ml/tangent/internal/tensor"
)

// Features is the state threaded through a feature pipeline.
//
// NNGP holds the running NNGP embedding; NTK holds the running NTK
// embedding and is nil until the first dense contribution (the
// "uninitialized" sentinel — layers must treat it as absent rather than as a
// zero embedding). Norms carries per-row scale factors whose application is
// deferred for numerical reasons; Serial multiplies them back exactly once.
//
// Layers return new Features values and never mutate their input.
type Features struct {
	NNGP  tensor.Matrix
	NTK   tensor.Matrix
	Norms *tensor.Dense

	BatchAxis   int
	ChannelAxis int
}

// HasNTK reports whether any layer has contributed to the NTK embedding yet.
func (f *Features) HasNTK() bool { return f.NTK != nil }

// replace returns a copy of f with the embedding and norm fields swapped
// out. Axis tags are constant through a pipeline instance.
func (f *Features) replace(nngp, ntk tensor.Matrix, norms *tensor.Dense) *Features {
	return &Features{
		NNGP:        nngp,
		NTK:         ntk,
		Norms:       norms,
		BatchAxis:   f.BatchAxis,
		ChannelAxis: f.ChannelAxis,
	}
}

// FromInput lifts a raw input tensor into a Features value: the input is
// scaled by 1/sqrt(channels), per-row norms are extracted into Norms (zero
// norms are replaced by 1 to keep the division defined), and the NTK
// embedding starts out as the uninitialized sentinel.
func FromInput(x *tensor.Dense) (*Features, error) {
	if len(x.Shape()) < 2 {
		return nil, fmt.Errorf("features: input must have at least batch and channel axes, got shape %v", x.Shape())
	}
	scaled := x.Scale(1 / math.Sqrt(float64(x.Cols())))
	norms := scaled.RowNorms()
	for i, v := range norms.Data() {
		if v == 0 {
			norms.Data()[i] = 1
		}
	}
	inv := norms.Apply(func(v float64) float64 { return 1 / v })
	nngp, err := scaled.ScaleColumns(inv)
	if err != nil {
		return nil, err
	}
	return &Features{
		NNGP:        nngp,
		NTK:         nil,
		Norms:       norms,
		BatchAxis:   0,
		ChannelAxis: -1,
	}, nil
}

// renormalized folds the accumulated norms back into both embeddings and
// resets Norms to ones, so that composing serial blocks cannot double-apply
// the scale.
func (f *Features) renormalized() (*Features, error) {
	nngp, err := tensor.AnyScaleColumns(f.NNGP, f.Norms)
	if err != nil {
		return nil, fmt.Errorf("features: renormalize nngp: %w", err)
	}
	ntk := f.NTK
	if f.HasNTK() {
		if ntk, err = tensor.AnyScaleColumns(f.NTK, f.Norms); err != nil {
			return nil, fmt.Errorf("features: renormalize ntk: %w", err)
		}
	}
	return f.replace(nngp, ntk, tensor.Ones(tensor.Shape{f.Norms.Rows(), 1})), nil
}

// reshapeTo restores the leading (batch and spatial) axes of a 2-D result.
func reshapeTo(m tensor.Matrix, leading tensor.Shape) (tensor.Matrix, error) {
	shape := append(leading.Clone(), m.Cols())
	return tensor.AnyReshape(m, shape)
}
