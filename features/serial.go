// Copyright 2025 Tangent ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package features

import (
	"fmt"

	"github.com/tangent-ml/tangent/internal/rng"
)

// serialParams owns the ordered per-layer parameter bundles of a Serial
// composition.
type serialParams struct {
	layers []Params
}

func (serialParams) isParams() {}

// Serial chains layers into a single composite layer.
//
// The initializer threads the evolving shape descriptor through each layer
// in order, splitting the key once per layer. The transformer applies each
// layer's transform in the same order, then folds the accumulated norms back
// into both feature matrices exactly once and resets them, so a Serial is
// itself a valid layer inside another Serial.
func Serial(layers ...Layer) Layer {
	if len(layers) == 0 {
		panic("features: serial requires at least one layer")
	}

	initFn := func(key rng.Key, in FeatureShapes) (FeatureShapes, Params, error) {
		keys := key.Split(len(layers))
		params := make([]Params, len(layers))
		shapes := in
		var err error
		for i, l := range layers {
			if shapes, params[i], err = l.Init(keys[i], shapes); err != nil {
				return FeatureShapes{}, nil, fmt.Errorf("layer %d: %w", i, err)
			}
		}
		return shapes, &serialParams{layers: params}, nil
	}

	applyFn := func(f *Features, p Params) (*Features, error) {
		sp, ok := p.(*serialParams)
		if !ok {
			return nil, wrongParams("serial", p)
		}
		if len(sp.layers) != len(layers) {
			return nil, fmt.Errorf("serial: %d layers but %d parameter bundles; the initializer and transform layer lists must correspond 1:1",
				len(layers), len(sp.layers))
		}
		var err error
		for i, l := range layers {
			if f, err = l.Apply(f, sp.layers[i]); err != nil {
				return nil, fmt.Errorf("layer %d: %w", i, err)
			}
		}
		return f.renormalized()
	}

	return Layer{Name: "Serial", init: initFn, apply: applyFn}
}
