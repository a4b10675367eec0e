// Copyright 2025 Tangent ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package rng provides the public API for the splittable random keys that
// seed layer initialization.
//
// Keys are values, not stateful generators: splitting a key yields
// independent child keys deterministically, so a pipeline initialized twice
// from the same seed draws identical parameters regardless of evaluation
// order.
//
// Example:
//
//	key := rng.NewKey(1)
//	keys := key.Split(3) // independent keys for three layers
package rng

import (
	"github.com/tangent-ml/tangent/internal/rng"
)

// Key is a splittable random seed.
type Key = rng.Key

// NewKey derives a Key from an integer seed.
func NewKey(seed uint64) Key { return rng.NewKey(seed) }
