// Copyright 2025 Tangent ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for the dense matrices used by the
// feature pipeline.
//
// The package re-exports the small real/complex matrix layer the feature
// maps are built on:
//   - Dense, CDense: row-major float64 and complex128 matrices with N-D shapes
//   - Matrix: the common view over both
//   - Shape: dimension metadata with 2-D (rows, cols) flattening helpers
//
// Example:
//
//	x, _ := tensor.FromSlice(data, tensor.Shape{4, 8})
//	g := x.Gram() // x · xᵀ
package tensor

import (
	"github.com/tangent-ml/tangent/internal/tensor"
)

// Shape represents the dimensions of a tensor. The leading axes flatten into
// rows; the trailing axis is the column (channel) dimension.
type Shape = tensor.Shape

// Dense is a row-major float64 matrix.
type Dense = tensor.Dense

// CDense is a row-major complex128 matrix.
type CDense = tensor.CDense

// Matrix is the common view over Dense and CDense.
type Matrix = tensor.Matrix

// Constructors.

// NewDense creates a zero-filled Dense with the given shape.
func NewDense(shape Shape) *Dense { return tensor.NewDense(shape) }

// NewCDense creates a zero-filled CDense with the given shape.
func NewCDense(shape Shape) *CDense { return tensor.NewCDense(shape) }

// FromSlice creates a Dense wrapping the given data.
func FromSlice(data []float64, shape Shape) (*Dense, error) {
	return tensor.FromSlice(data, shape)
}

// Ones creates a Dense filled with ones.
func Ones(shape Shape) *Dense { return tensor.Ones(shape) }

// ConcatCols concatenates two real matrices along the column axis.
func ConcatCols(a, b *Dense) (*Dense, error) { return tensor.ConcatCols(a, b) }

// Cholesky factors a symmetric positive-semidefinite matrix, adding
// escalating diagonal jitter if the factorization fails numerically.
func Cholesky(a *Dense) (*Dense, error) { return tensor.Cholesky(a) }
