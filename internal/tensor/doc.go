// Package tensor implements the dense numeric matrices used by the feature
// pipeline.
//
// A Dense (float64) or CDense (complex128) stores row-major data together
// with a full N-D shape. Matrix operations view the leading axes as a single
// flattened row dimension and the trailing axis as columns, which matches how
// the feature pipeline treats batch and spatial axes: a (N, H, W, C) feature
// tensor is a (N*H*W, C) matrix with bookkeeping.
//
// The package is single-threaded and allocation-per-op; operations return new
// matrices and never mutate their receivers unless documented otherwise.
package tensor
