package tensor

import "fmt"

// Shape represents the dimensions of a tensor.
type Shape []int

// NumElements returns the total number of elements in the tensor.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 1 // Scalar has 1 element
	}
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks if the shape is valid (all dimensions > 0).
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// Rows returns the product of all leading dimensions, i.e. the row count of
// the 2-D matrix view. A rank-1 shape has a single row.
func (s Shape) Rows() int {
	if len(s) <= 1 {
		return 1
	}
	n := 1
	for _, dim := range s[:len(s)-1] {
		n *= dim
	}
	return n
}

// Cols returns the trailing dimension, i.e. the column count of the 2-D
// matrix view.
func (s Shape) Cols() int {
	if len(s) == 0 {
		return 1
	}
	return s[len(s)-1]
}

// Leading returns the shape without its trailing dimension.
func (s Shape) Leading() Shape {
	if len(s) == 0 {
		return Shape{}
	}
	return s[:len(s)-1].Clone()
}

// WithCols returns a copy of the shape with the trailing dimension replaced.
func (s Shape) WithCols(cols int) Shape {
	out := s.Clone()
	if len(out) == 0 {
		return Shape{cols}
	}
	out[len(out)-1] = cols
	return out
}

// ComputeStrides calculates row-major strides for the shape.
// Strides define memory layout: stride[i] = product of all dimensions after i.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}

	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}
