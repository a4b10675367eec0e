package tensor

import "fmt"

// Matrix is the common view over Dense and CDense. The feature pipeline is
// dtype-polymorphic between real and complex in a few places (sketch-based
// nonlinearities emit complex intermediates); layers that require a concrete
// type switch on it.
type Matrix interface {
	Shape() Shape
	Rows() int
	Cols() int
	IsComplex() bool
}

// Element constrains the scalar types a matrix can hold.
type Element interface {
	float64 | complex128
}

// AnyConcatCols concatenates two matrices along the column axis, promoting
// both to complex when either one is complex.
func AnyConcatCols(a, b Matrix) (Matrix, error) {
	if !a.IsComplex() && !b.IsComplex() {
		return ConcatCols(a.(*Dense), b.(*Dense))
	}
	return ConcatColsC(asComplex(a), asComplex(b))
}

// AnyScaleColumns broadcasts a real (rows, 1) factor over the columns of a
// real or complex matrix.
func AnyScaleColumns(m Matrix, factors *Dense) (Matrix, error) {
	switch t := m.(type) {
	case *Dense:
		return t.ScaleColumns(factors)
	case *CDense:
		return t.ScaleColumns(factors)
	}
	return nil, fmt.Errorf("tensor: unsupported matrix type %T", m)
}

// AnyScale multiplies a real or complex matrix by a real scalar.
func AnyScale(m Matrix, a float64) Matrix {
	switch t := m.(type) {
	case *Dense:
		return t.Scale(a)
	case *CDense:
		return t.Scale(a)
	}
	panic(fmt.Sprintf("tensor: unsupported matrix type %T", m))
}

// AnyReshape reshapes a real or complex matrix.
func AnyReshape(m Matrix, shape Shape) (Matrix, error) {
	switch t := m.(type) {
	case *Dense:
		return t.Reshape(shape)
	case *CDense:
		return t.Reshape(shape)
	}
	return nil, fmt.Errorf("tensor: unsupported matrix type %T", m)
}

// AsDense asserts that m is real, returning a descriptive error otherwise.
func AsDense(m Matrix, context string) (*Dense, error) {
	d, ok := m.(*Dense)
	if !ok {
		return nil, fmt.Errorf("%s requires real-valued features, got complex", context)
	}
	return d, nil
}

func asComplex(m Matrix) *CDense {
	switch t := m.(type) {
	case *Dense:
		return t.ToComplex()
	case *CDense:
		return t
	}
	panic(fmt.Sprintf("tensor: unsupported matrix type %T", m))
}
