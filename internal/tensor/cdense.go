package tensor

import "fmt"

// CDense is the complex128 counterpart of Dense. Sketch-based feature maps
// produce complex intermediates; the pipeline converts them back to real
// values at the top layer.
type CDense struct {
	shape Shape
	data  []complex128
}

// NewCDense creates a zero-filled CDense with the given shape.
func NewCDense(shape Shape) *CDense {
	if err := shape.Validate(); err != nil {
		panic(fmt.Sprintf("tensor: invalid shape: %v", err))
	}
	return &CDense{shape: shape.Clone(), data: make([]complex128, shape.NumElements())}
}

// Shape returns the tensor's shape. The returned slice must not be modified.
func (c *CDense) Shape() Shape { return c.shape }

// Rows returns the flattened leading-dimension row count.
func (c *CDense) Rows() int { return c.shape.Rows() }

// Cols returns the trailing (channel) dimension.
func (c *CDense) Cols() int { return c.shape.Cols() }

// IsComplex reports whether the matrix holds complex values.
func (c *CDense) IsComplex() bool { return true }

// Data returns the underlying row-major data slice.
func (c *CDense) Data() []complex128 { return c.data }

// At returns the element at row i, column j of the 2-D view.
func (c *CDense) At(i, j int) complex128 { return c.data[i*c.Cols()+j] }

// Set assigns the element at row i, column j of the 2-D view.
func (c *CDense) Set(i, j int, v complex128) { c.data[i*c.Cols()+j] = v }

// Clone returns a deep copy.
func (c *CDense) Clone() *CDense {
	data := make([]complex128, len(c.data))
	copy(data, c.data)
	return &CDense{shape: c.shape.Clone(), data: data}
}

// Reshape returns a view of the same data under a new shape.
func (c *CDense) Reshape(shape Shape) (*CDense, error) {
	if shape.NumElements() != len(c.data) {
		return nil, fmt.Errorf("tensor: cannot reshape %v to %v", c.shape, shape)
	}
	return &CDense{shape: shape.Clone(), data: c.data}, nil
}

// Scale returns c multiplied by a real scalar.
func (c *CDense) Scale(a float64) *CDense {
	out := c.Clone()
	ca := complex(a, 0)
	for i := range out.data {
		out.data[i] *= ca
	}
	return out
}

// ScaleColumns multiplies every row of the 2-D view by the matching entry of
// the real (rows, 1) factor matrix.
func (c *CDense) ScaleColumns(factors *Dense) (*CDense, error) {
	if factors.Rows() != c.Rows() || factors.Cols() != 1 {
		return nil, fmt.Errorf("tensor: scale factors shape %v does not broadcast over (%d,%d)",
			factors.shape, c.Rows(), c.Cols())
	}
	out := c.Clone()
	cols := c.Cols()
	for i := 0; i < c.Rows(); i++ {
		f := complex(factors.data[i], 0)
		row := out.data[i*cols : (i+1)*cols]
		for j := range row {
			row[j] *= f
		}
	}
	return out, nil
}

// ConcatColsC concatenates a and b along the column axis.
func ConcatColsC(a, b *CDense) (*CDense, error) {
	if !a.shape.Leading().Equal(b.shape.Leading()) {
		return nil, fmt.Errorf("tensor: column concat leading shape mismatch: %v vs %v", a.shape, b.shape)
	}
	n := a.Rows()
	ca, cb := a.Cols(), b.Cols()
	out := NewCDense(a.shape.WithCols(ca + cb))
	for i := 0; i < n; i++ {
		copy(out.data[i*(ca+cb):], a.data[i*ca:(i+1)*ca])
		copy(out.data[i*(ca+cb)+ca:], b.data[i*cb:(i+1)*cb])
	}
	return out, nil
}

// ToComplex lifts a real matrix into a CDense with zero imaginary parts.
func (d *Dense) ToComplex() *CDense {
	out := NewCDense(d.shape)
	for i, v := range d.data {
		out.data[i] = complex(v, 0)
	}
	return out
}

// RealImagConcat splits a complex matrix into its real and imaginary parts
// and concatenates them along the column axis, doubling the column count.
func (c *CDense) RealImagConcat() *Dense {
	n, k := c.Rows(), c.Cols()
	out := NewDense(c.shape.WithCols(2 * k))
	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			v := c.data[i*k+j]
			out.data[i*2*k+j] = real(v)
			out.data[i*2*k+k+j] = imag(v)
		}
	}
	return out
}

// Real returns the real part of the matrix.
func (c *CDense) Real() *Dense {
	out := NewDense(c.shape)
	for i, v := range c.data {
		out.data[i] = real(v)
	}
	return out
}

// Imag returns the imaginary part of the matrix.
func (c *CDense) Imag() *Dense {
	out := NewDense(c.shape)
	for i, v := range c.data {
		out.data[i] = imag(v)
	}
	return out
}
