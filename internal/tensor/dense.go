package tensor

import (
	"fmt"
	"math"
)

// Dense is a float64 matrix with a full N-D shape. The leading axes are
// flattened into rows for matrix operations; the trailing axis is the column
// (channel) dimension.
type Dense struct {
	shape Shape
	data  []float64
}

// NewDense creates a zero-filled Dense with the given shape.
func NewDense(shape Shape) *Dense {
	if err := shape.Validate(); err != nil {
		panic(fmt.Sprintf("tensor: invalid shape: %v", err))
	}
	return &Dense{shape: shape.Clone(), data: make([]float64, shape.NumElements())}
}

// FromSlice creates a Dense wrapping the given data. The data length must
// match the shape's element count.
func FromSlice(data []float64, shape Shape) (*Dense, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("tensor: invalid shape: %w", err)
	}
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("tensor: data length %d does not match shape %v (%d elements)",
			len(data), shape, shape.NumElements())
	}
	return &Dense{shape: shape.Clone(), data: data}, nil
}

// Ones creates a Dense filled with ones.
func Ones(shape Shape) *Dense {
	d := NewDense(shape)
	for i := range d.data {
		d.data[i] = 1
	}
	return d
}

// Shape returns the tensor's shape. The returned slice must not be modified.
func (d *Dense) Shape() Shape { return d.shape }

// Rows returns the flattened leading-dimension row count.
func (d *Dense) Rows() int { return d.shape.Rows() }

// Cols returns the trailing (channel) dimension.
func (d *Dense) Cols() int { return d.shape.Cols() }

// IsComplex reports whether the matrix holds complex values.
func (d *Dense) IsComplex() bool { return false }

// Data returns the underlying row-major data slice.
func (d *Dense) Data() []float64 { return d.data }

// At returns the element at row i, column j of the 2-D view.
func (d *Dense) At(i, j int) float64 { return d.data[i*d.Cols()+j] }

// Set assigns the element at row i, column j of the 2-D view.
func (d *Dense) Set(i, j int, v float64) { d.data[i*d.Cols()+j] = v }

// Clone returns a deep copy.
func (d *Dense) Clone() *Dense {
	data := make([]float64, len(d.data))
	copy(data, d.data)
	return &Dense{shape: d.shape.Clone(), data: data}
}

// Reshape returns a view of the same data under a new shape. The element
// counts must match.
func (d *Dense) Reshape(shape Shape) (*Dense, error) {
	if shape.NumElements() != len(d.data) {
		return nil, fmt.Errorf("tensor: cannot reshape %v to %v", d.shape, shape)
	}
	return &Dense{shape: shape.Clone(), data: d.data}, nil
}

// MatMul computes the 2-D matrix product d · o.
func (d *Dense) MatMul(o *Dense) (*Dense, error) {
	n, k := d.Rows(), d.Cols()
	k2, m := o.Rows(), o.Cols()
	if k != k2 {
		return nil, fmt.Errorf("tensor: matmul dimension mismatch: (%d,%d) x (%d,%d)", n, k, k2, m)
	}
	out := NewDense(Shape{n, m})
	for i := 0; i < n; i++ {
		ri := d.data[i*k : (i+1)*k]
		oi := out.data[i*m : (i+1)*m]
		for p := 0; p < k; p++ {
			a := ri[p]
			if a == 0 {
				continue
			}
			rp := o.data[p*m : (p+1)*m]
			for j := 0; j < m; j++ {
				oi[j] += a * rp[j]
			}
		}
	}
	return out, nil
}

// Gram computes d · dᵀ of the 2-D view.
func (d *Dense) Gram() *Dense {
	n, k := d.Rows(), d.Cols()
	out := NewDense(Shape{n, n})
	for i := 0; i < n; i++ {
		ri := d.data[i*k : (i+1)*k]
		for j := i; j < n; j++ {
			rj := d.data[j*k : (j+1)*k]
			var s float64
			for p := 0; p < k; p++ {
				s += ri[p] * rj[p]
			}
			out.data[i*n+j] = s
			out.data[j*n+i] = s
		}
	}
	return out
}

// Scale returns d multiplied by a scalar.
func (d *Dense) Scale(a float64) *Dense {
	out := d.Clone()
	for i := range out.data {
		out.data[i] *= a
	}
	return out
}

// ScaleColumns multiplies every row of the 2-D view by the matching entry of
// the (rows, 1) factor matrix, broadcasting over columns.
func (d *Dense) ScaleColumns(factors *Dense) (*Dense, error) {
	if factors.Rows() != d.Rows() || factors.Cols() != 1 {
		return nil, fmt.Errorf("tensor: scale factors shape %v does not broadcast over (%d,%d)",
			factors.shape, d.Rows(), d.Cols())
	}
	out := d.Clone()
	cols := d.Cols()
	for i := 0; i < d.Rows(); i++ {
		f := factors.data[i]
		row := out.data[i*cols : (i+1)*cols]
		for j := range row {
			row[j] *= f
		}
	}
	return out, nil
}

// RowNorms returns the Euclidean norm of every row of the 2-D view as a
// (rows, 1) matrix.
func (d *Dense) RowNorms() *Dense {
	n, k := d.Rows(), d.Cols()
	out := NewDense(Shape{n, 1})
	for i := 0; i < n; i++ {
		var s float64
		for _, v := range d.data[i*k : (i+1)*k] {
			s += v * v
		}
		out.data[i] = math.Sqrt(s)
	}
	return out
}

// Mul returns the elementwise (Hadamard) product with o.
func (d *Dense) Mul(o *Dense) (*Dense, error) {
	if !d.shape.Equal(o.shape) {
		return nil, fmt.Errorf("tensor: elementwise product shape mismatch: %v vs %v", d.shape, o.shape)
	}
	out := d.Clone()
	for i := range out.data {
		out.data[i] *= o.data[i]
	}
	return out, nil
}

// ConcatCols concatenates a and b along the column axis. The leading shapes
// must agree.
func ConcatCols(a, b *Dense) (*Dense, error) {
	if !a.shape.Leading().Equal(b.shape.Leading()) {
		return nil, fmt.Errorf("tensor: column concat leading shape mismatch: %v vs %v", a.shape, b.shape)
	}
	n := a.Rows()
	ca, cb := a.Cols(), b.Cols()
	out := NewDense(a.shape.WithCols(ca + cb))
	for i := 0; i < n; i++ {
		copy(out.data[i*(ca+cb):], a.data[i*ca:(i+1)*ca])
		copy(out.data[i*(ca+cb)+ca:], b.data[i*cb:(i+1)*cb])
	}
	return out, nil
}

// Apply returns a copy with fn applied to every element.
func (d *Dense) Apply(fn func(float64) float64) *Dense {
	out := d.Clone()
	for i := range out.data {
		out.data[i] = fn(out.data[i])
	}
	return out
}
