package sketch

import (
	"fmt"
	"math"

	"github.com/tangent-ml/tangent/internal/rng"
	"github.com/tangent-ml/tangent/internal/tensor"
)

// SRHT is a subsampled randomized transform: random signs, a row FFT, and a
// uniform subsample of output coordinates. It reduces inputDim columns to
// outDim complex columns while preserving inner products in expectation.
type SRHT struct {
	inputDim int
	signs    []float64
	inds     []int
}

// NewSRHT constructs an SRHT reducing inputDim columns to outDim columns.
func NewSRHT(key rng.Key, inputDim, outDim int) (*SRHT, error) {
	if inputDim <= 0 || outDim <= 0 {
		return nil, fmt.Errorf("sketch: srht dimensions must be positive, got input %d out %d", inputDim, outDim)
	}
	keys := key.Split(2)
	return &SRHT{
		inputDim: inputDim,
		signs:    keys[0].Signs(inputDim),
		inds:     keys[1].Choice(inputDim, outDim),
	}, nil
}

// OutDim returns the sketched column count.
func (s *SRHT) OutDim() int { return len(s.inds) }

// Apply sketches every row of x, scaling by sqrt(1/outDim) so that
// E⟨Apply(x)_i, Apply(y)_i⟩ = ⟨x_i, y_i⟩.
func (s *SRHT) Apply(x tensor.Matrix) (*tensor.CDense, error) {
	raw, err := s.raw(x)
	if err != nil {
		return nil, err
	}
	return raw.Scale(math.Sqrt(1 / float64(len(s.inds)))), nil
}

// raw sketches without the variance normalization; TensorSRHT applies a
// single sqrt(1/m) to the coordinate product instead.
func (s *SRHT) raw(x tensor.Matrix) (*tensor.CDense, error) {
	if x.Cols() != s.inputDim {
		return nil, fmt.Errorf("sketch: srht expects %d input columns, got %d", s.inputDim, x.Cols())
	}
	rows := x.Rows()
	out := tensor.NewCDense(tensor.Shape{rows, len(s.inds)})
	buf := make([]complex128, s.inputDim)

	for i := 0; i < rows; i++ {
		switch t := x.(type) {
		case *tensor.Dense:
			row := t.Data()[i*s.inputDim : (i+1)*s.inputDim]
			for j, v := range row {
				buf[j] = complex(v*s.signs[j], 0)
			}
		case *tensor.CDense:
			row := t.Data()[i*s.inputDim : (i+1)*s.inputDim]
			for j, v := range row {
				buf[j] = v * complex(s.signs[j], 0)
			}
		default:
			return nil, fmt.Errorf("sketch: unsupported matrix type %T", x)
		}
		tensor.FFT(buf)
		for j, idx := range s.inds {
			out.Set(i, j, buf[idx])
		}
	}
	return out, nil
}
