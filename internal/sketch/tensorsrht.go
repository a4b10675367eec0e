package sketch

import (
	"fmt"
	"math"

	"github.com/tangent-ml/tangent/internal/rng"
	"github.com/tangent-ml/tangent/internal/tensor"
)

// TensorSRHT is a degree-2 tensor-product sketch. Sketch(x1, x2)
// approximates the feature map of the product kernel:
//
//	E⟨Sketch(x1, x2), Sketch(y1, y2)⟩ = ⟨x1, y1⟩·⟨x2, y2⟩
//
// The feature pipeline uses it to realize the NTK recursion term
// Θ_{l-1} ⊙ κ0 without materializing the outer product of the two
// embeddings.
type TensorSRHT struct {
	inputDim1 int
	inputDim2 int
	sketchDim int
	left      *SRHT
	right     *SRHT
}

// NewTensorSRHT constructs a sketch combining inputDim1- and
// inputDim2-column matrices into sketchDim/2 complex columns (sketchDim real
// columns after real/imaginary concatenation). sketchDim must be even.
func NewTensorSRHT(key rng.Key, inputDim1, inputDim2, sketchDim int) (*TensorSRHT, error) {
	if sketchDim <= 0 || sketchDim%2 != 0 {
		return nil, fmt.Errorf("sketch: tensor srht sketch dimension must be positive and even, got %d", sketchDim)
	}
	keys := key.Split(2)
	left, err := NewSRHT(keys[0], inputDim1, sketchDim/2)
	if err != nil {
		return nil, err
	}
	right, err := NewSRHT(keys[1], inputDim2, sketchDim/2)
	if err != nil {
		return nil, err
	}
	return &TensorSRHT{
		inputDim1: inputDim1,
		inputDim2: inputDim2,
		sketchDim: sketchDim,
		left:      left,
		right:     right,
	}, nil
}

// Sketch combines x1 and x2 row-wise. With realOutput the complex result is
// split into concatenated real and imaginary parts, giving sketchDim real
// columns; otherwise sketchDim/2 complex columns are returned.
func (t *TensorSRHT) Sketch(x1, x2 tensor.Matrix, realOutput bool) (tensor.Matrix, error) {
	if x1.Rows() != x2.Rows() {
		return nil, fmt.Errorf("sketch: tensor srht row mismatch: %d vs %d", x1.Rows(), x2.Rows())
	}
	f1, err := t.left.raw(x1)
	if err != nil {
		return nil, fmt.Errorf("sketch: tensor srht left input: %w", err)
	}
	f2, err := t.right.raw(x2)
	if err != nil {
		return nil, fmt.Errorf("sketch: tensor srht right input: %w", err)
	}

	m := t.sketchDim / 2
	scale := complex(math.Sqrt(1/float64(m)), 0)
	out := tensor.NewCDense(tensor.Shape{x1.Rows(), m})
	d1, d2, do := f1.Data(), f2.Data(), out.Data()
	for i := range do {
		do[i] = scale * d1[i] * d2[i]
	}
	if realOutput {
		return out.RealImagConcat(), nil
	}
	return out, nil
}
