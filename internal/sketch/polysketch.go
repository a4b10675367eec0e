package sketch

import (
	"fmt"
	"math"

	"github.com/tangent-ml/tangent/internal/rng"
	"github.com/tangent-ml/tangent/internal/tensor"
)

// PolyTensorSketch embeds the monomial basis of an inner product: from a
// single pass over the input it produces sketches P_1..P_degree with
//
//	E⟨P_k(x), P_k(y)⟩ = ⟨x, y⟩^k
//
// so that a coefficient-weighted concatenation approximates any polynomial
// kernel p(⟨x, y⟩) with non-negative coefficients.
//
// Tensor powers are built by chaining: P_1 is an SRHT of the input and
// P_{k} combines P_{k-1} with a fresh SRHT leaf through a degree-2
// TensorSRHT. Each power sketch has sketchDim/4 - 1 complex columns; the
// expanded basis has 1 + degree·(sketchDim/4 - 1) columns and the final
// StandardSRHT reduction yields sketchDim/2 complex columns.
type PolyTensorSketch struct {
	inputDim  int
	sketchDim int
	degree    int
	internal  int

	leaves []*SRHT
	pairs  []*TensorSRHT
	final  *SRHT
}

// NewPolyTensorSketch constructs a polynomial sketch of the given degree.
// sketchDim must be a multiple of 4 and large enough for at least one
// internal coordinate.
func NewPolyTensorSketch(key rng.Key, inputDim, sketchDim, degree int) (*PolyTensorSketch, error) {
	if degree < 1 {
		return nil, fmt.Errorf("sketch: polynomial sketch degree must be >= 1, got %d", degree)
	}
	if sketchDim%4 != 0 || sketchDim/4-1 < 1 {
		return nil, fmt.Errorf("sketch: polynomial sketch dimension must be a multiple of 4 and >= 8, got %d", sketchDim)
	}
	m := sketchDim/4 - 1

	keys := key.Split(2*degree + 1)
	ps := &PolyTensorSketch{
		inputDim:  inputDim,
		sketchDim: sketchDim,
		degree:    degree,
		internal:  m,
		leaves:    make([]*SRHT, degree),
		pairs:     make([]*TensorSRHT, degree-1),
	}

	var err error
	for k := 0; k < degree; k++ {
		if ps.leaves[k], err = NewSRHT(keys[k], inputDim, m); err != nil {
			return nil, err
		}
	}
	for k := 0; k < degree-1; k++ {
		if ps.pairs[k], err = NewTensorSRHT(keys[degree+k], m, m, 2*m); err != nil {
			return nil, err
		}
	}
	if ps.final, err = NewSRHT(keys[2*degree], 1+degree*m, sketchDim/2); err != nil {
		return nil, err
	}
	return ps, nil
}

// SketchDim returns the configured target dimension.
func (p *PolyTensorSketch) SketchDim() int { return p.sketchDim }

// ExpandedDim returns the column count of ExpandFeats output.
func (p *PolyTensorSketch) ExpandedDim() int { return 1 + p.degree*p.internal }

// Sketch produces the per-power sketches of x. Element k of the result
// approximates the order k+1 tensor power.
func (p *PolyTensorSketch) Sketch(x tensor.Matrix) ([]*tensor.CDense, error) {
	if x.Cols() != p.inputDim {
		return nil, fmt.Errorf("sketch: polynomial sketch expects %d input columns, got %d", p.inputDim, x.Cols())
	}
	feats := make([]*tensor.CDense, p.degree)
	var err error
	if feats[0], err = p.leaves[0].Apply(x); err != nil {
		return nil, err
	}
	for k := 1; k < p.degree; k++ {
		leaf, err := p.leaves[k].Apply(x)
		if err != nil {
			return nil, err
		}
		combined, err := p.pairs[k-1].Sketch(feats[k-1], leaf, false)
		if err != nil {
			return nil, fmt.Errorf("sketch: polynomial sketch power %d: %w", k+1, err)
		}
		feats[k] = combined.(*tensor.CDense)
	}
	return feats, nil
}

// ExpandFeats concatenates the power sketches weighted by the square roots
// of the polynomial coefficients. coeffs[i] weights the degree-i monomial;
// its length must be degree+1 and every entry must be non-negative, since
// the weighting is sqrt(coeff).
func (p *PolyTensorSketch) ExpandFeats(feats []*tensor.CDense, coeffs []float64) (*tensor.CDense, error) {
	if len(feats) != p.degree {
		return nil, fmt.Errorf("sketch: expected %d power sketches, got %d", p.degree, len(feats))
	}
	if len(coeffs) != p.degree+1 {
		return nil, fmt.Errorf("sketch: expected %d coefficients for degree %d, got %d", p.degree+1, p.degree, len(coeffs))
	}
	for i, c := range coeffs {
		if c < 0 {
			return nil, fmt.Errorf("sketch: coefficient %d is negative (%g); expansion requires non-negative coefficients", i, c)
		}
	}

	n := feats[0].Rows()
	m := p.internal
	out := tensor.NewCDense(tensor.Shape{n, 1 + p.degree*m})
	c0 := complex(math.Sqrt(coeffs[0]), 0)
	for i := 0; i < n; i++ {
		out.Set(i, 0, c0)
	}
	for k := 0; k < p.degree; k++ {
		ck := complex(math.Sqrt(coeffs[k+1]), 0)
		src := feats[k].Data()
		for i := 0; i < n; i++ {
			for j := 0; j < m; j++ {
				out.Set(i, 1+k*m+j, ck*src[i*m+j])
			}
		}
	}
	return out, nil
}

// StandardSRHT reduces an expanded feature matrix to sketchDim/2 complex
// columns.
func (p *PolyTensorSketch) StandardSRHT(z tensor.Matrix) (*tensor.CDense, error) {
	return p.final.Apply(z)
}
