// Copyright 2025 Tangent ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package features

import (
	"fmt"
	"math"
	"strings"

	"github.com/tangent-ml/tangent/internal/polyfit"
	"github.com/tangent-ml/tangent/internal/rng"
	"github.com/tangent-ml/tangent/internal/sketch"
	"github.com/tangent-ml/tangent/internal/tensor"
)

// Method selects how ReluFeatures approximates the feature maps of the
// arc-cosine kernels kappa0 (ReLU's derivative) and kappa1 (ReLU itself).
type Method int

const (
	// MethodRF uses Gaussian random features for both kernels and a
	// TensorSRHT for the NTK product term.
	MethodRF Method = iota
	// MethodPS expands a polynomial sketch of the NNGP embedding with
	// fitted kappa0/kappa1 coefficients.
	MethodPS
	// MethodPSRF combines the polynomial sketch for kappa1 with a
	// sign-indicator random feature for kappa0.
	MethodPSRF
	// MethodPoly evaluates the fitted polynomials on the full Gram matrix
	// and recovers features by Cholesky factorization. O(n²) in the batch;
	// for small batches and debugging the sketched methods.
	MethodPoly
	// MethodExact evaluates the kernels in closed form on the Gram matrix
	// and factorizes. Validation only; not scalable.
	MethodExact
)

// String returns the method's configuration name.
func (m Method) String() string {
	switch m {
	case MethodRF:
		return "rf"
	case MethodPS:
		return "ps"
	case MethodPSRF:
		return "psrf"
	case MethodPoly:
		return "poly"
	case MethodExact:
		return "exact"
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod parses a configuration name into a Method.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(s) {
	case "rf":
		return MethodRF, nil
	case "ps":
		return MethodPS, nil
	case "psrf":
		return MethodPSRF, nil
	case "poly":
		return MethodPoly, nil
	case "exact":
		return MethodExact, nil
	}
	return 0, fmt.Errorf("features: unrecognized relu method %q", s)
}

// ReluConfig configures a ReluFeatures layer. Zero-valued dimensions fall
// back to the defaults below; the zero Method is MethodRF.
type ReluConfig struct {
	// FeatureDim0 is the random-feature count for kappa0 (rf, psrf).
	FeatureDim0 int
	// FeatureDim1 is the random-feature count for kappa1 (rf).
	FeatureDim1 int
	// SketchDim is the TensorSRHT output dimension for the NTK embedding.
	SketchDim int
	// PolyDegree is the polynomial approximation degree (ps, psrf, poly).
	PolyDegree int
	// PolySketchDim is the polynomial sketch target dimension (ps, psrf).
	PolySketchDim int
	// Method selects the approximation algorithm.
	Method Method
	// TopLayer marks the final nonlinearity before kernel extraction;
	// complex sketch features are converted to real ones here.
	TopLayer bool
}

func (c ReluConfig) withDefaults() ReluConfig {
	if c.FeatureDim0 == 0 {
		c.FeatureDim0 = 1
	}
	if c.FeatureDim1 == 0 {
		c.FeatureDim1 = 1
	}
	if c.SketchDim == 0 {
		c.SketchDim = 1
	}
	if c.PolyDegree == 0 {
		c.PolyDegree = 8
	}
	if c.PolySketchDim == 0 {
		c.PolySketchDim = 1
	}
	return c
}

// Parameter bundles, one variant per method.

type rfParams struct {
	w0 *tensor.Dense
	w1 *tensor.Dense
	ts *sketch.TensorSRHT
}

func (*rfParams) isParams() {}

type psParams struct {
	ps     *sketch.PolyTensorSketch
	ts     *sketch.TensorSRHT
	kappa0 []float64
	kappa1 []float64
}

func (*psParams) isParams() {}

type psrfParams struct {
	w0     *tensor.Dense
	ps     *sketch.PolyTensorSketch
	ts     *sketch.TensorSRHT
	kappa1 []float64
}

func (*psrfParams) isParams() {}

type polyParams struct {
	kappa0 []float64
	kappa1 []float64
}

func (*polyParams) isParams() {}

// ReluFeatures models an infinite-width ReLU nonlinearity: it rebuilds the
// NNGP embedding through (an approximation of) the kappa1 feature map and
// advances the NTK embedding through the recursion
// Θ_l = Θ_{l-1} ⊙ κ0 + κ1, with the product term realized in feature space.
//
// Every method except MethodRF divides the deferred norms by sqrt(2), the
// half-space truncation factor of the kernel recursion; MethodRF folds that
// factor into its random-feature normalization instead.
func ReluFeatures(cfg ReluConfig) Layer {
	cfg = cfg.withDefaults()
	switch cfg.Method {
	case MethodRF, MethodPS, MethodPSRF, MethodPoly, MethodExact:
	default:
		panic(fmt.Sprintf("relu features: unrecognized method %v", cfg.Method))
	}

	initFn := func(key rng.Key, in FeatureShapes) (FeatureShapes, Params, error) {
		if in.NTK == nil {
			return FeatureShapes{}, nil, fmt.Errorf("requires a preceding dense or convolutional layer")
		}
		// Depth of this nonlinearity, counting itself.
		layerCount := strings.Count(in.Path, "R") + 1
		// Declared dimensions of complex embeddings are twice their column
		// counts, so sketch inputs halve past the first nonlinearity.
		halve := 1
		if layerCount > 1 {
			halve = 2
		}
		nngpDim, ntkDim := in.NNGP.Cols(), in.NTK.Cols()
		out := FeatureShapes{Path: in.Path + "R"}

		switch cfg.Method {
		case MethodRF:
			keys := key.Split(3)
			w0, _ := tensor.FromSlice(keys[0].Normal(nngpDim, cfg.FeatureDim0), tensor.Shape{nngpDim, cfg.FeatureDim0})
			w1, _ := tensor.FromSlice(keys[1].Normal(nngpDim, cfg.FeatureDim1), tensor.Shape{nngpDim, cfg.FeatureDim1})
			ts, err := sketch.NewTensorSRHT(keys[2], ntkDim, cfg.FeatureDim0, cfg.SketchDim)
			if err != nil {
				return FeatureShapes{}, nil, err
			}
			out.NNGP = in.NNGP.WithCols(cfg.FeatureDim1)
			out.NTK = in.NTK.WithCols(cfg.SketchDim)
			return out, &rfParams{w0: w0, w1: w1, ts: ts}, nil

		case MethodPS:
			keys := key.Split(2)
			kappa1, err := polyfit.Kappa1Coeffs(cfg.PolyDegree, layerCount-1)
			if err != nil {
				return FeatureShapes{}, nil, err
			}
			kappa0, err := polyfit.Kappa0Coeffs(cfg.PolyDegree, layerCount-1)
			if err != nil {
				return FeatureShapes{}, nil, err
			}
			ps, err := sketch.NewPolyTensorSketch(keys[0], nngpDim/halve, cfg.PolySketchDim, cfg.PolyDegree)
			if err != nil {
				return FeatureShapes{}, nil, err
			}
			ts, err := sketch.NewTensorSRHT(keys[1], ntkDim/halve, ps.ExpandedDim(), cfg.SketchDim)
			if err != nil {
				return FeatureShapes{}, nil, err
			}
			out.NNGP = in.NNGP.WithCols(cfg.PolySketchDim)
			out.NTK = in.NTK.WithCols(cfg.SketchDim)
			return out, &psParams{ps: ps, ts: ts, kappa0: kappa0, kappa1: kappa1}, nil

		case MethodPSRF:
			keys := key.Split(3)
			kappa1, err := polyfit.Kappa1Coeffs(cfg.PolyDegree, layerCount-1)
			if err != nil {
				return FeatureShapes{}, nil, err
			}
			ps, err := sketch.NewPolyTensorSketch(keys[0], nngpDim/halve, cfg.PolySketchDim, cfg.PolyDegree)
			if err != nil {
				return FeatureShapes{}, nil, err
			}
			ts, err := sketch.NewTensorSRHT(keys[1], ntkDim/halve, cfg.FeatureDim0, cfg.SketchDim)
			if err != nil {
				return FeatureShapes{}, nil, err
			}
			// The sign-indicator projection consumes concatenated real and
			// imaginary parts: twice the true column count at the first
			// layer (real input), the declared count afterwards.
			w0Rows := nngpDim
			if layerCount == 1 {
				w0Rows = 2 * nngpDim
			}
			w0, _ := tensor.FromSlice(keys[2].Normal(w0Rows, cfg.FeatureDim0/2), tensor.Shape{w0Rows, cfg.FeatureDim0 / 2})
			out.NNGP = in.NNGP.WithCols(cfg.PolySketchDim)
			out.NTK = in.NTK.WithCols(cfg.SketchDim)
			return out, &psrfParams{w0: w0, ps: ps, ts: ts, kappa1: kappa1}, nil

		case MethodPoly:
			kappa1, err := polyfit.Kappa1Coeffs(cfg.PolyDegree, layerCount-1)
			if err != nil {
				return FeatureShapes{}, nil, err
			}
			kappa0, err := polyfit.Kappa0Coeffs(cfg.PolyDegree, layerCount-1)
			if err != nil {
				return FeatureShapes{}, nil, err
			}
			out.NNGP = in.NNGP.WithCols(in.NNGP.Rows())
			out.NTK = in.NTK.WithCols(in.NTK.Rows())
			return out, &polyParams{kappa0: kappa0, kappa1: kappa1}, nil

		case MethodExact:
			out.NNGP = in.NNGP.WithCols(in.NNGP.Rows())
			out.NTK = in.NTK.WithCols(in.NTK.Rows())
			return out, noParams{}, nil
		}
		return FeatureShapes{}, nil, fmt.Errorf("unrecognized method %v", cfg.Method)
	}

	applyFn := func(f *Features, p Params) (*Features, error) {
		if !f.HasNTK() {
			return nil, fmt.Errorf("requires a preceding dense or convolutional layer")
		}
		var (
			out *Features
			err error
		)
		switch cfg.Method {
		case MethodRF:
			out, err = applyReluRF(f, p)
		case MethodPS:
			out, err = applyReluPS(f, p, cfg.TopLayer)
		case MethodPSRF:
			out, err = applyReluPSRF(f, p, cfg.TopLayer)
		case MethodPoly:
			out, err = applyReluPoly(f, p)
		case MethodExact:
			out, err = applyReluExact(f, p)
		}
		if err != nil {
			return nil, err
		}
		if cfg.Method != MethodRF {
			out = out.replace(out.NNGP, out.NTK, out.Norms.Scale(1/math.Sqrt2))
		}
		return out, nil
	}

	return Layer{Name: "ReluFeatures", init: initFn, apply: applyFn}
}

func applyReluRF(f *Features, p Params) (*Features, error) {
	rp, ok := p.(*rfParams)
	if !ok {
		return nil, wrongParams("relu rf features", p)
	}
	nngp2d, err := tensor.AsDense(f.NNGP, "relu rf method")
	if err != nil {
		return nil, err
	}
	ntk2d, err := tensor.AsDense(f.NTK, "relu rf method")
	if err != nil {
		return nil, err
	}
	leading := f.NNGP.Shape().Leading()

	// kappa0 via sign indicators of a Gaussian projection.
	proj0, err := nngp2d.MatMul(rp.w0)
	if err != nil {
		return nil, err
	}
	scale0 := 1 / math.Sqrt(float64(rp.w0.Cols()))
	kappa0Feat := proj0.Apply(func(v float64) float64 {
		if v > 0 {
			return scale0
		}
		return 0
	})

	// kappa1 via ReLU of a Gaussian projection.
	proj1, err := nngp2d.MatMul(rp.w1)
	if err != nil {
		return nil, err
	}
	scale1 := 1 / math.Sqrt(float64(rp.w1.Cols()))
	nngp := proj1.Apply(func(v float64) float64 {
		if v > 0 {
			return v * scale1
		}
		return 0
	})

	ntk, err := rp.ts.Sketch(ntk2d, kappa0Feat, true)
	if err != nil {
		return nil, err
	}
	nngpOut, err := reshapeTo(nngp, leading)
	if err != nil {
		return nil, err
	}
	ntkOut, err := reshapeTo(ntk, leading)
	if err != nil {
		return nil, err
	}
	return f.replace(nngpOut, ntkOut, f.Norms), nil
}

func applyReluPS(f *Features, p Params, topLayer bool) (*Features, error) {
	pp, ok := p.(*psParams)
	if !ok {
		return nil, wrongParams("relu ps features", p)
	}
	leading := f.NNGP.Shape().Leading()

	feats, err := pp.ps.Sketch(f.NNGP)
	if err != nil {
		return nil, err
	}
	kappa1Feat, err := pp.ps.ExpandFeats(feats, pp.kappa1)
	if err != nil {
		return nil, err
	}
	kappa0Feat, err := pp.ps.ExpandFeats(feats, pp.kappa0)
	if err != nil {
		return nil, err
	}

	nngpC, err := pp.ps.StandardSRHT(kappa1Feat)
	if err != nil {
		return nil, err
	}
	ntkM, err := pp.ts.Sketch(f.NTK, kappa0Feat, false)
	if err != nil {
		return nil, err
	}
	ntkC := ntkM.(*tensor.CDense)

	var nngp, ntk tensor.Matrix = nngpC, ntkC
	if topLayer {
		nngp = nngpC.RealImagConcat()
		ntk = ntkC.RealImagConcat()
	}
	if nngp, err = reshapeTo(nngp, leading); err != nil {
		return nil, err
	}
	if ntk, err = reshapeTo(ntk, leading); err != nil {
		return nil, err
	}
	return f.replace(nngp, ntk, f.Norms), nil
}

func applyReluPSRF(f *Features, p Params, topLayer bool) (*Features, error) {
	pp, ok := p.(*psrfParams)
	if !ok {
		return nil, wrongParams("relu psrf features", p)
	}
	leading := f.NNGP.Shape().Leading()

	feats, err := pp.ps.Sketch(f.NNGP)
	if err != nil {
		return nil, err
	}
	kappa1Feat, err := pp.ps.ExpandFeats(feats, pp.kappa1)
	if err != nil {
		return nil, err
	}
	nngpC, err := pp.ps.StandardSRHT(kappa1Feat)
	if err != nil {
		return nil, err
	}

	// kappa0 through a two-sided sign indicator of the projected
	// real/imaginary concatenation.
	riConcat := realImagSplit(f.NNGP)
	if riConcat.Cols() != pp.w0.Rows() {
		return nil, fmt.Errorf("sign projection expects %d columns, got %d", pp.w0.Rows(), riConcat.Cols())
	}
	proj, err := riConcat.MatMul(pp.w0)
	if err != nil {
		return nil, err
	}
	scale := 1 / math.Sqrt(float64(pp.w0.Cols()))
	pos := proj.Apply(func(v float64) float64 {
		if v > 0 {
			return scale
		}
		return 0
	})
	neg := proj.Apply(func(v float64) float64 {
		if v <= 0 {
			return scale
		}
		return 0
	})
	kappa0Feat, err := tensor.ConcatCols(pos, neg)
	if err != nil {
		return nil, err
	}

	ntkM, err := pp.ts.Sketch(f.NTK, kappa0Feat, false)
	if err != nil {
		return nil, err
	}
	ntkC := ntkM.(*tensor.CDense)

	var nngp, ntk tensor.Matrix = nngpC, ntkC
	if topLayer {
		nngp = nngpC.RealImagConcat()
		ntk = ntkC.RealImagConcat()
	}
	if nngp, err = reshapeTo(nngp, leading); err != nil {
		return nil, err
	}
	if ntk, err = reshapeTo(ntk, leading); err != nil {
		return nil, err
	}
	return f.replace(nngp, ntk, f.Norms), nil
}

func applyReluPoly(f *Features, p Params) (*Features, error) {
	pp, ok := p.(*polyParams)
	if !ok {
		return nil, wrongParams("relu poly features", p)
	}
	nngp2d, err := tensor.AsDense(f.NNGP, "relu poly method")
	if err != nil {
		return nil, err
	}
	ntk2d, err := tensor.AsDense(f.NTK, "relu poly method")
	if err != nil {
		return nil, err
	}
	leading := f.NNGP.Shape().Leading()

	gram := nngp2d.Gram()
	nngp, err := tensor.Cholesky(polyfit.PolyEval(gram, pp.kappa1))
	if err != nil {
		return nil, fmt.Errorf("kappa1 polynomial factorization: %w", err)
	}

	kappa0Mat := polyfit.PolyEval(gram, pp.kappa0)
	ntkGram, err := ntk2d.Gram().Mul(kappa0Mat)
	if err != nil {
		return nil, err
	}
	ntk, err := tensor.Cholesky(ntkGram)
	if err != nil {
		return nil, fmt.Errorf("ntk polynomial factorization: %w", err)
	}

	nngpOut, err := reshapeTo(nngp, leading)
	if err != nil {
		return nil, err
	}
	ntkOut, err := reshapeTo(ntk, leading)
	if err != nil {
		return nil, err
	}
	return f.replace(nngpOut, ntkOut, f.Norms), nil
}

func applyReluExact(f *Features, p Params) (*Features, error) {
	if _, ok := p.(noParams); !ok {
		return nil, wrongParams("relu exact features", p)
	}
	nngp2d, err := tensor.AsDense(f.NNGP, "relu exact method")
	if err != nil {
		return nil, err
	}
	ntk2d, err := tensor.AsDense(f.NTK, "relu exact method")
	if err != nil {
		return nil, err
	}
	leading := f.NNGP.Shape().Leading()

	nngp, err := tensor.Cholesky(polyfit.Kappa1(nngp2d))
	if err != nil {
		return nil, fmt.Errorf("kappa1 factorization: %w", err)
	}
	ntkGram, err := ntk2d.Gram().Mul(polyfit.Kappa0(nngp2d))
	if err != nil {
		return nil, err
	}
	ntk, err := tensor.Cholesky(ntkGram)
	if err != nil {
		return nil, fmt.Errorf("ntk factorization: %w", err)
	}

	nngpOut, err := reshapeTo(nngp, leading)
	if err != nil {
		return nil, err
	}
	ntkOut, err := reshapeTo(ntk, leading)
	if err != nil {
		return nil, err
	}
	return f.replace(nngpOut, ntkOut, f.Norms), nil
}

// realImagSplit concatenates the real and imaginary parts of a matrix along
// the column axis; a real matrix is padded with a zero imaginary half.
func realImagSplit(m tensor.Matrix) *tensor.Dense {
	switch t := m.(type) {
	case *tensor.Dense:
		zeros := tensor.NewDense(t.Shape())
		out, _ := tensor.ConcatCols(t, zeros)
		return out
	case *tensor.CDense:
		return t.RealImagConcat()
	}
	panic(fmt.Sprintf("features: unsupported matrix type %T", m))
}
