// Package exact computes closed-form NNGP and NTK kernel matrices for finite
// ReLU MLP architectures. It materializes full Gram matrices and is O(n²) in
// the batch size; it exists to validate the approximate feature maps, not to
// replace them.
package exact

import (
	"fmt"
	"math"

	"github.com/tangent-ml/tangent/internal/polyfit"
	"github.com/tangent-ml/tangent/internal/tensor"
)

// MLPKernels returns the exact NNGP and NTK Gram matrices of a network of
// numLayers Dense+ReLU blocks followed by a final Dense layer, in the NTK
// parameterization with weight standard deviation wStd and zero bias.
func MLPKernels(x *tensor.Dense, numLayers int, wStd float64) (nngp, ntk *tensor.Dense, err error) {
	if numLayers < 0 {
		return nil, nil, fmt.Errorf("exact: negative layer count %d", numLayers)
	}
	n, d := x.Rows(), x.Cols()
	w2 := wStd * wStd

	// First dense layer: K = W²/d · X·Xᵀ, Θ = K.
	k := x.Gram().Scale(w2 / float64(d))
	theta := k.Clone()

	diag := make([]float64, n)
	for l := 0; l < numLayers; l++ {
		for i := 0; i < n; i++ {
			diag[i] = math.Sqrt(k.At(i, i))
			if diag[i] == 0 {
				diag[i] = 1
			}
		}
		next := tensor.NewDense(tensor.Shape{n, n})
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				t := k.At(i, j) / (diag[i] * diag[j])
				k1 := polyfit.KappaScalar1(t)
				k0 := polyfit.KappaScalar0(t)
				// ReLU then Dense: K' = W²/2·‖·‖κ1, Θ' = K' + W²/2·κ0·Θ.
				kv := w2 / 2 * diag[i] * diag[j] * k1
				next.Set(i, j, kv)
				theta.Set(i, j, kv+w2/2*k0*theta.At(i, j))
			}
		}
		k = next
	}
	return k, theta, nil
}
