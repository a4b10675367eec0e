package polyfit

import (
	"math"

	"github.com/tangent-ml/tangent/internal/tensor"
)

// KappaScalar0 evaluates the order-0 arc-cosine kernel at a cosine t.
func KappaScalar0(t float64) float64 {
	return 1 - math.Acos(clip(t))/math.Pi
}

// KappaScalar1 evaluates the order-1 arc-cosine kernel at a cosine t.
func KappaScalar1(t float64) float64 {
	t = clip(t)
	return (math.Sqrt(1-t*t) + t*(math.Pi-math.Acos(t))) / math.Pi
}

func clip(t float64) float64 {
	if t > 1 {
		return 1
	}
	if t < -1 {
		return -1
	}
	return t
}

// Kappa0 evaluates the order-0 kernel matrix of a feature matrix: entry
// (i, j) is kappa0 of the cosine similarity of rows i and j. The order-0
// kernel is scale-free, so row norms only enter through the normalization.
func Kappa0(x *tensor.Dense) *tensor.Dense {
	gram, _ := normalizedGram(x)
	n := gram.Rows()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			gram.Set(i, j, KappaScalar0(gram.At(i, j)))
		}
	}
	return gram
}

// Kappa1 evaluates the order-1 kernel matrix of a feature matrix: entry
// (i, j) is ‖x_i‖·‖x_j‖·kappa1(cosine). The order-1 kernel is homogeneous
// of degree one in each argument.
func Kappa1(x *tensor.Dense) *tensor.Dense {
	gram, norms := normalizedGram(x)
	n := gram.Rows()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			gram.Set(i, j, norms[i]*norms[j]*KappaScalar1(gram.At(i, j)))
		}
	}
	return gram
}

// normalizedGram returns the cosine-similarity matrix of x's rows along with
// the row norms. Zero rows get norm 1 to keep the division defined.
func normalizedGram(x *tensor.Dense) (*tensor.Dense, []float64) {
	gram := x.Gram()
	n := gram.Rows()
	norms := make([]float64, n)
	for i := 0; i < n; i++ {
		norms[i] = math.Sqrt(gram.At(i, i))
		if norms[i] == 0 {
			norms[i] = 1
		}
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			gram.Set(i, j, clip(gram.At(i, j)/(norms[i]*norms[j])))
		}
	}
	return gram, norms
}
