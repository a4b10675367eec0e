package tensor

import (
	"math"
	"math/bits"
)

// FFT computes the unnormalized discrete Fourier transform of x in place and
// returns it. Power-of-two lengths use an iterative radix-2 transform;
// anything else falls back to a direct DFT.
//
// The sketch primitives only need the transform as a fast structured unitary
// mixing step, so no inverse is provided.
func FFT(x []complex128) []complex128 {
	n := len(x)
	if n <= 1 {
		return x
	}
	if n&(n-1) == 0 {
		return fftRadix2(x)
	}
	return dft(x)
}

// RowFFT applies FFT to every row of the 2-D view of a complex matrix,
// returning a new matrix.
func RowFFT(c *CDense) *CDense {
	out := c.Clone()
	cols := out.Cols()
	for i := 0; i < out.Rows(); i++ {
		FFT(out.data[i*cols : (i+1)*cols])
	}
	return out
}

func fftRadix2(x []complex128) []complex128 {
	n := len(x)
	shift := 64 - uint(bits.TrailingZeros(uint(n)))
	for i := 0; i < n; i++ {
		j := int(bits.Reverse64(uint64(i)) >> shift)
		if j > i {
			x[i], x[j] = x[j], x[i]
		}
	}
	for size := 2; size <= n; size *= 2 {
		half := size / 2
		step := -2 * math.Pi / float64(size)
		for start := 0; start < n; start += size {
			for k := 0; k < half; k++ {
				s, c := math.Sincos(step * float64(k))
				w := complex(c, s)
				a := x[start+k]
				b := x[start+k+half] * w
				x[start+k] = a + b
				x[start+k+half] = a - b
			}
		}
	}
	return x
}

func dft(x []complex128) []complex128 {
	n := len(x)
	out := make([]complex128, n)
	for k := 0; k < n; k++ {
		var sum complex128
		for t := 0; t < n; t++ {
			s, c := math.Sincos(-2 * math.Pi * float64(k) * float64(t) / float64(n))
			sum += x[t] * complex(c, s)
		}
		out[k] = sum
	}
	copy(x, out)
	return x
}
