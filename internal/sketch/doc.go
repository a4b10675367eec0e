// Package sketch implements the randomized dimensionality-reduction
// primitives consumed by the feature pipeline: the subsampled randomized
// Hadamard-style transform (SRHT), the degree-2 tensor-product sketch
// (TensorSRHT), and the polynomial tensor sketch that embeds the monomial
// basis of an inner product.
//
// All sketches are complex-valued: each applies random signs, a row FFT, and
// coordinate subsampling. Inner products are preserved in expectation,
// E⟨Sx, Sy⟩ = ⟨x, y⟩, with the imaginary part vanishing in expectation;
// consumers take real parts (or concatenate real and imaginary components)
// at the end of a pipeline.
//
// Construction is deterministic in the provided rng.Key.
package sketch
