// Package polyfit provides the arc-cosine kernel functions arising from the
// ReLU nonlinearity and polynomial approximations of them.
//
// kappa1 is the (normalized) order-1 arc-cosine kernel, the correlation of
// ReLU outputs; kappa0 is the order-0 kernel, the correlation of ReLU
// derivatives (sign indicators). Both map a cosine similarity in [-1, 1] to
// [0, 1] with kappa(1) = 1.
//
// Coefficient fitting produces non-negative polynomial coefficients by
// weighted non-negative least squares over a Chebyshev grid; non-negativity
// is required downstream, where the sketch expansion weights features by the
// square roots of the coefficients. Weights concentrate accuracy near t = 1,
// where post-activation correlations accumulate as depth grows.
package polyfit
