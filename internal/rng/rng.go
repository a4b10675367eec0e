// Package rng provides explicit splittable PRNG keys for deterministic
// parameter initialization.
//
// A Key fully determines every random draw made from it; splitting a key
// derives independent child keys, so threading one seed through an
// initializer pass reproduces the same projection matrices and sketch
// operators on every run. There is no global random state.
package rng

import (
	"math/rand/v2"
)

// Key is a splittable PRNG seed.
type Key uint64

// NewKey creates a key from a seed value.
func NewKey(seed uint64) Key { return Key(splitmix64(uint64(seed) + goldenGamma)) }

// goldenGamma is the SplitMix64 increment (2^64 / phi, rounded to odd).
const goldenGamma = 0x9e3779b97f4a7c15

func splitmix64(x uint64) uint64 {
	x += goldenGamma
	z := x
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Split derives n independent child keys. The parent key remains usable but
// by convention is consumed by the split, mirroring splittable-seed APIs.
func (k Key) Split(n int) []Key {
	out := make([]Key, n)
	state := uint64(k)
	for i := range out {
		state = splitmix64(state)
		out[i] = Key(state)
	}
	return out
}

// source creates the deterministic generator backing a key's draws.
func (k Key) source() *rand.Rand {
	return rand.New(rand.NewPCG(uint64(k), splitmix64(uint64(k))))
}

// Normal fills a matrix of the given row/column dimensions with independent
// standard normal draws.
func (k Key) Normal(rows, cols int) []float64 {
	r := k.source()
	out := make([]float64, rows*cols)
	for i := range out {
		out[i] = r.NormFloat64()
	}
	return out
}

// Signs draws n independent Rademacher (±1) values.
func (k Key) Signs(n int) []float64 {
	r := k.source()
	out := make([]float64, n)
	for i := range out {
		if r.Uint64()&1 == 0 {
			out[i] = 1
		} else {
			out[i] = -1
		}
	}
	return out
}

// Choice draws n independent uniform indices in [0, bound).
func (k Key) Choice(bound, n int) []int {
	r := k.source()
	out := make([]int, n)
	for i := range out {
		out[i] = int(r.Uint64N(uint64(bound)))
	}
	return out
}
