package rng

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestKeyDeterminism tests that equal seeds reproduce identical draws.
func TestKeyDeterminism(t *testing.T) {
	a := NewKey(42).Normal(3, 4)
	b := NewKey(42).Normal(3, 4)
	assert.Equal(t, a, b)
	require.Len(t, a, 12)

	c := NewKey(43).Normal(3, 4)
	assert.NotEqual(t, a, c)
}

// TestSplitIndependence tests that split children differ from each other and
// from the parent.
func TestSplitIndependence(t *testing.T) {
	key := NewKey(7)
	keys := key.Split(4)
	require.Len(t, keys, 4)

	seen := map[Key]bool{key: true}
	for _, k := range keys {
		assert.False(t, seen[k], "duplicate key from split")
		seen[k] = true
	}

	// Splitting again yields the same children.
	again := key.Split(4)
	assert.Equal(t, keys, again)
}

// TestSigns tests the Rademacher draw.
func TestSigns(t *testing.T) {
	signs := NewKey(1).Signs(1024)
	var pos int
	for _, s := range signs {
		require.True(t, s == 1 || s == -1)
		if s == 1 {
			pos++
		}
	}
	// Both signs occur in a large draw.
	assert.Greater(t, pos, 0)
	assert.Less(t, pos, 1024)
}

// TestChoice tests index bounds.
func TestChoice(t *testing.T) {
	inds := NewKey(9).Choice(10, 100)
	require.Len(t, inds, 100)
	for _, i := range inds {
		assert.GreaterOrEqual(t, i, 0)
		assert.Less(t, i, 10)
	}
}

// TestNormalMoments tests a loose sanity bound on the standard normal draw.
func TestNormalMoments(t *testing.T) {
	xs := NewKey(5).Normal(100, 100)
	var mean, second float64
	for _, x := range xs {
		mean += x
		second += x * x
	}
	mean /= float64(len(xs))
	second /= float64(len(xs))
	assert.InDelta(t, 0.0, mean, 0.05)
	assert.InDelta(t, 1.0, second, 0.05)
}
