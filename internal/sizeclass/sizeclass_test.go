package sizeclass

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeToSizeclassRoundTrip(t *testing.T) {
	for n := 1; n <= 4096; n++ {
		sc := SizeToSizeclass(n)
		size := SizeclassToSize(sc)
		assert.GreaterOrEqualf(t, size, n, "size class for %d rounds down", n)
		if sc > 0 {
			smaller := SizeclassToSize(sc - 1)
			assert.Lessf(t, smaller, n, "size class for %d is not minimal", n)
		}
	}
}

func TestSizeclassTableMonotonic(t *testing.T) {
	require.Greater(t, Count(), 1)
	prev := 0
	for sc := 0; sc < Count(); sc++ {
		c := Lookup(T(sc))
		assert.Greater(t, c.Size, prev)
		assert.GreaterOrEqual(t, c.SlabSize, c.Size)
		assert.Equal(t, c.ObjectsPerSlab, c.SlabSize/c.Size)
		prev = c.Size
	}
}

func TestIsSmall(t *testing.T) {
	assert.True(t, IsSmall(1))
	assert.True(t, IsSmall(65536))
	assert.False(t, IsSmall(65537))
	assert.False(t, IsSmall(0))
}

func TestIndexInSlabMatchesDivision(t *testing.T) {
	for sc := T(0); int(sc) < Count(); sc++ {
		c := Lookup(sc)
		for i := 0; i < c.ObjectsPerSlab; i++ {
			offset := uintptr(i * c.Size)
			got := IndexInSlab(sc, offset)
			assert.Equalf(t, i, got, "sizeclass %d index %d", sc, i)
		}
	}
}
