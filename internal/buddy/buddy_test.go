package buddy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTreeSplitAndCoalesce(t *testing.T) {
	tr := NewTree(4, 8) // orders 16..256
	tr.AddBlock(0x1000, 256, func(uintptr, int) bool { return true })

	a, ok := tr.RemoveBlock(16)
	require.True(t, ok)
	require.Equal(t, uintptr(0x1000), a)

	b, ok := tr.RemoveBlock(16)
	require.True(t, ok)
	require.Equal(t, uintptr(0x1010), b)

	// Returning both buddies should coalesce all the way back to the
	// original 256-byte block.
	overflowA := tr.AddBlock(a, 16, func(uintptr, int) bool { return true })
	overflowB := tr.AddBlock(b, 16, func(uintptr, int) bool { return true })
	require.False(t, overflowA)
	require.False(t, overflowB)

	whole, ok := tr.RemoveBlock(256)
	require.True(t, ok)
	require.Equal(t, uintptr(0x1000), whole)
}

func TestTreeExhaustion(t *testing.T) {
	tr := NewTree(4, 5) // orders 16, 32
	tr.AddBlock(0, 32, func(uintptr, int) bool { return true })

	_, ok := tr.RemoveBlock(32)
	require.True(t, ok)
	_, ok = tr.RemoveBlock(16)
	require.False(t, ok)
}

func TestTreeBoundaryBlocksDoNotCoalesce(t *testing.T) {
	tr := NewTree(4, 8)
	// canConsolidate checks the flag on the pair's lower address (0x1000),
	// matching buddy.LargeBuddyRange's own canConsolidate: a boundary
	// flag marks the start of an externally supplied range that must
	// never be merged with whatever (if anything) precedes it.
	boundary := map[uintptr]bool{0x1000: true}
	canConsolidate := func(base uintptr, order int) bool {
		lo := base
		if bdy := base ^ (1 << order); bdy < lo {
			lo = bdy
		}
		return !boundary[lo]
	}

	overflow := tr.AddBlock(0x1000, 16, canConsolidate)
	require.False(t, overflow)
	overflow = tr.AddBlock(0x1010, 16, canConsolidate)
	require.False(t, overflow)

	// The boundary flag on 0x1000 should have prevented coalescing, so
	// both 16-byte blocks remain independently allocatable.
	_, ok := tr.RemoveBlock(32)
	require.False(t, ok)
	_, ok = tr.RemoveBlock(16)
	require.True(t, ok)
	_, ok = tr.RemoveBlock(16)
	require.True(t, ok)
}

func TestLowestAddressReturnedFirst(t *testing.T) {
	tr := NewTree(4, 8)
	tr.AddBlock(0x2000, 16, func(uintptr, int) bool { return true })
	tr.AddBlock(0x1000, 16, func(uintptr, int) bool { return true })

	a, _ := tr.RemoveBlock(16)
	require.Equal(t, uintptr(0x1000), a)
	b, _ := tr.RemoveBlock(16)
	require.Equal(t, uintptr(0x2000), b)
}
