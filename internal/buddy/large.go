package buddy

import (
	"github.com/cznic-labs/snmalloc-go/internal/config"
	"github.com/cznic-labs/snmalloc-go/internal/pagemap"
)

// LargeBuddyRange operates on chunk-aligned addresses, sized
// [config.MinChunkBits, MAX_SIZE_BITS], marking the boundary flag on
// pagemap entries so an externally supplied range's
// split point is never coalesced with an earlier sibling.
type LargeBuddyRange struct {
	tree *Tree
	pm   *pagemap.Map
}

// NewLargeBuddyRange constructs a large buddy over
// [config.MinChunkBits, maxBits].
func NewLargeBuddyRange(pm *pagemap.Map, maxBits int) *LargeBuddyRange {
	return &LargeBuddyRange{
		tree: NewTree(config.MinChunkBits, maxBits),
		pm:   pm,
	}
}

// AllocRange removes and returns the lowest-address free block of size
// bytes (a power of two >= config.MinChunkSize), or ok=false on miss.
func (r *LargeBuddyRange) AllocRange(size int) (uintptr, bool) {
	return r.tree.RemoveBlock(size)
}

// DeallocRange returns [base, base+size) to the tree, coalescing with
// its buddy unless the buddy's first granule carries FlagBoundary.
func (r *LargeBuddyRange) DeallocRange(base uintptr, size int) (overflowed bool) {
	return r.tree.AddBlock(base, size, r.canConsolidate)
}

// MarkBoundary flags addr's granule so a future coalesce attempt across
// it is refused; used when PagemapRegisterRange installs an externally
// supplied range that must not merge with an address below it.
func (r *LargeBuddyRange) MarkBoundary(addr uintptr) {
	e := r.pm.Get(addr)
	e.Flags |= pagemap.FlagBoundary
	r.pm.Set(addr, e)
}

func (r *LargeBuddyRange) canConsolidate(base uintptr, order int) bool {
	buddy := base ^ (uintptr(1) << order)
	lo := base
	if buddy < lo {
		lo = buddy
	}
	return !r.pm.Get(lo).Has(pagemap.FlagBoundary)
}
