package buddy

import "github.com/cznic-labs/snmalloc-go/internal/config"

// SmallBuddyRange operates on sub-chunk power-of-two blocks, range
// [ceil(log2(config.MinAllocSize)), config.MinChunkBits]. It shares the
// exact same splitting/coalescing algorithm as LargeBuddyRange: small
// blocks never escape to a pagemap entry (only chunk-granule addresses
// do), so there is no boundary/consolidation bookkeeping to share with
// the pagemap at this level.
type SmallBuddyRange struct {
	tree *Tree
}

// NewSmallBuddyRange constructs a small buddy allocator.
func NewSmallBuddyRange() *SmallBuddyRange {
	minBits := 4 // ceil(log2(16))
	return &SmallBuddyRange{tree: NewTree(minBits, config.MinChunkBits)}
}

// AllocRange removes and returns the lowest-address free block of size
// bytes, or ok=false on miss.
func (r *SmallBuddyRange) AllocRange(size int) (uintptr, bool) {
	return r.tree.RemoveBlock(size)
}

// DeallocRange returns a block, always eligible for coalescing (small
// blocks never originate from an externally-supplied boundary range).
func (r *SmallBuddyRange) DeallocRange(base uintptr, size int) (overflowed bool) {
	return r.tree.AddBlock(base, size, func(uintptr, int) bool { return true })
}
