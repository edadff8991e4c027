package core

import (
	"errors"

	"github.com/cznic-labs/snmalloc-go/internal/config"
	"github.com/cznic-labs/snmalloc-go/internal/sizeclass"
)

// ErrBadAlignment is returned when AllocAligned is asked for a
// non-power-of-two alignment.
var ErrBadAlignment = errors.New("snmalloc: alignment must be a power of two")

// AllocAligned returns an object of size n aligned to align, a power of
// two. The buddy allocators underlying the large path always hand back
// blocks naturally aligned to their own (power-of-two) size; this is
// reused here rather than building a separate aligned sub-allocator. A
// request whose
// alignment doesn't exceed a small size class's own natural alignment is
// served by the ordinary small path, since every small size class is
// itself laid out at a power-of-two stride from a chunk-aligned base.
func (a *Allocator) AllocAligned(align, n int, zero bool) (uintptr, error) {
	if align <= 0 || align&(align-1) != 0 {
		return 0, ErrBadAlignment
	}
	if n <= 0 {
		n = config.MinAllocSize
	}
	if align <= config.MinAllocSize && sizeclass.IsSmall(n) {
		return a.Alloc(n, zero)
	}

	size := n
	if size < align {
		size = align
	}
	size = nextPow2(size)
	return a.allocLarge(size, zero)
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
