package core

import (
	"github.com/cznic-labs/snmalloc-go/internal/backend"
	"github.com/cznic-labs/snmalloc-go/internal/pagemap"
	"github.com/cznic-labs/snmalloc-go/internal/sizeclass"
	"github.com/cznic-labs/snmalloc-go/internal/slab"
)

// Where identifies which boundary of an object ExternalPointer computes.
type Where int

const (
	Start Where = iota
	End
	OnePastEnd
)

// AllocSize returns the class size (>= originally requested) for an
// owned address, else 0.
func (a *Allocator) AllocSize(addr uintptr) int {
	if addr == 0 {
		return 0
	}
	entry := a.backend.Pagemap.GetBoundable(addr)
	if size, ok := backend.IsLargeTag(entry.Sizeclass); ok {
		return size
	}
	if entry.Meta == nil {
		return 0
	}
	return sizeclass.SizeclassToSize(sizeclass.T(entry.Sizeclass))
}

// ExternalPointer resolves any interior pointer to the start/end/
// one-past-end of its owning object using the size class's reciprocal
// multiplier (no division).
func (a *Allocator) ExternalPointer(addr uintptr, where Where) uintptr {
	entry := a.backend.Pagemap.GetBoundable(addr)

	if size, ok := backend.IsLargeTag(entry.Sizeclass); ok {
		// A large allocation is a single object spanning the whole
		// chunk; its slab "base" is simply the chunk's aligned start,
		// recoverable by masking addr to the chunk's alignment.
		base := addr &^ (uintptr(size) - 1)
		return boundaryOf(base, size, where)
	}

	if entry.Meta == nil {
		// Unowned pointer: behaves as a no-op offset, monotone in p.
		return addr
	}
	meta := metaOf(entry)
	if meta == nil {
		return addr
	}
	sc := sizeclass.T(entry.Sizeclass)
	c := sizeclass.Lookup(sc)
	offset := addr - meta.Base
	idx := sizeclass.IndexInSlab(sc, offset)
	objStart := meta.Base + uintptr(idx*c.Size)
	return boundaryOf(objStart, c.Size, where)
}

func metaOf(entry pagemap.Entry) *slab.Meta {
	return (*slab.Meta)(entry.Meta)
}

func boundaryOf(start uintptr, size int, where Where) uintptr {
	switch where {
	case End:
		return start + uintptr(size) - 1
	case OnePastEnd:
		return start + uintptr(size)
	default:
		return start
	}
}

// CheckBounds reports whether [p, p+n) lies within the same allocation
// as p.
func (a *Allocator) CheckBounds(p uintptr, n int) bool {
	start := a.ExternalPointer(p, Start)
	end := a.ExternalPointer(p, OnePastEnd)
	return p+uintptr(n) <= end && p >= start
}
