// Package snmallocgo is a concurrent, size-classed memory allocator in
// the style of snmalloc: a per-goroutine front-end cache over a shared
// size-classed back-end, with cross-thread deallocation carried by a
// wait-free MPSC queue per allocator rather than a global lock.
//
// A process uses a single *Heap, obtained with New, for its lifetime.
// Each goroutine that calls into the heap is lazily bound to its own
// Allocator the first time it allocates; Teardown returns that binding
// to the shared pool, for goroutines with a bounded lifetime that would
// otherwise accumulate idle allocators.
package snmallocgo

import (
	"errors"

	"github.com/cznic-labs/snmalloc-go/internal/boundscheck"
	"github.com/cznic-labs/snmalloc-go/internal/config"
	"github.com/cznic-labs/snmalloc-go/internal/core"
)

// Where selects which boundary of an allocation ExternalPointer resolves
// an interior pointer to.
type Where = core.Where

const (
	Start      = core.Start
	End        = core.End
	OnePastEnd = core.OnePastEnd
)

// ErrUnowned is returned by Dealloc for an address the heap never
// allocated.
var ErrUnowned = core.ErrUnowned

// ErrBadAlignment is returned by AllocAligned for a non-power-of-two
// alignment request.
var ErrBadAlignment = core.ErrBadAlignment

// ErrSizeMismatch is returned by DeallocSized when SanityChecks is
// enabled and the supplied size is larger than the pointer's usable size
// (AllocSize). A smaller size that belongs to a different size class is
// not detected.
var ErrSizeMismatch = errors.New("snmalloc: dealloc size does not match allocation's size class")

// Heap is a process-wide allocator instance. The zero value is not
// usable; construct with New.
type Heap struct {
	mgr *core.Manager
}

// New constructs a Heap. hardened turns on guard-paged metadata
// allocation at the cost of extra address-space reservation and is
// intended for builds that want corruption to fail fast rather than
// silently.
func New(hardened bool) *Heap {
	return &Heap{mgr: core.NewManager(hardened)}
}

// Close stops the heap's background decay ticker. A Heap whose process
// is exiting doesn't need to call this; it exists for tests and for
// embedding a Heap with a shorter lifetime than the process.
func (h *Heap) Close() { h.mgr.Close() }

// Alloc returns a pointer to size bytes of uninitialized memory, as a
// uintptr so callers can store it in ordinary Go data structures without
// the garbage collector trying to scan or move the memory it designates.
// size == 0 is promoted to config.MinAllocSize, so the result is always
// a valid, distinct, freeable pointer.
func (h *Heap) Alloc(size int) (uintptr, error) {
	if size <= 0 {
		size = config.MinAllocSize
	}
	return h.mgr.Current().Alloc(size, false)
}

// AllocZeroed is Alloc with the memory cleared before it's returned.
func (h *Heap) AllocZeroed(size int) (uintptr, error) {
	if size <= 0 {
		size = config.MinAllocSize
	}
	return h.mgr.Current().Alloc(size, true)
}

// AllocAligned returns a pointer to size bytes whose address is a
// multiple of align. align must be a power of two.
func (h *Heap) AllocAligned(align, size int) (uintptr, error) {
	return h.mgr.Current().AllocAligned(align, size, false)
}

// Dealloc frees a pointer previously returned by this Heap. addr == 0 is
// a no-op, matching free(NULL).
func (h *Heap) Dealloc(addr uintptr) error {
	if addr == 0 {
		return nil
	}
	return h.mgr.Current().Dealloc(addr)
}

// DeallocSized frees addr. When config.SanityChecks is enabled it first
// returns ErrSizeMismatch, without freeing, if size exceeds the usable
// size the allocator reports for addr; a smaller size is accepted even
// when it falls in a different size class.
func (h *Heap) DeallocSized(addr uintptr, size int) error {
	if addr == 0 {
		return nil
	}
	if config.SanityChecks {
		if got := h.mgr.Current().AllocSize(addr); got != 0 && got < size {
			return ErrSizeMismatch
		}
	}
	return h.mgr.Current().Dealloc(addr)
}

// AllocSize reports the usable size of the allocation containing addr,
// which may exceed the size originally requested since every
// allocation is rounded up to its size class, or 0 if addr is unowned.
func (h *Heap) AllocSize(addr uintptr) int {
	return h.mgr.Current().AllocSize(addr)
}

// ExternalPointer resolves any interior pointer into its owning
// allocation's start, inclusive end, or one-past-end address. An unowned pointer is returned
// unchanged.
func (h *Heap) ExternalPointer(addr uintptr, where Where) uintptr {
	return h.mgr.Current().ExternalPointer(addr, where)
}

// CheckBounds reports whether the n-byte range starting at addr lies
// entirely within the single allocation addr belongs to.
func (h *Heap) CheckBounds(addr uintptr, n int) bool {
	return h.mgr.Current().CheckBounds(addr, n)
}

// CheckedCopy copies n bytes from src into the allocation starting at
// dstAddr, aborting the process rather than writing past its end. dst
// must be the Go slice view backed by dstAddr (e.g. obtained via
// AllocSize + unsafe.Slice at the call site); this resolves dstAddr's
// owning allocation itself, so callers don't have to. n is checked
// against the allocation's real bounds as given, so a caller asking to
// copy more than the allocation holds aborts rather than being silently
// truncated to whatever fits.
func (h *Heap) CheckedCopy(dst, src []byte, n int, dstAddr uintptr) int {
	a := h.mgr.Current()
	start := a.ExternalPointer(dstAddr, Start)
	end := a.ExternalPointer(dstAddr, OnePastEnd)
	return boundscheck.CheckedCopy(dst, src, n, start, end, dstAddr)
}

// Flush drains the calling goroutine's cross-thread dealloc inbox and
// forces its outbound remote-free batches out, without releasing the
// goroutine's allocator binding. Useful for tests that want deterministic
// cross-thread visibility without waiting on the batch thresholds.
func (h *Heap) Flush() {
	h.mgr.Current().Flush()
}

// Teardown flushes and returns the calling goroutine's allocator to the
// shared pool, clearing the goroutine-local binding. A later Alloc/Dealloc call on the same
// goroutine binds a (possibly reused) allocator again.
func (h *Heap) Teardown() {
	h.mgr.Teardown()
}

// DebugCheckEmpty reports whether every allocator this heap has ever
// created currently holds no live allocations. Intended for tests, not production call sites.
func (h *Heap) DebugCheckEmpty() bool {
	return h.mgr.DebugCheckEmpty()
}

// Stats returns the current and peak bytes committed for object storage
// and for slab metadata accounting.
func (h *Heap) Stats() (objectCurrent, objectPeak, metaCurrent, metaPeak int64) {
	return h.mgr.Stats()
}
