// Package core implements the core (per-goroutine) allocator: owns the
// slab metadata lists, the small-size-class local free-list cache, and
// the refill/chunk-creation slow paths, wired to the cross-thread
// dealloc queue and the back-end chunk allocator.
package core

import (
	"fmt"
	"unsafe"

	"github.com/cznic-labs/snmalloc-go/internal/backend"
	"github.com/cznic-labs/snmalloc-go/internal/config"
	"github.com/cznic-labs/snmalloc-go/internal/pagemap"
	"github.com/cznic-labs/snmalloc-go/internal/remote"
	"github.com/cznic-labs/snmalloc-go/internal/sizeclass"
	"github.com/cznic-labs/snmalloc-go/internal/slab"
	"github.com/cznic-labs/snmalloc-go/internal/xlog"
)

// refillBatch bounds how many objects a single refill slow-path call
// drains from a slab's internal free queue into the local cache.
const refillBatch = 64

// remoteDrainBatch bounds how many inbox entries are processed per
// opportunistic drain, so Alloc never spends unbounded time servicing
// another thread's frees.
const remoteDrainBatch = 256

// Allocator is one logical per-thread (here: per-goroutine-affine)
// allocator instance.
type Allocator struct {
	id      uintptr
	backend *backend.Backend

	localFree [][]uintptr // per size class, LIFO cache of ready object addresses
	available []slab.AvailableList

	inbox *remote.Queue
	batch *remote.Batch

	allocs int64
	frees  int64
}

// New constructs a fresh allocator bound to backend b and registers it
// for cross-thread delivery.
func New(b *backend.Backend) *Allocator {
	n := sizeclass.Count()
	a := &Allocator{
		backend:   b,
		localFree: make([][]uintptr, n),
		available: make([]slab.AvailableList, n),
		inbox:     remote.NewQueue(),
		batch:     remote.NewBatch(),
	}
	a.id = uintptr(unsafe.Pointer(a))
	register(a.id, a)
	return a
}

// Alloc returns a freshly allocated object of the given size. size must
// be > 0 (callers map a 0-byte request to config.MinAllocSize at the
// public API boundary, so alloc(0) still returns a valid, freeable,
// non-zero-alloc_size pointer).
func (a *Allocator) Alloc(size int, zero bool) (uintptr, error) {
	a.drainInboxBounded()

	if sizeclass.IsSmall(size) {
		return a.allocSmall(sizeclass.SizeToSizeclass(size), zero)
	}
	return a.allocLarge(size, zero)
}

func (a *Allocator) allocSmall(sc sizeclass.T, zero bool) (uintptr, error) {
	for {
		if list := a.localFree[sc]; len(list) > 0 {
			addr := list[len(list)-1]
			a.localFree[sc] = list[:len(list)-1]
			a.allocs++
			if zero {
				zeroObject(addr, sizeclass.SizeclassToSize(sc))
			}
			return addr, nil
		}

		if m := a.available[sc].Front(); m != nil {
			n := a.refillFrom(sc, m)
			if n == 0 {
				// The available list only ever holds slabs with a
				// non-empty free queue, so this shouldn't happen; guard
				// it anyway rather than spinning forever on a slab that
				// can't refill.
				a.available[sc].Remove(m)
				continue
			}
			if m.FreeQueueEmpty() {
				// The refill just drained the slab's entire internal
				// free queue in one call. It is now "full" from this
				// allocator's perspective (every remaining object is
				// either in a's local cache or handed out), so it must
				// come off the available list now, not wait for a
				// dealloc to notice: otherwise a subsequent PushLocal
				// on one of these objects sees wasFull and pushes it
				// back onto a list it never left.
				a.available[sc].Remove(m)
			}
			continue
		}

		chunk, meta, err := a.backend.AllocChunk(a.id, sc)
		if err != nil {
			return 0, err
		}
		if meta == nil {
			return 0, fmt.Errorf("snmalloc: out of memory allocating size class %d", sc)
		}
		_ = chunk
		a.available[sc].PushFront(meta)
	}
}

// refillFrom drains up to refillBatch objects from m's internal free
// queue into the local cache for sc, returning how many were taken.
func (a *Allocator) refillFrom(sc sizeclass.T, m *slab.Meta) int {
	var buf [refillBatch]uintptr
	n := m.RefillInto(buf[:])
	if n > 0 {
		a.localFree[sc] = append(a.localFree[sc], buf[:n]...)
	}
	return n
}

func zeroObject(addr uintptr, size int) {
	b := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	for i := range b {
		b[i] = 0
	}
}

// drainInboxBounded is the bounded, opportunistic call Alloc makes to
// service this allocator's own cross-thread inbox before touching the
// slow path, so objects freed remotely become available for local reuse
// promptly without an unbounded pause.
func (a *Allocator) drainInboxBounded() {
	nodes := a.inbox.Dequeue(remoteDrainBatch, nil)
	for _, n := range nodes {
		a.applyRemoteFree(n.Addr, n.Sizeclass)
	}
}

func (a *Allocator) applyRemoteFree(addr uintptr, sc uint8) {
	if size, ok := backend.IsLargeTag(sc); ok {
		a.deallocLargeAddr(addr, size)
		return
	}
	entry := a.backend.Pagemap.Get(addr)
	meta := (*slab.Meta)(entry.Meta)
	if meta == nil {
		xlog.Fatalf("remote free of %#x resolved to no slab metadata", addr)
	}
	a.pushLocalFree(sizeclass.T(entry.Sizeclass), meta, addr)
}

// pushLocalFree is the dealloc slow path shared by local frees of
// already-decoded addresses and applied remote frees: it returns addr to
// its owning slab's free queue and relinks/extracts the slab per the
// used-counter transition.
func (a *Allocator) pushLocalFree(sc sizeclass.T, m *slab.Meta, addr uintptr) {
	switch m.PushLocal(addr) {
	case slab.TransitionWasFull:
		a.available[sc].PushFront(m)
	case slab.TransitionFullyFree:
		a.reclaimSlab(sc, m)
	}
	a.frees++
}

func (a *Allocator) reclaimSlab(sc sizeclass.T, m *slab.Meta) {
	a.available[sc].Remove(m)
	chunk := unsafe.Slice((*byte)(unsafe.Pointer(m.Base)), m.Size)
	a.backend.DeallocChunk(m, chunk)
}

// Identity returns the allocator's routing identity, the value stored as
// pagemap.Entry.Owner for every chunk it creates.
func (a *Allocator) Identity() uintptr { return a.id }

// Pagemap exposes the shared backend pagemap for the public API package.
func (a *Allocator) Pagemap() *pagemap.Map { return a.backend.Pagemap }
