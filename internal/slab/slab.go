// Package slab implements per-slab metadata and the owning allocator's
// available-slab lists.
package slab

import (
	"math/rand"
	"unsafe"

	"github.com/cznic-labs/snmalloc-go/internal/config"
	"github.com/cznic-labs/snmalloc-go/internal/freelist"
	"github.com/cznic-labs/snmalloc-go/internal/sizeclass"
	"github.com/cznic-labs/snmalloc-go/internal/xlog"
)

// Meta is one record per active slab.
type Meta struct {
	Base      uintptr
	Size      int
	Sizeclass sizeclass.T
	Key       freelist.Key

	head     uintptr // encoded free-queue head
	used     int     // objects outstanding; 0 == fully free
	inList   bool
	prev     *Meta
	next     *Meta
	Owner    uintptr // owning allocator identity

	// Backing is the meta-range-accounted byte block associated with
	// this metadata record (see backend.AllocChunk's doc comment); it
	// carries no data, only byte accounting and guard placement.
	Backing []byte
}

// New builds slab metadata for a freshly carved chunk, populating its
// free queue with every object in the slab, in a per-slab random
// permutation when config.RandomSlabInit is enabled.
func New(base uintptr, sc sizeclass.T, key freelist.Key, owner uintptr) *Meta {
	c := sizeclass.Lookup(sc)
	m := &Meta{
		Base:      base,
		Size:      c.SlabSize,
		Sizeclass: sc,
		Key:       key,
		used:      0,
		Owner:     owner,
	}

	order := make([]int, c.ObjectsPerSlab)
	for i := range order {
		order[i] = i
	}
	if config.RandomSlabInit {
		rand.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	b := freelist.NewBuilder(key)
	for _, idx := range order {
		addr := base + uintptr(idx*c.Size)
		b.Push(addr)
	}
	first, _, _ := b.Segment()
	m.head = first
	return m
}

// ObjectCount returns the slab's total object capacity.
func (m *Meta) ObjectCount() int { return sizeclass.Lookup(m.Sizeclass).ObjectsPerSlab }

// Used returns the live (outstanding) object count.
func (m *Meta) Used() int { return m.used }

// FullyFree reports whether every object in the slab has been returned.
func (m *Meta) FullyFree() bool { return m.used == 0 }

// RefillInto drains up to len(dst) objects from the slab's internal free
// queue into dst, returning how many were taken. Every
// object it yields counts against used from this point on, whether or not
// it has yet been handed to the application: once an object leaves the
// slab's own free queue, the slab can no longer consider it free.
func (m *Meta) RefillInto(dst []uintptr) int {
	it := freelist.NewIter(m.Key, m.head, m.Base, uintptr(m.Size))
	n := it.TakeN(dst)
	m.head = it.Head()
	m.used += n
	return n
}

// FreeQueueEmpty reports whether the slab's own free queue (not yet
// drained into any allocator's local list) is empty.
func (m *Meta) FreeQueueEmpty() bool { return m.head == 0 }

// PushLocal returns addr (an object within this slab) to the slab's free
// queue on a local dealloc, decrementing used. Returns the transition
// that occurred so the caller (core allocator) can relink/extract the
// slab as needed.
func (m *Meta) PushLocal(addr uintptr) Transition {
	if addr < m.Base || addr >= m.Base+uintptr(m.Size) {
		xlog.Fatalf("dealloc: address %#x outside owning slab [%#x,%#x)", addr, m.Base, m.Base+uintptr(m.Size))
	}

	wasFull := m.used == m.ObjectCount()
	b := freelist.NewBuilder(m.Key)
	// Re-attach the existing queue behind the pushed object so the
	// slab's free queue remains one chain.
	b.Push(addr)
	first, _, _ := b.Segment()
	patchNext(m.Key, first, m.head)
	m.head = first
	m.used--

	switch {
	case m.used == 0:
		return TransitionFullyFree
	case wasFull:
		return TransitionWasFull
	default:
		return TransitionNone
	}
}

func patchNext(key freelist.Key, first, oldHead uintptr) {
	// Builder.Push already encoded `first` with next=0 (since it was
	// built fresh); splice oldHead on as the true successor.
	freelist.Relink(key, first, oldHead)
}

// Transition describes what PushLocal's dealloc caused.
type Transition int

const (
	TransitionNone Transition = iota
	TransitionWasFull
	TransitionFullyFree
)

// Addr returns m's identity as an address for use as a map/pointer key
// in the available list and pagemap entries.
func (m *Meta) Addr() unsafe.Pointer { return unsafe.Pointer(m) }
