// Package freelist implements the encoded singly-linked free lists used
// throughout the allocator: links are stored directly in the freed
// memory itself, the way a simple free-list overlays a "next" pointer
// onto a freed slot via unsafe.Pointer, but XOR/multiply-obfuscated
// against a per-slab key so a single wild write can't pivot the list to
// an attacker-chosen address and trivial use-after-free corruption is
// caught on decode rather than silently followed.
package freelist

import (
	"unsafe"

	"github.com/cznic-labs/snmalloc-go/internal/xlog"
)

// Key is the per-slab (or global) obfuscation key pair from
// internal/entropy.
type Key struct {
	K1, K2 uint64
}

func encode(key Key, self, next uintptr) uintptr {
	return next ^ uintptr(key.K1) ^ (self * uintptr(key.K2))
}

func decode(key Key, self, encoded uintptr) uintptr {
	return encoded ^ uintptr(key.K1) ^ (self * uintptr(key.K2))
}

func addrPtr(addr uintptr) *uintptr {
	return (*uintptr)(unsafe.Pointer(addr))
}

// Builder appends objects to the head of an in-construction free-list
// segment; used both for local frees and for a
// remote sender assembling a batch to splice onto an MPSC queue.
type Builder struct {
	key        Key
	head, tail uintptr
	count      int
}

// NewBuilder creates an empty builder keyed for one slab.
func NewBuilder(key Key) *Builder {
	return &Builder{key: key}
}

// Push adds addr to the head of the segment being built.
func (b *Builder) Push(addr uintptr) {
	*addrPtr(addr) = encode(b.key, addr, b.head)
	if b.tail == 0 {
		b.tail = addr
	}
	b.head = addr
	b.count++
}

// Empty reports whether the builder holds no objects.
func (b *Builder) Empty() bool { return b.count == 0 }

// Len returns the number of objects accumulated.
func (b *Builder) Len() int { return b.count }

// Segment extracts (first, last, count) so the caller can splice the
// chain onto an MPSC queue as a single atomic operation, and resets the builder to empty.
func (b *Builder) Segment() (first, last uintptr, count int) {
	first, last, count = b.head, b.tail, b.count
	b.head, b.tail, b.count = 0, 0, 0
	return
}

// Iter consumes objects from the head of an existing chain, used by the
// allocator's fast path to pop ready objects and by the slow path to
// drain a bounded batch from a slab's free queue.
type Iter struct {
	key  Key
	cur  uintptr
	slab uintptr // base address of the owning slab, for range validation
	size uintptr // size of the slab, for range validation
}

// NewIter begins iteration at head, validating subsequent links lie
// within [slab, slab+size): decoding must yield either null or an
// address that lies within the same slab.
func NewIter(key Key, head, slab, size uintptr) *Iter {
	return &Iter{key: key, cur: head, slab: slab, size: size}
}

// Empty reports whether the iterator has no more objects.
func (it *Iter) Empty() bool { return it.cur == 0 }

// Take pops and returns the next object in the chain, validating the
// decoded successor pointer before it is trusted. Fatal corruption (an
// out-of-slab successor) aborts the process rather than returning a
// poisoned address.
func (it *Iter) Take() uintptr {
	addr := it.cur
	if addr == 0 {
		return 0
	}
	encoded := *addrPtr(addr)
	next := decode(it.key, addr, encoded)
	if next != 0 && it.slab != 0 && (next < it.slab || next >= it.slab+it.size) {
		xlog.Fatalf("corrupt free list: successor %#x outside slab [%#x,%#x)", next, it.slab, it.slab+it.size)
	}
	it.cur = next
	return addr
}

// TakeN drains up to len(dst) objects into dst, returning the number actually
// taken; used by the allocator's refill slow path to pull a bounded
// batch out of a slab's free queue.
func (it *Iter) TakeN(dst []uintptr) int {
	i := 0
	for i < len(dst) && !it.Empty() {
		dst[i] = it.Take()
		i++
	}
	return i
}

// Head returns the (still-encoded, not-yet-consumed) remainder of the
// chain, for a caller that wants to hand the rest back to its owner
// after taking a prefix.
func (it *Iter) Head() uintptr { return it.cur }

// Relink overwrites the encoded successor word stored at `first` so
// that decoding it with key yields next. Used when splicing one
// already-encoded object onto the front of an existing chain without
// re-walking it.
func Relink(key Key, first, next uintptr) {
	if first == 0 {
		return
	}
	*addrPtr(first) = encode(key, first, next)
}
