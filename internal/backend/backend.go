// Package backend turns a range pipeline and a pagemap into the
// chunk-and-metadata allocation primitives the core allocator calls on
// its slow path: alloc_chunk, dealloc_chunk and
// alloc_meta_data.
package backend

import (
	"unsafe"

	"github.com/cznic-labs/snmalloc-go/internal/config"
	"github.com/cznic-labs/snmalloc-go/internal/entropy"
	"github.com/cznic-labs/snmalloc-go/internal/freelist"
	"github.com/cznic-labs/snmalloc-go/internal/pagemap"
	"github.com/cznic-labs/snmalloc-go/internal/ranges"
	"github.com/cznic-labs/snmalloc-go/internal/sizeclass"
	"github.com/cznic-labs/snmalloc-go/internal/slab"
)

// Backend owns the pagemap and range pipelines shared by every
// allocator in the process.
type Backend struct {
	Pagemap   *pagemap.Map
	Pipelines *ranges.Pipelines
	Entropy   *entropy.Source
}

// New constructs the process-wide backend singleton.
func New(hardened bool) *Backend {
	pm := pagemap.New()
	return &Backend{
		Pagemap:   pm,
		Pipelines: ranges.NewPipelines(pm, 47, hardened), // 47 bits covers any realistic user-space va range
		Entropy:   entropy.NewSource(),
	}
}

// AllocChunk carves a new slab:
//  1. allocate metadata backing bytes from the meta range (guard-paged
//     under hardened builds, accounted either way),
//  2. allocate `size` bytes from the object range,
//  3. write a pagemap entry covering every granule of the chunk,
//  4. return the chunk base and its Go-managed slab.Meta.
//
// The metadata itself is a normal Go-managed struct rather than data
// read through the raw meta-range bytes: placing a POD struct directly
// at an allocated address would mean manufacturing pointers the garbage
// collector cannot see into, which is reserved for *client* memory, not
// the allocator's own bookkeeping. The meta range allocation is still
// made and accounted, preserving the guard page and byte-accounting
// behaviour the range pipeline exists for.
func (b *Backend) AllocChunk(owner uintptr, sc sizeclass.T) (uintptr, *slab.Meta, error) {
	c := sizeclass.Lookup(sc)

	metaBacking, err := b.Pipelines.Meta.AllocRange(roundPow2(metaFootprint))
	if err != nil {
		return 0, nil, err
	}
	if metaBacking == nil {
		return 0, nil, nil
	}

	chunk, err := b.Pipelines.Object.AllocRange(c.SlabSize)
	if err != nil {
		b.Pipelines.Meta.DeallocRange(metaBacking)
		return 0, nil, err
	}
	if chunk == nil {
		b.Pipelines.Meta.DeallocRange(metaBacking)
		return 0, nil, nil
	}

	base := uintptr(unsafe.Pointer(&chunk[0]))
	k1, k2 := b.Entropy.NextKeyPair()
	meta := slab.New(base, sc, freelist.Key{K1: k1, K2: k2}, owner)
	meta.Backing = metaBacking

	entry := pagemap.Entry{
		Meta:      unsafe.Pointer(meta),
		Owner:     owner,
		Sizeclass: uint8(sc),
	}
	b.Pagemap.SetRange(base, uintptr(c.SlabSize), entry)

	return base, meta, nil
}

// metaFootprint is the nominal size accounted against the meta range per
// slab's metadata; it does not back real reads/writes (see AllocChunk's
// doc comment), only byte accounting and, under hardened builds, guard
// placement.
const metaFootprint = 128

func roundPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// DeallocChunk returns a fully-freed slab to the backend: every pagemap entry in the chunk is overwritten with a
// backend-owned sentinel, then the metadata and chunk bytes are
// returned to their respective ranges.
func (b *Backend) DeallocChunk(m *slab.Meta, chunkBytes []byte) {
	b.Pagemap.SetRange(m.Base, uintptr(m.Size), pagemap.Entry{Flags: pagemap.FlagBackendOwned})
	if m.Backing != nil {
		b.Pipelines.Meta.DeallocRange(m.Backing)
	}
	b.Pipelines.Object.DeallocRange(chunkBytes)
}

// AllocLarge allocates a chunk for a large (non-small-sizeclass) request
// directly via the object range, without slab metadata.
func (b *Backend) AllocLarge(owner uintptr, size int) (uintptr, []byte, error) {
	aligned := roundPow2(size)
	if aligned < config.MinChunkSize {
		aligned = config.MinChunkSize
	}
	chunk, err := b.Pipelines.Object.AllocRange(aligned)
	if err != nil || chunk == nil {
		return 0, nil, err
	}
	base := uintptr(unsafe.Pointer(&chunk[0]))
	b.Pagemap.SetRange(base, uintptr(aligned), pagemap.Entry{
		Owner:     owner,
		Sizeclass: largeSizeclassTag(aligned),
	})
	return base, chunk, nil
}

// DeallocLarge returns a large chunk to the backend.
func (b *Backend) DeallocLarge(base uintptr, chunkBytes []byte) {
	b.Pagemap.SetRange(base, uintptr(len(chunkBytes)), pagemap.Entry{Flags: pagemap.FlagBackendOwned})
	b.Pipelines.Object.DeallocRange(chunkBytes)
}

// largeSizeclassTag packs a large allocation's size into the pagemap's
// single sizeclass byte by storing its bit-length with the top bit set,
// distinguishing it from small size-class indices.
func largeSizeclassTag(size int) uint8 {
	bits := 0
	for (1 << bits) < size {
		bits++
	}
	return 0x80 | uint8(bits)
}

// IsLargeTag reports whether a pagemap sizeclass byte was produced by
// largeSizeclassTag, and if so, the chunk size it encodes.
func IsLargeTag(sc uint8) (size int, ok bool) {
	if sc&0x80 == 0 {
		return 0, false
	}
	return 1 << (sc &^ 0x80), true
}
