// Package pagemap implements the address -> metadata index: one MetaEntry
// per config.MinChunkSize granule of address space, backed by a
// two-level lazily-allocated tree rather than one flat array, since Go's
// runtime offers no way to reserve a multi-terabyte contiguous slice up
// front. Each leaf block is allocated the first time one of its chunks
// is used (documented further in DESIGN.md).
package pagemap

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/cznic-labs/snmalloc-go/internal/config"
)

const (
	granuleBits = config.MinChunkBits
	leafBits    = 12 // 4096 entries per leaf block
	leafSize    = 1 << leafBits
	leafMask    = leafSize - 1
)

// Flag bits stored in Entry.Flags.
type Flag uint8

const (
	FlagBackendOwned Flag = 1 << 0
	FlagBoundary     Flag = 1 << 1
	FlagColorRed     Flag = 1 << 2 // buddy-allocator red/black colour
)

// Entry is one pagemap record.
type Entry struct {
	Meta      unsafe.Pointer // *slab.Meta, nil if backend-owned/large/unmapped
	Owner     uintptr        // owning allocator identity
	Sizeclass uint8
	Flags     Flag
}

func (e Entry) Has(f Flag) bool { return e.Flags&f != 0 }

// Default is the sentinel entry returned for out-of-range reads by
// GetBoundable: an unmapped, backend-owned, zero-size-class record.
var Default = Entry{Flags: FlagBackendOwned}

type leaf struct {
	entries [leafSize]Entry
}

// Map is the process-wide pagemap singleton shape; callers embed one
// instance per process (see internal/backend).
type Map struct {
	mu    sync.Mutex
	table atomic.Pointer[[]*leaf]
}

// New constructs an empty pagemap.
func New() *Map {
	m := &Map{}
	t := make([]*leaf, 1)
	m.table.Store(&t)
	return m
}

func split(addr uintptr) (top, idx int) {
	granule := addr >> granuleBits
	return int(granule >> leafBits), int(granule & leafMask)
}

// Get loads the entry for addr, for the hot allocation/deallocation
// path. It performs the same range check as GetBoundable and returns
// Default for an address whose leaf block has not been registered;
// GetBoundable remains the entry point for addresses of unknown
// provenance.
func (m *Map) Get(addr uintptr) Entry {
	top, idx := split(addr)
	table := *m.table.Load()
	if top < 0 || top >= len(table) || table[top] == nil {
		return Default
	}
	return table[top].entries[idx]
}

// GetBoundable is like Get but returns Default for any address whose
// leaf block has not yet been registered, without growing the table;
// safe to call on pointers that may not have come from this allocator.
func (m *Map) GetBoundable(addr uintptr) Entry {
	top, idx := split(addr)
	table := *m.table.Load()
	if top < 0 || top >= len(table) || table[top] == nil {
		return Default
	}
	return table[top].entries[idx]
}

// Set stores entry for the single granule containing addr. Out-of-range
// top-level indices grow the table under the write lock, serialising
// writes that transfer chunk ownership between the back-end and its
// callers.
func (m *Map) Set(addr uintptr, e Entry) {
	top, idx := split(addr)
	m.ensureLeaf(top)
	table := *m.table.Load()
	table[top].entries[idx] = e
}

// RegisterRange ensures every granule in [base, base+length) has a
// backing leaf block allocated, without (yet) writing entries into them,
// so a caller can commit pagemap storage for a whole chunk before
// writing entries for it.
func (m *Map) RegisterRange(base uintptr, length uintptr) {
	if length == 0 {
		return
	}
	firstTop, _ := split(base)
	lastTop, _ := split(base + length - 1)
	for t := firstTop; t <= lastTop; t++ {
		m.ensureLeaf(t)
	}
}

// SetRange writes e to every granule in [base, base+length).
func (m *Map) SetRange(base, length uintptr, e Entry) {
	m.RegisterRange(base, length)
	granule := uintptr(1) << granuleBits
	for a := base; a < base+length; a += granule {
		m.Set(a, e)
	}
}

func (m *Map) ensureLeaf(top int) {
	if top < 0 {
		panic("pagemap: negative top index")
	}
	table := *m.table.Load()
	if top < len(table) && table[top] != nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	table = *m.table.Load()
	if top >= len(table) {
		grown := make([]*leaf, top+1)
		copy(grown, table)
		table = grown
	}
	if table[top] == nil {
		table[top] = &leaf{}
	}
	m.table.Store(&table)
}
