package ranges

import (
	"sync"
	"unsafe"

	"github.com/cznic-labs/snmalloc-go/internal/buddy"
	"github.com/cznic-labs/snmalloc-go/internal/config"
)

// SmallBuddyStage wraps internal/buddy.SmallBuddyRange as a pipeline
// stage for the meta-data path: slab.Meta's accounted backing allocation
// (backend.AllocChunk's metaFootprint) is a small fraction of
// config.MinChunkSize, so routing every one of those through a full
// chunk-granularity reservation would waste an entire chunk's worth of
// address space per slab. This stage refills a chunk at a time from its
// parent and splits it with the small buddy allocator, the sub-chunk
// counterpart to LargeBuddyStage.
// Requests at or above config.MinChunkSize bypass the cache and go
// straight to the parent, the same size-based split LargeBuddyStage uses.
type SmallBuddyStage struct {
	parent Range
	buddy  *buddy.SmallBuddyRange
	mu     sync.Mutex
}

// NewSmallBuddyStage wraps parent with a sub-chunk buddy cache.
func NewSmallBuddyStage(parent Range) *SmallBuddyStage {
	return &SmallBuddyStage{parent: parent, buddy: buddy.NewSmallBuddyRange()}
}

func (r *SmallBuddyStage) AllocRange(size int) ([]byte, error) {
	if size >= config.MinChunkSize {
		return r.parent.AllocRange(size)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if base, ok := r.buddy.AllocRange(size); ok {
		return toBytes(base, size), nil
	}

	b, err := r.parent.AllocRange(config.MinChunkSize)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, nil
	}

	base := uintptr(unsafe.Pointer(&b[0]))
	if overflow := r.buddy.DeallocRange(base, config.MinChunkSize); overflow {
		r.parent.DeallocRange(b)
		return nil, nil
	}

	result, ok := r.buddy.AllocRange(size)
	if !ok {
		return nil, nil
	}
	return toBytes(result, size), nil
}

func (r *SmallBuddyStage) DeallocRange(b []byte) {
	if len(b) == 0 {
		return
	}
	if len(b) >= config.MinChunkSize {
		r.parent.DeallocRange(b)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	base := uintptr(unsafe.Pointer(&b[0]))
	if overflow := r.buddy.DeallocRange(base, len(b)); overflow {
		r.parent.DeallocRange(b)
	}
}

func (r *SmallBuddyStage) Aligned() bool         { return true }
func (r *SmallBuddyStage) ConcurrencySafe() bool { return false } // needs GlobalRange above it
