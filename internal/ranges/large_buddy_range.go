package ranges

import (
	"sync"
	"unsafe"

	"github.com/cznic-labs/snmalloc-go/internal/buddy"
	"github.com/cznic-labs/snmalloc-go/internal/config"
)

// LargeBuddyStage wraps internal/buddy.LargeBuddyRange as a pipeline
// stage: sizes at or above config.RefillSizeBits bypass caching
// entirely, and smaller requests trigger a larger refill from the
// parent whose remainder is added back to the buddy tree.
type LargeBuddyStage struct {
	parent Range
	buddy  *buddy.LargeBuddyRange
	mu     sync.Mutex
}

// NewLargeBuddyStage wraps parent with a large buddy cache addressed up
// to 2^maxBits.
func NewLargeBuddyStage(parent Range, b *buddy.LargeBuddyRange) *LargeBuddyStage {
	return &LargeBuddyStage{parent: parent, buddy: b}
}

func (r *LargeBuddyStage) AllocRange(size int) ([]byte, error) {
	bits := bitLen(size)
	if bits >= config.RefillSizeBits {
		return r.parent.AllocRange(size)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if base, ok := r.buddy.AllocRange(size); ok {
		return toBytes(base, size), nil
	}

	refillBits := config.RefillSizeBits
	refillSize := 1 << refillBits
	b, err := r.parent.AllocRange(refillSize)
	if err != nil {
		return nil, err
	}
	if b == nil {
		// Parent exhausted; try exact size directly as a last resort.
		return r.parent.AllocRange(size)
	}

	base := uintptr(unsafe.Pointer(&b[0]))
	if overflow := r.buddy.DeallocRange(base, refillSize); overflow {
		r.parent.DeallocRange(b)
		return nil, nil
	}

	result, ok := r.buddy.AllocRange(size)
	if !ok {
		return nil, nil
	}
	return toBytes(result, size), nil
}

func (r *LargeBuddyStage) DeallocRange(b []byte) {
	if len(b) == 0 {
		return
	}
	bits := bitLen(len(b))
	if bits >= config.RefillSizeBits {
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

func (r *LargeBuddyStage) Aligned() bool         { return true }
func (r *LargeBuddyStage) ConcurrencySafe() bool { return false } // needs GlobalRange above it

func bitLen(n int) int {
	b := 0
	for (1 << b) < n {
		b++
	}
	return b
}

func toBytes(base uintptr, size int) []byte {
	var b []byte
	type sliceHeader struct {
		Data unsafe.Pointer
		Len  int
		Cap  int
	}
	h := (*sliceHeader)(unsafe.Pointer(&b))
	h.Data = unsafe.Pointer(base)
	h.Len = size
	h.Cap = size
	return b
}
