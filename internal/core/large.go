package core

import (
	"fmt"
	"unsafe"
)

// allocLarge services requests above the small-size-class ceiling
// directly from the back-end.
func (a *Allocator) allocLarge(size int, zero bool) (uintptr, error) {
	base, chunk, err := a.backend.AllocLarge(a.id, size)
	if err != nil {
		return 0, err
	}
	if chunk == nil {
		return 0, fmt.Errorf("snmalloc: out of memory allocating %d bytes", size)
	}
	if zero {
		for i := range chunk {
			chunk[i] = 0
		}
	}
	return base, nil
}

func (a *Allocator) deallocLargeAddr(addr uintptr, size int) {
	chunk := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	a.backend.DeallocLarge(addr, chunk)
	a.frees++
}
