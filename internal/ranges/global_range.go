package ranges

import (
	"runtime"
	"sync/atomic"
)

// spinlock guards a GlobalRange with a CAS loop and a runtime.Gosched backoff rather than a full OS mutex,
// since every critical section here is short, aside from the
// commit/decommit notifications it's allowed to make while holding it.
type spinlock struct {
	state atomic.Int32
}

func (s *spinlock) Lock() {
	for !s.state.CompareAndSwap(0, 1) {
		runtime.Gosched()
	}
}

func (s *spinlock) Unlock() {
	s.state.Store(0)
}

// GlobalRange wraps a sub-pipeline in a spin lock to serialise access
// across all threads; every allocator's chunk requests go through the
// one shared object pipeline and its GlobalRange.
type GlobalRange struct {
	parent Range
	lock   spinlock
}

// NewGlobalRange wraps parent with a process-wide spin lock.
func NewGlobalRange(parent Range) *GlobalRange { return &GlobalRange{parent: parent} }

func (r *GlobalRange) AllocRange(size int) ([]byte, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.parent.AllocRange(size)
}

func (r *GlobalRange) DeallocRange(b []byte) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.parent.DeallocRange(b)
}

func (r *GlobalRange) Aligned() bool         { return r.parent.Aligned() }
func (r *GlobalRange) ConcurrencySafe() bool { return true }
