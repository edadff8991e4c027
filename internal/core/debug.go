package core

import (
	"github.com/cznic-labs/snmalloc-go/internal/remote"
	"github.com/cznic-labs/snmalloc-go/internal/sizeclass"
	"github.com/cznic-labs/snmalloc-go/internal/slab"
)

// Flush drains this allocator's inbox and flushes its outbound batch
// regardless of threshold.
func (a *Allocator) Flush() {
	for {
		nodes := a.inbox.Dequeue(remoteDrainBatch, nil)
		if len(nodes) == 0 {
			break
		}
		for _, n := range nodes {
			a.applyRemoteFree(n.Addr, n.Sizeclass)
		}
	}

	for owner, group := range a.batch.FlushAll() {
		dest, ok := lookup(owner)
		if !ok {
			continue
		}
		dest.inbox.Enqueue(remote.First(group), remote.Last(group))
	}
}

// DebugCheckEmpty reports whether this allocator currently references no
// live (outstanding, not-yet-freed) allocations. It first hands every
// object parked in the local free-list cache back to its slab (a slab
// that becomes fully free is returned to the backend by reclaimSlab),
// then checks that every available-slab list is empty and nothing is
// queued on the inbox or the outbound batch. A slab whose objects are
// all handed out is on no list, and large allocations are not tracked
// per allocator, so neither of those is seen by this check.
func (a *Allocator) DebugCheckEmpty() bool {
	for sc, list := range a.localFree {
		for _, addr := range list {
			meta := (*slab.Meta)(a.backend.Pagemap.Get(addr).Meta)
			a.pushLocalFree(sizeclass.T(sc), meta, addr)
		}
		a.localFree[sc] = nil
	}
	for i := range a.available {
		if !a.available[i].Empty() {
			return false
		}
	}
	return a.inbox.Empty() && a.batch.Empty()
}
