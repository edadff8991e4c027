package core

import (
	"errors"

	"github.com/cznic-labs/snmalloc-go/internal/backend"
	"github.com/cznic-labs/snmalloc-go/internal/pagemap"
	"github.com/cznic-labs/snmalloc-go/internal/remote"
	"github.com/cznic-labs/snmalloc-go/internal/sizeclass"
	"github.com/cznic-labs/snmalloc-go/internal/slab"
	"github.com/cznic-labs/snmalloc-go/internal/xlog"
)

// ErrUnowned is returned when Dealloc is asked to free an address the
// pagemap has no record of. Heap.Dealloc returns it to the caller
// unchanged; there is no secondary allocator to hand such a pointer to,
// and the process is not aborted.
var ErrUnowned = errors.New("snmalloc: dealloc of unowned pointer")

// Dealloc returns addr to its owning allocator, locally if this
// allocator owns it or via the cross-thread queue otherwise. addr must
// be a value previously returned by Alloc/AllocLarge and not yet freed;
// the null case is handled by the public API before this is called.
func (a *Allocator) Dealloc(addr uintptr) error {
	entry := a.backend.Pagemap.GetBoundable(addr)
	if entry.Has(pagemap.FlagBackendOwned) && entry.Meta == nil && entry.Owner == 0 {
		return ErrUnowned
	}

	if size, ok := backend.IsLargeTag(entry.Sizeclass); ok {
		if entry.Owner != a.id {
			// A large object owned by another allocator goes through
			// the same outbound batch as a small one, tagged with its
			// large marker so the receiver's applyRemoteFree dispatches
			// back into deallocLargeAddr.
			a.deliverRemote(entry.Owner, addr, entry.Sizeclass)
			return nil
		}
		a.deallocLargeAddr(addr, size)
		return nil
	}

	meta := (*slab.Meta)(entry.Meta)
	if meta == nil {
		xlog.Fatalf("dealloc of %#x: owned entry has no slab metadata", addr)
	}

	if entry.Owner == a.id {
		a.pushLocalFree(sizeclass.T(entry.Sizeclass), meta, addr)
		return nil
	}

	a.deliverRemote(entry.Owner, addr, entry.Sizeclass)
	return nil
}

// deliverRemote batches addr for destination owner, flushing to the
// destination's inbox once the batch threshold is crossed.
func (a *Allocator) deliverRemote(owner uintptr, addr uintptr, sc uint8) {
	dest, ok := lookup(owner)
	if !ok {
		// The owning allocator has been torn down and never came back
		// (e.g. process is shutting down); there is nowhere to deliver
		// this free. Reclaiming it locally would violate ownership, so
		// it is intentionally leaked rather than corrupting another
		// allocator's state: a bounded, rare leak is preferable to a
		// cross-thread free landing on the wrong owner.
		return
	}

	objSize := sizeclass.SizeclassToSize(sizeclass.T(sc))
	if size, ok := backend.IsLargeTag(sc); ok {
		objSize = size
	}

	first, last, _, shouldFlush := a.batch.Add(remote.Destination{Owner: owner}, addr, sc, objSize)
	if shouldFlush {
		dest.inbox.Enqueue(first, last)
	}
}
