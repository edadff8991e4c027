package core

import "sync"

// registry maps an allocator's identity (its own address, used as the
// pagemap Owner value) to the live *Allocator, so a sender can find the
// destination inbox for a cross-thread free. pagemap.Entry.Owner stores
// a plain uintptr rather than a *Allocator so that the pagemap package
// never needs to import core (which would create an import cycle); this
// side table is what turns that integer identity back into a live
// allocator to route a remote free to.
var registry sync.Map // uintptr -> *Allocator

func register(id uintptr, a *Allocator) { registry.Store(id, a) }

func lookup(id uintptr) (*Allocator, bool) {
	v, ok := registry.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*Allocator), true
}
