// Package local binds one allocator per goroutine. Go code runs on
// goroutines, not OS threads, and a goroutine can migrate between OS
// threads between blocking points, so there is no thread-local-storage
// primitive to bind an allocator to directly. timandy/routine provides
// goroutine-local storage keyed by goroutine id, surviving across a
// goroutine's blocking points the same way a real TLS slot survives a
// thread's blocking syscalls.
package local

import (
	"github.com/timandy/routine"
)

// Handle[T] binds one *T per goroutine, lazily constructed by newFn on
// first use from that goroutine.
type Handle[T any] struct {
	local routine.ThreadLocal
	newFn func() *T
}

// NewHandle constructs a goroutine-local handle; newFn is called on a
// goroutine's first Get, and again on its first Get after a Clear.
func NewHandle[T any](newFn func() *T) *Handle[T] {
	return &Handle[T]{local: routine.NewThreadLocal(), newFn: newFn}
}

// Get returns this goroutine's bound value, constructing it on first use.
func (h *Handle[T]) Get() *T {
	if v := h.local.Get(); v != nil {
		return v.(*T)
	}
	v := h.newFn()
	h.local.Set(v)
	return v
}

// Clear detaches this goroutine's bound value (used on explicit
// teardown/flush so a later Get on the same goroutine constructs fresh
// state rather than reusing a torn-down allocator).
func (h *Handle[T]) Clear() {
	h.local.Remove()
}
