// Package pool implements the global pool of allocators: a mutex-guarded
// (not lock-free) stack of idle allocator handles for fast
// acquire/release across thread (goroutine) lifetimes, plus a separate
// registration list used for whole-process iteration (statistics,
// debug_check_empty).
package pool

import "sync"

type node[T any] struct {
	val  *T
	next *node[T]
}

// Pool holds idle allocator-state values of type T ready for reuse, and
// every value ever constructed for iteration purposes.
type Pool[T any] struct {
	mu   sync.Mutex // guards idle; short critical sections only
	idle *node[T]

	allMu sync.Mutex
	all   []*T
}

// New constructs an empty pool.
func New[T any]() *Pool[T] { return &Pool[T]{} }

// Acquire pops an idle value if one is available, else returns
// (nil, false) so the caller constructs a fresh one and Registers it.
func (p *Pool[T]) Acquire() (*T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.idle == nil {
		return nil, false
	}
	n := p.idle
	p.idle = n.next
	return n.val, true
}

// Release returns v to the idle stack for reuse by a future Acquire.
func (p *Pool[T]) Release(v *T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idle = &node[T]{val: v, next: p.idle}
}

// Register links v into the whole-process iteration list; called once
// per value, the first time it is constructed (never again across
// Acquire/Release cycles, since Release keeps it registered).
func (p *Pool[T]) Register(v *T) {
	p.allMu.Lock()
	defer p.allMu.Unlock()
	p.all = append(p.all, v)
}

// All returns every value ever registered, live or idle, for
// statistics gathering and debug_check_empty.
func (p *Pool[T]) All() []*T {
	p.allMu.Lock()
	defer p.allMu.Unlock()
	out := make([]*T, len(p.all))
	copy(out, p.all)
	return out
}
