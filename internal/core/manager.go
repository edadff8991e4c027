package core

import (
	"github.com/cznic-labs/snmalloc-go/internal/backend"
	"github.com/cznic-labs/snmalloc-go/internal/local"
	"github.com/cznic-labs/snmalloc-go/internal/pool"
)

// Manager is the process-wide singleton that binds the back-end, the
// pool of allocators, and the goroutine-local handle cache together,
// forming the composition root for everything this package exposes to
// the public API.
type Manager struct {
	backend *backend.Backend
	pool    *pool.Pool[Allocator]
	handle  *local.Handle[Allocator]
}

// NewManager constructs a fresh process singleton. hardened enables
// guard-paged meta-data allocation.
func NewManager(hardened bool) *Manager {
	m := &Manager{
		backend: backend.New(hardened),
		pool:    pool.New[Allocator](),
	}
	m.handle = local.NewHandle(m.acquireOrCreate)
	return m
}

// acquireOrCreate reuses an idle allocator if one is parked in the pool,
// else builds a fresh one and registers it for the lifetime of the
// process.
func (m *Manager) acquireOrCreate() *Allocator {
	if a, ok := m.pool.Acquire(); ok {
		register(a.id, a)
		return a
	}
	a := New(m.backend)
	m.pool.Register(a)
	return a
}

// Current returns the calling goroutine's bound allocator, creating one
// on first use.
func (m *Manager) Current() *Allocator { return m.handle.Get() }

// Teardown returns the calling goroutine's allocator to the pool after
// flushing it.
func (m *Manager) Teardown() {
	a := m.handle.Get()
	a.Flush()
	m.handle.Clear()
	m.pool.Release(a)
}

// DebugCheckEmpty reports whether every allocator ever registered with
// this manager currently references no live allocations.
func (m *Manager) DebugCheckEmpty() bool {
	for _, a := range m.pool.All() {
		if !a.DebugCheckEmpty() {
			return false
		}
	}
	return true
}

// Stats returns the current and peak committed byte counts across the
// object and metadata range pipelines.
func (m *Manager) Stats() (objectCurrent, objectPeak, metaCurrent, metaPeak int64) {
	return m.backend.Pipelines.Object.Current(), m.backend.Pipelines.Object.Peak(),
		m.backend.Pipelines.Meta.Current(), m.backend.Pipelines.Meta.Peak()
}

// Close stops background resources (the decay ticker); used by tests
// and a process that wants a clean shutdown.
func (m *Manager) Close() { m.backend.Pipelines.Close() }
