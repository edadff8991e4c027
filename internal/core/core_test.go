package core

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/cznic-labs/snmalloc-go/internal/backend"
)

func newTestAllocator() *Allocator {
	return New(backend.New(false))
}

func TestAllocDeallocSmallRoundTrip(t *testing.T) {
	a := newTestAllocator()

	addr, err := a.Alloc(32, false)
	require.NoError(t, err)
	require.NotZero(t, addr)
	require.NoError(t, a.Dealloc(addr))
	require.True(t, a.DebugCheckEmpty())
}

func TestAllocZeroedZeroesMemory(t *testing.T) {
	a := newTestAllocator()
	addr, err := a.Alloc(64, false)
	require.NoError(t, err)
	p := (*[64]byte)(unsafe.Pointer(addr))
	for i := range p {
		p[i] = 0xff
	}
	require.NoError(t, a.Dealloc(addr))

	addr2, err := a.Alloc(64, true)
	require.NoError(t, err)
	p2 := (*[64]byte)(unsafe.Pointer(addr2))
	for i := range p2 {
		require.Zero(t, p2[i])
	}
}

func TestAllocLargeRoundTrip(t *testing.T) {
	a := newTestAllocator()
	addr, err := a.Alloc(1<<21, false)
	require.NoError(t, err)
	require.NotZero(t, addr)
	require.NoError(t, a.Dealloc(addr))
}

func TestAllocSizeReportsClassSize(t *testing.T) {
	a := newTestAllocator()
	addr, err := a.Alloc(17, false)
	require.NoError(t, err)
	require.GreaterOrEqual(t, a.AllocSize(addr), 17)
}

func TestExternalPointerBoundsInteriorPointer(t *testing.T) {
	a := newTestAllocator()
	addr, err := a.Alloc(64, false)
	require.NoError(t, err)

	start := a.ExternalPointer(addr+8, Start)
	end := a.ExternalPointer(addr+8, OnePastEnd)
	require.Equal(t, addr, start)
	require.Greater(t, end, addr)
	require.True(t, a.CheckBounds(addr+8, 4))
	require.False(t, a.CheckBounds(addr+8, int(end-addr)+1))
}

func TestDeallocUnownedReturnsError(t *testing.T) {
	a := newTestAllocator()
	err := a.Dealloc(0x1)
	require.ErrorIs(t, err, ErrUnowned)
}

func TestCrossGoroutineFreeDeliversRemotely(t *testing.T) {
	b := backend.New(false)
	owner := New(b)
	other := New(b)

	addr, err := owner.Alloc(32, false)
	require.NoError(t, err)

	require.NoError(t, other.Dealloc(addr))
	// other queued the free in its outbound batch for owner rather than
	// reclaiming it itself; owner has not received it yet so it still
	// looks "live".
	require.False(t, owner.DebugCheckEmpty())

	// Push other's batch onto owner's inbox, then let owner drain it.
	other.Flush()
	owner.Flush()
	require.True(t, owner.DebugCheckEmpty())
}

func TestConcurrentAllocDeallocAcrossGoroutines(t *testing.T) {
	b := backend.New(false)
	const n = 32
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			a := New(b)
			for j := 0; j < 50; j++ {
				addr, err := a.Alloc(48, false)
				require.NoError(t, err)
				require.NoError(t, a.Dealloc(addr))
			}
			a.Flush()
		}()
	}
	wg.Wait()
}

func TestManagerCurrentReusesSameAllocatorWithinGoroutine(t *testing.T) {
	m := NewManager(false)
	defer m.Close()

	a1 := m.Current()
	a2 := m.Current()
	require.Same(t, a1, a2)
}

func TestManagerTeardownReleasesToPool(t *testing.T) {
	m := NewManager(false)
	defer m.Close()

	var first *Allocator
	done := make(chan struct{})
	go func() {
		defer close(done)
		first = m.Current()
		addr, err := first.Alloc(32, false)
		require.NoError(t, err)
		require.NoError(t, first.Dealloc(addr))
		m.Teardown()
	}()
	<-done

	done2 := make(chan struct{})
	go func() {
		defer close(done2)
		second := m.Current()
		require.Same(t, first, second)
	}()
	<-done2
}
