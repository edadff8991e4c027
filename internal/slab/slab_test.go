package slab

import (
	"runtime"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/cznic-labs/snmalloc-go/internal/freelist"
	"github.com/cznic-labs/snmalloc-go/internal/sizeclass"
)

// backingSlab allocates a Go-heap arena large enough to carve a
// slab-aligned region out of, and returns it alongside the aligned base
// address. Callers must runtime.KeepAlive(arena) for as long as the
// returned address is dereferenced: unlike the real backend (whose chunks
// come from mmap, memory the GC never owns), this arena lives on the Go
// heap and would otherwise be eligible for collection the moment only a
// bare uintptr into it remains live.
func backingSlab(t *testing.T, sc sizeclass.T) (arena []byte, base uintptr) {
	t.Helper()
	c := sizeclass.Lookup(sc)
	arena = make([]byte, c.SlabSize*2)
	raw := uintptr(unsafe.Pointer(&arena[0]))
	aligned := (raw + uintptr(c.SlabSize) - 1) &^ (uintptr(c.SlabSize) - 1)
	return arena, aligned
}

func TestNewPopulatesFullFreeQueue(t *testing.T) {
	sc := sizeclass.T(0)
	arena, base := backingSlab(t, sc)
	m := New(base, sc, freelist.Key{K1: 1, K2: 2}, 0xaaaa)

	require.Equal(t, 0, m.Used())
	require.False(t, m.FreeQueueEmpty())
	require.Equal(t, m.ObjectCount(), sizeclass.Lookup(sc).ObjectsPerSlab)

	dst := make([]uintptr, m.ObjectCount())
	n := m.RefillInto(dst)
	require.Equal(t, m.ObjectCount(), n)
	require.True(t, m.FreeQueueEmpty())
	require.Equal(t, m.ObjectCount(), m.Used())

	seen := make(map[uintptr]bool)
	for _, a := range dst[:n] {
		require.False(t, seen[a], "object handed out twice")
		seen[a] = true
	}
	runtime.KeepAlive(arena)
}

func TestPushLocalTransitions(t *testing.T) {
	sc := sizeclass.T(0)
	arena, base := backingSlab(t, sc)
	m := New(base, sc, freelist.Key{K1: 3, K2: 4}, 0xbbbb)

	dst := make([]uintptr, m.ObjectCount())
	n := m.RefillInto(dst)
	require.Equal(t, m.ObjectCount(), n)
	require.Equal(t, m.ObjectCount(), m.Used())

	// Freeing the first object out of a fully-used slab must report
	// TransitionWasFull, so the caller re-lists it as available.
	tr := m.PushLocal(dst[0])
	require.Equal(t, TransitionWasFull, tr)

	for i := 1; i < len(dst)-1; i++ {
		tr = m.PushLocal(dst[i])
		require.Equal(t, TransitionNone, tr)
	}

	tr = m.PushLocal(dst[len(dst)-1])
	require.Equal(t, TransitionFullyFree, tr)
	require.True(t, m.FullyFree())
	runtime.KeepAlive(arena)
}

func TestAvailableListPushFrontAndRemove(t *testing.T) {
	sc := sizeclass.T(0)
	arena1, base1 := backingSlab(t, sc)
	arena2, base2 := backingSlab(t, sc)
	m1 := New(base1, sc, freelist.Key{}, 1)
	m2 := New(base2, sc, freelist.Key{}, 1)

	var l AvailableList
	l.PushFront(m1)
	l.PushFront(m2)
	require.Equal(t, m2, l.Front())

	l.Remove(m2)
	require.Equal(t, m1, l.Front())
	l.Verify()

	l.Remove(m1)
	require.True(t, l.Empty())
	runtime.KeepAlive(arena1)
	runtime.KeepAlive(arena2)
}
