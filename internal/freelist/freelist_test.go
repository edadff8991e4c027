package freelist

import (
	"runtime"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

// backing returns a slab-sized byte arena and the addresses of n
// pointer-sized slots inside it, suitable for free-list link storage.
// Callers must runtime.KeepAlive(buf) for as long as addrs are
// dereferenced: this arena lives on the Go heap, unlike the real
// backend's mmap'd chunks, so the GC must be told it's still in use once
// only bare uintptr addresses into it remain live.
func backing(t *testing.T, n int) (buf []uintptr, base uintptr, size uintptr, addrs []uintptr) {
	t.Helper()
	buf = make([]uintptr, n)
	base = uintptr(unsafe.Pointer(&buf[0]))
	size = uintptr(n) * unsafe.Sizeof(uintptr(0))
	addrs = make([]uintptr, n)
	for i := range buf {
		addrs[i] = uintptr(unsafe.Pointer(&buf[i]))
	}
	return
}

func TestBuilderIterRoundTrip(t *testing.T) {
	key := Key{K1: 0xdeadbeef, K2: 0x1234567}
	buf, base, size, addrs := backing(t, 8)

	b := NewBuilder(key)
	for _, a := range addrs {
		b.Push(a)
	}
	require.Equal(t, 8, b.Len())
	require.False(t, b.Empty())

	first, _, count := b.Segment()
	require.Equal(t, 8, count)
	require.True(t, b.Empty())

	it := NewIter(key, first, base, size)
	got := make(map[uintptr]bool)
	for !it.Empty() {
		got[it.Take()] = true
	}
	require.Len(t, got, 8)
	for _, a := range addrs {
		require.True(t, got[a])
	}
	runtime.KeepAlive(buf)
}

func TestIterTakeNBounded(t *testing.T) {
	key := Key{K1: 1, K2: 2}
	buf, base, size, addrs := backing(t, 4)

	b := NewBuilder(key)
	for _, a := range addrs {
		b.Push(a)
	}
	first, _, _ := b.Segment()

	it := NewIter(key, first, base, size)
	dst := make([]uintptr, 2)
	n := it.TakeN(dst)
	require.Equal(t, 2, n)
	require.False(t, it.Empty())

	rest := make([]uintptr, 4)
	n = it.TakeN(rest)
	require.Equal(t, 2, n)
	require.True(t, it.Empty())
	runtime.KeepAlive(buf)
}

func TestRelinkSplicesExistingChain(t *testing.T) {
	key := Key{K1: 7, K2: 9}
	buf, base, size, addrs := backing(t, 3)

	tail := NewBuilder(key)
	tail.Push(addrs[2])
	oldHead, _, _ := tail.Segment()

	fresh := NewBuilder(key)
	fresh.Push(addrs[0])
	first, _, _ := fresh.Segment()
	Relink(key, first, oldHead)

	it := NewIter(key, first, base, size)
	require.Equal(t, addrs[0], it.Take())
	require.Equal(t, addrs[2], it.Take())
	require.True(t, it.Empty())
	runtime.KeepAlive(buf)
}
