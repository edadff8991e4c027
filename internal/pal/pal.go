// Package pal is the platform abstraction layer the core allocator
// consumes: reserve, notify_using (commit), notify_not_using (decommit),
// zero, get_entropy64 and page_size.
//
// The split between pal_unix.go and pal_windows.go talks to the OS
// memory-mapping API through golang.org/x/sys rather than raw syscall
// calls, so reserve/commit/decommit map onto distinct mmap/mprotect or
// VirtualAlloc/VirtualFree calls.
package pal

import "errors"

// ErrOOM is returned when the platform cannot satisfy a reservation.
var ErrOOM = errors.New("pal: out of memory")

// PageSize is queried once at process init into a package variable
// rather than re-queried on every call.
var PageSize = pageSize()

// Reserve asks the OS for size bytes of address space aligned to align
// (a power of two), without committing backing storage where the
// platform distinguishes reservation from commit. The returned slice has
// len==cap==size; reading or writing before Notify is unspecified.
func Reserve(size, align int) ([]byte, error) {
	return reserve(size, align)
}

// NotifyUsing tells the OS the range is about to be read/written and
// should be backed by physical memory (mirrors snmalloc PAL::notify_using).
func NotifyUsing(b []byte) error { return notifyUsing(b) }

// NotifyNotUsing tells the OS the range's contents are no longer needed
// and its backing storage may be reclaimed without informing the
// allocator (decommit/MADV_DONTNEED; mirrors PAL::notify_not_using).
func NotifyNotUsing(b []byte) error { return notifyNotUsing(b) }

// Release fully unmaps a reservation previously returned by Reserve.
func Release(b []byte) error { return release(b) }

// Zero fills b with zero bytes, optionally via an OS primitive faster
// than a Go-level loop for large ranges.
func Zero(b []byte) { zero(b) }

// Entropy64 returns 64 bits of OS-sourced randomness, consumed by
// internal/entropy to derive per-slab free-list keys.
func Entropy64() uint64 { return entropy64() }
