//go:build darwin || dragonfly || freebsd || linux || openbsd || netbsd

// Uses golang.org/x/sys/unix so reserve/commit/decommit map onto
// distinct mmap/mprotect/madvise calls instead of one big MAP_ANON mmap.

package pal

import (
	"crypto/rand"
	"encoding/binary"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

func pageSize() int { return os.Getpagesize() }

func reserve(size, align int) ([]byte, error) {
	// Over-allocate and trim to get an aligned base, the way snmalloc's
	// PalRange falls back to on platforms without a native aligned-mmap
	// call.
	total := size + align
	b, err := unix.Mmap(-1, 0, total, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, ErrOOM
	}

	base := uintptr(unsafe.Pointer(&b[0]))
	aligned := (base + uintptr(align) - 1) &^ uintptr(align-1)
	lead := int(aligned - base)
	trail := total - lead - size

	if lead > 0 {
		if err := unix.Munmap(b[:lead]); err != nil {
			unix.Munmap(b)
			return nil, err
		}
	}
	if trail > 0 {
		if err := unix.Munmap(b[lead+size:]); err != nil {
			unix.Munmap(b[lead : lead+size])
			return nil, err
		}
	}
	return b[lead : lead+size : lead+size], nil
}

func notifyUsing(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if err := unix.Mprotect(b, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return err
	}
	return nil
}

func notifyNotUsing(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	_ = unix.Madvise(b, unix.MADV_DONTNEED)
	return unix.Mprotect(b, unix.PROT_NONE)
}

func release(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return unix.Munmap(b)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func entropy64() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failing is itself a fatal environment error in
		// snmalloc's own get_entropy64 contract; here it falls back to
		// the process id rather than aborting, so entropy quality
		// degrades instead of the process stopping.
		return uint64(os.Getpid())
	}
	return binary.LittleEndian.Uint64(buf[:])
}
