//go:build windows

// Exposes separate reserve/commit/decommit phases via
// golang.org/x/sys/windows' VirtualAlloc/VirtualFree, which natively
// distinguish MEM_RESERVE from MEM_COMMIT.
package pal

import (
	"crypto/rand"
	"encoding/binary"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

func pageSize() int { return os.Getpagesize() }

func reserve(size, align int) ([]byte, error) {
	total := uintptr(size + align)
	addr, err := windows.VirtualAlloc(0, total, windows.MEM_RESERVE, windows.PAGE_NOACCESS)
	if err != nil {
		return nil, ErrOOM
	}

	aligned := (addr + uintptr(align) - 1) &^ uintptr(align-1)
	var b []byte
	hdr := (*sliceHeader)(unsafe.Pointer(&b))
	hdr.Data = aligned
	hdr.Len = size
	hdr.Cap = size
	return b, nil
}

type sliceHeader struct {
	Data uintptr
	Len  int
	Cap  int
}

func notifyUsing(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	addr := uintptr(unsafe.Pointer(&b[0]))
	_, err := windows.VirtualAlloc(addr, uintptr(len(b)), windows.MEM_COMMIT, windows.PAGE_READWRITE)
	return err
}

func notifyNotUsing(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	addr := uintptr(unsafe.Pointer(&b[0]))
	return windows.VirtualFree(addr, uintptr(len(b)), windows.MEM_DECOMMIT)
}

func release(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	addr := uintptr(unsafe.Pointer(&b[0]))
	return windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func entropy64() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return uint64(os.Getpid())
	}
	return binary.LittleEndian.Uint64(buf[:])
}
