// Package boundscheck implements the checked-memcpy bounds failure path:
// aborting the process rather than allowing a copy to write past the
// end of its destination allocation.
package boundscheck

import (
	"fmt"
	"os"

	"github.com/cznic-labs/snmalloc-go/internal/xlog"
)

// FailFast switches the bounds-check failure path between a bare trap
// (no diagnostic, fastest) and a diagnostic dump.
var FailFast = false

// CheckedCopy copies the requested n bytes from src into dst, aborting
// before touching either slice if the write would cross the bounds of
// dst's owning allocation. allocStart/allocEnd are that allocation's
// bounds, as reported by external_pointer(dst, Start)/(dst,
// OnePastEnd). n is the caller's requested copy length (ordinarily
// len(src)) and is checked as given: it is never silently clamped down
// to len(dst) first, since doing so would make an over-length copy
// impossible to catch by construction.
func CheckedCopy(dst, src []byte, n int, allocStart, allocEnd uintptr, dstAddr uintptr) int {
	if dstAddr+uintptr(n) > allocEnd || dstAddr < allocStart {
		Abort(dstAddr, n, allocStart, allocEnd)
	}
	return copy(dst, src[:n])
}

// Abort reports a bounds-check failure and terminates the process. When
// FailFast is set it skips straight to a trap-style exit with no
// diagnostic; otherwise it prints the offending pointer, length, and the
// surrounding allocation's bounds before aborting.
func Abort(p uintptr, length int, allocStart, allocEnd uintptr) {
	if FailFast {
		os.Exit(2)
	}
	fmt.Fprintf(os.Stderr,
		"snmalloc: fatal: checked copy out of bounds: p=%#x len=%#x allocation=[%#x,%#x)\n",
		p, length, allocStart, allocEnd)
	xlog.Fatalf("bounds check failed")
}
