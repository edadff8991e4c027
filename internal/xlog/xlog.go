// Package xlog is a minimal, trace-gated stderr logger in the style of
// cznic/memory's package-level "trace" bool: one atomic switch, zero
// allocations when disabled, never on the allocation/deallocation hot
// path itself.
package xlog

import (
	"fmt"
	"os"
	"sync/atomic"
)

var enabled atomic.Bool

func init() {
	if os.Getenv("SNMALLOC_TRACE") != "" {
		enabled.Store(true)
	}
}

// Enable turns tracing on or off at runtime; used by tests.
func Enable(v bool) { enabled.Store(v) }

// Enabled reports whether tracing is currently on.
func Enabled() bool { return enabled.Load() }

// Tracef writes a trace line to stderr iff tracing is enabled.
func Tracef(format string, args ...interface{}) {
	if !enabled.Load() {
		return
	}
	fmt.Fprintf(os.Stderr, "snmalloc: "+format+"\n", args...)
}

// Fatalf reports an unrecoverable corruption/invariant failure and
// terminates the process. This is deliberately not a panic: a caller
// must not be able to recover() past a detected corruption.
func Fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "snmalloc: fatal: "+format+"\n", args...)
	os.Exit(2)
}
