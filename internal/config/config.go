// Package config holds the compile-time tunables of the allocator core.
//
// A handful are overridable once at process start via environment
// variables, read once into a package variable rather than re-read on
// every allocation.
package config

import (
	"os"
	"strconv"
	"time"
)

const (
	// MinAllocSize is the smallest object size the allocator hands out,
	// twice the size of a pointer on all supported architectures.
	MinAllocSize = 16

	// IntermediateBits subdivides each power-of-two band into
	// 1<<IntermediateBits size classes.
	IntermediateBits = 2

	// MinChunkBits is log2(MinChunkSize).
	MinChunkBits = 14
	// MinChunkSize is the smallest, and the alignment granule, of any
	// chunk the back-end hands the range pipeline.
	MinChunkSize = 1 << MinChunkBits

	// MaxSizeclassBits is log2 of the largest small size class.
	MaxSizeclassBits = 16
	// MaxSmallSizeclassSize is the ceiling of the small-size-class path;
	// requests above this go through the large-object path.
	MaxSmallSizeclassSize = 1 << MaxSizeclassBits

	// RemoteBatch is the max number of queued cross-thread frees an
	// allocator accumulates per destination before flushing.
	RemoteBatch = 4096

	// RemoteCacheDefault is the default byte budget for an allocator's
	// outbound remote-free batch before a forced flush.
	RemoteCacheDefault = 1 << 20

	// NumEpochs is the number of rotating decay epochs.
	NumEpochs = 4

	// DecayPeriodDefault is how often the decay epoch advances.
	DecayPeriodDefault = 500 * time.Millisecond

	// RefillSizeBits: large-buddy requests at or above this size bypass
	// the refill cache and go straight to the parent range.
	RefillSizeBits = 21 // 2 MiB

	// DecayCapBits: size classes at or above this many bits bypass the
	// decay cache entirely (never cached, always returned to parent).
	DecayCapBits = 22 // 4 MiB

	// GuardMultiplier: hardened meta-range sub-allocation reserves this
	// many times the requested size to carve interior guarded blocks from.
	GuardMultiplier = 1 << 6
)

// RemoteCache is the effective remote-free byte budget, overridable via
// SNMALLOC_REMOTE_CACHE for testing and tuning.
var RemoteCache = envInt("SNMALLOC_REMOTE_CACHE", RemoteCacheDefault)

// DecayPeriod is the effective decay tick period, overridable via
// SNMALLOC_DECAY_PERIOD_MS.
var DecayPeriod = envDuration("SNMALLOC_DECAY_PERIOD_MS", DecayPeriodDefault)

// SanityChecks enables the size check in the sized dealloc
// (Heap.DeallocSized) at a small throughput cost. The slab-membership
// check on local frees runs whether or not it is set.
var SanityChecks = envBool("SNMALLOC_SANITY_CHECKS", true)

// RandomSlabInit enables per-slab random free-queue permutation at slab
// creation, trading a little init-time cost for predictability mitigation.
var RandomSlabInit = envBool("SNMALLOC_RANDOM_SLAB_INIT", true)

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Millisecond
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
