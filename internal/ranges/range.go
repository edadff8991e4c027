// Package ranges implements the composable back-end range pipeline:
// PalRange -> PagemapRegisterRange -> LargeBuddyRange -> CommitRange ->
// DecayRange -> GlobalRange -> StatsRange, plus the SubRange used for
// hardened meta-data allocation.
//
// Each stage holds a concrete Range field for its parent rather than
// going through compile-time generics, the same shape layered allocators
// elsewhere use for wrapping one storage layer around another.
package ranges

// Range is the contract every pipeline stage implements: AllocRange
// returns a size-aligned block or (nil, nil) on exhaustion, not an
// error (OOM here is a normal backend-pressure result, reported up as
// an error only at the allocator's public surface); DeallocRange returns
// one, and the two booleans advertise whether the stage already
// guarantees alignment and thread-safety so later stages can skip
// redundant work.
type Range interface {
	AllocRange(size int) ([]byte, error)
	DeallocRange(b []byte)
	Aligned() bool
	ConcurrencySafe() bool
}
