package ranges

import (
	"math/rand"

	"github.com/cznic-labs/snmalloc-go/internal/config"
	"github.com/cznic-labs/snmalloc-go/internal/pal"
)

// SubRange is the hardened-build meta-data sub-range: it reserves
// config.GuardMultiplier times the requested size from its parent and
// returns a random strict-interior offset, never the first or last
// block. The rest of the reservation is decommitted, so an
// out-of-bounds read/write from the metadata runs into inaccessible
// guard space instead of another live allocation.
type SubRange struct {
	parent Range
}

// NewSubRange wraps parent with guard-paged interior allocation.
func NewSubRange(parent Range) *SubRange { return &SubRange{parent: parent} }

func (r *SubRange) AllocRange(size int) ([]byte, error) {
	reserveSize := size * config.GuardMultiplier
	b, err := r.parent.AllocRange(reserveSize)
	if err != nil || b == nil {
		return b, err
	}

	slots := config.GuardMultiplier
	// Never the first (index 0) or last (index slots-1) block.
	idx := 1 + rand.Intn(slots-2)
	_ = pal.NotifyNotUsing(b)
	_ = pal.NotifyUsing(b[idx*size : (idx+1)*size])
	return b[idx*size : (idx+1)*size : (idx+1)*size], nil
}

func (r *SubRange) DeallocRange(b []byte) {
	// The guard reservation itself is intentionally never released
	// back to the OS here: unlike the fast meta path, hardened builds
	// trade the reservation's address space for a standing guard
	// against a metadata overflow landing on reused memory. The
	// interior block is simply decommitted.
	_ = pal.NotifyNotUsing(b)
}

func (r *SubRange) Aligned() bool         { return false }
func (r *SubRange) ConcurrencySafe() bool { return r.parent.ConcurrencySafe() }
