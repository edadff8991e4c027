package ranges

import (
	"unsafe"

	"github.com/cznic-labs/snmalloc-go/internal/pagemap"
)

// PagemapRegisterRange ensures the pagemap covers every range returned
// by its parent before handing it further up the pipeline, and can mark
// the first granule of externally-supplied ranges as a boundary so the
// buddy allocator above it never coalesces across that split point.
type PagemapRegisterRange struct {
	parent       Range
	pm           *pagemap.Map
	markBoundary bool
}

// NewPagemapRegisterRange wraps parent, registering every allocated
// range with pm. If markBoundary is set, the first granule of each
// range allocated is flagged FlagBoundary.
func NewPagemapRegisterRange(parent Range, pm *pagemap.Map, markBoundary bool) *PagemapRegisterRange {
	return &PagemapRegisterRange{parent: parent, pm: pm, markBoundary: markBoundary}
}

func (r *PagemapRegisterRange) AllocRange(size int) ([]byte, error) {
	b, err := r.parent.AllocRange(size)
	if err != nil || b == nil {
		return b, err
	}

	base := uintptr(unsafe.Pointer(&b[0]))
	r.pm.RegisterRange(base, uintptr(len(b)))
	if r.markBoundary {
		e := r.pm.Get(base)
		e.Flags |= pagemap.FlagBoundary
		r.pm.Set(base, e)
	}
	return b, nil
}

func (r *PagemapRegisterRange) DeallocRange(b []byte) { r.parent.DeallocRange(b) }
func (r *PagemapRegisterRange) Aligned() bool         { return r.parent.Aligned() }
func (r *PagemapRegisterRange) ConcurrencySafe() bool { return r.parent.ConcurrencySafe() }
