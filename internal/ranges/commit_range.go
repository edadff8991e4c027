package ranges

import "github.com/cznic-labs/snmalloc-go/internal/pal"

// CommitRange calls PAL notify_using on alloc and notify_not_using on
// dealloc, the point in the pipeline where a reservation becomes
// backed, readable/writable memory.
type CommitRange struct {
	parent Range
}

// NewCommitRange wraps parent with commit/decommit notifications.
func NewCommitRange(parent Range) *CommitRange { return &CommitRange{parent: parent} }

func (r *CommitRange) AllocRange(size int) ([]byte, error) {
	b, err := r.parent.AllocRange(size)
	if err != nil || b == nil {
		return b, err
	}
	if err := pal.NotifyUsing(b); err != nil {
		r.parent.DeallocRange(b)
		return nil, nil
	}
	return b, nil
}

func (r *CommitRange) DeallocRange(b []byte) {
	_ = pal.NotifyNotUsing(b)
	r.parent.DeallocRange(b)
}

func (r *CommitRange) Aligned() bool         { return r.parent.Aligned() }
func (r *CommitRange) ConcurrencySafe() bool { return r.parent.ConcurrencySafe() }
