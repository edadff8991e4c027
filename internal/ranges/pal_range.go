package ranges

import "github.com/cznic-labs/snmalloc-go/internal/pal"

// PalRange is the bottom of the pipeline: it talks directly to the
// platform, requesting aligned chunks.
type PalRange struct{}

// NewPalRange constructs the base-of-pipeline PAL stage.
func NewPalRange() *PalRange { return &PalRange{} }

func (r *PalRange) AllocRange(size int) ([]byte, error) {
	b, err := pal.Reserve(size, size)
	if err != nil {
		return nil, nil // OOM is a miss, not a pipeline error
	}
	return b, nil
}

func (r *PalRange) DeallocRange(b []byte) {
	_ = pal.Release(b)
}

func (r *PalRange) Aligned() bool         { return true }
func (r *PalRange) ConcurrencySafe() bool { return true }
