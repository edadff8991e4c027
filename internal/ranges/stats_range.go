package ranges

import "sync/atomic"

// StatsRange maintains atomic current/peak byte counters, using relaxed
// atomics with a CAS loop for the peak update.
type StatsRange struct {
	parent  Range
	current atomic.Int64
	peak    atomic.Int64
}

// NewStatsRange wraps parent with byte-accounting counters.
func NewStatsRange(parent Range) *StatsRange { return &StatsRange{parent: parent} }

func (r *StatsRange) AllocRange(size int) ([]byte, error) {
	b, err := r.parent.AllocRange(size)
	if err != nil || b == nil {
		return b, err
	}
	n := r.current.Add(int64(len(b)))
	r.bumpPeak(n)
	return b, nil
}

func (r *StatsRange) DeallocRange(b []byte) {
	r.current.Add(-int64(len(b)))
	r.parent.DeallocRange(b)
}

func (r *StatsRange) bumpPeak(n int64) {
	for {
		p := r.peak.Load()
		if n <= p {
			return
		}
		if r.peak.CompareAndSwap(p, n) {
			return
		}
	}
}

// Current returns the current live byte count.
func (r *StatsRange) Current() int64 { return r.current.Load() }

// Peak returns the highest live byte count observed.
func (r *StatsRange) Peak() int64 { return r.peak.Load() }

func (r *StatsRange) Aligned() bool         { return r.parent.Aligned() }
func (r *StatsRange) ConcurrencySafe() bool { return r.parent.ConcurrencySafe() }
