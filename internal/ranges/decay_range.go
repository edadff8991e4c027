package ranges

import (
	"sync"
	"time"

	"github.com/cznic-labs/snmalloc-go/internal/config"
)

// DecayRange holds config.NumEpochs per-size-class stacks of freed
// chunks. A periodic tick advances the current epoch and flushes the
// stack that is about to become current back to the parent range; on an
// allocation miss it flushes every epoch and retries once before
// reporting OOM. Size classes at or above config.DecayCapBits bypass the
// cache entirely.
//
// The periodic callback is a single time.Ticker-driven goroutine per
// DecayRange, stopped explicitly by Close, since there is no platform
// timer to own its lifetime here.
type DecayRange struct {
	parent Range

	mu      sync.Mutex
	stacks  [config.NumEpochs][]bucket
	current int

	stop chan struct{}
	once sync.Once
}

type bucket struct {
	order int
	block []byte
}

// NewDecayRange wraps parent with epoch-based temporal caching and
// starts its decay ticker.
func NewDecayRange(parent Range) *DecayRange {
	d := &DecayRange{parent: parent, stop: make(chan struct{})}
	go d.tick()
	return d
}

func (d *DecayRange) tick() {
	t := time.NewTicker(config.DecayPeriod)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			d.advanceEpoch()
		case <-d.stop:
			return
		}
	}
}

// advanceEpoch rotates to the next epoch and flushes the stack that was
// config.NumEpochs-1 epochs behind (the one about to become current)
// back to the parent.
func (d *DecayRange) advanceEpoch() {
	d.mu.Lock()
	next := (d.current + 1) % config.NumEpochs
	flush := d.stacks[next]
	d.stacks[next] = nil
	d.current = next
	d.mu.Unlock()

	for _, b := range flush {
		d.parent.DeallocRange(b.block)
	}
}

// Close stops the decay ticker and drains every epoch's stack
// synchronously back to the parent range.
func (d *DecayRange) Close() {
	d.once.Do(func() { close(d.stop) })
	d.flushAll()
}

func (d *DecayRange) flushAll() {
	d.mu.Lock()
	var all []bucket
	for i := range d.stacks {
		all = append(all, d.stacks[i]...)
		d.stacks[i] = nil
	}
	d.mu.Unlock()

	for _, b := range all {
		d.parent.DeallocRange(b.block)
	}
}

func (d *DecayRange) AllocRange(size int) ([]byte, error) {
	order := bitLen(size)
	if order >= config.DecayCapBits {
		return d.parent.AllocRange(size)
	}

	d.mu.Lock()
	for epoch := 0; epoch < config.NumEpochs; epoch++ {
		s := d.stacks[epoch]
		for i, b := range s {
			if b.order == order {
				s[i] = s[len(s)-1]
				d.stacks[epoch] = s[:len(s)-1]
				d.mu.Unlock()
				return b.block, nil
			}
		}
	}
	d.mu.Unlock()

	b, err := d.parent.AllocRange(size)
	if err != nil {
		return nil, err
	}
	if b != nil {
		return b, nil
	}

	// OOM from parent: flush everything and retry once.
	d.flushAll()
	return d.parent.AllocRange(size)
}

func (d *DecayRange) DeallocRange(b []byte) {
	order := bitLen(len(b))
	if order >= config.DecayCapBits {
		d.parent.DeallocRange(b)
		return
	}

	d.mu.Lock()
	d.stacks[d.current] = append(d.stacks[d.current], bucket{order: order, block: b})
	d.mu.Unlock()
}

func (d *DecayRange) Aligned() bool         { return d.parent.Aligned() }
func (d *DecayRange) ConcurrencySafe() bool { return false }
