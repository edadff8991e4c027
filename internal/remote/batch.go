package remote

import "github.com/cznic-labs/snmalloc-go/internal/config"

// Destination identifies another allocator's inbox by its identity
// (pagemap Owner value) paired with the live Queue to deliver to.
type Destination struct {
	Owner uintptr
	Queue *Queue
}

// pending accumulates one destination's outbound chain before flush.
type pending struct {
	first, last *Node
	count       int
	bytes       int
}

// Batch groups an allocator's outgoing cross-thread frees by
// destination allocator, flushing a destination's chain once it reaches
// config.RemoteBatch entries or config.RemoteCache accumulated bytes.
type Batch struct {
	groups map[uintptr]*pending
}

// NewBatch constructs an empty outbound batch cache.
func NewBatch() *Batch { return &Batch{groups: make(map[uintptr]*pending)} }

// Add appends one freed object addressed to dest. If a threshold was
// reached it removes the destination's chain from the batch and returns
// it (first, last, count) with shouldFlush true; otherwise it returns
// nil, nil, 0, false and the batch keeps accumulating.
func (b *Batch) Add(dest Destination, addr uintptr, sc uint8, objSize int) (flushFirst, flushLast *Node, flushCount int, shouldFlush bool) {
	n := &Node{Addr: addr, Sizeclass: sc}
	g, ok := b.groups[dest.Owner]
	if !ok {
		g = &pending{}
		b.groups[dest.Owner] = g
	}
	if g.first == nil {
		g.first = n
	} else {
		g.last.next.Store(n)
	}
	g.last = n
	g.count++
	g.bytes += objSize

	if g.count >= config.RemoteBatch || g.bytes >= config.RemoteCache {
		first, last, count := g.first, g.last, g.count
		delete(b.groups, dest.Owner)
		return first, last, count, true
	}
	return nil, nil, 0, false
}

// FlushAll drains every destination's pending chain regardless of
// threshold, for allocator teardown.
func (b *Batch) FlushAll() map[uintptr]*pending {
	out := b.groups
	b.groups = make(map[uintptr]*pending)
	return out
}

// Empty reports whether the batch holds no pending outbound entries for
// any destination.
func (b *Batch) Empty() bool { return len(b.groups) == 0 }

// First, Last and Count expose a flushed group's chain to the caller
// delivering it onto the destination's Queue.
func First(p *pending) *Node { return p.first }
func Last(p *pending) *Node  { return p.last }
func Count(p *pending) int   { return p.count }
