// Package remote implements the cross-thread deallocation protocol: one
// MPSC inbox per allocator, and the sender-side batch cache that groups
// outgoing frees by destination.
//
// Rather than overlaying link pointers inside each freed object's own
// bytes to chain it through the queue, the queue threads a small side
// list of Node values (one per queued object): Go's garbage collector
// already tracks every in-flight Node, so there's no need to encode
// queue links into arbitrary slab memory, and it keeps per-object
// slab-key decoding (which differs object to object, since a batch can
// span many producers' slabs) out of the queue's hot path entirely. The
// classic multi-producer append algorithm still applies unchanged:
// atomic exchange of the tail pointer, then link the prior tail's next
// slot, with a dummy head so the consumer never races a producer for
// the first node.
package remote

import "sync/atomic"

// Node is one queued cross-thread deallocation.
type Node struct {
	Addr      uintptr
	Sizeclass uint8
	next      atomic.Pointer[Node]
}

// Queue is a single allocator's remote-dealloc inbox: multi-producer,
// single-consumer, lock-free append, lock-free drain.
type Queue struct {
	dummy Node
	tail  atomic.Pointer[Node]
	head  *Node // consumer-owned only
}

// NewQueue constructs an empty inbox.
func NewQueue() *Queue {
	q := &Queue{}
	q.tail.Store(&q.dummy)
	q.head = &q.dummy
	return q
}

// Enqueue splices the linked chain [first..last] onto the queue as a
// single atomic operation.
func (q *Queue) Enqueue(first, last *Node) {
	if first == nil {
		return
	}
	prev := q.tail.Swap(last)
	prev.next.Store(first)
}

// Dequeue pops and returns up to max nodes, or fewer if the queue runs
// dry first. A nil
// domesticate disables pointer authentication (the no-op case for
// non-provenance architectures); callers on capability architectures
// would pass a real check here.
func (q *Queue) Dequeue(max int, domesticate func(*Node) *Node) []*Node {
	var out []*Node
	for len(out) < max {
		next := q.head.next.Load()
		if next == nil {
			break
		}
		if domesticate != nil {
			next = domesticate(next)
		}
		q.head = next
		out = append(out, next)
	}
	return out
}

// Empty reports whether the consumer has drained everything currently
// visible (a producer may still be mid-append).
func (q *Queue) Empty() bool { return q.head.next.Load() == nil }
