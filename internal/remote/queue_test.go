package remote

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnqueueDequeueOrder(t *testing.T) {
	q := NewQueue()
	require.True(t, q.Empty())

	a := &Node{Addr: 1}
	b := &Node{Addr: 2}
	a.next.Store(b)
	q.Enqueue(a, b)
	require.False(t, q.Empty())

	got := q.Dequeue(10, nil)
	require.Len(t, got, 2)
	require.Equal(t, uintptr(1), got[0].Addr)
	require.Equal(t, uintptr(2), got[1].Addr)
	require.True(t, q.Empty())
}

func TestDequeueBounded(t *testing.T) {
	q := NewQueue()
	nodes := make([]*Node, 5)
	for i := range nodes {
		nodes[i] = &Node{Addr: uintptr(i)}
		if i > 0 {
			nodes[i-1].next.Store(nodes[i])
		}
	}
	q.Enqueue(nodes[0], nodes[4])

	first := q.Dequeue(3, nil)
	require.Len(t, first, 3)
	require.False(t, q.Empty())

	rest := q.Dequeue(10, nil)
	require.Len(t, rest, 2)
	require.True(t, q.Empty())
}

func TestConcurrentProducersSingleConsumer(t *testing.T) {
	q := NewQueue()
	const producers = 8
	const perProducer = 200

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				n := &Node{Addr: uintptr(p*perProducer + i)}
				q.Enqueue(n, n)
			}
		}(p)
	}
	wg.Wait()

	seen := make(map[uintptr]bool)
	for {
		nodes := q.Dequeue(64, nil)
		if len(nodes) == 0 {
			break
		}
		for _, n := range nodes {
			seen[n.Addr] = true
		}
	}
	require.Len(t, seen, producers*perProducer)
}
