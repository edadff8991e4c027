package local

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type state struct{ n int }

func TestGetConstructsOncePerGoroutine(t *testing.T) {
	var constructed int
	var mu sync.Mutex
	h := NewHandle(func() *state {
		mu.Lock()
		constructed++
		mu.Unlock()
		return &state{}
	})

	v1 := h.Get()
	v2 := h.Get()
	require.Same(t, v1, v2)
	require.Equal(t, 1, constructed)
}

func TestDistinctGoroutinesGetDistinctValues(t *testing.T) {
	h := NewHandle(func() *state { return &state{} })

	const n = 16
	results := make([]*state, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			results[i] = h.Get()
		}(i)
	}
	wg.Wait()

	seen := make(map[*state]bool)
	for _, r := range results {
		require.NotNil(t, r)
		seen[r] = true
	}
	require.Len(t, seen, n)
}

func TestClearForcesReconstruction(t *testing.T) {
	var constructed int
	h := NewHandle(func() *state {
		constructed++
		return &state{n: constructed}
	})

	first := h.Get()
	h.Clear()
	second := h.Get()

	require.NotSame(t, first, second)
	require.Equal(t, 2, constructed)
}
