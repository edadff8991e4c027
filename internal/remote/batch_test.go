package remote

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cznic-labs/snmalloc-go/internal/config"
)

func TestBatchFlushesAtCountThreshold(t *testing.T) {
	b := NewBatch()
	dest := Destination{Owner: 42}

	var flushed bool
	for i := 0; i < config.RemoteBatch; i++ {
		_, _, _, shouldFlush := b.Add(dest, uintptr(i+1), 0, 16)
		if shouldFlush {
			flushed = true
			require.Equal(t, config.RemoteBatch, i+1)
		}
	}
	require.True(t, flushed)
}

func TestBatchGroupsByDestination(t *testing.T) {
	b := NewBatch()
	destA := Destination{Owner: 1}
	destB := Destination{Owner: 2}

	b.Add(destA, 0x1000, 0, 16)
	b.Add(destB, 0x2000, 0, 16)
	b.Add(destA, 0x1010, 0, 16)

	groups := b.FlushAll()
	require.Len(t, groups, 2)
	require.Equal(t, 2, Count(groups[1]))
	require.Equal(t, 1, Count(groups[2]))
	require.Equal(t, uintptr(0x1000), First(groups[1]).Addr)
	require.Equal(t, uintptr(0x1010), Last(groups[1]).Addr)
}

func TestFlushAllResetsBatch(t *testing.T) {
	b := NewBatch()
	b.Add(Destination{Owner: 1}, 0x1000, 0, 16)
	require.Len(t, b.FlushAll(), 1)
	require.Empty(t, b.FlushAll())
}
