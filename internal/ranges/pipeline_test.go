package ranges

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cznic-labs/snmalloc-go/internal/config"
	"github.com/cznic-labs/snmalloc-go/internal/pagemap"
)

func TestObjectPipelineAllocDeallocUpdatesStats(t *testing.T) {
	pm := pagemap.New()
	p := NewPipelines(pm, 47, false)
	defer p.Close()

	require.Zero(t, p.Object.Current())

	b, err := p.Object.AllocRange(config.MinChunkSize)
	require.NoError(t, err)
	require.Len(t, b, config.MinChunkSize)
	require.EqualValues(t, config.MinChunkSize, p.Object.Current())
	require.EqualValues(t, config.MinChunkSize, p.Object.Peak())

	p.Object.DeallocRange(b)
	require.Zero(t, p.Object.Current())
	require.EqualValues(t, config.MinChunkSize, p.Object.Peak())
}

func TestMetaPipelineServesSmallAllocations(t *testing.T) {
	pm := pagemap.New()
	p := NewPipelines(pm, 47, false)
	defer p.Close()

	b, err := p.Meta.AllocRange(128)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(b), 128)
	p.Meta.DeallocRange(b)
}

func TestHardenedMetaPipelineServesSmallAllocations(t *testing.T) {
	pm := pagemap.New()
	p := NewPipelines(pm, 47, true)
	defer p.Close()

	b, err := p.Meta.AllocRange(128)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(b), 128)
	p.Meta.DeallocRange(b)
}

func TestObjectPipelineReusesFreedChunkOfSameSize(t *testing.T) {
	pm := pagemap.New()
	p := NewPipelines(pm, 47, false)
	defer p.Close()

	b1, err := p.Object.AllocRange(config.MinChunkSize)
	require.NoError(t, err)
	p.Object.DeallocRange(b1)

	peakAfterFirst := p.Object.Peak()
	b2, err := p.Object.AllocRange(config.MinChunkSize)
	require.NoError(t, err)
	require.Equal(t, peakAfterFirst, p.Object.Peak())
	p.Object.DeallocRange(b2)
}
