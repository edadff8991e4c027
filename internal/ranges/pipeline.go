package ranges

import (
	"github.com/cznic-labs/snmalloc-go/internal/buddy"
	"github.com/cznic-labs/snmalloc-go/internal/config"
	"github.com/cznic-labs/snmalloc-go/internal/pagemap"
)

// Pipelines bundles the process-wide singleton range stacks: one shared
// GlobalRange feeding the object path and (optionally hardened) meta
// path, each with its own StatsRange for independent accounting.
type Pipelines struct {
	Object *StatsRange
	Meta   *StatsRange

	objectDecay *DecayRange
}

// NewPipelines wires PalRange -> PagemapRegisterRange -> LargeBuddyRange
// -> CommitRange -> DecayRange -> GlobalRange -> StatsRange for object
// chunks, and a parallel, optionally guard-paged, chain for metadata.
func NewPipelines(pm *pagemap.Map, maxSizeBits int, hardened bool) *Pipelines {
	pal0 := NewPalRange()
	reg := NewPagemapRegisterRange(pal0, pm, true)
	lb := buddy.NewLargeBuddyRange(pm, maxSizeBits)
	bud := NewLargeBuddyStage(reg, lb)
	commit := NewCommitRange(bud)
	decay := NewDecayRange(commit)
	global := NewGlobalRange(decay)
	objStats := NewStatsRange(global)

	var metaParent Range = objStats
	if hardened {
		metaParent = NewSubRange(objStats)
	}
	metaSmall := NewSmallBuddyStage(metaParent)
	metaGlobal := NewGlobalRange(metaSmall)
	metaStats := NewStatsRange(metaGlobal)

	return &Pipelines{Object: objStats, Meta: metaStats, objectDecay: decay}
}

// Close stops the decay ticker and flushes outstanding cached chunks
// back to the OS, for clean process/test teardown.
func (p *Pipelines) Close() {
	if p.objectDecay != nil {
		p.objectDecay.Close()
	}
}
