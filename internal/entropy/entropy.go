// Package entropy derives per-slab free-list keys from one PAL entropy
// query, mixed through xxhash for cheap, well-distributed expansion of
// a single seed into many keys rather than a cryptographic hash, which
// would cost far more per slab for no benefit here.
package entropy

import (
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/cznic-labs/snmalloc-go/internal/pal"
)

// Source produces per-slab free-list keys.
type Source struct {
	counter uint64
	seed    uint64
}

// NewSource seeds a Source from the PAL entropy call once; subsequent
// keys are derived by mixing an incrementing counter through xxhash
// rather than re-querying the OS per slab.
func NewSource() *Source {
	return &Source{seed: pal.Entropy64()}
}

// NextKeyPair returns a fresh (k1, k2) pair for a newly created slab.
func (s *Source) NextKeyPair() (k1, k2 uint64) {
	n := atomic.AddUint64(&s.counter, 1)
	var buf [16]byte
	putU64(buf[0:8], s.seed)
	putU64(buf[8:16], n)
	k1 = xxhash.Sum64(buf[:])
	putU64(buf[0:8], k1)
	k2 = xxhash.Sum64(buf[:])
	if k2 == 0 {
		k2 = 1
	}
	return k1, k2
}

func putU64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
