package hihat

import (
	"math"
	"sync/atomic"

	"github.com/calvinalkan/hihat/pkg/smr"
)

// store is one generation of the table's bucket array. A Table always
// migrates forward to a new store rather than resizing this one in place;
// once a store's forward pointer is set, every thread that still holds a
// reference to it is expected to help finish the migration before retrying
// its operation against the new store.
type store struct {
	lastSlot  uint64 // size-1; size is always a power of two
	threshold uint64 // used-bucket count at which a migration is triggered
	usedCount atomic.Uint64
	forward   atomic.Pointer[store]
	buckets   []bucket

	// header is this store's own SMR allocation record. It is committed
	// once the store is published (either as the table's very first store,
	// or as the winning successor of a migration) and retired once a
	// successor supersedes it in turn.
	header *smr.Header[*store]
}

func newStore(size uint64, growthRatio float64) *store {
	if size == 0 {
		size = 1
	}
	return &store{
		lastSlot:  size - 1,
		threshold: computeThreshold(size, growthRatio),
		buckets:   make([]bucket, size),
	}
}

func computeThreshold(size uint64, growthRatio float64) uint64 {
	t := math.Ceil(float64(size) * growthRatio)
	if t < 1 {
		t = 1
	}
	return uint64(t)
}

func (s *store) size() uint64 {
	return s.lastSlot + 1
}

// migrating reports whether this store has already been superseded.
func (s *store) migrating() bool {
	return s.forward.Load() != nil
}

// find walks the probe sequence for hv starting at its home bucket. It
// returns the bucket that owns hv if one is found, the first bucket with an
// unclaimed hash slot if claim is true and none does, or ok=false if the
// probe exhausts the store without finding either (the store is full — the
// caller must migrate).
func (s *store) find(hv HV, claim bool) (idx uint64, ok bool) {
	start := bucketIndex(hv, s.lastSlot)
	i := start

	for probes := uint64(0); probes <= s.lastSlot; probes++ {
		b := &s.buckets[i]

		cur, has := b.hashValue()
		if has && cur.Equal(hv) {
			return i, true
		}

		if !has {
			if !claim {
				return 0, false
			}
			matched, fresh := b.claim(hv)
			if fresh {
				s.usedCount.Add(1)
			}
			if matched {
				return i, true
			}
		}

		i = probeNext(i, s.lastSlot)
	}

	return 0, false
}
