package hihat

import (
	"math"
	"time"

	"github.com/calvinalkan/hihat/pkg/smr"
)

// migrate drives self through to a successor store and returns the store
// the caller should retry its operation against. Any number of goroutines
// may call migrate on the same self concurrently, including goroutines that
// only discovered the migration partway through (self already frozen, or
// already forwarded); every step is idempotent so whichever goroutine
// arrives at a step first does the work and the rest observe it already
// done.
//
// The protocol, in order:
//  1. Fast path: if self has already been superseded in t.current, just
//     return the winner — nothing to do.
//  2. Freeze every bucket in self by CASing its record to set the moving
//     bit, counting live items as we go.
//  3. Choose a size for the successor from the live count and install it
//     via a CAS on self.forward — exactly one goroutine's candidate store
//     wins; everyone else's is retired unused. A goroutine that loses this
//     race is the hihat-a variant's cue to back off rather than pile onto
//     step 4 immediately: it waits on the winner for a bounded number of
//     MigrationWait-spaced checks (see waitForMigration) before helping
//     directly.
//  4. Copy every live bucket into the successor, marking each source bucket
//     moved once its copy (or someone else's) is visible there.
//  5. Publish the successor as t.current with a CAS against self, and
//     retire self through the SMR domain so a goroutine still reading
//     through it is not disturbed.
func (t *Table) migrate(self *store) *store {
	if winner := t.current.Load(); winner != self {
		return winner
	}

	liveCount := t.freeze(self)

	next, wonRace := t.installForward(self, liveCount)

	if !wonRace {
		if winner := t.waitForMigration(self); winner != nil {
			return winner
		}
	}

	t.copyInto(self, next)

	if t.current.CompareAndSwap(self, next) {
		smr.Retire(t.retirer, self.header)
	}

	return t.current.Load()
}

// waitForMigration implements the hihat-a bounded-sleep-then-help variant:
// a goroutine that discovers another thread already installed self.forward
// sleeps for up to t.opts.MigrationTries intervals of t.opts.MigrationWait,
// checking after each one whether the migration already finished (self
// superseded in t.current), before giving up and helping copy buckets
// itself. A negative MigrationWait disables the wait entirely — every
// goroutine helps immediately, which is the base hihat variant.
//
// Returns the new current store if the migration completed while waiting,
// or nil if the caller should fall through to helping directly.
func (t *Table) waitForMigration(self *store) *store {
	if t.opts.MigrationWait < 0 {
		return nil
	}

	for i := 0; i < t.opts.MigrationTries; i++ {
		time.Sleep(t.opts.MigrationWait)
		if winner := t.current.Load(); winner != self {
			return winner
		}
	}

	return nil
}

// freeze sets the moving bit on every bucket in s, returning the number of
// buckets holding a live item at the moment each was frozen.
func (t *Table) freeze(s *store) uint64 {
	var live uint64

	for i := range s.buckets {
		b := &s.buckets[i]
		for {
			cur := b.rec.Load()
			if cur != nil && cur.moving {
				if cur.live() {
					live++
				}
				break
			}

			frozen := cur.withFlags(true, false)
			if b.rec.CompareAndSwap(cur, frozen) {
				if frozen.live() {
					live++
				}
				break
			}
		}
	}

	return live
}

// installForward chooses a size for the successor store from liveCount,
// allocates a candidate through the SMR two-phase protocol, and CASes it
// into self.forward. If a concurrent goroutine already won that race, the
// candidate is retired unused and the winner is returned instead, with
// wonRace=false telling the caller someone else is driving this migration.
func (t *Table) installForward(self *store, liveCount uint64) (next *store, wonRace bool) {
	if existing := self.forward.Load(); existing != nil {
		return existing, false
	}

	size := successorSize(liveCount, t.opts.MinSize, t.opts.GrowthRatio)
	candidate := newStore(size, t.opts.GrowthRatio)
	candidate.header = smr.Alloc(candidate, nil)

	if self.forward.CompareAndSwap(nil, candidate) {
		candidate.header.Commit(t.domain)
		return candidate, true
	}

	smr.RetireUnused(candidate.header)
	return self.forward.Load(), false
}

// successorSize returns the smallest power of two (at least minSize) whose
// threshold is strictly above liveCount, so the successor has room for at
// least one more insertion after the live items are copied into it.
func successorSize(liveCount, minSize uint64, growthRatio float64) uint64 {
	target := uint64(math.Floor(float64(liveCount)/growthRatio)) + 1
	if target < minSize {
		target = minSize
	}
	size := nextPowerOfTwo(target)
	if size > maxStoreSize {
		size = maxStoreSize
	}
	return size
}

// copyInto copies every live bucket of old into next, marking each source
// bucket moved once its value is visible in next. Safe to call repeatedly
// and concurrently for the same (old, next) pair.
func (t *Table) copyInto(old, next *store) {
	for i := range old.buckets {
		b := &old.buckets[i]

		for {
			cur := b.rec.Load()
			if cur != nil && cur.moved {
				break
			}

			if cur.live() {
				hv, ok := b.hashValue()
				if !ok {
					panic("hihat: live record on a bucket with no claimed hash value")
				}
				installLiveCopy(next, hv, cur)
			}

			moved := cur.withFlags(true, true)
			if b.rec.CompareAndSwap(cur, moved) {
				break
			}
		}
	}
}

// installLiveCopy installs item/epoch from a frozen source record into its
// home bucket in next, unless some other helper already has.
func installLiveCopy(next *store, hv HV, src *record) {
	idx, ok := next.find(hv, true)
	if !ok {
		panic("hihat: successor store undersized for migration")
	}

	b := &next.buckets[idx]
	for {
		cur := b.rec.Load()
		if cur.live() {
			return
		}

		installed := &record{item: src.item, epoch: src.epoch}
		if b.rec.CompareAndSwap(cur, installed) {
			return
		}
	}
}
