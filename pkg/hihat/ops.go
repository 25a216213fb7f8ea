package hihat

import "github.com/calvinalkan/hihat/pkg/smr"

// storeGet, storePut, storeReplace, storeAdd and storeRemove implement the
// five public operations against a single store generation s. Each returns
// needsMigration=true when s can no longer satisfy the operation — because
// it has already been superseded, is mid-freeze, or is full — at which
// point the caller in table.go calls migrate and retries against whatever
// store migrate returns.
//
// All five share the same probe sequence (store.find) and the same bucket
// state machine: a bucket's record is replaced wholesale by CAS, never
// edited in place, so a thread that loses a race simply re-reads the
// current record and decides whether to retry or bail out to migration.

func (t *Table) storeGet(s *store, _ *smr.Participant, hv HV) (item any, found bool, needsMigration bool) {
	if s.migrating() {
		return nil, false, true
	}

	idx, ok := s.find(hv, false)
	if !ok {
		return nil, false, false
	}

	rec := s.buckets[idx].rec.Load()
	if rec != nil && rec.moving {
		return nil, false, true
	}
	if !rec.live() {
		return nil, false, false
	}

	return rec.item, true, false
}

func (t *Table) storePut(s *store, p *smr.Participant, hv HV, item any) (old any, hadOld bool, needsMigration bool) {
	if s.migrating() || s.usedCount.Load() >= s.threshold {
		return nil, false, true
	}

	idx, ok := s.find(hv, true)
	if !ok {
		return nil, false, true
	}

	b := &s.buckets[idx]
	for {
		cur := b.rec.Load()
		if cur != nil && cur.moving {
			return nil, false, true
		}

		wasLive := cur.live()
		var prevItem any
		// An update to a live key keeps its original epoch — only a fresh
		// insertion mints a new one. Otherwise an overwrite would jump to
		// the back of View's insertion order every time it's touched.
		var epoch uint64
		if wasLive {
			prevItem = cur.item
			epoch = cur.epoch
		} else {
			epoch = t.nextEpoch.Add(1) - 1
		}

		next := &record{item: item, epoch: epoch}
		if !b.rec.CompareAndSwap(cur, next) {
			continue
		}

		if wasLive {
			t.retireItem(prevItem)
		} else {
			t.itemCount.Add(1)
		}

		return prevItem, wasLive, false
	}
}

func (t *Table) storeReplace(s *store, p *smr.Participant, hv HV, item any) (old any, hadOld bool, needsMigration bool) {
	if s.migrating() {
		return nil, false, true
	}

	idx, ok := s.find(hv, false)
	if !ok {
		return nil, false, false
	}

	b := &s.buckets[idx]
	for {
		cur := b.rec.Load()
		if cur != nil && cur.moving {
			return nil, false, true
		}
		if !cur.live() {
			return nil, false, false
		}

		// Replace only ever fires on an already-live record, so the epoch
		// carries forward unchanged — this is an update, not a fresh
		// insertion, and must not move in View's insertion order.
		next := &record{item: item, epoch: cur.epoch}
		if !b.rec.CompareAndSwap(cur, next) {
			continue
		}

		t.retireItem(cur.item)
		return cur.item, true, false
	}
}

func (t *Table) storeAdd(s *store, p *smr.Participant, hv HV, item any) (installed bool, needsMigration bool) {
	if s.migrating() || s.usedCount.Load() >= s.threshold {
		return false, true
	}

	idx, ok := s.find(hv, true)
	if !ok {
		return false, true
	}

	b := &s.buckets[idx]
	for {
		cur := b.rec.Load()
		if cur != nil && cur.moving {
			return false, true
		}
		if cur.live() {
			return false, false
		}

		next := &record{item: item, epoch: t.nextEpoch.Add(1) - 1}
		if !b.rec.CompareAndSwap(cur, next) {
			continue
		}

		t.itemCount.Add(1)
		return true, false
	}
}

func (t *Table) storeRemove(s *store, p *smr.Participant, hv HV) (old any, hadOld bool, needsMigration bool) {
	if s.migrating() {
		return nil, false, true
	}

	idx, ok := s.find(hv, false)
	if !ok {
		return nil, false, false
	}

	b := &s.buckets[idx]
	for {
		cur := b.rec.Load()
		if cur != nil && cur.moving {
			return nil, false, true
		}
		if !cur.live() {
			return nil, false, false
		}

		next := tombstone(false, false)
		if !b.rec.CompareAndSwap(cur, next) {
			continue
		}

		t.itemCount.Add(-1)
		t.retireItem(cur.item)
		return cur.item, true, false
	}
}
