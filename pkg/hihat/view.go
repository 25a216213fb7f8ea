package hihat

import (
	"math"
	"sort"
)

// Entry is one item surfaced by View or ViewAtEpoch, along with the epoch
// at which its key became live (the value of the table's insertion counter
// taken by the Put or Add that inserted it; later Put/Replace updates of the
// same key keep that epoch).
type Entry struct {
	Item  any
	Epoch uint64
}

// View returns every item currently live in the table. If sort is true the
// result is ordered by insertion epoch, oldest first; otherwise the order
// is whatever bucket order the current store happens to hold, which is not
// meaningful to callers.
//
// View is not a linearization point shared with any other operation: an
// item installed or removed while View is running may or may not appear in
// the result.
func (t *Table) View(sort bool) []Entry {
	t.checkOpen()

	p := t.domain.Join()
	defer p.Leave()

	p.StartBasicOp()
	defer p.EndOp()

	s := t.current.Load()
	entries := collectEntries(s, math.MaxUint64)

	if sort {
		sortEntries(entries)
	}
	return entries
}

// ViewAtEpoch returns every item whose insertion epoch is at most epoch,
// ordered by insertion epoch. epoch is on the table's own insertion-order
// scale (the same counter Entry.Epoch reports), not the SMR domain's
// reclamation epoch.
//
// StartLinearizedOp is still called around the scan: it pins the reader's
// SMR reservation for the duration, which is what keeps every record this
// scan might observe safe from reclamation. Its return value plays no part
// in the epoch comparison — mixing the two counters would compare
// insertion-order epochs (advanced once per fresh Put/Add insertion) against
// the domain's reclamation epoch (advanced at every SMR commit and retire:
// the first store, each migration's successor and retired store, and each
// item handed to OnItemRetired), which are unrelated scales.
func (t *Table) ViewAtEpoch(epoch uint64) []Entry {
	t.checkOpen()

	p := t.domain.Join()
	defer p.Leave()

	p.StartLinearizedOp()
	defer p.EndOp()

	s := t.current.Load()
	entries := collectEntries(s, epoch)
	sortEntries(entries)
	return entries
}

func collectEntries(s *store, maxEpoch uint64) []Entry {
	entries := make([]Entry, 0, s.usedCount.Load())

	for i := range s.buckets {
		rec := s.buckets[i].rec.Load()
		if !rec.live() || rec.epoch > maxEpoch {
			continue
		}
		entries = append(entries, Entry{Item: rec.item, Epoch: rec.epoch})
	}

	return entries
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Epoch < entries[j].Epoch
	})
}
