package hihat

import (
	"sync/atomic"

	"github.com/calvinalkan/hihat/pkg/smr"
)

// Table is a lock-free, resizable hash table keyed by 128-bit hash values.
// The zero Table is not usable; construct one with New.
type Table struct {
	opts Options

	domain *smr.Domain

	// retirer is a dedicated Participant used only to retire stores and
	// displaced items, never to bracket a read/write op. Keeping it
	// separate from the per-call participants used by the convenience
	// methods matters: those join and leave on every call, and a
	// Participant's retire list does not survive past Leave, so anything
	// retired through one of them could sit unswept forever once it
	// leaves. retirer lives for the Table's whole lifetime instead.
	retirer *smr.Participant

	current   atomic.Pointer[store]
	itemCount atomic.Int64
	nextEpoch atomic.Uint64

	closed atomic.Bool
}

// New constructs a Table. The returned Table must eventually be closed with
// Close.
func New(opts Options) *Table {
	opts = opts.withDefaults()

	domain := smr.NewDomain()

	t := &Table{
		opts:    opts,
		domain:  domain,
		retirer: domain.Join(),
	}
	t.nextEpoch.Store(1)

	s := newStore(opts.MinSize, opts.GrowthRatio)
	s.header = smr.AllocCommitted(t.domain, s, nil)
	t.current.Store(s)

	return t
}

// Close releases the Table's memory reclamation domain. It does not free
// the current store's items — callers relying on OnItemRetired for cleanup
// should drain the table with Remove before calling Close if every item
// must be accounted for.
func (t *Table) Close() {
	t.closed.Store(true)
	t.retirer.Sweep()
	t.retirer.Leave()
}

func (t *Table) checkOpen() {
	if t.closed.Load() {
		panic(ErrClosed)
	}
}

func checkHV(hv HV) {
	if hv.unreserved() {
		panic(ErrZeroHV)
	}
}

// Len returns the number of items currently stored. It is a snapshot, not a
// linearization point shared with any other operation.
func (t *Table) Len() uint64 {
	n := t.itemCount.Load()
	if n < 0 {
		return 0
	}
	return uint64(n)
}

// Join returns a new Participant registered with the Table's memory
// reclamation domain, for callers who want to amortize registry churn
// across many calls via the *WithParticipant methods instead of using the
// convenience methods below. The returned Participant must eventually have
// Leave called on it.
func (t *Table) Join() *smr.Participant {
	return t.domain.Join()
}

// --- convenience methods: join a participant, use it, leave --------------

// Get returns the item stored under hv, if any.
func (t *Table) Get(hv HV) (item any, found bool) {
	p := t.domain.Join()
	defer p.Leave()
	return t.GetWithParticipant(p, hv)
}

// Put installs item under hv unconditionally, returning the item it
// replaced, if any.
func (t *Table) Put(hv HV, item any) (old any, hadOld bool) {
	p := t.domain.Join()
	defer p.Leave()
	return t.PutWithParticipant(p, hv, item)
}

// Replace installs item under hv only if hv already holds a live item,
// returning the item it replaced.
func (t *Table) Replace(hv HV, item any) (old any, hadOld bool) {
	p := t.domain.Join()
	defer p.Leave()
	return t.ReplaceWithParticipant(p, hv, item)
}

// Add installs item under hv only if hv does not already hold a live item.
// It reports whether the install happened.
func (t *Table) Add(hv HV, item any) (installed bool) {
	p := t.domain.Join()
	defer p.Leave()
	return t.AddWithParticipant(p, hv, item)
}

// Remove deletes the item stored under hv, returning it if one was present.
func (t *Table) Remove(hv HV) (old any, hadOld bool) {
	p := t.domain.Join()
	defer p.Leave()
	return t.RemoveWithParticipant(p, hv)
}

// --- explicit-participant methods: amortize Join/Leave across many calls -

// GetWithParticipant is Get for a caller that already holds a Participant
// obtained from its own Domain usage pattern (see package smr). Reusing a
// Participant across many calls from the same goroutine avoids the
// registry churn of repeated Join/Leave.
func (t *Table) GetWithParticipant(p *smr.Participant, hv HV) (item any, found bool) {
	t.checkOpen()
	checkHV(hv)

	p.StartBasicOp()
	defer p.EndOp()

	s := t.current.Load()
	for {
		item, found, needsMigration := t.storeGet(s, p, hv)
		if !needsMigration {
			return item, found
		}
		s = t.migrate(s)
	}
}

func (t *Table) PutWithParticipant(p *smr.Participant, hv HV, item any) (old any, hadOld bool) {
	t.checkOpen()
	checkHV(hv)

	p.StartBasicOp()
	defer p.EndOp()

	s := t.current.Load()
	for {
		old, hadOld, needsMigration := t.storePut(s, p, hv, item)
		if !needsMigration {
			return old, hadOld
		}
		s = t.migrate(s)
	}
}

func (t *Table) ReplaceWithParticipant(p *smr.Participant, hv HV, item any) (old any, hadOld bool) {
	t.checkOpen()
	checkHV(hv)

	p.StartBasicOp()
	defer p.EndOp()

	s := t.current.Load()
	for {
		old, hadOld, needsMigration := t.storeReplace(s, p, hv, item)
		if !needsMigration {
			return old, hadOld
		}
		s = t.migrate(s)
	}
}

func (t *Table) AddWithParticipant(p *smr.Participant, hv HV, item any) (installed bool) {
	t.checkOpen()
	checkHV(hv)

	p.StartBasicOp()
	defer p.EndOp()

	s := t.current.Load()
	for {
		installed, needsMigration := t.storeAdd(s, p, hv, item)
		if !needsMigration {
			return installed
		}
		s = t.migrate(s)
	}
}

func (t *Table) RemoveWithParticipant(p *smr.Participant, hv HV) (old any, hadOld bool) {
	t.checkOpen()
	checkHV(hv)

	p.StartBasicOp()
	defer p.EndOp()

	s := t.current.Load()
	for {
		old, hadOld, needsMigration := t.storeRemove(s, p, hv)
		if !needsMigration {
			return old, hadOld
		}
		s = t.migrate(s)
	}
}

// retireItem hands a displaced item to the SMR domain so OnItemRetired runs
// exactly once, after no in-flight operation could still observe it. It is
// a no-op if the caller configured no callback.
func (t *Table) retireItem(item any) {
	if t.opts.OnItemRetired == nil {
		return
	}
	h := smr.AllocCommitted(t.domain, item, t.opts.OnItemRetired)
	smr.Retire(t.retirer, h)
	t.retirer.Sweep()
}
