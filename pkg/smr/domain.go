package smr

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
)

// Domain is one instance of the epoch-reclamation subsystem: a global
// epoch counter plus the registry of participants whose reservations bound
// when retired memory becomes safe to reclaim.
//
// A Domain has process lifetime once created: the global epoch and the
// per-participant reservation table are the only mutable state SMR needs,
// and neither requires user configuration. The zero value is not usable;
// construct with [NewDomain].
type Domain struct {
	// epoch is the global monotonic counter. It starts at 1 so that a
	// Participant's zero-valued reservation field unambiguously means
	// "idle" — matching the "start at 1, 0 means unset" convention used for
	// the analogous counter in epoch-based reclaimers across the ecosystem.
	epoch atomic.Uint64

	// participants registers every live Participant so a sweep can compute
	// the minimum active reservation across all of them. Keyed by
	// *Participant for O(1) add/remove; mirrors the identity-keyed
	// sync.Map registry pattern used to coordinate per-file state across
	// handles in slotcache's lock.go.
	participants sync.Map // map[*Participant]struct{}

	// retireThreshold is the per-participant retire-list length at which a
	// Retire call triggers an immediate sweep instead of an amortized one,
	// so a burst of retires under memory pressure gets swept more
	// aggressively instead of piling up unboundedly.
	retireThreshold int
}

// defaultRetireThreshold bounds how many retired headers a single
// participant accumulates before Retire forces a sweep.
const defaultRetireThreshold = 64

// NewDomain creates a Domain ready for Join.
func NewDomain() *Domain {
	d := &Domain{retireThreshold: defaultRetireThreshold}
	d.epoch.Store(1)

	return d
}

// CurrentEpoch returns the current global epoch. Exposed for
// [Participant.StartLinearizedOp] callers that need to label a snapshot,
// and for tests/diagnostics; it has no effect on reclamation by itself.
func (d *Domain) CurrentEpoch() uint64 {
	return d.epoch.Load()
}

// advance bumps the global epoch and returns the new value. Called whenever
// an allocation is committed and whenever a header is retired.
func (d *Domain) advance() uint64 {
	return d.epoch.Add(1)
}

// Join registers a new Participant with the domain. The returned Participant
// must be driven by a single goroutine and released with [Participant.Leave]
// once that goroutine no longer needs to perform operations.
func (d *Domain) Join() *Participant {
	p := &Participant{domain: d}
	d.participants.Store(p, struct{}{})

	return p
}

// minReservation returns the minimum non-idle reservation across all
// registered participants, or math.MaxUint64 if none are active. Retired
// headers with a retire epoch strictly below this value are safe to free.
func (d *Domain) minReservation() uint64 {
	minR := uint64(math.MaxUint64)

	d.participants.Range(func(key, _ any) bool {
		p, _ := key.(*Participant)

		r := p.reservation.Load()
		if r != 0 && r < minR {
			minR = r
		}

		return true
	})

	return minR
}

// Participant is a goroutine's handle into a Domain: a per-thread
// reservation slot that tracks which epoch, if any, that goroutine still
// has in flight.
//
// A Participant is not safe for concurrent use by multiple goroutines — by
// design, exactly one goroutine drives a given reservation. Obtain one with
// [Domain.Join].
type Participant struct {
	domain *Domain

	// reservation is R[t]: 0 when idle, otherwise a snapshot of the global
	// epoch taken at op entry.
	reservation atomic.Uint64

	// list is this participant's private retire list: headers retired by
	// operations this participant drove, awaiting reclamation.
	list retireList
}

// StartBasicOp publishes this participant's reservation as the current
// global epoch. Must be called before dereferencing any SMR-protected
// pointer, and must be paired with [Participant.EndOp].
func (p *Participant) StartBasicOp() {
	p.reservation.Store(p.domain.epoch.Load())
}

// StartLinearizedOp publishes the reservation exactly like StartBasicOp, and
// additionally returns the epoch snapshotted, so a caller can label a read
// with the reclamation epoch it ran under. (hihat's Table.ViewAtEpoch calls
// it only to pin its reservation; it filters on its own insertion epochs and
// ignores the returned value.) Must be paired with [Participant.EndOp].
func (p *Participant) StartLinearizedOp() uint64 {
	e := p.domain.epoch.Load()
	p.reservation.Store(e)

	return e
}

// EndOp clears this participant's reservation, signaling it holds no more
// pointers into SMR-protected structures. Panics with [ErrNotStarted] if no
// op was in progress — this is a programmer error.
func (p *Participant) EndOp() {
	if p.reservation.Swap(0) == 0 {
		panic(ErrNotStarted)
	}
}

// Leave unregisters the participant from its domain. Panics with
// [ErrStillActive] if called while an op is in progress.
func (p *Participant) Leave() {
	if p.reservation.Load() != 0 {
		panic(ErrStillActive)
	}

	p.domain.participants.Delete(p)
}

func (p *Participant) String() string {
	return fmt.Sprintf("smr.Participant{reservation:%d}", p.reservation.Load())
}
