// Package smr provides epoch-based safe memory reclamation for lock-free
// data structures.
//
// It lets readers dereference pointers into structures that may be
// logically replaced at any moment, while guaranteeing that a structure is
// never reclaimed while any in-flight operation could still reach it.
//
// # Model
//
// A [Domain] owns a single monotonic global epoch and a registry of
// [Participant] handles. Exactly one goroutine drives a given Participant at
// a time (a Participant is the Go analog of hatrack's per-thread
// reservation slot, R[t]) — call [Domain.Join] once per goroutine that will
// perform operations, and [Participant.Leave] when that goroutine is done
// for good.
//
// Around every operation that touches reclaimable memory, call
// [Participant.StartBasicOp] before and [Participant.EndOp] after:
//
//	p := domain.Join()
//	defer p.Leave()
//
//	p.StartBasicOp()
//	store := current.Load()
//	... read through store ...
//	p.EndOp()
//
// Allocations that may need to be discarded before ever becoming visible
// (the loser of a CAS race) use the two-phase [Alloc] /
// [Header.Commit] / [RetireUnused] protocol; allocations that are
// unconditionally published use [AllocCommitted]. Structures that are
// logically replaced are handed to [Retire], which defers the
// supplied cleanup until no participant could still observe the old epoch.
//
// There are no recoverable error conditions here: misuse (ending an op that
// was never started, retiring without ever joining) is a programmer error
// and panics.
package smr
