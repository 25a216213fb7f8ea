package smr

import "errors"

// Sentinel identities for misuse panics.
//
// smr never returns these to a caller — misuse of the reservation protocol
// has no recoverable error path. They exist so panic messages and internal
// assertions share one greppable identity, the same role Err* sentinels
// play in slotcache's classification comments even where the concrete
// failure is a bug rather than an operational condition.
var (
	// ErrNotStarted indicates EndOp was called without a matching StartBasicOp
	// or StartLinearizedOp.
	ErrNotStarted = errors.New("smr: end of op with no op in progress")

	// ErrStillActive indicates Leave was called while an op was in progress.
	ErrStillActive = errors.New("smr: leave with op still in progress")
)
