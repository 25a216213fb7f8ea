package hihat

import "errors"

// These describe programming errors — a misused Table, not a runtime
// condition callers are expected to recover from. Table's public methods
// panic with one of these rather than returning an error; tests and any
// code that recovers should classify with errors.Is.
var (
	// ErrZeroHV is the value a panic carries when an operation is called
	// with the reserved zero HV, which cannot be stored.
	ErrZeroHV = errors.New("hihat: zero HV is reserved and cannot be stored")

	// ErrClosed is the value a panic carries when a Table is used after
	// Close.
	ErrClosed = errors.New("hihat: table is closed")
)
