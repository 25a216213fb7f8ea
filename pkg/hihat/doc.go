// Package hihat implements a lock-free, linearizable, resizable
// open-addressed hash table keyed by 128-bit hash values.
//
// hihat is the "half-interesting hash table": every operation is lock-free
// (get/put/replace/add/remove never block on a mutex), and growing or
// shrinking the table — migration — is a cooperative protocol any thread
// can help finish, not a stop-the-world pause owned by one writer.
//
// # Usage
//
//	table := hihat.New(hihat.Options{})
//	defer table.Close()
//
//	old, had := table.Put(hv, "value")
//	item, found := table.Get(hv)
//	old, had = table.Remove(hv)
//
// Entries are ordered by insertion epoch for snapshotting:
//
//	entries := table.View(true) // sorted by insertion order
//
// # Concurrency
//
// All of Table's exported methods are safe for concurrent use by any number
// of goroutines. There is no reader/writer distinction: every operation,
// including Get, participates in the same lock-free CAS protocol.
//
// # Memory reclamation
//
// Table is backed by [github.com/calvinalkan/hihat/pkg/smr]: old stores
// (replaced during migration) are retired rather than freed immediately, so
// that a goroutine that loaded a store pointer before a migration completes
// may keep reading through it safely. Callers do not need to think about
// this — it is handled internally — but it is why Table keeps an
// [github.com/calvinalkan/hihat/pkg/smr.Domain] of its own rather than
// operating on bare pointers.
//
// # What this package does not do
//
// hihat has no notion of keys, equality, or hashing — callers supply a
// precomputed 128-bit [HV] and an opaque item. [github.com/calvinalkan/hihat/pkg/dict]
// layers ordinary Go keys on top of this package for that purpose. hihat
// also never persists to disk, never spans processes, and does not attempt
// cryptographically strong hashing — none of that is this package's job.
package hihat
