// Package dict layers an ordinary Go map-like API over
// [github.com/calvinalkan/hihat/pkg/hihat], so callers who just want a
// concurrent map keyed by comparable Go values don't need to construct
// 128-bit hash values themselves.
//
// Two independently seeded [hash/maphash.Hash]-style passes over the key
// (via [hash/maphash.Comparable]) produce the two halves of the HV hihat
// needs; collisions between the two halves landing on the reserved zero
// value are handled by nudging the low half to 1, which does not change
// which keys collide with each other since that only happens for the one
// key whose natural hash would have been the reserved value in the first
// place.
package dict

import (
	"hash/maphash"

	"github.com/calvinalkan/hihat/pkg/hihat"
)

// KV is one key/value pair, as returned by Items.
type KV[K comparable, V any] struct {
	Key   K
	Value V
}

// pair is what Dict actually stores in the underlying table: hihat has no
// notion of keys, only opaque items, so Dict stores the key alongside the
// value to make Items possible.
type pair[K comparable, V any] struct {
	key   K
	value V
}

// Dict is a generic, concurrent, lock-free map. The zero Dict is not
// usable; construct one with New.
type Dict[K comparable, V any] struct {
	table  *hihat.Table
	seedHi maphash.Seed
	seedLo maphash.Seed
}

// New constructs an empty Dict.
func New[K comparable, V any]() *Dict[K, V] {
	return &Dict[K, V]{
		table:  hihat.New(hihat.Options{}),
		seedHi: maphash.MakeSeed(),
		seedLo: maphash.MakeSeed(),
	}
}

// NewWithOptions constructs an empty Dict with the given underlying table
// options (sizing, growth ratio, migration behavior).
func NewWithOptions[K comparable, V any](opts hihat.Options) *Dict[K, V] {
	return &Dict[K, V]{
		table:  hihat.New(opts),
		seedHi: maphash.MakeSeed(),
		seedLo: maphash.MakeSeed(),
	}
}

// Close releases the Dict's underlying table.
func (d *Dict[K, V]) Close() {
	d.table.Close()
}

func (d *Dict[K, V]) hv(key K) hihat.HV {
	h := hihat.HV{
		Hi: maphash.Comparable(d.seedHi, key),
		Lo: maphash.Comparable(d.seedLo, key),
	}
	if h.Hi == 0 && h.Lo == 0 {
		h.Lo = 1
	}
	return h
}

// Get returns the value stored under key, if any.
func (d *Dict[K, V]) Get(key K) (V, bool) {
	item, found := d.table.Get(d.hv(key))
	if !found {
		var zero V
		return zero, false
	}
	return item.(pair[K, V]).value, true
}

// Put installs value under key unconditionally, returning the value it
// replaced, if any.
func (d *Dict[K, V]) Put(key K, value V) (V, bool) {
	old, had := d.table.Put(d.hv(key), pair[K, V]{key: key, value: value})
	if !had {
		var zero V
		return zero, false
	}
	return old.(pair[K, V]).value, true
}

// Replace installs value under key only if key already holds a value,
// returning the value it replaced.
func (d *Dict[K, V]) Replace(key K, value V) (V, bool) {
	old, had := d.table.Replace(d.hv(key), pair[K, V]{key: key, value: value})
	if !had {
		var zero V
		return zero, false
	}
	return old.(pair[K, V]).value, true
}

// Add installs value under key only if key does not already hold a value.
// It reports whether the install happened.
func (d *Dict[K, V]) Add(key K, value V) bool {
	return d.table.Add(d.hv(key), pair[K, V]{key: key, value: value})
}

// Remove deletes the value stored under key, returning it if one was
// present.
func (d *Dict[K, V]) Remove(key K) (V, bool) {
	old, had := d.table.Remove(d.hv(key))
	if !had {
		var zero V
		return zero, false
	}
	return old.(pair[K, V]).value, true
}

// Len returns the number of keys currently stored.
func (d *Dict[K, V]) Len() uint64 {
	return d.table.Len()
}

// Items returns every key/value pair currently live, ordered by insertion.
func (d *Dict[K, V]) Items() []KV[K, V] {
	entries := d.table.View(true)
	out := make([]KV[K, V], 0, len(entries))
	for _, e := range entries {
		p := e.Item.(pair[K, V])
		out = append(out, KV[K, V]{Key: p.key, Value: p.value})
	}
	return out
}
