// Package refmodel provides a deliberately simple, single-threaded model of
// a hash table's publicly observable behavior.
//
// This is NOT a lock-free implementation of anything — it is a map with a
// mutex around it. It exists so property-based tests can compare
// [github.com/calvinalkan/hihat/pkg/hihat.Table]'s behavior against an
// obviously-correct oracle instead of against itself.
package refmodel

import (
	"sort"
	"sync"

	"github.com/calvinalkan/hihat/pkg/hihat"
)

// entry is what the model keeps per live key: the item and the epoch at
// which the key was inserted, mirroring hihat.Entry.
type entry struct {
	item  any
	epoch uint64
}

// Model is a naive, linearizable hash table keyed by hihat.HV. All methods
// hold a single mutex for the duration of the call; there is no concurrency
// to speak of here, by design.
type Model struct {
	mu        sync.Mutex
	items     map[hihat.HV]entry
	nextEpoch uint64
}

// New returns an empty Model.
func New() *Model {
	return &Model{items: make(map[hihat.HV]entry), nextEpoch: 1}
}

func (m *Model) advance() uint64 {
	e := m.nextEpoch
	m.nextEpoch++
	return e
}

// Get mirrors hihat.Table.Get.
func (m *Model) Get(hv hihat.HV) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.items[hv]
	if !ok {
		return nil, false
	}
	return e.item, true
}

// Put mirrors hihat.Table.Put. An update to an already-live key keeps its
// original epoch; only a fresh insertion takes a new one.
func (m *Model) Put(hv hihat.HV, item any) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, had := m.items[hv]
	epoch := old.epoch
	if !had {
		epoch = m.advance()
	}
	m.items[hv] = entry{item: item, epoch: epoch}

	if !had {
		return nil, false
	}
	return old.item, true
}

// Replace mirrors hihat.Table.Replace, keeping the key's original epoch —
// Replace only ever fires on an already-live key.
func (m *Model) Replace(hv hihat.HV, item any) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, had := m.items[hv]
	if !had {
		return nil, false
	}

	m.items[hv] = entry{item: item, epoch: old.epoch}
	return old.item, true
}

// Add mirrors hihat.Table.Add.
func (m *Model) Add(hv hihat.HV, item any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, had := m.items[hv]; had {
		return false
	}

	m.items[hv] = entry{item: item, epoch: m.advance()}
	return true
}

// Remove mirrors hihat.Table.Remove.
func (m *Model) Remove(hv hihat.HV) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, had := m.items[hv]
	if !had {
		return nil, false
	}

	delete(m.items, hv)
	return old.item, true
}

// Len mirrors hihat.Table.Len.
func (m *Model) Len() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return uint64(len(m.items))
}

// View mirrors hihat.Table.View, always returning entries sorted by
// insertion epoch — the model has no unsorted bucket order to expose.
func (m *Model) View() []hihat.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := make([]hihat.Entry, 0, len(m.items))
	for _, e := range m.items {
		entries = append(entries, hihat.Entry{Item: e.item, Epoch: e.epoch})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Epoch < entries[j].Epoch })
	return entries
}
