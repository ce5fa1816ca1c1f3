package store

import (
	"github.com/krisalay/feecache/eviction"
	"github.com/krisalay/feecache/types"
)

/*
This file defines how computed fees are actually stored.

A FeeStore is a map of restaurant ID → CachedFee plus the eviction order of
those entries. Every write goes through Put and Delete, so the eviction
policy never drifts from the map.

The store has no lock of its own: the cache holds one mutex around the
store, the in-flight table and the current fingerprint, because an
invalidation has to see all three at once.
*/

// FeeStore is the interface the cache uses to keep its entries.
type FeeStore interface {

	// Get retrieves an entry by restaurant ID, valid or not.
	Get(id string) (types.CachedFee, bool)

	// Put inserts or replaces an entry.
	Put(ent types.CachedFee)

	// Delete removes an entry and reports whether it existed.
	Delete(id string) bool

	// Range calls fn for every entry until fn returns false.
	// fn may Delete the entry it is given.
	Range(fn func(types.CachedFee) bool)

	// EvictOldest removes the entry chosen by the eviction policy.
	EvictOldest() (string, bool)

	// Clear removes everything.
	Clear()

	// Len returns how many entries are stored.
	Len() int
}

/*
mapStore is the FeeStore used by the cache.

  - data holds the entries
  - policy tracks every key in data, ordered by computation time
*/
type mapStore struct {
	data   map[string]types.CachedFee
	policy eviction.Policy
	pt     eviction.PolicyType
}

// New returns an empty store evicting with the given policy.
func New(pt eviction.PolicyType) FeeStore {
	return &mapStore{
		data:   make(map[string]types.CachedFee),
		policy: eviction.NewEvictionPolicy(pt),
		pt:     pt,
	}
}

func (s *mapStore) Get(id string) (types.CachedFee, bool) {
	ent, ok := s.data[id]
	return ent, ok
}

func (s *mapStore) Put(ent types.CachedFee) {
	s.data[ent.RestaurantID] = ent
	s.policy.OnPut(ent.RestaurantID, ent.ComputedAt)
}

func (s *mapStore) Delete(id string) bool {
	if _, ok := s.data[id]; !ok {
		return false
	}
	delete(s.data, id)
	s.policy.Remove(id)
	return true
}

func (s *mapStore) Range(fn func(types.CachedFee) bool) {
	for _, ent := range s.data {
		if !fn(ent) {
			return
		}
	}
}

func (s *mapStore) EvictOldest() (string, bool) {
	victim := s.policy.Evict()
	if victim == "" {
		return "", false
	}
	delete(s.data, victim)
	return victim, true
}

func (s *mapStore) Clear() {
	clear(s.data)
	s.policy = eviction.NewEvictionPolicy(s.pt)
}

func (s *mapStore) Len() int {
	return len(s.data)
}
