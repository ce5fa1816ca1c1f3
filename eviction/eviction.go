package eviction

import "time"

/*
This file defines how the fee cache decides what to remove when it grows past its size limit.
*/

/*
Policy is the interface that all eviction strategies must follow.

The cache does NOT care how eviction works internally.
It only calls these methods, always while holding its own lock,
so implementations do not need to be safe for concurrent use.
*/
type Policy interface {

	// OnPut is called whenever an entry is written (new or replaced).
	// computedAt is the entry's computation time.
	OnPut(key string, computedAt time.Time)

	// Remove is called when a key is removed for any reason other than eviction
	// (expiry, invalidation, explicit removal).
	Remove(key string)

	// Evict picks the next victim, forgets it, and returns it.
	// It returns "" when nothing is tracked.
	Evict() string

	// Len returns how many keys are tracked.
	Len() int
}

// PolicyType is a simple identifier for supported eviction strategies.
type PolicyType string

const (
	// Oldest evicts the entry with the earliest computedAt first.
	// Old quotes are the closest to expiring anyway.
	Oldest PolicyType = "OLDEST"
)

// NewEvictionPolicy is a small factory function.
// Given a PolicyType, it creates the correct eviction policy.
func NewEvictionPolicy(t PolicyType) Policy {
	switch t {
	case Oldest:
		return newOldest()
	default:
		panic("unknown eviction policy")
	}
}
