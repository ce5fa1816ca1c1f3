// This file defines how cached fees expire over time.

package expiration

import (
	"time"

	"github.com/krisalay/feecache/types"
)

/*
Strategy is the interface that all expiration rules must follow. Instead of hard-coding
expiration logic into the cache, we define a strategy so expiration behavior can be swapped easily.
*/
type Strategy interface {

	// IsExpired checks if the entry is expired at now.
	IsExpired(types.CachedFee, time.Time) bool

	// ExpiresAt returns the moment the entry stops being valid.
	// The zero time means the entry never expires.
	ExpiresAt(types.CachedFee) time.Time
}

// Never is a Strategy under which entries never expire by time.
type Never struct{}

func (Never) IsExpired(types.CachedFee, time.Time) bool { return false }
func (Never) ExpiresAt(types.CachedFee) time.Time       { return time.Time{} }
