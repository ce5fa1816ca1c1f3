package expiration

import (
	"time"

	"github.com/krisalay/feecache/types"
)

/*
ExpireAfterWrite implements a fixed TTL counted from the moment the fee was computed.
Reading a fee does NOT extend its life: a delivery quote 31 minutes old is stale
no matter how often it was shown.
*/
type ExpireAfterWrite struct {

	// TTL is how long an entry stays valid after ComputedAt.
	TTL time.Duration
}

// IsExpired reports whether now - ComputedAt has reached the TTL.
func (e *ExpireAfterWrite) IsExpired(ent types.CachedFee, now time.Time) bool {
	return e.TTL > 0 && now.Sub(ent.ComputedAt) >= e.TTL
}

func (e *ExpireAfterWrite) ExpiresAt(ent types.CachedFee) time.Time {
	if e.TTL <= 0 {
		return time.Time{}
	}
	return ent.ComputedAt.Add(e.TTL)
}
