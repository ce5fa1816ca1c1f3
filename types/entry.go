package types

import (
	"time"

	"github.com/krisalay/feecache/geo"
)

// CachedFee is one computed delivery fee. Entries are replaced, never mutated.
type CachedFee struct {
	RestaurantID string
	Fee          float64
	ComputedAt   time.Time
	Fingerprint  geo.Fingerprint

	// Fallback is true when Fee is the restaurant's base fee substituted after
	// a failed computation during a batch.
	Fallback bool
}
