package feecache

import (
	"github.com/krisalay/feecache/geo"
	"github.com/krisalay/feecache/types"
)

// IsComputing reports whether a computation for the restaurant is in flight.
func (c *DeliveryFeeCache) IsComputing(restaurantID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[restaurantID]
	return ok
}

// HasFailed reports whether the last computation for the restaurant failed.
// It is a UI hint only; it never blocks a retry.
func (c *DeliveryFeeCache) HasFailed(restaurantID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.failed[restaurantID]
	return ok
}

// Stats returns counters and current sizes.
func (c *DeliveryFeeCache) Stats() types.CacheStats {
	var s types.CacheStats
	c.counters.Fill(&s)

	c.mu.Lock()
	s.Entries = c.fees.Len()
	s.Pending = len(c.pending)
	s.Failed = len(c.failed)
	s.Fingerprint = c.fingerprint.String()
	c.mu.Unlock()
	return s
}

// Entry returns the stored entry for a restaurant, valid or not.
func (c *DeliveryFeeCache) Entry(restaurantID string) (types.CachedFee, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ent, ok := c.fees.Get(restaurantID)
	return ent, ok
}

// Fingerprint returns the fingerprint fees are currently valid for.
func (c *DeliveryFeeCache) Fingerprint() geo.Fingerprint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fingerprint
}
