package api

import (
	"context"

	"github.com/krisalay/feecache/geo"
	"github.com/krisalay/feecache/notify"
	"github.com/krisalay/feecache/types"
)

/*
FeeCache defines the PUBLIC API of the delivery-fee cache.
This is a contract that guarantees certain behaviors, without exposing internals.
All of the details like (fingerprinting, deduplication, batching, expiration,
eviction and lifecycle timers) are hidden behind this interface.

Batch precomputation lives on the concrete type because its input is the
restaurant catalog; consumers that only display fees depend on this interface.
*/
type FeeCache interface {

	/*
		GetFee returns the delivery fee for one restaurant.

		BEHAVIOR:
		-------------------
		1. If loc is given and is far (> 100 m) from the location the cache
		   currently serves, fees computed for the old location are dropped.

		2. If a valid fee is cached (younger than the TTL, same location cell):
		   - Return it immediately (cache hit)

		3. If loc is nil:
		   - ErrLocationPending while the location is still resolving
		   - baseFee otherwise, without any network call

		4. If the fee is being computed right now:
		   - Wait for that computation and return its result (join)

		5. Otherwise:
		   - Compute, cache, return (cache miss)

		A failed computation yields baseFee. It is never an error.
	*/
	GetFee(ctx context.Context, restaurantID string, baseFee float64, loc *geo.Location) (float64, error)

	/*
		Invalidate drops the cached fee of one restaurant.
		Removing a restaurant that is not cached is safe.
	*/
	Invalidate(restaurantID string)

	/*
		ClearAll drops every cached fee and every failure marker.
	*/
	ClearAll()

	/*
		CleanupExpired removes entries older than the TTL and returns how many.

		WHEN TO CALL:
		-------------
		- The cache calls it on its own periodic timer
		- On app foreground transitions
	*/
	CleanupExpired() int

	/*
		Optimize evicts the oldest entries until at most maxSize remain.
		Frees memory in long sessions without waiting for the TTL.
	*/
	Optimize(maxSize int) int

	/*
		Observability. Read-only, no side effects.

		IsComputing : a computation for the restaurant is in flight
		HasFailed   : the last computation for the restaurant failed
		              (a hint to retry later, never a reason to block ordering)
		Stats       : hits, misses, joins, pending, failed, entries...
	*/
	IsComputing(restaurantID string) bool
	HasFailed(restaurantID string) bool
	Stats() types.CacheStats

	/*
		Subscribe registers an observer called after every state change.
		Batches notify once per chunk, not once per restaurant.
	*/
	Subscribe(l notify.Listener) (unsubscribe func())

	/*
		Lifecycle hooks called by the host application.

		OnForeground : clean up (throttled) and restart the periodic timer
		OnBackground : stop all periodic work
		Close        : stop timers and watchers for good
	*/
	OnForeground()
	OnBackground()
	Close()
}
