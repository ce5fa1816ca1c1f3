package engine

import (
	"context"
	"time"

	"github.com/krisalay/feecache/expiration"
	"github.com/krisalay/feecache/geo"
	"github.com/krisalay/feecache/types"
)

/*
CacheEngine is the "brain" of the fee cache.
It is responsible for the "behavior" of the cache, NOT storage.
This acts as the policy layer.

It decides:
- When a cached fee is still usable (TTL + location fingerprint)
- How a fee is computed on a miss, and what happens when that fails
- How metrics are recorded

It does NOT:
- Store fees
- Track in-flight computations
- Handle locking
- Decide eviction order
*/
type CacheEngine struct {

	// Expiration controls when a cached fee should be considered "too old".
	// If this is nil, entries never expire based on time.
	Expiration expiration.Strategy

	// Computer is how the cache talks to the pricing backend when it does NOT have the fee.
	Computer types.FeeComputer

	// Metrics is how we keep track of what the cache is doing.
	Metrics types.Metrics
}

/*
NewCacheEngine creates a CacheEngine.
*/
func NewCacheEngine(
	exp expiration.Strategy,
	computer types.FeeComputer,
	metrics types.Metrics,
) *CacheEngine {

	// Ensure metrics is always non-nil
	if metrics == nil {
		metrics = types.NoopMetrics{}
	}
	if exp == nil {
		exp = expiration.Never{}
	}

	return &CacheEngine{
		Expiration: exp,
		Computer:   computer,
		Metrics:    metrics,
	}
}

/*
IsExpired checks whether a cached fee has outlived its TTL.
*/
func (e *CacheEngine) IsExpired(ent types.CachedFee, now time.Time) bool {
	return e.Expiration.IsExpired(ent, now)
}

/*
IsValid checks whether a cached fee may be served.

A fee is valid only while BOTH hold:
- it has not expired
- it was computed for the fingerprint the cache currently uses
*/
func (e *CacheEngine) IsValid(ent types.CachedFee, current geo.Fingerprint, now time.Time) bool {
	return ent.Fingerprint == current && !e.IsExpired(ent, now)
}

/*
Compute asks the fee computer for a fee.

Any error from the computer is swallowed here: the caller gets baseFee,
failed=true and the error for logging. Fee computation never fails past this
point.
*/
func (e *CacheEngine) Compute(
	ctx context.Context,
	restaurantID string,
	loc geo.Location,
	baseFee float64,
) (fee float64, failed bool, err error) {
	fee, err = e.Computer.ComputeFee(ctx, restaurantID, loc)
	if err != nil {
		e.Metrics.Failure()
		return baseFee, true, err
	}
	return fee, false, nil
}
