package types

// This file defines how the fee cache reports what it is doing.

/*
Metrics is an interface that defines what the cache wants to measure.
Each method represents an event in the cache lifecycle. The cache will call these methods whenever something happens.
*/
type Metrics interface {

	// Hit is called when a valid cached fee is returned.
	Hit()

	// Miss is called when no valid fee exists and one has to be computed (or joined).
	Miss()

	// Join is called when a caller attaches to a computation that is already in flight.
	Join()

	// Failure is called when the fee computer fails and the base fee is substituted.
	Failure()

	// Eviction is called when an entry is removed because the cache is over its size limit.
	Eviction()

	// Expire is called when an entry is removed because it has passed its TTL.
	Expire()

	// Invalidate is called when an entry is removed because the customer moved.
	Invalidate()
}

/*
NoopMetrics is a "do nothing" implementation of Metrics.

If someone does not care about metrics, the cache still works without
nil checks everywhere.
*/
type NoopMetrics struct{}

func (NoopMetrics) Hit()        {}
func (NoopMetrics) Miss()       {}
func (NoopMetrics) Join()       {}
func (NoopMetrics) Failure()    {}
func (NoopMetrics) Eviction()   {}
func (NoopMetrics) Expire()     {}
func (NoopMetrics) Invalidate() {}
