package types

import "sync/atomic"

// CacheStats is a point-in-time snapshot returned by the cache.
type CacheStats struct {
	Hits          int64  `json:"hits"`
	Misses        int64  `json:"misses"`
	Joins         int64  `json:"joins"`
	Failures      int64  `json:"failures"`
	Evictions     int64  `json:"evictions"`
	Expirations   int64  `json:"expirations"`
	Invalidations int64  `json:"invalidations"`
	Entries       int    `json:"entries"`
	Pending       int    `json:"pending"`
	Failed        int    `json:"failed"`
	Fingerprint   string `json:"fingerprint"`
}

// Counters is the Metrics implementation the cache always keeps for itself.
// It is safe for concurrent use.
type Counters struct {
	hits, misses, joins, failures        atomic.Int64
	evictions, expirations, invalidations atomic.Int64
}

func (c *Counters) Hit()        { c.hits.Add(1) }
func (c *Counters) Miss()       { c.misses.Add(1) }
func (c *Counters) Join()       { c.joins.Add(1) }
func (c *Counters) Failure()    { c.failures.Add(1) }
func (c *Counters) Eviction()   { c.evictions.Add(1) }
func (c *Counters) Expire()     { c.expirations.Add(1) }
func (c *Counters) Invalidate() { c.invalidations.Add(1) }

// Fill copies the counter values into s.
func (c *Counters) Fill(s *CacheStats) {
	s.Hits = c.hits.Load()
	s.Misses = c.misses.Load()
	s.Joins = c.joins.Load()
	s.Failures = c.failures.Load()
	s.Evictions = c.evictions.Load()
	s.Expirations = c.expirations.Load()
	s.Invalidations = c.invalidations.Load()
}

// MultiMetrics forwards every event to all of its members.
type MultiMetrics []Metrics

func (m MultiMetrics) Hit() {
	for _, x := range m {
		x.Hit()
	}
}

func (m MultiMetrics) Miss() {
	for _, x := range m {
		x.Miss()
	}
}

func (m MultiMetrics) Join() {
	for _, x := range m {
		x.Join()
	}
}

func (m MultiMetrics) Failure() {
	for _, x := range m {
		x.Failure()
	}
}

func (m MultiMetrics) Eviction() {
	for _, x := range m {
		x.Eviction()
	}
}

func (m MultiMetrics) Expire() {
	for _, x := range m {
		x.Expire()
	}
}

func (m MultiMetrics) Invalidate() {
	for _, x := range m {
		x.Invalidate()
	}
}
