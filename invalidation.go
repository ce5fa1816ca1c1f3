package feecache

import (
	"sync"
	"time"

	"github.com/krisalay/feecache/geo"
	"github.com/krisalay/feecache/notify"
	"github.com/krisalay/feecache/types"
)

/*
adoptFingerprint switches the cache to fp if the move is significant.

Sub-threshold moves are ignored entirely: the old fingerprint stays current,
so fees computed a few meters away keep being served. A significant move
removes every entry computed for another fingerprint; entries that already
carry fp (the customer came back) survive.

It reports whether fp was adopted.
*/
func (c *DeliveryFeeCache) adoptFingerprint(fp geo.Fingerprint) bool {
	c.mu.Lock()
	if !geo.SignificantMove(c.fingerprint, fp, c.cfg.SignificantMove) {
		c.mu.Unlock()
		return false
	}
	prev := c.fingerprint
	c.fingerprint = fp

	removed := 0
	c.fees.Range(func(ent types.CachedFee) bool {
		if ent.Fingerprint != fp {
			c.deleteLocked(ent.RestaurantID)
			c.engine.Metrics.Invalidate()
			removed++
		}
		return true
	})
	c.mu.Unlock()

	c.logger.Info("fee: location changed",
		"from", prev, "to", fp, "invalidated", removed)
	if removed > 0 {
		c.notifier.Notify(notify.Event{Kind: notify.Invalidated})
	}
	return true
}

// Invalidate drops the cached fee of one restaurant.
func (c *DeliveryFeeCache) Invalidate(restaurantID string) {
	c.mu.Lock()
	c.deleteLocked(restaurantID)
	c.mu.Unlock()

	c.notifier.Notify(notify.Event{Kind: notify.Invalidated, RestaurantID: restaurantID})
}

// ClearAll drops every cached fee and every failure marker.
// In-flight computations are not affected.
func (c *DeliveryFeeCache) ClearAll() {
	c.mu.Lock()
	c.fees.Clear()
	clear(c.failed)
	c.mu.Unlock()

	c.logger.Info("fee: cache cleared")
	c.notifier.Notify(notify.Event{Kind: notify.Cleared})
}

// CleanupExpired removes every entry whose TTL has elapsed and returns how many.
func (c *DeliveryFeeCache) CleanupExpired() int {
	now := c.now()

	c.mu.Lock()
	removed := 0
	c.fees.Range(func(ent types.CachedFee) bool {
		if c.engine.IsExpired(ent, now) {
			c.deleteLocked(ent.RestaurantID)
			c.engine.Metrics.Expire()
			removed++
		}
		return true
	})
	c.mu.Unlock()

	if removed > 0 {
		c.logger.Debug("fee: expired entries removed", "count", removed)
		c.notifier.Notify(notify.Event{Kind: notify.Expired})
	}
	return removed
}

// Optimize evicts the oldest entries (by computation time) until at most
// maxSize remain. maxSize <= 0 means DefaultMaxSize. It returns how many
// entries were evicted.
func (c *DeliveryFeeCache) Optimize(maxSize int) int {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	c.mu.Lock()
	evicted := c.shrinkLocked(maxSize)
	c.mu.Unlock()

	if evicted > 0 {
		c.logger.Info("fee: optimized", "evicted", evicted, "max_size", maxSize)
		c.notifier.Notify(notify.Event{Kind: notify.Invalidated})
	}
	return evicted
}

func (c *DeliveryFeeCache) autoShrinkLocked() int {
	if c.cfg.MaxSize <= 0 {
		return 0
	}
	return c.shrinkLocked(c.cfg.MaxSize)
}

func (c *DeliveryFeeCache) shrinkLocked(maxSize int) int {
	evicted := 0
	for c.fees.Len() > maxSize {
		if _, ok := c.fees.EvictOldest(); !ok {
			break
		}
		c.engine.Metrics.Eviction()
		evicted++
	}
	return evicted
}

/*
Watch puts the cache in reactive mode: every location the source emits is
debounced, then tested for significance. An accepted change invalidates
stale fees and emits RecalculateAdvised; the cache does not know which
restaurants are on screen, so recomputing is left to whoever calls
Precalculate.

The source also becomes the one GetFee consults when called without
coordinates. The returned function stops watching.
*/
func (c *DeliveryFeeCache) Watch(src LocationSource) (stop func()) {
	c.mu.Lock()
	c.location = src
	c.mu.Unlock()

	c.lifeMu.Lock()
	unsub := src.Subscribe(c.debounce.push)
	var once sync.Once
	stop = func() {
		once.Do(func() {
			unsub()
			c.debounce.cancel()
		})
	}
	c.watchers = append(c.watchers, stop)
	c.lifeMu.Unlock()
	return stop
}

// applyLocation is the debounced end of reactive mode.
func (c *DeliveryFeeCache) applyLocation(loc geo.Location) {
	if !c.adoptFingerprint(geo.FingerprintOf(loc.Lat, loc.Lon)) {
		c.logger.Debug("fee: location update below threshold", "lat", loc.Lat, "lon", loc.Lon)
		return
	}
	c.notifier.Notify(notify.Event{Kind: notify.RecalculateAdvised})
}

// debouncer keeps only the last location pushed within the quiet period.
type debouncer struct {
	c *DeliveryFeeCache

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
	last  geo.Location
}

func (d *debouncer) push(loc geo.Location) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.last = loc
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.c.cfg.Debounce, func() { d.fire(gen) })
}

// fire applies the location if no newer push or cancel happened since gen.
func (d *debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	loc := d.last
	d.timer = nil
	d.mu.Unlock()

	d.c.applyLocation(loc)
}

func (d *debouncer) cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
