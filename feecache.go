// Package feecache caches location-dependent delivery fees.
//
// A fee is computed once per restaurant and customer position, shared by all
// concurrent callers, reused for its TTL, and dropped as soon as the customer
// moves far enough for it to be wrong.
package feecache

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/krisalay/feecache/api"
	"github.com/krisalay/feecache/engine"
	"github.com/krisalay/feecache/eviction"
	"github.com/krisalay/feecache/expiration"
	"github.com/krisalay/feecache/geo"
	"github.com/krisalay/feecache/notify"
	"github.com/krisalay/feecache/refresh"
	"github.com/krisalay/feecache/store"
	"github.com/krisalay/feecache/types"
)

var _ api.FeeCache = (*DeliveryFeeCache)(nil)

// LocationSource is the location collaborator: the customer's current
// position plus loading/permission flags and change notifications.
type LocationSource interface {
	CurrentLocation() (geo.Location, bool)
	IsLoading() bool
	HasPermission() bool
	Subscribe(func(geo.Location)) (unsubscribe func())
}

// pendingFee is the joinable handle of one in-flight computation.
// fee is written before done is closed and never after.
type pendingFee struct {
	done chan struct{}
	once sync.Once
	fee  float64
}

func newPendingFee() *pendingFee {
	return &pendingFee{done: make(chan struct{})}
}

func (p *pendingFee) resolve() {
	p.once.Do(func() { close(p.done) })
}

/*
DeliveryFeeCache is the main cache implementation.
This struct is the orchestrator that connects:
- the fee store and its eviction order
- in-flight computations and failure markers
- the location fingerprint and its invalidation rules
- the periodic refresher and app lifecycle
- observers
*/
type DeliveryFeeCache struct {
	cfg Config

	// engine contains the "rules" of the cache: TTL, computation with fallback, metrics.
	engine *engine.CacheEngine

	counters   *types.Counters
	extMetrics types.Metrics
	notifier   *notify.Notifier
	logger     *slog.Logger
	now        func() time.Time

	// mu guards everything below. It is never held across a fee computation.
	mu          sync.Mutex
	fees        store.FeeStore
	pending     map[string]*pendingFee
	failed      map[string]struct{}
	fingerprint geo.Fingerprint
	location    LocationSource

	debounce debouncer

	refresher  *refresh.Ticker
	lifeMu     sync.Mutex
	lastResume time.Time
	watchers   []func()
}

// New creates a cache that computes fees with computer.
func New(computer types.FeeComputer, opts ...Option) *DeliveryFeeCache {
	c := &DeliveryFeeCache{
		cfg: Config{
			TTL:               DefaultTTL,
			ChunkSize:         DefaultChunkSize,
			SignificantMove:   geo.DefaultSignificantMove,
			Debounce:          DefaultDebounce,
			RefreshInterval:   DefaultRefreshInterval,
			MinResumeInterval: DefaultMinResumeInterval,
			MaxSize:           DefaultMaxSize,
		},
		counters:    &types.Counters{},
		notifier:    notify.New(),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:         time.Now,
		fees:        store.New(eviction.Oldest),
		pending:     make(map[string]*pendingFee),
		failed:      make(map[string]struct{}),
		fingerprint: geo.NoFingerprint,
	}
	for _, o := range opts {
		o(c)
	}

	var metrics types.Metrics = c.counters
	if c.extMetrics != nil {
		metrics = types.MultiMetrics{c.counters, c.extMetrics}
	}
	c.engine = engine.NewCacheEngine(
		&expiration.ExpireAfterWrite{TTL: c.cfg.TTL},
		computer,
		metrics,
	)
	c.refresher = refresh.NewTicker(c.cfg.RefreshInterval, c.periodicCleanup)
	c.debounce.c = c

	return c
}

// Subscribe registers an observer for cache state changes.
func (c *DeliveryFeeCache) Subscribe(l notify.Listener) (unsubscribe func()) {
	return c.notifier.Subscribe(l)
}

/*
GetFee returns the delivery fee for a restaurant.

Resolution order:
 1. Coordinates given → update the fingerprint, invalidating fees computed
    for a location that is now too far away.
 2. Valid cached fee → returned (cache hit).
 3. No coordinates → ErrLocationPending while the location source is
    loading, otherwise baseFee. No computation is attempted.
 4. Computation already in flight → join it and return its result.
 5. Otherwise start a computation and wait for it.

A failing computation resolves to baseFee: the only errors are
ErrLocationPending and ctx ending while waiting. An abandoned computation
still completes and is cached.
*/
func (c *DeliveryFeeCache) GetFee(ctx context.Context, restaurantID string, baseFee float64, loc *geo.Location) (float64, error) {
	if loc != nil {
		c.adoptFingerprint(geo.FingerprintFor(loc))
	}

	now := c.now()

	c.mu.Lock()
	if ent, ok := c.fees.Get(restaurantID); ok && c.engine.IsValid(ent, c.fingerprint, now) {
		c.mu.Unlock()
		c.engine.Metrics.Hit()
		c.logger.Debug("fee: cache hit", "restaurant", restaurantID, "fee", ent.Fee)
		return ent.Fee, nil
	}

	if loc == nil {
		src := c.location
		c.mu.Unlock()
		if src != nil && src.IsLoading() {
			return 0, ErrLocationPending
		}
		return baseFee, nil
	}

	// claiming the slot and checking it happen under one lock: nobody else
	// can see restaurantID as idle and start a second computation.
	if p, ok := c.pending[restaurantID]; ok {
		c.mu.Unlock()
		c.engine.Metrics.Join()
		c.logger.Debug("fee: joining in-flight computation", "restaurant", restaurantID)
		return c.wait(ctx, p)
	}
	p := newPendingFee()
	c.pending[restaurantID] = p
	fp := c.fingerprint
	c.mu.Unlock()

	c.engine.Metrics.Miss()
	go c.computeOne(context.WithoutCancel(ctx), restaurantID, baseFee, *loc, fp, p)
	return c.wait(ctx, p)
}

func (c *DeliveryFeeCache) wait(ctx context.Context, p *pendingFee) (float64, error) {
	select {
	case <-p.done:
		return p.fee, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// computeOne runs a single computation and always resolves p.
func (c *DeliveryFeeCache) computeOne(
	ctx context.Context,
	restaurantID string,
	baseFee float64,
	loc geo.Location,
	fp geo.Fingerprint,
	p *pendingFee,
) {
	// guaranteed cleanup, even if the computer panics
	defer c.release(restaurantID, p)

	fee, failed, err := c.engine.Compute(ctx, restaurantID, loc, baseFee)

	c.mu.Lock()
	ev := notify.Event{RestaurantID: restaurantID}
	if failed {
		c.failed[restaurantID] = struct{}{}
		ev.Kind = notify.FeeFailed
	} else {
		delete(c.failed, restaurantID)
		c.putLocked(types.CachedFee{
			RestaurantID: restaurantID,
			Fee:          fee,
			ComputedAt:   c.now(),
			Fingerprint:  fp,
		})
		ev.Kind = notify.FeeUpdated
	}
	evicted := c.autoShrinkLocked()
	p.fee = fee
	c.mu.Unlock()

	if failed {
		c.logger.Warn("fee: computation failed, using base fee",
			"restaurant", restaurantID, "base_fee", baseFee, "err", err)
	} else {
		c.logger.Debug("fee: computed", "restaurant", restaurantID, "fee", fee, "fingerprint", fp)
	}

	c.release(restaurantID, p)
	c.notifier.Notify(ev)
	if evicted > 0 {
		c.logger.Info("fee: evicted oldest entries", "count", evicted)
	}
}

// release removes p from the pending map (if it is still the registered
// handle) and wakes every waiter. Safe to call more than once.
func (c *DeliveryFeeCache) release(restaurantID string, p *pendingFee) {
	c.mu.Lock()
	if c.pending[restaurantID] == p {
		delete(c.pending, restaurantID)
	}
	c.mu.Unlock()
	p.resolve()
}

func (c *DeliveryFeeCache) putLocked(ent types.CachedFee) {
	c.fees.Put(ent)
}

func (c *DeliveryFeeCache) deleteLocked(id string) bool {
	return c.fees.Delete(id)
}

// isValidLocked reports whether id has a servable entry right now.
func (c *DeliveryFeeCache) isValidLocked(id string, now time.Time) bool {
	ent, ok := c.fees.Get(id)
	return ok && c.engine.IsValid(ent, c.fingerprint, now)
}
