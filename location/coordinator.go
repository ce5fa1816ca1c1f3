// Package location resolves the customer's position for the fee cache.
//
// Coordinator guarantees a single platform call at a time and serves a short-lived
// cached position. Provider wraps it into the observable source the cache watches.
package location

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/krisalay/feecache/geo"
)

// DefaultFreshness is how long a fetched location is served without asking the platform again.
const DefaultFreshness = 5 * time.Minute

const fetchKey = "current"

// Platform is the device API that actually produces a position.
type Platform interface {
	Fetch(ctx context.Context) (geo.Location, error)
}

// PlatformFunc adapts a function to Platform.
type PlatformFunc func(ctx context.Context) (geo.Location, error)

func (f PlatformFunc) Fetch(ctx context.Context) (geo.Location, error) { return f(ctx) }

// State is the coordinator's position in Idle → Fetching → Idle.
type State int

const (
	Idle State = iota
	Fetching
	IdleWithCache
	IdleWithError
)

func (s State) String() string {
	switch s {
	case Fetching:
		return "fetching"
	case IdleWithCache:
		return "idle_with_cache"
	case IdleWithError:
		return "idle_with_error"
	default:
		return "idle"
	}
}

/*
Coordinator deduplicates "get current location" requests.

  - a location younger than the freshness window is returned as is
  - otherwise every concurrent caller joins one platform fetch
  - failures reach every joined caller and are never cached
  - nothing is retried here; retry policy belongs to the caller
*/
type Coordinator struct {
	platform  Platform
	freshness time.Duration
	now       func() time.Time
	logger    *slog.Logger

	sf singleflight.Group

	mu      sync.RWMutex
	last    geo.Location
	lastAt  time.Time
	hasLast bool
	state   State
	lastErr error
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithFreshness sets the window during which a fetched location is reused.
func WithFreshness(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) { c.freshness = d }
}

// WithClock replaces time.Now. Intended for tests.
func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) { c.now = now }
}

// WithLogger sets the structured logger. Defaults to a discard logger.
func WithLogger(l *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.logger = l }
}

func NewCoordinator(p Platform, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		platform:  p,
		freshness: DefaultFreshness,
		now:       time.Now,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// CurrentLocation returns a fresh cached location or joins/starts a platform fetch.
// A caller whose ctx ends stops waiting; the shared fetch keeps running for the others.
func (c *Coordinator) CurrentLocation(ctx context.Context) (geo.Location, error) {
	if loc, ok := c.fresh(); ok {
		return loc, nil
	}

	// the fetch outlives any single caller
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.sf.DoChan(fetchKey, func() (any, error) {
		// a fetch that finished between our check and this point already refreshed the cache
		if loc, ok := c.fresh(); ok {
			return loc, nil
		}
		return c.fetch(fetchCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return geo.Location{}, res.Err
		}
		return res.Val.(geo.Location), nil
	case <-ctx.Done():
		return geo.Location{}, ctx.Err()
	}
}

func (c *Coordinator) fetch(ctx context.Context) (geo.Location, error) {
	c.setState(Fetching, nil)
	c.logger.Debug("location: fetching from platform")

	loc, err := c.platform.Fetch(ctx)
	if err != nil {
		err = classify(err)
		c.setState(IdleWithError, err)
		c.logger.Warn("location: fetch failed", "err", err)
		return geo.Location{}, err
	}

	c.mu.Lock()
	c.last = loc
	c.lastAt = c.now()
	c.hasLast = true
	c.state = IdleWithCache
	c.lastErr = nil
	c.mu.Unlock()

	c.logger.Debug("location: fetched", "fingerprint", geo.FingerprintOf(loc.Lat, loc.Lon))
	return loc, nil
}

func (c *Coordinator) fresh() (geo.Location, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.hasLast || c.now().Sub(c.lastAt) >= c.freshness {
		return geo.Location{}, false
	}
	return c.last, true
}

func (c *Coordinator) setState(s State, err error) {
	c.mu.Lock()
	c.state = s
	c.lastErr = err
	c.mu.Unlock()
}

// LastKnown returns the last successfully fetched location regardless of age.
func (c *Coordinator) LastKnown() (geo.Location, time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last, c.lastAt, c.hasLast
}

// State returns the current state and the error of the last failed fetch.
func (c *Coordinator) State() (State, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state, c.lastErr
}

// Forget drops the cached location so the next call hits the platform.
func (c *Coordinator) Forget() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hasLast = false
	c.last = geo.Location{}
	c.lastAt = time.Time{}
	if c.state == IdleWithCache {
		c.state = Idle
	}
}
