package feecache

import (
	"log/slog"
	"time"

	"github.com/krisalay/feecache/types"
)

const (
	// DefaultTTL is how long a computed fee stays valid.
	DefaultTTL = 30 * time.Minute

	// DefaultChunkSize bounds concurrent fee computations during Precalculate.
	DefaultChunkSize = 5

	// DefaultDebounce coalesces rapid location updates in reactive mode.
	DefaultDebounce = 800 * time.Millisecond

	// DefaultRefreshInterval is the cadence of expired-entry cleanup while in the foreground.
	DefaultRefreshInterval = 10 * time.Minute

	// DefaultMinResumeInterval throttles the cleanup triggered by OnForeground.
	DefaultMinResumeInterval = 5 * time.Minute

	// DefaultMaxSize is the entry count above which the oldest fees are evicted.
	DefaultMaxSize = 500
)

// Config holds every tunable of the cache. Use the With* options to change it.
type Config struct {
	TTL               time.Duration
	ChunkSize         int
	SignificantMove   float64 // meters
	Debounce          time.Duration
	RefreshInterval   time.Duration
	MinResumeInterval time.Duration

	// MaxSize triggers automatic eviction after writes. <= 0 disables it;
	// Optimize still works.
	MaxSize int
}

// Option is a functional option for configuring the cache.
type Option func(*DeliveryFeeCache)

// WithConfig replaces all tunables at once. Zero fields keep their defaults
// except MaxSize, where 0 disables automatic eviction.
func WithConfig(cfg Config) Option {
	return func(c *DeliveryFeeCache) {
		if cfg.TTL > 0 {
			c.cfg.TTL = cfg.TTL
		}
		if cfg.ChunkSize > 0 {
			c.cfg.ChunkSize = cfg.ChunkSize
		}
		if cfg.SignificantMove > 0 {
			c.cfg.SignificantMove = cfg.SignificantMove
		}
		if cfg.Debounce > 0 {
			c.cfg.Debounce = cfg.Debounce
		}
		if cfg.RefreshInterval > 0 {
			c.cfg.RefreshInterval = cfg.RefreshInterval
		}
		if cfg.MinResumeInterval > 0 {
			c.cfg.MinResumeInterval = cfg.MinResumeInterval
		}
		c.cfg.MaxSize = cfg.MaxSize
	}
}

// WithTTL sets the entry validity window.
func WithTTL(ttl time.Duration) Option {
	return func(c *DeliveryFeeCache) { c.cfg.TTL = ttl }
}

// WithChunkSize sets how many fees Precalculate computes concurrently.
func WithChunkSize(n int) Option {
	return func(c *DeliveryFeeCache) {
		if n > 0 {
			c.cfg.ChunkSize = n
		}
	}
}

// WithSignificantMove sets the movement threshold in meters.
func WithSignificantMove(meters float64) Option {
	return func(c *DeliveryFeeCache) { c.cfg.SignificantMove = meters }
}

// WithDebounce sets the quiet period for reactive location updates.
func WithDebounce(d time.Duration) Option {
	return func(c *DeliveryFeeCache) { c.cfg.Debounce = d }
}

// WithRefreshInterval sets the periodic cleanup cadence.
func WithRefreshInterval(d time.Duration) Option {
	return func(c *DeliveryFeeCache) { c.cfg.RefreshInterval = d }
}

// WithMinResumeInterval sets the minimum time between two resume-triggered cleanups.
func WithMinResumeInterval(d time.Duration) Option {
	return func(c *DeliveryFeeCache) { c.cfg.MinResumeInterval = d }
}

// WithMaxSize sets the automatic eviction threshold. <= 0 disables it.
func WithMaxSize(n int) Option {
	return func(c *DeliveryFeeCache) { c.cfg.MaxSize = n }
}

// WithLocationSource sets the source consulted when GetFee gets no coordinates.
// Watch sets it too.
func WithLocationSource(src LocationSource) Option {
	return func(c *DeliveryFeeCache) { c.location = src }
}

// WithMetrics adds an external metrics sink. The cache always keeps its own counters for Stats.
func WithMetrics(m types.Metrics) Option {
	return func(c *DeliveryFeeCache) { c.extMetrics = m }
}

// WithLogger sets the structured logger. Defaults to a discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *DeliveryFeeCache) { c.logger = l }
}

// WithClock replaces time.Now for TTL, batch timestamps and resume throttling.
func WithClock(now func() time.Time) Option {
	return func(c *DeliveryFeeCache) { c.now = now }
}
