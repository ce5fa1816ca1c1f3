package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	feecache "github.com/krisalay/feecache"
	"github.com/krisalay/feecache/catalog"
	"github.com/krisalay/feecache/config"
	"github.com/krisalay/feecache/geo"
	"github.com/krisalay/feecache/location"
	"github.com/krisalay/feecache/notify"
	"github.com/krisalay/feecache/pricing"
	"github.com/krisalay/feecache/server"
)

// ================= PRICING =================

// Distance ranges in meters, amounts in minor units.
var ranges = []pricing.DistanceRange{
	{Min: 0, Max: 1000, A: 0, B: 0},
	{Min: 1000, Max: 3000, A: 100, B: 1},
	{Min: 3000, Max: 8000, A: 200, B: 2},
	{Min: 8000, Max: 0},
}

// ================= DEMO CATALOG =================

var demoRestaurants = []catalog.Restaurant{
	{ID: "r1", BaseDeliveryFee: 2.99, Location: geo.Location{Lat: 36.7538, Lon: 3.0588}},
	{ID: "r2", BaseDeliveryFee: 1.99, Location: geo.Location{Lat: 36.7470, Lon: 3.0700}},
	{ID: "r3", BaseDeliveryFee: 3.49, Location: geo.Location{Lat: 36.7650, Lon: 3.0450}},
	{ID: "r4", BaseDeliveryFee: 2.49, Location: geo.Location{Lat: 36.7280, Lon: 3.0870}},
	{ID: "r5", BaseDeliveryFee: 0.99, Location: geo.Location{Lat: 36.7610, Lon: 3.0520}},
	{ID: "r6", BaseDeliveryFee: 2.29, Location: geo.Location{Lat: 36.7390, Lon: 3.0310}},
	{ID: "r7", BaseDeliveryFee: 4.99, Location: geo.Location{Lat: 36.7120, Lon: 3.1800}},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := cfg.Logger()
	slog.SetDefault(logger)

	// ---------------- Restaurant Catalog ----------------
	cat, closeCatalog, err := newCatalog(cfg, logger)
	if err != nil {
		logger.Error("failed to open catalog", "err", err)
		os.Exit(1)
	}
	defer closeCatalog()

	// ---------------- Fee Computer ----------------
	computer := pricing.NewDistanceComputer(cat, cfg.BasePrice, ranges)

	// ---------------- Location ----------------
	coord := location.NewCoordinator(
		devicePlatform(cfg.DefaultLocation),
		location.WithFreshness(cfg.LocationFreshness),
		location.WithLogger(logger),
	)
	provider := location.NewProvider(coord)

	// ---------------- Fee Cache ----------------
	cache := feecache.New(
		computer,
		feecache.WithConfig(cfg.Cache),
		feecache.WithLogger(logger),
	)
	cache.Watch(provider)
	cache.Subscribe(func(ev notify.Event) {
		if ev.Kind == notify.RecalculateAdvised {
			go recalculate(cache, cat, provider, logger)
		}
	})
	cache.Start()
	defer cache.Close()

	if _, err := provider.Refresh(context.Background()); err != nil {
		logger.Warn("no initial location", "err", err)
	}

	// ---------------- HTTP ----------------
	h := server.NewHandler(cache, cache, cat, provider)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      server.NewRouter(h, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal then gracefully shut down.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shut down", "err", err)
	}
	logger.Info("server stopped", "stats", cache.Stats())
}

// newCatalog opens the Redis catalog when configured, the demo catalog otherwise.
func newCatalog(cfg *config.Config, logger *slog.Logger) (catalog.Catalog, func(), error) {
	if cfg.RedisAddr == "" {
		logger.Info("using in-memory demo catalog", "restaurants", len(demoRestaurants))
		return catalog.NewMemoryCatalog(demoRestaurants...), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}

	logger.Info("using redis catalog", "addr", cfg.RedisAddr, "key", cfg.RedisKey)
	return catalog.NewRedisCatalog(client, cfg.RedisKey), func() { _ = client.Close() }, nil
}

// devicePlatform stands in for the device location API: it reports the
// configured position, or a denied permission when there is none.
func devicePlatform(loc *geo.Location) location.Platform {
	return location.PlatformFunc(func(ctx context.Context) (geo.Location, error) {
		if loc == nil {
			return geo.Location{}, location.Unavailable(location.PermissionDenied, errors.New("DEFAULT_LOCATION not set"))
		}
		return *loc, nil
	})
}

// recalculate warms the cache for the whole catalog after a significant move.
func recalculate(cache *feecache.DeliveryFeeCache, cat catalog.Catalog, provider *location.Provider, logger *slog.Logger) {
	loc, ok := provider.CurrentLocation()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	restaurants, err := cat.List(ctx)
	if err != nil {
		logger.Warn("recalculation skipped", "err", err)
		return
	}
	if _, err := cache.Precalculate(ctx, restaurants, &loc); err != nil {
		logger.Warn("recalculation interrupted", "err", err)
	}
}
