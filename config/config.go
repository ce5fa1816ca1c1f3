// Package config loads and validates environment-based configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	feecache "github.com/krisalay/feecache"
	"github.com/krisalay/feecache/geo"
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: field %q: %s", e.Field, e.Message)
}

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	Port int

	// Restaurant catalog. An empty RedisAddr selects the in-memory demo catalog.
	RedisAddr string
	RedisKey  string

	LogLevel  slog.Level
	LogFormat string // "text" or "json"

	// Cache tunables.
	Cache feecache.Config

	// Location.
	LocationFreshness time.Duration
	DefaultLocation   *geo.Location // what the platform reports; nil behaves like a denied permission

	// Pricing, minor units.
	BasePrice int
}

// Load reads .env (if present) and the environment.
// Returns a ConfigError for any invalid value.
func Load() (*Config, error) {
	_ = godotenv.Load() // a missing .env is fine

	cfg := &Config{
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisKey:          envOr("REDIS_KEY", "restaurants"),
		LogFormat:         strings.ToLower(envOr("LOG_FORMAT", "text")),
		LocationFreshness: parseDurationEnv("LOCATION_FRESHNESS", 5*time.Minute),
		Cache: feecache.Config{
			TTL:               parseDurationEnv("FEE_TTL", feecache.DefaultTTL),
			SignificantMove:   geo.DefaultSignificantMove,
			Debounce:          parseDurationEnv("LOCATION_DEBOUNCE", feecache.DefaultDebounce),
			RefreshInterval:   parseDurationEnv("REFRESH_INTERVAL", feecache.DefaultRefreshInterval),
			MinResumeInterval: parseDurationEnv("MIN_RESUME_INTERVAL", feecache.DefaultMinResumeInterval),
		},
	}

	var err error
	if cfg.Port, err = parseIntEnv("PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.Cache.ChunkSize, err = parseIntEnv("PRECALC_CHUNK_SIZE", feecache.DefaultChunkSize); err != nil {
		return nil, err
	}
	if cfg.Cache.MaxSize, err = parseIntEnv("CACHE_MAX_SIZE", feecache.DefaultMaxSize); err != nil {
		return nil, err
	}
	if cfg.BasePrice, err = parseIntEnv("BASE_PRICE", 190); err != nil {
		return nil, err
	}

	if raw := os.Getenv("SIGNIFICANT_MOVE_METERS"); raw != "" {
		m, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, &ConfigError{Field: "SIGNIFICANT_MOVE_METERS", Message: "must be a number"}
		}
		cfg.Cache.SignificantMove = m
	}

	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(raw)); err != nil {
			return nil, &ConfigError{Field: "LOG_LEVEL", Message: "must be debug, info, warn or error"}
		}
	}

	if raw := os.Getenv("DEFAULT_LOCATION"); raw != "" {
		loc, err := parseLocation(raw)
		if err != nil {
			return nil, &ConfigError{Field: "DEFAULT_LOCATION", Message: err.Error()}
		}
		cfg.DefaultLocation = &loc
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate re-checks fields on an already-constructed Config.
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, &ConfigError{Field: "PORT", Message: "must be between 1 and 65535"})
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, &ConfigError{Field: "LOG_FORMAT", Message: `must be "text" or "json"`})
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, &ConfigError{Field: "FEE_TTL", Message: "must be positive"})
	}
	if c.Cache.ChunkSize < 1 {
		errs = append(errs, &ConfigError{Field: "PRECALC_CHUNK_SIZE", Message: "must be at least 1"})
	}
	if c.Cache.SignificantMove <= 0 {
		errs = append(errs, &ConfigError{Field: "SIGNIFICANT_MOVE_METERS", Message: "must be positive"})
	}
	if c.Cache.MaxSize < 0 {
		errs = append(errs, &ConfigError{Field: "CACHE_MAX_SIZE", Message: "cannot be negative"})
	}
	if c.BasePrice < 0 {
		errs = append(errs, &ConfigError{Field: "BASE_PRICE", Message: "cannot be negative"})
	}
	return errors.Join(errs...)
}

// Logger builds the process logger described by LogLevel and LogFormat.
func (c *Config) Logger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func envOr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func parseIntEnv(key string, defaultVal int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ConfigError{Field: key, Message: "must be a valid integer"}
	}
	return n, nil
}

// parseDurationEnv reads a duration from an environment variable.
// Falls back to defaultVal if the variable is unset or unparseable.
// Accepts Go duration strings like "800ms", "30m".
func parseDurationEnv(key string, defaultVal time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return defaultVal
	}
	return d
}

// parseLocation reads "lat,lon".
func parseLocation(raw string) (geo.Location, error) {
	latStr, lonStr, ok := strings.Cut(raw, ",")
	if !ok {
		return geo.Location{}, errors.New(`must be "lat,lon"`)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil || lat < -90 || lat > 90 {
		return geo.Location{}, errors.New("latitude must be a number between -90 and 90")
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil || lon < -180 || lon > 180 {
		return geo.Location{}, errors.New("longitude must be a number between -180 and 180")
	}
	return geo.Location{Lat: lat, Lon: lon}, nil
}
