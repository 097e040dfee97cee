// Package redis provides a Redis-backed series cache shared between
// dashboard replicas.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"stocktrend/internal/metrics"
	"stocktrend/internal/model"
)

const (
	defaultPrefix       = "stocktrend:series:"
	defaultOpTimeout    = 500 * time.Millisecond
	defaultMaxFailures  = 5
	defaultResetTimeout = 10 * time.Second
)

// Config configures the Redis series cache.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int

	Prefix       string        // key prefix, default "stocktrend:series:"
	TTL          time.Duration // entry lifetime, enforced by Redis EXPIRE
	OpTimeout    time.Duration // per-command deadline
	MaxFailures  int           // consecutive failures before the breaker opens
	ResetTimeout time.Duration // breaker cool-down
}

func (c *Config) applyDefaults() {
	if c.Prefix == "" {
		c.Prefix = defaultPrefix
	}
	if c.TTL <= 0 {
		c.TTL = 5 * time.Minute
	}
	if c.OpTimeout <= 0 {
		c.OpTimeout = defaultOpTimeout
	}
	if c.MaxFailures <= 0 {
		c.MaxFailures = defaultMaxFailures
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = defaultResetTimeout
	}
}

// SeriesCache stores generated bar series as JSON strings with a Redis TTL.
// Every Redis failure degrades to a cache miss.
type SeriesCache struct {
	client  *goredis.Client
	cfg     Config
	breaker *CircuitBreaker
}

// New connects to Redis, pings it and returns a SeriesCache.
func New(ctx context.Context, cfg Config, m *metrics.Metrics) (*SeriesCache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	slog.Info("redis connected", "addr", cfg.Addr)
	return NewWithClient(client, cfg, m), nil
}

// NewWithClient wraps an existing client. m may be nil.
func NewWithClient(client *goredis.Client, cfg Config, m *metrics.Metrics) *SeriesCache {
	cfg.applyDefaults()
	cb := NewCircuitBreaker(cfg.MaxFailures, cfg.ResetTimeout)
	cb.OnStateChange = func(from, to State) {
		slog.Warn("redis circuit breaker", "from", from.String(), "to", to.String())
		if m == nil {
			return
		}
		m.RedisCircuitBreakerState.Set(float64(to))
		if to == StateOpen {
			m.RedisCircuitBreakerTrips.Inc()
		}
	}
	return &SeriesCache{client: client, cfg: cfg, breaker: cb}
}

// Client returns the underlying Redis client for health checks.
func (c *SeriesCache) Client() *goredis.Client { return c.client }

// Breaker exposes the circuit breaker state.
func (c *SeriesCache) Breaker() *CircuitBreaker { return c.breaker }

func (c *SeriesCache) Name() string { return "redis" }

func (c *SeriesCache) key(k string) string { return c.cfg.Prefix + k }

// do runs op under the breaker with the per-op deadline. Failures caused by
// the caller's ctx ending are returned without counting against Redis.
func (c *SeriesCache) do(ctx context.Context, op func(opCtx context.Context) error) error {
	return c.breaker.Execute(func() error {
		opCtx, cancel := context.WithTimeout(ctx, c.cfg.OpTimeout)
		defer cancel()
		err := op(opCtx)
		if err != nil && ctx.Err() != nil {
			return Neutral(err)
		}
		return err
	})
}

// Get returns the cached series for key. Missing keys, decode errors, Redis
// errors and an open breaker are all reported as a miss.
func (c *SeriesCache) Get(ctx context.Context, key string) ([]model.Bar, bool) {
	var raw []byte
	err := c.do(ctx, func(opCtx context.Context) error {
		b, err := c.client.Get(opCtx, c.key(key)).Bytes()
		if errors.Is(err, goredis.Nil) {
			return nil
		}
		raw = b
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrCircuitOpen) && ctx.Err() == nil {
			slog.Warn("redis get failed", "key", key, "error", err)
		}
		return nil, false
	}
	if raw == nil {
		return nil, false
	}

	var bars []model.Bar
	if err := json.Unmarshal(raw, &bars); err != nil {
		slog.Warn("redis series decode failed", "key", key, "error", err)
		return nil, false
	}
	return bars, true
}

// Set stores bars under key with the configured TTL. Failures are logged.
func (c *SeriesCache) Set(ctx context.Context, key string, bars []model.Bar) {
	raw, err := json.Marshal(bars)
	if err != nil {
		slog.Error("redis series encode failed", "key", key, "error", err)
		return
	}
	err = c.do(ctx, func(opCtx context.Context) error {
		return c.client.Set(opCtx, c.key(key), raw, c.cfg.TTL).Err()
	})
	if err != nil && !errors.Is(err, ErrCircuitOpen) && ctx.Err() == nil {
		slog.Warn("redis set failed", "key", key, "error", err)
	}
}

// Close closes the Redis client.
func (c *SeriesCache) Close() error {
	return c.client.Close()
}
