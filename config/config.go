// Package config loads dashboard configuration from an optional YAML file,
// a .env file and environment variables, in increasing precedence.
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
	"gopkg.in/yaml.v3"
)

// Backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config holds all application configuration.
type Config struct {
	Service struct {
		Name      string `yaml:"name"`
		LogLevel  string `yaml:"log_level"`
		LogFormat string `yaml:"log_format"` // json or text
	} `yaml:"service"`

	HTTP struct {
		Addr            string        `yaml:"addr"`
		MetricsAddr     string        `yaml:"metrics_addr"`
		CORSAllowOrigin string        `yaml:"cors_allow_origin"`
		RateLimit       float64       `yaml:"rate_limit"` // requests per second, 0 disables
		RateBurst       int           `yaml:"rate_burst"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"http"`

	Data struct {
		Seed         int64         `yaml:"seed"` // 0 seeds from the clock
		DefaultStart string        `yaml:"default_start"`
		DefaultEnd   string        `yaml:"default_end"`
		MaxRangeDays int           `yaml:"max_range_days"`
		ForecastDays int           `yaml:"forecast_days"`
		CacheBackend string        `yaml:"cache_backend"` // memory or redis
		CacheTTL     time.Duration `yaml:"cache_ttl"`
	} `yaml:"data"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Session struct {
		Backend    string        `yaml:"backend"` // memory or sqlite
		SQLitePath string        `yaml:"sqlite_path"`
		Delay      time.Duration `yaml:"delay"`
		PruneCron  string        `yaml:"prune_cron"`
		Retention  time.Duration `yaml:"retention"`
	} `yaml:"session"`

	Warm struct {
		Enabled bool   `yaml:"enabled"`
		OnStart bool   `yaml:"on_start"`
		Cron    string `yaml:"cron"`
	} `yaml:"warm"`

	Stream struct {
		DefaultSpeed float64 `yaml:"default_speed"` // bars per second
	} `yaml:"stream"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.Service.Name = "stocktrend-dashboard"
	cfg.Service.LogLevel = "info"
	cfg.Service.LogFormat = "json"

	cfg.HTTP.Addr = ":8080"
	cfg.HTTP.MetricsAddr = ":9090"
	cfg.HTTP.CORSAllowOrigin = "*"
	cfg.HTTP.RateLimit = 20
	cfg.HTTP.RateBurst = 40
	cfg.HTTP.ShutdownTimeout = 10 * time.Second

	cfg.Data.DefaultStart = "2024-01-01"
	cfg.Data.DefaultEnd = "2025-08-30"
	cfg.Data.MaxRangeDays = 7305
	cfg.Data.ForecastDays = 30
	cfg.Data.CacheBackend = BackendMemory
	cfg.Data.CacheTTL = 5 * time.Minute

	cfg.Redis.Addr = "localhost:6379"

	cfg.Session.Backend = BackendMemory
	cfg.Session.SQLitePath = "data/stocktrend.db"
	cfg.Session.Delay = time.Second
	cfg.Session.PruneCron = "0 0 3 * * *"
	cfg.Session.Retention = 30 * 24 * time.Hour

	cfg.Warm.Enabled = true
	cfg.Warm.OnStart = true
	cfg.Warm.Cron = "0 */4 * * * *"

	cfg.Stream.DefaultSpeed = 5
	return cfg
}

// Load reads .env (if present), then the YAML file named by CONFIG_PATH (if
// set), then environment overrides.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFile(os.Getenv("CONFIG_PATH"))
}

// LoadFile applies the YAML file at path (empty or missing is fine) and
// environment overrides on top of the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Service.Name = envStr("SERVICE_NAME", c.Service.Name)
	c.Service.LogLevel = envStr("LOG_LEVEL", c.Service.LogLevel)
	c.Service.LogFormat = envStr("LOG_FORMAT", c.Service.LogFormat)

	c.HTTP.Addr = envStr("HTTP_ADDR", c.HTTP.Addr)
	c.HTTP.MetricsAddr = envStr("METRICS_ADDR", c.HTTP.MetricsAddr)
	c.HTTP.CORSAllowOrigin = envStr("CORS_ALLOW_ORIGIN", c.HTTP.CORSAllowOrigin)
	c.HTTP.RateLimit = envFloat("RATE_LIMIT", c.HTTP.RateLimit)
	c.HTTP.RateBurst = envInt("RATE_BURST", c.HTTP.RateBurst)
	c.HTTP.ShutdownTimeout = envDuration("SHUTDOWN_TIMEOUT", c.HTTP.ShutdownTimeout)

	c.Data.Seed = int64(envInt("DATA_SEED", int(c.Data.Seed)))
	c.Data.DefaultStart = envStr("DEFAULT_START", c.Data.DefaultStart)
	c.Data.DefaultEnd = envStr("DEFAULT_END", c.Data.DefaultEnd)
	c.Data.MaxRangeDays = envInt("MAX_RANGE_DAYS", c.Data.MaxRangeDays)
	c.Data.ForecastDays = envInt("FORECAST_DAYS", c.Data.ForecastDays)
	c.Data.CacheBackend = envStr("CACHE_BACKEND", c.Data.CacheBackend)
	c.Data.CacheTTL = envDuration("CACHE_TTL", c.Data.CacheTTL)

	c.Redis.Addr = envStr("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = envStr("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = envInt("REDIS_DB", c.Redis.DB)

	c.Session.Backend = envStr("SESSION_BACKEND", c.Session.Backend)
	c.Session.SQLitePath = envStr("SQLITE_PATH", c.Session.SQLitePath)
	c.Session.Delay = envDuration("SESSION_DELAY", c.Session.Delay)
	c.Session.PruneCron = envStr("SESSION_PRUNE_CRON", c.Session.PruneCron)
	c.Session.Retention = envDuration("SESSION_RETENTION", c.Session.Retention)

	c.Warm.Enabled = envBool("WARM_ENABLED", c.Warm.Enabled)
	c.Warm.OnStart = envBool("WARM_ON_START", c.Warm.OnStart)
	c.Warm.Cron = envStr("WARM_CRON", c.Warm.Cron)

	c.Stream.DefaultSpeed = envFloat("STREAM_SPEED", c.Stream.DefaultSpeed)
}

// Validate checks field ranges and backend names.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if c.HTTP.RateLimit < 0 {
		errs = append(errs, errors.New("http.rate_limit must not be negative"))
	}
	if c.HTTP.RateLimit > 0 && c.HTTP.RateBurst < 1 {
		errs = append(errs, errors.New("http.rate_burst must be at least 1 when rate limiting"))
	}
	if c.Data.MaxRangeDays <= 0 {
		errs = append(errs, errors.New("data.max_range_days must be positive"))
	}
	if c.Data.ForecastDays < 1 || c.Data.ForecastDays > 365 {
		errs = append(errs, errors.New("data.forecast_days must be within 1..365"))
	}
	if c.Data.CacheTTL <= 0 {
		errs = append(errs, errors.New("data.cache_ttl must be positive"))
	}
	if _, err := time.Parse("2006-01-02", c.Data.DefaultStart); err != nil {
		errs = append(errs, fmt.Errorf("data.default_start: %w", err))
	}
	if _, err := time.Parse("2006-01-02", c.Data.DefaultEnd); err != nil {
		errs = append(errs, fmt.Errorf("data.default_end: %w", err))
	}
	switch c.Data.CacheBackend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr is required for the redis cache"))
		}
	default:
		errs = append(errs, fmt.Errorf("data.cache_backend %q: want memory or redis", c.Data.CacheBackend))
	}
	switch c.Session.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Session.SQLitePath == "" {
			errs = append(errs, errors.New("session.sqlite_path is required for sqlite sessions"))
		}
	default:
		errs = append(errs, fmt.Errorf("session.backend %q: want memory or sqlite", c.Session.Backend))
	}
	if c.Session.Delay < 0 {
		errs = append(errs, errors.New("session.delay must not be negative"))
	}
	if c.Stream.DefaultSpeed < 0 {
		errs = append(errs, errors.New("stream.default_speed must not be negative"))
	}
	return errors.Join(errs...)
}

func envStr(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		slog.Warn("config: invalid integer, using default", "key", key, "value", v)
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		slog.Warn("config: invalid number, using default", "key", key, "value", v)
		return fallback
	}
	return f
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		slog.Warn("config: invalid boolean, using default", "key", key, "value", v)
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		slog.Warn("config: invalid duration, using default", "key", key, "value", v)
		return fallback
	}
	return d
}
