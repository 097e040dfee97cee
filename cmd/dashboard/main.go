package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"stocktrend/config"
	"stocktrend/internal/api"
	"stocktrend/internal/calendar"
	"stocktrend/internal/forecast"
	"stocktrend/internal/logger"
	"stocktrend/internal/marketdata"
	"stocktrend/internal/metrics"
	"stocktrend/internal/session"
	redisstore "stocktrend/internal/store/redis"
	sqlitestore "stocktrend/internal/store/sqlite"
	"stocktrend/internal/stream"
	"stocktrend/internal/warmer"
)

func main() {
	// ---- Load config ----
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}
	logger.Init(cfg.Service.Name, logger.ParseLevel(cfg.Service.LogLevel), cfg.Service.LogFormat)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	slog.Info("starting", "cache", cfg.Data.CacheBackend, "sessions", cfg.Session.Backend, "seed", cfg.Data.Seed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- Metrics ----
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := metrics.NewMetrics(reg)

	// ---- Series cache ----
	cache, redisRDB := openCache(ctx, cfg, prom)
	if redisRDB != nil {
		defer redisRDB.Close()
	}

	// ---- Session storage ----
	var (
		store    session.Storage
		sqlLocal *sqlitestore.LocalStorage
		sqlDB    *sql.DB
	)
	switch cfg.Session.Backend {
	case config.BackendSQLite:
		if dir := filepath.Dir(cfg.Session.SQLitePath); dir != "" {
			os.MkdirAll(dir, 0o755)
		}
		sqlLocal, err = sqlitestore.Open(sqlitestore.Config{DBPath: cfg.Session.SQLitePath})
		if err != nil {
			slog.Error("sqlite init failed", "error", err)
			os.Exit(1)
		}
		defer sqlLocal.Close()
		store = sqlLocal
		sqlDB = sqlLocal.DB()
	default:
		store = session.NewMemoryStorage()
	}

	// ---- Health (reports the backends actually in use) ----
	health := metrics.NewHealthStatus(cache.Name(), cfg.Session.Backend)
	metricsSrv := metrics.NewServer(cfg.HTTP.MetricsAddr, health, reg)
	metricsSrv.Start()

	// ---- Periodic liveness checks ----
	if redisRDB != nil || sqlDB != nil {
		health.StartLivenessChecker(ctx, redisRDB, sqlDB, 10*time.Second)
	}

	// ---- Domain services ----
	data := marketdata.NewService(marketdata.NewGenerator(cfg.Data.Seed), cache, prom)
	forecasters := forecast.All(forecast.NewLockedRand(cfg.Data.Seed))
	sessions := session.NewManager(store, cfg.Session.Delay, prom)
	hub := stream.NewHub(prom)

	// ---- Cache warmer & housekeeping ----
	var warm *warmer.Warmer
	if cfg.Warm.Enabled || sqlLocal != nil {
		start, _ := calendar.ParseDate(cfg.Data.DefaultStart)
		end, _ := calendar.ParseDate(cfg.Data.DefaultEnd)
		warm = warmer.New(ctx, data, marketdata.PopularSymbols(), start, end, prom)

		if cfg.Warm.Enabled {
			if err := warm.Register(cfg.Warm.Cron); err != nil {
				slog.Error("warmer schedule invalid", "error", err)
				os.Exit(1)
			}
			if cfg.Warm.OnStart {
				go warm.RunNow()
			}
		}
		if sqlLocal != nil {
			retention := cfg.Session.Retention
			err := warm.RegisterFunc(cfg.Session.PruneCron, "session-prune", func(ctx context.Context) error {
				n, err := sqlLocal.PruneBefore(ctx, time.Now().Add(-retention))
				if err == nil && n > 0 {
					slog.Info("pruned stale sessions", "rows", n)
				}
				return err
			})
			if err != nil {
				slog.Error("prune schedule invalid", "error", err)
				os.Exit(1)
			}
		}
		warm.Start()
	}

	// ---- API server ----
	srv := api.NewServer(api.Options{
		Addr:            cfg.HTTP.Addr,
		CORSAllowOrigin: cfg.HTTP.CORSAllowOrigin,
		RateLimit:       cfg.HTTP.RateLimit,
		RateBurst:       cfg.HTTP.RateBurst,
		DefaultStart:    cfg.Data.DefaultStart,
		DefaultEnd:      cfg.Data.DefaultEnd,
		MaxRangeDays:    cfg.Data.MaxRangeDays,
		ForecastDays:    cfg.Data.ForecastDays,
		StreamSpeed:     cfg.Stream.DefaultSpeed,
	}, data, forecasters, sessions, hub, prom)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// ---- Wait for shutdown ----
	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		slog.Error("api server failed", "error", err)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("api shutdown incomplete", "error", err)
	}
	if warm != nil {
		warm.Stop()
	}
	metricsSrv.Stop(shutdownCtx)
	slog.Info("shutdown complete")
}

// openCache returns the configured series cache. A Redis cache that cannot
// be reached falls back to memory; the client is nil unless Redis is in use.
func openCache(ctx context.Context, cfg *config.Config, prom *metrics.Metrics) (marketdata.Cache, *goredis.Client) {
	if cfg.Data.CacheBackend != config.BackendRedis {
		return marketdata.NewMemoryCache(cfg.Data.CacheTTL), nil
	}
	rc, err := redisstore.New(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      cfg.Data.CacheTTL,
	}, prom)
	if err != nil {
		slog.Warn("redis init failed, falling back to memory cache", "error", err)
		return marketdata.NewMemoryCache(cfg.Data.CacheTTL), nil
	}
	return rc, rc.Client()
}
