package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the dashboard service.
type Metrics struct {
	// HTTP
	HTTPRequests *prometheus.CounterVec   // labels: route, code
	HTTPDuration *prometheus.HistogramVec // labels: route

	// Synthetic series
	SeriesGenerated prometheus.Counter
	GenerateDur     prometheus.Histogram
	BarsGenerated   prometheus.Counter

	// Series cache
	CacheHits   *prometheus.CounterVec // labels: backend
	CacheMisses *prometheus.CounterVec // labels: backend

	// Analytics
	ForecastsTotal *prometheus.CounterVec // labels: algorithm
	ChartsRendered *prometheus.CounterVec // labels: kind

	// Session stub
	SessionOps *prometheus.CounterVec // labels: op

	// Streaming
	WSClients     prometheus.Gauge
	BarsStreamed  prometheus.Counter
	StreamDropped prometheus.Counter

	// Redis circuit breaker
	RedisCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	RedisCircuitBreakerTrips prometheus.Counter

	// Cache warmer
	WarmRuns    prometheus.Counter
	WarmSymbols prometheus.Counter
}

// NewMetrics creates all metrics and registers them on reg.
// A nil reg registers on the Prometheus default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stocktrend_http_requests_total",
			Help: "HTTP requests served (by route and status code)",
		}, []string{"route", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stocktrend_http_request_duration_seconds",
			Help:    "HTTP handler latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),

		SeriesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stocktrend_series_generated_total",
			Help: "Synthetic price series generated",
		}),
		GenerateDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stocktrend_generate_duration_seconds",
			Help:    "Synthetic series generation latency",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),
		BarsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stocktrend_bars_generated_total",
			Help: "Daily bars produced by the generator",
		}),

		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stocktrend_cache_hits_total",
			Help: "Series cache hits (by backend)",
		}, []string{"backend"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stocktrend_cache_misses_total",
			Help: "Series cache misses, including expired entries (by backend)",
		}, []string{"backend"}),

		ForecastsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stocktrend_forecasts_total",
			Help: "Forecast runs (by algorithm)",
		}, []string{"algorithm"}),
		ChartsRendered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stocktrend_charts_rendered_total",
			Help: "SVG charts rendered (by kind)",
		}, []string{"kind"}),

		SessionOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stocktrend_session_ops_total",
			Help: "Session stub operations (login, signup, logout)",
		}, []string{"op"}),

		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stocktrend_ws_clients",
			Help: "Connected WebSocket replay clients",
		}),
		BarsStreamed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stocktrend_bars_streamed_total",
			Help: "Bars pushed to WebSocket clients",
		}),
		StreamDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stocktrend_stream_dropped_total",
			Help: "Bars dropped because a client send buffer was full",
		}),

		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stocktrend_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		RedisCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stocktrend_redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker tripped open",
		}),

		WarmRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stocktrend_warm_runs_total",
			Help: "Cache warmer executions",
		}),
		WarmSymbols: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stocktrend_warm_symbols_total",
			Help: "Symbols pre-generated by the cache warmer",
		}),
	}

	reg.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.SeriesGenerated,
		m.GenerateDur,
		m.BarsGenerated,
		m.CacheHits,
		m.CacheMisses,
		m.ForecastsTotal,
		m.ChartsRendered,
		m.SessionOps,
		m.WSClients,
		m.BarsStreamed,
		m.StreamDropped,
		m.RedisCircuitBreakerState,
		m.RedisCircuitBreakerTrips,
		m.WarmRuns,
		m.WarmSymbols,
	)

	return m
}

// HealthStatus represents the service health.
type HealthStatus struct {
	mu sync.RWMutex

	CacheBackend   string `json:"cache_backend"`
	StorageBackend string `json:"storage_backend"`
	RedisEnabled   bool   `json:"redis_enabled"`
	RedisConnected bool   `json:"redis_connected"`
	SQLiteEnabled  bool   `json:"sqlite_enabled"`
	SQLiteOK       bool   `json:"sqlite_ok"`

	// Liveness probe results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a health status for the given backends.
func NewHealthStatus(cacheBackend, storageBackend string) *HealthStatus {
	return &HealthStatus{
		CacheBackend:   cacheBackend,
		StorageBackend: storageBackend,
		StartedAt:      time.Now(),
	}
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisEnabled = true
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite pings the database and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteEnabled = true
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks. Either dependency may be nil.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	probe := func() {
		probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if rdb != nil {
			h.CheckRedis(probeCtx, rdb)
		}
		if sqlDB != nil {
			h.CheckSQLite(probeCtx, sqlDB)
		}
	}
	probe()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probe()
			}
		}
	}()
}

// Overall reports "healthy", "degraded" or "unhealthy" from the last probes.
// Optional backends that are not enabled never degrade the status.
func (h *HealthStatus) Overall() string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	redisDown := h.RedisEnabled && !h.RedisConnected
	sqliteDown := h.SQLiteEnabled && !h.SQLiteOK
	switch {
	case redisDown && sqliteDown:
		return "unhealthy"
	case redisDown || sqliteDown:
		return "degraded"
	default:
		return "healthy"
	}
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	overall := h.Overall()
	httpCode := http.StatusOK
	if overall != "healthy" {
		httpCode = http.StatusServiceUnavailable
	}

	h.mu.RLock()
	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		CacheBackend    string  `json:"cache_backend"`
		StorageBackend  string  `json:"storage_backend"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overall,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		CacheBackend:    h.CacheBackend,
		StorageBackend:  h.StorageBackend,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}
	h.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpCode)
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		slog.Info("metrics server listening", "addr", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
