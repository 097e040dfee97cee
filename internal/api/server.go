// Package api serves the dashboard REST, SVG, session and replay endpoints.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"stocktrend/internal/forecast"
	"stocktrend/internal/marketdata"
	"stocktrend/internal/metrics"
	"stocktrend/internal/session"
	"stocktrend/internal/stream"
)

const (
	// MaxForecastDays bounds the forecast horizon.
	MaxForecastDays = 365

	clientCookie = "sp_client"
)

// Options configures the HTTP surface.
type Options struct {
	Addr            string
	CORSAllowOrigin string
	RateLimit       float64 // requests per second, 0 disables
	RateBurst       int

	DefaultStart string // YYYY-MM-DD
	DefaultEnd   string
	MaxRangeDays int
	ForecastDays int
	StreamSpeed  float64 // default bars per second for /ws
}

// Server is the dashboard HTTP server.
type Server struct {
	opts        Options
	data        *marketdata.Service
	forecasters []forecast.Forecaster
	sessions    *session.Manager
	hub         *stream.Hub
	metrics     *metrics.Metrics
	limiter     *rate.Limiter

	handler    http.Handler
	httpServer *http.Server
}

// NewServer wires the routes. m may be nil.
func NewServer(opts Options, data *marketdata.Service, forecasters []forecast.Forecaster,
	sessions *session.Manager, hub *stream.Hub, m *metrics.Metrics) *Server {
	if opts.ForecastDays <= 0 {
		opts.ForecastDays = 30
	}
	s := &Server{
		opts:        opts,
		data:        data,
		forecasters: forecasters,
		sessions:    sessions,
		hub:         hub,
		metrics:     m,
	}
	if opts.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), max(1, opts.RateBurst))
	}

	mux := http.NewServeMux()

	s.route(mux, "GET /health", s.handleHealth)
	s.route(mux, "GET /v1/symbols", s.handleSymbols)

	// Market data and analytics
	s.route(mux, "GET /v1/stocks/{symbol}", s.handleBars)
	s.route(mux, "GET /v1/stocks/{symbol}/indicators", s.handleIndicators)
	s.route(mux, "GET /v1/stocks/{symbol}/forecast", s.handleForecast)
	s.route(mux, "GET /v1/stocks/{symbol}/returns/heatmap", s.handleHeatmap)
	s.route(mux, "GET /v1/stocks/{symbol}/returns/histogram", s.handleHistogram)
	s.route(mux, "GET /v1/stocks/{symbol}/charts/{kind}", s.handleChart)

	// Session stub
	s.route(mux, "POST /v1/auth/login", s.handleLogin)
	s.route(mux, "POST /v1/auth/signup", s.handleSignup)
	s.route(mux, "POST /v1/auth/logout", s.handleLogout)
	s.route(mux, "GET /v1/auth/me", s.handleMe)

	// Live replay
	s.route(mux, "GET /ws", s.handleWS)

	s.handler = s.traceMiddleware(corsMiddleware(s.rateLimitMiddleware(mux), opts.CORSAllowOrigin))
	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.handler }

// Start serves until Shutdown. It returns http.ErrServerClosed after a clean stop.
func (s *Server) Start() error {
	slog.Info("api server listening", "addr", s.opts.Addr, "rate_limit", s.opts.RateLimit)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting requests and disconnects replay clients.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.hub != nil {
		s.hub.CloseAll()
	}
	return s.httpServer.Shutdown(ctx)
}
