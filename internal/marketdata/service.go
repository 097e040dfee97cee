package marketdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"stocktrend/internal/calendar"
	"stocktrend/internal/logger"
	"stocktrend/internal/metrics"
	"stocktrend/internal/model"
)

// DefaultMaxRangeDays bounds the calendar span of one request (~20 years).
const DefaultMaxRangeDays = 7305

var (
	// ErrFetchFailed is the single error surfaced to callers for any
	// failure while producing a series.
	ErrFetchFailed = errors.New("failed to fetch stock data")

	// ErrInvalidRange is returned by ParseRange for unusable date ranges.
	ErrInvalidRange = errors.New("invalid date range")
)

// Service fetches series through the cache, generating on a miss.
type Service struct {
	gen     *Generator
	cache   Cache
	metrics *metrics.Metrics
}

// NewService wires a generator to a cache. m may be nil.
func NewService(gen *Generator, cache Cache, m *metrics.Metrics) *Service {
	return &Service{gen: gen, cache: cache, metrics: m}
}

// CacheName returns the name of the configured cache backend.
func (s *Service) CacheName() string { return s.cache.Name() }

// CacheKey builds the memoization key for a request.
func CacheKey(symbol, start, end string) string {
	return symbol + "-" + start + "-" + end
}

// Fetch returns the series for symbol over [start, end], serving a fresh
// cached copy when one exists.
func (s *Service) Fetch(ctx context.Context, symbol string, start, end time.Time) (bars []model.Bar, err error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	key := CacheKey(symbol, calendar.Format(start), calendar.Format(end))
	if cached, ok := s.cache.Get(ctx, key); ok {
		s.observeCache(true)
		return cached, nil
	}
	s.observeCache(false)

	defer func() {
		if r := recover(); r != nil {
			slog.Error("series generation panicked",
				append(logger.LogWithTrace(ctx), "symbol", symbol, "panic", r)...)
			bars, err = nil, ErrFetchFailed
		}
	}()

	t0 := time.Now()
	bars = s.gen.Generate(symbol, start, end)
	if s.metrics != nil {
		s.metrics.GenerateDur.Observe(time.Since(t0).Seconds())
		s.metrics.SeriesGenerated.Inc()
		s.metrics.BarsGenerated.Add(float64(len(bars)))
	}

	s.cache.Set(ctx, key, bars)
	slog.Debug("series generated",
		append(logger.LogWithTrace(ctx), "key", key, "bars", len(bars), "cache", s.cache.Name())...)
	return bars, nil
}

func (s *Service) observeCache(hit bool) {
	if s.metrics == nil {
		return
	}
	if hit {
		s.metrics.CacheHits.WithLabelValues(s.cache.Name()).Inc()
	} else {
		s.metrics.CacheMisses.WithLabelValues(s.cache.Name()).Inc()
	}
}

// NormalizeSymbol trims and upper-cases a ticker. The symbol is otherwise unchecked.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ParseRange parses YYYY-MM-DD bounds and rejects reversed or oversized spans.
// A non-positive maxDays uses DefaultMaxRangeDays.
func ParseRange(startStr, endStr string, maxDays int) (time.Time, time.Time, error) {
	if maxDays <= 0 {
		maxDays = DefaultMaxRangeDays
	}
	start, err := calendar.ParseDate(startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start: %v", ErrInvalidRange, err)
	}
	end, err := calendar.ParseDate(endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end: %v", ErrInvalidRange, err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end %s is before start %s", ErrInvalidRange, endStr, startStr)
	}
	if days := int(end.Sub(start).Hours() / 24); days > maxDays {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: span of %d days exceeds %d", ErrInvalidRange, days, maxDays)
	}
	return start, end, nil
}
