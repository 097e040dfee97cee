// Package warmer keeps the series cache hot for the popular symbols and runs
// other periodic housekeeping on a cron schedule.
package warmer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"stocktrend/internal/metrics"
	"stocktrend/internal/model"
)

// Fetcher is the part of marketdata.Service the warmer drives.
type Fetcher interface {
	Fetch(ctx context.Context, symbol string, start, end time.Time) ([]model.Bar, error)
}

// Warmer pre-generates series so dashboard requests hit the cache.
type Warmer struct {
	cron    *cron.Cron
	fetcher Fetcher
	metrics *metrics.Metrics
	ctx     context.Context

	symbols    []string
	start, end time.Time
}

// New creates a Warmer for symbols over [start, end]. Schedules use the
// six-field cron format with seconds. m may be nil.
func New(ctx context.Context, f Fetcher, symbols []string, start, end time.Time, m *metrics.Metrics) *Warmer {
	return &Warmer{
		cron:    cron.New(cron.WithSeconds()),
		fetcher: f,
		metrics: m,
		ctx:     ctx,
		symbols: symbols,
		start:   start,
		end:     end,
	}
}

// Register schedules the warm-up job.
func (w *Warmer) Register(spec string) error {
	if _, err := w.cron.AddFunc(spec, func() { w.RunNow() }); err != nil {
		return fmt.Errorf("register warm task %q: %w", spec, err)
	}
	return nil
}

// RegisterFunc schedules an extra named housekeeping job.
func (w *Warmer) RegisterFunc(spec, name string, fn func(ctx context.Context) error) error {
	_, err := w.cron.AddFunc(spec, func() {
		if err := fn(w.ctx); err != nil {
			slog.Warn("scheduled task failed", "task", name, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("register %s task %q: %w", name, spec, err)
	}
	return nil
}

// RunNow fetches every symbol once and returns how many succeeded.
func (w *Warmer) RunNow() int {
	begin := time.Now()
	warmed := 0
	for _, sym := range w.symbols {
		if w.ctx.Err() != nil {
			break
		}
		if _, err := w.fetcher.Fetch(w.ctx, sym, w.start, w.end); err != nil {
			slog.Warn("cache warm failed", "symbol", sym, "error", err)
			continue
		}
		warmed++
	}
	if w.metrics != nil {
		w.metrics.WarmRuns.Inc()
		w.metrics.WarmSymbols.Add(float64(warmed))
	}
	slog.Info("cache warmed", "symbols", warmed, "took", time.Since(begin).String())
	return warmed
}

// Start starts the cron scheduler.
func (w *Warmer) Start() {
	w.cron.Start()
	slog.Info("warmer started", "jobs", len(w.cron.Entries()))
}

// Stop stops the scheduler and waits for running jobs.
func (w *Warmer) Stop() {
	<-w.cron.Stop().Done()
	slog.Info("warmer stopped")
}
