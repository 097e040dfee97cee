// Package marketdata produces synthetic daily price series and memoizes them
// behind a short-lived cache.
//
// There is no real data source: every series is a random walk seeded from a
// uniformly drawn starting price.
package marketdata

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"stocktrend/internal/calendar"
	"stocktrend/internal/model"
)

const (
	// DailyVolatility scales the uniform close-to-close shock.
	DailyVolatility = 0.02
	// WickMargin scales the extra range added above/below the body.
	WickMargin = 0.01

	minStartPrice   = 150.0
	startPriceRange = 100.0
	minVolume       = 1_000_000
	volumeRange     = 10_000_000
)

// Generator builds random-walk OHLCV series. Safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a generator. A zero seed seeds from the wall clock.
func NewGenerator(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Generate returns one bar per weekday in [start, end], oldest first.
// The symbol does not influence the walk.
func (g *Generator) Generate(symbol string, start, end time.Time) []model.Bar {
	days := calendar.TradingDays(start, end)
	bars := make([]model.Bar, 0, len(days))

	g.mu.Lock()
	defer g.mu.Unlock()

	base := minStartPrice + g.rng.Float64()*startPriceRange
	for _, d := range days {
		change := (g.rng.Float64() - 0.5) * DailyVolatility * base
		open := base
		close := base + change
		high := math.Max(open, close) + g.rng.Float64()*WickMargin*base
		low := math.Min(open, close) - g.rng.Float64()*WickMargin*base
		volume := int64(math.Floor(g.rng.Float64()*volumeRange)) + minVolume

		bars = append(bars, model.Bar{
			Date:     calendar.Format(d),
			Open:     model.Round2(open),
			High:     model.Round2(high),
			Low:      model.Round2(low),
			Close:    model.Round2(close),
			Volume:   volume,
			AdjClose: model.Round2(close),
		})
		base = close
	}
	return bars
}

// PopularSymbols lists the tickers offered as quick picks.
func PopularSymbols() []string {
	return []string{"AAPL", "GOOGL", "MSFT", "AMZN", "TSLA", "NVDA", "META", "NFLX"}
}
