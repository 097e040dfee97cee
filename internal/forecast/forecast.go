// Package forecast holds the toy price forecasters shown on the prediction
// page. Forecasters are stateless apart from their random source: Predict
// never mutates the input bars.
package forecast

import (
	"math/rand"
	"sync"
	"time"

	"stocktrend/internal/calendar"
	"stocktrend/internal/model"
)

// Forecaster predicts one closing price per day after the last bar.
type Forecaster interface {
	// ID is the short query-string key ("ma", "lr", "lstm").
	ID() string
	// Name is the display label stored in ForecastPoint.Algorithm.
	Name() string
	// Predict returns days points dated lastBar+1 .. lastBar+days calendar
	// days. Empty history yields nil.
	Predict(bars []model.Bar, days int) []model.ForecastPoint
}

// Rand is the subset of *rand.Rand the forecasters draw from.
type Rand interface {
	Float64() float64
}

// LockedRand is a Rand safe for use from concurrent request handlers.
type LockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewLockedRand seeds a LockedRand. A zero seed uses the current time.
func NewLockedRand(seed int64) *LockedRand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &LockedRand{rng: rand.New(rand.NewSource(seed))}
}

func (l *LockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Float64()
}

// All returns the three forecasters in display order.
func All(rng Rand) []Forecaster {
	return []Forecaster{
		NewMovingAverage(DefaultWindow, rng),
		NewLinearRegression(rng),
		NewTrendBlend(rng),
	}
}

// ByID picks forecasters for an algorithm query value. "all" (or "") selects
// every forecaster; an unknown id returns false.
func ByID(fs []Forecaster, id string) ([]Forecaster, bool) {
	if id == "" || id == "all" {
		return fs, true
	}
	for _, f := range fs {
		if f.ID() == id {
			return []Forecaster{f}, true
		}
	}
	return nil, false
}

// Result groups the output of several forecasters.
type Result struct {
	Predictions map[string][]model.ForecastPoint `json:"predictions"` // keyed by ID
	Algorithms  []string                         `json:"algorithms"`  // IDs in run order
	// AverageConfidence is the mean confidence over every point, 0 when empty.
	AverageConfidence float64 `json:"averageConfidence"`
}

// RunAll runs every forecaster over the same history.
func RunAll(fs []Forecaster, bars []model.Bar, days int) Result {
	res := Result{Predictions: make(map[string][]model.ForecastPoint, len(fs))}
	var sum float64
	var n int
	for _, f := range fs {
		pts := f.Predict(bars, days)
		res.Predictions[f.ID()] = pts
		res.Algorithms = append(res.Algorithms, f.ID())
		for _, p := range pts {
			sum += p.Confidence
			n++
		}
	}
	if n > 0 {
		res.AverageConfidence = sum / float64(n)
	}
	return res
}

// futureDates returns the days calendar dates following the last bar.
func futureDates(bars []model.Bar, days int) []string {
	if len(bars) == 0 || days <= 0 {
		return nil
	}
	last := bars[len(bars)-1].Date
	out := make([]string, days)
	for i := range out {
		d, err := calendar.AddDays(last, i+1)
		if err != nil {
			return nil
		}
		out[i] = d
	}
	return out
}
