package indicator

import (
	"math"

	"github.com/montanaflynn/stats"

	"stocktrend/internal/model"
)

const (
	tradingDaysPerYear = 252

	highVolatility     = 30.0
	moderateVolatility = 15.0
)

// Returns computes day-over-day simple returns (fractions, not percent).
func Returns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		out[i-1] = (closes[i] - closes[i-1]) / closes[i-1]
	}
	return out
}

// Volatility annualises the root mean square of daily returns, in percent.
// Returns false with fewer than two closes.
func Volatility(closes []float64) (float64, bool) {
	rets := Returns(closes)
	if len(rets) == 0 {
		return 0, false
	}
	var sq float64
	for _, r := range rets {
		sq += r * r
	}
	return math.Sqrt(sq/float64(len(rets))) * math.Sqrt(tradingDaysPerYear) * 100, true
}

// VolatilityLabel buckets an annualised volatility percentage.
func VolatilityLabel(v float64) string {
	switch {
	case v > highVolatility:
		return "high"
	case v > moderateVolatility:
		return "moderate"
	default:
		return "low"
	}
}

// Summary is the latest-value snapshot shown on the analytics page.
// Pointer fields are nil when the history is too short to compute them.
type Summary struct {
	Bars               int      `json:"bars"`
	LastClose          *float64 `json:"lastClose"`
	SMA20              *float64 `json:"sma20"`
	SMA50              *float64 `json:"sma50"`
	RSI14              *float64 `json:"rsi14"`
	Volatility         *float64 `json:"volatility"`
	VolatilityLabel    string   `json:"volatilityLabel,omitempty"`
	PriceChange        *float64 `json:"priceChange"`
	PriceChangePercent *float64 `json:"priceChangePercent"`
	AvgVolume          *float64 `json:"avgVolume"`
	HighestPrice       *float64 `json:"highestPrice"`
	LowestPrice        *float64 `json:"lowestPrice"`
}

// Summarize computes the Summary for a chronological bar series.
func Summarize(bars []model.Bar) Summary {
	s := Summary{Bars: len(bars)}
	if len(bars) == 0 {
		return s
	}

	closes := model.Closes(bars)
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		volumes[i] = float64(b.Volume)
	}

	s.LastClose = ptr(closes[len(closes)-1])
	if v, ok := last(SMASeries(closes, 20)); ok {
		s.SMA20 = ptr(v)
	}
	if v, ok := last(SMASeries(closes, 50)); ok {
		s.SMA50 = ptr(v)
	}
	if v, ok := last(RSISeries(closes, 14)); ok {
		s.RSI14 = ptr(v)
	}
	if v, ok := Volatility(closes); ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
		s.Volatility = ptr(v)
		s.VolatilityLabel = VolatilityLabel(v)
	}

	first := closes[0]
	change := closes[len(closes)-1] - first
	s.PriceChange = ptr(change)
	if first != 0 {
		s.PriceChangePercent = ptr(change / first * 100)
	}

	if avg, err := stats.Mean(volumes); err == nil {
		s.AvgVolume = ptr(avg)
	}
	if hi, err := stats.Max(closes); err == nil {
		s.HighestPrice = ptr(hi)
	}
	if lo, err := stats.Min(closes); err == nil {
		s.LowestPrice = ptr(lo)
	}
	return s
}

func ptr(v float64) *float64 { return &v }
