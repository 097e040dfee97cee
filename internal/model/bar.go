package model

import "math"

// DateLayout is the calendar-day format used for bar and forecast dates.
const DateLayout = "2006-01-02"

// Bar represents one daily OHLCV price bar for a symbol.
// Bars are created by the generator and never mutated afterwards.
type Bar struct {
	Date     string  `json:"date"` // YYYY-MM-DD
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   int64   `json:"volume"`
	AdjClose float64 `json:"adjClose"`
}

// Up reports whether the bar closed above its open.
func (b *Bar) Up() bool {
	return b.Close > b.Open
}

// Closes extracts the closing-price sequence from a series.
func Closes(bars []Bar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

// Round2 rounds a price to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
