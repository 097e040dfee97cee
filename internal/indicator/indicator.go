// Package indicator provides technical indicator calculations over daily closes.
//
// All indicators implement the Indicator interface, receiving prices one at a
// time and producing float64 values. The *Series helpers replay a whole close
// history through an indicator and collect one value per full window.
package indicator

// Indicator is the interface for all streaming indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "SMA_20", "RSI_14").
	Name() string

	// Update feeds the next close price and recalculates.
	Update(price float64)

	// Value returns the current calculated value. Returns 0 if not enough data.
	Value() float64

	// Ready returns true when enough data has been accumulated.
	Ready() bool
}

// Series feeds closes through ind and returns the value after every update
// at which the indicator is ready.
func Series(ind Indicator, closes []float64) []float64 {
	out := make([]float64, 0, len(closes))
	for _, c := range closes {
		ind.Update(c)
		if ind.Ready() {
			out = append(out, ind.Value())
		}
	}
	return out
}

// SMASeries returns the simple moving average of every full trailing window.
// The result has len(closes)-period+1 values, or none when history is shorter.
func SMASeries(closes []float64, period int) []float64 {
	if period <= 0 {
		return nil
	}
	return Series(NewSMA(period), closes)
}

// EMASeries returns the exponential moving average seeded by an SMA of the
// first period closes.
func EMASeries(closes []float64, period int) []float64 {
	if period <= 0 {
		return nil
	}
	return Series(NewEMA(period), closes)
}

// RSISeries returns the relative strength index over trailing windows of
// period price changes, len(closes)-period values in total.
func RSISeries(closes []float64, period int) []float64 {
	if period <= 0 {
		return nil
	}
	return Series(NewRSI(period), closes)
}

func last(xs []float64) (float64, bool) {
	if len(xs) == 0 {
		return 0, false
	}
	return xs[len(xs)-1], true
}
