package forecast

import "stocktrend/internal/model"

const (
	shortLookback  = 10
	mediumLookback = 30
	shortWeight    = 0.7
	mediumWeight   = 0.3
	noiseAmplitude = 0.02
)

// TrendBlend compounds the last close by a blend of short- and medium-term
// mean daily returns plus uniform noise. It is presented to users as the
// "LSTM Neural Network" forecaster.
type TrendBlend struct {
	rng Rand
}

func NewTrendBlend(rng Rand) *TrendBlend {
	return &TrendBlend{rng: rng}
}

func (t *TrendBlend) ID() string   { return "lstm" }
func (t *TrendBlend) Name() string { return "LSTM Neural Network" }

func (t *TrendBlend) Predict(bars []model.Bar, days int) []model.ForecastPoint {
	dates := futureDates(bars, days)
	if dates == nil {
		return nil
	}

	prices := model.Closes(bars)
	factor := shortWeight*meanReturn(tail(prices, shortLookback)) +
		mediumWeight*meanReturn(tail(prices, mediumLookback))

	last := prices[len(prices)-1]
	out := make([]model.ForecastPoint, 0, days)
	for _, date := range dates {
		noise := (t.rng.Float64() - 0.5) * noiseAmplitude
		predicted := last * (1 + factor + noise)
		out = append(out, model.ForecastPoint{
			Date:       date,
			Predicted:  model.Round2(predicted),
			Confidence: t.rng.Float64()*0.3 + 0.7,
			Algorithm:  t.Name(),
		})
		last = predicted
	}
	return out
}

func tail(xs []float64, n int) []float64 {
	if len(xs) > n {
		return xs[len(xs)-n:]
	}
	return xs
}

// meanReturn is the average day-over-day simple return, 0 for fewer than two prices.
func meanReturn(prices []float64) float64 {
	if len(prices) < 2 {
		return 0
	}
	var sum float64
	for i := 1; i < len(prices); i++ {
		sum += (prices[i] - prices[i-1]) / prices[i-1]
	}
	return sum / float64(len(prices)-1)
}
