package forecast

import "stocktrend/internal/model"

// DefaultWindow is the moving-average look-back.
const DefaultWindow = 20

// MovingAverage forecasts each day as the mean of the trailing window, feeding
// every (unrounded) prediction back into the history.
type MovingAverage struct {
	window int
	rng    Rand
}

func NewMovingAverage(window int, rng Rand) *MovingAverage {
	if window <= 0 {
		window = DefaultWindow
	}
	return &MovingAverage{window: window, rng: rng}
}

func (m *MovingAverage) ID() string   { return "ma" }
func (m *MovingAverage) Name() string { return "Moving Average" }

func (m *MovingAverage) Predict(bars []model.Bar, days int) []model.ForecastPoint {
	dates := futureDates(bars, days)
	if dates == nil {
		return nil
	}

	prices := model.Closes(bars)
	out := make([]model.ForecastPoint, 0, days)
	for _, date := range dates {
		recent := prices
		if len(recent) > m.window {
			recent = recent[len(recent)-m.window:]
		}
		var sum float64
		for _, p := range recent {
			sum += p
		}
		ma := sum / float64(len(recent))

		out = append(out, model.ForecastPoint{
			Date:       date,
			Predicted:  model.Round2(ma),
			Confidence: m.rng.Float64()*0.4 + 0.6,
			Algorithm:  m.Name(),
		})
		prices = append(prices, ma)
	}
	return out
}
