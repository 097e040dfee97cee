package forecast

import "stocktrend/internal/model"

// LinearRegression fits close = slope*index + intercept by ordinary least
// squares and extrapolates the line.
type LinearRegression struct {
	rng Rand
}

func NewLinearRegression(rng Rand) *LinearRegression {
	return &LinearRegression{rng: rng}
}

func (l *LinearRegression) ID() string   { return "lr" }
func (l *LinearRegression) Name() string { return "Linear Regression" }

func (l *LinearRegression) Predict(bars []model.Bar, days int) []model.ForecastPoint {
	dates := futureDates(bars, days)
	if dates == nil {
		return nil
	}

	slope, intercept := Fit(model.Closes(bars))
	n := len(bars)
	out := make([]model.ForecastPoint, 0, days)
	for i, date := range dates {
		x := float64(n + i)
		out = append(out, model.ForecastPoint{
			Date:       date,
			Predicted:  model.Round2(slope*x + intercept),
			Confidence: l.rng.Float64()*0.5 + 0.5,
			Algorithm:  l.Name(),
		})
	}
	return out
}

// Fit returns the least-squares line through (i, ys[i]). With fewer than two
// points the slope is zero and the intercept is the mean.
func Fit(ys []float64) (slope, intercept float64) {
	n := float64(len(ys))
	if len(ys) == 0 {
		return 0, 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	den := n*sumXX - sumX*sumX
	if len(ys) < 2 || den == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / den
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}
