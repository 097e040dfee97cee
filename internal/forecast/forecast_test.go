package forecast

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocktrend/internal/model"
)

type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

func series(start string, closes ...float64) []model.Bar {
	bars := make([]model.Bar, len(closes))
	for i, c := range closes {
		bars[i] = model.Bar{Date: start, Open: c, High: c, Low: c, Close: c, AdjClose: c}
	}
	return bars
}

func linear(n int, a, b float64) []model.Bar {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = a + b*float64(i)
	}
	return series("2024-03-01", closes...)
}

func TestLinearRegression_ContinuesLine(t *testing.T) {
	bars := linear(50, 100, 0.5)
	pts := NewLinearRegression(fixedRand(0.5)).Predict(bars, 10)

	require.Len(t, pts, 10)
	for i, p := range pts {
		assert.InDelta(t, 100+0.5*float64(50+i), p.Predicted, 0.005)
		assert.Equal(t, "Linear Regression", p.Algorithm)
		assert.InDelta(t, 0.75, p.Confidence, 1e-12)
	}
}

func TestFit(t *testing.T) {
	slope, intercept := Fit([]float64{3, 5, 7, 9})
	assert.InDelta(t, 2, slope, 1e-12)
	assert.InDelta(t, 3, intercept, 1e-12)

	slope, intercept = Fit([]float64{42})
	assert.Zero(t, slope)
	assert.InDelta(t, 42, intercept, 1e-12)
}

func TestMovingAverage_StaysWithinHistoricalRange(t *testing.T) {
	closes := []float64{120, 131.5, 128, 140.2, 119.9, 125, 133, 137.7, 122, 129}
	bars := series("2024-05-10", closes...)
	pts := NewMovingAverage(DefaultWindow, fixedRand(0.99)).Predict(bars, 60)

	require.Len(t, pts, 60)
	for _, p := range pts {
		assert.GreaterOrEqual(t, p.Predicted, 119.9)
		assert.LessOrEqual(t, p.Predicted, 140.2)
		assert.GreaterOrEqual(t, p.Confidence, 0.6)
		assert.LessOrEqual(t, p.Confidence, 1.0)
	}
}

func TestMovingAverage_FeedsBackUnroundedMean(t *testing.T) {
	// mean(1, 2) = 1.5, then mean(2, 1.5) = 1.75 with a window of 2
	bars := series("2024-01-02", 1, 2)
	pts := NewMovingAverage(2, fixedRand(0)).Predict(bars, 2)

	require.Len(t, pts, 2)
	assert.InDelta(t, 1.5, pts[0].Predicted, 1e-12)
	assert.InDelta(t, 1.75, pts[1].Predicted, 1e-12)
	assert.InDelta(t, 0.6, pts[0].Confidence, 1e-12)
}

func TestTrendBlend_CompoundsTrend(t *testing.T) {
	// constant 1% daily growth; noise is zero at u=0.5
	closes := []float64{100}
	for i := 0; i < 40; i++ {
		closes = append(closes, closes[len(closes)-1]*1.01)
	}
	bars := series("2024-06-03", closes...)
	pts := NewTrendBlend(fixedRand(0.5)).Predict(bars, 3)

	require.Len(t, pts, 3)
	want := closes[len(closes)-1]
	for _, p := range pts {
		want *= 1.01
		assert.InDelta(t, want, p.Predicted, 0.006)
		assert.InDelta(t, 0.85, p.Confidence, 1e-12)
		assert.Equal(t, "LSTM Neural Network", p.Algorithm)
	}
}

func TestPredict_DatesAreCalendarDays(t *testing.T) {
	// 2024-08-30 is a Friday; forecasts include the weekend
	bars := series("2024-08-30", 10, 11, 12)
	for _, f := range All(fixedRand(0.5)) {
		pts := f.Predict(bars, 3)
		require.Len(t, pts, 3, f.ID())
		assert.Equal(t, "2024-08-31", pts[0].Date)
		assert.Equal(t, "2024-09-01", pts[1].Date)
		assert.Equal(t, "2024-09-02", pts[2].Date)
	}
}

func TestPredict_EmptyHistory(t *testing.T) {
	for _, f := range All(fixedRand(0.5)) {
		assert.Nil(t, f.Predict(nil, 30), f.ID())
	}
}

func TestPredict_DoesNotMutateInput(t *testing.T) {
	bars := linear(25, 50, 1)
	snapshot := append([]model.Bar(nil), bars...)
	for _, f := range All(NewLockedRand(7)) {
		f.Predict(bars, 15)
	}
	assert.Equal(t, snapshot, bars)
}

func TestByID(t *testing.T) {
	fs := All(fixedRand(0.5))

	got, ok := ByID(fs, "all")
	require.True(t, ok)
	assert.Len(t, got, 3)

	got, ok = ByID(fs, "lr")
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "Linear Regression", got[0].Name())

	_, ok = ByID(fs, "arima")
	assert.False(t, ok)
}

func TestRunAll_AverageConfidence(t *testing.T) {
	// u=0.5 → ma 0.8, lr 0.75, lstm 0.85
	res := RunAll(All(fixedRand(0.5)), linear(40, 10, 1), 5)

	assert.Equal(t, []string{"ma", "lr", "lstm"}, res.Algorithms)
	for _, id := range res.Algorithms {
		assert.Len(t, res.Predictions[id], 5)
	}
	assert.InDelta(t, 0.8, res.AverageConfidence, 1e-12)

	empty := RunAll(All(fixedRand(0.5)), nil, 5)
	assert.Zero(t, empty.AverageConfidence)
}

func TestLockedRand_Deterministic(t *testing.T) {
	a, b := NewLockedRand(99), NewLockedRand(99)
	for i := 0; i < 5; i++ {
		x := a.Float64()
		assert.Equal(t, x, b.Float64())
		assert.False(t, math.IsNaN(x))
	}
}
