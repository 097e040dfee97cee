package render

import (
	"fmt"
	"io"
	"math"

	svg "github.com/ajstarks/svgo"

	"stocktrend/internal/model"
)

const (
	predWidth  = 800
	predHeight = 400
)

// AlgorithmColors maps forecaster display names to their line colours.
var AlgorithmColors = map[string]string{
	"Moving Average":      "#3B82F6",
	"Linear Regression":   "#10B981",
	"LSTM Neural Network": "#8B5CF6",
}

// Point is a plotted price.
type Point struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// PredictionLine is one forecaster's dashed continuation.
type PredictionLine struct {
	Algorithm string  `json:"algorithm"`
	Color     string  `json:"color"`
	Points    []Point `json:"points"`
}

// PredictionChart overlays forecasts on the historical close line.
type PredictionChart struct {
	Width      int              `json:"width"`
	Height     int              `json:"height"`
	History    []Point          `json:"history"`
	Lines      []PredictionLine `json:"lines"`
	SeparatorX float64          `json:"separatorX"`
}

// PredictionData lays out history followed by each forecaster's points. The x
// axis spans the history plus the longest forecast. order lists the keys of
// forecasts to draw.
func PredictionData(bars []model.Bar, forecasts map[string][]model.ForecastPoint, order []string) PredictionChart {
	chart := PredictionChart{Width: predWidth, Height: predHeight}
	if len(bars) == 0 {
		return chart
	}

	horizon := 0
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, b := range bars {
		lo, hi = math.Min(lo, b.Close), math.Max(hi, b.Close)
	}
	for _, key := range order {
		pts := forecasts[key]
		horizon = max(horizon, len(pts))
		for _, p := range pts {
			lo, hi = math.Min(lo, p.Predicted), math.Max(hi, p.Predicted)
		}
	}

	scale := newPriceScale(lo, hi, predHeight)
	total := float64(len(bars) + horizon)
	x := func(i int) float64 { return float64(i) / total * predWidth }

	chart.History = make([]Point, len(bars))
	for i, b := range bars {
		chart.History[i] = Point{Date: b.Date, Price: b.Close, X: x(i), Y: scale.y(b.Close)}
	}
	chart.SeparatorX = x(len(bars) - 1)

	for _, key := range order {
		pts := forecasts[key]
		if len(pts) == 0 {
			continue
		}
		line := PredictionLine{Algorithm: pts[0].Algorithm, Color: algorithmColor(pts[0].Algorithm)}
		line.Points = make([]Point, len(pts))
		for i, p := range pts {
			line.Points[i] = Point{Date: p.Date, Price: p.Predicted, X: x(len(bars) + i), Y: scale.y(p.Predicted)}
		}
		chart.Lines = append(chart.Lines, line)
	}
	return chart
}

func algorithmColor(name string) string {
	if c, ok := AlgorithmColors[name]; ok {
		return c
	}
	return ColorNeutral
}

// PredictionSVG writes the forecast overlay chart.
func PredictionSVG(w io.Writer, symbol string, bars []model.Bar, forecasts map[string][]model.ForecastPoint, order []string) {
	title := symbol + " - Price Prediction Visualization"
	chart := PredictionData(bars, forecasts, order)
	if len(chart.History) == 0 {
		Placeholder(w, chart.Width, chart.Height, title)
		return
	}

	canvas := svg.New(w)
	canvas.Start(chart.Width, chart.Height)
	canvas.Title(title)

	xs, ys := coords(chart.History)
	canvas.Polyline(xs, ys, "fill:none;stroke-width:2;stroke:"+ColorAxis)
	for _, p := range chart.History {
		canvas.Group()
		canvas.Title(fmt.Sprintf("%s: %s", p.Date, money(p.Price)))
		canvas.Circle(px(p.X), px(p.Y), 3, "fill:"+ColorAxis)
		canvas.Gend()
	}

	anchor := chart.History[len(chart.History)-1]
	for _, line := range chart.Lines {
		xs, ys := coords(append([]Point{anchor}, line.Points...))
		canvas.Gstyle("opacity:0.8")
		canvas.Polyline(xs, ys, "fill:none;stroke-width:2;stroke-dasharray:5,5;stroke:"+line.Color)
		for _, p := range line.Points {
			canvas.Group()
			canvas.Title(fmt.Sprintf("%s: %s (%s)", p.Date, money(p.Price), line.Algorithm))
			canvas.Circle(px(p.X), px(p.Y), 3, "fill:"+line.Color)
			canvas.Gend()
		}
		canvas.Gend()
	}

	sx := px(chart.SeparatorX)
	canvas.Line(sx, 0, sx, chart.Height, "stroke-width:2;stroke-dasharray:3,3;opacity:0.6;stroke:"+ColorDown)
	canvas.End()
}

func coords(pts []Point) ([]int, []int) {
	xs, ys := make([]int, len(pts)), make([]int, len(pts))
	for i, p := range pts {
		xs[i], ys[i] = px(p.X), px(p.Y)
	}
	return xs, ys
}
