package render

import (
	"fmt"
	"io"
	"math"

	svg "github.com/ajstarks/svgo"
	"github.com/montanaflynn/stats"

	"stocktrend/internal/model"
)

// HistogramBins is the fixed number of equal-width return bins.
const HistogramBins = 20

const (
	histWidth  = 600
	histHeight = 300
	histLeft   = 10
	histPlotW  = 580
	histBase   = 280
	histPlotH  = 250
)

// Bin is one histogram bucket over [From, To) percent returns; the last bin
// is closed on the right.
type Bin struct {
	From       float64 `json:"from"`
	To         float64 `json:"to"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	Color      string  `json:"color"`
}

// Histogram is the distribution of daily percentage returns.
type Histogram struct {
	Bins   []Bin   `json:"bins"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"` // population standard deviation
	Count  int     `json:"count"`
}

// HistogramData bins the daily percentage returns of bars.
func HistogramData(bars []model.Bar) Histogram {
	daily := DailyReturns(bars)
	if len(daily) == 0 {
		return Histogram{}
	}
	rets := make(stats.Float64Data, len(daily))
	for i, d := range daily {
		rets[i] = d.Return
	}

	h := Histogram{Count: len(rets)}
	h.Mean, _ = rets.Mean()
	h.StdDev, _ = rets.StandardDeviationPopulation()
	lo, _ := rets.Min()
	hi, _ := rets.Max()

	width := (hi - lo) / HistogramBins
	h.Bins = make([]Bin, HistogramBins)
	for i := range h.Bins {
		h.Bins[i].From = lo + float64(i)*width
		h.Bins[i].To = lo + float64(i+1)*width
	}
	for _, r := range rets {
		idx := 0
		if width > 0 {
			idx = min(int(math.Floor((r-lo)/width)), HistogramBins-1)
		}
		h.Bins[idx].Count++
	}
	for i := range h.Bins {
		b := &h.Bins[i]
		b.Percentage = float64(b.Count) / float64(len(rets)) * 100
		b.Color = binColor(b.From, b.To)
	}
	return h
}

func binColor(from, to float64) string {
	switch {
	case from < 0 && to < 0:
		return ColorDown
	case from > 0 && to > 0:
		return ColorUp
	default:
		return ColorNeutral
	}
}

// HistogramSVG writes the returns histogram with its summary statistics.
func HistogramSVG(w io.Writer, symbol string, bars []model.Bar) {
	title := symbol + " - Returns Distribution"
	h := HistogramData(bars)
	if h.Count == 0 {
		Placeholder(w, histWidth, histHeight, title)
		return
	}

	maxCount := 0
	for _, b := range h.Bins {
		maxCount = max(maxCount, b.Count)
	}

	canvas := svg.New(w)
	canvas.Start(histWidth, histHeight)
	canvas.Title(title)
	barW := histPlotW/HistogramBins - 2
	for i, b := range h.Bins {
		height := float64(b.Count) / float64(maxCount) * histPlotH
		x := histLeft + i*histPlotW/HistogramBins
		canvas.Group()
		canvas.Title(fmt.Sprintf("Range: %.2f%% to %.2f%%\nCount: %d\nPercentage: %.1f%%", b.From, b.To, b.Count, b.Percentage))
		canvas.Rect(x, px(histBase-height), barW, px(height), "opacity:0.7;fill:"+b.Color)
		canvas.Gend()
	}
	axis := "stroke-width:1;stroke:" + ColorAxis
	canvas.Line(histLeft, histBase, histLeft+histPlotW, histBase, axis)
	canvas.Line(histLeft, 30, histLeft, histBase, axis)
	canvas.Text(histLeft+4, 18, fmt.Sprintf("mean %.2f%%  std dev %.2f%%  n=%d", h.Mean, h.StdDev, h.Count),
		"font-family:sans-serif;font-size:12px;fill:"+ColorAxis)
	canvas.End()
}
