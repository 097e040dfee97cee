// Package render turns bar series and forecasts into chart layouts and SVG.
//
// Every chart has a data function returning the computed layout (served as
// JSON) and an SVG function drawing that layout. Renderers keep no state
// between calls.
package render

import (
	"fmt"
	"io"
	"math"

	svg "github.com/ajstarks/svgo"
)

// Chart kinds accepted by the SVG endpoint.
const (
	KindCandlestick = "candlestick"
	KindHeatmap     = "heatmap"
	KindHistogram   = "histogram"
	KindPrediction  = "prediction"
)

// Kinds lists every chart kind in display order.
var Kinds = []string{KindCandlestick, KindHeatmap, KindHistogram, KindPrediction}

const (
	ColorUp      = "#10B981"
	ColorDown    = "#EF4444"
	ColorNeutral = "#6B7280"
	ColorAxis    = "#374151"

	// NoData is drawn in place of a chart when there is nothing to plot.
	NoData = "No data available"

	paddingRatio = 0.1
)

// priceScale maps prices onto a vertical pixel axis with 10% headroom on
// both ends. A flat range is widened to one unit so it still centres.
type priceScale struct {
	min, rng, pad, height float64
}

func newPriceScale(lo, hi, height float64) priceScale {
	rng := hi - lo
	if rng <= 0 {
		rng = 1
		lo -= 0.5
	}
	return priceScale{min: lo, rng: rng, pad: rng * paddingRatio, height: height}
}

func (s priceScale) y(price float64) float64 {
	return s.height - ((price-s.min+s.pad)/(s.rng+2*s.pad))*s.height
}

func px(v float64) int { return int(math.Round(v)) }

// Placeholder writes a blank chart with a centred "No data available" label.
func Placeholder(w io.Writer, width, height int, title string) {
	canvas := svg.New(w)
	canvas.Start(width, height)
	if title != "" {
		canvas.Title(title)
	}
	canvas.Rect(0, 0, width, height, "fill:#FFFFFF;stroke:#E5E7EB")
	canvas.Text(width/2, height/2, NoData, "text-anchor:middle;font-family:sans-serif;font-size:14px;fill:"+ColorNeutral)
	canvas.End()
}

func money(v float64) string { return fmt.Sprintf("$%.2f", v) }
