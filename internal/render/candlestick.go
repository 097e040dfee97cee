package render

import (
	"fmt"
	"io"
	"math"

	svg "github.com/ajstarks/svgo"
	"github.com/dustin/go-humanize"

	"stocktrend/internal/model"
)

const (
	candleHeight   = 350
	candleMinWidth = 800
	candleSlot     = 8
)

// Candle is the pixel geometry of one bar.
type Candle struct {
	Date       string  `json:"date"`
	X          float64 `json:"x"`
	Width      float64 `json:"width"`
	WickX      float64 `json:"wickX"`
	HighY      float64 `json:"highY"`
	LowY       float64 `json:"lowY"`
	BodyY      float64 `json:"bodyY"`
	BodyHeight float64 `json:"bodyHeight"`
	Color      string  `json:"color"`
	bar        model.Bar
}

// CandlestickChart is the full candlestick layout.
type CandlestickChart struct {
	Width    int      `json:"width"`
	Height   int      `json:"height"`
	MinPrice float64  `json:"minPrice"`
	MaxPrice float64  `json:"maxPrice"`
	Candles  []Candle `json:"candles"`
}

// CandlestickData lays out one candle per bar: body from open to close, wick
// from high to low, green when the bar closed above its open.
func CandlestickData(bars []model.Bar) CandlestickChart {
	chart := CandlestickChart{
		Width:  max(candleMinWidth, len(bars)*candleSlot),
		Height: candleHeight,
	}
	if len(bars) == 0 {
		return chart
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, b := range bars {
		hi = math.Max(hi, b.High)
		lo = math.Min(lo, b.Low)
	}
	chart.MinPrice, chart.MaxPrice = lo, hi
	scale := newPriceScale(lo, hi, candleHeight)

	n := float64(len(bars))
	w := float64(chart.Width)
	slot := math.Max(2, w/n-2)
	chart.Candles = make([]Candle, len(bars))
	for i, b := range bars {
		x := float64(i) / n * w
		openY, closeY := scale.y(b.Open), scale.y(b.Close)
		color := ColorDown
		if b.Up() {
			color = ColorUp
		}
		chart.Candles[i] = Candle{
			Date:       b.Date,
			X:          x,
			Width:      slot,
			WickX:      x + slot/2,
			HighY:      scale.y(b.High),
			LowY:       scale.y(b.Low),
			BodyY:      math.Min(openY, closeY),
			BodyHeight: math.Max(1, math.Abs(closeY-openY)),
			Color:      color,
			bar:        b,
		}
	}
	return chart
}

// Candlestick writes the candlestick chart for symbol as SVG.
func Candlestick(w io.Writer, symbol string, bars []model.Bar) {
	chart := CandlestickData(bars)
	if len(chart.Candles) == 0 {
		Placeholder(w, chart.Width, chart.Height, symbol+" - Candlestick Chart")
		return
	}

	canvas := svg.New(w)
	canvas.Start(chart.Width, chart.Height)
	canvas.Title(symbol + " - Candlestick Chart")
	for _, c := range chart.Candles {
		canvas.Gstyle("fill:" + c.Color + ";stroke:" + c.Color)
		canvas.Title(fmt.Sprintf("%s O %s H %s L %s C %s V %s",
			c.Date, money(c.bar.Open), money(c.bar.High), money(c.bar.Low), money(c.bar.Close),
			humanize.Comma(c.bar.Volume)))
		canvas.Line(px(c.WickX), px(c.HighY), px(c.WickX), px(c.LowY), "stroke-width:1")
		canvas.Rect(px(c.X+1), px(c.BodyY), max(1, px(c.Width-2)), max(1, px(c.BodyHeight)), "opacity:0.8;stroke:none")
		canvas.Gend()
	}
	canvas.End()
}
