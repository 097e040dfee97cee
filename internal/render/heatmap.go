package render

import (
	"fmt"
	"io"
	"math"

	svg "github.com/ajstarks/svgo"

	"stocktrend/internal/calendar"
	"stocktrend/internal/model"
)

const (
	// MaxHeatmapWeeks caps how many weeks the heatmap shows.
	MaxHeatmapWeeks = 20

	cellSize   = 32
	cellGap    = 4
	heatMargin = 10
	labelWidth = 84
)

// DailyReturn is one day's close-over-close change, in percent.
type DailyReturn struct {
	Date   string  `json:"date"`
	Return float64 `json:"return"`
}

// HeatCell is a coloured day in the heatmap.
type HeatCell struct {
	DailyReturn
	Color string `json:"color"`
}

// HeatWeek groups the cells of one Sunday-started week.
type HeatWeek struct {
	Start string     `json:"start"`
	Days  []HeatCell `json:"days"`
}

// Heatmap is the weekly returns grid.
type Heatmap struct {
	MaxAbsReturn float64    `json:"maxAbsReturn"`
	Weeks        []HeatWeek `json:"weeks"`
}

// DailyReturns computes percentage returns for every bar after the first.
func DailyReturns(bars []model.Bar) []DailyReturn {
	if len(bars) < 2 {
		return nil
	}
	out := make([]DailyReturn, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		out = append(out, DailyReturn{
			Date:   bars[i].Date,
			Return: (bars[i].Close - prev) / prev * 100,
		})
	}
	return out
}

// HeatmapData groups daily returns into weeks starting on Sunday and keeps the
// first MaxHeatmapWeeks. Colour intensity scales with |return| relative to
// the largest absolute return of the whole series.
func HeatmapData(bars []model.Bar) Heatmap {
	rets := DailyReturns(bars)
	var hm Heatmap
	for _, r := range rets {
		hm.MaxAbsReturn = math.Max(hm.MaxAbsReturn, math.Abs(r.Return))
	}

	for _, r := range rets {
		day, err := calendar.ParseDate(r.Date)
		if err != nil {
			continue
		}
		start := calendar.Format(calendar.WeekStart(day))
		if n := len(hm.Weeks); n == 0 || hm.Weeks[n-1].Start != start {
			if n == MaxHeatmapWeeks {
				break
			}
			hm.Weeks = append(hm.Weeks, HeatWeek{Start: start})
		}
		w := &hm.Weeks[len(hm.Weeks)-1]
		w.Days = append(w.Days, HeatCell{DailyReturn: r, Color: heatColor(r.Return, hm.MaxAbsReturn)})
	}
	return hm
}

// heatColor is green for gains and red otherwise, alpha in [0.2, 1].
func heatColor(ret, maxAbs float64) string {
	intensity := 0.0
	if maxAbs > 0 {
		intensity = math.Abs(ret) / maxAbs
	}
	alpha := intensity*0.8 + 0.2
	if ret > 0 {
		return fmt.Sprintf("rgba(34, 197, 94, %.3f)", alpha)
	}
	return fmt.Sprintf("rgba(239, 68, 68, %.3f)", alpha)
}

// HeatmapSVG writes the returns heatmap as SVG, one row per week.
func HeatmapSVG(w io.Writer, symbol string, bars []model.Bar) {
	title := symbol + " - Daily Returns Heatmap"
	hm := HeatmapData(bars)
	if len(hm.Weeks) == 0 {
		Placeholder(w, 600, 200, title)
		return
	}

	cols := 0
	for _, wk := range hm.Weeks {
		cols = max(cols, len(wk.Days))
	}
	width := heatMargin*2 + labelWidth + cols*(cellSize+cellGap)
	height := heatMargin*2 + len(hm.Weeks)*(cellSize+cellGap)

	canvas := svg.New(w)
	canvas.Start(width, height)
	canvas.Title(title)
	for row, wk := range hm.Weeks {
		y := heatMargin + row*(cellSize+cellGap)
		canvas.Text(heatMargin, y+cellSize/2+4, wk.Start, "font-family:sans-serif;font-size:11px;fill:"+ColorAxis)
		for col, c := range wk.Days {
			x := heatMargin + labelWidth + col*(cellSize+cellGap)
			canvas.Group()
			canvas.Title(fmt.Sprintf("%s: %.2f%%", c.Date, c.Return))
			canvas.Roundrect(x, y, cellSize, cellSize, 4, 4, "fill:"+c.Color)
			canvas.Gend()
		}
	}
	canvas.End()
}
