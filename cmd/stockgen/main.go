// cmd/stockgen generates a synthetic daily series and prints it together with
// the indicator summary and forecasts, or renders one of the SVG charts.
//
// Usage:
//
//	go run ./cmd/stockgen --symbol=AAPL --start=2024-01-01 --end=2024-06-28 --days=10
//	go run ./cmd/stockgen --symbol=TSLA --format=csv > tsla.csv
//	go run ./cmd/stockgen --symbol=NVDA --chart=candlestick --out=nvda.svg
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"stocktrend/internal/forecast"
	"stocktrend/internal/indicator"
	"stocktrend/internal/logger"
	"stocktrend/internal/marketdata"
	"stocktrend/internal/model"
	"stocktrend/internal/render"
)

func main() {
	symbol := flag.String("symbol", "AAPL", "Ticker symbol")
	start := flag.String("start", "2024-01-01", "First day (YYYY-MM-DD)")
	end := flag.String("end", "2025-08-30", "Last day (YYYY-MM-DD)")
	seed := flag.Int64("seed", 0, "Random seed (0 = time based)")
	days := flag.Int("days", 30, "Forecast horizon in days (1..365)")
	algo := flag.String("algorithm", "all", "Forecaster: all, ma, lr or lstm")
	format := flag.String("format", "table", "Output format: table, json or csv")
	chart := flag.String("chart", "", "Render an SVG chart instead: candlestick, heatmap, histogram or prediction")
	out := flag.String("out", "", "Output file (default stdout)")
	logLevel := flag.String("log-level", "warn", "Log level")
	flag.Parse()

	logger.Init("stockgen", logger.ParseLevel(*logLevel), "text")

	from, to, err := marketdata.ParseRange(*start, *end, marketdata.DefaultMaxRangeDays)
	if err != nil {
		fatal("bad range", err)
	}
	sym := marketdata.NormalizeSymbol(*symbol)

	svc := marketdata.NewService(marketdata.NewGenerator(*seed), marketdata.NewMemoryCache(0), nil)
	bars, err := svc.Fetch(context.Background(), sym, from, to)
	if err != nil {
		fatal("generate", err)
	}

	fs, ok := forecast.ByID(forecast.All(forecast.NewLockedRand(*seed)), *algo)
	if !ok {
		fatal("bad algorithm", fmt.Errorf("unknown algorithm %q", *algo))
	}
	horizon := min(max(*days, 1), 365)

	w := io.Writer(os.Stdout)
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			fatal("open output", err)
		}
		defer f.Close()
		w = f
	}

	if *chart != "" {
		if err := renderChart(w, *chart, sym, bars, fs, horizon); err != nil {
			fatal("render", err)
		}
		return
	}

	switch *format {
	case "json":
		err = writeJSON(w, sym, bars, fs, horizon)
	case "csv":
		err = writeCSV(w, bars)
	case "table":
		err = writeTable(w, sym, bars, fs, horizon)
	default:
		err = fmt.Errorf("unknown format %q", *format)
	}
	if err != nil {
		fatal("write", err)
	}
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

func renderChart(w io.Writer, kind, symbol string, bars []model.Bar, fs []forecast.Forecaster, days int) error {
	switch kind {
	case render.KindCandlestick:
		render.Candlestick(w, symbol, bars)
	case render.KindHeatmap:
		render.HeatmapSVG(w, symbol, bars)
	case render.KindHistogram:
		render.HistogramSVG(w, symbol, bars)
	case render.KindPrediction:
		res := forecast.RunAll(fs, bars, days)
		render.PredictionSVG(w, symbol, bars, res.Predictions, res.Algorithms)
	default:
		return fmt.Errorf("unknown chart %q", kind)
	}
	return nil
}

func writeJSON(w io.Writer, symbol string, bars []model.Bar, fs []forecast.Forecaster, days int) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Symbol   string            `json:"symbol"`
		Bars     []model.Bar       `json:"bars"`
		Summary  indicator.Summary `json:"summary"`
		Forecast forecast.Result   `json:"forecast"`
	}{symbol, bars, indicator.Summarize(bars), forecast.RunAll(fs, bars, days)})
}

func writeCSV(w io.Writer, bars []model.Bar) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{"date", "open", "high", "low", "close", "volume", "adj_close"})
	for _, b := range bars {
		cw.Write([]string{
			b.Date,
			strconv.FormatFloat(b.Open, 'f', 2, 64),
			strconv.FormatFloat(b.High, 'f', 2, 64),
			strconv.FormatFloat(b.Low, 'f', 2, 64),
			strconv.FormatFloat(b.Close, 'f', 2, 64),
			strconv.FormatInt(b.Volume, 10),
			strconv.FormatFloat(b.AdjClose, 'f', 2, 64),
		})
	}
	cw.Flush()
	return cw.Error()
}

func writeTable(w io.Writer, symbol string, bars []model.Bar, fs []forecast.Forecaster, days int) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "%s: %d bars\t\n\n", symbol, len(bars))
	fmt.Fprintln(tw, "DATE\tOPEN\tHIGH\tLOW\tCLOSE\tVOLUME\t")
	for _, b := range tail(bars, 10) {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%.2f\t%s\t\n",
			b.Date, b.Open, b.High, b.Low, b.Close, humanize.Comma(b.Volume))
	}

	s := indicator.Summarize(bars)
	fmt.Fprintln(tw, "\t")
	fmt.Fprintf(tw, "SMA20\t%s\t\n", opt(s.SMA20, "%.2f"))
	fmt.Fprintf(tw, "SMA50\t%s\t\n", opt(s.SMA50, "%.2f"))
	fmt.Fprintf(tw, "RSI14\t%s\t\n", opt(s.RSI14, "%.1f"))
	fmt.Fprintf(tw, "Volatility\t%s %s\t\n", opt(s.Volatility, "%.1f%%"), s.VolatilityLabel)
	fmt.Fprintf(tw, "Change\t%s (%s)\t\n", opt(s.PriceChange, "%+.2f"), opt(s.PriceChangePercent, "%+.2f%%"))
	if s.AvgVolume != nil {
		fmt.Fprintf(tw, "Avg volume\t%s\t\n", humanize.Comma(int64(*s.AvgVolume)))
	}

	res := forecast.RunAll(fs, bars, days)
	fmt.Fprintln(tw, "\t")
	fmt.Fprintf(tw, "Forecast (%d days, avg confidence %.0f%%)\t\n", days, res.AverageConfidence*100)
	for _, id := range res.Algorithms {
		pts := res.Predictions[id]
		if len(pts) == 0 {
			continue
		}
		lastPt := pts[len(pts)-1]
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t\n", pts[0].Algorithm, lastPt.Date, lastPt.Predicted)
	}
	return tw.Flush()
}

func tail(bars []model.Bar, n int) []model.Bar {
	if len(bars) <= n {
		return bars
	}
	return bars[len(bars)-n:]
}

func opt(v *float64, format string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf(format, *v)
}
