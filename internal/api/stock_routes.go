package api

import (
	"net/http"
	"time"

	"stocktrend/internal/forecast"
	"stocktrend/internal/indicator"
	"stocktrend/internal/marketdata"
	"stocktrend/internal/model"
	"stocktrend/internal/render"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"cache":     s.data.CacheName(),
		"wsClients": s.hub.ClientCount(),
		"time":      time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"symbols":      marketdata.PopularSymbols(),
		"defaultStart": s.opts.DefaultStart,
		"defaultEnd":   s.opts.DefaultEnd,
	})
}

type barsResponse struct {
	Symbol string      `json:"symbol"`
	Start  string      `json:"start"`
	End    string      `json:"end"`
	Count  int         `json:"count"`
	Bars   []model.Bar `json:"bars"`
}

func (s *Server) handleBars(w http.ResponseWriter, r *http.Request) {
	symbol, bars, ok := s.series(w, r)
	if !ok {
		return
	}
	if bars == nil {
		bars = []model.Bar{}
	}
	writeJSON(w, http.StatusOK, barsResponse{
		Symbol: symbol,
		Start:  queryOr(r, "start", s.opts.DefaultStart),
		End:    queryOr(r, "end", s.opts.DefaultEnd),
		Count:  len(bars),
		Bars:   bars,
	})
}

type indicatorsResponse struct {
	Symbol  string            `json:"symbol"`
	Summary indicator.Summary `json:"summary"`
	Dates   []string          `json:"dates"`
	SMA20   []float64         `json:"sma20"`
	SMA50   []float64         `json:"sma50"`
	EMA20   []float64         `json:"ema20"`
	RSI14   []float64         `json:"rsi14"`
}

// handleIndicators returns the summary plus full series. Series are aligned
// to the end of dates: sma20[i] belongs to dates[len(dates)-len(sma20)+i].
func (s *Server) handleIndicators(w http.ResponseWriter, r *http.Request) {
	symbol, bars, ok := s.series(w, r)
	if !ok {
		return
	}
	closes := model.Closes(bars)
	dates := make([]string, len(bars))
	for i, b := range bars {
		dates[i] = b.Date
	}
	writeJSON(w, http.StatusOK, indicatorsResponse{
		Symbol:  symbol,
		Summary: indicator.Summarize(bars),
		Dates:   dates,
		SMA20:   nonNil(indicator.SMASeries(closes, 20)),
		SMA50:   nonNil(indicator.SMASeries(closes, 50)),
		EMA20:   nonNil(indicator.EMASeries(closes, 20)),
		RSI14:   nonNil(indicator.RSISeries(closes, 14)),
	})
}

func nonNil(xs []float64) []float64 {
	if xs == nil {
		return []float64{}
	}
	return xs
}

type forecastResponse struct {
	Symbol    string   `json:"symbol"`
	Days      int      `json:"days"`
	LastClose *float64 `json:"lastClose"`
	forecast.Result
}

// forecasts runs the algorithm selected by ?algorithm over bars.
func (s *Server) forecasts(w http.ResponseWriter, r *http.Request, bars []model.Bar) (forecast.Result, int, bool) {
	days, err := parseDays(r, s.opts.ForecastDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return forecast.Result{}, 0, false
	}
	algo := r.URL.Query().Get("algorithm")
	fs, ok := forecast.ByID(s.forecasters, algo)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown algorithm: "+algo)
		return forecast.Result{}, 0, false
	}
	res := forecast.RunAll(fs, bars, days)
	if s.metrics != nil {
		for _, id := range res.Algorithms {
			s.metrics.ForecastsTotal.WithLabelValues(id).Inc()
		}
	}
	return res, days, true
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	symbol, bars, ok := s.series(w, r)
	if !ok {
		return
	}
	res, days, ok := s.forecasts(w, r, bars)
	if !ok {
		return
	}
	resp := forecastResponse{Symbol: symbol, Days: days, Result: res}
	if n := len(bars); n > 0 {
		c := bars[n-1].Close
		resp.LastClose = &c
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	symbol, bars, ok := s.series(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":  symbol,
		"heatmap": render.HeatmapData(bars),
	})
}

func (s *Server) handleHistogram(w http.ResponseWriter, r *http.Request) {
	symbol, bars, ok := s.series(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":    symbol,
		"histogram": render.HistogramData(bars),
	})
}
