package api

import (
	"bytes"
	"net/http"

	"stocktrend/internal/render"
)

// handleChart renders one of render.Kinds as SVG.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	kind := r.PathValue("kind")
	switch kind {
	case render.KindCandlestick, render.KindHeatmap, render.KindHistogram, render.KindPrediction:
	default:
		writeError(w, http.StatusNotFound, "unknown chart kind: "+kind)
		return
	}

	symbol, bars, ok := s.series(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	switch kind {
	case render.KindCandlestick:
		render.Candlestick(&buf, symbol, bars)
	case render.KindHeatmap:
		render.HeatmapSVG(&buf, symbol, bars)
	case render.KindHistogram:
		render.HistogramSVG(&buf, symbol, bars)
	case render.KindPrediction:
		res, _, ok := s.forecasts(w, r, bars)
		if !ok {
			return
		}
		render.PredictionSVG(&buf, symbol, bars, res.Predictions, res.Algorithms)
	}

	if s.metrics != nil {
		s.metrics.ChartsRendered.WithLabelValues(kind).Inc()
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
