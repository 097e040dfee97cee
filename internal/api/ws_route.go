package api

import (
	"net/http"
	"strconv"

	"stocktrend/internal/stream"
)

// handleWS replays ?symbol over a WebSocket at ?speed bars per second.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	speed := s.opts.StreamSpeed
	if speed <= 0 {
		speed = stream.DefaultSpeed
	}
	if v := r.URL.Query().Get("speed"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			writeError(w, http.StatusBadRequest, "speed must be a positive number")
			return
		}
		speed = f
	}
	speed = min(speed, stream.MaxSpeed)

	symbol, bars, ok := s.series(w, r)
	if !ok {
		return
	}
	s.hub.Serve(w, r, symbol, bars, speed)
}
