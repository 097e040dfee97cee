package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"stocktrend/internal/logger"
	"stocktrend/internal/marketdata"
	"stocktrend/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// series resolves {symbol} and the start/end query and fetches the bars.
// On failure it has already written the response.
func (s *Server) series(w http.ResponseWriter, r *http.Request) (string, []model.Bar, bool) {
	symbol := marketdata.NormalizeSymbol(r.PathValue("symbol"))
	if symbol == "" {
		symbol = marketdata.NormalizeSymbol(r.URL.Query().Get("symbol"))
	}
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return "", nil, false
	}

	startStr := queryOr(r, "start", s.opts.DefaultStart)
	endStr := queryOr(r, "end", s.opts.DefaultEnd)
	start, end, err := marketdata.ParseRange(startStr, endStr, s.opts.MaxRangeDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", nil, false
	}

	bars, err := s.data.Fetch(r.Context(), symbol, start, end)
	if err != nil {
		slog.Error("fetch failed", append(logger.LogWithTrace(r.Context()), "symbol", symbol, "error", err)...)
		writeError(w, http.StatusInternalServerError, marketdata.ErrFetchFailed.Error())
		return "", nil, false
	}
	return symbol, bars, true
}

func queryOr(r *http.Request, key, def string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return def
}

var errBadDays = errors.New("days must be an integer between 1 and 365")

// parseDays reads the forecast horizon. Out-of-range values are clamped;
// non-numeric values are rejected.
func parseDays(r *http.Request, def int) (int, error) {
	v := r.URL.Query().Get("days")
	if v == "" {
		return min(max(def, 1), MaxForecastDays), nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errBadDays
	}
	return min(max(n, 1), MaxForecastDays), nil
}

// clientID returns the browser's sp_client cookie, issuing one if absent.
func clientID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(clientCookie); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     clientCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(365 * 24 * time.Hour),
	})
	return id
}
