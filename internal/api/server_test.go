package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocktrend/internal/forecast"
	"stocktrend/internal/indicator"
	"stocktrend/internal/marketdata"
	"stocktrend/internal/metrics"
	"stocktrend/internal/model"
	"stocktrend/internal/session"
	"stocktrend/internal/stream"
)

const shortRange = "start=2024-01-01&end=2024-03-31"

func testOptions() Options {
	return Options{
		Addr:            ":0",
		CORSAllowOrigin: "*",
		DefaultStart:    "2024-01-01",
		DefaultEnd:      "2024-06-28",
		MaxRangeDays:    marketdata.DefaultMaxRangeDays,
		ForecastDays:    30,
		StreamSpeed:     stream.MaxSpeed,
	}
}

func newTestServer(t *testing.T, opts Options) (*Server, *metrics.Metrics) {
	t.Helper()
	m := metrics.NewMetrics(prometheus.NewRegistry())
	data := marketdata.NewService(marketdata.NewGenerator(42), marketdata.NewMemoryCache(marketdata.DefaultTTL), m)
	sessions := session.NewManager(session.NewMemoryStorage(), 0, m)
	srv := NewServer(opts, data, forecast.All(forecast.NewLockedRand(7)), sessions, stream.NewHub(m), m)
	return srv, m
}

func do(t *testing.T, h http.Handler, method, target string, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, testOptions())
	rr := do(t, srv.Handler(), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	decode(t, rr, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "memory", body["cache"])
	assert.NotEmpty(t, rr.Header().Get("X-Trace-ID"))
}

func TestTraceIDIsEchoed(t *testing.T) {
	srv, _ := newTestServer(t, testOptions())
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Trace-ID", "trace-123")
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	assert.Equal(t, "trace-123", rr.Header().Get("X-Trace-ID"))
}

func TestSymbols(t *testing.T) {
	srv, _ := newTestServer(t, testOptions())
	rr := do(t, srv.Handler(), http.MethodGet, "/v1/symbols", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Symbols []string `json:"symbols"`
	}
	decode(t, rr, &body)
	assert.Equal(t, marketdata.PopularSymbols(), body.Symbols)
}

func TestBars_DefaultRange(t *testing.T) {
	srv, _ := newTestServer(t, testOptions())
	rr := do(t, srv.Handler(), http.MethodGet, "/v1/stocks/aapl", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body barsResponse
	decode(t, rr, &body)
	assert.Equal(t, "AAPL", body.Symbol)
	assert.Equal(t, "2024-01-01", body.Start)
	assert.Equal(t, "2024-01-01", body.Bars[0].Date)
	assert.Equal(t, "2024-06-28", body.Bars[len(body.Bars)-1].Date)
	assert.Equal(t, len(body.Bars), body.Count)
}

func TestBars_CachedWithinTTL(t *testing.T) {
	srv, m := newTestServer(t, testOptions())
	first := do(t, srv.Handler(), http.MethodGet, "/v1/stocks/MSFT?"+shortRange, "")
	second := do(t, srv.Handler(), http.MethodGet, "/v1/stocks/MSFT?"+shortRange, "")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHits.WithLabelValues("memory")))
}

func TestBars_InvalidRange(t *testing.T) {
	srv, _ := newTestServer(t, testOptions())
	cases := []string{
		"/v1/stocks/AAPL?start=2024-13-01",
		"/v1/stocks/AAPL?start=2024-03-01&end=2024-01-01",
		"/v1/stocks/AAPL?start=1900-01-01&end=2024-01-01",
	}
	for _, target := range cases {
		rr := do(t, srv.Handler(), http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code, target)

		var body map[string]string
		decode(t, rr, &body)
		assert.Contains(t, body["error"], "invalid date range", target)
	}
}

func TestIndicators(t *testing.T) {
	srv, _ := newTestServer(t, testOptions())
	rr := do(t, srv.Handler(), http.MethodGet, "/v1/stocks/AAPL/indicators?"+shortRange, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body indicatorsResponse
	decode(t, rr, &body)
	n := len(body.Dates)
	require.Equal(t, n, body.Summary.Bars)
	assert.Len(t, body.SMA20, n-19)
	assert.Len(t, body.SMA50, n-49)
	assert.Len(t, body.RSI14, n-14)
	require.NotNil(t, body.Summary.SMA20)
	assert.InDelta(t, body.SMA20[len(body.SMA20)-1], *body.Summary.SMA20, 1e-9)
}

func TestIndicators_ShortHistoryHasNulls(t *testing.T) {
	srv, _ := newTestServer(t, testOptions())
	rr := do(t, srv.Handler(), http.MethodGet, "/v1/stocks/AAPL/indicators?start=2024-01-01&end=2024-01-05", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"sma20":null`)
	assert.Contains(t, rr.Body.String(), `"rsi14":[]`)

	var body struct {
		Summary indicator.Summary `json:"summary"`
	}
	decode(t, rr, &body)
	assert.Nil(t, body.Summary.SMA50)
	assert.NotNil(t, body.Summary.LastClose)
}

func TestForecast_All(t *testing.T) {
	srv, m := newTestServer(t, testOptions())
	rr := do(t, srv.Handler(), http.MethodGet, "/v1/stocks/TSLA/forecast?days=10&"+shortRange, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body forecastResponse
	decode(t, rr, &body)
	assert.Equal(t, 10, body.Days)
	assert.Equal(t, []string{"ma", "lr", "lstm"}, body.Algorithms)
	for _, id := range body.Algorithms {
		pts := body.Predictions[id]
		require.Len(t, pts, 10, id)
		assert.Equal(t, "2024-03-30", pts[0].Date, id) // last bar is Friday 2024-03-29
	}
	assert.Greater(t, body.AverageConfidence, 0.5)
	assert.LessOrEqual(t, body.AverageConfidence, 1.0)
	require.NotNil(t, body.LastClose)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ForecastsTotal.WithLabelValues("lstm")))
}

func TestForecast_SingleAlgorithmAndClamp(t *testing.T) {
	srv, _ := newTestServer(t, testOptions())
	rr := do(t, srv.Handler(), http.MethodGet, "/v1/stocks/TSLA/forecast?algorithm=lr&days=1000&"+shortRange, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body forecastResponse
	decode(t, rr, &body)
	assert.Equal(t, MaxForecastDays, body.Days)
	assert.Equal(t, []string{"lr"}, body.Algorithms)
	assert.Len(t, body.Predictions["lr"], MaxForecastDays)

	rr = do(t, srv.Handler(), http.MethodGet, "/v1/stocks/TSLA/forecast?days=0&"+shortRange, "")
	require.Equal(t, http.StatusOK, rr.Code)
	decode(t, rr, &body)
	assert.Equal(t, 1, body.Days)
}

func TestForecast_BadInput(t *testing.T) {
	srv, _ := newTestServer(t, testOptions())
	for _, q := range []string{"algorithm=arima", "days=soon"} {
		rr := do(t, srv.Handler(), http.MethodGet, "/v1/stocks/TSLA/forecast?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code, q)
	}
}

func TestReturnsData(t *testing.T) {
	srv, _ := newTestServer(t, testOptions())

	rr := do(t, srv.Handler(), http.MethodGet, "/v1/stocks/NVDA/returns/heatmap?"+shortRange, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"heatmap"`)

	rr = do(t, srv.Handler(), http.MethodGet, "/v1/stocks/NVDA/returns/histogram?"+shortRange, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Histogram struct {
			Bins  []json.RawMessage `json:"bins"`
			Count int               `json:"count"`
		} `json:"histogram"`
	}
	decode(t, rr, &body)
	assert.Len(t, body.Histogram.Bins, 20)
	assert.Greater(t, body.Histogram.Count, 0)
}

func TestCharts(t *testing.T) {
	srv, m := newTestServer(t, testOptions())
	for _, kind := range []string{"candlestick", "heatmap", "histogram", "prediction"} {
		rr := do(t, srv.Handler(), http.MethodGet, "/v1/stocks/AMZN/charts/"+kind+"?"+shortRange, "")
		require.Equal(t, http.StatusOK, rr.Code, kind)
		assert.Equal(t, "image/svg+xml", rr.Header().Get("Content-Type"), kind)
		assert.Contains(t, rr.Body.String(), "<svg", kind)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.ChartsRendered.WithLabelValues(kind)), kind)
	}
}

func TestCharts_EmptyRangeRendersPlaceholder(t *testing.T) {
	srv, _ := newTestServer(t, testOptions())
	// A weekend has no bars.
	rr := do(t, srv.Handler(), http.MethodGet, "/v1/stocks/AMZN/charts/candlestick?start=2024-01-06&end=2024-01-07", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "No data available")
}

func TestCharts_UnknownKind(t *testing.T) {
	srv, _ := newTestServer(t, testOptions())
	rr := do(t, srv.Handler(), http.MethodGet, "/v1/stocks/AMZN/charts/pie", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAuth_LoginMeLogout(t *testing.T) {
	srv, m := newTestServer(t, testOptions())
	h := srv.Handler()

	rr := do(t, h, http.MethodPost, "/v1/auth/login", `{"email":"jane@example.com","password":"x"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, clientCookie, cookies[0].Name)

	var st session.State
	decode(t, rr, &st)
	require.True(t, st.IsAuthenticated)
	assert.Equal(t, "jane@example.com", st.User.Email)
	assert.Equal(t, "jane", st.User.Name)

	rr = do(t, h, http.MethodGet, "/v1/auth/me", "", cookies...)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Result().Cookies(), "existing client cookie must be reused")
	var me session.State
	decode(t, rr, &me)
	assert.True(t, me.IsAuthenticated)
	assert.Equal(t, st.User.ID, me.User.ID)

	rr = do(t, h, http.MethodPost, "/v1/auth/logout", "", cookies...)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, h, http.MethodGet, "/v1/auth/me", "", cookies...)
	decode(t, rr, &me)
	assert.False(t, me.IsAuthenticated)
	assert.Nil(t, me.User)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionOps.WithLabelValues("login")))
}

func TestAuth_ClientsAreIsolated(t *testing.T) {
	srv, _ := newTestServer(t, testOptions())
	h := srv.Handler()

	rr := do(t, h, http.MethodPost, "/v1/auth/signup", `{"email":"a@b.c","password":"p","name":"Ann"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var st session.State
	decode(t, rr, &st)
	assert.Equal(t, "Ann", st.User.Name)

	other := &http.Cookie{Name: clientCookie, Value: "someone-else"}
	rr = do(t, h, http.MethodGet, "/v1/auth/me", "", other)
	var me session.State
	decode(t, rr, &me)
	assert.False(t, me.IsAuthenticated)
}

func TestAuth_InvalidBody(t *testing.T) {
	srv, _ := newTestServer(t, testOptions())
	rr := do(t, srv.Handler(), http.MethodPost, "/v1/auth/login", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAuth_EmptyBodyAccepted(t *testing.T) {
	srv, _ := newTestServer(t, testOptions())
	rr := do(t, srv.Handler(), http.MethodPost, "/v1/auth/login", "")
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestCORSPreflight(t *testing.T) {
	opts := testOptions()
	opts.CORSAllowOrigin = "http://localhost:5173"
	srv, _ := newTestServer(t, opts)

	rr := do(t, srv.Handler(), http.MethodOptions, "/v1/stocks/AAPL", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRateLimit(t *testing.T) {
	opts := testOptions()
	opts.RateLimit = 0.001
	opts.RateBurst = 1
	srv, _ := newTestServer(t, opts)
	h := srv.Handler()

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/v1/symbols", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, h, http.MethodGet, "/v1/symbols", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "").Code)
}

func TestRequestMetrics(t *testing.T) {
	srv, m := newTestServer(t, testOptions())
	do(t, srv.Handler(), http.MethodGet, "/v1/stocks/AAPL?start=bad", "")
	do(t, srv.Handler(), http.MethodGet, "/v1/symbols", "")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET /v1/stocks/{symbol}", "400")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET /v1/symbols", "200")))
}

func TestWebSocketReplay(t *testing.T) {
	srv, _ := newTestServer(t, testOptions())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?symbol=meta&start=2024-01-01&end=2024-01-12&speed=1000"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var bars []model.Bar
	for {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)

		var f stream.Frame
		require.NoError(t, json.Unmarshal(msg, &f))
		assert.Equal(t, "META", f.Symbol)
		if f.Type == stream.FrameDone {
			assert.Equal(t, 10, f.Total)
			break
		}
		require.Equal(t, stream.FrameBar, f.Type)
		bars = append(bars, *f.Bar)
	}
	require.Len(t, bars, 10)
	assert.Equal(t, "2024-01-12", bars[9].Date)
}

func TestWebSocket_BadSpeed(t *testing.T) {
	srv, _ := newTestServer(t, testOptions())
	rr := do(t, srv.Handler(), http.MethodGet, "/ws?symbol=AAPL&speed=-1", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
