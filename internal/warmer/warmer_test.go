package warmer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocktrend/internal/marketdata"
	"stocktrend/internal/metrics"
	"stocktrend/internal/model"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
}

func (f *fakeFetcher) Fetch(_ context.Context, symbol string, _, _ time.Time) ([]model.Bar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, symbol)
	if f.fail[symbol] {
		return nil, errors.New("boom")
	}
	return []model.Bar{{Date: "2024-01-02"}}, nil
}

var (
	start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end   = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
)

func TestRunNow_CountsSuccesses(t *testing.T) {
	f := &fakeFetcher{fail: map[string]bool{"TSLA": true}}
	m := metrics.NewMetrics(prometheus.NewRegistry())
	w := New(context.Background(), f, []string{"AAPL", "TSLA", "NVDA"}, start, end, m)

	assert.Equal(t, 2, w.RunNow())
	assert.Equal(t, []string{"AAPL", "TSLA", "NVDA"}, f.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WarmRuns))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.WarmSymbols))
}

func TestRunNow_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &fakeFetcher{}
	w := New(ctx, f, marketdata.PopularSymbols(), start, end, nil)

	assert.Zero(t, w.RunNow())
	assert.Empty(t, f.calls)
}

func TestRunNow_FillsServiceCache(t *testing.T) {
	cache := marketdata.NewMemoryCache(marketdata.DefaultTTL)
	svc := marketdata.NewService(marketdata.NewGenerator(1), cache, nil)
	w := New(context.Background(), svc, []string{"AAPL", "MSFT"}, start, end, nil)

	require.Equal(t, 2, w.RunNow())
	assert.Equal(t, 2, cache.Len())
}

func TestRegister_InvalidSpec(t *testing.T) {
	w := New(context.Background(), &fakeFetcher{}, nil, start, end, nil)
	assert.Error(t, w.Register("not a cron"))
	assert.Error(t, w.RegisterFunc("* *", "prune", func(context.Context) error { return nil }))
	assert.NoError(t, w.Register("0 */4 * * * *"))
}

func TestScheduledJobRuns(t *testing.T) {
	ran := make(chan struct{}, 1)
	w := New(context.Background(), &fakeFetcher{}, nil, start, end, nil)
	require.NoError(t, w.RegisterFunc("* * * * * *", "tick", func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}))
	w.Start()
	defer w.Stop()

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("scheduled job did not run")
	}
}
