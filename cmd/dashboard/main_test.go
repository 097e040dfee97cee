package main

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"stocktrend/config"
	"stocktrend/internal/metrics"
)

func TestOpenCache_Memory(t *testing.T) {
	cfg := config.Default()
	cache, rdb := openCache(context.Background(), cfg, metrics.NewMetrics(prometheus.NewRegistry()))
	assert.Equal(t, config.BackendMemory, cache.Name())
	assert.Nil(t, rdb)
}

func TestOpenCache_UnreachableRedisFallsBackToMemory(t *testing.T) {
	cfg := config.Default()
	cfg.Data.CacheBackend = config.BackendRedis
	cfg.Redis.Addr = "127.0.0.1:1"

	cache, rdb := openCache(context.Background(), cfg, metrics.NewMetrics(prometheus.NewRegistry()))
	assert.Equal(t, "memory", cache.Name())
	assert.Nil(t, rdb)

	health := metrics.NewHealthStatus(cache.Name(), cfg.Session.Backend)
	assert.Equal(t, "memory", health.CacheBackend)
}
