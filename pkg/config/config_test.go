package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	cfg := FromMap(nil)
	assert.Equal(t, "standard", cfg.DefaultAnalyzer)
	assert.Equal(t, "lru", cfg.PlanCache)
	assert.Equal(t, 1024, cfg.PlanCacheSize)
	assert.Equal(t, 10*time.Minute, cfg.PlanCacheTTL)
	assert.True(t, cfg.MetricsEnabled)
	assert.Equal(t, "@every 30s", cfg.RefreshSchedule)
}

func TestFromMap(t *testing.T) {
	cfg := FromMap(map[string]string{
		"LOG_LEVEL":               "debug",
		"LOG_MAX_SIZE":            "50",
		"MAPPER_DEFAULT_ANALYZER": "whitespace",
		"MAPPER_STORE_DSN":        "file::memory:",
		"MAPPER_PLAN_CACHE":       "gocache",
		"MAPPER_PLAN_CACHE_SIZE":  "16",
		"MAPPER_PLAN_CACHE_TTL":   "30s",
		"MAPPER_METRICS_ENABLED":  "false",
		"MAPPER_REFRESH_SCHEDULE": "@hourly",
	})
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 50, cfg.Log.MaxSize)
	assert.Equal(t, "whitespace", cfg.DefaultAnalyzer)
	assert.Equal(t, "file::memory:", cfg.StoreDSN)
	assert.Equal(t, "gocache", cfg.PlanCache)
	assert.Equal(t, 16, cfg.PlanCacheSize)
	assert.Equal(t, 30*time.Second, cfg.PlanCacheTTL)
	assert.False(t, cfg.MetricsEnabled)
	assert.Equal(t, "@hourly", cfg.RefreshSchedule)
}

func TestFromMapIgnoresMalformedNumbers(t *testing.T) {
	cfg := FromMap(map[string]string{"MAPPER_PLAN_CACHE_SIZE": "many"})
	assert.Equal(t, 1024, cfg.PlanCacheSize)
}
