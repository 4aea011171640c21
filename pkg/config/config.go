package config

import (
	"os"
	"time"

	"SearchMapper/pkg/logger"

	"github.com/spf13/cast"
)

// Config holds process-level settings for the mapping service.
type Config struct {
	Log logger.LogConfig

	DefaultAnalyzer string `env:"MAPPER_DEFAULT_ANALYZER"`

	StoreDriver string `env:"MAPPER_STORE_DRIVER"`
	StoreDSN    string `env:"MAPPER_STORE_DSN"`

	PlanCache     string        `env:"MAPPER_PLAN_CACHE"`
	PlanCacheSize int           `env:"MAPPER_PLAN_CACHE_SIZE"`
	PlanCacheTTL  time.Duration `env:"MAPPER_PLAN_CACHE_TTL"`

	MetricsEnabled bool `env:"MAPPER_METRICS_ENABLED"`

	// cron spec for reloading the schema from the store
	RefreshSchedule string `env:"MAPPER_REFRESH_SCHEDULE"`
}

var GlobalConfig *Config

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Log:             logger.LogConfig{Level: "info"},
		DefaultAnalyzer: "standard",
		StoreDriver:     "sqlite",
		PlanCache:       "lru",
		PlanCacheSize:   1024,
		PlanCacheTTL:    10 * time.Minute,
		MetricsEnabled:  true,
		RefreshSchedule: "@every 30s",
	}
}

// Load reads the process environment into GlobalConfig.
func Load() error {
	GlobalConfig = FromLookup(os.LookupEnv)
	return nil
}

// FromMap builds a Config from an explicit key/value set, mainly for tests.
func FromMap(env map[string]string) *Config {
	return FromLookup(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
}

// FromLookup builds a Config from lookup, keeping defaults for unset keys.
func FromLookup(lookup func(string) (string, bool)) *Config {
	cfg := Defaults()

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			if n, err := cast.ToIntE(v); err == nil {
				*dst = n
			}
		}
	}

	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FILENAME", &cfg.Log.Filename)
	num("LOG_MAX_SIZE", &cfg.Log.MaxSize)
	num("LOG_MAX_AGE", &cfg.Log.MaxAge)
	num("LOG_MAX_BACKUPS", &cfg.Log.MaxBackups)

	str("MAPPER_DEFAULT_ANALYZER", &cfg.DefaultAnalyzer)
	str("MAPPER_STORE_DRIVER", &cfg.StoreDriver)
	str("MAPPER_STORE_DSN", &cfg.StoreDSN)
	str("MAPPER_PLAN_CACHE", &cfg.PlanCache)
	num("MAPPER_PLAN_CACHE_SIZE", &cfg.PlanCacheSize)
	str("MAPPER_REFRESH_SCHEDULE", &cfg.RefreshSchedule)

	if v, ok := lookup("MAPPER_PLAN_CACHE_TTL"); ok && v != "" {
		if d, err := cast.ToDurationE(v); err == nil {
			cfg.PlanCacheTTL = d
		}
	}
	if v, ok := lookup("MAPPER_METRICS_ENABLED"); ok && v != "" {
		if b, err := cast.ToBoolE(v); err == nil {
			cfg.MetricsEnabled = b
		}
	}
	return cfg
}
