package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type validator interface {
	Validate() error
}

type validateCase struct {
	name   string
	config validator
	errMsg string // empty means valid
}

func runValidateCases(t *testing.T, tests []validateCase) {
	t.Helper()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.errMsg)
			}
		})
	}
}

func TestAdSourceConfigValidate(t *testing.T) {
	httpSource := func(mutate func(*AdSourceConfig)) *AdSourceConfig {
		a := &AdSourceConfig{
			Type:        AdSourceHTTP,
			URLTemplate: "http://ads.internal/{session}/{stream}-{chunk}.m4s",
			Timeout:     2 * time.Second,
		}
		if mutate != nil {
			mutate(a)
		}
		return a
	}

	runValidateCases(t, []validateCase{
		{
			name:   "dir source",
			config: &AdSourceConfig{Type: AdSourceDir, Dir: "/srv/ads", Template: "{path}"},
		},
		{
			name:   "dir source without dir",
			config: &AdSourceConfig{Type: AdSourceDir, Template: "{path}"},
			errMsg: "dir is required",
		},
		{
			name:   "dir source without template",
			config: &AdSourceConfig{Type: AdSourceDir, Dir: "/srv/ads"},
			errMsg: "template is required",
		},
		{
			name:   "http source",
			config: httpSource(nil),
		},
		{
			name:   "http source with rate limit",
			config: httpSource(func(a *AdSourceConfig) { a.RateLimit, a.Burst = 50, 10 }),
		},
		{
			name:   "http source with ftp template",
			config: httpSource(func(a *AdSourceConfig) { a.URLTemplate = "ftp://ads/{path}" }),
			errMsg: "must be an http(s) URL",
		},
		{
			name:   "http source without timeout",
			config: httpSource(func(a *AdSourceConfig) { a.Timeout = 0 }),
			errMsg: "timeout must be positive",
		},
		{
			name:   "rate limit without burst",
			config: httpSource(func(a *AdSourceConfig) { a.RateLimit = 5 }),
			errMsg: "burst must be positive",
		},
		{
			name:   "negative cache ttl",
			config: httpSource(func(a *AdSourceConfig) { a.CacheTTL = -time.Second }),
			errMsg: "cache_ttl cannot be negative",
		},
		{
			name:   "negative max bytes",
			config: httpSource(func(a *AdSourceConfig) { a.MaxBytes = -1 }),
			errMsg: "max_bytes cannot be negative",
		},
		{
			name:   "unknown type",
			config: &AdSourceConfig{Type: "s3"},
			errMsg: `invalid type: "s3"`,
		},
	})
}

func TestAllowListConfigValidate(t *testing.T) {
	runValidateCases(t, []validateCase{
		{
			name:   "static with clients",
			config: &AllowListConfig{Source: AllowListStatic, Clients: []string{"10.0.0.1"}},
		},
		{
			name:   "static and empty",
			config: &AllowListConfig{Source: AllowListStatic},
		},
		{
			name:   "redis",
			config: &AllowListConfig{Source: AllowListRedis, Key: "adsplice:clients", RefreshInterval: 30 * time.Second},
		},
		{
			name:   "redis without refresh interval",
			config: &AllowListConfig{Source: AllowListRedis, Key: "adsplice:clients"},
			errMsg: "refresh_interval must be positive",
		},
		{
			name:   "unknown source",
			config: &AllowListConfig{Source: "file"},
			errMsg: "must be static or redis",
		},
	})
}

func TestCycleConfigValidate(t *testing.T) {
	runValidateCases(t, []validateCase{
		{
			name:   "defaults",
			config: &CycleConfig{PoolSize: 10, Stride: 1},
		},
		{
			name:   "negative offset",
			config: &CycleConfig{PoolBase: 38304768, PoolSize: 4, Stride: 2, TargetOffset: -5},
		},
		{
			name:   "empty pool",
			config: &CycleConfig{Stride: 1},
			errMsg: "pool_size must be positive",
		},
		{
			name:   "pool past the end of the sequence space",
			config: &CycleConfig{PoolBase: ^uint64(0) - 1, PoolSize: 4, Stride: 1},
			errMsg: "leaves no room",
		},
	})
}

func TestRedisConfigValidate(t *testing.T) {
	runValidateCases(t, []validateCase{
		{
			name:   "valid",
			config: &RedisConfig{Addresses: []string{"localhost:6379"}, MaxRetries: 3, PoolSize: 20, MinIdleConns: 2},
		},
		{
			name:   "missing addresses",
			config: &RedisConfig{PoolSize: 20},
			errMsg: "at least one Redis address is required",
		},
		{
			name:   "negative DB",
			config: &RedisConfig{Addresses: []string{"localhost:6379"}, DB: -1, PoolSize: 20},
			errMsg: "invalid Redis database number",
		},
		{
			name:   "idle connections exceed pool",
			config: &RedisConfig{Addresses: []string{"localhost:6379"}, PoolSize: 2, MinIdleConns: 5},
			errMsg: "min_idle_conns cannot be greater than pool_size",
		},
	})
}

func TestLoggingConfigValidate(t *testing.T) {
	runValidateCases(t, []validateCase{
		{
			name:   "stdout json",
			config: &LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
		},
		{
			name:   "rotated file",
			config: &LoggingConfig{Level: "debug", Format: "text", Output: "/var/log/adsplice.log", MaxSize: 100},
		},
		{
			name:   "unknown level",
			config: &LoggingConfig{Level: "loud", Format: "json", Output: "stdout"},
			errMsg: "invalid log level",
		},
		{
			name:   "unknown format",
			config: &LoggingConfig{Level: "info", Format: "xml", Output: "stdout"},
			errMsg: "log format must be 'json' or 'text'",
		},
		{
			name:   "file output without max size",
			config: &LoggingConfig{Level: "info", Format: "json", Output: "/var/log/adsplice.log"},
			errMsg: "max_size must be positive for file output",
		},
	})
}

func TestMetricsConfigValidate(t *testing.T) {
	runValidateCases(t, []validateCase{
		{
			name:   "enabled",
			config: &MetricsConfig{Enabled: true, Path: "/metrics", Port: 9090},
		},
		{
			name:   "disabled ignores port",
			config: &MetricsConfig{},
		},
		{
			name:   "port out of range",
			config: &MetricsConfig{Enabled: true, Path: "/metrics", Port: 70000},
			errMsg: "invalid metrics port",
		},
		{
			name:   "relative path",
			config: &MetricsConfig{Enabled: true, Path: "metrics", Port: 9090},
			errMsg: "metrics path must start with /",
		},
	})
}
