package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/zsiec/adsplice/internal/adsource"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Splice  SpliceConfig  `mapstructure:"splice"`
}

type ServerConfig struct {
	// Plain HTTP listener, the usual target of a CDN origin
	HTTPPort        int           `mapstructure:"http_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// HTTP/3 listener
	EnableHTTP3        bool          `mapstructure:"enable_http3"`
	HTTP3Port          int           `mapstructure:"http3_port"`
	TLSCertFile        string        `mapstructure:"tls_cert_file"`
	TLSKeyFile         string        `mapstructure:"tls_key_file"`
	MaxIncomingStreams int64         `mapstructure:"max_incoming_streams"`
	MaxIdleTimeout     time.Duration `mapstructure:"max_idle_timeout"`

	// Client identity is taken from X-Forwarded-For / X-Real-IP when set
	TrustForwardedHeaders bool  `mapstructure:"trust_forwarded_headers"`
	MaxUploadBytes        int64 `mapstructure:"max_upload_bytes"`
	DebugEndpoints        bool  `mapstructure:"debug_endpoints"`
}

type RedisConfig struct {
	Addresses    []string      `mapstructure:"addresses"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	MaxRetries   int           `mapstructure:"max_retries"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`   // json or text
	Output     string `mapstructure:"output"`   // stdout, stderr, or file path
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	Port    int    `mapstructure:"port"`
}

type SpliceConfig struct {
	Cadence   uint64          `mapstructure:"cadence"`
	AdSession string          `mapstructure:"ad_session"` // session directory of ad asset paths
	AllowList AllowListConfig `mapstructure:"allow_list"`
	Cycle     CycleConfig     `mapstructure:"cycle"`
	AdSource  AdSourceConfig  `mapstructure:"ad_source"`

	// Verify re-decodes patched fragments with mp4ff before serving
	Verify bool `mapstructure:"verify"`

	// Non-substituted and failed requests are proxied here; empty means 404
	OriginURL        string `mapstructure:"origin_url"`
	FallbackToOrigin bool   `mapstructure:"fallback_to_origin"`
}

const (
	AllowListStatic = "static"
	AllowListRedis  = "redis"

	AdSourceDir  = "dir"
	AdSourceHTTP = "http"
)

type AllowListConfig struct {
	Source          string        `mapstructure:"source"` // static or redis
	Clients         []string      `mapstructure:"clients"`
	Key             string        `mapstructure:"key"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

type CycleConfig struct {
	PoolBase     uint64 `mapstructure:"pool_base"`
	PoolSize     uint64 `mapstructure:"pool_size"`
	Stride       uint64 `mapstructure:"stride"`
	TargetOffset int64  `mapstructure:"target_offset"`
}

type AdSourceConfig struct {
	Type        string        `mapstructure:"type"` // dir or http
	Dir         string        `mapstructure:"dir"`
	Template    string        `mapstructure:"template"`
	URLTemplate string        `mapstructure:"url_template"`
	Timeout     time.Duration `mapstructure:"timeout"`
	RateLimit   float64       `mapstructure:"rate_limit"` // requests/sec, 0 = unlimited
	Burst       int           `mapstructure:"burst"`
	MaxBytes    int64         `mapstructure:"max_bytes"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"` // 0 disables the cache
}

// Load reads configPath and applies ADSPLICE_* environment overrides, e.g.
// ADSPLICE_SPLICE_CADENCE=5 or ADSPLICE_SPLICE_ALLOW_LIST_CLIENTS=1.2.3.4,5.6.7.8.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(configPath)

	// Environment variable override
	v.SetEnvPrefix("ADSPLICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hooks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Splice.AllowList.Clients = trimEntries(cfg.Splice.AllowList.Clients)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.enable_http3", false)
	v.SetDefault("server.http3_port", 443)
	v.SetDefault("server.max_incoming_streams", 5000)
	v.SetDefault("server.max_idle_timeout", "30s")
	v.SetDefault("server.trust_forwarded_headers", true)
	v.SetDefault("server.max_upload_bytes", 32<<20) // 32MB
	v.SetDefault("server.debug_endpoints", false)

	// Redis defaults
	v.SetDefault("redis.addresses", []string{"localhost:6379"})
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")
	v.SetDefault("redis.pool_size", 100)
	v.SetDefault("redis.min_idle_conns", 10)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age", 30)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.port", 9090)

	// Splice defaults
	v.SetDefault("splice.cadence", 20)
	v.SetDefault("splice.ad_session", "")
	v.SetDefault("splice.allow_list.source", AllowListStatic)
	v.SetDefault("splice.allow_list.clients", []string{})
	v.SetDefault("splice.allow_list.key", "adsplice:allow_list")
	v.SetDefault("splice.allow_list.refresh_interval", "30s")
	v.SetDefault("splice.cycle.pool_size", 10)
	v.SetDefault("splice.cycle.stride", 1)
	v.SetDefault("splice.cycle.target_offset", 0)
	v.SetDefault("splice.ad_source.type", AdSourceDir)
	v.SetDefault("splice.ad_source.dir", "assets")
	v.SetDefault("splice.ad_source.template", adsource.DefaultTemplate)
	v.SetDefault("splice.ad_source.timeout", "5s")
	v.SetDefault("splice.ad_source.rate_limit", 0)
	v.SetDefault("splice.ad_source.burst", 10)
	v.SetDefault("splice.ad_source.max_bytes", 32<<20)
	v.SetDefault("splice.ad_source.cache_ttl", "5m")
	v.SetDefault("splice.verify", true)
	v.SetDefault("splice.fallback_to_origin", true)
}

func trimEntries(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
