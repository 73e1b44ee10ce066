package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/zsiec/adsplice/internal/decision"
)

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	// Redis is only dialed for the redis allow-list
	if c.Splice.AllowList.Source == AllowListRedis {
		if err := c.Redis.Validate(); err != nil {
			return fmt.Errorf("redis config: %w", err)
		}
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}

	if err := c.Splice.Validate(); err != nil {
		return fmt.Errorf("splice config: %w", err)
	}

	return nil
}

func (s *ServerConfig) Validate() error {
	if s.HTTPPort < 1 || s.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", s.HTTPPort)
	}

	if s.MaxUploadBytes <= 0 {
		return errors.New("max_upload_bytes must be positive")
	}

	if !s.EnableHTTP3 {
		return nil
	}

	if s.HTTP3Port < 1 || s.HTTP3Port > 65535 {
		return fmt.Errorf("invalid HTTP3 port: %d", s.HTTP3Port)
	}

	if s.TLSCertFile == "" {
		return errors.New("TLS certificate file is required")
	}

	if s.TLSKeyFile == "" {
		return errors.New("TLS key file is required")
	}

	// Check if certificate files exist
	if _, err := os.Stat(s.TLSCertFile); os.IsNotExist(err) {
		return fmt.Errorf("TLS certificate file not found: %s", s.TLSCertFile)
	}

	if _, err := os.Stat(s.TLSKeyFile); os.IsNotExist(err) {
		return fmt.Errorf("TLS key file not found: %s", s.TLSKeyFile)
	}

	if s.MaxIncomingStreams <= 0 {
		return errors.New("max_incoming_streams must be positive")
	}

	return nil
}

func (r *RedisConfig) Validate() error {
	if len(r.Addresses) == 0 {
		return errors.New("at least one Redis address is required")
	}

	if r.DB < 0 {
		return fmt.Errorf("invalid Redis database number: %d", r.DB)
	}

	if r.MaxRetries < 0 {
		return errors.New("max_retries cannot be negative")
	}

	if r.PoolSize <= 0 {
		return errors.New("pool_size must be positive")
	}

	if r.MinIdleConns < 0 {
		return errors.New("min_idle_conns cannot be negative")
	}

	if r.MinIdleConns > r.PoolSize {
		return errors.New("min_idle_conns cannot be greater than pool_size")
	}

	return nil
}

func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"panic": true,
		"fatal": true,
		"error": true,
		"warn":  true,
		"info":  true,
		"debug": true,
		"trace": true,
	}

	if !validLevels[l.Level] {
		return fmt.Errorf("invalid log level: %s", l.Level)
	}

	if l.Format != "json" && l.Format != "text" {
		return errors.New("log format must be 'json' or 'text'")
	}

	if l.Output == "" {
		return errors.New("log output is required")
	}

	if l.Output != "stdout" && l.Output != "stderr" {
		if l.MaxSize <= 0 {
			return errors.New("max_size must be positive for file output")
		}
		if l.MaxBackups < 0 {
			return errors.New("max_backups cannot be negative")
		}
		if l.MaxAge < 0 {
			return errors.New("max_age cannot be negative")
		}
	}

	return nil
}

func (m *MetricsConfig) Validate() error {
	if !m.Enabled {
		return nil
	}

	if m.Port < 1 || m.Port > 65535 {
		return fmt.Errorf("invalid metrics port: %d", m.Port)
	}

	if m.Path == "" {
		return errors.New("metrics path cannot be empty")
	}

	if !strings.HasPrefix(m.Path, "/") {
		return fmt.Errorf("metrics path must start with /: %q", m.Path)
	}

	return nil
}

func (s *SpliceConfig) Validate() error {
	if s.Cadence == 0 {
		return errors.New("cadence must be positive")
	}

	if strings.Contains(s.AdSession, "/") {
		return fmt.Errorf("ad_session must be a single path element: %q", s.AdSession)
	}

	if err := s.AllowList.Validate(); err != nil {
		return fmt.Errorf("allow_list: %w", err)
	}

	if err := s.Cycle.Validate(); err != nil {
		return fmt.Errorf("cycle: %w", err)
	}

	if err := s.AdSource.Validate(); err != nil {
		return fmt.Errorf("ad_source: %w", err)
	}

	if s.OriginURL != "" {
		u, err := url.Parse(s.OriginURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid origin_url: %q", s.OriginURL)
		}
	}

	return nil
}

func (a *AllowListConfig) Validate() error {
	switch a.Source {
	case AllowListStatic:
		return nil
	case AllowListRedis:
		if a.Key == "" {
			return errors.New("key is required for the redis source")
		}
		if a.RefreshInterval <= 0 {
			return errors.New("refresh_interval must be positive")
		}
		return nil
	default:
		return fmt.Errorf("invalid source: %q (must be static or redis)", a.Source)
	}
}

func (c *CycleConfig) Validate() error {
	return c.Rule().Validate()
}

// Rule converts the section into the engine's offset rule.
func (c CycleConfig) Rule() decision.CycleRule {
	return decision.CycleRule{
		PoolBase:     c.PoolBase,
		PoolSize:     c.PoolSize,
		Stride:       c.Stride,
		TargetOffset: c.TargetOffset,
	}
}

func (a *AdSourceConfig) Validate() error {
	switch a.Type {
	case AdSourceDir:
		if a.Dir == "" {
			return errors.New("dir is required for the dir source")
		}
		if a.Template == "" {
			return errors.New("template is required for the dir source")
		}
	case AdSourceHTTP:
		if a.URLTemplate == "" {
			return errors.New("url_template is required for the http source")
		}
		if !strings.HasPrefix(a.URLTemplate, "http://") && !strings.HasPrefix(a.URLTemplate, "https://") {
			return fmt.Errorf("url_template must be an http(s) URL: %q", a.URLTemplate)
		}
		if a.Timeout <= 0 {
			return errors.New("timeout must be positive")
		}
		if a.RateLimit < 0 {
			return errors.New("rate_limit cannot be negative")
		}
		if a.RateLimit > 0 && a.Burst <= 0 {
			return errors.New("burst must be positive when rate_limit is set")
		}
	default:
		return fmt.Errorf("invalid type: %q (must be dir or http)", a.Type)
	}

	if a.MaxBytes < 0 {
		return errors.New("max_bytes cannot be negative")
	}
	if a.CacheTTL < 0 {
		return errors.New("cache_ttl cannot be negative")
	}
	return nil
}
