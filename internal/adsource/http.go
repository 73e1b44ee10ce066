package adsource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/zsiec/adsplice/internal/decision"
	"github.com/zsiec/adsplice/internal/metrics"
	"github.com/zsiec/adsplice/pkg/version"
)

// DefaultMaxAssetBytes caps a fetched fragment.
const DefaultMaxAssetBytes = 32 << 20

// HTTPConfig configures an HTTPSource.
type HTTPConfig struct {
	// URLTemplate is expanded with Expand.
	URLTemplate string
	Timeout     time.Duration
	// RateLimit is requests per second to the ad origin; 0 disables limiting.
	RateLimit float64
	Burst     int
	MaxBytes  int64
}

// HTTPSource fetches fragments from an ad origin.
type HTTPSource struct {
	client   *http.Client
	template string
	limiter  *rate.Limiter
	maxBytes int64
}

// NewHTTPSource creates a source. client may be nil.
func NewHTTPSource(cfg HTTPConfig, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxAssetBytes
	}

	return &HTTPSource{
		client:   client,
		template: cfg.URLTemplate,
		limiter:  limiter,
		maxBytes: maxBytes,
	}
}

// URL returns the URL fetched for ref.
func (s *HTTPSource) URL(ref decision.AssetRef) string {
	return Expand(s.template, ref)
}

// Fetch implements Source. It waits for the rate limiter, so ctx bounds the total
// time spent.
func (s *HTTPSource) Fetch(ctx context.Context, ref decision.AssetRef) ([]byte, error) {
	start := time.Now()
	data, err := s.fetch(ctx, s.URL(ref))
	metrics.RecordAdFetch("http", fetchResult(err), time.Since(start).Seconds())
	return data, err
}

func (s *HTTPSource) fetch(ctx context.Context, url string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("ad origin rate limit: %w", err)
	}

	return Download(ctx, s.client, url, s.maxBytes)
}

// Download GETs url and returns the body. A 404 maps to ErrAssetNotFound and any
// other non-200 status is an error. Bodies larger than maxBytes are rejected.
func Download(ctx context.Context, client *http.Client, url string, maxBytes int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", version.GetInfo().UserAgent())

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, url)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("failed to fetch %s: status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%s exceeds %d bytes", url, maxBytes)
	}
	return data, nil
}
