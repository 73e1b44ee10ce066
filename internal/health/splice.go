package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/zsiec/adsplice/pkg/version"
)

// SizedAllowList is an allow-list that can report its size.
type SizedAllowList interface {
	Len() int
}

// AllowListChecker reports degraded while the allow-list is empty, since every
// request then passes through untouched.
type AllowListChecker struct {
	list SizedAllowList
}

func NewAllowListChecker(list SizedAllowList) *AllowListChecker {
	return &AllowListChecker{list: list}
}

func (a *AllowListChecker) Name() string {
	return "allow_list"
}

func (a *AllowListChecker) Check(ctx context.Context) error {
	if a.list.Len() == 0 {
		return Degraded(errors.New("allow-list is empty, no client receives ads"))
	}
	return nil
}

func (a *AllowListChecker) Details() map[string]interface{} {
	return map[string]interface{}{"entries": a.list.Len()}
}

// DirChecker verifies the ad asset directory is present.
type DirChecker struct {
	name string
	path string
}

func NewDirChecker(name, path string) *DirChecker {
	return &DirChecker{name: name, path: path}
}

func (d *DirChecker) Name() string {
	return d.name
}

func (d *DirChecker) Check(ctx context.Context) error {
	info, err := os.Stat(d.path)
	if err != nil {
		return fmt.Errorf("asset directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", d.path)
	}
	return nil
}

func (d *DirChecker) Details() map[string]interface{} {
	return map[string]interface{}{"path": d.path}
}

// HTTPChecker probes an upstream HTTP server. Any response below 500 counts as
// reachable. Non-critical upstreams report degraded instead of down.
type HTTPChecker struct {
	name     string
	url      string
	client   *http.Client
	critical bool
}

func NewHTTPChecker(name, url string, client *http.Client, critical bool) *HTTPChecker {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPChecker{name: name, url: url, client: client, critical: critical}
}

func (h *HTTPChecker) Name() string {
	return h.name
}

func (h *HTTPChecker) Check(ctx context.Context) error {
	err := h.probe(ctx)
	if err != nil && !h.critical {
		return Degraded(err)
	}
	return err
}

func (h *HTTPChecker) probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, h.url, nil)
	if err != nil {
		return fmt.Errorf("failed to build probe: %w", err)
	}
	req.Header.Set("User-Agent", version.GetInfo().UserAgent())

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s unreachable: %w", h.name, err)
	}
	resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%s returned %d", h.name, resp.StatusCode)
	}
	return nil
}

func (h *HTTPChecker) Details() map[string]interface{} {
	return map[string]interface{}{"url": h.url}
}
