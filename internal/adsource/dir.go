package adsource

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zsiec/adsplice/internal/decision"
	"github.com/zsiec/adsplice/internal/metrics"
)

// DirSource reads fragments from a local directory.
type DirSource struct {
	root     string
	template string
}

// NewDirSource creates a source rooted at root. An empty template uses DefaultTemplate.
func NewDirSource(root, template string) *DirSource {
	if template == "" {
		template = DefaultTemplate
	}
	return &DirSource{root: root, template: template}
}

// Root returns the directory the source reads from.
func (s *DirSource) Root() string {
	return s.root
}

// Fetch implements Source.
func (s *DirSource) Fetch(ctx context.Context, ref decision.AssetRef) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	data, err := s.read(ref)
	metrics.RecordAdFetch("dir", fetchResult(err), time.Since(start).Seconds())
	return data, err
}

func (s *DirSource) read(ref decision.AssetRef) ([]byte, error) {
	name := filepath.Clean(filepath.FromSlash(Expand(s.template, ref)))
	if filepath.IsAbs(name) || name == ".." || strings.HasPrefix(name, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("asset name %q escapes the asset directory", name)
	}

	data, err := os.ReadFile(filepath.Join(s.root, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ad asset: %w", err)
	}
	return data, nil
}

func fetchResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrAssetNotFound):
		return "not_found"
	default:
		return "error"
	}
}
