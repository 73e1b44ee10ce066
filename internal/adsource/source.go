// Package adsource fetches pre-rendered ad fragments named by a decision.
package adsource

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/zsiec/adsplice/internal/decision"
)

// ErrAssetNotFound is returned when a source has no fragment for the reference.
var ErrAssetNotFound = errors.New("ad asset not found")

// Source fetches ad fragment bytes. Returned buffers are owned by the caller and
// must not be modified by it; cached sources share them between requests.
type Source interface {
	Fetch(ctx context.Context, ref decision.AssetRef) ([]byte, error)
}

// Template placeholders understood by Expand.
const (
	PlaceholderStream   = "{stream}"
	PlaceholderSequence = "{sequence}"
	PlaceholderPath     = "{path}"
)

// DefaultTemplate names fragments {stream}-{sequence}.m4s.
const DefaultTemplate = PlaceholderStream + "-" + PlaceholderSequence + ".m4s"

// Expand fills tmpl from ref. {path} is the asset path without its leading slash.
// A template without placeholders names one fixed asset.
func Expand(tmpl string, ref decision.AssetRef) string {
	return strings.NewReplacer(
		PlaceholderStream, strconv.FormatUint(ref.StreamID, 10),
		PlaceholderSequence, strconv.FormatUint(ref.Sequence, 10),
		PlaceholderPath, strings.TrimPrefix(ref.Path, "/"),
	).Replace(tmpl)
}
