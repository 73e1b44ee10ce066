// Package decision decides whether a segment request receives ad content and which
// ad fragment and sequence number to use.
package decision

import (
	"errors"
	"fmt"
	"math"

	"github.com/zsiec/adsplice/internal/segpath"
)

// Reason explains a decision.
type Reason string

const (
	ReasonSubstitute       Reason = "substitute"
	ReasonClientNotAllowed Reason = "client_not_allowed"
	ReasonOffCadence       Reason = "off_cadence"
)

// Config holds the engine's deployment settings.
type Config struct {
	// Cadence substitutes every Nth chunk.
	Cadence uint64
	// AdSession is the session directory ad assets live under. Empty keeps asset
	// paths in the legacy grammar.
	AdSession string
	// Cycle is used when no OffsetFunc is supplied.
	Cycle CycleRule
}

// AssetRef identifies a pre-rendered ad fragment.
type AssetRef struct {
	StreamID uint64 `json:"stream_id"`
	Sequence uint64 `json:"sequence"`
	// Path is the asset's request path, the rewritten path in CDN function mode.
	Path string `json:"path"`
}

// Decision is the outcome for one request. TargetSequence and Asset are only set
// when Substitute is true.
type Decision struct {
	Substitute     bool     `json:"substitute"`
	TargetSequence uint32   `json:"target_sequence,omitempty"`
	Asset          AssetRef `json:"asset"`
	Reason         Reason   `json:"reason"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithOffsetFunc replaces the cycle rule mapping.
func WithOffsetFunc(fn OffsetFunc) Option {
	return func(e *Engine) {
		e.offset = fn
	}
}

// Engine makes substitution decisions. It holds no mutable state of its own.
type Engine struct {
	cfg    Config
	allow  AllowList
	offset OffsetFunc
}

// NewEngine validates cfg and builds an engine.
func NewEngine(cfg Config, allow AllowList, opts ...Option) (*Engine, error) {
	if cfg.Cadence == 0 {
		return nil, errors.New("cadence must be positive")
	}
	if allow == nil {
		return nil, errors.New("allow-list is required")
	}

	e := &Engine{cfg: cfg, allow: allow}
	for _, opt := range opts {
		opt(e)
	}
	if e.offset == nil {
		if err := cfg.Cycle.Validate(); err != nil {
			return nil, fmt.Errorf("cycle rule: %w", err)
		}
		e.offset = cfg.Cycle.Slot
	}

	return e, nil
}

// Cadence returns the configured cadence.
func (e *Engine) Cadence() uint64 {
	return e.cfg.Cadence
}

// Decide substitutes when clientID is allowed and the chunk falls on the cadence.
func (e *Engine) Decide(path segpath.Path, clientID string) (Decision, error) {
	if !e.allow.Allowed(clientID) {
		return Decision{Reason: ReasonClientNotAllowed}, nil
	}
	if path.ChunkSequence%e.cfg.Cadence != 0 {
		return Decision{Reason: ReasonOffCadence}, nil
	}

	slot, err := e.offset(path.ChunkSequence)
	if err != nil {
		return Decision{}, err
	}
	if slot.TargetSequence > math.MaxUint32 {
		return Decision{}, fmt.Errorf("%w: %d exceeds 32 bits", ErrSequenceOutOfRange, slot.TargetSequence)
	}

	asset := path.WithChunk(slot.AssetSequence)
	if e.cfg.AdSession != "" {
		asset = asset.WithSession(e.cfg.AdSession)
	}

	return Decision{
		Substitute:     true,
		TargetSequence: uint32(slot.TargetSequence),
		Asset: AssetRef{
			StreamID: path.StreamID,
			Sequence: slot.AssetSequence,
			Path:     asset.String(),
		},
		Reason: ReasonSubstitute,
	}, nil
}
