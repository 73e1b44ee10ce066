// Package splice runs the ad substitution pipeline for one segment request:
// path decode, decision, ad fetch, inspection, sequence patch and verification.
package splice

import (
	"context"
	"errors"
	"fmt"

	"github.com/zsiec/adsplice/internal/adsource"
	"github.com/zsiec/adsplice/internal/decision"
	"github.com/zsiec/adsplice/internal/logger"
	"github.com/zsiec/adsplice/internal/metrics"
	"github.com/zsiec/adsplice/internal/segment"
	"github.com/zsiec/adsplice/internal/segpath"
)

// ReasonOutOfScope marks requests whose path matches neither segment grammar.
const ReasonOutOfScope decision.Reason = "out_of_scope"

// Stage names the pipeline step that failed.
type Stage string

const (
	StageDecide Stage = "decide"
	StageFetch  Stage = "fetch"
	StagePatch  Stage = "patch"
)

// Error is a pipeline failure tagged with its stage.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StageOf returns the stage of a pipeline error, or "" for other errors.
func StageOf(err error) Stage {
	var e *Error
	if errors.As(err, &e) {
		return e.Stage
	}
	return ""
}

// Outcome is the result of one request. Segment is only set when an ad fragment was
// substituted; otherwise the caller serves the original content.
type Outcome struct {
	Path     segpath.Path      `json:"path"`
	InScope  bool              `json:"in_scope"`
	Decision decision.Decision `json:"decision"`
	Reason   decision.Reason   `json:"reason"`

	Segment  []byte          `json:"-"`
	Original *segment.Report `json:"original,omitempty"`
	Patched  *segment.Report `json:"patched,omitempty"`
}

// Substituted reports whether Segment holds ad content to serve.
func (o *Outcome) Substituted() bool {
	return o.Segment != nil
}

// PatchResult is a patched segment with its before and after reports.
type PatchResult struct {
	Segment  []byte
	Original *segment.Report
	Patched  *segment.Report
}

// Config toggles optional pipeline checks.
type Config struct {
	// Verify decodes every patched fragment a second time with mp4ff.
	Verify bool
}

// Service wires the decision engine to an ad source.
type Service struct {
	engine  *decision.Engine
	source  adsource.Source
	sampled *logger.SampledLogger
	cfg     Config
}

// NewService creates a Service.
func NewService(engine *decision.Engine, source adsource.Source, log logger.Logger, cfg Config) *Service {
	if log == nil {
		log = logger.NewNullLogger()
	}
	return &Service{
		engine:  engine,
		source:  source,
		sampled: logger.NewSpliceLogger(log),
		cfg:     cfg,
	}
}

// LogSamplerStats reports how many per-request log lines were written and dropped.
func (s *Service) LogSamplerStats() map[string]logger.SamplerStats {
	return s.sampled.GetSamplerStats()
}

// Decide decodes requestPath and runs the decision engine without fetching
// anything. A path outside both grammars yields an out-of-scope outcome.
func (s *Service) Decide(requestPath, clientID string) (*Outcome, error) {
	path, err := segpath.Decode(requestPath)
	if err != nil {
		metrics.IncrementPassThrough()
		s.sampled.DebugWithCategory(logger.CategoryPassThrough, "Request outside segment grammars, passing through",
			map[string]interface{}{"path": requestPath})
		return &Outcome{Reason: ReasonOutOfScope}, nil
	}

	d, err := s.engine.Decide(path, clientID)
	if err != nil {
		return nil, &Error{Stage: StageDecide, Err: err}
	}
	metrics.RecordDecision(string(d.Reason))

	fields := map[string]interface{}{
		"path":      requestPath,
		"client_id": clientID,
		"stream_id": path.StreamID,
		"chunk":     path.ChunkSequence,
		"reason":    d.Reason,
	}
	if d.Substitute {
		fields["asset"] = d.Asset.Path
		fields["target_sequence"] = d.TargetSequence
		s.sampled.InfoWithCategory(logger.CategoryDecision, "Ad substitution selected", fields)
	} else {
		s.sampled.DebugWithCategory(logger.CategoryPassThrough, "Ad substitution skipped", fields)
	}

	return &Outcome{Path: path, InScope: true, Decision: d, Reason: d.Reason}, nil
}

// Handle runs the full pipeline. Fetch and patch failures are returned as *Error so
// the caller can fall back to the original content.
func (s *Service) Handle(ctx context.Context, requestPath, clientID string) (*Outcome, error) {
	out, err := s.Decide(requestPath, clientID)
	if err != nil || !out.Decision.Substitute {
		return out, err
	}

	asset, err := s.source.Fetch(ctx, out.Decision.Asset)
	if err != nil {
		return nil, &Error{Stage: StageFetch, Err: fmt.Errorf("fetch %s: %w", out.Decision.Asset.Path, err)}
	}

	res, err := s.Patch(ctx, asset, out.Decision.TargetSequence)
	if err != nil {
		return nil, err
	}

	out.Segment = res.Segment
	out.Original = res.Original
	out.Patched = res.Patched
	return out, nil
}

// Patch stamps seq into buf and checks the result. buf is left untouched.
func (s *Service) Patch(ctx context.Context, buf []byte, seq uint32) (*PatchResult, error) {
	requestID := logger.GetRequestID(ctx)

	original, err := segment.Inspect(buf)
	if err != nil {
		metrics.RecordPatch("malformed")
		return nil, &Error{Stage: StagePatch, Err: fmt.Errorf("inspect ad segment: %w", err)}
	}
	s.sampled.DebugWithCategory(logger.CategoryPatch, "Ad segment before patch", map[string]interface{}{
		"request_id": requestID,
		"boxes":      original.Chain(),
		"sequence":   sequenceField(original),
	})

	patched, err := segment.PatchSequence(buf, seq)
	if err != nil {
		if errors.Is(err, segment.ErrNoFragmentHeader) {
			metrics.RecordPatch("no_fragment_header")
		} else {
			metrics.RecordPatch("malformed")
		}
		return nil, &Error{Stage: StagePatch, Err: err}
	}

	after, err := segment.Inspect(patched)
	if err != nil {
		metrics.RecordPatch("verify_failed")
		return nil, &Error{Stage: StagePatch, Err: fmt.Errorf("inspect patched segment: %w", err)}
	}
	if after.FragmentSequence == nil || *after.FragmentSequence != seq {
		metrics.RecordPatch("verify_failed")
		return nil, &Error{Stage: StagePatch, Err: fmt.Errorf("patched segment reports sequence %v, want %d", sequenceField(after), seq)}
	}
	if s.cfg.Verify {
		if err := segment.VerifySequence(patched, seq); err != nil {
			metrics.RecordPatch("verify_failed")
			return nil, &Error{Stage: StagePatch, Err: err}
		}
	}

	metrics.RecordPatch("ok")
	metrics.ObserveSegmentSize(len(patched))
	s.sampled.DebugWithCategory(logger.CategoryPatch, "Ad segment after patch", map[string]interface{}{
		"request_id": requestID,
		"boxes":      after.Chain(),
		"sequence":   seq,
	})

	return &PatchResult{Segment: patched, Original: original, Patched: after}, nil
}

func sequenceField(r *segment.Report) interface{} {
	if r.FragmentSequence == nil {
		return "none"
	}
	return *r.FragmentSequence
}
