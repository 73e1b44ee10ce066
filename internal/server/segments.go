package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/zsiec/adsplice/internal/logger"
	"github.com/zsiec/adsplice/internal/metrics"
	"github.com/zsiec/adsplice/internal/splice"
)

// Response headers set on segment requests.
const (
	HeaderAdDecision       = "X-Ad-Decision"
	HeaderFragmentSequence = "X-Fragment-Sequence"
	HeaderOriginalSequence = "X-Original-Sequence"
)

// decisionFallback is the X-Ad-Decision value of origin content served after a
// failed substitution.
const decisionFallback = "fallback"

func isSegmentRequest(r *http.Request, _ *mux.RouteMatch) bool {
	return strings.HasSuffix(r.URL.Path, ".m4s")
}

// handleSegment serves a substituted ad fragment, or the original content from
// origin when the request is not selected.
func (s *Server) handleSegment(w http.ResponseWriter, r *http.Request) {
	clientID := logger.ClientIP(r, s.config.Server.TrustForwardedHeaders)

	out, err := s.service.Handle(r.Context(), r.URL.Path, clientID)
	if err != nil {
		s.handleSpliceFailure(w, r, err)
		return
	}

	if !out.Substituted() {
		w.Header().Set(HeaderAdDecision, string(out.Reason))
		s.serveOrigin(w, r)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "video/mp4")
	h.Set("Content-Length", strconv.Itoa(len(out.Segment)))
	h.Set("Cache-Control", "no-store")
	h.Set(HeaderAdDecision, string(out.Reason))
	h.Set(HeaderFragmentSequence, strconv.FormatUint(uint64(out.Decision.TargetSequence), 10))
	w.WriteHeader(http.StatusOK)

	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(out.Segment); err != nil {
		logger.FromContext(r.Context()).WithError(err).Debug("Failed to write ad segment")
	}
}

// handleSpliceFailure serves the original content after a failed substitution when
// fallback is enabled, and an error response otherwise.
func (s *Server) handleSpliceFailure(w http.ResponseWriter, r *http.Request, err error) {
	if s.origin == nil || !s.config.Splice.FallbackToOrigin {
		s.writeError(w, r, err)
		return
	}

	stage := string(splice.StageOf(err))
	if stage == "" {
		stage = "unknown"
	}
	metrics.IncrementOriginFallback(stage)
	logger.FromContext(r.Context()).WithError(err).WithField("stage", stage).
		Warn("Ad substitution failed, serving origin content")

	w.Header().Set(HeaderAdDecision, decisionFallback)
	s.origin.ServeHTTP(w, r)
}

// serveOrigin proxies r to origin, or answers 404 when none is configured.
func (s *Server) serveOrigin(w http.ResponseWriter, r *http.Request) {
	if s.origin == nil {
		s.errorHandler.HandleNotFound(w, r)
		return
	}
	s.origin.ServeHTTP(w, r)
}

// handleUnmatched proxies every other GET and HEAD to origin, so the edge can sit in
// front of manifests and init segments too.
func (s *Server) handleUnmatched(w http.ResponseWriter, r *http.Request) {
	if s.origin != nil && (r.Method == http.MethodGet || r.Method == http.MethodHead) {
		s.origin.ServeHTTP(w, r)
		return
	}
	s.errorHandler.HandleNotFound(w, r)
}
