package server

import (
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/zsiec/adsplice/internal/adsource"
	"github.com/zsiec/adsplice/internal/errors"
	"github.com/zsiec/adsplice/internal/logger"
	"github.com/zsiec/adsplice/internal/segment"
	"github.com/zsiec/adsplice/internal/splice"
)

// CodeSegmentTooLarge marks uploads over server.max_upload_bytes.
const CodeSegmentTooLarge = "SEGMENT_TOO_LARGE"

type decisionResponse struct {
	*splice.Outcome
	ClientID string `json:"client_id"`
	// RewritePath is the request path a CDN function forwards to when the
	// request is substituted.
	RewritePath string `json:"rewrite_path,omitempty"`
}

type inspectResponse struct {
	*segment.Report
	Size  int    `json:"size"`
	Chain string `json:"chain"`
}

type parseResponse struct {
	URL string `json:"url"`
	inspectResponse
}

// handleDecision returns the routing decision for a path without fetching any
// content. The client defaults to the caller's address.
func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	path := query.Get("path")
	if path == "" {
		s.writeError(w, r, errors.NewValidationError("path query parameter is required"))
		return
	}
	clientID := query.Get("client")
	if clientID == "" {
		clientID = logger.ClientIP(r, s.config.Server.TrustForwardedHeaders)
	}

	out, err := s.service.Decide(path, clientID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := decisionResponse{Outcome: out, ClientID: clientID}
	if out.Decision.Substitute {
		resp.RewritePath = out.Decision.Asset.Path
	}
	if err := s.writeJSON(w, http.StatusOK, resp); err != nil {
		s.logger.WithError(err).Error("Failed to encode decision response")
	}
}

// handleInspect reports the box structure of the posted segment.
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	data, err := s.readSegment(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	report, err := segment.Inspect(data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.writeJSON(w, http.StatusOK, newInspectResponse(report, len(data))); err != nil {
		s.logger.WithError(err).Error("Failed to encode inspect response")
	}
}

// handlePatch rewrites the fragment sequence of the posted segment to
// target_sequence and returns the patched bytes.
func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("target_sequence")
	if raw == "" {
		s.writeError(w, r, errors.NewValidationError("target_sequence query parameter is required"))
		return
	}
	seq, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		s.writeError(w, r, errors.NewValidationError(fmt.Sprintf("target_sequence must be an unsigned 32-bit integer, got %q", raw)))
		return
	}

	data, err := s.readSegment(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.service.Patch(r.Context(), data, uint32(seq))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "video/mp4")
	h.Set("Content-Length", strconv.Itoa(len(res.Segment)))
	h.Set(HeaderFragmentSequence, strconv.FormatUint(seq, 10))
	if res.Original.FragmentSequence != nil {
		h.Set(HeaderOriginalSequence, strconv.FormatUint(uint64(*res.Original.FragmentSequence), 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Segment); err != nil {
		logger.FromContext(r.Context()).WithError(err).Debug("Failed to write patched segment")
	}
}

// handleParseM4S fetches a segment by URL and reports its box structure.
func (s *Server) handleParseM4S(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	u, err := url.Parse(raw)
	if raw == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		s.writeError(w, r, errors.NewValidationError("url query parameter must be an absolute http(s) URL"))
		return
	}

	data, err := adsource.Download(r.Context(), s.toolClient, u.String(), s.config.Server.MaxUploadBytes)
	if err != nil {
		s.writeError(w, r, errors.WrapBadGateway(err, "Failed to fetch segment"))
		return
	}

	report, err := segment.Inspect(data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := parseResponse{URL: u.String(), inspectResponse: newInspectResponse(report, len(data))}
	if err := s.writeJSON(w, http.StatusOK, resp); err != nil {
		s.logger.WithError(err).Error("Failed to encode parse response")
	}
}

func newInspectResponse(report *segment.Report, size int) inspectResponse {
	return inspectResponse{Report: report, Size: size, Chain: report.Chain()}
}

// readSegment reads a posted segment up to server.max_upload_bytes.
func (s *Server) readSegment(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body := http.MaxBytesReader(w, r.Body, s.config.Server.MaxUploadBytes)
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return nil, errors.New(errors.ErrorTypeValidation,
				fmt.Sprintf("Segment exceeds %d bytes", tooLarge.Limit),
				http.StatusRequestEntityTooLarge).WithCode(CodeSegmentTooLarge)
		}
		return nil, errors.NewValidationError("Failed to read request body")
	}
	if len(data) == 0 {
		return nil, errors.NewValidationError("Request body is empty")
	}
	return data, nil
}
