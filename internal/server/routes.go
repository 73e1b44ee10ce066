package server

import (
	"encoding/json"
	"net/http"

	"github.com/zsiec/adsplice/pkg/version"
)

// handleVersion handles the /version endpoint
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	versionInfo := version.GetInfo()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=3600")

	if err := json.NewEncoder(w).Encode(versionInfo); err != nil {
		s.logger.WithError(err).Error("Failed to encode version response")
		s.errorHandler.HandleError(w, r, err)
	}
}

// handleDebugInfo reports listener settings and per-request log sampling counters
func (s *Server) handleDebugInfo(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"protocols": map[string]bool{
			"http":  true,
			"http3": s.config.Server.EnableHTTP3,
		},
		"ports": map[string]int{
			"http":  s.config.Server.HTTPPort,
			"http3": s.config.Server.HTTP3Port,
		},
		"splice": map[string]interface{}{
			"cadence":            s.config.Splice.Cadence,
			"ad_session":         s.config.Splice.AdSession,
			"allow_list_source":  s.config.Splice.AllowList.Source,
			"ad_source":          s.config.Splice.AdSource.Type,
			"origin":             s.origin != nil,
			"fallback_to_origin": s.config.Splice.FallbackToOrigin,
		},
		"log_sampling":  s.service.LogSamplerStats(),
		"debug_enabled": true,
	}

	if err := s.writeJSON(w, http.StatusOK, info); err != nil {
		s.logger.WithError(err).Error("Failed to encode debug info")
	}
}

// writeJSON is a helper to write JSON responses
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// writeError is a helper to write error responses
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	s.errorHandler.HandleError(w, r, err)
}
