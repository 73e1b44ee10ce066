package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/http/httputil"
	_ "net/http/pprof" // Import for side effects (registers pprof handlers)
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
	"github.com/sirupsen/logrus"

	"github.com/zsiec/adsplice/internal/config"
	"github.com/zsiec/adsplice/internal/errors"
	"github.com/zsiec/adsplice/internal/health"
	"github.com/zsiec/adsplice/internal/logger"
	"github.com/zsiec/adsplice/internal/splice"
)

const healthCheckInterval = 30 * time.Second

// Server is the ad-insertion edge: segment requests, the splice API and health
// endpoints on a plain HTTP listener and an optional HTTP/3 listener.
type Server struct {
	config       *config.Config
	router       *mux.Router
	http3Server  *http3.Server
	httpServer   *http.Server
	logger       *logrus.Logger
	service      *splice.Service
	healthMgr    *health.Manager
	errorHandler *errors.ErrorHandler

	// origin serves pass-through and fallback requests; nil without an origin_url
	origin     *httputil.ReverseProxy
	toolClient *http.Client

	routesOnce sync.Once
}

// New creates a new server instance.
func New(cfg *config.Config, log *logrus.Logger, svc *splice.Service) (*Server, error) {
	errorHandler := errors.NewErrorHandler(log)

	s := &Server{
		config:       cfg,
		router:       mux.NewRouter(),
		logger:       log,
		service:      svc,
		healthMgr:    health.NewManager(log),
		errorHandler: errorHandler,
		toolClient:   &http.Client{Timeout: 10 * time.Second},
	}

	if cfg.Splice.OriginURL != "" {
		target, err := url.Parse(cfg.Splice.OriginURL)
		if err != nil {
			return nil, fmt.Errorf("invalid origin url: %w", err)
		}
		s.origin = newOriginProxy(target, errorHandler)
	}

	return s, nil
}

// newOriginProxy forwards requests unchanged to target. The Host header is
// rewritten so CDN origins that route by host accept them.
func newOriginProxy(target *url.URL, errorHandler *errors.ErrorHandler) *httputil.ReverseProxy {
	proxy := httputil.NewSingleHostReverseProxy(target)

	director := proxy.Director
	proxy.Director = func(r *http.Request) {
		director(r)
		r.Host = target.Host
	}
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		errorHandler.HandleError(w, r, errors.WrapBadGateway(err, "Origin request failed"))
	}
	return proxy
}

// RegisterChecker adds a health checker reported by /health and /ready.
func (s *Server) RegisterChecker(checker health.Checker) {
	s.healthMgr.Register(checker)
}

// Start serves until ctx is done or a listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.setupRoutes()

	go s.healthMgr.StartPeriodicChecks(ctx, healthCheckInterval)

	errCh := make(chan error, 2)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.HTTPPort),
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}
	go func() {
		s.logger.WithField("port", s.config.Server.HTTPPort).Info("Starting HTTP server")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if s.config.Server.EnableHTTP3 {
		h3, err := s.newHTTP3Server()
		if err != nil {
			_ = s.Shutdown()
			return err
		}
		s.http3Server = h3

		go func() {
			s.logger.WithField("port", s.config.Server.HTTP3Port).Info("Starting HTTP/3 server")
			if err := h3.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- fmt.Errorf("http3 server: %w", err)
			}
		}()
	}

	select {
	case err := <-errCh:
		_ = s.Shutdown()
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		return s.Shutdown()
	}
}

func (s *Server) newHTTP3Server() (*http3.Server, error) {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS13,
		NextProtos: []string{"h3"},
	}

	cert, err := tls.LoadX509KeyPair(s.config.Server.TLSCertFile, s.config.Server.TLSKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificates: %w", err)
	}
	tlsConfig.Certificates = []tls.Certificate{cert}

	quicConfig := &quic.Config{
		MaxIncomingStreams: s.config.Server.MaxIncomingStreams,
		MaxIdleTimeout:     s.config.Server.MaxIdleTimeout,
	}

	return &http3.Server{
		Addr:       fmt.Sprintf(":%d", s.config.Server.HTTP3Port),
		Handler:    s.router,
		QUICConfig: quicConfig,
		TLSConfig:  tlsConfig,
	}, nil
}

// Shutdown drains the HTTP listener within the configured shutdown timeout and
// closes the HTTP/3 listener.
func (s *Server) Shutdown() error {
	s.logger.Info("Shutting down server")

	timeout := s.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var firstErr error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			firstErr = fmt.Errorf("failed to shutdown http server: %w", err)
		}
	}
	// http3.Server.Close() doesn't support context-based shutdown
	if s.http3Server != nil {
		if err := s.http3Server.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to shutdown http3 server: %w", err)
		}
	}

	if firstErr != nil {
		return firstErr
	}
	s.logger.Info("Server shutdown complete")
	return nil
}

// setupRoutes configures all routes. It runs once; Start calls it.
func (s *Server) setupRoutes() {
	s.routesOnce.Do(func() {
		// Apply global middleware
		s.router.Use(s.requestIDMiddleware)
		s.router.Use(logger.RequestLoggerMiddleware(s.logger))
		s.router.Use(s.recoveryMiddleware)
		s.router.Use(s.errorHandler.Middleware)
		s.router.Use(s.metricsMiddleware)
		s.router.Use(s.corsMiddleware)
		s.router.Use(s.altSvcMiddleware)

		// Health endpoints
		healthHandler := health.NewHandler(s.healthMgr)
		s.router.HandleFunc("/health", healthHandler.HandleHealth).Methods("GET")
		s.router.HandleFunc("/ready", healthHandler.HandleReady).Methods("GET")
		s.router.HandleFunc("/live", healthHandler.HandleLive).Methods("GET")

		s.router.HandleFunc("/version", s.handleVersion).Methods("GET")

		// API routes
		api := s.router.PathPrefix("/api/v1").Subrouter()
		api.HandleFunc("/decisions", s.handleDecision).Methods("GET").Name("decisions")
		api.HandleFunc("/segments/inspect", s.handleInspect).Methods("POST").Name("inspect")
		api.HandleFunc("/segments/patch", s.handlePatch).Methods("POST").Name("patch")

		if s.config.Server.DebugEndpoints {
			s.setupDebugEndpoints()
		}

		// Segment requests, any path ending in .m4s
		s.router.MatcherFunc(isSegmentRequest).
			Methods("GET", "HEAD").
			HandlerFunc(s.handleSegment).
			Name("segment")

		// mux skips middleware for these two, so CORS preflights are answered here
		s.router.NotFoundHandler = s.requestIDMiddleware(s.corsMiddleware(http.HandlerFunc(s.handleUnmatched)))
		s.router.MethodNotAllowedHandler = s.requestIDMiddleware(s.corsMiddleware(http.HandlerFunc(s.errorHandler.HandleMethodNotAllowed)))
	})
}

// setupDebugEndpoints registers pprof, /debug/info and the segment parsing tool
func (s *Server) setupDebugEndpoints() {
	s.logger.Info("Enabling debug endpoints")

	// pprof handlers live on the default mux
	s.router.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
	s.router.HandleFunc("/debug/info", s.handleDebugInfo).Methods("GET")
	s.router.HandleFunc("/tool/parsem4s.json", s.handleParseM4S).Methods("GET").Name("parsem4s")
}

// GetRouter returns the router for testing.
func (s *Server) GetRouter() *mux.Router {
	return s.router
}
