package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/zsiec/adsplice/internal/adsource"
	"github.com/zsiec/adsplice/internal/config"
	"github.com/zsiec/adsplice/internal/decision"
	"github.com/zsiec/adsplice/internal/health"
	"github.com/zsiec/adsplice/internal/logger"
	"github.com/zsiec/adsplice/internal/metrics"
	"github.com/zsiec/adsplice/internal/server"
	"github.com/zsiec/adsplice/internal/splice"
	"github.com/zsiec/adsplice/pkg/version"
)

func main() {
	var (
		configPath  string
		showVersion bool
	)

	pflag.StringVarP(&configPath, "config", "c", "configs/default.yaml", "Path to configuration file")
	pflag.BoolVar(&showVersion, "version", false, "Show version information")
	pflag.Parse()

	// Show version and exit if requested
	if showVersion {
		fmt.Println(version.GetInfo().String())
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(&cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.WithField("version", version.GetInfo().Short()).Info("Starting adsplice edge")
	log.WithField("config_path", configPath).Debug("Configuration loaded")

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
	}()

	var checkers []health.Checker

	allowList, redisClient, err := buildAllowList(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to build allow-list")
	}
	checkers = append(checkers, health.NewAllowListChecker(allowList))
	if redisClient != nil {
		checkers = append(checkers, health.NewRedisChecker(redisClient))
	}

	source, sourceChecker := buildAdSource(&cfg.Splice.AdSource)
	checkers = append(checkers, sourceChecker)

	engine, err := decision.NewEngine(decision.Config{
		Cadence:   cfg.Splice.Cadence,
		AdSession: cfg.Splice.AdSession,
		Cycle:     cfg.Splice.Cycle.Rule(),
	}, allowList)
	if err != nil {
		log.WithError(err).Fatal("Failed to build decision engine")
	}

	svc := splice.NewService(engine, source,
		logger.NewLogrusAdapter(logger.WithComponent(log, "splice")),
		splice.Config{Verify: cfg.Splice.Verify})

	srv, err := server.New(cfg, log, svc)
	if err != nil {
		log.WithError(err).Fatal("Failed to create server")
	}
	for _, c := range checkers {
		srv.RegisterChecker(c)
	}
	if cfg.Splice.OriginURL != "" {
		srv.RegisterChecker(health.NewHTTPChecker("origin", cfg.Splice.OriginURL, nil, true))
	}

	log.WithFields(logrus.Fields{
		"cadence":       cfg.Splice.Cadence,
		"ad_session":    cfg.Splice.AdSession,
		"allow_list":    cfg.Splice.AllowList.Source,
		"ad_source":     cfg.Splice.AdSource.Type,
		"origin":        cfg.Splice.OriginURL,
		"verify":        cfg.Splice.Verify,
		"pool_base":     cfg.Splice.Cycle.PoolBase,
		"pool_size":     cfg.Splice.Cycle.PoolSize,
		"target_offset": cfg.Splice.Cycle.TargetOffset,
	}).Info("Splice pipeline configured")

	// Start metrics server if enabled
	if cfg.Metrics.Enabled {
		go startMetricsServer(cfg.Metrics, log)
	}

	if err := srv.Start(ctx); err != nil {
		log.WithError(err).Fatal("Server error")
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.WithError(err).Error("Failed to close Redis connection")
		}
	}

	log.Info("Server shutdown complete")
}

// sizedAllowList is what the engine and the allow-list health check both need.
type sizedAllowList interface {
	decision.AllowList
	Len() int
}

// buildAllowList returns the configured allow-list. A Redis list is loaded once
// before serving and then refreshed in the background until ctx is done.
func buildAllowList(ctx context.Context, cfg *config.Config, log *logrus.Logger) (sizedAllowList, *redis.Client, error) {
	if cfg.Splice.AllowList.Source != config.AllowListRedis {
		list := decision.NewStaticAllowList(cfg.Splice.AllowList.Clients...)
		metrics.SetAllowListEntries(list.Len())
		log.WithField("entries", list.Len()).Info("Using static allow-list")
		return list, nil, nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addresses[0],
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		_ = redisClient.Close()
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Info("Connected to Redis successfully")

	list := decision.NewRedisAllowList(redisClient, log, cfg.Splice.AllowList.Key, cfg.Splice.AllowList.RefreshInterval)
	if err := list.Refresh(pingCtx); err != nil {
		_ = redisClient.Close()
		return nil, nil, err
	}
	go list.Run(ctx)

	return list, redisClient, nil
}

// buildAdSource returns the configured ad source, cached when cache_ttl is set,
// and the health checker for its backing store.
func buildAdSource(cfg *config.AdSourceConfig) (adsource.Source, health.Checker) {
	var (
		source  adsource.Source
		checker health.Checker
	)

	switch cfg.Type {
	case config.AdSourceHTTP:
		source = adsource.NewHTTPSource(adsource.HTTPConfig{
			URLTemplate: cfg.URLTemplate,
			Timeout:     cfg.Timeout,
			RateLimit:   cfg.RateLimit,
			Burst:       cfg.Burst,
			MaxBytes:    cfg.MaxBytes,
		}, nil)
		// Ad server failures fall back to origin content, so they only degrade
		checker = health.NewHTTPChecker("ad_source", serverRoot(cfg.URLTemplate), &http.Client{Timeout: cfg.Timeout}, false)
	default:
		source = adsource.NewDirSource(cfg.Dir, cfg.Template)
		checker = health.NewDirChecker("ad_source", cfg.Dir)
	}

	if cfg.CacheTTL > 0 {
		source = adsource.NewCachedSource(source, cfg.CacheTTL)
	}
	return source, checker
}

// serverRoot reduces a URL template to scheme://host/ for health probes.
func serverRoot(template string) string {
	u, err := url.Parse(template)
	if err != nil || u.Host == "" {
		return template
	}
	return u.Scheme + "://" + u.Host + "/"
}

// startMetricsServer starts the Prometheus metrics server
func startMetricsServer(cfg config.MetricsConfig, log *logrus.Logger) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.Handler())

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.WithField("addr", addr).Info("Starting metrics server")

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.WithError(err).Error("Metrics server error")
	}
}
