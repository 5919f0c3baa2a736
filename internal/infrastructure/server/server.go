package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	apihttp "github.com/verdantlabs/gatekit/internal/api/http"
	"github.com/verdantlabs/gatekit/internal/api/middleware"
	"github.com/verdantlabs/gatekit/internal/infrastructure/config"
	"github.com/verdantlabs/gatekit/internal/infrastructure/logging"
	"github.com/verdantlabs/gatekit/internal/infrastructure/monitoring"
	"github.com/verdantlabs/gatekit/internal/ratelimit"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router  *gin.Engine
	http    *http.Server
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
	store   ratelimit.Store
	stop    chan struct{}
}

// New creates a server instance: the gatekeeper chain in front of a
// reverse proxy to the configured upstream.
func New(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault(cfg.Logging.Level)
	}

	logger.Info("Initializing gateway",
		zap.String("port", cfg.Server.Port),
		zap.String("upstream", cfg.Upstream.Address),
		zap.String("api_prefix", cfg.Gate.APIPrefix),
	)

	metrics := monitoring.NewMetrics()

	store, err := newStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	upstream, err := url.Parse(cfg.Upstream.Address)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream address %q: %w", cfg.Upstream.Address, err)
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Gatekeeper chain. Recovery sits first so nothing downstream can
	// crash the process; the header policy sits before every branch so
	// no short-circuit path can skip it.
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.SecurityHeaders())
	router.Use(preflightCounter(cfg.Gate.APIPrefix, metrics))
	corsCfg := middleware.DefaultCORSConfig(cfg.Gate.APIPrefix)
	corsCfg.AllowedOrigins = cfg.Gate.AllowedOrigins
	router.Use(middleware.CORS(corsCfg))
	if cfg.Overload.Enabled {
		logger.Info("Overload guard enabled",
			zap.Int("rps", cfg.Overload.RequestsPerSecond),
			zap.Int("burst", cfg.Overload.Burst),
		)
		router.Use(middleware.Overload(middleware.OverloadConfig{
			RequestsPerSecond: cfg.Overload.RequestsPerSecond,
			Burst:             cfg.Overload.Burst,
		}))
	}
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("limit", cfg.RateLimit.Limit),
			zap.Duration("window", cfg.RateLimit.Window),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			APIPrefix:  cfg.Gate.APIPrefix,
			AuthPrefix: cfg.Gate.AuthPrefix,
			Policy: ratelimit.Policy{
				Limit:     cfg.RateLimit.Limit,
				Window:    cfg.RateLimit.Window,
				BucketCap: cfg.RateLimit.BucketCap,
			},
		}, store, logger, metrics))
	}

	// Endpoints the gateway answers itself
	handlers := apihttp.NewHandlers(cfg.Upstream.Address, metrics)
	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})))
	router.GET("/metrics/json", handlers.MetricsJSON)

	// Everything else is forwarded to the upstream untouched
	proxy := newProxy(upstream, logger, metrics)
	router.NoRoute(func(c *gin.Context) {
		proxy.ServeHTTP(c.Writer, c.Request)
	})

	s := &Server{
		router:  router,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
		store:   store,
		stop:    make(chan struct{}),
	}

	if mem, ok := store.(*ratelimit.MemoryStore); ok {
		go s.trackLimiterKeys(mem)
	}

	logger.Info("Gateway initialized successfully")
	return s, nil
}

// newStore selects the limiter backing store. The in-memory window is the
// default; redis makes concurrent gateway instances share one count.
func newStore(cfg *config.Config, logger *logging.Logger) (ratelimit.Store, error) {
	if !cfg.Redis.Enabled {
		return ratelimit.NewMemoryStore(), nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Address})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := ratelimit.NewRedisStore(ctx, client, cfg.Redis.Prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis limiter: %w", err)
	}
	logger.Info("Using shared redis rate limit store", zap.String("addr", cfg.Redis.Address))
	return store, nil
}

// preflightCounter records CORS preflights answered by the chain.
func preflightCounter(apiPrefix string, metrics *monitoring.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if c.Request.Method == http.MethodOptions &&
			strings.HasPrefix(c.Request.URL.Path, apiPrefix) &&
			c.Writer.Status() == http.StatusNoContent {
			metrics.RecordPreflight()
		}
	}
}

// trackLimiterKeys keeps the tracked-keys gauge current.
func (s *Server) trackLimiterKeys(store *ratelimit.MemoryStore) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.metrics.SetLimiterKeys(store.Len())
		}
	}
}

// Router exposes the assembled handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))

	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Close gracefully shuts down the server.
func (s *Server) Close() error {
	s.logger.Info("Shutting down gateway...")
	close(s.stop)

	if mem, ok := s.store.(*ratelimit.MemoryStore); ok {
		mem.Close()
	}

	if s.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.http.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
	}

	_ = s.logger.Sync()
	return nil
}
