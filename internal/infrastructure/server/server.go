package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/aikernel/internal/api/http"
	"github.com/GriffinCanCode/aikernel/internal/api/middleware"
	"github.com/GriffinCanCode/aikernel/internal/infrastructure/config"
	"github.com/GriffinCanCode/aikernel/internal/infrastructure/logging"
	"github.com/GriffinCanCode/aikernel/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/aikernel/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/aikernel/internal/kernel"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router  *gin.Engine
	http    *http.Server
	kernel  *kernel.Kernel
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
	tracer  *tracing.Tracer
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger := logging.FromSettings(cfg.Logging.Level, cfg.Logging.Development)

	logger.Info("Initializing aikernel server",
		zap.String("port", cfg.Server.Port),
		zap.String("services_file", cfg.Services.File),
	)

	// Metrics first, other components record into it
	metrics := monitoring.NewMetrics()

	k, err := kernel.FromConfig(cfg, logger.Component("kernel"), metrics)
	if err != nil {
		metrics.Close()
		return nil, err
	}

	tracer := tracing.New("aikernel", logger.Component("tracing"))
	k.Dispatcher().WithTracer(tracer)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
			zap.Bool("global", cfg.RateLimit.Global),
		)
		router.Use(rateLimiter(cfg.RateLimit))
	}

	handlers := apihttp.NewHandlers(k.Dispatcher(), metrics, logger.Component("api")).
		WithRequestTimeout(cfg.Services.Timeout)
	handlers.RegisterRoutes(router)

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	logger.Info("Server initialized successfully")

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		kernel:  k,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
		tracer:  tracer,
	}, nil
}

// rateLimiter picks a shared bucket or one bucket per client IP
func rateLimiter(cfg config.RateLimitConfig) gin.HandlerFunc {
	rl := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
		IdleTTL:           10 * time.Minute,
	}
	if cfg.Global {
		return middleware.GlobalRateLimit(rl)
	}
	return middleware.RateLimit(rl)
}

// Router exposes the gin engine, mainly for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Kernel returns the service kernel behind the API
func (s *Server) Kernel() *kernel.Kernel {
	return s.kernel
}

// Run starts the HTTP server and blocks until it stops
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	err := s.http.Shutdown(ctx)
	if err != nil {
		s.logger.Error("Failed to shut down HTTP server", zap.Error(err))
	}

	s.kernel.Close()
	s.tracer.Close()
	s.metrics.Close()

	// Sync logger before exit
	_ = s.logger.Sync()

	if err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}
